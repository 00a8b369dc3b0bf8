package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UkralStul/blog-service/internal/domain"
	"github.com/UkralStul/blog-service/internal/events"
)

func mustComment(t *testing.T, svc *Service, who *domain.Identity, postID string, parentID *string, status string) *domain.Comment {
	t.Helper()
	c, err := svc.CreateComment(context.Background(), who, CommentInput{
		PostID:   postID,
		Content:  "text by " + who.ID,
		ParentID: parentID,
		Status:   status,
	})
	require.NoError(t, err)
	return c
}

func TestCreateComment(t *testing.T) {
	svc, _, pub := newTestService(t, WithDefaultCommentStatus(domain.CommentPending))
	ctx := context.Background()
	post := mustCreatePost(t, svc, alice, "post")

	c, err := svc.CreateComment(ctx, bob, CommentInput{PostID: post.ID, Content: "  hello  "})
	require.NoError(t, err)
	assert.Equal(t, "hello", c.Content)
	assert.Equal(t, "bob", c.AuthorID)
	assert.Equal(t, domain.CommentPending, c.Status)
	assert.Nil(t, c.ParentID)

	empty := ""
	reply, err := svc.CreateComment(ctx, bob, CommentInput{PostID: post.ID, Content: "r", ParentID: &empty, Status: "approved"})
	require.NoError(t, err)
	assert.Nil(t, reply.ParentID)
	assert.Equal(t, domain.CommentApproved, reply.Status)

	for _, in := range []CommentInput{
		{Content: "no post"},
		{PostID: post.ID},
		{PostID: post.ID, Content: "   "},
		{PostID: post.ID, Content: strings.Repeat("a", 2001)},
		{PostID: post.ID, Content: "x", Status: "spam"},
		{PostID: "missing", Content: "x"},
	} {
		_, err := svc.CreateComment(ctx, bob, in)
		assert.True(t, domain.ErrInvalid.Is(err), "%+v", in)
	}

	_, err = svc.CreateComment(ctx, nil, CommentInput{PostID: post.ID, Content: "x"})
	assert.True(t, domain.ErrUnauthenticated.Is(err))

	assert.Equal(t, []events.Type{events.PostCreated, events.CommentCreated, events.CommentCreated}, pub.types())
}

func TestGetComment_TwoLevelsOfApprovedReplies(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	post := mustCreatePost(t, svc, alice, "post")

	root := mustComment(t, svc, alice, post.ID, nil, "")
	r1 := mustComment(t, svc, bob, post.ID, &root.ID, "")
	mustComment(t, svc, bob, post.ID, &root.ID, "REJECTED")
	r2 := mustComment(t, svc, alice, post.ID, &root.ID, "")
	r11 := mustComment(t, svc, alice, post.ID, &r1.ID, "")
	mustComment(t, svc, bob, post.ID, &r11.ID, "")

	got, err := svc.GetComment(ctx, root.ID)
	require.NoError(t, err)

	require.NotNil(t, got.Post)
	assert.Equal(t, &domain.PostSummary{ID: post.ID, Title: "post", Views: 0}, got.Post)

	require.Len(t, got.Replies, 2)
	assert.Equal(t, r1.ID, got.Replies[0].ID)
	assert.Equal(t, r2.ID, got.Replies[1].ID)

	require.Len(t, got.Replies[0].Replies, 1)
	assert.Equal(t, r11.ID, got.Replies[0].Replies[0].ID)
	assert.Nil(t, got.Replies[0].Replies[0].Replies)

	_, err = svc.GetComment(ctx, "missing")
	assert.True(t, domain.ErrNotFound.Is(err))
}

func TestCommentsByAuthor_ShowsOwnRegardlessOfStatus(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	post := mustCreatePost(t, svc, alice, "post")

	approved := mustComment(t, svc, bob, post.ID, nil, "")
	rejected := mustComment(t, svc, bob, post.ID, nil, "REJECTED")
	pending := mustComment(t, svc, bob, post.ID, nil, "PENDING")

	visible := mustComment(t, svc, alice, post.ID, &approved.ID, "")
	mustComment(t, svc, alice, post.ID, &approved.ID, "REJECTED")
	mustComment(t, svc, alice, post.ID, &approved.ID, "PENDING")
	deeper := mustComment(t, svc, bob, post.ID, &visible.ID, "")

	mine, err := svc.CommentsByAuthor(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, mine, 4)
	assert.Equal(t, deeper.ID, mine[0].ID)
	assert.Equal(t, pending.ID, mine[1].ID)
	assert.Equal(t, rejected.ID, mine[2].ID)
	assert.Equal(t, approved.ID, mine[3].ID)

	for _, c := range mine {
		require.NotNil(t, c.Post)
		assert.Equal(t, post.ID, c.Post.ID)
	}

	// один уровень, только одобренные ответы
	require.Len(t, mine[3].Replies, 1)
	assert.Equal(t, visible.ID, mine[3].Replies[0].ID)
	assert.Nil(t, mine[3].Replies[0].Replies)

	// в чужой выдаче отклонённые и ожидающие не видны
	theirs, err := svc.CommentsByAuthor(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, theirs, 3)

	got, err := svc.GetComment(ctx, approved.ID)
	require.NoError(t, err)
	require.Len(t, got.Replies, 1)
	assert.Equal(t, visible.ID, got.Replies[0].ID)

	_, err = svc.CommentsByAuthor(ctx, "")
	assert.True(t, domain.ErrInvalid.Is(err))
}

func TestUpdateComment(t *testing.T) {
	svc, _, pub := newTestService(t)
	ctx := context.Background()
	post := mustCreatePost(t, svc, alice, "post")
	c := mustComment(t, svc, bob, post.ID, nil, "PENDING")

	content := "edited"
	updated, err := svc.UpdateComment(ctx, bob, c.ID, CommentUpdate{Content: &content})
	require.NoError(t, err)
	assert.Equal(t, "edited", updated.Content)
	assert.Equal(t, domain.CommentPending, updated.Status)

	status := "rejected"
	updated, err = svc.UpdateComment(ctx, bob, c.ID, CommentUpdate{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, domain.CommentRejected, updated.Status)

	pending := "PENDING"
	_, err = svc.UpdateComment(ctx, bob, c.ID, CommentUpdate{Status: &pending})
	assert.True(t, domain.ErrInvalid.Is(err))

	_, err = svc.UpdateComment(ctx, bob, c.ID, CommentUpdate{})
	assert.True(t, domain.ErrInvalid.Is(err))

	_, err = svc.UpdateComment(ctx, alice, c.ID, CommentUpdate{Content: &content})
	assert.True(t, domain.ErrForbidden.Is(err))
	_, err = svc.UpdateComment(ctx, admin, c.ID, CommentUpdate{Content: &content})
	assert.True(t, domain.ErrForbidden.Is(err))

	_, err = svc.UpdateComment(ctx, bob, "missing", CommentUpdate{Content: &content})
	assert.True(t, domain.ErrNotFound.Is(err))

	assert.Equal(t, []events.Type{events.PostCreated, events.CommentCreated, events.CommentStatusChanged}, pub.types())
}

func TestDeleteComment_AuthorOnly(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	post := mustCreatePost(t, svc, alice, "post")
	c := mustComment(t, svc, bob, post.ID, nil, "")
	reply := mustComment(t, svc, alice, post.ID, &c.ID, "")

	err := svc.DeleteComment(ctx, admin, c.ID)
	require.Error(t, err)
	assert.True(t, domain.ErrForbidden.Is(err))
	msg, _ := domain.Message(err)
	assert.Equal(t, "Comment not found or unauthorized", msg)

	assert.True(t, domain.ErrForbidden.Is(svc.DeleteComment(ctx, alice, c.ID)))

	require.NoError(t, svc.DeleteComment(ctx, bob, c.ID))
	_, err = store.GetCommentByID(ctx, reply.ID)
	assert.True(t, domain.ErrNotFound.Is(err))

	assert.True(t, domain.ErrNotFound.Is(svc.DeleteComment(ctx, bob, c.ID)))
}

func TestModerateComment(t *testing.T) {
	svc, store, pub := newTestService(t)
	ctx := context.Background()
	post := mustCreatePost(t, svc, alice, "post")
	c := mustComment(t, svc, bob, post.ID, nil, "PENDING")

	moderated, changed, err := svc.ModerateComment(ctx, admin, c.ID, "approved")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, domain.CommentApproved, moderated.Status)

	before, err := store.GetCommentByID(ctx, c.ID)
	require.NoError(t, err)

	again, changed, err := svc.ModerateComment(ctx, admin, c.ID, "APPROVED")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, before.UpdatedAt, again.UpdatedAt)

	after, err := store.GetCommentByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, before.UpdatedAt, after.UpdatedAt)

	rejected, changed, err := svc.ModerateComment(ctx, admin, c.ID, "REJECTED")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, domain.CommentRejected, rejected.Status)

	_, _, err = svc.ModerateComment(ctx, admin, c.ID, "PENDING")
	assert.True(t, domain.ErrInvalid.Is(err))

	_, _, err = svc.ModerateComment(ctx, admin, "missing", "APPROVED")
	assert.True(t, domain.ErrNotFound.Is(err))

	assert.Equal(t, []events.Type{
		events.PostCreated, events.CommentCreated, events.CommentStatusChanged, events.CommentStatusChanged,
	}, pub.types())
}
