package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UkralStul/blog-service/internal/domain"
	"github.com/UkralStul/blog-service/internal/events"
	"github.com/UkralStul/blog-service/internal/query"
)

func TestListPosts_TagsStatusPage(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		mustCreatePost(t, svc, alice, "both", "go", "rust")
	}
	mustCreatePost(t, svc, alice, "only go", "go")
	_, err := svc.CreatePost(ctx, alice, PostInput{Title: "draft", Content: "c", Tags: []string{"go", "rust"}, Status: "DRAFT"})
	require.NoError(t, err)

	status := domain.PostPublished
	filter := query.PostFilter{Tags: query.ParseTags("go,rust"), Status: &status}
	page := query.Paginate(query.Options{Page: "2", Limit: "5"})

	result, err := svc.ListPosts(ctx, filter, page)
	require.NoError(t, err)
	assert.Len(t, result.Data, 5)
	assert.Equal(t, Pagination{TotalCount: 12, Page: 2, Limit: 5, TotalPages: 3}, result.Pagination)
	for _, p := range result.Data {
		assert.Equal(t, "both", p.Title)
		assert.Equal(t, domain.PostPublished, p.Status)
	}

	last, err := svc.ListPosts(ctx, filter, query.Paginate(query.Options{Page: "3", Limit: "5"}))
	require.NoError(t, err)
	assert.Len(t, last.Data, 2)
}

func TestListPosts_ZeroLimitFetchesTen(t *testing.T) {
	svc, _, _ := newTestService(t)

	for i := 0; i < 12; i++ {
		mustCreatePost(t, svc, alice, "p")
	}

	result, err := svc.ListPosts(context.Background(), query.PostFilter{}, query.Page{Page: 1, SortBy: query.SortCreatedAt, Desc: true})
	require.NoError(t, err)
	assert.Len(t, result.Data, 10)
	assert.Equal(t, 0, result.Pagination.Limit)
	assert.Equal(t, int64(6), result.Pagination.TotalPages)
}

func TestGetPost_IncrementsViewsOncePerCall(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	post := mustCreatePost(t, svc, alice, "viewed")

	for i := 1; i <= 3; i++ {
		got, err := svc.GetPost(ctx, post.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(i), got.Views)
		require.NotNil(t, got.CommentCount)
	}

	_, err := svc.GetPost(ctx, "missing")
	assert.True(t, domain.ErrNotFound.Is(err))

	_, err = svc.GetPost(ctx, " ")
	assert.True(t, domain.ErrInvalid.Is(err))
}

func TestCreatePost(t *testing.T) {
	svc, _, pub := newTestService(t)
	ctx := context.Background()

	post, err := svc.CreatePost(ctx, alice, PostInput{Title: "t", Content: "c", Tags: []string{" go ", "", "go"}, IsFeatured: true})
	require.NoError(t, err)
	assert.Equal(t, "alice", post.AuthorID)
	assert.False(t, post.IsFeatured)
	assert.Equal(t, domain.PostPublished, post.Status)
	assert.Equal(t, []string{"go"}, []string(post.Tags))

	featured, err := svc.CreatePost(ctx, admin, PostInput{Title: "t", Content: "c", IsFeatured: true, Status: "draft"})
	require.NoError(t, err)
	assert.True(t, featured.IsFeatured)
	assert.Equal(t, domain.PostDraft, featured.Status)

	_, err = svc.CreatePost(ctx, alice, PostInput{Title: "t", Content: "c", Status: "deleted"})
	assert.True(t, domain.ErrInvalid.Is(err))

	_, err = svc.CreatePost(ctx, alice, PostInput{Content: "c"})
	assert.True(t, domain.ErrInvalid.Is(err))

	_, err = svc.CreatePost(ctx, nil, PostInput{Title: "t", Content: "c"})
	assert.True(t, domain.ErrUnauthenticated.Is(err))

	assert.Equal(t, []events.Type{events.PostCreated, events.PostCreated}, pub.types())
}

func TestUpdatePost_NonAdminCannotFeature(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	post := mustCreatePost(t, svc, alice, "original")

	title := "renamed"
	featured := true
	updated, err := svc.UpdatePost(ctx, alice, post.ID, PostUpdate{Title: &title, IsFeatured: &featured})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Title)
	assert.False(t, updated.IsFeatured)

	stored, err := store.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", stored.Title)
	assert.False(t, stored.IsFeatured)

	// только isFeatured - ничего не меняется
	same, err := svc.UpdatePost(ctx, alice, post.ID, PostUpdate{IsFeatured: &featured})
	require.NoError(t, err)
	assert.False(t, same.IsFeatured)
	assert.Equal(t, stored.UpdatedAt, same.UpdatedAt)
}

func TestUpdatePost_Access(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	post := mustCreatePost(t, svc, alice, "original")

	title := "hijacked"
	_, err := svc.UpdatePost(ctx, bob, post.ID, PostUpdate{Title: &title})
	require.Error(t, err)
	assert.True(t, domain.ErrForbidden.Is(err))

	_, err = svc.UpdatePost(ctx, bob, "missing", PostUpdate{Title: &title})
	assert.True(t, domain.ErrNotFound.Is(err))

	_, err = svc.UpdatePost(ctx, nil, post.ID, PostUpdate{Title: &title})
	assert.True(t, domain.ErrUnauthenticated.Is(err))

	bad := "gone"
	_, err = svc.UpdatePost(ctx, alice, post.ID, PostUpdate{Status: &bad})
	assert.True(t, domain.ErrInvalid.Is(err))

	featured := true
	archived := "archived"
	updated, err := svc.UpdatePost(ctx, admin, post.ID, PostUpdate{IsFeatured: &featured, Status: &archived})
	require.NoError(t, err)
	assert.True(t, updated.IsFeatured)
	assert.Equal(t, domain.PostArchived, updated.Status)
	assert.Equal(t, "original", updated.Title)
}

func TestDeletePost(t *testing.T) {
	svc, _, pub := newTestService(t)
	ctx := context.Background()
	post := mustCreatePost(t, svc, alice, "mine")
	other := mustCreatePost(t, svc, alice, "also mine")

	err := svc.DeletePost(ctx, bob, post.ID)
	assert.True(t, domain.ErrForbidden.Is(err))

	require.NoError(t, svc.DeletePost(ctx, alice, post.ID))
	require.NoError(t, svc.DeletePost(ctx, admin, other.ID))

	err = svc.DeletePost(ctx, alice, post.ID)
	assert.True(t, domain.ErrNotFound.Is(err))

	assert.Equal(t, []events.Type{
		events.PostCreated, events.PostCreated, events.PostDeleted, events.PostDeleted,
	}, pub.types())
}

func TestMyPosts(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	first := mustCreatePost(t, svc, alice, "first")
	second := mustCreatePost(t, svc, alice, "second")
	mustCreatePost(t, svc, bob, "foreign")

	_, err := svc.GetPost(ctx, first.ID)
	require.NoError(t, err)
	_, err = svc.GetPost(ctx, first.ID)
	require.NoError(t, err)
	_, err = svc.CreateComment(ctx, bob, CommentInput{PostID: first.ID, Content: "hi"})
	require.NoError(t, err)

	mine, err := svc.MyPosts(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 2, mine.TotalPosts)
	assert.Equal(t, int64(2), mine.TotalViews)
	require.Len(t, mine.Posts, 2)
	assert.Equal(t, second.ID, mine.Posts[0].ID)
	assert.Equal(t, int64(1), *mine.Posts[1].CommentCount)

	_, err = svc.MyPosts(ctx, nil)
	assert.True(t, domain.ErrUnauthenticated.Is(err))
}
