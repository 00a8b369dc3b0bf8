package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCommentStatus(t *testing.T) {
	st, ok := ParseCommentStatus(" approved ")
	assert.True(t, ok)
	assert.Equal(t, CommentApproved, st)

	st, ok = ParseCommentStatus("Pending")
	assert.True(t, ok)
	assert.Equal(t, CommentPending, st)

	_, ok = ParseCommentStatus("spam")
	assert.False(t, ok)
}

func TestParseModerationStatus(t *testing.T) {
	st, ok := ParseModerationStatus("rejected")
	assert.True(t, ok)
	assert.Equal(t, CommentRejected, st)

	_, ok = ParseModerationStatus("PENDING")
	assert.False(t, ok)

	_, ok = ParseModerationStatus("")
	assert.False(t, ok)
}

func TestParsePostStatusAndRole(t *testing.T) {
	st, ok := ParsePostStatus("archived")
	assert.True(t, ok)
	assert.Equal(t, PostArchived, st)

	_, ok = ParsePostStatus("deleted")
	assert.False(t, ok)

	r, ok := ParseRole("admin")
	assert.True(t, ok)
	assert.Equal(t, RoleAdmin, r)

	_, ok = ParseRole("root")
	assert.False(t, ok)
}

func TestIdentity(t *testing.T) {
	var nobody *Identity
	assert.False(t, nobody.IsAdmin())
	assert.False(t, nobody.Owns("user-1"))
	assert.False(t, nobody.HasRole())

	user := &Identity{ID: "user-1", Role: RoleUser}
	assert.True(t, user.Owns("user-1"))
	assert.False(t, user.Owns("user-2"))
	assert.True(t, user.HasRole())
	assert.True(t, user.HasRole(RoleUser, RoleAdmin))
	assert.False(t, user.HasRole(RoleAdmin))

	anon := &Identity{}
	assert.False(t, anon.Owns(""))
}

func TestPostPatch(t *testing.T) {
	assert.True(t, PostPatch{}.Empty())

	title := "new"
	featured := true
	tags := []string{"go"}
	patch := PostPatch{Title: &title, IsFeatured: &featured, Tags: &tags}
	assert.False(t, patch.Empty())

	post := &Post{Title: "old", Content: "body"}
	patch.Apply(post)
	assert.Equal(t, "new", post.Title)
	assert.Equal(t, "body", post.Content)
	assert.True(t, post.IsFeatured)
	assert.Equal(t, []string{"go"}, []string(post.Tags))
}

func TestKindErrors(t *testing.T) {
	err := E(ErrNotFound, "post %s not found", "p1")
	assert.True(t, ErrNotFound.Is(err))
	assert.False(t, ErrForbidden.Is(err))

	msg, ok := Message(err)
	assert.True(t, ok)
	assert.Equal(t, "post p1 not found", msg)

	_, ok = Message(ErrConflict.Wrap())
	assert.False(t, ok)
}
