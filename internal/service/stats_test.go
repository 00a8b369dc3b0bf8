package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UkralStul/blog-service/internal/domain"
)

type fakeCache struct {
	stored        *domain.Stats
	err           error
	gets          int
	sets          int
	invalidations int
}

func (c *fakeCache) Get(context.Context) (*domain.Stats, error) {
	c.gets++
	if c.err != nil {
		return nil, c.err
	}
	return c.stored, nil
}

func (c *fakeCache) Set(_ context.Context, stats *domain.Stats) error {
	c.sets++
	if c.err != nil {
		return c.err
	}
	c.stored = stats
	return nil
}

func (c *fakeCache) Invalidate(context.Context) error {
	c.invalidations++
	if c.err != nil {
		return c.err
	}
	c.stored = nil
	return nil
}

func TestStats_ReadThroughCache(t *testing.T) {
	cache := &fakeCache{}
	svc, _, _ := newTestService(t, WithStatsCache(cache))
	ctx := context.Background()

	post := mustCreatePost(t, svc, alice, "p")
	mustComment(t, svc, bob, post.ID, nil, "")

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalPosts)
	assert.Equal(t, int64(1), stats.ApprovedComments)
	assert.Equal(t, 1, cache.sets)

	// попадание в кэш
	cached, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, stats, cached)
	assert.Equal(t, 2, cache.gets)
	assert.Equal(t, 1, cache.sets)

	// изменение постов сбрасывает кэш
	mustCreatePost(t, svc, alice, "p2")
	fresh, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), fresh.TotalPosts)
	assert.Equal(t, 2, cache.sets)
}

func TestStats_MutationsInvalidateCache(t *testing.T) {
	cache := &fakeCache{}
	svc, _, _ := newTestService(t, WithStatsCache(cache))
	ctx := context.Background()

	post := mustCreatePost(t, svc, alice, "p")
	assert.Equal(t, 1, cache.invalidations)

	title := "renamed"
	_, err := svc.UpdatePost(ctx, alice, post.ID, PostUpdate{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, 2, cache.invalidations)

	comment := mustComment(t, svc, bob, post.ID, nil, "PENDING")
	assert.Equal(t, 3, cache.invalidations)

	_, changed, err := svc.ModerateComment(ctx, admin, comment.ID, "APPROVED")
	require.NoError(t, err)
	require.True(t, changed)
	assert.Equal(t, 4, cache.invalidations)

	// повторная модерация ничего не меняет
	_, changed, err = svc.ModerateComment(ctx, admin, comment.ID, "APPROVED")
	require.NoError(t, err)
	require.False(t, changed)
	assert.Equal(t, 4, cache.invalidations)

	require.NoError(t, svc.DeleteComment(ctx, bob, comment.ID))
	assert.Equal(t, 5, cache.invalidations)

	require.NoError(t, svc.DeletePost(ctx, alice, post.ID))
	assert.Equal(t, 6, cache.invalidations)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &domain.Stats{}, stats)
}

func TestStats_BrokenCacheFallsBack(t *testing.T) {
	cache := &fakeCache{err: errors.New("redis down")}
	svc, store, _ := newTestService(t, WithStatsCache(cache))
	ctx := context.Background()

	mustCreatePost(t, svc, alice, "p")
	_, err := store.EnsureUser(ctx, admin.User())
	require.NoError(t, err)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &domain.Stats{TotalPosts: 1, TotalUsers: 1, TotalAdmins: 1}, stats)
	assert.Equal(t, 1, cache.sets)
}

func TestStats_WithoutCache(t *testing.T) {
	svc, _, _ := newTestService(t)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &domain.Stats{}, stats)
}
