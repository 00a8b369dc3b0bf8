package postgres

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/UkralStul/blog-service/internal/domain"
	"github.com/UkralStul/blog-service/internal/query"
)

// newDryRunStore собирает SQL без подключения к базе.
func newDryRunStore(t *testing.T) *Store {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=localhost user=blog dbname=blog sslmode=disable",
	}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)
	return &Store{db: db}
}

func TestListQuery_FiltersAndPage(t *testing.T) {
	store := newDryRunStore(t)

	status := domain.PostPublished
	pred := query.Build(query.PostFilter{
		Tags:   []string{"go", "rust"},
		Status: &status,
	})
	page := query.Paginate(query.Options{Page: "2", Limit: "5"})

	sql := store.db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		var posts []*domain.Post
		return store.listQuery(tx, pred, page).Find(&posts)
	})

	assert.Contains(t, sql, `SELECT * FROM "posts"`)
	assert.Contains(t, sql, `(tags @> `)
	assert.Contains(t, sql, `AND (status = 'PUBLISHED')`)
	assert.Contains(t, sql, `ORDER BY "created_at" DESC`)
	assert.Contains(t, sql, `LIMIT 5 OFFSET 5`)
}

func TestListQuery_Search(t *testing.T) {
	store := newDryRunStore(t)

	pred := query.Build(query.PostFilter{Search: "50%_off"})
	page := query.Paginate(query.Options{SortBy: "views", SortOrder: "asc"})

	sql := store.db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		var posts []*domain.Post
		return store.listQuery(tx, pred, page).Find(&posts)
	})

	assert.Contains(t, sql, `(title ILIKE '%50\%\_off%' OR content ILIKE '%50\%\_off%' OR '50%_off' = ANY(tags))`)
	assert.Contains(t, sql, `ORDER BY "views"`)
	assert.NotContains(t, sql, `"views" DESC`)
	assert.Contains(t, sql, `LIMIT 2`)
	assert.NotContains(t, sql, `OFFSET`)
}

func TestListQuery_NoFilter(t *testing.T) {
	store := newDryRunStore(t)

	sql := store.db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		var posts []*domain.Post
		return store.listQuery(tx, nil, query.Paginate(query.Options{SortBy: "unknown"})).Find(&posts)
	})

	assert.NotContains(t, sql, "WHERE")
	assert.Contains(t, sql, `ORDER BY "created_at" DESC`)
}

func TestApplyPredicate_Equality(t *testing.T) {
	store := newDryRunStore(t)

	featured := true
	pred := query.Build(query.PostFilter{IsFeatured: &featured, AuthorID: "user-1"})

	sql := store.db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		var total int64
		return applyPredicate(tx.Model(&domain.Post{}), pred).Count(&total)
	})

	assert.Contains(t, sql, `SELECT count(*) FROM "posts"`)
	assert.Contains(t, sql, `(is_featured = true)`)
	assert.Contains(t, sql, `(author_id = 'user-1')`)
}

func TestInvalidIDsAreNotFound(t *testing.T) {
	store := newDryRunStore(t)
	ctx := context.Background()

	_, err := store.GetPostByID(ctx, "not-a-uuid")
	assert.True(t, domain.ErrNotFound.Is(err))

	_, err = store.ViewPost(ctx, "not-a-uuid")
	assert.True(t, domain.ErrNotFound.Is(err))

	assert.True(t, domain.ErrNotFound.Is(store.DeleteComment(ctx, "1")))

	_, err = store.CreateComment(ctx, &domain.Comment{PostID: "nope", Content: "x"})
	assert.True(t, domain.ErrInvalid.Is(err))

	replies, err := store.GetCommentsByParentIDs(ctx, []string{"bad"}, domain.CommentApproved)
	require.NoError(t, err)
	assert.Empty(t, replies)
}

func TestTranslate(t *testing.T) {
	assert.Nil(t, translate(nil, "x"))

	err := translate(gorm.ErrRecordNotFound, "Post not found")
	assert.True(t, domain.ErrNotFound.Is(err))
	msg, ok := domain.Message(err)
	assert.True(t, ok)
	assert.Equal(t, "Post not found", msg)

	assert.True(t, domain.ErrConflict.Is(translate(gorm.ErrDuplicatedKey, "x")))
	assert.True(t, domain.ErrInvalid.Is(translate(gorm.ErrForeignKeyViolated, "x")))
	assert.True(t, domain.ErrUnavailable.Is(translate(context.DeadlineExceeded, "x")))
	assert.True(t, domain.ErrUnavailable.Is(translate(driver.ErrBadConn, "x")))
	dialErr := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	assert.True(t, domain.ErrUnavailable.Is(translate(fmt.Errorf("failed to connect: %w", dialErr), "x")))

	kind := domain.E(domain.ErrForbidden, "nope")
	assert.True(t, domain.ErrForbidden.Is(translate(kind, "x")))

	other := translate(errors.New("boom"), "x")
	assert.Error(t, other)
	_, ok = domain.Message(other)
	assert.False(t, ok)
}
