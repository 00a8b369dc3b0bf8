package storage

import (
	"context"

	"github.com/UkralStul/blog-service/internal/domain"
	"github.com/UkralStul/blog-service/internal/query"
)

// ThreadDepth - сколько уровней комментариев отдаётся вместе с постом.
const ThreadDepth = 3

// Storage определяет контракт для хранилищ.
type Storage interface {
	// Посты
	ListPosts(ctx context.Context, pred query.Predicate, page query.Page) ([]*domain.Post, error)
	CountPosts(ctx context.Context, pred query.Predicate) (int64, error)
	GetPostByID(ctx context.Context, id string) (*domain.Post, error)
	// ViewPost атомарно увеличивает счётчик просмотров и читает пост
	// с деревом одобренных комментариев и общим числом комментариев.
	ViewPost(ctx context.Context, id string) (*domain.Post, error)
	CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error)
	UpdatePost(ctx context.Context, id string, patch domain.PostPatch) (*domain.Post, error)
	DeletePost(ctx context.Context, id string) error
	// PostsByAuthor возвращает посты автора, новые первыми, с заполненным CommentCount.
	PostsByAuthor(ctx context.Context, authorID string) ([]*domain.Post, error)

	// Комментарии
	CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error)
	GetCommentByID(ctx context.Context, id string) (*domain.Comment, error)
	CommentsByAuthor(ctx context.Context, authorID string) ([]*domain.Comment, error)
	UpdateComment(ctx context.Context, id string, patch domain.CommentPatch) (*domain.Comment, error)
	DeleteComment(ctx context.Context, id string) error

	// Методы для Dataloader'ов
	GetCommentsByParentIDs(ctx context.Context, parentIDs []string, status domain.CommentStatus) (map[string][]*domain.Comment, error)
	GetPostSummaries(ctx context.Context, ids []string) (map[string]*domain.PostSummary, error)

	// Пользователи
	EnsureUser(ctx context.Context, user *domain.User) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)

	Stats(ctx context.Context) (*domain.Stats, error)
}
