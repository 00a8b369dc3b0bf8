package dataloader

import (
	"context"
	"net/http"
	"time"

	"github.com/graph-gophers/dataloader"

	"github.com/UkralStul/blog-service/internal/domain"
	"github.com/UkralStul/blog-service/internal/storage"
)

type contextKey string

const key = contextKey("dataloaders")

// Loaders содержит все дата-лоадеры приложения.
type Loaders struct {
	// RepliesByCommentID отдаёт одобренные ответы, старые первыми.
	RepliesByCommentID *dataloader.Loader
	PostSummaryByID    *dataloader.Loader
}

// New создает лоадеры поверх хранилища. Кэш живёт столько же, сколько Loaders.
func New(store storage.Storage) *Loaders {
	return &Loaders{
		RepliesByCommentID: dataloader.NewBatchedLoader(repliesBatch(store), dataloader.WithWait(time.Millisecond*1)),
		PostSummaryByID:    dataloader.NewBatchedLoader(summariesBatch(store), dataloader.WithWait(time.Millisecond*1)),
	}
}

// Middleware для внедрения лоадеров в контекст запроса.
func Middleware(store storage.Storage, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), key, New(store))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// For извлекает лоадеры из контекста. Вне запроса возвращает nil.
func For(ctx context.Context) *Loaders {
	loaders, _ := ctx.Value(key).(*Loaders)
	return loaders
}

// Replies загружает ответы для набора комментариев одним батчем.
func (l *Loaders) Replies(ctx context.Context, commentIDs []string) (map[string][]*domain.Comment, error) {
	result := make(map[string][]*domain.Comment, len(commentIDs))
	if len(commentIDs) == 0 {
		return result, nil
	}

	data, errs := l.RepliesByCommentID.LoadMany(ctx, dataloader.NewKeysFromStrings(commentIDs))()
	if err := firstError(errs); err != nil {
		return nil, err
	}
	for i, id := range commentIDs {
		replies, _ := data[i].([]*domain.Comment)
		result[id] = replies
	}
	return result, nil
}

// PostSummaries загружает краткие представления постов. Отсутствующих постов в карте нет.
func (l *Loaders) PostSummaries(ctx context.Context, postIDs []string) (map[string]*domain.PostSummary, error) {
	result := make(map[string]*domain.PostSummary, len(postIDs))
	if len(postIDs) == 0 {
		return result, nil
	}

	data, errs := l.PostSummaryByID.LoadMany(ctx, dataloader.NewKeysFromStrings(postIDs))()
	if err := firstError(errs); err != nil {
		return nil, err
	}
	for i, id := range postIDs {
		if summary, ok := data[i].(*domain.PostSummary); ok && summary != nil {
			result[id] = summary
		}
	}
	return result, nil
}

func repliesBatch(store storage.Storage) dataloader.BatchFunc {
	return func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		// Преобразуем ключи в []string
		parentIDs := keys.Keys()

		// Вызываем метод хранилища, который делает ОДИН запрос к БД
		commentsMap, err := store.GetCommentsByParentIDs(ctx, parentIDs, domain.CommentApproved)
		if err != nil {
			return failAll(len(keys), err)
		}

		// Формируем результат в том же порядке, что и ключи
		results := make([]*dataloader.Result, len(keys))
		for i, parentID := range parentIDs {
			replies := commentsMap[parentID]
			if replies == nil {
				replies = []*domain.Comment{}
			}
			results[i] = &dataloader.Result{Data: replies}
		}

		return results
	}
}

func summariesBatch(store storage.Storage) dataloader.BatchFunc {
	return func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		ids := keys.Keys()

		summaries, err := store.GetPostSummaries(ctx, ids)
		if err != nil {
			return failAll(len(keys), err)
		}

		results := make([]*dataloader.Result, len(keys))
		for i, id := range ids {
			results[i] = &dataloader.Result{Data: summaries[id]}
		}

		return results
	}
}

// failAll возвращает одну и ту же ошибку для всех ключей.
func failAll(n int, err error) []*dataloader.Result {
	results := make([]*dataloader.Result, n)
	for i := range results {
		results[i] = &dataloader.Result{Error: err}
	}
	return results
}

func firstError(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
