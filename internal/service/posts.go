package service

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/UkralStul/blog-service/internal/domain"
	"github.com/UkralStul/blog-service/internal/events"
	"github.com/UkralStul/blog-service/internal/query"
)

// fetchLimit - сколько постов читается, если лимит страницы не задан.
// Отличается от query.DefaultLimit, которым делится totalPages.
const fetchLimit = 10

const postDenied = "Unauthorized: only the author or an admin can modify this post"

// Pagination - метаданные страницы списка.
type Pagination struct {
	TotalCount int64 `json:"totalCount"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int64 `json:"totalPages"`
}

// PostPage - страница постов.
type PostPage struct {
	Data       []*domain.Post `json:"data"`
	Pagination Pagination     `json:"pagination"`
}

// AuthorPosts - посты автора и их сводка.
type AuthorPosts struct {
	Posts      []*domain.Post `json:"posts"`
	TotalPosts int            `json:"totalPosts"`
	TotalViews int64          `json:"totalViews"`
}

// PostInput - тело запроса на создание поста.
type PostInput struct {
	Title      string   `json:"title" valid:"required"`
	Content    string   `json:"content" valid:"required"`
	Tags       []string `json:"tags"`
	IsFeatured bool     `json:"isFeatured"`
	Status     string   `json:"status" valid:"post-status"`
}

// PostUpdate - тело запроса на изменение поста. nil - поле не меняется.
type PostUpdate struct {
	Title      *string   `json:"title"`
	Content    *string   `json:"content"`
	Tags       *[]string `json:"tags"`
	IsFeatured *bool     `json:"isFeatured"`
	Status     *string   `json:"status"`
}

// ListPosts возвращает страницу постов по фильтру. Количество и страница
// читаются независимыми запросами.
func (s *Service) ListPosts(ctx context.Context, filter query.PostFilter, page query.Page) (*PostPage, error) {
	pred := query.Build(filter)

	fetch := page
	if fetch.Limit == 0 {
		fetch.Limit = fetchLimit
	}

	var (
		posts []*domain.Post
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		posts, err = s.store.ListPosts(gctx, pred, fetch)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.store.CountPosts(gctx, pred)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &PostPage{
		Data: posts,
		Pagination: Pagination{
			TotalCount: total,
			Page:       page.Page,
			Limit:      page.Limit,
			TotalPages: page.TotalPages(total),
		},
	}, nil
}

// GetPost засчитывает просмотр и возвращает пост с деревом комментариев.
func (s *Service) GetPost(ctx context.Context, id string) (*domain.Post, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.E(domain.ErrInvalid, "Post ID is required")
	}
	return s.store.ViewPost(ctx, id)
}

// CreatePost создаёт пост от имени вызывающего. Флаг isFeatured учитывается только у админа.
func (s *Service) CreatePost(ctx context.Context, identity *domain.Identity, in PostInput) (*domain.Post, error) {
	if err := requireIdentity(identity); err != nil {
		return nil, err
	}
	if err := validate(&in); err != nil {
		return nil, err
	}

	post := &domain.Post{
		Title:    in.Title,
		Content:  in.Content,
		Tags:     cleanTags(in.Tags),
		Status:   domain.PostPublished,
		AuthorID: identity.ID,
	}
	if in.Status != "" {
		post.Status, _ = domain.ParsePostStatus(in.Status)
	}
	if identity.IsAdmin() {
		post.IsFeatured = in.IsFeatured
	}

	created, err := s.store.CreatePost(ctx, post)
	if err != nil {
		return nil, err
	}

	s.invalidateStats(ctx)
	s.publish(ctx, events.Event{
		Type:    events.PostCreated,
		ActorID: identity.ID,
		PostID:  created.ID,
		Post:    created,
	})

	return created, nil
}

// UpdatePost меняет пост. Разрешено автору и админу; не-админ не может менять isFeatured.
func (s *Service) UpdatePost(ctx context.Context, identity *domain.Identity, id string, in PostUpdate) (*domain.Post, error) {
	if err := requireIdentity(identity); err != nil {
		return nil, err
	}

	patch := domain.PostPatch{
		Title:      in.Title,
		Content:    in.Content,
		IsFeatured: in.IsFeatured,
	}
	if in.Tags != nil {
		tags := cleanTags(*in.Tags)
		patch.Tags = &tags
	}
	if in.Status != nil {
		st, ok := domain.ParsePostStatus(*in.Status)
		if !ok {
			return nil, domain.E(domain.ErrInvalid, "Invalid status. Must be DRAFT, PUBLISHED or ARCHIVED")
		}
		patch.Status = &st
	}

	post, err := s.store.GetPostByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(identity, post.AuthorID, true, postDenied); err != nil {
		return nil, err
	}

	if !identity.IsAdmin() {
		patch.IsFeatured = nil
	}
	if patch.Empty() {
		return post, nil
	}

	updated, err := s.store.UpdatePost(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.invalidateStats(ctx)

	return updated, nil
}

// DeletePost удаляет пост вместе с комментариями. Правило доступа как у UpdatePost.
func (s *Service) DeletePost(ctx context.Context, identity *domain.Identity, id string) error {
	if err := requireIdentity(identity); err != nil {
		return err
	}

	post, err := s.store.GetPostByID(ctx, id)
	if err != nil {
		return err
	}
	if err := authorize(identity, post.AuthorID, true, postDenied); err != nil {
		return err
	}

	if err := s.store.DeletePost(ctx, id); err != nil {
		return err
	}

	s.invalidateStats(ctx)
	s.publish(ctx, events.Event{
		Type:    events.PostDeleted,
		ActorID: identity.ID,
		PostID:  id,
	})

	return nil
}

// MyPosts возвращает посты вызывающего с числом комментариев и суммой просмотров.
func (s *Service) MyPosts(ctx context.Context, identity *domain.Identity) (*AuthorPosts, error) {
	if err := requireIdentity(identity); err != nil {
		return nil, err
	}

	posts, err := s.store.PostsByAuthor(ctx, identity.ID)
	if err != nil {
		return nil, err
	}

	result := &AuthorPosts{Posts: posts, TotalPosts: len(posts)}
	for _, p := range posts {
		result.TotalViews += p.Views
	}
	return result, nil
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
