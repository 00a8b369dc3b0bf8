package service

import (
	"context"
	"strings"

	"github.com/UkralStul/blog-service/internal/dataloader"
	"github.com/UkralStul/blog-service/internal/domain"
	"github.com/UkralStul/blog-service/internal/events"
)

// Глубина ответов в выдаче одного комментария и в выдаче по автору.
const (
	commentReplyDepth = 2
	authorReplyDepth  = 1
)

const commentDenied = "Comment not found or unauthorized"

// CommentInput - тело запроса на создание комментария.
type CommentInput struct {
	PostID   string  `json:"postId" valid:"required"`
	Content  string  `json:"content" valid:"required,runelength(1|2000)"`
	ParentID *string `json:"parentId"`
	Status   string  `json:"status" valid:"comment-status"`
}

// CommentUpdate - тело запроса на изменение комментария автором.
type CommentUpdate struct {
	Content *string `json:"content"`
	Status  *string `json:"status"`
}

// CreateComment добавляет комментарий. Принадлежность родителя тому же посту не проверяется.
func (s *Service) CreateComment(ctx context.Context, identity *domain.Identity, in CommentInput) (*domain.Comment, error) {
	if err := requireIdentity(identity); err != nil {
		return nil, err
	}

	in.PostID = strings.TrimSpace(in.PostID)
	in.Content = strings.TrimSpace(in.Content)
	if err := validate(&in); err != nil {
		return nil, err
	}

	comment := &domain.Comment{
		PostID:   in.PostID,
		AuthorID: identity.ID,
		Content:  in.Content,
		Status:   s.defaultCommentStatus,
	}
	if in.ParentID != nil && *in.ParentID != "" {
		parent := *in.ParentID
		comment.ParentID = &parent
	}
	if in.Status != "" {
		comment.Status, _ = domain.ParseCommentStatus(in.Status)
	}

	created, err := s.store.CreateComment(ctx, comment)
	if err != nil {
		return nil, err
	}

	s.invalidateStats(ctx)
	s.publish(ctx, events.Event{
		Type:    events.CommentCreated,
		ActorID: identity.ID,
		PostID:  created.PostID,
		Comment: created,
	})

	return created, nil
}

// GetComment возвращает комментарий с кратким описанием поста и двумя уровнями одобренных ответов.
func (s *Service) GetComment(ctx context.Context, id string) (*domain.Comment, error) {
	comment, err := s.store.GetCommentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.annotate(ctx, []*domain.Comment{comment}, commentReplyDepth); err != nil {
		return nil, err
	}
	return comment, nil
}

// CommentsByAuthor возвращает все комментарии автора независимо от статуса,
// новые первыми, с одним уровнем одобренных ответов.
func (s *Service) CommentsByAuthor(ctx context.Context, authorID string) ([]*domain.Comment, error) {
	if strings.TrimSpace(authorID) == "" {
		return nil, domain.E(domain.ErrInvalid, "Author ID is required")
	}

	comments, err := s.store.CommentsByAuthor(ctx, authorID)
	if err != nil {
		return nil, err
	}

	if err := s.annotate(ctx, comments, authorReplyDepth); err != nil {
		return nil, err
	}
	return comments, nil
}

// UpdateComment меняет текст и/или статус. Только автор.
func (s *Service) UpdateComment(ctx context.Context, identity *domain.Identity, id string, in CommentUpdate) (*domain.Comment, error) {
	if err := requireIdentity(identity); err != nil {
		return nil, err
	}
	if in.Content == nil && in.Status == nil {
		return nil, domain.E(domain.ErrInvalid, "At least one field (content or status) must be provided")
	}

	var patch domain.CommentPatch
	if in.Content != nil {
		content := strings.TrimSpace(*in.Content)
		if content == "" {
			return nil, domain.E(domain.ErrInvalid, "Content cannot be empty")
		}
		patch.Content = &content
	}
	if in.Status != nil {
		st, ok := domain.ParseModerationStatus(*in.Status)
		if !ok {
			return nil, domain.E(domain.ErrInvalid, "Invalid status. Must be APPROVED or REJECTED")
		}
		patch.Status = &st
	}

	comment, err := s.store.GetCommentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(identity, comment.AuthorID, false, commentDenied); err != nil {
		return nil, err
	}

	updated, err := s.store.UpdateComment(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	if updated.Status != comment.Status {
		s.invalidateStats(ctx)
		s.publish(ctx, events.Event{
			Type:    events.CommentStatusChanged,
			ActorID: identity.ID,
			PostID:  updated.PostID,
			Comment: updated,
		})
	}

	return updated, nil
}

// DeleteComment удаляет комментарий вместе с ответами. Только автор, без исключения для админа.
func (s *Service) DeleteComment(ctx context.Context, identity *domain.Identity, id string) error {
	if err := requireIdentity(identity); err != nil {
		return err
	}

	comment, err := s.store.GetCommentByID(ctx, id)
	if err != nil {
		return err
	}
	if err := authorize(identity, comment.AuthorID, false, commentDenied); err != nil {
		return err
	}

	if err := s.store.DeleteComment(ctx, id); err != nil {
		return err
	}
	s.invalidateStats(ctx)

	return nil
}

// ModerateComment переводит комментарий в APPROVED или REJECTED. Если статус уже такой,
// запись не меняется и changed == false.
func (s *Service) ModerateComment(ctx context.Context, identity *domain.Identity, id string, status string) (comment *domain.Comment, changed bool, err error) {
	st, ok := domain.ParseModerationStatus(status)
	if !ok {
		return nil, false, domain.E(domain.ErrInvalid, "Invalid status. Must be APPROVED or REJECTED")
	}

	comment, err = s.store.GetCommentByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if comment.Status == st {
		return comment, false, nil
	}

	comment, err = s.store.UpdateComment(ctx, id, domain.CommentPatch{Status: &st})
	if err != nil {
		return nil, false, err
	}

	s.invalidateStats(ctx)
	s.publish(ctx, events.Event{
		Type:    events.CommentStatusChanged,
		ActorID: actorID(identity),
		PostID:  comment.PostID,
		Comment: comment,
	})

	return comment, true, nil
}

// annotate заполняет краткое описание поста и одобренные ответы на depth уровней.
// Каждый уровень - один батч через лоадеры запроса.
func (s *Service) annotate(ctx context.Context, comments []*domain.Comment, depth int) error {
	loaders := s.loaders(ctx)

	postIDs := make([]string, 0, len(comments))
	for _, c := range comments {
		postIDs = append(postIDs, c.PostID)
	}
	summaries, err := loaders.PostSummaries(ctx, postIDs)
	if err != nil {
		return err
	}
	for _, c := range comments {
		c.Post = summaries[c.PostID]
	}

	return attachReplies(ctx, loaders, comments, depth)
}

func attachReplies(ctx context.Context, loaders *dataloader.Loaders, level []*domain.Comment, depth int) error {
	for d := 0; d < depth && len(level) > 0; d++ {
		ids := make([]string, len(level))
		for i, c := range level {
			ids[i] = c.ID
		}

		replies, err := loaders.Replies(ctx, ids)
		if err != nil {
			return err
		}

		var next []*domain.Comment
		for _, c := range level {
			c.Replies = replies[c.ID]
			next = append(next, c.Replies...)
		}
		level = next
	}
	return nil
}
