// Package events описывает доменные события и способы их доставки.
package events

import (
	"context"
	"errors"
	"time"

	"github.com/UkralStul/blog-service/internal/domain"
)

// Type - ключ маршрутизации события.
type Type string

const (
	CommentCreated       Type = "comment.created"
	CommentStatusChanged Type = "comment.status_changed"
	PostCreated          Type = "post.created"
	PostDeleted          Type = "post.deleted"
)

// Event - то, что уходит подписчикам.
type Event struct {
	Type       Type            `json:"type"`
	OccurredAt time.Time       `json:"occurredAt"`
	ActorID    string          `json:"actorId,omitempty"`
	PostID     string          `json:"postId"`
	Post       *domain.Post    `json:"post,omitempty"`
	Comment    *domain.Comment `json:"comment,omitempty"`
}

// Publisher доставляет события.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Noop отбрасывает события.
type Noop struct{}

// Publish implements Publisher.
func (Noop) Publish(context.Context, Event) error {
	return nil
}

// Fanout рассылает событие всем получателям и собирает их ошибки.
type Fanout []Publisher

// Publish implements Publisher.
func (f Fanout) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
