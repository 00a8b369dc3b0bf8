// Package service реализует правила работы с постами, комментариями и статистикой
// поверх интерфейса хранилища.
package service

import (
	"context"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/sirupsen/logrus"

	"github.com/UkralStul/blog-service/internal/dataloader"
	"github.com/UkralStul/blog-service/internal/domain"
	"github.com/UkralStul/blog-service/internal/events"
	"github.com/UkralStul/blog-service/internal/storage"
)

func init() {
	govalidator.CustomTypeTagMap.Set("post-status", func(i interface{}, o interface{}) bool {
		if s, ok := i.(string); ok {
			_, valid := domain.ParsePostStatus(s)
			return valid
		}
		panic("service: unsupported field for post-status validator")
	})

	govalidator.CustomTypeTagMap.Set("comment-status", func(i interface{}, o interface{}) bool {
		if s, ok := i.(string); ok {
			_, valid := domain.ParseCommentStatus(s)
			return valid
		}
		panic("service: unsupported field for comment-status validator")
	})
}

// StatsCache хранит последнюю посчитанную статистику. Промах - (nil, nil).
type StatsCache interface {
	Get(ctx context.Context) (*domain.Stats, error)
	Set(ctx context.Context, stats *domain.Stats) error
	Invalidate(ctx context.Context) error
}

// Service объединяет все операции блога.
type Service struct {
	store                storage.Storage
	publisher            events.Publisher
	cache                StatsCache
	log                  logrus.FieldLogger
	defaultCommentStatus domain.CommentStatus
	now                  func() time.Time
}

// Option настраивает Service.
type Option func(*Service)

// WithPublisher задаёт получателя доменных событий.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

// WithStatsCache включает кэширование статистики.
func WithStatsCache(c StatsCache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// WithLogger задаёт логгер.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Service) {
		s.log = l
	}
}

// WithDefaultCommentStatus задаёт статус новых комментариев без явного статуса.
func WithDefaultCommentStatus(st domain.CommentStatus) Option {
	return func(s *Service) {
		s.defaultCommentStatus = st
	}
}

// New создает сервис.
func New(store storage.Storage, opts ...Option) *Service {
	s := &Service{
		store:                store,
		publisher:            events.Noop{},
		log:                  logrus.StandardLogger(),
		defaultCommentStatus: domain.CommentApproved,
		now:                  func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store возвращает хранилище сервиса.
func (s *Service) Store() storage.Storage {
	return s.store
}

// authorize - единая проверка прав на изменение ресурса: владелец,
// либо админ, если adminOverride разрешён.
func authorize(identity *domain.Identity, ownerID string, adminOverride bool, denied string) error {
	if identity == nil || identity.ID == "" {
		return domain.E(domain.ErrUnauthenticated, "Unauthorized")
	}
	if identity.Owns(ownerID) {
		return nil
	}
	if adminOverride && identity.IsAdmin() {
		return nil
	}
	return domain.E(domain.ErrForbidden, "%s", denied)
}

func requireIdentity(identity *domain.Identity) error {
	if identity == nil || identity.ID == "" {
		return domain.E(domain.ErrUnauthenticated, "Unauthorized")
	}
	return nil
}

func validate(v interface{}) error {
	ok, err := govalidator.ValidateStruct(v)
	if err != nil {
		return domain.E(domain.ErrInvalid, "%s", err.Error())
	}
	if !ok {
		return domain.E(domain.ErrInvalid, "validation failed")
	}
	return nil
}

func (s *Service) loaders(ctx context.Context) *dataloader.Loaders {
	if l := dataloader.For(ctx); l != nil {
		return l
	}
	return dataloader.New(s.store)
}

// publish отправляет событие. Ошибка доставки не ломает операцию, она только логируется.
func (s *Service) publish(ctx context.Context, event events.Event) {
	event.OccurredAt = s.now()
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.WithError(err).WithField("event", event.Type).Warn("failed to publish event")
	}
}

// invalidateStats сбрасывает кэш статистики после изменения постов или комментариев.
func (s *Service) invalidateStats(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.WithError(err).Warn("stats cache invalidation failed")
	}
}

func actorID(identity *domain.Identity) string {
	if identity == nil {
		return ""
	}
	return identity.ID
}
