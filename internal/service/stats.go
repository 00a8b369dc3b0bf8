package service

import (
	"context"

	"github.com/UkralStul/blog-service/internal/domain"
)

// Stats возвращает сводные счётчики. При наличии кэша сначала смотрит в него;
// недоступный кэш не мешает посчитать статистику заново.
func (s *Service) Stats(ctx context.Context) (*domain.Stats, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx)
		if err != nil {
			s.log.WithError(err).Warn("stats cache read failed")
		} else if cached != nil {
			return cached, nil
		}
	}

	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, stats); err != nil {
			s.log.WithError(err).Warn("stats cache write failed")
		}
	}

	return stats, nil
}
