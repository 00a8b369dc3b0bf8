package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/UkralStul/blog-service/internal/cache"
	"github.com/UkralStul/blog-service/internal/config"
	"github.com/UkralStul/blog-service/internal/domain"
	"github.com/UkralStul/blog-service/internal/events"
	"github.com/UkralStul/blog-service/internal/httpapi"
	"github.com/UkralStul/blog-service/internal/live"
	"github.com/UkralStul/blog-service/internal/service"
	"github.com/UkralStul/blog-service/internal/storage"
	"github.com/UkralStul/blog-service/internal/storage/inmemory"
	"github.com/UkralStul/blog-service/internal/storage/postgres"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load(os.Args[1:], os.Getenv)
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	log := cfg.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store storage.Storage

	log.Infof("Starting server with %s storage", cfg.Storage)
	if cfg.Storage == config.StoragePostgres {
		pg, err := postgres.New(cfg.DatabaseURL, log)
		if err != nil {
			log.WithError(err).Fatal("failed to connect to postgres")
		}
		defer pg.Close()
		store = pg
	} else {
		store = inmemory.New()
		if cfg.SeedData {
			// Заполним данными для тестов
			fillWithMockData(ctx, store, log)
		}
	}

	hub := live.NewHub()
	publishers := events.Fanout{hub}

	if cfg.RabbitMQURL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.RabbitMQURL, cfg.RabbitMQExchange)
		if err != nil {
			log.WithError(err).Fatal("failed to connect to rabbitmq")
		}
		defer amqpPublisher.Close()
		publishers = append(publishers, amqpPublisher)
		log.WithField("exchange", cfg.RabbitMQExchange).Info("publishing events to rabbitmq")
	}

	opts := []service.Option{
		service.WithPublisher(publishers),
		service.WithLogger(log),
		service.WithDefaultCommentStatus(cfg.CommentDefaultStatus),
	}

	if cfg.RedisAddr != "" {
		statsCache, err := cache.NewStatsCache(ctx, cfg.RedisAddr, cfg.StatsCacheTTL)
		if err != nil {
			log.WithError(err).Fatal("failed to connect to redis")
		}
		defer statsCache.Close()
		opts = append(opts, service.WithStatsCache(statsCache))
	}

	svc := service.New(store, opts...)

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: httpapi.New(svc, hub, httpapi.Options{
			JWTSecret:     cfg.JWTSecret,
			TrustedOrigin: cfg.TrustedOrigin,
			BodyLimit:     cfg.BodyLimit,
		}, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		log.Infof("Server is running on http://localhost:%s", cfg.Port)
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		if !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed to start")
		}
	case <-ctx.Done():
		log.Info("shutting down")
	}

	// websocket соединения сервер не закрывает сам
	hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}

func fillWithMockData(ctx context.Context, s storage.Storage, log logrus.FieldLogger) {
	// 1. Создаем пост с тегами.
	post, err := s.CreatePost(ctx, &domain.Post{
		Title:      "Тестовый пост о Go",
		Content:    "Это содержимое тестового поста. Здесь мы обсуждаем Go и PostgreSQL.",
		Tags:       []string{"go", "postgres"},
		IsFeatured: true,
		Status:     domain.PostPublished,
		AuthorID:   "user-1",
	})
	if err != nil {
		log.WithError(err).Fatal("fillWithMockData: failed to create post")
	}

	// 2. Создаем первый корневой комментарий.
	c1, err := s.CreateComment(ctx, &domain.Comment{
		PostID:   post.ID,
		AuthorID: "user-2",
		Content:  "Отличный пост! Очень информативно.",
		Status:   domain.CommentApproved,
	})
	if err != nil {
		log.WithError(err).Fatal("fillWithMockData: failed to create comment 1")
	}

	// 3. Создаем вложенный комментарий (ответ на первый).
	_, err = s.CreateComment(ctx, &domain.Comment{
		PostID:   post.ID,
		ParentID: &c1.ID, // Указываем родителя
		AuthorID: "user-1",
		Content:  "Спасибо! Рад, что вам понравилось.",
		Status:   domain.CommentApproved,
	})
	if err != nil {
		log.WithError(err).Fatal("fillWithMockData: failed to create nested comment")
	}

	// 4. Второй корневой комментарий ждёт модерации.
	_, err = s.CreateComment(ctx, &domain.Comment{
		PostID:   post.ID,
		AuthorID: "user-3",
		Content:  "А как насчет производительности при большой вложенности?",
		Status:   domain.CommentPending,
	})
	if err != nil {
		log.WithError(err).Fatal("fillWithMockData: failed to create comment 2")
	}

	// 5. Черновик, который виден только с фильтром по статусу.
	draft, err := s.CreatePost(ctx, &domain.Post{
		Title:    "Черновик",
		Content:  "Этот пост еще не опубликован.",
		Tags:     []string{"draft"},
		Status:   domain.PostDraft,
		AuthorID: "user-admin",
	})
	if err != nil {
		log.WithError(err).Fatal("fillWithMockData: failed to create draft post")
	}

	log.Infof("Mock data filled successfully. Created post ID: %s, and draft post ID: %s", post.ID, draft.ID)
}
