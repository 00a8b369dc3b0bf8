// Package httpapi - REST интерфейс блога.
package httpapi

import (
	"net/http"
	"time"

	"github.com/256dpi/serve"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/UkralStul/blog-service/internal/auth"
	"github.com/UkralStul/blog-service/internal/dataloader"
	"github.com/UkralStul/blog-service/internal/domain"
	"github.com/UkralStul/blog-service/internal/live"
	"github.com/UkralStul/blog-service/internal/service"
)

// Options - настройки HTTP слоя.
type Options struct {
	JWTSecret     string
	TrustedOrigin string
	BodyLimit     int64
}

// API связывает обработчики с сервисом.
type API struct {
	svc  *service.Service
	auth *auth.Authenticator
	live *live.Handler
	log  logrus.FieldLogger
}

// New собирает роутер со всеми маршрутами.
func New(svc *service.Service, hub *live.Hub, opts Options, log logrus.FieldLogger) http.Handler {
	a := &API{svc: svc, log: log}
	a.auth = auth.New(opts.JWTSecret, svc.Store(), a.fail)
	a.live = live.NewHandler(hub, svc.Store(), a.fail, log)

	members := a.auth.Require(domain.RoleUser, domain.RoleAdmin)
	admins := a.auth.Require(domain.RoleAdmin)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.RequestLogger(&logFormatter{log: log}))
	router.Use(middleware.Recoverer)
	router.Use(protector(opts))
	router.Use(func(next http.Handler) http.Handler {
		return dataloader.Middleware(svc.Store(), next)
	})
	router.Use(a.auth.Verifier())

	router.Get("/", a.welcome)
	router.Get("/health", a.health)

	router.Route("/posts", func(r chi.Router) {
		r.Get("/", a.listPosts)
		r.With(members).Get("/my-posts", a.myPosts)
		r.With(admins).Get("/stats", a.stats)
		r.Get("/{id}", a.getPost)
		r.Get("/{id}/live", a.live.ServeHTTP)
		r.With(members).Post("/", a.createPost)
		r.With(members).Patch("/update/{postId}", a.updatePost)
		r.With(members).Delete("/delete/{postId}", a.deletePost)
	})

	router.Route("/comments", func(r chi.Router) {
		r.With(members).Post("/", a.createComment)
		r.Get("/author/{authorId}", a.commentsByAuthor)
		r.With(admins).Patch("/moderate/{commentId}", a.moderateComment)
		r.Get("/{commentId}", a.getComment)
		r.With(members).Patch("/{commentId}", a.updateComment)
		r.With(members).Delete("/{commentId}", a.deleteComment)
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		a.fail(w, r, domain.E(domain.ErrNotFound, "Route not found"))
	})

	return router
}

// protector ограничивает размер тела и отвечает на CORS для доверенного origin.
func protector(opts Options) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{opts.TrustedOrigin},
		AllowedHeaders:   []string{"Origin", "Accept", "Content-Type", "Authorization"},
		AllowedMethods:   []string{"GET", "HEAD", "PUT", "PATCH", "POST", "DELETE"},
		AllowCredentials: true,
	})

	return func(next http.Handler) http.Handler {
		return c.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			serve.LimitBody(w, r, opts.BodyLimit)
			next.ServeHTTP(w, r)
		}))
	}
}

func (a *API) welcome(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Welcome to the Blog API"))
}

func (a *API) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
