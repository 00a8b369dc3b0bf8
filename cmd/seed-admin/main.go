// Команда seed-admin заводит администратора в PostgreSQL и печатает токен для разработки.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/UkralStul/blog-service/internal/auth"
	"github.com/UkralStul/blog-service/internal/config"
	"github.com/UkralStul/blog-service/internal/domain"
	"github.com/UkralStul/blog-service/internal/storage/postgres"
)

const (
	adminName  = "admin"
	adminEmail = "admin@example.com"
	tokenTTL   = 14 * 24 * time.Hour
)

func main() {
	args := append([]string{"-storage", config.StoragePostgres}, os.Args[1:]...)
	cfg, err := config.Load(args, os.Getenv)
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	log := cfg.Logger()

	store, err := postgres.New(cfg.DatabaseURL, log)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to postgres")
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	admin, err := store.GetUserByEmail(ctx, adminEmail)
	switch {
	case err == nil:
		log.WithField("id", admin.ID).Info("Admin user already exists. Skipping seeding.")
	case domain.ErrNotFound.Is(err):
		admin, err = store.EnsureUser(ctx, &domain.User{
			ID:            uuid.NewString(),
			Name:          adminName,
			Email:         adminEmail,
			Role:          domain.RoleAdmin,
			EmailVerified: true,
			Status:        domain.UserActive,
		})
		if err != nil {
			log.WithError(err).Fatal("Error seeding admin user")
		}
		log.WithField("id", admin.ID).Info("Admin user created")
	default:
		log.WithError(err).Fatal("Error seeding admin user")
	}

	if admin.Role != domain.RoleAdmin {
		log.WithField("role", admin.Role).Fatal("user with admin email is not an admin")
	}

	token, err := auth.New(cfg.JWTSecret, store, nil).Issue(&domain.Identity{
		ID:            admin.ID,
		Email:         admin.Email,
		Name:          admin.Name,
		Role:          admin.Role,
		EmailVerified: admin.EmailVerified,
	}, tokenTTL)
	if err != nil {
		log.WithError(err).Fatal("failed to issue token")
	}

	fmt.Println(token)
}
