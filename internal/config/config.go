// Package config собирает настройки сервера из флагов и переменных окружения.
package config

import (
	"flag"
	"io"
	"time"

	"github.com/256dpi/serve"
	"github.com/256dpi/xo"
	"github.com/sirupsen/logrus"

	"github.com/UkralStul/blog-service/internal/domain"
)

// Типы хранилища.
const (
	StorageInMemory = "in-memory"
	StoragePostgres = "postgres"
)

// Config - настройки сервера.
type Config struct {
	Port                 string
	Storage              string
	DatabaseURL          string
	JWTSecret            string
	RedisAddr            string
	StatsCacheTTL        time.Duration
	RabbitMQURL          string
	RabbitMQExchange     string
	TrustedOrigin        string
	BodyLimit            int64
	LogLevel             logrus.Level
	LogFormat            string
	CommentDefaultStatus domain.CommentStatus
	SeedData             bool
}

// Load разбирает аргументы командной строки и окружение. getenv обычно os.Getenv.
func Load(args []string, getenv func(string) string) (*Config, error) {
	env := func(key, def string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return def
	}

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	storageType := fs.String("storage", StorageInMemory, "Storage type (in-memory or postgres)")
	if err := fs.Parse(args); err != nil {
		return nil, xo.W(err)
	}

	cfg := &Config{
		Port:             env("PORT", "8080"),
		Storage:          *storageType,
		DatabaseURL:      getenv("DATABASE_URL"),
		JWTSecret:        getenv("JWT_SECRET"),
		RedisAddr:        getenv("REDIS_ADDR"),
		RabbitMQURL:      getenv("RABBITMQ_URL"),
		RabbitMQExchange: env("RABBITMQ_EXCHANGE", "blog_events"),
		TrustedOrigin:    env("TRUSTED_ORIGIN", "http://localhost:4000"),
		LogFormat:        getenv("LOG_FORMAT"),
	}

	switch cfg.Storage {
	case StorageInMemory:
	case StoragePostgres:
		if cfg.DatabaseURL == "" {
			return nil, xo.F("DATABASE_URL must be set for postgres storage")
		}
	default:
		return nil, xo.F("unknown storage type %q", cfg.Storage)
	}

	if cfg.JWTSecret == "" {
		return nil, xo.F("JWT_SECRET must be set")
	}

	ttl, err := time.ParseDuration(env("STATS_CACHE_TTL", "30s"))
	if err != nil {
		return nil, xo.WF(err, "invalid STATS_CACHE_TTL")
	}
	cfg.StatsCacheTTL = ttl

	limit, err := serve.ByteSize(env("BODY_LIMIT", "1M"))
	if err != nil {
		return nil, xo.WF(err, "invalid BODY_LIMIT")
	}
	cfg.BodyLimit = limit

	level, err := logrus.ParseLevel(env("LOG_LEVEL", "info"))
	if err != nil {
		return nil, xo.WF(err, "invalid LOG_LEVEL")
	}
	cfg.LogLevel = level

	status, ok := domain.ParseCommentStatus(env("COMMENT_DEFAULT_STATUS", string(domain.CommentApproved)))
	if !ok {
		return nil, xo.F("invalid COMMENT_DEFAULT_STATUS")
	}
	cfg.CommentDefaultStatus = status

	switch env("SEED_DATA", "true") {
	case "true", "1":
		cfg.SeedData = true
	case "false", "0":
		cfg.SeedData = false
	default:
		return nil, xo.F("invalid SEED_DATA")
	}

	return cfg, nil
}

// Logger создает логгер по настройкам.
func (c *Config) Logger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(c.LogLevel)
	if c.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}
