package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ivnmtz09/yonna-akademia/config"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/notification"
	"github.com/ivnmtz09/yonna-akademia/internal/infrastructure/persistence/memory"
	"github.com/ivnmtz09/yonna-akademia/internal/infrastructure/persistence/postgres"
	"github.com/ivnmtz09/yonna-akademia/internal/infrastructure/persistence/redis"
	"github.com/ivnmtz09/yonna-akademia/pkg/logger"
	"github.com/ivnmtz09/yonna-akademia/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROCESS BOOTSTRAP
// ══════════════════════════════════════════════════════════════════════════════

// Infra is the storage a process runs on.
type Infra struct {
	Repos Repositories

	// DB is nil when running on the in-memory store.
	DB *postgres.Connection

	// Redis is nil when disabled or unreachable.
	Redis *redis.Cache
}

// NewLogger builds the process logger from configuration.
func NewLogger(cfg *config.Config) *logger.Logger {
	opts := logger.DefaultOptions()
	opts.Level = logger.ParseLevel(cfg.Observability.LogLevel)
	opts.Format = cfg.Observability.LogFormat
	if cfg.IsDevelopment() && cfg.Observability.LogFormat == "" {
		opts.Format = "console"
	}
	return logger.New(opts).With(
		logger.String("app", cfg.App.Name),
		logger.String("env", string(cfg.App.Environment)),
	)
}

// OpenInfra connects to Postgres (or falls back to memory when no URL is
// configured) and, if enabled, to Redis. A Redis failure is logged and
// leaves Redis nil.
func OpenInfra(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Infra, error) {
	infra := &Infra{}

	if cfg.Database.URL == "" {
		log.Warn("DATABASE_URL not set, using in-memory storage")
		infra.Repos = MemoryRepositories(memory.NewStore())
	} else {
		log.Info("connecting to database")
		conn, err := retry.DoWithData(ctx, func(ctx context.Context) (*postgres.Connection, error) {
			return postgres.NewConnectionFromURL(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		}, retry.WithOnRetry(logRetry(log, "postgres")))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if cfg.Database.AutoMigrate {
			if err := postgres.NewMigrator(conn).Migrate(ctx); err != nil {
				conn.Close()
				return nil, fmt.Errorf("failed to run migrations: %w", err)
			}
			log.Info("database schema is up to date")
		}
		infra.DB = conn
		infra.Repos = PostgresRepositories(conn)
	}

	if !cfg.Redis.Disabled {
		cache, err := retry.DoWithData(ctx, func(context.Context) (*redis.Cache, error) {
			return redis.NewCache(redisConfig(cfg.Redis))
		}, retry.WithMaxAttempts(3), retry.WithOnRetry(logRetry(log, "redis")))
		if err != nil {
			log.Warn("failed to connect to Redis, cache and cross-process realtime disabled", logger.Err(err))
		} else {
			infra.Redis = cache
			log.Info("Redis connection established")
		}
	}
	return infra, nil
}

func logRetry(log *logger.Logger, target string) func(int, error, time.Duration) {
	return func(attempt int, err error, delay time.Duration) {
		log.Warn("connection attempt failed, retrying",
			logger.String("target", target),
			logger.Int("attempt", attempt),
			logger.Duration("delay", delay),
			logger.Err(err),
		)
	}
}

func redisConfig(c config.RedisConfig) redis.Config {
	rc := redis.DefaultConfig()
	rc.URL = c.URL
	rc.Host = c.Host
	rc.Port = c.Port
	rc.Password = c.Password
	rc.DB = c.DB
	rc.PoolSize = c.PoolSize
	rc.MinIdleConns = c.MinIdleConns
	rc.DialTimeout = c.DialTimeout
	rc.ReadTimeout = c.ReadTimeout
	rc.WriteTimeout = c.WriteTimeout
	return rc
}

// Close releases the connections.
func (i *Infra) Close() {
	if i.Redis != nil {
		_ = i.Redis.Close()
	}
	if i.DB != nil {
		i.DB.Close()
	}
}

// OptionsFrom maps configuration onto assembly options.
func OptionsFrom(cfg *config.Config, publisher notification.Publisher, cache Cache, log *logger.Logger) Options {
	return Options{
		LevelThresholds:   cfg.Progression.LevelThresholds,
		RewardMilestones:  cfg.Progression.RewardMilestones,
		StreakMilestones:  cfg.Progression.StreakMilestones,
		CompletionBonusXP: cfg.Progression.CompletionXP,
		Location:          cfg.App.Location,
		PublishTimeout:    cfg.Realtime.PublishTimeout,
		Publisher:         publisher,
		Cache:             cache,
		Logger:            log,
	}
}
