// Package bootstrap connects the backing services a process needs.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"skillswap/internal/cache"
	"skillswap/internal/config"
	"skillswap/internal/database"
	"skillswap/internal/middleware"
	"skillswap/internal/repository"
	"skillswap/internal/search"
	"skillswap/internal/seed"
	"skillswap/internal/service"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	SeedDemo bool
}

// Runtime holds connected backing services. Redis and Search are nil when
// not configured or unreachable; callers fall back to in-process behavior.
type Runtime struct {
	DB     *gorm.DB
	Redis  *redis.Client
	Search *search.UserIndex
}

// InitRuntime connects to the database and Redis, optionally seeds demo
// data, then connects the search cluster and backfills it from the
// database. Only a database failure is fatal.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	rt := &Runtime{DB: db}

	if cfg.RedisURL != "" {
		rdb, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			middleware.Logger.Warn("continuing without Redis", slog.String("error", err.Error()))
		} else {
			rt.Redis = rdb
		}
	}

	if opts.SeedDemo {
		seeder, err := seed.NewSeeder(db, seed.Options{BcryptCost: cfg.BcryptCost})
		if err != nil {
			return nil, err
		}
		if _, err := seeder.Run(ctx); err != nil {
			return nil, fmt.Errorf("failed to seed demo data: %w", err)
		}
	}

	if cfg.ElasticURL != "" {
		rt.Search = connectSearch(ctx, cfg.ElasticURL, db)
	}

	return rt, nil
}

// connectSearch returns an index only once it mirrors every stored profile;
// browse answers from the database otherwise.
func connectSearch(ctx context.Context, url string, db *gorm.DB) *search.UserIndex {
	client, err := search.Connect(url)
	if err != nil {
		middleware.Logger.Warn("continuing without search index", slog.String("error", err.Error()))
		return nil
	}
	index := search.NewUserIndex(client)
	if err := index.EnsureIndex(ctx); err != nil {
		middleware.Logger.Warn("continuing without search index", slog.String("error", err.Error()))
		return nil
	}
	n, err := service.BackfillIndex(ctx, repository.NewUserRepository(db), repository.NewSkillRepository(db), index)
	if err != nil {
		middleware.Logger.Warn("continuing without search index", slog.String("error", err.Error()), slog.Int("indexed", n))
		return nil
	}
	middleware.Logger.Info("search index backfilled", slog.Int("users", n))
	return index
}

// Close releases every connection held by rt.
func (rt *Runtime) Close() {
	if rt.Redis != nil {
		if err := rt.Redis.Close(); err != nil {
			middleware.Logger.Warn("error closing redis", slog.String("error", err.Error()))
		}
	}
	if sqlDB, err := rt.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			middleware.Logger.Warn("error closing sql DB", slog.String("error", err.Error()))
		}
	}
}
