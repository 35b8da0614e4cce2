// Package storage implements core.Repository on PostgreSQL, SQLite and in memory.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/planner/internal/config"
	"github.com/JonMunkholm/planner/internal/core"
)

// Repository is a core.Repository that can report its health.
type Repository interface {
	core.Repository
	Ping(ctx context.Context) error
}

// Open returns the repository selected by cfg.Driver and a func that releases
// it. The postgres driver connects, pings and, when cfg.Migrate is set,
// applies the schema. The sqlite driver always applies its schema.
func Open(ctx context.Context, cfg config.StorageConfig) (Repository, func(), error) {
	switch strings.ToLower(cfg.Driver) {
	case config.DriverMemory:
		slog.Warn("using in-memory storage; data is lost on restart")
		return NewMemory(), func() {}, nil
	case config.DriverSQLite:
		db, err := OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("opened sqlite database", "path", cfg.SQLitePath)
		return db, func() { db.Close() }, nil
	case config.DriverPostgres:
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}
	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	}

	pg := NewPostgres(pool)
	if cfg.Migrate {
		if err := pg.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		slog.Info("database schema up to date")
	}
	return pg, pool.Close, nil
}
