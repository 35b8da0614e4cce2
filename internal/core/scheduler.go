package core

// scheduler.go runs background maintenance. Currently that is purging
// activity entries older than the retention period. Failures are logged and
// retried on the next tick; they never stop the service.

import (
	"context"
	"log/slog"
	"time"
)

// RetentionConfig controls activity log purging.
type RetentionConfig struct {
	Retention     time.Duration // entries older than this are purged (default 90 days)
	CheckInterval time.Duration // how often to purge (default 24h)
}

func (c RetentionConfig) withDefaults() RetentionConfig {
	if c.Retention <= 0 {
		c.Retention = 90 * 24 * time.Hour
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = 24 * time.Hour
	}
	return c
}

// StartRetentionScheduler purges expired activity now and then every
// CheckInterval until ctx is cancelled. Run it in its own goroutine.
func (s *Service) StartRetentionScheduler(ctx context.Context, cfg RetentionConfig) {
	cfg = cfg.withDefaults()
	slog.Info("retention scheduler started",
		"retention", cfg.Retention.String(),
		"check_interval", cfg.CheckInterval.String(),
	)

	s.PurgeExpiredActivity(ctx, cfg.Retention)

	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("retention scheduler stopped")
			return
		case <-ticker.C:
			s.PurgeExpiredActivity(ctx, cfg.Retention)
		}
	}
}

// PurgeExpiredActivity deletes activity older than retention and returns how
// many entries were removed.
func (s *Service) PurgeExpiredActivity(ctx context.Context, retention time.Duration) int64 {
	start := time.Now()
	cutoff := s.now().Add(-retention)

	purged, err := s.repo.PurgeActivity(ctx, cutoff)
	if err != nil {
		slog.Error("activity purge failed", "error", err)
		return 0
	}

	slog.Info("purged expired activity",
		"entries_purged", purged,
		"cutoff", cutoff.Format(time.RFC3339),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return purged
}
