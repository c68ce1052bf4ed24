package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tasktide/desk/internal/shared"
)

// DefaultCleanupInterval is how often the cleanup worker sweeps expired items.
const DefaultCleanupInterval = 5 * time.Minute

const (
	cleanupMaxRetries = 3
	cleanupBaseDelay  = 100 * time.Millisecond
)

// StartCleanupWorker runs a background goroutine that periodically removes
// expired session items until ctx is done.
func StartCleanupWorker(ctx context.Context, repo Repository, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Session cleanup worker started", "interval", interval)

		for {
			select {
			case <-ticker.C:
				n, err := cleanupWithRetry(ctx, repo)
				if err != nil {
					slog.Error("Session cleanup failed", "error", err)
					continue
				}
				if n > 0 {
					slog.Info("Session cleanup removed expired items", "count", n)
				}
			case <-ctx.Done():
				slog.Info("Session cleanup worker shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

// cleanupWithRetry retries CleanupExpired with exponential backoff while the
// database is locked by another connection.
func cleanupWithRetry(ctx context.Context, repo Repository) (int64, error) {
	var err error
	for i := 0; i < cleanupMaxRetries; i++ {
		var n int64
		n, err = repo.CleanupExpired(ctx)
		if err == nil {
			return n, nil
		}
		if !shared.IsSQLiteConflictError(err) || i == cleanupMaxRetries-1 {
			break
		}

		delay := cleanupBaseDelay * time.Duration(1<<i) // 100ms, 200ms, 400ms
		slog.Debug("Session cleanup hit a locked database, retrying", "attempt", i+1, "delay", delay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	return 0, fmt.Errorf("cleanup expired session items: %w", err)
}
