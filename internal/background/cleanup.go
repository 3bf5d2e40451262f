package background

import (
	"context"
	"log/slog"
	"time"
)

// TokenCleaner removes revocation rows whose tokens have expired anyway
type TokenCleaner interface {
	CleanupExpiredTokens(ctx context.Context) (int64, error)
}

// CleanupManager periodically purges stale revocation rows so the denylist
// stays small enough to probe on every request.
type CleanupManager struct {
	cleaner  TokenCleaner
	logger   *slog.Logger
	interval time.Duration
	done     chan struct{}
}

func NewCleanupManager(cleaner TokenCleaner, logger *slog.Logger, interval time.Duration) *CleanupManager {
	return &CleanupManager{
		cleaner:  cleaner,
		logger:   logger,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start runs the cleanup loop until the context is cancelled or Stop is called
func (m *CleanupManager) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		m.runOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-m.done:
				return
			case <-ticker.C:
				m.runOnce(ctx)
			}
		}
	}()
}

// Stop terminates the cleanup loop
func (m *CleanupManager) Stop() {
	close(m.done)
}

func (m *CleanupManager) runOnce(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	removed, err := m.cleaner.CleanupExpiredTokens(cleanupCtx)
	if err != nil {
		m.logger.Error("token cleanup failed", slog.String("error", err.Error()))
		return
	}

	if removed > 0 {
		m.logger.Info("purged expired revoked tokens", slog.Int64("removed", removed))
	}
}
