package background

import (
	"context"
	"log/slog"
	"time"
)

// Purger removes revocation entries whose tokens have outlived their expiry.
// The Redis ledger expires entries on its own; the in-memory ledger needs
// this sweep to keep its map bounded.
type Purger interface {
	PurgeExpired(ctx context.Context) (int, error)
}

// CleanupManager periodically purges expired revocation entries
type CleanupManager struct {
	ledger   Purger
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(ledger Purger, logger *slog.Logger, interval time.Duration) *CleanupManager {
	return &CleanupManager{
		ledger:   ledger,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic cleanup task
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	// Run immediately on startup
	cm.runCleanup(ctx)

	for {
		select {
		case <-ticker.C:
			cm.runCleanup(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

func (cm *CleanupManager) runCleanup(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	purged, err := cm.ledger.PurgeExpired(cleanupCtx)
	if err != nil {
		cm.logger.Error("failed to purge expired revocation entries", slog.Any("error", err))
		return
	}

	if purged > 0 {
		cm.logger.Info("revocation ledger sweep completed", slog.Int("entries_purged", purged))
	}
}

// Stop signals the cleanup manager to stop
func (cm *CleanupManager) Stop() {
	close(cm.stopCh)
}
