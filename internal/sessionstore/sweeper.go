package sessionstore

import (
	"log/slog"

	"github.com/robfig/cron/v3"
)

// StartSweeper schedules Store.Sweep as a cron job, matching the teacher's
// internal/cron convention of naming periodic background work as cron
// entries rather than bare ticker goroutines. Returns the cron.Cron so the
// caller can Stop() it on shutdown.
func StartSweeper(store *Store, logger *slog.Logger) *cron.Cron {
	if logger == nil {
		logger = slog.Default()
	}
	c := cron.New()
	_, err := c.AddFunc("@every 5m", func() {
		evicted := store.Sweep()
		if evicted > 0 {
			logger.Debug("session sweep evicted expired sessions", "count", evicted)
		}
	})
	if err != nil {
		logger.Error("failed to schedule session sweeper", "error", err)
		return c
	}
	c.Start()
	return c
}
