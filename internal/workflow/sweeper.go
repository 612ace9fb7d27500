package workflow

import (
	"log/slog"

	"github.com/robfig/cron/v3"
)

// StartSweeper schedules Store.Sweep as a cron job, matching the
// sessionstore sweeper's convention of periodic background work as cron
// entries rather than bare ticker goroutines.
func StartSweeper(store *Store, logger *slog.Logger) *cron.Cron {
	if logger == nil {
		logger = slog.Default()
	}
	c := cron.New()
	_, err := c.AddFunc("@every 1h", func() {
		evicted := store.Sweep()
		if evicted > 0 {
			logger.Debug("workflow sweep evicted terminal workflows", "count", evicted)
		}
	})
	if err != nil {
		logger.Error("failed to schedule workflow sweeper", "error", err)
		return c
	}
	c.Start()
	return c
}
