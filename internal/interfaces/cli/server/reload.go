package server

import (
	"context"
	"os"
	"slices"

	"github.com/ippgi/ippgi-prices/internal/infrastructure/scheduler"
	"github.com/ippgi/ippgi-prices/internal/shared/logger"
)

type rescheduler interface {
	Hours() []int
	Reschedule(hours []int) error
}

// reloadSchedule re-reads the refresh hours on every signal and re-registers
// the price jobs when they changed. Invalid hours keep the running schedule.
func reloadSchedule(ctx context.Context, signals <-chan os.Signal, sched rescheduler, loadHours func() ([]int, error), log logger.Interface) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-signals:
		}

		hours, err := loadHours()
		if err != nil {
			log.Errorw("failed to reload config, keeping current schedule", "error", err)
			continue
		}
		normalized, err := scheduler.NormalizeHours(hours)
		if err != nil {
			log.Errorw("invalid refresh hours, keeping current schedule", "hourly_hours", hours, "error", err)
			continue
		}
		if slices.Equal(normalized, sched.Hours()) {
			log.Infow("refresh hours unchanged", "hourly_hours", normalized)
			continue
		}
		if err := sched.Reschedule(normalized); err != nil {
			log.Errorw("failed to reschedule price jobs", "hourly_hours", normalized, "error", err)
			continue
		}
		log.Infow("price jobs rescheduled", "hourly_hours", normalized)
	}
}
