package tasks

import (
	"context"
)

// newReminderCycleTask runs one reconciliation cycle per tick. The
// reconciler logs its own report; a cycle never fails as a whole.
func newReminderCycleTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "reminder_cycle")

	return func(ctx context.Context) error {
		report := deps.Reconciler.RunCycle(ctx)
		if report.Errors > 0 {
			log.WarnContext(ctx, "Reminder cycle finished with errors", "errors", report.Errors, "today", report.Today)
		}
		return nil
	}
}
