package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/edgard/remindbot/internal/database"
	"github.com/edgard/remindbot/internal/schedule"
)

// Scan is the read-only snapshot one reconciliation cycle works from. A
// query that failed leaves its slice empty and records the error, so the
// other phases can still run.
type Scan struct {
	Today    schedule.Date
	PastDue  []database.Task
	DueToday []database.DueReminder
	Stale    []database.DueReminder

	PastDueErr  error
	DueTodayErr error
	StaleErr    error
}

// Empty reports whether the scan found nothing to do.
func (s Scan) Empty() bool {
	return len(s.PastDue) == 0 && len(s.DueToday) == 0 && len(s.Stale) == 0
}

// Scanner issues the three read queries of a cycle.
type Scanner struct {
	store     database.TaskStore
	opTimeout time.Duration
}

// NewScanner creates a Scanner. opTimeout bounds each query; zero means no bound.
func NewScanner(store database.TaskStore, opTimeout time.Duration) *Scanner {
	return &Scanner{store: store, opTimeout: opTimeout}
}

// Scan finds tasks past due, reminders due today and stale reminders as of today.
func (s *Scanner) Scan(ctx context.Context, today schedule.Date) Scan {
	scan := Scan{Today: today}

	s.query(ctx, func(ctx context.Context) {
		var err error
		scan.PastDue, err = s.store.FindTasksPastDue(ctx, today)
		if err != nil {
			scan.PastDueErr = fmt.Errorf("failed to find past due tasks: %w", err)
		}
	})
	s.query(ctx, func(ctx context.Context) {
		var err error
		scan.DueToday, err = s.store.FindRemindersDueOn(ctx, today)
		if err != nil {
			scan.DueTodayErr = fmt.Errorf("failed to find reminders due today: %w", err)
		}
	})
	s.query(ctx, func(ctx context.Context) {
		var err error
		scan.Stale, err = s.store.FindRemindersPastDue(ctx, today)
		if err != nil {
			scan.StaleErr = fmt.Errorf("failed to find stale reminders: %w", err)
		}
	})

	return scan
}

func (s *Scanner) query(ctx context.Context, fn func(context.Context)) {
	ctx, cancel := boundedContext(ctx, s.opTimeout)
	defer cancel()
	fn(ctx)
}

func boundedContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
