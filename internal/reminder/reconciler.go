package reminder

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/edgard/remindbot/internal/database"
	"github.com/edgard/remindbot/internal/schedule"
)

// ErrCycleRunning is returned by TryRunCycle while another cycle is in progress.
var ErrCycleRunning = errors.New("reconciliation cycle already running")

// CycleReport summarizes one reconciliation cycle.
type CycleReport struct {
	Today          schedule.Date `json:"today"`
	PastDueTasks   int           `json:"past_due_tasks"`
	Notified       int           `json:"notified"`
	NotifyFailed   int           `json:"notify_failed"`
	RemindersFired int           `json:"reminders_fired"`
	StaleRemoved   int           `json:"stale_removed"`
	Errors         int           `json:"errors"`
	Duration       time.Duration `json:"duration"`
}

// ReconcilerOptions tunes a Reconciler. Zero values pick defaults.
type ReconcilerOptions struct {
	Clock            clockwork.Clock
	Location         *time.Location
	OperationTimeout time.Duration
}

// Reconciler runs reconciliation cycles: it announces and removes past-due
// tasks, fires today's reminders and drops reminders that were missed.
// Cycles never overlap.
type Reconciler struct {
	store     database.TaskStore
	scanner   *Scanner
	notifier  Notifier
	composer  *Composer
	clock     clockwork.Clock
	loc       *time.Location
	opTimeout time.Duration
	logger    *slog.Logger

	mu sync.Mutex
}

// NewReconciler creates a Reconciler.
func NewReconciler(store database.TaskStore, notifier Notifier, composer *Composer, opts ReconcilerOptions, logger *slog.Logger) *Reconciler {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Reconciler{
		store:     store,
		scanner:   NewScanner(store, opts.OperationTimeout),
		notifier:  notifier,
		composer:  composer,
		clock:     opts.Clock,
		loc:       opts.Location,
		opTimeout: opts.OperationTimeout,
		logger:    logger.With("component", "reconciler"),
	}
}

// Today returns the calendar date cycles use.
func (r *Reconciler) Today() schedule.Date {
	return schedule.Today(r.clock.Now(), r.loc)
}

// Scan returns what the next cycle would act on without changing anything.
func (r *Reconciler) Scan(ctx context.Context) Scan {
	return r.scanner.Scan(ctx, r.Today())
}

// RunCycle waits for any running cycle to finish and then runs one.
func (r *Reconciler) RunCycle(ctx context.Context) CycleReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cycle(ctx)
}

// TryRunCycle runs one cycle unless another is in progress.
func (r *Reconciler) TryRunCycle(ctx context.Context) (CycleReport, error) {
	if !r.mu.TryLock() {
		return CycleReport{}, ErrCycleRunning
	}
	defer r.mu.Unlock()
	return r.cycle(ctx), nil
}

func (r *Reconciler) cycle(ctx context.Context) CycleReport {
	startTime := r.clock.Now()
	// A started cycle finishes even if shutdown begins; every store and
	// notifier call below carries its own timeout.
	ctx = context.WithoutCancel(ctx)

	report := CycleReport{Today: schedule.Today(startTime, r.loc)}
	scan := r.scanner.Scan(ctx, report.Today)

	handled := r.firePastDue(ctx, scan, &report)
	r.fireDueToday(ctx, scan, handled, &report)
	r.dropStale(ctx, scan, handled, &report)

	report.Duration = r.clock.Since(startTime)
	r.logger.InfoContext(ctx, "Reconciliation cycle finished",
		"today", report.Today,
		"past_due_tasks", report.PastDueTasks,
		"notified", report.Notified,
		"notify_failed", report.NotifyFailed,
		"reminders_fired", report.RemindersFired,
		"stale_removed", report.StaleRemoved,
		"errors", report.Errors,
		"duration_ms", report.Duration.Milliseconds())
	return report
}

// firePastDue notifies and deletes every past-due task. It returns the ids
// of the tasks it handled so later phases leave their reminders alone.
func (r *Reconciler) firePastDue(ctx context.Context, scan Scan, report *CycleReport) map[int64]struct{} {
	handled := make(map[int64]struct{}, len(scan.PastDue))
	if scan.PastDueErr != nil {
		r.logger.ErrorContext(ctx, "Skipping past due phase", "error", scan.PastDueErr)
		report.Errors++
		return handled
	}

	for _, task := range scan.PastDue {
		handled[task.ID] = struct{}{}
		report.PastDueTasks++

		r.notify(ctx, task.OwnerID, r.composer.PastDue(ctx, task.Title), report)

		opCtx, cancel := boundedContext(ctx, r.opTimeout)
		removed, err := r.store.DeletePastDueTask(opCtx, task.ID, scan.Today)
		cancel()
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to delete past due task", "task_id", task.ID, "error", err)
			report.Errors++
			continue
		}
		if !removed {
			r.logger.InfoContext(ctx, "Past due task was rescheduled or removed before deletion", "task_id", task.ID, "owner_id", task.OwnerID)
			continue
		}
		r.logger.DebugContext(ctx, "Past due task removed", "task_id", task.ID, "owner_id", task.OwnerID)
	}
	return handled
}

// fireDueToday notifies and deletes each reminder due today.
func (r *Reconciler) fireDueToday(ctx context.Context, scan Scan, handled map[int64]struct{}, report *CycleReport) {
	if scan.DueTodayErr != nil {
		r.logger.ErrorContext(ctx, "Skipping due today phase", "error", scan.DueTodayErr)
		report.Errors++
		return
	}

	for _, due := range scan.DueToday {
		if _, ok := handled[due.TaskID]; ok {
			continue
		}
		report.RemindersFired++

		r.notify(ctx, due.OwnerID, r.composer.Upcoming(ctx, due.Title, due.DueDate), report)

		opCtx, cancel := boundedContext(ctx, r.opTimeout)
		err := r.store.DeleteReminder(opCtx, due.TaskID, scan.Today)
		cancel()
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to delete fired reminder", "task_id", due.TaskID, "error", err)
			report.Errors++
		}
	}
}

// dropStale deletes reminders dated before today without notifying.
func (r *Reconciler) dropStale(ctx context.Context, scan Scan, handled map[int64]struct{}, report *CycleReport) {
	if scan.StaleErr != nil {
		r.logger.ErrorContext(ctx, "Skipping stale reminder phase", "error", scan.StaleErr)
		report.Errors++
		return
	}

	for _, stale := range scan.Stale {
		if _, ok := handled[stale.TaskID]; ok {
			continue
		}

		opCtx, cancel := boundedContext(ctx, r.opTimeout)
		err := r.store.DeleteStaleReminders(opCtx, stale.TaskID, scan.Today)
		cancel()
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to delete stale reminders", "task_id", stale.TaskID, "error", err)
			report.Errors++
			continue
		}
		report.StaleRemoved++
		r.logger.DebugContext(ctx, "Stale reminders removed", "task_id", stale.TaskID, "oldest", stale.ReminderDate)
	}
}

func (r *Reconciler) notify(ctx context.Context, ownerID, message string, report *CycleReport) {
	if r.notifier.Notify(ctx, ownerID, message) {
		report.Notified++
		return
	}
	report.NotifyFailed++
}
