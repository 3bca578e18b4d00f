package tasks

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/remindbot/internal/config"
	"github.com/edgard/remindbot/internal/database"
	"github.com/edgard/remindbot/internal/logger"
	"github.com/edgard/remindbot/internal/reminder"
	"github.com/edgard/remindbot/internal/schedule"
)

func newDeps(t *testing.T) TaskDeps {
	t.Helper()

	store, err := database.OpenStore(database.BackendSQLite, filepath.Join(t.TempDir(), "tasks.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	log := logger.Discard()
	clock := clockwork.NewFakeClockAt(time.Date(2025, time.March, 10, 7, 0, 0, 0, time.UTC))
	composer := reminder.NewComposer(reminder.Templates{
		PastDueFmt:  "%s is overdue",
		UpcomingFmt: "%s is due %s",
	}, nil, log)

	return TaskDeps{
		Logger:     log,
		Store:      store,
		Reconciler: reminder.NewReconciler(store, reminder.NewLogNotifier(log), composer, reminder.ReconcilerOptions{Clock: clock}, log),
	}
}

func TestRegisterAllTasks(t *testing.T) {
	t.Parallel()

	registered := RegisterAllTasks(newDeps(t))
	assert.Len(t, registered, 2)
	assert.Contains(t, registered, config.TaskReminderCycle)
	assert.Contains(t, registered, config.TaskSQLMaintenance)
}

func TestReminderCycleTaskFiresDueReminders(t *testing.T) {
	t.Parallel()
	deps := newDeps(t)
	ctx := context.Background()

	today := schedule.NewDate(2025, time.March, 10)
	task, err := deps.Store.CreateTaskWithReminders(ctx, "5", "File taxes", schedule.NewDate(2025, time.March, 20),
		[]schedule.Date{today, schedule.NewDate(2025, time.March, 15)})
	require.NoError(t, err)

	run := RegisterAllTasks(deps)[config.TaskReminderCycle]
	require.NoError(t, run(ctx))

	left, err := deps.Store.ListReminders(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, schedule.NewDate(2025, time.March, 15), left[0].Date)

	// A second tick on the same day has nothing left to fire.
	require.NoError(t, run(ctx))
	left, err = deps.Store.ListReminders(ctx, task.ID)
	require.NoError(t, err)
	assert.Len(t, left, 1)
}

func TestSQLMaintenanceTask(t *testing.T) {
	t.Parallel()
	deps := newDeps(t)

	run := RegisterAllTasks(deps)[config.TaskSQLMaintenance]
	assert.NoError(t, run(context.Background()))
}
