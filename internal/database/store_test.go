package database_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/remindbot/internal/database"
	apperr "github.com/edgard/remindbot/internal/errors"
	"github.com/edgard/remindbot/internal/schedule"
)

func day(m time.Month, d int) schedule.Date {
	return schedule.NewDate(2025, m, d)
}

// backends opens a fresh store per backend for a contract test.
func backends(t *testing.T) map[string]func(t *testing.T) database.Store {
	t.Helper()
	return map[string]func(t *testing.T) database.Store{
		database.BackendSQLite: func(t *testing.T) database.Store {
			store, err := database.OpenStore(database.BackendSQLite, filepath.Join(t.TempDir(), "tasks.db"), nil)
			require.NoError(t, err)
			t.Cleanup(func() { _ = store.Close() })
			return store
		},
		database.BackendJSONFile: func(t *testing.T) database.Store {
			store, err := database.OpenStore(database.BackendJSONFile, filepath.Join(t.TempDir(), "tasks.json"), nil)
			require.NoError(t, err)
			t.Cleanup(func() { _ = store.Close() })
			return store
		},
	}
}

func forEachBackend(t *testing.T, fn func(t *testing.T, store database.Store)) {
	t.Helper()
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			fn(t, open(t))
		})
	}
}

func TestCreateAndListRoundTrip(t *testing.T) {
	t.Parallel()
	forEachBackend(t, func(t *testing.T, store database.Store) {
		ctx := context.Background()

		dates := []schedule.Date{day(time.January, 9), day(time.January, 16), day(time.January, 23)}
		task, err := store.CreateTaskWithReminders(ctx, "42", "Write report", day(time.January, 31), dates)
		require.NoError(t, err)
		require.NotZero(t, task.ID)

		_, err = store.CreateTaskWithReminders(ctx, "42", "Pay rent", day(time.January, 5), nil)
		require.NoError(t, err)
		_, err = store.CreateTaskWithReminders(ctx, "7", "Someone else", day(time.January, 2), dates[:1])
		require.NoError(t, err)

		summaries, err := store.ListTasksForOwner(ctx, "42")
		require.NoError(t, err)
		require.Len(t, summaries, 2)
		assert.Equal(t, "Pay rent", summaries[0].Title)
		assert.Equal(t, 0, summaries[0].ReminderCount)
		assert.Equal(t, "Write report", summaries[1].Title)
		assert.Equal(t, 3, summaries[1].ReminderCount)
		assert.Equal(t, day(time.January, 31), summaries[1].DueDate)

		reminders, err := store.ListReminders(ctx, task.ID)
		require.NoError(t, err)
		require.Len(t, reminders, 3)
		assert.Equal(t, day(time.January, 9), reminders[0].Date)

		got, err := store.GetTask(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, "42", got.OwnerID)
	})
}

func TestCreateTaskThenAttachReminders(t *testing.T) {
	t.Parallel()
	forEachBackend(t, func(t *testing.T, store database.Store) {
		ctx := context.Background()

		id, err := store.CreateTask(ctx, "1", "Dentist", day(time.March, 1))
		require.NoError(t, err)
		require.NoError(t, store.AttachReminders(ctx, id, []schedule.Date{day(time.February, 20), day(time.February, 25)}))

		reminders, err := store.ListReminders(ctx, id)
		require.NoError(t, err)
		assert.Len(t, reminders, 2)

		err = store.AttachReminders(ctx, id+1000, []schedule.Date{day(time.February, 20)})
		require.Error(t, err)
		assert.True(t, apperr.IsNotFound(err))
	})
}

func TestDeleteTaskCascades(t *testing.T) {
	t.Parallel()
	forEachBackend(t, func(t *testing.T, store database.Store) {
		ctx := context.Background()

		task, err := store.CreateTaskWithReminders(ctx, "1", "Taxes", day(time.April, 15),
			[]schedule.Date{day(time.April, 1), day(time.April, 8)})
		require.NoError(t, err)

		removed, err := store.DeleteTask(ctx, task.ID, "someone-else")
		require.NoError(t, err)
		assert.False(t, removed, "owner mismatch must not delete")

		removed, err = store.DeleteTask(ctx, task.ID, "1")
		require.NoError(t, err)
		assert.True(t, removed)

		reminders, err := store.ListReminders(ctx, task.ID)
		require.NoError(t, err)
		assert.Empty(t, reminders)

		due, err := store.FindRemindersDueOn(ctx, day(time.April, 1))
		require.NoError(t, err)
		assert.Empty(t, due)

		removed, err = store.DeleteTask(ctx, task.ID, "1")
		require.NoError(t, err)
		assert.False(t, removed)

		_, err = store.GetTask(ctx, task.ID)
		assert.True(t, apperr.IsNotFound(err))
	})
}

func TestSystemDeleteIgnoresOwner(t *testing.T) {
	t.Parallel()
	forEachBackend(t, func(t *testing.T, store database.Store) {
		ctx := context.Background()

		task, err := store.CreateTaskWithReminders(ctx, "1", "Taxes", day(time.April, 15), []schedule.Date{day(time.April, 1)})
		require.NoError(t, err)

		removed, err := store.DeleteTask(ctx, task.ID, database.AnyOwner)
		require.NoError(t, err)
		assert.True(t, removed)
	})
}

func TestDeletePastDueTaskChecksDueDate(t *testing.T) {
	t.Parallel()
	forEachBackend(t, func(t *testing.T, store database.Store) {
		ctx := context.Background()

		task, err := store.CreateTaskWithReminders(ctx, "1", "Taxes", day(time.April, 15), []schedule.Date{day(time.April, 1)})
		require.NoError(t, err)

		removed, err := store.DeletePastDueTask(ctx, task.ID, day(time.April, 14))
		require.NoError(t, err)
		assert.False(t, removed, "due date is still ahead")
		_, err = store.GetTask(ctx, task.ID)
		require.NoError(t, err)

		removed, err = store.DeletePastDueTask(ctx, task.ID, day(time.April, 15))
		require.NoError(t, err)
		assert.True(t, removed)
		reminders, err := store.ListReminders(ctx, task.ID)
		require.NoError(t, err)
		assert.Empty(t, reminders)
	})
}

func TestSQLiteFailedWritesRollBack(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "tasks.db"))
	require.NoError(t, err)
	store := database.NewStore(db, nil)
	t.Cleanup(func() { _ = store.Close() })

	// Every insert of Jan 16 fails after the rows before it went in.
	_, err = db.ExecContext(ctx, `
        CREATE TRIGGER fail_jan_16 BEFORE INSERT ON reminder_dates
        WHEN NEW.reminder_date = '2025-01-16'
        BEGIN SELECT RAISE(ABORT, 'disk full'); END;
    `)
	require.NoError(t, err)
	failing := []schedule.Date{day(time.January, 9), day(time.January, 16), day(time.January, 23)}

	_, err = store.CreateTaskWithReminders(ctx, "42", "Write report", day(time.January, 31), failing)
	require.Error(t, err)
	assert.True(t, apperr.IsPersistence(err))
	tasks, err := store.ListTasksForOwner(ctx, "42")
	require.NoError(t, err)
	assert.Empty(t, tasks, "no task without its reminders")

	task, err := store.CreateTaskWithReminders(ctx, "42", "Write report", day(time.January, 31), []schedule.Date{day(time.January, 9)})
	require.NoError(t, err)

	require.Error(t, store.AttachReminders(ctx, task.ID, failing))
	reminders, err := store.ListReminders(ctx, task.ID)
	require.NoError(t, err)
	assert.Len(t, reminders, 1)

	require.Error(t, store.UpdateTask(ctx, task.ID, "42", "Renamed", day(time.February, 28), failing))
	got, err := store.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Write report", got.Title)
	assert.Equal(t, day(time.January, 31), got.DueDate)
	reminders, err = store.ListReminders(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, reminders, 1)
	assert.Equal(t, day(time.January, 9), reminders[0].Date)
}

func TestDeleteTasksByTitleAndOwner(t *testing.T) {
	t.Parallel()
	forEachBackend(t, func(t *testing.T, store database.Store) {
		ctx := context.Background()

		for _, owner := range []string{"1", "1", "2"} {
			_, err := store.CreateTaskWithReminders(ctx, owner, "Gym", day(time.May, 1), []schedule.Date{day(time.April, 20)})
			require.NoError(t, err)
		}

		removed, err := store.DeleteTasksByTitleAndOwner(ctx, "gym", "1")
		require.NoError(t, err)
		assert.False(t, removed, "title match is exact")

		removed, err = store.DeleteTasksByTitleAndOwner(ctx, "Gym", "1")
		require.NoError(t, err)
		assert.True(t, removed)

		mine, err := store.ListTasksForOwner(ctx, "1")
		require.NoError(t, err)
		assert.Empty(t, mine)

		theirs, err := store.ListTasksForOwner(ctx, "2")
		require.NoError(t, err)
		require.Len(t, theirs, 1)
		assert.Equal(t, 1, theirs[0].ReminderCount)

		due, err := store.FindRemindersDueOn(ctx, day(time.April, 20))
		require.NoError(t, err)
		require.Len(t, due, 1)
		assert.Equal(t, "2", due[0].OwnerID)
	})
}

func TestUpdateTaskReplacesReminders(t *testing.T) {
	t.Parallel()
	forEachBackend(t, func(t *testing.T, store database.Store) {
		ctx := context.Background()

		task, err := store.CreateTaskWithReminders(ctx, "1", "Draft", day(time.June, 30),
			[]schedule.Date{day(time.June, 10), day(time.June, 20)})
		require.NoError(t, err)

		err = store.UpdateTask(ctx, task.ID, "1", "Final", day(time.July, 31), []schedule.Date{day(time.July, 15)})
		require.NoError(t, err)

		got, err := store.GetTask(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, "Final", got.Title)
		assert.Equal(t, day(time.July, 31), got.DueDate)

		reminders, err := store.ListReminders(ctx, task.ID)
		require.NoError(t, err)
		require.Len(t, reminders, 1)
		assert.Equal(t, day(time.July, 15), reminders[0].Date)

		err = store.UpdateTask(ctx, task.ID, "intruder", "Hijack", day(time.July, 31), nil)
		require.Error(t, err)
		assert.True(t, apperr.IsNotFound(err))

		got, err = store.GetTask(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, "Final", got.Title, "failed update leaves prior state")
		reminders, err = store.ListReminders(ctx, task.ID)
		require.NoError(t, err)
		assert.Len(t, reminders, 1)
	})
}

func TestScanQueries(t *testing.T) {
	t.Parallel()
	forEachBackend(t, func(t *testing.T, store database.Store) {
		ctx := context.Background()
		today := day(time.August, 10)

		overdue, err := store.CreateTaskWithReminders(ctx, "1", "Overdue", day(time.August, 9), nil)
		require.NoError(t, err)
		dueToday, err := store.CreateTaskWithReminders(ctx, "1", "Due today", today, nil)
		require.NoError(t, err)
		upcoming, err := store.CreateTaskWithReminders(ctx, "2", "Upcoming", day(time.August, 20),
			[]schedule.Date{day(time.August, 5), day(time.August, 7), today, today, day(time.August, 15)})
		require.NoError(t, err)

		pastDue, err := store.FindTasksPastDue(ctx, today)
		require.NoError(t, err)
		require.Len(t, pastDue, 2)
		assert.Equal(t, overdue.ID, pastDue[0].ID)
		assert.Equal(t, dueToday.ID, pastDue[1].ID)

		dueOn, err := store.FindRemindersDueOn(ctx, today)
		require.NoError(t, err)
		require.Len(t, dueOn, 1, "duplicate reminders on one date collapse")
		assert.Equal(t, upcoming.ID, dueOn[0].TaskID)
		assert.Equal(t, "2", dueOn[0].OwnerID)
		assert.Equal(t, "Upcoming", dueOn[0].Title)
		assert.Equal(t, day(time.August, 20), dueOn[0].DueDate)
		assert.Equal(t, today, dueOn[0].ReminderDate)

		stale, err := store.FindRemindersPastDue(ctx, today)
		require.NoError(t, err)
		require.Len(t, stale, 1)
		assert.Equal(t, day(time.August, 5), stale[0].ReminderDate)

		require.NoError(t, store.DeleteReminder(ctx, upcoming.ID, today))
		require.NoError(t, store.DeleteStaleReminders(ctx, upcoming.ID, today))

		reminders, err := store.ListReminders(ctx, upcoming.ID)
		require.NoError(t, err)
		require.Len(t, reminders, 1)
		assert.Equal(t, day(time.August, 15), reminders[0].Date)
	})
}

func TestRecipients(t *testing.T) {
	t.Parallel()
	forEachBackend(t, func(t *testing.T, store database.Store) {
		ctx := context.Background()

		_, ok, err := store.GetRecipient(ctx, "99")
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, store.SaveRecipient(ctx, "99", -100123))
		require.NoError(t, store.SaveRecipient(ctx, "99", -100456))

		chatID, ok, err := store.GetRecipient(ctx, "99")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, int64(-100456), chatID)
	})
}

func TestMaintenance(t *testing.T) {
	t.Parallel()
	forEachBackend(t, func(t *testing.T, store database.Store) {
		require.NoError(t, store.RunSQLMaintenance(context.Background()))
		require.NoError(t, store.Ping(context.Background()))
	})
}

func TestConcurrentWritesOnSameTask(t *testing.T) {
	t.Parallel()
	forEachBackend(t, func(t *testing.T, store database.Store) {
		ctx := context.Background()

		task, err := store.CreateTaskWithReminders(ctx, "1", "Race", day(time.September, 30),
			[]schedule.Date{day(time.September, 10)})
		require.NoError(t, err)

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				if i%2 == 0 {
					_ = store.UpdateTask(ctx, task.ID, "1", "Race", day(time.September, 30),
						[]schedule.Date{day(time.September, 12), day(time.September, 20)})
				} else {
					_, _ = store.DeleteTask(ctx, task.ID, database.AnyOwner)
				}
			}(i)
		}
		wg.Wait()

		// Whatever the interleaving, a deleted task leaves no reminders behind.
		if _, err := store.GetTask(ctx, task.ID); apperr.IsNotFound(err) {
			reminders, err := store.ListReminders(ctx, task.ID)
			require.NoError(t, err)
			assert.Empty(t, reminders)
		}
	})
}

func TestFileStorePersistsAcrossReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "tasks.json")
	ctx := context.Background()

	store, err := database.NewFileStore(path, nil)
	require.NoError(t, err)
	task, err := store.CreateTaskWithReminders(ctx, "1", "Persist", day(time.October, 1), []schedule.Date{day(time.September, 20)})
	require.NoError(t, err)
	require.NoError(t, store.SaveRecipient(ctx, "1", 555))

	reopened, err := database.NewFileStore(path, nil)
	require.NoError(t, err)
	got, err := reopened.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Persist", got.Title)
	assert.Equal(t, day(time.October, 1), got.DueDate)

	next, err := reopened.CreateTask(ctx, "1", "Next", day(time.October, 2))
	require.NoError(t, err)
	assert.Greater(t, next, task.ID)

	chatID, ok, err := reopened.GetRecipient(ctx, "1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(555), chatID)
}

func TestOpenStoreUnknownBackend(t *testing.T) {
	t.Parallel()

	_, err := database.OpenStore("postgres", "ignored", nil)
	require.Error(t, err)
}
