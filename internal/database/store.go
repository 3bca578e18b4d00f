package database

import (
	"context"

	"github.com/edgard/remindbot/internal/schedule"
)

// AnyOwner may be passed as the owner to DeleteTask for system-initiated
// deletes that match on the task id alone.
const AnyOwner = ""

// TaskStore is the durable repository of tasks and their reminder dates.
// Every mutating method is all-or-nothing: a failure leaves the prior state
// untouched. Failures are reported as PERSISTENCE errors, missing rows as
// NOT_FOUND errors.
type TaskStore interface {
	// CreateTask inserts a task without reminders and returns its id.
	CreateTask(ctx context.Context, ownerID, title string, due schedule.Date) (int64, error)

	// AttachReminders inserts one reminder row per date for taskID.
	AttachReminders(ctx context.Context, taskID int64, dates []schedule.Date) error

	// CreateTaskWithReminders inserts a task and its reminders as one unit.
	CreateTaskWithReminders(ctx context.Context, ownerID, title string, due schedule.Date, dates []schedule.Date) (*Task, error)

	// GetTask returns a task by id.
	GetTask(ctx context.Context, taskID int64) (*Task, error)

	// ListReminders returns the pending reminder dates of a task, earliest first.
	ListReminders(ctx context.Context, taskID int64) ([]ReminderDate, error)

	// DeleteTask deletes a task and its reminders. With ownerID == AnyOwner the
	// owner is not checked. It reports whether a task was removed.
	DeleteTask(ctx context.Context, taskID int64, ownerID string) (bool, error)

	// DeletePastDueTask deletes a task and its reminders only if its due date
	// is still on or before date, so a task rescheduled after a scan survives.
	// It reports whether a task was removed.
	DeletePastDueTask(ctx context.Context, taskID int64, date schedule.Date) (bool, error)

	// DeleteTasksByTitleAndOwner deletes every task of ownerID whose title is
	// exactly title. It reports whether anything was removed.
	DeleteTasksByTitleAndOwner(ctx context.Context, title, ownerID string) (bool, error)

	// ListTasksForOwner returns the owner's tasks ordered by due date ascending.
	ListTasksForOwner(ctx context.Context, ownerID string) ([]TaskSummary, error)

	// UpdateTask replaces title and due date and swaps the whole reminder set
	// for dates in one transaction.
	UpdateTask(ctx context.Context, taskID int64, ownerID, title string, due schedule.Date, dates []schedule.Date) error

	// FindRemindersDueOn returns tasks having a reminder on date.
	FindRemindersDueOn(ctx context.Context, date schedule.Date) ([]DueReminder, error)

	// FindTasksPastDue returns tasks whose due date is on or before date.
	FindTasksPastDue(ctx context.Context, date schedule.Date) ([]Task, error)

	// FindRemindersPastDue returns tasks having reminders strictly before date.
	FindRemindersPastDue(ctx context.Context, date schedule.Date) ([]DueReminder, error)

	// DeleteReminder deletes the reminders of taskID on date.
	DeleteReminder(ctx context.Context, taskID int64, date schedule.Date) error

	// DeleteStaleReminders deletes the reminders of taskID strictly before before.
	DeleteStaleReminders(ctx context.Context, taskID int64, before schedule.Date) error
}

// RecipientStore remembers which chat a task owner can be reached in.
type RecipientStore interface {
	// SaveRecipient records the chat an owner last scheduled from.
	SaveRecipient(ctx context.Context, ownerID string, chatID int64) error

	// GetRecipient returns the recorded chat for ownerID, if any.
	GetRecipient(ctx context.Context, ownerID string) (int64, bool, error)
}

// Store is the full persistence surface used by the application.
type Store interface {
	TaskStore
	RecipientStore

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// RunSQLMaintenance compacts the backend storage.
	RunSQLMaintenance(ctx context.Context) error

	// Close releases the backend.
	Close() error
}
