package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	apperr "github.com/edgard/remindbot/internal/errors"
	"github.com/edgard/remindbot/internal/schedule"
)

const taskColumns = `t.id, t.owner_id, t.title, t.due_date, t.created_at, t.updated_at`

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
// It requires a connected sqlx.DB instance and a logger.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store", "backend", BackendSQLite),
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying connection pool.
func (s *sqlxStore) Close() error {
	return s.db.Close()
}

// withTx runs fn inside a transaction. The transaction is committed only when
// fn succeeds and rolled back otherwise.
func (s *sqlxStore) withTx(ctx context.Context, op string, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction", "operation", op, "error", err)
		return apperr.NewPersistence(fmt.Sprintf("failed to begin transaction for %s", op), err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				s.logger.WarnContext(ctx, "Error rolling back transaction", "operation", op, "error", rollbackErr)
			}
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit transaction", "operation", op, "error", err)
		return apperr.NewPersistence(fmt.Sprintf("failed to commit %s", op), err)
	}
	tx = nil
	return nil
}

func insertTask(ctx context.Context, tx *sqlx.Tx, ownerID, title string, due schedule.Date, now time.Time) (int64, error) {
	result, err := tx.ExecContext(ctx,
		`INSERT INTO tasks (owner_id, title, due_date, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		ownerID, title, due, now, now)
	if err != nil {
		return 0, apperr.NewPersistence("failed to insert task", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, apperr.NewPersistence("failed to read task id", err)
	}
	return id, nil
}

func insertReminders(ctx context.Context, tx *sqlx.Tx, taskID int64, dates []schedule.Date) error {
	if len(dates) == 0 {
		return nil
	}
	stmt, err := tx.PreparexContext(ctx, `INSERT INTO reminder_dates (task_id, reminder_date) VALUES (?, ?)`)
	if err != nil {
		return apperr.NewPersistence("failed to prepare reminder insert", err)
	}
	defer stmt.Close()

	for _, date := range dates {
		if _, err := stmt.ExecContext(ctx, taskID, date); err != nil {
			return apperr.NewPersistence(fmt.Sprintf("failed to insert reminder %s for task %d", date, taskID), err)
		}
	}
	return nil
}

func taskExists(ctx context.Context, tx *sqlx.Tx, taskID int64) (bool, error) {
	var n int
	if err := tx.GetContext(ctx, &n, `SELECT COUNT(*) FROM tasks WHERE id = ?`, taskID); err != nil {
		return false, apperr.NewPersistence("failed to look up task", err)
	}
	return n > 0, nil
}

// CreateTask inserts a task without reminders.
func (s *sqlxStore) CreateTask(ctx context.Context, ownerID, title string, due schedule.Date) (int64, error) {
	var id int64
	err := s.withTx(ctx, "create task", func(tx *sqlx.Tx) error {
		var err error
		id, err = insertTask(ctx, tx, ownerID, title, due, time.Now().UTC())
		return err
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Error creating task", "owner_id", ownerID, "error", err)
		return 0, err
	}
	s.logger.DebugContext(ctx, "Task created", "task_id", id, "owner_id", ownerID, "due_date", due)
	return id, nil
}

// AttachReminders inserts every date or none of them.
func (s *sqlxStore) AttachReminders(ctx context.Context, taskID int64, dates []schedule.Date) error {
	err := s.withTx(ctx, "attach reminders", func(tx *sqlx.Tx) error {
		exists, err := taskExists(ctx, tx, taskID)
		if err != nil {
			return err
		}
		if !exists {
			return apperr.NewNotFound(fmt.Sprintf("task %d not found", taskID))
		}
		return insertReminders(ctx, tx, taskID, dates)
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Error attaching reminders", "task_id", taskID, "count", len(dates), "error", err)
		return err
	}
	s.logger.DebugContext(ctx, "Reminders attached", "task_id", taskID, "count", len(dates))
	return nil
}

// CreateTaskWithReminders inserts a task and its reminders in one transaction.
func (s *sqlxStore) CreateTaskWithReminders(ctx context.Context, ownerID, title string, due schedule.Date, dates []schedule.Date) (*Task, error) {
	now := time.Now().UTC()
	task := &Task{OwnerID: ownerID, Title: title, DueDate: due, CreatedAt: now, UpdatedAt: now}

	err := s.withTx(ctx, "create task with reminders", func(tx *sqlx.Tx) error {
		id, err := insertTask(ctx, tx, ownerID, title, due, now)
		if err != nil {
			return err
		}
		task.ID = id
		return insertReminders(ctx, tx, id, dates)
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Error creating task with reminders", "owner_id", ownerID, "error", err)
		return nil, err
	}

	s.logger.DebugContext(ctx, "Task created with reminders", "task_id", task.ID, "owner_id", ownerID, "reminders", len(dates))
	return task, nil
}

// GetTask returns a task by id.
func (s *sqlxStore) GetTask(ctx context.Context, taskID int64) (*Task, error) {
	var task Task
	err := s.db.GetContext(ctx, &task, `SELECT `+taskColumns+` FROM tasks t WHERE t.id = ?`, taskID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NewNotFound(fmt.Sprintf("task %d not found", taskID))
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Error getting task", "task_id", taskID, "error", err)
		return nil, apperr.NewPersistence("failed to get task", err)
	}
	return &task, nil
}

// ListReminders returns the pending reminders of a task.
func (s *sqlxStore) ListReminders(ctx context.Context, taskID int64) ([]ReminderDate, error) {
	reminders := []ReminderDate{}
	err := s.db.SelectContext(ctx, &reminders,
		`SELECT id, task_id, reminder_date FROM reminder_dates WHERE task_id = ? ORDER BY reminder_date ASC, id ASC`, taskID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error listing reminders", "task_id", taskID, "error", err)
		return nil, apperr.NewPersistence("failed to list reminders", err)
	}
	return reminders, nil
}

// DeleteTask deletes a task and its reminders. Reminders are removed
// explicitly as well as through the cascade so the result does not depend on
// the foreign_keys pragma.
func (s *sqlxStore) DeleteTask(ctx context.Context, taskID int64, ownerID string) (bool, error) {
	var cond string
	var args []any
	if ownerID != AnyOwner {
		cond = ` AND owner_id = ?`
		args = append(args, ownerID)
	}
	return s.deleteTask(ctx, "delete task", taskID, cond, args...)
}

// DeletePastDueTask deletes a task only while its due date is still on or
// before date.
func (s *sqlxStore) DeletePastDueTask(ctx context.Context, taskID int64, date schedule.Date) (bool, error) {
	return s.deleteTask(ctx, "delete past due task", taskID, ` AND due_date <= ?`, date)
}

func (s *sqlxStore) deleteTask(ctx context.Context, op string, taskID int64, cond string, condArgs ...any) (bool, error) {
	var removed bool
	err := s.withTx(ctx, op, func(tx *sqlx.Tx) error {
		args := append([]any{taskID}, condArgs...)
		result, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`+cond, args...)
		if err != nil {
			return apperr.NewPersistence("failed to delete task", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return apperr.NewPersistence("failed to read affected rows", err)
		}
		if affected == 0 {
			return nil
		}
		removed = true

		if _, err := tx.ExecContext(ctx, `DELETE FROM reminder_dates WHERE task_id = ?`, taskID); err != nil {
			return apperr.NewPersistence("failed to delete task reminders", err)
		}
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Error deleting task", "operation", op, "task_id", taskID, "error", err)
		return false, err
	}
	s.logger.DebugContext(ctx, "Delete task finished", "operation", op, "task_id", taskID, "removed", removed)
	return removed, nil
}

// DeleteTasksByTitleAndOwner deletes the owner's tasks with an exactly matching title.
func (s *sqlxStore) DeleteTasksByTitleAndOwner(ctx context.Context, title, ownerID string) (bool, error) {
	var removed int
	err := s.withTx(ctx, "delete tasks by title", func(tx *sqlx.Tx) error {
		var ids []int64
		if err := tx.SelectContext(ctx, &ids, `SELECT id FROM tasks WHERE title = ? AND owner_id = ?`, title, ownerID); err != nil {
			return apperr.NewPersistence("failed to find tasks by title", err)
		}
		if len(ids) == 0 {
			return nil
		}

		query, args, err := sqlx.In(`DELETE FROM reminder_dates WHERE task_id IN (?)`, ids)
		if err != nil {
			return apperr.NewPersistence("failed to build reminder delete", err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
			return apperr.NewPersistence("failed to delete reminders by title", err)
		}

		query, args, err = sqlx.In(`DELETE FROM tasks WHERE id IN (?)`, ids)
		if err != nil {
			return apperr.NewPersistence("failed to build task delete", err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
			return apperr.NewPersistence("failed to delete tasks by title", err)
		}
		removed = len(ids)
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Error deleting tasks by title", "owner_id", ownerID, "error", err)
		return false, err
	}
	s.logger.DebugContext(ctx, "Deleted tasks by title", "owner_id", ownerID, "count", removed)
	return removed > 0, nil
}

// ListTasksForOwner returns the owner's tasks with their pending reminder count.
func (s *sqlxStore) ListTasksForOwner(ctx context.Context, ownerID string) ([]TaskSummary, error) {
	summaries := []TaskSummary{}
	query := `
        SELECT ` + taskColumns + `, COUNT(r.id) AS reminder_count
        FROM tasks t
        LEFT JOIN reminder_dates r ON r.task_id = t.id
        WHERE t.owner_id = ?
        GROUP BY t.id
        ORDER BY t.due_date ASC, t.id ASC;
    `
	if err := s.db.SelectContext(ctx, &summaries, query, ownerID); err != nil {
		s.logger.ErrorContext(ctx, "Error listing tasks", "owner_id", ownerID, "error", err)
		return nil, apperr.NewPersistence("failed to list tasks", err)
	}
	return summaries, nil
}

// UpdateTask replaces a task's fields and its entire reminder set atomically.
func (s *sqlxStore) UpdateTask(ctx context.Context, taskID int64, ownerID, title string, due schedule.Date, dates []schedule.Date) error {
	err := s.withTx(ctx, "update task", func(tx *sqlx.Tx) error {
		query := `UPDATE tasks SET title = ?, due_date = ?, updated_at = ? WHERE id = ?`
		args := []any{title, due, time.Now().UTC(), taskID}
		if ownerID != AnyOwner {
			query += ` AND owner_id = ?`
			args = append(args, ownerID)
		}
		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return apperr.NewPersistence("failed to update task", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return apperr.NewPersistence("failed to read affected rows", err)
		}
		if affected == 0 {
			return apperr.NewNotFound(fmt.Sprintf("task %d not found", taskID))
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM reminder_dates WHERE task_id = ?`, taskID); err != nil {
			return apperr.NewPersistence("failed to clear reminders", err)
		}
		return insertReminders(ctx, tx, taskID, dates)
	})
	if err != nil {
		if !apperr.IsNotFound(err) {
			s.logger.ErrorContext(ctx, "Error updating task", "task_id", taskID, "error", err)
		}
		return err
	}
	s.logger.DebugContext(ctx, "Task updated", "task_id", taskID, "reminders", len(dates))
	return nil
}

// FindRemindersDueOn returns one row per task with a reminder on date.
func (s *sqlxStore) FindRemindersDueOn(ctx context.Context, date schedule.Date) ([]DueReminder, error) {
	return s.selectDueReminders(ctx, "=", date)
}

// FindRemindersPastDue returns one row per task with reminders before date.
func (s *sqlxStore) FindRemindersPastDue(ctx context.Context, date schedule.Date) ([]DueReminder, error) {
	return s.selectDueReminders(ctx, "<", date)
}

func (s *sqlxStore) selectDueReminders(ctx context.Context, cmp string, date schedule.Date) ([]DueReminder, error) {
	rows := []DueReminder{}
	query := `
        SELECT t.id AS task_id, t.owner_id, t.title, t.due_date, MIN(r.reminder_date) AS reminder_date
        FROM reminder_dates r
        JOIN tasks t ON t.id = r.task_id
        WHERE r.reminder_date ` + cmp + ` ?
        GROUP BY t.id
        ORDER BY t.due_date ASC, t.id ASC;
    `
	if err := s.db.SelectContext(ctx, &rows, query, date); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			s.logger.WarnContext(ctx, "Context timeout or cancellation while scanning reminders", "error", err)
		} else {
			s.logger.ErrorContext(ctx, "Error scanning reminders", "date", date, "cmp", strings.TrimSpace(cmp), "error", err)
		}
		return nil, apperr.NewPersistence("failed to scan reminders", err)
	}
	return rows, nil
}

// FindTasksPastDue returns tasks due on or before date.
func (s *sqlxStore) FindTasksPastDue(ctx context.Context, date schedule.Date) ([]Task, error) {
	tasks := []Task{}
	err := s.db.SelectContext(ctx, &tasks,
		`SELECT `+taskColumns+` FROM tasks t WHERE t.due_date <= ? ORDER BY t.due_date ASC, t.id ASC`, date)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error scanning past due tasks", "date", date, "error", err)
		return nil, apperr.NewPersistence("failed to scan past due tasks", err)
	}
	return tasks, nil
}

// DeleteReminder deletes the task's reminders on date.
func (s *sqlxStore) DeleteReminder(ctx context.Context, taskID int64, date schedule.Date) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM reminder_dates WHERE task_id = ? AND reminder_date = ?`, taskID, date)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error deleting reminder", "task_id", taskID, "date", date, "error", err)
		return apperr.NewPersistence("failed to delete reminder", err)
	}
	s.logAffected(ctx, result, "Deleted reminder", "task_id", taskID, "date", date)
	return nil
}

// DeleteStaleReminders deletes the task's reminders before the given date.
func (s *sqlxStore) DeleteStaleReminders(ctx context.Context, taskID int64, before schedule.Date) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM reminder_dates WHERE task_id = ? AND reminder_date < ?`, taskID, before)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error deleting stale reminders", "task_id", taskID, "before", before, "error", err)
		return apperr.NewPersistence("failed to delete stale reminders", err)
	}
	s.logAffected(ctx, result, "Deleted stale reminders", "task_id", taskID, "before", before)
	return nil
}

// logAffected logs msg with the affected row count. The delete has already
// succeeded, so a driver that cannot report the count only gets a warning.
func (s *sqlxStore) logAffected(ctx context.Context, result sql.Result, msg string, args ...any) {
	count, err := result.RowsAffected()
	if err != nil {
		s.logger.WarnContext(ctx, "Could not read affected rows", append(args, "operation", msg, "error", err)...)
		return
	}
	s.logger.DebugContext(ctx, msg, append(args, "count", count)...)
}

// SaveRecipient upserts the chat an owner can be reached in.
func (s *sqlxStore) SaveRecipient(ctx context.Context, ownerID string, chatID int64) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO recipients (owner_id, chat_id, updated_at) VALUES (?, ?, ?)
        ON CONFLICT (owner_id) DO UPDATE SET chat_id = excluded.chat_id, updated_at = excluded.updated_at;
    `, ownerID, chatID, time.Now().UTC())
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving recipient", "owner_id", ownerID, "chat_id", chatID, "error", err)
		return apperr.NewPersistence("failed to save recipient", err)
	}
	return nil
}

// GetRecipient returns the recorded chat of an owner.
func (s *sqlxStore) GetRecipient(ctx context.Context, ownerID string) (int64, bool, error) {
	var chatID int64
	err := s.db.GetContext(ctx, &chatID, `SELECT chat_id FROM recipients WHERE owner_id = ?`, ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Error getting recipient", "owner_id", ownerID, "error", err)
		return 0, false, apperr.NewPersistence("failed to get recipient", err)
	}
	return chatID, true, nil
}

// RunSQLMaintenance executes a VACUUM command on the SQLite database.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")

	// VACUUM must run outside a transaction.
	_, err := s.db.ExecContext(ctx, "VACUUM;")

	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)

	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return apperr.NewPersistence("failed to execute VACUUM", err)

	default:
		s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed successfully")
	}

	return nil
}
