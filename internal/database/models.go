package database

import (
	"time"

	"github.com/edgard/remindbot/internal/schedule"
)

// Task is a user-owned item with a title and a due date. Its reminder dates
// live in the reminder_dates table and are deleted with it.
type Task struct {
	ID        int64         `db:"id"         json:"id"`
	OwnerID   string        `db:"owner_id"   json:"owner_id"`
	Title     string        `db:"title"      json:"title"`
	DueDate   schedule.Date `db:"due_date"   json:"due_date"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt time.Time     `db:"updated_at" json:"updated_at"`
}

// ReminderDate is one scheduled notification date of a task.
type ReminderDate struct {
	ID     int64         `db:"id"            json:"id"`
	TaskID int64         `db:"task_id"       json:"task_id"`
	Date   schedule.Date `db:"reminder_date" json:"reminder_date"`
}

// TaskSummary is a task together with the number of reminders still pending.
type TaskSummary struct {
	Task
	ReminderCount int `db:"reminder_count" json:"reminder_count"`
}

// DueReminder is a reminder row joined with the task it belongs to. Rows are
// collapsed per task, so a task with several reminders on the same date (or
// several stale reminders) appears once.
type DueReminder struct {
	TaskID       int64         `db:"task_id"       json:"task_id"`
	OwnerID      string        `db:"owner_id"      json:"owner_id"`
	Title        string        `db:"title"         json:"title"`
	DueDate      schedule.Date `db:"due_date"      json:"due_date"`
	ReminderDate schedule.Date `db:"reminder_date" json:"reminder_date"`
}
