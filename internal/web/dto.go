package web

import (
	"github.com/edgard/remindbot/internal/database"
	"github.com/edgard/remindbot/internal/reminder"
	"github.com/edgard/remindbot/internal/schedule"
)

// Request payloads

// TaskRequest creates or replaces a task. DueDate accepts ISO dates and the
// chat layouts ("jul 31 2025").
type TaskRequest struct {
	Title   string `json:"title" example:"Pay rent"`
	DueDate string `json:"due_date" example:"2025-07-31"`
	Count   int    `json:"count" example:"3"`
}

// PreviewRequest asks for the reminder dates of a hypothetical task.
type PreviewRequest struct {
	DueDate string `json:"due_date" example:"2025-07-31"`
	Count   int    `json:"count" example:"3"`
}

// Response payloads

// TaskSummaryResponse is one row of an owner's task list.
type TaskSummaryResponse struct {
	ID            int64  `json:"id"`
	OwnerID       string `json:"owner_id"`
	Title         string `json:"title"`
	DueDate       string `json:"due_date" format:"date"`
	ReminderCount int    `json:"reminder_count"`
}

// TaskDetailResponse is a task with its pending reminder dates.
type TaskDetailResponse struct {
	ID        int64    `json:"id"`
	OwnerID   string   `json:"owner_id"`
	Title     string   `json:"title"`
	DueDate   string   `json:"due_date" format:"date"`
	Reminders []string `json:"reminders"`
}

// PreviewResponse lists computed reminder dates.
type PreviewResponse struct {
	Today     string   `json:"today" format:"date"`
	Reminders []string `json:"reminders"`
}

func summaryResponse(s database.TaskSummary) TaskSummaryResponse {
	return TaskSummaryResponse{
		ID:            s.ID,
		OwnerID:       s.OwnerID,
		Title:         s.Title,
		DueDate:       s.DueDate.String(),
		ReminderCount: s.ReminderCount,
	}
}

func detailResponse(task database.Task, dates []schedule.Date) TaskDetailResponse {
	return TaskDetailResponse{
		ID:        task.ID,
		OwnerID:   task.OwnerID,
		Title:     task.Title,
		DueDate:   task.DueDate.String(),
		Reminders: dateStrings(dates),
	}
}

func fromDetail(d *reminder.TaskDetail) TaskDetailResponse {
	return detailResponse(d.Task, d.Reminders)
}

func dateStrings(dates []schedule.Date) []string {
	out := make([]string, 0, len(dates))
	for _, d := range dates {
		out = append(out, d.String())
	}
	return out
}
