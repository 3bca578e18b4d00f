// Package reminder implements the reminder engine: the task service used by
// the chat, HTTP and CLI front ends, the scanner that finds due work, the
// notifier boundary and the reconciler that runs one pass at a time.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/jonboulle/clockwork"

	"github.com/edgard/remindbot/internal/database"
	apperr "github.com/edgard/remindbot/internal/errors"
	"github.com/edgard/remindbot/internal/schedule"
)

// DefaultMaxTitleLength bounds task titles when no limit is configured.
const DefaultMaxTitleLength = 200

// TaskInput is what every front end collects before creating or editing a task.
type TaskInput struct {
	OwnerID string        `validate:"required"`
	Title   string        `validate:"required"`
	DueDate schedule.Date `validate:"-"`
	Count   int           `validate:"min=1,max=10"`
}

// TaskDetail is a task together with its pending reminder dates.
type TaskDetail struct {
	Task      database.Task   `json:"task"`
	Reminders []schedule.Date `json:"reminders"`
}

// ServiceOptions tunes a Service. Zero values pick defaults.
type ServiceOptions struct {
	Clock            clockwork.Clock
	Location         *time.Location
	MaxTitleLength   int
	OperationTimeout time.Duration
}

// Service validates user input, computes reminder schedules and applies the
// result to the task store.
type Service struct {
	store     database.TaskStore
	validate  *validator.Validate
	clock     clockwork.Clock
	loc       *time.Location
	maxTitle  int
	opTimeout time.Duration
	logger    *slog.Logger
}

// NewService creates a Service over store.
func NewService(store database.TaskStore, opts ServiceOptions, logger *slog.Logger) *Service {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.MaxTitleLength <= 0 {
		opts.MaxTitleLength = DefaultMaxTitleLength
	}
	return &Service{
		store:     store,
		validate:  validator.New(),
		clock:     opts.Clock,
		loc:       opts.Location,
		maxTitle:  opts.MaxTitleLength,
		opTimeout: opts.OperationTimeout,
		logger:    logger.With("component", "task_service"),
	}
}

// Today returns the current calendar date in the configured timezone.
func (s *Service) Today() schedule.Date {
	return schedule.Today(s.clock.Now(), s.loc)
}

// Location returns the configured timezone.
func (s *Service) Location() *time.Location {
	return s.loc
}

// ParseDueDate resolves user text such as "jul 31 2025" to a calendar date.
func (s *Service) ParseDueDate(text string) (schedule.Date, error) {
	return schedule.ParseUserDate(text)
}

// CreateTask validates input and stores the task with its reminders as one unit.
func (s *Service) CreateTask(ctx context.Context, input TaskInput) (*database.Task, []schedule.Date, error) {
	input, dates, err := s.plan(input)
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := boundedContext(ctx, s.opTimeout)
	defer cancel()

	task, err := s.store.CreateTaskWithReminders(ctx, input.OwnerID, input.Title, input.DueDate, dates)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.logger.InfoContext(ctx, "Task scheduled",
		"task_id", task.ID,
		"owner_id", task.OwnerID,
		"due_date", task.DueDate,
		"reminders", len(dates))
	return task, dates, nil
}

// EditTask replaces title, due date and the whole reminder set of a task
// owned by input.OwnerID. The schedule is recomputed from today.
func (s *Service) EditTask(ctx context.Context, taskID int64, input TaskInput) (*database.Task, []schedule.Date, error) {
	input, dates, err := s.plan(input)
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := boundedContext(ctx, s.opTimeout)
	defer cancel()

	if err := s.store.UpdateTask(ctx, taskID, input.OwnerID, input.Title, input.DueDate, dates); err != nil {
		return nil, nil, fmt.Errorf("failed to edit task: %w", err)
	}

	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to reload task: %w", err)
	}

	s.logger.InfoContext(ctx, "Task edited",
		"task_id", taskID,
		"owner_id", input.OwnerID,
		"due_date", input.DueDate,
		"reminders", len(dates))
	return task, dates, nil
}

// RemoveTask deletes a task owned by ownerID.
func (s *Service) RemoveTask(ctx context.Context, taskID int64, ownerID string) error {
	if ownerID == "" {
		return apperr.InvalidInputf("owner is required")
	}

	ctx, cancel := boundedContext(ctx, s.opTimeout)
	defer cancel()

	found, err := s.store.DeleteTask(ctx, taskID, ownerID)
	if err != nil {
		return fmt.Errorf("failed to remove task: %w", err)
	}
	if !found {
		return apperr.NewNotFound(fmt.Sprintf("task %d not found", taskID))
	}

	s.logger.InfoContext(ctx, "Task removed", "task_id", taskID, "owner_id", ownerID)
	return nil
}

// RemoveTaskByTitle deletes every task of ownerID titled exactly title.
func (s *Service) RemoveTaskByTitle(ctx context.Context, title, ownerID string) error {
	title = strings.TrimSpace(title)
	if title == "" || ownerID == "" {
		return apperr.InvalidInputf("task name and owner are required")
	}

	ctx, cancel := boundedContext(ctx, s.opTimeout)
	defer cancel()

	found, err := s.store.DeleteTasksByTitleAndOwner(ctx, title, ownerID)
	if err != nil {
		return fmt.Errorf("failed to remove task: %w", err)
	}
	if !found {
		return apperr.NewNotFound(fmt.Sprintf("no task named %q", title))
	}

	s.logger.InfoContext(ctx, "Task removed by title", "title", title, "owner_id", ownerID)
	return nil
}

// ListTasks returns the owner's tasks ordered by due date.
func (s *Service) ListTasks(ctx context.Context, ownerID string) ([]database.TaskSummary, error) {
	if ownerID == "" {
		return nil, apperr.InvalidInputf("owner is required")
	}

	ctx, cancel := boundedContext(ctx, s.opTimeout)
	defer cancel()

	tasks, err := s.store.ListTasksForOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// TaskReminders returns a task owned by ownerID with its pending reminders.
func (s *Service) TaskReminders(ctx context.Context, taskID int64, ownerID string) (*TaskDetail, error) {
	ctx, cancel := boundedContext(ctx, s.opTimeout)
	defer cancel()

	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	if ownerID != database.AnyOwner && task.OwnerID != ownerID {
		return nil, apperr.NewNotFound(fmt.Sprintf("task %d not found", taskID))
	}

	rows, err := s.store.ListReminders(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}

	detail := &TaskDetail{Task: *task, Reminders: make([]schedule.Date, 0, len(rows))}
	for _, row := range rows {
		detail.Reminders = append(detail.Reminders, row.Date)
	}
	return detail, nil
}

// PreviewSchedule computes the reminder dates for due and count from today
// without persisting anything.
func (s *Service) PreviewSchedule(due schedule.Date, count int) ([]schedule.Date, error) {
	today := s.Today()
	if err := s.checkDueDate(today, due); err != nil {
		return nil, err
	}
	return schedule.ComputeReminderSchedule(today, due, count)
}

// plan normalizes and validates input and computes its schedule.
func (s *Service) plan(input TaskInput) (TaskInput, []schedule.Date, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.OwnerID = strings.TrimSpace(input.OwnerID)

	if err := s.validate.Struct(input); err != nil {
		return input, nil, translateValidation(err)
	}
	if n := utf8.RuneCountInString(input.Title); n > s.maxTitle {
		return input, nil, apperr.InvalidInputf("task name is too long (%d characters, at most %d)", n, s.maxTitle)
	}

	today := s.Today()
	if err := s.checkDueDate(today, input.DueDate); err != nil {
		return input, nil, err
	}

	dates, err := schedule.ComputeReminderSchedule(today, input.DueDate, input.Count)
	if err != nil {
		return input, nil, err
	}
	return input, dates, nil
}

func (s *Service) checkDueDate(today, due schedule.Date) error {
	if due.IsZero() {
		return apperr.InvalidInputf("due date is required")
	}
	if due.Before(today) {
		return apperr.InvalidInputf("due date %s is in the past", due)
	}
	return nil
}

func translateValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperr.NewInvalidInput("invalid task", err)
	}

	switch fe := verrs[0]; fe.Field() {
	case "Title":
		return apperr.InvalidInputf("task name must not be empty")
	case "OwnerID":
		return apperr.InvalidInputf("owner is required")
	case "Count":
		return apperr.InvalidInputf("number of reminders must be between %d and %d", schedule.MinReminders, schedule.MaxReminders)
	default:
		return apperr.NewInvalidInput(fmt.Sprintf("invalid %s", fe.Field()), err)
	}
}
