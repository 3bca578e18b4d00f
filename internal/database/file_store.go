package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	apperr "github.com/edgard/remindbot/internal/errors"
	"github.com/edgard/remindbot/internal/schedule"
)

// fileState is the on-disk document of the JSON backend.
type fileState struct {
	NextTaskID     int64            `json:"next_task_id"`
	NextReminderID int64            `json:"next_reminder_id"`
	Tasks          []Task           `json:"tasks"`
	Reminders      []ReminderDate   `json:"reminders"`
	Recipients     map[string]int64 `json:"recipients"`
}

func (st *fileState) clone() *fileState {
	c := &fileState{
		NextTaskID:     st.NextTaskID,
		NextReminderID: st.NextReminderID,
		Tasks:          append([]Task(nil), st.Tasks...),
		Reminders:      append([]ReminderDate(nil), st.Reminders...),
		Recipients:     make(map[string]int64, len(st.Recipients)),
	}
	for k, v := range st.Recipients {
		c.Recipients[k] = v
	}
	return c
}

func (st *fileState) task(id int64) (int, bool) {
	for i := range st.Tasks {
		if st.Tasks[i].ID == id {
			return i, true
		}
	}
	return -1, false
}

func (st *fileState) addReminders(taskID int64, dates []schedule.Date) {
	for _, date := range dates {
		st.NextReminderID++
		st.Reminders = append(st.Reminders, ReminderDate{ID: st.NextReminderID, TaskID: taskID, Date: date})
	}
}

func (st *fileState) dropReminders(keep func(r ReminderDate) bool) int {
	kept := st.Reminders[:0]
	dropped := 0
	for _, r := range st.Reminders {
		if keep(r) {
			kept = append(kept, r)
		} else {
			dropped++
		}
	}
	st.Reminders = kept
	return dropped
}

func (st *fileState) dropTasks(drop func(t Task) bool) []int64 {
	var removed []int64
	kept := st.Tasks[:0]
	for _, t := range st.Tasks {
		if drop(t) {
			removed = append(removed, t.ID)
		} else {
			kept = append(kept, t)
		}
	}
	st.Tasks = kept
	return removed
}

// fileStore keeps the whole dataset in memory behind a mutex and rewrites the
// JSON document atomically after every mutation. A mutation is applied to a
// copy and only becomes visible once the file has been written.
type fileStore struct {
	mu     sync.RWMutex
	path   string
	state  *fileState
	logger *slog.Logger
}

// NewFileStore opens (or creates) a JSON file backed Store at path.
func NewFileStore(path string, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &fileStore{
		path:   path,
		state:  &fileState{Recipients: map[string]int64{}},
		logger: logger.With("component", "store", "backend", BackendJSONFile),
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		s.logger.Info("Task file not found, starting empty", "path", path)
	case err != nil:
		return nil, apperr.NewPersistence("failed to read task file", err)
	case len(data) > 0:
		if err := json.Unmarshal(data, s.state); err != nil {
			return nil, apperr.NewPersistence("failed to parse task file", err)
		}
		if s.state.Recipients == nil {
			s.state.Recipients = map[string]int64{}
		}
	}

	s.logger.Info("Task file opened", "path", path, "tasks", len(s.state.Tasks), "reminders", len(s.state.Reminders))
	return s, nil
}

func (s *fileStore) write(st *fileState) error {
	data, err := json.MarshalIndent(st, "", "    ")
	if err != nil {
		return apperr.NewPersistence("failed to encode task file", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return apperr.NewPersistence("failed to create temporary task file", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return apperr.NewPersistence("failed to write task file", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return apperr.NewPersistence("failed to sync task file", err)
	}
	if err := tmp.Close(); err != nil {
		return apperr.NewPersistence("failed to close task file", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return apperr.NewPersistence("failed to replace task file", err)
	}
	return nil
}

// mutate applies fn to a copy of the state and commits it by writing the file.
func (s *fileStore) mutate(ctx context.Context, op string, fn func(st *fileState) error) error {
	if err := ctx.Err(); err != nil {
		return apperr.NewPersistence(op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.clone()
	if err := fn(next); err != nil {
		return err
	}
	if err := s.write(next); err != nil {
		s.logger.ErrorContext(ctx, "Failed to persist task file", "operation", op, "error", err)
		return err
	}
	s.state = next
	return nil
}

func (s *fileStore) read(ctx context.Context, fn func(st *fileState)) error {
	if err := ctx.Err(); err != nil {
		return apperr.NewPersistence("read", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.state)
	return nil
}

func (s *fileStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *fileStore) Close() error {
	return nil
}

func (s *fileStore) CreateTask(ctx context.Context, ownerID, title string, due schedule.Date) (int64, error) {
	task, err := s.CreateTaskWithReminders(ctx, ownerID, title, due, nil)
	if err != nil {
		return 0, err
	}
	return task.ID, nil
}

func (s *fileStore) AttachReminders(ctx context.Context, taskID int64, dates []schedule.Date) error {
	return s.mutate(ctx, "attach reminders", func(st *fileState) error {
		if _, ok := st.task(taskID); !ok {
			return apperr.NewNotFound(fmt.Sprintf("task %d not found", taskID))
		}
		st.addReminders(taskID, dates)
		return nil
	})
}

func (s *fileStore) CreateTaskWithReminders(ctx context.Context, ownerID, title string, due schedule.Date, dates []schedule.Date) (*Task, error) {
	var task Task
	err := s.mutate(ctx, "create task", func(st *fileState) error {
		now := time.Now().UTC()
		st.NextTaskID++
		task = Task{ID: st.NextTaskID, OwnerID: ownerID, Title: title, DueDate: due, CreatedAt: now, UpdatedAt: now}
		st.Tasks = append(st.Tasks, task)
		st.addReminders(task.ID, dates)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.DebugContext(ctx, "Task created with reminders", "task_id", task.ID, "owner_id", ownerID, "reminders", len(dates))
	return &task, nil
}

func (s *fileStore) GetTask(ctx context.Context, taskID int64) (*Task, error) {
	var (
		task  Task
		found bool
	)
	if err := s.read(ctx, func(st *fileState) {
		if i, ok := st.task(taskID); ok {
			task, found = st.Tasks[i], true
		}
	}); err != nil {
		return nil, err
	}
	if !found {
		return nil, apperr.NewNotFound(fmt.Sprintf("task %d not found", taskID))
	}
	return &task, nil
}

func (s *fileStore) ListReminders(ctx context.Context, taskID int64) ([]ReminderDate, error) {
	reminders := []ReminderDate{}
	if err := s.read(ctx, func(st *fileState) {
		for _, r := range st.Reminders {
			if r.TaskID == taskID {
				reminders = append(reminders, r)
			}
		}
	}); err != nil {
		return nil, err
	}
	sort.SliceStable(reminders, func(i, j int) bool {
		if c := reminders[i].Date.Compare(reminders[j].Date); c != 0 {
			return c < 0
		}
		return reminders[i].ID < reminders[j].ID
	})
	return reminders, nil
}

func (s *fileStore) DeleteTask(ctx context.Context, taskID int64, ownerID string) (bool, error) {
	var removed bool
	err := s.mutate(ctx, "delete task", func(st *fileState) error {
		ids := st.dropTasks(func(t Task) bool {
			return t.ID == taskID && (ownerID == AnyOwner || t.OwnerID == ownerID)
		})
		if len(ids) == 0 {
			return nil
		}
		removed = true
		st.dropReminders(func(r ReminderDate) bool { return r.TaskID != taskID })
		return nil
	})
	return removed, err
}

func (s *fileStore) DeletePastDueTask(ctx context.Context, taskID int64, date schedule.Date) (bool, error) {
	var removed bool
	err := s.mutate(ctx, "delete past due task", func(st *fileState) error {
		ids := st.dropTasks(func(t Task) bool {
			return t.ID == taskID && !t.DueDate.After(date)
		})
		if len(ids) == 0 {
			return nil
		}
		removed = true
		st.dropReminders(func(r ReminderDate) bool { return r.TaskID != taskID })
		return nil
	})
	return removed, err
}

func (s *fileStore) DeleteTasksByTitleAndOwner(ctx context.Context, title, ownerID string) (bool, error) {
	var removed bool
	err := s.mutate(ctx, "delete tasks by title", func(st *fileState) error {
		ids := st.dropTasks(func(t Task) bool { return t.Title == title && t.OwnerID == ownerID })
		if len(ids) == 0 {
			return nil
		}
		removed = true
		gone := make(map[int64]bool, len(ids))
		for _, id := range ids {
			gone[id] = true
		}
		st.dropReminders(func(r ReminderDate) bool { return !gone[r.TaskID] })
		return nil
	})
	return removed, err
}

func (s *fileStore) ListTasksForOwner(ctx context.Context, ownerID string) ([]TaskSummary, error) {
	summaries := []TaskSummary{}
	if err := s.read(ctx, func(st *fileState) {
		counts := map[int64]int{}
		for _, r := range st.Reminders {
			counts[r.TaskID]++
		}
		for _, t := range st.Tasks {
			if t.OwnerID == ownerID {
				summaries = append(summaries, TaskSummary{Task: t, ReminderCount: counts[t.ID]})
			}
		}
	}); err != nil {
		return nil, err
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		return lessTask(summaries[i].Task, summaries[j].Task)
	})
	return summaries, nil
}

func (s *fileStore) UpdateTask(ctx context.Context, taskID int64, ownerID, title string, due schedule.Date, dates []schedule.Date) error {
	return s.mutate(ctx, "update task", func(st *fileState) error {
		i, ok := st.task(taskID)
		if !ok || (ownerID != AnyOwner && st.Tasks[i].OwnerID != ownerID) {
			return apperr.NewNotFound(fmt.Sprintf("task %d not found", taskID))
		}
		st.Tasks[i].Title = title
		st.Tasks[i].DueDate = due
		st.Tasks[i].UpdatedAt = time.Now().UTC()
		st.dropReminders(func(r ReminderDate) bool { return r.TaskID != taskID })
		st.addReminders(taskID, dates)
		return nil
	})
}

func (s *fileStore) FindRemindersDueOn(ctx context.Context, date schedule.Date) ([]DueReminder, error) {
	return s.dueReminders(ctx, func(d schedule.Date) bool { return d.Compare(date) == 0 })
}

func (s *fileStore) FindRemindersPastDue(ctx context.Context, date schedule.Date) ([]DueReminder, error) {
	return s.dueReminders(ctx, func(d schedule.Date) bool { return d.Before(date) })
}

func (s *fileStore) dueReminders(ctx context.Context, match func(schedule.Date) bool) ([]DueReminder, error) {
	rows := []DueReminder{}
	if err := s.read(ctx, func(st *fileState) {
		earliest := map[int64]schedule.Date{}
		for _, r := range st.Reminders {
			if !match(r.Date) {
				continue
			}
			if cur, ok := earliest[r.TaskID]; !ok || r.Date.Before(cur) {
				earliest[r.TaskID] = r.Date
			}
		}
		for _, t := range st.Tasks {
			if d, ok := earliest[t.ID]; ok {
				rows = append(rows, DueReminder{TaskID: t.ID, OwnerID: t.OwnerID, Title: t.Title, DueDate: t.DueDate, ReminderDate: d})
			}
		}
	}); err != nil {
		return nil, err
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if c := rows[i].DueDate.Compare(rows[j].DueDate); c != 0 {
			return c < 0
		}
		return rows[i].TaskID < rows[j].TaskID
	})
	return rows, nil
}

func (s *fileStore) FindTasksPastDue(ctx context.Context, date schedule.Date) ([]Task, error) {
	tasks := []Task{}
	if err := s.read(ctx, func(st *fileState) {
		for _, t := range st.Tasks {
			if !t.DueDate.After(date) {
				tasks = append(tasks, t)
			}
		}
	}); err != nil {
		return nil, err
	}
	sort.SliceStable(tasks, func(i, j int) bool { return lessTask(tasks[i], tasks[j]) })
	return tasks, nil
}

func (s *fileStore) DeleteReminder(ctx context.Context, taskID int64, date schedule.Date) error {
	return s.mutate(ctx, "delete reminder", func(st *fileState) error {
		st.dropReminders(func(r ReminderDate) bool { return r.TaskID != taskID || r.Date.Compare(date) != 0 })
		return nil
	})
}

func (s *fileStore) DeleteStaleReminders(ctx context.Context, taskID int64, before schedule.Date) error {
	return s.mutate(ctx, "delete stale reminders", func(st *fileState) error {
		st.dropReminders(func(r ReminderDate) bool { return r.TaskID != taskID || !r.Date.Before(before) })
		return nil
	})
}

func (s *fileStore) SaveRecipient(ctx context.Context, ownerID string, chatID int64) error {
	return s.mutate(ctx, "save recipient", func(st *fileState) error {
		st.Recipients[ownerID] = chatID
		return nil
	})
}

func (s *fileStore) GetRecipient(ctx context.Context, ownerID string) (int64, bool, error) {
	var (
		chatID int64
		ok     bool
	)
	err := s.read(ctx, func(st *fileState) {
		chatID, ok = st.Recipients[ownerID]
	})
	return chatID, ok, err
}

// RunSQLMaintenance rewrites the document, dropping reminders whose task no
// longer exists.
func (s *fileStore) RunSQLMaintenance(ctx context.Context) error {
	return s.mutate(ctx, "compact task file", func(st *fileState) error {
		live := make(map[int64]bool, len(st.Tasks))
		for _, t := range st.Tasks {
			live[t.ID] = true
		}
		dropped := st.dropReminders(func(r ReminderDate) bool { return live[r.TaskID] })
		s.logger.InfoContext(ctx, "Task file compacted", "orphaned_reminders_removed", dropped)
		return nil
	})
}

func lessTask(a, b Task) bool {
	if c := a.DueDate.Compare(b.DueDate); c != 0 {
		return c < 0
	}
	return a.ID < b.ID
}
