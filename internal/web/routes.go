package web

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/edgard/remindbot/internal/reminder"
)

type ownerPath struct {
	OwnerID string `path:"owner_id" minLength:"1"`
}

type taskPath struct {
	OwnerID string `path:"owner_id" minLength:"1"`
	TaskID  int64  `path:"task_id"`
}

func registerHealth(api huma.API, health Pinger) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Errors:      []int{http.StatusServiceUnavailable},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		if health != nil {
			if err := health.Ping(ctx); err != nil {
				return nil, newAPIError(http.StatusServiceUnavailable, "", "store unreachable", nil)
			}
		}
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerTasks(api huma.API, svc *reminder.Service) {
	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/owners/{owner_id}/tasks",
		Summary:     "List an owner's tasks by due date",
	}, func(ctx context.Context, input *ownerPath) (*struct {
		Body []TaskSummaryResponse `json:"body"`
	}, error) {
		tasks, err := svc.ListTasks(ctx, input.OwnerID)
		if err != nil {
			return nil, handleError(err)
		}
		out := make([]TaskSummaryResponse, 0, len(tasks))
		for _, t := range tasks {
			out = append(out, summaryResponse(t))
		}
		return &struct {
			Body []TaskSummaryResponse `json:"body"`
		}{Body: out}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/owners/{owner_id}/tasks",
		Summary:       "Schedule a task and its reminders",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		ownerPath
		Body TaskRequest `json:"body"`
	}) (*struct {
		Body TaskDetailResponse `json:"body"`
	}, error) {
		taskInput, err := toTaskInput(svc, input.OwnerID, input.Body)
		if err != nil {
			return nil, handleError(err)
		}
		task, dates, err := svc.CreateTask(ctx, taskInput)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body TaskDetailResponse `json:"body"`
		}{Body: detailResponse(*task, dates)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-task",
		Method:      http.MethodGet,
		Path:        "/owners/{owner_id}/tasks/{task_id}",
		Summary:     "Get a task with its pending reminders",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *taskPath) (*struct {
		Body TaskDetailResponse `json:"body"`
	}, error) {
		detail, err := svc.TaskReminders(ctx, input.TaskID, input.OwnerID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body TaskDetailResponse `json:"body"`
		}{Body: fromDetail(detail)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "replace-task",
		Method:      http.MethodPut,
		Path:        "/owners/{owner_id}/tasks/{task_id}",
		Summary:     "Replace a task and regenerate its reminders",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		taskPath
		Body TaskRequest `json:"body"`
	}) (*struct {
		Body TaskDetailResponse `json:"body"`
	}, error) {
		taskInput, err := toTaskInput(svc, input.OwnerID, input.Body)
		if err != nil {
			return nil, handleError(err)
		}
		task, dates, err := svc.EditTask(ctx, input.TaskID, taskInput)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body TaskDetailResponse `json:"body"`
		}{Body: detailResponse(*task, dates)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-task",
		Method:        http.MethodDelete,
		Path:          "/owners/{owner_id}/tasks/{task_id}",
		Summary:       "Delete a task and its reminders",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound},
	}, func(ctx context.Context, input *taskPath) (*struct{}, error) {
		if err := svc.RemoveTask(ctx, input.TaskID, input.OwnerID); err != nil {
			return nil, handleError(err)
		}
		return nil, nil
	})
}

func registerPreview(api huma.API, svc *reminder.Service) {
	huma.Register(api, huma.Operation{
		OperationID: "preview-schedule",
		Method:      http.MethodPost,
		Path:        "/schedule/preview",
		Summary:     "Compute reminder dates without saving anything",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body PreviewRequest `json:"body"`
	}) (*struct {
		Body PreviewResponse `json:"body"`
	}, error) {
		due, err := svc.ParseDueDate(input.Body.DueDate)
		if err != nil {
			return nil, handleError(err)
		}
		dates, err := svc.PreviewSchedule(due, input.Body.Count)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body PreviewResponse `json:"body"`
		}{Body: PreviewResponse{Today: svc.Today().String(), Reminders: dateStrings(dates)}}, nil
	})
}

func toTaskInput(svc *reminder.Service, ownerID string, body TaskRequest) (reminder.TaskInput, error) {
	due, err := svc.ParseDueDate(body.DueDate)
	if err != nil {
		return reminder.TaskInput{}, err
	}
	return reminder.TaskInput{
		OwnerID: ownerID,
		Title:   body.Title,
		DueDate: due,
		Count:   body.Count,
	}, nil
}
