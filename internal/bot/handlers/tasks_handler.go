package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewTasksHandler returns a handler for the /tasks command.
func NewTasksHandler(deps HandlerDeps) bot.HandlerFunc {
	return tasksHandler{deps}.Handle
}

type tasksHandler struct {
	deps HandlerDeps
}

func (h tasksHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "tasks")
	if !validMessage(ctx, log, update) {
		return
	}
	msgs := h.deps.Config.Messages

	tasks, err := h.deps.Service.ListTasks(ctx, ownerID(update))
	if err != nil {
		replyError(ctx, h.deps, b, log, update, err, "")
		return
	}
	if len(tasks) == 0 {
		reply(ctx, h.deps, b, log, update, msgs.NoTasks)
		return
	}

	var sb strings.Builder
	sb.WriteString(msgs.TaskListHeader)
	for _, t := range tasks {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf(msgs.TaskLineFmt, t.ID, t.Title, t.DueDate.Format(h.deps.Config.Reminder.DateLayout), t.ReminderCount))
	}
	reply(ctx, h.deps, b, log, update, sb.String())
}
