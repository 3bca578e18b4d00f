package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/remindbot/internal/schedule"
)

// NewScheduleHandler returns a handler for "/schedule Name | jul 31 2025 | 3".
func NewScheduleHandler(deps HandlerDeps) bot.HandlerFunc {
	return scheduleHandler{deps}.Handle
}

type scheduleHandler struct {
	deps HandlerDeps
}

func (h scheduleHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "schedule")
	if !validMessage(ctx, log, update) {
		return
	}
	msgs := h.deps.Config.Messages

	parts := splitPipe(commandArgs(update.Message.Text))
	if len(parts) != 3 {
		reply(ctx, h.deps, b, log, update, msgs.ScheduleUsage)
		return
	}

	owner := ownerID(update)
	input, err := parseTaskFields(h.deps.Service, owner, parts[0], parts[1], parts[2])
	if err != nil {
		replyError(ctx, h.deps, b, log, update, err, msgs.ScheduleUsage)
		return
	}

	task, dates, err := h.deps.Service.CreateTask(ctx, input)
	if err != nil {
		replyError(ctx, h.deps, b, log, update, err, msgs.ScheduleUsage)
		return
	}

	rememberChat(ctx, h.deps, log, update)
	log.InfoContext(ctx, "Task scheduled from chat", "task_id", task.ID, "chat_id", update.Message.Chat.ID)

	layout := h.deps.Config.Reminder.DateLayout
	reply(ctx, h.deps, b, log, update, fmt.Sprintf(msgs.ScheduledFmt,
		task.Title, task.DueDate.Format(layout), len(dates), reminderLines(msgs.ReminderLineFmt, layout, dates)))
}

// reminderLines renders one numbered line per reminder date.
func reminderLines(lineFmt, layout string, dates []schedule.Date) string {
	lines := make([]string, 0, len(dates))
	for i, d := range dates {
		lines = append(lines, fmt.Sprintf(lineFmt, i+1, d.Format(layout)))
	}
	return strings.Join(lines, "\n")
}
