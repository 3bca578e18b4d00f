package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewEditHandler returns a handler for "/edit <id> | Name | jul 31 2025 | 3".
func NewEditHandler(deps HandlerDeps) bot.HandlerFunc {
	return editHandler{deps}.Handle
}

type editHandler struct {
	deps HandlerDeps
}

func (h editHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "edit")
	if !validMessage(ctx, log, update) {
		return
	}
	msgs := h.deps.Config.Messages

	parts := splitPipe(commandArgs(update.Message.Text))
	if len(parts) != 4 {
		reply(ctx, h.deps, b, log, update, msgs.EditUsage)
		return
	}

	taskID, err := strconv.ParseInt(strings.TrimPrefix(parts[0], "#"), 10, 64)
	if err != nil {
		reply(ctx, h.deps, b, log, update, msgs.EditUsage)
		return
	}

	owner := ownerID(update)
	input, err := parseTaskFields(h.deps.Service, owner, parts[1], parts[2], parts[3])
	if err != nil {
		replyError(ctx, h.deps, b, log, update, err, msgs.EditUsage)
		return
	}

	task, dates, err := h.deps.Service.EditTask(ctx, taskID, input)
	if err != nil {
		replyError(ctx, h.deps, b, log, update, err, msgs.EditUsage)
		return
	}

	rememberChat(ctx, h.deps, log, update)
	layout := h.deps.Config.Reminder.DateLayout
	reply(ctx, h.deps, b, log, update,
		fmt.Sprintf(msgs.EditedFmt, task.ID, task.Title, task.DueDate.Format(layout), len(dates))+
			"\n\n"+reminderLines(msgs.ReminderLineFmt, layout, dates))
}
