package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	apperr "github.com/edgard/remindbot/internal/errors"
)

// NewRemoveHandler returns a handler for "/remove <id or exact name>".
func NewRemoveHandler(deps HandlerDeps) bot.HandlerFunc {
	return removeHandler{deps}.Handle
}

type removeHandler struct {
	deps HandlerDeps
}

func (h removeHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "remove")
	if !validMessage(ctx, log, update) {
		return
	}
	msgs := h.deps.Config.Messages

	arg := commandArgs(update.Message.Text)
	if arg == "" {
		reply(ctx, h.deps, b, log, update, msgs.RemoveUsage)
		return
	}

	owner := ownerID(update)
	title, err := h.remove(ctx, owner, arg)
	if err != nil {
		replyError(ctx, h.deps, b, log, update, err, msgs.RemoveUsage)
		return
	}

	log.InfoContext(ctx, "Task removed from chat", "owner_id", owner, "arg", arg)
	reply(ctx, h.deps, b, log, update, fmt.Sprintf(msgs.RemovedFmt, title))
}

// remove deletes by id when arg is "#12" or "12" and an owned task has that
// id, otherwise by exact title. It returns the removed title.
func (h removeHandler) remove(ctx context.Context, owner, arg string) (string, error) {
	if id, err := strconv.ParseInt(strings.TrimPrefix(arg, "#"), 10, 64); err == nil {
		detail, err := h.deps.Service.TaskReminders(ctx, id, owner)
		switch {
		case err == nil:
			if err := h.deps.Service.RemoveTask(ctx, id, owner); err != nil {
				return "", err
			}
			return detail.Task.Title, nil
		case !apperr.IsNotFound(err):
			return "", err
		}
	}

	if err := h.deps.Service.RemoveTaskByTitle(ctx, arg, owner); err != nil {
		return "", err
	}
	return arg, nil
}
