package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/remindbot/internal/reminder"
)

// NewRunCycleHandler returns a handler for the admin /run_cycle command,
// which forces one reconciliation pass.
func NewRunCycleHandler(deps HandlerDeps) bot.HandlerFunc {
	return runCycleHandler{deps}.Handle
}

type runCycleHandler struct {
	deps HandlerDeps
}

func (h runCycleHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "run_cycle")
	if !validMessage(ctx, log, update) {
		return
	}
	msgs := h.deps.Config.Messages

	log.InfoContext(ctx, "Admin requested reconciliation cycle", "chat_id", update.Message.Chat.ID)

	report, err := h.deps.Reconciler.TryRunCycle(ctx)
	if errors.Is(err, reminder.ErrCycleRunning) {
		reply(ctx, h.deps, b, log, update, msgs.CycleBusy)
		return
	}
	if err != nil {
		replyError(ctx, h.deps, b, log, update, err, "")
		return
	}

	reply(ctx, h.deps, b, log, update, fmt.Sprintf(msgs.CycleDoneFmt,
		report.PastDueTasks, report.RemindersFired, report.StaleRemoved, report.Errors+report.NotifyFailed))
}
