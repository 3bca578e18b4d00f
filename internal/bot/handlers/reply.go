package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	apperr "github.com/edgard/remindbot/internal/errors"
	"github.com/edgard/remindbot/internal/reminder"
)

// reply sends text to the chat the update came from.
func reply(ctx context.Context, deps HandlerDeps, b *bot.Bot, log *slog.Logger, update *models.Update, text string) {
	chatID := update.Message.Chat.ID
	_, err := deps.sender(b).SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text})
	if err != nil {
		log.ErrorContext(ctx, "Failed to send reply", "error", err, "chat_id", chatID)
	}
}

// replyError answers with a text matching the error code. usage is shown
// for invalid input.
func replyError(ctx context.Context, deps HandlerDeps, b *bot.Bot, log *slog.Logger, update *models.Update, err error, usage string) {
	msgs := deps.Config.Messages
	switch {
	case apperr.IsInvalidInput(err):
		log.InfoContext(ctx, "Rejected command input", "error", err)
		reply(ctx, deps, b, log, update, "❌ "+apperr.UserMessage(err)+"\n"+usage)
	case apperr.IsNotFound(err):
		log.InfoContext(ctx, "Task not found", "error", err)
		reply(ctx, deps, b, log, update, msgs.NotFound)
	default:
		log.ErrorContext(ctx, "Command failed", "error", err, "code", apperr.Code(err))
		reply(ctx, deps, b, log, update, msgs.GeneralError)
	}
}

// validMessage reports whether update carries a message with a sender.
func validMessage(ctx context.Context, log *slog.Logger, update *models.Update) bool {
	if update.Message == nil || update.Message.From == nil {
		log.WarnContext(ctx, "Handler received update with nil message or sender", "update_id", update.ID)
		return false
	}
	return true
}

// ownerID is the task owner for a message: the sender's Telegram user id.
func ownerID(update *models.Update) string {
	return strconv.FormatInt(update.Message.From.ID, 10)
}

// commandArgs strips the leading "/command" or "/command@botname".
func commandArgs(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return text
	}
	if i := strings.IndexAny(text, " \t\n"); i >= 0 {
		return strings.TrimSpace(text[i:])
	}
	return ""
}

// splitPipe splits "a | b | c" into trimmed fields.
func splitPipe(args string) []string {
	parts := strings.Split(args, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// parseTaskFields turns "Name", "jul 31 2025" and "3" into a TaskInput.
func parseTaskFields(service *reminder.Service, owner, title, due, count string) (reminder.TaskInput, error) {
	dueDate, err := service.ParseDueDate(due)
	if err != nil {
		return reminder.TaskInput{}, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(count))
	if err != nil {
		return reminder.TaskInput{}, apperr.NewInvalidInput(fmt.Sprintf("%q is not a number of reminders", count), err)
	}
	return reminder.TaskInput{
		OwnerID: owner,
		Title:   title,
		DueDate: dueDate,
		Count:   n,
	}, nil
}

// rememberChat records the chat an owner talks to the bot from, so
// notifications can reach them there.
func rememberChat(ctx context.Context, deps HandlerDeps, log *slog.Logger, update *models.Update) {
	if deps.Recipients == nil {
		return
	}
	if err := deps.Recipients.SaveRecipient(ctx, ownerID(update), update.Message.Chat.ID); err != nil {
		log.WarnContext(ctx, "Failed to remember recipient chat", "error", err, "chat_id", update.Message.Chat.ID)
	}
}
