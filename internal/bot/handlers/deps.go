package handlers

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/remindbot/internal/config"
	"github.com/edgard/remindbot/internal/database"
	"github.com/edgard/remindbot/internal/reminder"
)

// MessageSender is the part of *bot.Bot the handlers use to reply.
type MessageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// HandlerDeps provides dependencies for Telegram command handlers.
type HandlerDeps struct {
	Logger     *slog.Logger
	Config     *config.Config
	Recipients database.RecipientStore
	Service    *reminder.Service
	Reconciler *reminder.Reconciler

	// Sender overrides the bot passed to handlers. Tests set it.
	Sender MessageSender
}

func (d HandlerDeps) sender(b *bot.Bot) MessageSender {
	if d.Sender != nil {
		return d.Sender
	}
	return b
}
