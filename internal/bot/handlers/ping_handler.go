package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewPingHandler returns a handler for the /ping command.
func NewPingHandler(deps HandlerDeps) bot.HandlerFunc {
	return pingHandler{deps}.Handle
}

type pingHandler struct {
	deps HandlerDeps
}

func (h pingHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "ping")
	if !validMessage(ctx, log, update) {
		return
	}
	reply(ctx, h.deps, b, log, update, h.deps.Config.Messages.Pong)
}
