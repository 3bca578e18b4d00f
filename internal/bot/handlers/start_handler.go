package handlers

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewStartHandler returns a handler for the /start command.
func NewStartHandler(deps HandlerDeps) bot.HandlerFunc {
	return startHandler{deps}.Handle
}

// startHandler processes the /start command using injected dependencies.
type startHandler struct {
	deps HandlerDeps
}

func (h startHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "start")
	if !validMessage(ctx, log, update) {
		return
	}

	log.InfoContext(ctx, "Handling /start command", "chat_id", update.Message.Chat.ID, "user_id", update.Message.From.ID)

	rememberChat(ctx, h.deps, log, update)
	reply(ctx, h.deps, b, log, update, withBotName(h.deps, h.deps.Config.Messages.Welcome))
}

// withBotName fills the @botname placeholder once the bot's username is known.
func withBotName(deps HandlerDeps, text string) string {
	if info := deps.Config.Telegram.BotInfo; info != nil && info.Username != "" {
		return strings.ReplaceAll(text, "@botname", "@"+info.Username)
	}
	return text
}
