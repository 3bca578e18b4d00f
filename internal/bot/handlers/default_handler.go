package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewDefaultHandler returns the handler for messages no command matched.
// Private chats get the help text; group chatter is ignored.
func NewDefaultHandler(deps HandlerDeps) bot.HandlerFunc {
	return defaultHandler{deps}.Handle
}

type defaultHandler struct {
	deps HandlerDeps
}

func (h defaultHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "default")
	if update.Message == nil || update.Message.From == nil {
		return
	}
	if update.Message.Chat.Type != models.ChatTypePrivate {
		return
	}

	log.DebugContext(ctx, "Unrecognized private message", "user_id", update.Message.From.ID)
	rememberChat(ctx, h.deps, log, update)
	reply(ctx, h.deps, b, log, update, withBotName(h.deps, h.deps.Config.Messages.Help))
}
