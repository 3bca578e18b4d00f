package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"golang.org/x/time/rate"

	"github.com/edgard/remindbot/internal/database"
	apperr "github.com/edgard/remindbot/internal/errors"
)

// messageSender is the part of *bot.Bot the messenger needs.
type messageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// Messenger delivers reminder notifications through Telegram. It resolves
// owners to chats through the recipient store and throttles outgoing sends
// below Telegram's flood limits.
type Messenger struct {
	sender     messageSender
	recipients database.RecipientStore
	limiter    *rate.Limiter
	log        *slog.Logger
}

// NewMessenger creates a Messenger sending at most ratePerSecond messages
// per second with bursts of burst.
func NewMessenger(sender messageSender, recipients database.RecipientStore, ratePerSecond float64, burst int, logger *slog.Logger) *Messenger {
	if burst < 1 {
		burst = 1
	}
	return &Messenger{
		sender:     sender,
		recipients: recipients,
		limiter:    rate.NewLimiter(rate.Limit(ratePerSecond), burst),
		log:        logger.With("component", "telegram_messenger"),
	}
}

// ResolveRecipient returns the chat the owner last used with the bot. Owners
// never seen fall back to their private chat, whose id is the numeric user id.
func (m *Messenger) ResolveRecipient(ctx context.Context, ownerID string) (int64, error) {
	chatID, ok, err := m.recipients.GetRecipient(ctx, ownerID)
	if err != nil {
		return 0, err
	}
	if ok {
		return chatID, nil
	}

	userID, err := strconv.ParseInt(ownerID, 10, 64)
	if err != nil {
		return 0, apperr.NewNotFound(fmt.Sprintf("no chat known for owner %q", ownerID))
	}
	return userID, nil
}

// Send posts text to chatID, waiting for the rate limiter first.
func (m *Messenger) Send(ctx context.Context, chatID int64, text string) error {
	if err := m.limiter.Wait(ctx); err != nil {
		return apperr.NewDelivery("send throttled past deadline", err)
	}

	_, err := m.sender.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bot.ErrorForbidden):
		return apperr.NewDelivery("recipient blocked the bot or never started it", err)
	default:
		return apperr.NewDelivery("failed to send telegram message", err)
	}
}
