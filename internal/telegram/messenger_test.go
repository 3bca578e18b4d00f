package telegram

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/remindbot/internal/bot/handlers"
	"github.com/edgard/remindbot/internal/database"
	apperr "github.com/edgard/remindbot/internal/errors"
	"github.com/edgard/remindbot/internal/logger"
	"github.com/edgard/remindbot/internal/reminder"
)

type fakeSender struct {
	err  error
	sent []*bot.SendMessageParams
}

func (f *fakeSender) SendMessage(_ context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	f.sent = append(f.sent, params)
	if f.err != nil {
		return nil, f.err
	}
	return &models.Message{ID: len(f.sent)}, nil
}

func newRecipients(t *testing.T) database.Store {
	t.Helper()
	store, err := database.OpenStore(database.BackendJSONFile, filepath.Join(t.TempDir(), "tasks.json"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestMessengerResolveRecipient(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newRecipients(t)
	require.NoError(t, store.SaveRecipient(ctx, "42", -100))

	m := NewMessenger(&fakeSender{}, store, 10, 1, logger.Discard())

	chatID, err := m.ResolveRecipient(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, int64(-100), chatID)

	chatID, err = m.ResolveRecipient(ctx, "77")
	require.NoError(t, err)
	assert.Equal(t, int64(77), chatID, "unknown numeric owners get their private chat")

	_, err = m.ResolveRecipient(ctx, "alice@example.com")
	assert.True(t, apperr.IsNotFound(err))
}

func TestMessengerSendMapsErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	sender := &fakeSender{}
	m := NewMessenger(sender, newRecipients(t), 100, 5, logger.Discard())
	require.NoError(t, m.Send(ctx, 5, "hello"))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "hello", sender.sent[0].Text)
	assert.Equal(t, int64(5), sender.sent[0].ChatID)

	sender.err = fmt.Errorf("%w, Forbidden: bot was blocked by the user", bot.ErrorForbidden)
	err := m.Send(ctx, 5, "hello")
	assert.True(t, apperr.IsDelivery(err))
	assert.ErrorIs(t, err, bot.ErrorForbidden)

	sender.err = errors.New("connection reset")
	assert.True(t, apperr.IsDelivery(m.Send(ctx, 5, "hello")))
}

func TestMessengerThrottleRespectsDeadline(t *testing.T) {
	t.Parallel()

	m := NewMessenger(&fakeSender{}, newRecipients(t), 0.001, 1, logger.Discard())
	require.NoError(t, m.Send(context.Background(), 5, "first"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.True(t, apperr.IsDelivery(m.Send(ctx, 5, "second")))
}

func TestMessengerAsNotifier(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	sender := &fakeSender{}
	notifier := reminder.NewMessengerNotifier(NewMessenger(sender, newRecipients(t), 100, 5, logger.Discard()), time.Second, logger.Discard())

	assert.True(t, notifier.Notify(ctx, "42", "due!"))
	assert.False(t, notifier.Notify(ctx, "not-a-user", "due!"))

	sender.err = bot.ErrorForbidden
	assert.False(t, notifier.Notify(ctx, "42", "due!"))
	assert.Len(t, sender.sent, 2)
}

func TestRegisterHandlers(t *testing.T) {
	t.Parallel()

	b, err := NewTelegramBot("123456789:test-token", logger.Discard(), bot.WithSkipGetMe())
	require.NoError(t, err)

	regs := map[string]handlers.RegisteredHandler{
		"/ping": {
			HandlerType: bot.HandlerTypeMessageText,
			Pattern:     "ping",
			MatchType:   bot.MatchTypeCommandStartOnly,
			Handler:     func(context.Context, *bot.Bot, *models.Update) {},
		},
		"/nil": {Pattern: "nil"},
	}
	require.NoError(t, RegisterHandlers(b, logger.Discard(), regs))
	assert.Error(t, RegisterHandlers(nil, logger.Discard(), regs))

	_, err = NewTelegramBot("", logger.Discard())
	assert.Error(t, err)
}

func TestApplyMiddlewareOrder(t *testing.T) {
	t.Parallel()

	var order []string
	mw := func(name string) bot.Middleware {
		return func(next bot.HandlerFunc) bot.HandlerFunc {
			return func(ctx context.Context, b *bot.Bot, u *models.Update) {
				order = append(order, name)
				next(ctx, b, u)
			}
		}
	}

	h := applyMiddleware(func(context.Context, *bot.Bot, *models.Update) { order = append(order, "handler") },
		[]bot.Middleware{mw("outer"), mw("inner")})
	h(context.Background(), nil, &models.Update{})

	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}
