package reminder

import (
	"context"
	"log/slog"
	"time"

	apperr "github.com/edgard/remindbot/internal/errors"
)

// Notifier delivers one message to the owner of a task. It reports whether
// the message was delivered; failures are logged by the implementation and
// never returned, since the caller cleans up either way.
type Notifier interface {
	Notify(ctx context.Context, ownerID, message string) bool
}

// Messenger is the chat-platform side of delivery.
type Messenger interface {
	// ResolveRecipient maps an owner id to a chat. It returns a NOT_FOUND
	// error when the owner cannot be reached.
	ResolveRecipient(ctx context.Context, ownerID string) (int64, error)

	// Send posts text to the resolved chat.
	Send(ctx context.Context, chatID int64, text string) error
}

// MessengerNotifier adapts a Messenger into a Notifier with a bounded timeout
// per delivery attempt.
type MessengerNotifier struct {
	messenger Messenger
	timeout   time.Duration
	logger    *slog.Logger
}

// NewMessengerNotifier creates a Notifier sending through messenger.
func NewMessengerNotifier(messenger Messenger, timeout time.Duration, logger *slog.Logger) *MessengerNotifier {
	return &MessengerNotifier{
		messenger: messenger,
		timeout:   timeout,
		logger:    logger.With("component", "notifier"),
	}
}

// Notify resolves ownerID and sends message. It returns false on any failure.
func (n *MessengerNotifier) Notify(ctx context.Context, ownerID, message string) bool {
	ctx, cancel := boundedContext(ctx, n.timeout)
	defer cancel()

	chatID, err := n.messenger.ResolveRecipient(ctx, ownerID)
	if err != nil {
		n.logger.WarnContext(ctx, "Could not resolve recipient",
			"owner_id", ownerID,
			"code", apperr.Code(err),
			"error", err)
		return false
	}

	if err := n.messenger.Send(ctx, chatID, message); err != nil {
		n.logger.WarnContext(ctx, "Notification delivery failed",
			"owner_id", ownerID,
			"chat_id", chatID,
			"code", apperr.Code(err),
			"error", err)
		return false
	}

	n.logger.DebugContext(ctx, "Notification delivered", "owner_id", ownerID, "chat_id", chatID)
	return true
}

// LogNotifier records notifications in the log instead of sending them. The
// operator CLI uses it when no chat transport is configured.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With("component", "log_notifier")}
}

// Notify logs the message and reports it as delivered.
func (n *LogNotifier) Notify(ctx context.Context, ownerID, message string) bool {
	n.logger.InfoContext(ctx, "Notification", "owner_id", ownerID, "message", message)
	return true
}
