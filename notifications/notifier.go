//go:generate go run go.uber.org/mock/mockgen -source=notifier.go -destination=../mocks/mock_notifier.go -package=mocks
package notifications

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Notifier delivers a best-effort out-of-band push to a user that has no live
// connection.
type Notifier interface {
	NotifyNewMessage(ctx context.Context, receiverID uuid.UUID, senderName, content string) error
}

// LogNotifier stands in when no push provider is configured.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) NotifyNewMessage(_ context.Context, receiverID uuid.UUID, senderName, _ string) error {
	n.log.Debug("Push provider disabled, notification skipped", "receiver_id", receiverID, "sender", senderName)
	return nil
}
