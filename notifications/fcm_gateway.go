package notifications

import (
	"context"
	"fmt"
	"log/slog"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/google/uuid"
	"google.golang.org/api/option"

	apperrors "github.com/anjiri1684/matchchat/errors"
	"github.com/anjiri1684/matchchat/repositories"
)

// maxBodyRunes bounds the notification body shown on the device.
const maxBodyRunes = 120

// MessagingClient is the part of the firebase messaging client the gateway
// needs.
type MessagingClient interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCMGateway resolves the receiver's device token and sends through Firebase
// Cloud Messaging. Users without a token or with notifications disabled are
// skipped silently.
type FCMGateway struct {
	client MessagingClient
	users  repositories.UserRepository
	log    *slog.Logger
}

func NewFCMGateway(client MessagingClient, users repositories.UserRepository, log *slog.Logger) *FCMGateway {
	return &FCMGateway{client: client, users: users, log: log}
}

// NewFirebaseMessaging builds a messaging client from a service account file.
func NewFirebaseMessaging(ctx context.Context, credentialsFile string) (*messaging.Client, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("firebase init: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase messaging: %w", err)
	}
	return client, nil
}

func (g *FCMGateway) NotifyNewMessage(ctx context.Context, receiverID uuid.UUID, senderName, content string) error {
	user, err := g.users.FindByID(ctx, receiverID)
	if err != nil {
		return fmt.Errorf("%w: resolve receiver: %v", apperrors.ErrNotificationDispatch, err)
	}
	if user.FCMToken == nil || *user.FCMToken == "" || !user.NotificationsEnabled {
		g.log.Debug("Receiver has no push target", "receiver_id", receiverID)
		return nil
	}

	id, err := g.client.Send(ctx, &messaging.Message{
		Token: *user.FCMToken,
		Notification: &messaging.Notification{
			Title: senderName,
			Body:  truncate(content, maxBodyRunes),
		},
		Data: map[string]string{
			"type":        "new_message",
			"sender_name": senderName,
		},
		Android: &messaging.AndroidConfig{Priority: "high"},
	})
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrNotificationDispatch, err)
	}
	g.log.Debug("Push notification sent", "receiver_id", receiverID, "fcm_message_id", id)
	return nil
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
