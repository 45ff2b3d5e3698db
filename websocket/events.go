package websocket

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/anjiri1684/matchchat/models"
)

// AuthFrame is the first frame a client must send after the upgrade.
type AuthFrame struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

type inboundFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type SendMessagePayload struct {
	ReceiverID uuid.UUID `json:"receiver_id" validate:"required"`
	Content    string    `json:"content"`
}

type TypingPayload struct {
	ReceiverID uuid.UUID `json:"receiver_id" validate:"required"`
}

type MarkAsReadPayload struct {
	MessageID uuid.UUID `json:"message_id" validate:"required"`
}

type MarkAllAsReadPayload struct {
	SenderID uuid.UUID `json:"sender_id" validate:"required"`
}

type MessageSentEvent struct {
	Success bool            `json:"success"`
	Message *models.Message `json:"message"`
}

type MessageErrorEvent struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type AuthenticatedEvent struct {
	UserID uuid.UUID `json:"user_id"`
}

type ErrorEvent struct {
	Event string `json:"event,omitempty"`
	Error string `json:"error"`
}
