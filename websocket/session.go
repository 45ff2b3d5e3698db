package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	apperrors "github.com/anjiri1684/matchchat/errors"
	"github.com/anjiri1684/matchchat/models"
	"github.com/anjiri1684/matchchat/presence"
)

// Authenticator resolves the identity carried by a bearer token.
type Authenticator func(token string) (uuid.UUID, error)

type ChatService interface {
	SendMessage(ctx context.Context, senderID, receiverID uuid.UUID, content string) (*models.Message, error)
	MarkAsRead(ctx context.Context, messageID, readerID uuid.UUID) (*models.Message, error)
	MarkAllAsRead(ctx context.Context, senderID, readerID uuid.UUID) (int64, error)
	NotifyTyping(senderID, receiverID uuid.UUID, isTyping bool)
}

type PresenceService interface {
	Connect(ctx context.Context, userID uuid.UUID, conn presence.Connection) bool
	Disconnect(ctx context.Context, userID uuid.UUID, conn presence.Connection) bool
}

// Dependencies are the handles every session receives at start.
type Dependencies struct {
	Chat         ChatService
	Presence     PresenceService
	Authenticate Authenticator
	Validate     *validator.Validate
	Log          *slog.Logger
}

// Session owns one live connection from handshake to close. It is the only
// reader of its transport.
type Session struct {
	deps      Dependencies
	transport Transport
	conn      *Conn
	userID    uuid.UUID
	log       *slog.Logger
}

func NewSession(transport Transport, deps Dependencies) *Session {
	if deps.Validate == nil {
		deps.Validate = validator.New()
	}
	return &Session{deps: deps, transport: transport, conn: NewConn(transport), log: deps.Log}
}

// Serve runs the handshake then the event loop until the client goes away.
func (s *Session) Serve(ctx context.Context) {
	defer func() { _ = s.conn.Close() }()

	if err := s.handshake(); err != nil {
		s.log.Warn("WebSocket auth failed", "connection_id", s.conn.ID(), "error", err)
		_ = s.conn.Emit(models.EventError, ErrorEvent{Error: err.Error()})
		return
	}

	s.log = s.log.With("user_id", s.userID, "connection_id", s.conn.ID())
	s.deps.Presence.Connect(ctx, s.userID, s.conn)
	defer s.deps.Presence.Disconnect(ctx, s.userID, s.conn)
	s.log.Info("WebSocket client connected")

	_ = s.conn.Emit(models.EventAuthenticated, AuthenticatedEvent{UserID: s.userID})

	for {
		var frame inboundFrame
		if err := s.transport.ReadJSON(&frame); err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				_ = s.conn.Emit(models.EventError, ErrorEvent{Error: "malformed frame"})
				continue
			}
			s.log.Info("WebSocket client disconnected", "reason", err)
			return
		}
		s.dispatch(ctx, frame)
	}
}

func (s *Session) handshake() error {
	var auth AuthFrame
	if err := s.transport.ReadJSON(&auth); err != nil || auth.Type != "auth" {
		return fmt.Errorf("invalid or missing auth message")
	}
	userID, err := s.deps.Authenticate(auth.Token)
	if err != nil {
		return fmt.Errorf("invalid token")
	}
	s.userID = userID
	return nil
}

func (s *Session) dispatch(ctx context.Context, frame inboundFrame) {
	switch frame.Event {
	case models.EventSendMessage:
		s.onSendMessage(ctx, frame.Data)
	case models.EventTypingStart, models.EventTypingStop:
		var payload TypingPayload
		if err := s.decode(frame.Data, &payload); err != nil {
			s.fail(frame.Event, err)
			return
		}
		s.deps.Chat.NotifyTyping(s.userID, payload.ReceiverID, frame.Event == models.EventTypingStart)
	case models.EventMarkAsRead:
		var payload MarkAsReadPayload
		if err := s.decode(frame.Data, &payload); err != nil {
			s.fail(frame.Event, err)
			return
		}
		if _, err := s.deps.Chat.MarkAsRead(ctx, payload.MessageID, s.userID); err != nil {
			s.fail(frame.Event, err)
		}
	case models.EventMarkAllAsRead:
		var payload MarkAllAsReadPayload
		if err := s.decode(frame.Data, &payload); err != nil {
			s.fail(frame.Event, err)
			return
		}
		if _, err := s.deps.Chat.MarkAllAsRead(ctx, payload.SenderID, s.userID); err != nil {
			s.fail(frame.Event, err)
		}
	default:
		s.fail(frame.Event, fmt.Errorf("%w: unknown event %q", apperrors.ErrValidation, frame.Event))
	}
}

func (s *Session) onSendMessage(ctx context.Context, data json.RawMessage) {
	var payload SendMessagePayload
	if err := s.decode(data, &payload); err != nil {
		_ = s.conn.Emit(models.EventMessageError, MessageErrorEvent{Error: clientError(err)})
		return
	}
	message, err := s.deps.Chat.SendMessage(ctx, s.userID, payload.ReceiverID, payload.Content)
	if err != nil {
		s.log.Warn("Send message failed", "error", err)
		_ = s.conn.Emit(models.EventMessageError, MessageErrorEvent{Error: clientError(err)})
		return
	}
	_ = s.conn.Emit(models.EventMessageSent, MessageSentEvent{Success: true, Message: message})
}

// decode unmarshals and validates a payload.
func (s *Session) decode(data json.RawMessage, out any) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: missing data", apperrors.ErrValidation)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	if err := s.deps.Validate.Struct(out); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	return nil
}

func (s *Session) fail(event string, err error) {
	s.log.Debug("Event rejected", "event", event, "error", err)
	_ = s.conn.Emit(models.EventError, ErrorEvent{Event: event, Error: clientError(err)})
}

// clientError hides storage details from clients.
func clientError(err error) string {
	if errors.Is(err, apperrors.ErrPersistence) {
		return apperrors.ErrPersistence.Error()
	}
	return err.Error()
}
