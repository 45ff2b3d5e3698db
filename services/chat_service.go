package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/samber/lo"

	apperrors "github.com/anjiri1684/matchchat/errors"
	"github.com/anjiri1684/matchchat/models"
	"github.com/anjiri1684/matchchat/notifications"
	"github.com/anjiri1684/matchchat/presence"
	"github.com/anjiri1684/matchchat/repositories"
	"github.com/anjiri1684/matchchat/utils"
)

// NotificationQueue accepts fallback notifications without blocking.
type NotificationQueue interface {
	Submit(job notifications.Job) error
}

type ChatService struct {
	messages         repositories.MessageRepository
	users            repositories.UserRepository
	registry         *presence.Registry
	queue            NotificationQueue
	maxContentLength int
	log              *slog.Logger
	now              func() time.Time
}

func NewChatService(
	messages repositories.MessageRepository,
	users repositories.UserRepository,
	registry *presence.Registry,
	queue NotificationQueue,
	maxContentLength int,
	log *slog.Logger,
) *ChatService {
	return &ChatService{
		messages:         messages,
		users:            users,
		registry:         registry,
		queue:            queue,
		maxContentLength: maxContentLength,
		log:              log,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

type HistoryPage struct {
	Messages   []models.Message `json:"messages"`
	Pagination utils.Pagination `json:"pagination"`
}

// SendMessage persists the message first, then either pushes it to every
// live connection of the receiver or, when the receiver has none, queues a
// fallback notification. Delivery outcomes never fail the call.
func (s *ChatService) SendMessage(ctx context.Context, senderID, receiverID uuid.UUID, content string) (*models.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: message content is required", apperrors.ErrValidation)
	}
	if s.maxContentLength > 0 && utf8.RuneCountInString(content) > s.maxContentLength {
		return nil, fmt.Errorf("%w: message content exceeds %d characters", apperrors.ErrValidation, s.maxContentLength)
	}
	if senderID == receiverID {
		return nil, fmt.Errorf("%w: cannot send a message to yourself", apperrors.ErrValidation)
	}

	sender, err := s.users.FindByID(ctx, senderID)
	if err != nil {
		return nil, storeError(err)
	}
	if _, err = s.users.FindByID(ctx, receiverID); err != nil {
		return nil, storeError(err)
	}

	message := &models.Message{SenderID: senderID, ReceiverID: receiverID, Content: content}
	// the sender hanging up must not abort an accepted message
	if err = s.messages.Create(context.WithoutCancel(ctx), message); err != nil {
		s.log.Error("Failed to persist message", "sender_id", senderID, "receiver_id", receiverID, "error", err)
		return nil, storeError(err)
	}
	summary := sender.Summary()
	summary.IsOnline = s.registry.IsReachable(senderID)
	message.Sender = &summary

	conns := s.registry.ConnectionsOf(receiverID)
	if len(conns) == 0 {
		job := notifications.Job{ReceiverID: receiverID, SenderName: sender.FullName, Content: content}
		if err = s.queue.Submit(job); err != nil {
			s.log.Warn("Fallback notification not queued", "receiver_id", receiverID, "error", err)
		}
		return message, nil
	}
	for _, conn := range conns {
		if err = conn.Emit(models.EventNewMessage, message); err != nil {
			s.log.Warn("Live push failed", "receiver_id", receiverID, "connection_id", conn.ID(), "error", err)
		}
	}
	return message, nil
}

// MarkAsRead is idempotent: a message already read is returned unchanged and
// no read receipt is emitted again.
func (s *ChatService) MarkAsRead(ctx context.Context, messageID, readerID uuid.UUID) (*models.Message, error) {
	message, err := s.messages.FindByID(ctx, messageID)
	if err != nil {
		return nil, storeError(err)
	}
	if message.ReceiverID != readerID {
		return nil, fmt.Errorf("%w: message %s is not addressed to you", apperrors.ErrUnauthorized, messageID)
	}
	if message.IsRead {
		return message, nil
	}

	message, transitioned, err := s.messages.MarkAsRead(ctx, messageID, s.now())
	if err != nil {
		return nil, storeError(err)
	}
	if transitioned {
		s.emit(message.SenderID, models.EventMessageRead, models.MessageReadEvent{
			MessageID: message.ID,
			ReadAt:    message.ReadAt,
		})
	}
	return message, nil
}

// MarkAllAsRead reads every unread message senderID sent to readerID and
// signals the sender once, only when something changed.
func (s *ChatService) MarkAllAsRead(ctx context.Context, senderID, readerID uuid.UUID) (int64, error) {
	at := s.now()
	count, err := s.messages.MarkAllAsRead(ctx, senderID, readerID, at)
	if err != nil {
		return 0, storeError(err)
	}
	if count > 0 {
		s.emit(senderID, models.EventMessagesRead, models.MessagesReadEvent{
			ReaderID: readerID,
			Count:    count,
			ReadAt:   at,
		})
	}
	return count, nil
}

// NotifyTyping relays the indicator to the receiver's live connections and
// drops it when there are none.
func (s *ChatService) NotifyTyping(senderID, receiverID uuid.UUID, isTyping bool) {
	s.emit(receiverID, models.EventUserTyping, models.UserTypingEvent{UserID: senderID, IsTyping: isTyping})
}

func (s *ChatService) GetConversations(ctx context.Context, userID uuid.UUID) ([]models.ConversationSummary, error) {
	rows, err := s.messages.GetConversations(ctx, userID)
	if err != nil {
		return nil, storeError(err)
	}

	counterparts := lo.Map(rows, func(row models.ConversationRow, _ int) uuid.UUID { return row.CounterpartID })
	users, err := s.users.FindByIDs(ctx, counterparts)
	if err != nil {
		return nil, storeError(err)
	}
	byID := lo.KeyBy(users, func(u models.User) uuid.UUID { return u.ID })

	summaries := make([]models.ConversationSummary, 0, len(rows))
	for _, row := range rows {
		user, ok := byID[row.CounterpartID]
		if !ok {
			user = models.User{ID: row.CounterpartID}
		}
		display := user.Summary()
		display.IsOnline = s.registry.IsReachable(row.CounterpartID)
		summaries = append(summaries, models.ConversationSummary{
			User:        display,
			LastMessage: row.LastMessage,
			UnreadCount: row.UnreadCount,
		})
	}
	return summaries, nil
}

func (s *ChatService) GetUnreadCount(ctx context.Context, receiverID uuid.UUID, senderID *uuid.UUID) (int64, error) {
	count, err := s.messages.GetUnreadCount(ctx, receiverID, senderID)
	if err != nil {
		return 0, storeError(err)
	}
	return count, nil
}

// GetChatHistory returns one page of the thread, oldest message first, with
// each message carrying its sender's display fields.
func (s *ChatService) GetChatHistory(ctx context.Context, userID, otherID uuid.UUID, page, limit int) (HistoryPage, error) {
	messages, total, err := s.messages.GetChatHistory(ctx, userID, otherID, page, limit)
	if err != nil {
		return HistoryPage{}, storeError(err)
	}

	users, err := s.users.FindByIDs(ctx, []uuid.UUID{userID, otherID})
	if err != nil {
		return HistoryPage{}, storeError(err)
	}
	displays := lo.SliceToMap(users, func(u models.User) (uuid.UUID, models.UserSummary) {
		summary := u.Summary()
		summary.IsOnline = s.registry.IsReachable(u.ID)
		return u.ID, summary
	})
	for i := range messages {
		if display, ok := displays[messages[i].SenderID]; ok {
			messages[i].Sender = &display
		}
	}

	return HistoryPage{
		Messages:   messages,
		Pagination: utils.NewPagination(page, limit, total),
	}, nil
}

func (s *ChatService) DeleteConversation(ctx context.Context, userID, otherID uuid.UUID) (int64, error) {
	deleted, err := s.messages.DeleteConversation(ctx, userID, otherID)
	if err != nil {
		return 0, storeError(err)
	}
	s.log.Info("Conversation deleted", "user_id", userID, "other_id", otherID, "count", deleted)
	return deleted, nil
}

// emit is a best-effort push to every live connection of userID.
func (s *ChatService) emit(userID uuid.UUID, event string, payload any) {
	for _, conn := range s.registry.ConnectionsOf(userID) {
		if err := conn.Emit(event, payload); err != nil {
			s.log.Debug("Event push failed", "event", event, "user_id", userID, "connection_id", conn.ID(), "error", err)
		}
	}
}

// storeError keeps not-found errors as they are and folds everything else
// into a persistence failure.
func storeError(err error) error {
	if errors.Is(err, apperrors.ErrNotFound) || errors.Is(err, apperrors.ErrPersistence) {
		return err
	}
	return fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
}
