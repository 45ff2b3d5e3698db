//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/anjiri1684/matchchat/models"
)

// MessageRepository is the durable message store. Conditional updates are
// atomic: when two callers race on the same rows, only one of them observes
// the transition.
type MessageRepository interface {
	// Create assigns the id and a UTC created_at when they are unset.
	Create(ctx context.Context, message *models.Message) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Message, error)
	// MarkAsRead flips is_read and stamps read_at only if the message is
	// still unread. It returns the stored state and whether this call
	// performed the transition.
	MarkAsRead(ctx context.Context, id uuid.UUID, at time.Time) (*models.Message, bool, error)
	// MarkAllAsRead transitions every unread message from senderID to
	// receiverID and returns how many rows it changed.
	MarkAllAsRead(ctx context.Context, senderID, receiverID uuid.UUID, at time.Time) (int64, error)
	// GetChatHistory returns one page of the thread between a and b ordered
	// oldest to newest, plus the thread total. Page 1 holds the newest messages.
	GetChatHistory(ctx context.Context, a, b uuid.UUID, page, limit int) ([]models.Message, int64, error)
	// GetConversations computes, from one snapshot, the newest message and
	// the unread count per counterpart of userID, newest conversation first.
	GetConversations(ctx context.Context, userID uuid.UUID) ([]models.ConversationRow, error)
	GetUnreadCount(ctx context.Context, receiverID uuid.UUID, senderID *uuid.UUID) (int64, error)
	DeleteConversation(ctx context.Context, a, b uuid.UUID) (int64, error)
}

func prepareForCreate(message *models.Message, now time.Time) {
	if message.ID == uuid.Nil {
		message.ID = uuid.New()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = now.UTC()
	}
	message.UpdatedAt = message.CreatedAt
	message.IsRead = false
	message.ReadAt = nil
	message.Sender = nil
}

// offsetFor saturates at math.MaxInt instead of wrapping on huge pages.
func offsetFor(page, limit int) int {
	if page < 1 || limit < 1 {
		return 0
	}
	if page-1 > math.MaxInt/limit {
		return math.MaxInt
	}
	return (page - 1) * limit
}

func reverse(messages []models.Message) []models.Message {
	if messages == nil {
		return []models.Message{}
	}
	return lo.Reverse(messages)
}
