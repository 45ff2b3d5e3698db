package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	apperrors "github.com/anjiri1684/matchchat/errors"
	"github.com/anjiri1684/matchchat/models"
)

type GormMessageRepository struct {
	db *gorm.DB
}

func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	return &GormMessageRepository{db: db}
}

func (r *GormMessageRepository) Create(ctx context.Context, message *models.Message) error {
	prepareForCreate(message, time.Now())
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *GormMessageRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Message, error) {
	var message models.Message
	err := r.db.WithContext(ctx).First(&message, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: message %s", apperrors.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &message, nil
}

func (r *GormMessageRepository) MarkAsRead(ctx context.Context, id uuid.UUID, at time.Time) (*models.Message, bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("id = ? AND is_read = ?", id, false).
		Updates(map[string]any{"is_read": true, "read_at": at.UTC(), "updated_at": at.UTC()})
	if result.Error != nil {
		return nil, false, result.Error
	}

	message, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return message, result.RowsAffected == 1, nil
}

func (r *GormMessageRepository) MarkAllAsRead(ctx context.Context, senderID, receiverID uuid.UUID, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("sender_id = ? AND receiver_id = ? AND is_read = ?", senderID, receiverID, false).
		Updates(map[string]any{"is_read": true, "read_at": at.UTC(), "updated_at": at.UTC()})
	return result.RowsAffected, result.Error
}

func (r *GormMessageRepository) GetChatHistory(ctx context.Context, a, b uuid.UUID, page, limit int) ([]models.Message, int64, error) {
	thread := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&models.Message{}).
			Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)", a, b, b, a)
	}

	var total int64
	if err := thread().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var messages []models.Message
	err := thread().
		Order("created_at DESC").Order("id DESC").
		Offset(offsetFor(page, limit)).Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, 0, err
	}
	return reverse(messages), total, nil
}

// conversationsQuery picks the newest message per counterpart with DISTINCT ON
// and joins the unread counts, so both come from the same statement snapshot.
const conversationsQuery = `
WITH thread AS (
	SELECT m.*,
		CASE WHEN m.sender_id = @user THEN m.receiver_id ELSE m.sender_id END AS counterpart_id
	FROM messages m
	WHERE m.sender_id = @user OR m.receiver_id = @user
),
latest AS (
	SELECT DISTINCT ON (counterpart_id) *
	FROM thread
	ORDER BY counterpart_id, created_at DESC, id DESC
),
unread AS (
	SELECT sender_id AS counterpart_id, COUNT(*) AS unread_count
	FROM thread
	WHERE receiver_id = @user AND is_read = false
	GROUP BY sender_id
)
SELECT latest.id, latest.sender_id, latest.receiver_id, latest.content,
	latest.is_read, latest.read_at, latest.created_at, latest.updated_at,
	latest.counterpart_id, COALESCE(unread.unread_count, 0) AS unread_count
FROM latest
LEFT JOIN unread ON unread.counterpart_id = latest.counterpart_id
ORDER BY latest.created_at DESC, latest.id DESC`

type conversationScan struct {
	models.Message
	UnreadCount int64
}

func (r *GormMessageRepository) GetConversations(ctx context.Context, userID uuid.UUID) ([]models.ConversationRow, error) {
	var scans []conversationScan
	if err := r.db.WithContext(ctx).Raw(conversationsQuery, sql.Named("user", userID)).Scan(&scans).Error; err != nil {
		return nil, err
	}

	rows := make([]models.ConversationRow, 0, len(scans))
	for _, s := range scans {
		rows = append(rows, models.ConversationRow{
			CounterpartID: s.Message.Counterpart(userID),
			LastMessage:   s.Message,
			UnreadCount:   s.UnreadCount,
		})
	}
	return rows, nil
}

func (r *GormMessageRepository) GetUnreadCount(ctx context.Context, receiverID uuid.UUID, senderID *uuid.UUID) (int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("receiver_id = ? AND is_read = ?", receiverID, false)
	if senderID != nil {
		query = query.Where("sender_id = ?", *senderID)
	}

	var count int64
	err := query.Count(&count).Error
	return count, err
}

func (r *GormMessageRepository) DeleteConversation(ctx context.Context, a, b uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)", a, b, b, a).
		Delete(&models.Message{})
	return result.RowsAffected, result.Error
}
