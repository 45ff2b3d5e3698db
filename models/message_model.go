package models

import (
	"time"

	"github.com/google/uuid"
)

// Message is a direct message between two users. IsRead flips to true at
// most once and ReadAt is written on that same transition only.
type Message struct {
	ID         uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	SenderID   uuid.UUID  `gorm:"type:uuid;not null;index:idx_messages_pair,priority:1" json:"sender_id"`
	ReceiverID uuid.UUID  `gorm:"type:uuid;not null;index:idx_messages_pair,priority:2;index:idx_messages_unread,priority:1" json:"receiver_id"`
	Content    string     `gorm:"type:text;not null" json:"content"`
	IsRead     bool       `gorm:"not null;default:false;index:idx_messages_unread,priority:2" json:"is_read"`
	ReadAt     *time.Time `json:"read_at"`

	Sender *UserSummary `gorm:"-" json:"sender,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Counterpart returns the other side of the thread as seen by userID.
func (m Message) Counterpart(userID uuid.UUID) uuid.UUID {
	if m.SenderID == userID {
		return m.ReceiverID
	}
	return m.SenderID
}
