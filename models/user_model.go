package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID                   uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	FullName             string     `gorm:"size:255;not null" json:"full_name"`
	Email                string     `gorm:"size:255;not null;unique" json:"email"`
	ProfilePicture       *string    `gorm:"size:500" json:"profile_picture"`
	IsOnline             bool       `gorm:"default:false;index" json:"is_online"`
	LastSeen             *time.Time `json:"last_seen"`
	FCMToken             *string    `gorm:"size:500" json:"-"`
	NotificationsEnabled bool       `gorm:"default:true" json:"notifications_enabled"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserSummary is the display slice of a user embedded in chat payloads.
type UserSummary struct {
	ID             uuid.UUID  `json:"id"`
	FullName       string     `json:"full_name"`
	ProfilePicture *string    `json:"profile_picture"`
	IsOnline       bool       `json:"is_online"`
	LastSeen       *time.Time `json:"last_seen"`
}

func (u User) Summary() UserSummary {
	return UserSummary{
		ID:             u.ID,
		FullName:       u.FullName,
		ProfilePicture: u.ProfilePicture,
		IsOnline:       u.IsOnline,
		LastSeen:       u.LastSeen,
	}
}
