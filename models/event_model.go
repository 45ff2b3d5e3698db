package models

import (
	"time"

	"github.com/google/uuid"
)

// Server to client event names.
const (
	EventNewMessage        = "new_message"
	EventMessageSent       = "message_sent"
	EventMessageError      = "message_error"
	EventMessageRead       = "message_read"
	EventMessagesRead      = "messages_read"
	EventUserTyping        = "user_typing"
	EventUserStatusChanged = "user_status_changed"
	EventAuthenticated     = "authenticated"
	EventError             = "error"
)

// Client to server event names.
const (
	EventSendMessage   = "send_message"
	EventTypingStart   = "typing_start"
	EventTypingStop    = "typing_stop"
	EventMarkAsRead    = "mark_as_read"
	EventMarkAllAsRead = "mark_all_as_read"
)

type MessageReadEvent struct {
	MessageID uuid.UUID  `json:"message_id"`
	ReadAt    *time.Time `json:"read_at"`
}

// MessagesReadEvent tells a sender that ReaderID read Count of its messages.
type MessagesReadEvent struct {
	ReaderID uuid.UUID `json:"reader_id"`
	Count    int64     `json:"count"`
	ReadAt   time.Time `json:"read_at"`
}

type UserTypingEvent struct {
	UserID   uuid.UUID `json:"user_id"`
	IsTyping bool      `json:"is_typing"`
}

type UserStatusChangedEvent struct {
	UserID   uuid.UUID  `json:"user_id"`
	IsOnline bool       `json:"is_online"`
	LastSeen *time.Time `json:"last_seen"`
}
