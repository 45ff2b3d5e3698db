package models

import "github.com/google/uuid"

// ConversationRow is what the store computes per counterpart from a single
// snapshot: the newest message of the pair and the unread count addressed
// to the subject.
type ConversationRow struct {
	CounterpartID uuid.UUID
	LastMessage   Message
	UnreadCount   int64
}

type ConversationSummary struct {
	User        UserSummary `json:"user"`
	LastMessage Message     `json:"last_message"`
	UnreadCount int64       `json:"unread_count"`
}
