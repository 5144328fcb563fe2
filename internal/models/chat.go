package models

import "time"

const (
	MessageTypeText   = "text"
	MessageTypeSystem = "system"
)

type Conversation struct {
	ID              int64      `json:"id"`
	UserA           int64      `json:"user_a"`
	UserB           int64      `json:"user_b"`
	CreatedAt       time.Time  `json:"created_at"`
	LastMessageAt   *time.Time `json:"last_message_at"`
	LastReadAtUserA *time.Time `json:"last_read_at_user_a"`
	LastReadAtUserB *time.Time `json:"last_read_at_user_b"`
}

// HasParticipant reports whether userID is one of the two sides of the thread.
func (c *Conversation) HasParticipant(userID int64) bool {
	return c.UserA == userID || c.UserB == userID
}

func (c *Conversation) OtherParticipant(userID int64) int64 {
	if userID == c.UserA {
		return c.UserB
	}
	return c.UserA
}

type ChatMessage struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	SenderID       int64     `json:"sender_id"`
	Content        *string   `json:"content"`
	MessageType    string    `json:"message_type"`
	CreatedAt      time.Time `json:"created_at"`
}

type ConversationSummary struct {
	Conversation
	LastMessage *ChatMessage `json:"last_message,omitempty"`
	UnreadCount int          `json:"unread_count"`
}
