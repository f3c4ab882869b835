package models

import (
	"time"

	"github.com/google/uuid"
)

const DefaultConversationTitle = "New Conversation"

type Conversation struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Title     string    `json:"title"`
	Preview   string    `json:"preview"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ConversationMessage struct {
	ID             uuid.UUID `json:"id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	Role           Role      `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

type ConversationDetail struct {
	Conversation
	Messages   []ConversationMessage `json:"messages"`
	Page       int                   `json:"page"`
	TotalItems int                   `json:"total_items"`
}

type CreateConversationRequest struct {
	Title string `json:"title" validate:"max=120"`
}

type UpdateConversationRequest struct {
	Title string `json:"title" validate:"required,max=120"`
}

// Preview is the first 50 characters of the opening message.
func Preview(first string) string {
	if first == "" {
		return "No messages"
	}
	r := []rune(first)
	if len(r) > 50 {
		return string(r[:50]) + "..."
	}
	return first
}
