package models

import (
	"time"

	"github.com/google/uuid"
)

// AppendJob persists one exchange (user turn + assistant reply) to a
// stored conversation. It travels through the redis queue as JSON.
type AppendJob struct {
	ID             uuid.UUID  `json:"id"`
	UserID         uuid.UUID  `json:"user_id"`
	ConversationID uuid.UUID  `json:"conversation_id"`
	Turns          []ChatTurn `json:"turns"`
	RetryCount     int        `json:"retry_count"`
	MaxRetries     int        `json:"max_retries"`
	CreatedAt      time.Time  `json:"created_at"`
}

// WebSocket message types
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// ConversationUpdated is pushed once an exchange has been stored.
type ConversationUpdated struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	Title          string    `json:"title"`
	Preview        string    `json:"preview"`
	MessageCount   int       `json:"message_count"`
}

// API Error response
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
