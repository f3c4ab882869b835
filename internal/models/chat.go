package models

import "github.com/google/uuid"

// Role identifies the speaker of a chat turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ChatTurn is a single message in a conversation. Clients may only send
// user and assistant turns; system turns are built server side.
type ChatTurn struct {
	Role    Role   `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content" validate:"max=20000"`
}

// ChatRequest is the payload sent to the chat endpoint.
type ChatRequest struct {
	Message        string     `json:"message" validate:"max=4000"`
	History        []ChatTurn `json:"history" validate:"max=100,dive"`
	ConversationID *uuid.UUID `json:"conversation_id,omitempty"`
}

// ChatResponse is the formatted reply.
type ChatResponse struct {
	Response string `json:"response"`
}

// ChatErrorResponse is returned with a 500 so clients always have a
// displayable reply.
type ChatErrorResponse struct {
	Error    string `json:"error"`
	Response string `json:"response"`
}
