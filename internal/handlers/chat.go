package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"filmsage-backend/internal/chat"
	"filmsage-backend/internal/logging"
	"filmsage-backend/internal/middleware"
	"filmsage-backend/internal/models"
)

const appendMaxRetries = 3

type chatResponder interface {
	Respond(ctx context.Context, message string, history []models.ChatTurn) (chat.Reply, error)
}

type turnLoader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error)
	RecentTurns(ctx context.Context, conversationID uuid.UUID, n int) ([]models.ChatTurn, error)
}

type appendQueue interface {
	EnqueueAppend(ctx context.Context, job *models.AppendJob) error
}

type ChatHandler struct {
	responder    chatResponder
	store        turnLoader
	queue        appendQueue
	historyTurns int
}

// NewChatHandler wires the chat endpoint. historyTurns bounds how many stored
// turns are replayed when a client sends a conversation ID without history.
func NewChatHandler(responder chatResponder, store turnLoader, queue appendQueue, historyTurns int) *ChatHandler {
	return &ChatHandler{
		responder:    responder,
		store:        store,
		queue:        queue,
		historyTurns: historyTurns,
	}
}

func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	history := req.History

	if req.ConversationID != nil {
		conv, err := h.store.GetByID(ctx, *req.ConversationID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Conversation not found", r))
				return
			}
			logging.Ctx(ctx).Error().Err(err).Msg("failed to load conversation")
			writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "An unexpected error occurred", r))
			return
		}
		if conv.UserID != userID {
			writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", "Access denied", r))
			return
		}
		if len(history) == 0 {
			history, err = h.store.RecentTurns(ctx, conv.ID, h.historyTurns)
			if err != nil {
				logging.Ctx(ctx).Warn().Err(err).Str("conversation_id", conv.ID.String()).Msg("failed to load history, continuing without it")
				history = nil
			}
		}
	}

	reply, err := h.responder.Respond(ctx, req.Message, history)
	if err != nil {
		if errors.Is(err, chat.ErrEmptyMessage) {
			writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
				map[string]string{"message": "message is required"}, r))
			return
		}
		logging.Ctx(ctx).Error().Err(err).Msg("chat request failed")
		writeJSON(w, http.StatusInternalServerError, models.ChatErrorResponse{
			Error:    err.Error(),
			Response: chat.ReplyInternalError,
		})
		return
	}

	if req.ConversationID != nil {
		h.enqueueExchange(ctx, userID, *req.ConversationID, req.Message, reply.Response)
	}

	writeJSON(w, http.StatusOK, models.ChatResponse{Response: reply.Response})
}

// enqueueExchange hands the exchange to the worker pool. A queue failure
// costs persistence only; the reply is still returned.
func (h *ChatHandler) enqueueExchange(ctx context.Context, userID, convID uuid.UUID, message, response string) {
	job := &models.AppendJob{
		ID:             uuid.New(),
		UserID:         userID,
		ConversationID: convID,
		Turns: []models.ChatTurn{
			{Role: models.RoleUser, Content: message},
			{Role: models.RoleAssistant, Content: response},
		},
		MaxRetries: appendMaxRetries,
		CreatedAt:  time.Now(),
	}
	if err := h.queue.EnqueueAppend(ctx, job); err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("conversation_id", convID.String()).Msg("failed to enqueue conversation append")
	}
}
