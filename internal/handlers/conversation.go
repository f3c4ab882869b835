package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"filmsage-backend/internal/logging"
	"filmsage-backend/internal/middleware"
	"filmsage-backend/internal/models"
)

type conversationStore interface {
	Create(ctx context.Context, c *models.Conversation) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error)
	ListByUser(ctx context.Context, userID uuid.UUID, search string, limit, offset int) ([]*models.Conversation, int, error)
	UpdateTitle(ctx context.Context, id uuid.UUID, title string) error
	Delete(ctx context.Context, id uuid.UUID) error
	Messages(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]models.ConversationMessage, int, error)
}

type ConversationHandler struct {
	store conversationStore
}

func NewConversationHandler(store conversationStore) *ConversationHandler {
	return &ConversationHandler{store: store}
}

func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	page, limit := pageParams(r)
	search := strings.TrimSpace(r.URL.Query().Get("q"))

	items, total, err := h.store.ListByUser(r.Context(), userID, search, limit, (page-1)*limit)
	if err != nil {
		h.internalError(w, r, err, "failed to list conversations")
		return
	}
	if items == nil {
		items = []*models.Conversation{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items":       items,
		"page":        page,
		"limit":       limit,
		"total_items": total,
	})
}

func (h *ConversationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateConversationRequest
	if r.ContentLength != 0 && !decodeAndValidate(w, r, &req) {
		return
	}

	conv := &models.Conversation{
		UserID: middleware.GetUserID(r.Context()),
		Title:  strings.TrimSpace(req.Title),
	}
	if err := h.store.Create(r.Context(), conv); err != nil {
		h.internalError(w, r, err, "failed to create conversation")
		return
	}

	writeJSON(w, http.StatusCreated, conv)
}

func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	conv, ok := h.owned(w, r)
	if !ok {
		return
	}

	page, limit := pageParams(r)
	msgs, total, err := h.store.Messages(r.Context(), conv.ID, limit, (page-1)*limit)
	if err != nil {
		h.internalError(w, r, err, "failed to load messages")
		return
	}
	if msgs == nil {
		msgs = []models.ConversationMessage{}
	}

	writeJSON(w, http.StatusOK, models.ConversationDetail{
		Conversation: *conv,
		Messages:     msgs,
		Page:         page,
		TotalItems:   total,
	})
}

func (h *ConversationHandler) Update(w http.ResponseWriter, r *http.Request) {
	conv, ok := h.owned(w, r)
	if !ok {
		return
	}

	var req models.UpdateConversationRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"title": "title is required"}, r))
		return
	}

	if err := h.store.UpdateTitle(r.Context(), conv.ID, title); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Conversation not found", r))
			return
		}
		h.internalError(w, r, err, "failed to update conversation")
		return
	}

	conv.Title = title
	writeJSON(w, http.StatusOK, conv)
}

func (h *ConversationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	conv, ok := h.owned(w, r)
	if !ok {
		return
	}

	if err := h.store.Delete(r.Context(), conv.ID); err != nil && !errors.Is(err, pgx.ErrNoRows) {
		h.internalError(w, r, err, "failed to delete conversation")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// owned loads the {id} conversation and checks it belongs to the caller.
func (h *ConversationHandler) owned(w http.ResponseWriter, r *http.Request) (*models.Conversation, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid conversation ID", r))
		return nil, false
	}

	conv, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Conversation not found", r))
			return nil, false
		}
		h.internalError(w, r, err, "failed to load conversation")
		return nil, false
	}

	if conv.UserID != middleware.GetUserID(r.Context()) {
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", "Access denied", r))
		return nil, false
	}
	return conv, true
}

func (h *ConversationHandler) internalError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	logging.Ctx(r.Context()).Error().Err(err).Msg(msg)
	writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "An unexpected error occurred", r))
}
