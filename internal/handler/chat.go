package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/studyhub-ai/assistant-api/internal/chat"
	"github.com/studyhub-ai/assistant-api/internal/middleware"
	"github.com/studyhub-ai/assistant-api/internal/model"
	"github.com/studyhub-ai/assistant-api/pkg/logger"
)

// ChatHandler handles the conversation endpoints.
type ChatHandler struct {
	service *chat.Service
	logger  *logger.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(svc *chat.Service, log *logger.Logger) *ChatHandler {
	return &ChatHandler{
		service: svc,
		logger:  log,
	}
}

// Send handles POST /chat
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req model.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateMessageContent(req.Message); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = uuid.New().String()
	}
	userID := resolveUserID(r, req.UserID)

	reply, err := h.service.HandleTurn(r.Context(), conversationID, userID, req.Message)
	if err != nil {
		if errors.Is(err, chat.ErrEmptyMessage) {
			writeError(w, http.StatusBadRequest, "message is required")
			return
		}
		h.logger.Error("turn failed",
			zap.String("conversation_id", conversationID),
			zap.Error(err),
		)
		writeError(w, http.StatusBadGateway, "failed to generate a response")
		return
	}

	writeJSON(w, http.StatusOK, model.ChatResponse{
		Response:       reply,
		ConversationID: conversationID,
	})
}

// History handles GET /chat/history/{id}
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")

	turns, err := h.service.History(conversationID)
	if err != nil {
		h.logger.Error("failed to load history", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	if turns == nil {
		turns = []model.Turn{}
	}

	writeJSON(w, http.StatusOK, model.HistoryResponse{History: turns})
}

// ClearHistory handles DELETE /chat/history/{id}
func (h *ChatHandler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")

	if err := h.service.ClearHistory(conversationID); err != nil {
		h.logger.Error("failed to clear history", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to clear history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":          "cleared",
		"conversation_id": conversationID,
	})
}
