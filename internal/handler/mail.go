package handler

import (
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/studyhub-ai/assistant-api/internal/provider"
	"github.com/studyhub-ai/assistant-api/pkg/logger"
)

const defaultMailListSize = 10

// MailHandler handles direct mail endpoints.
type MailHandler struct {
	resolver provider.Resolver
	logger   *logger.Logger
}

// NewMailHandler creates a new mail handler.
func NewMailHandler(resolver provider.Resolver, log *logger.Logger) *MailHandler {
	return &MailHandler{
		resolver: resolver,
		logger:   log,
	}
}

// Search handles GET /mail/search
func (h *MailHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}

	userID := resolveUserID(r, "")
	mail, err := h.resolver.Mail(r.Context(), userID)
	if err != nil {
		if errors.Is(err, provider.ErrAuthRequired) {
			writeError(w, http.StatusUnauthorized, "authorization required; visit /calendar/authorize first")
			return
		}
		h.logger.Error("failed to resolve mail access",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "failed to access mail")
		return
	}

	max := int64(defaultMailListSize)
	if m := r.URL.Query().Get("max"); m != "" {
		if parsed, err := strconv.ParseInt(m, 10, 64); err == nil && parsed > 0 && parsed <= 100 {
			max = parsed
		}
	}

	messages, err := mail.Search(r.Context(), query, max)
	if err != nil {
		h.logger.Error("mail search failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "failed to search mail")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"messages": messages,
	})
}
