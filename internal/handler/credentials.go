package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/studyhub-ai/assistant-api/internal/credstore"
	"github.com/studyhub-ai/assistant-api/internal/google"
	"github.com/studyhub-ai/assistant-api/internal/model"
	"github.com/studyhub-ai/assistant-api/pkg/logger"
)

// CredentialsHandler handles credential provisioning outside the redirect
// flow: direct token injection and SPA-side code exchange.
type CredentialsHandler struct {
	creds  *credstore.Store
	oauth  *google.OAuthConfig
	logger *logger.Logger
}

// NewCredentialsHandler creates a new credentials handler.
func NewCredentialsHandler(creds *credstore.Store, oauth *google.OAuthConfig, log *logger.Logger) *CredentialsHandler {
	return &CredentialsHandler{
		creds:  creds,
		oauth:  oauth,
		logger: log,
	}
}

// Set handles POST /set-user-credentials
func (h *CredentialsHandler) Set(w http.ResponseWriter, r *http.Request) {
	var req model.SetCredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.AccessToken == "" && req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "access_token or refresh_token is required")
		return
	}

	var expiry time.Time
	if req.ExpiresAt != "" {
		parsed, err := time.Parse(time.RFC3339, req.ExpiresAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "expires_at must be RFC3339")
			return
		}
		expiry = parsed
	}

	userID := resolveUserID(r, req.UserID)
	if err := h.creds.Upsert(r.Context(), credstore.Credential{
		UserID:       userID,
		AccessToken:  req.AccessToken,
		RefreshToken: req.RefreshToken,
		Expiry:       expiry,
		Scopes:       google.Scopes,
	}); err != nil {
		h.logger.Error("failed to store credentials",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "failed to store credentials")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "stored",
		"user_id": userID,
	})
}

// AuthCallback handles POST /auth/callback
func (h *CredentialsHandler) AuthCallback(w http.ResponseWriter, r *http.Request) {
	var req model.AuthCallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Code == "" {
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}

	token, err := h.oauth.Exchange(r.Context(), req.Code)
	if err != nil {
		h.logger.Error("code exchange failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "failed to exchange authorization code")
		return
	}

	userID := resolveUserID(r, req.UserID)
	if err := h.creds.Upsert(r.Context(), credstore.Credential{
		UserID:       userID,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Expiry:       token.Expiry,
		Scopes:       google.Scopes,
	}); err != nil {
		h.logger.Error("failed to store credentials",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "failed to store credentials")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "authorized",
		"user_id": userID,
	})
}
