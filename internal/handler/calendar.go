package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/studyhub-ai/assistant-api/internal/credstore"
	"github.com/studyhub-ai/assistant-api/internal/google"
	"github.com/studyhub-ai/assistant-api/internal/intent"
	"github.com/studyhub-ai/assistant-api/internal/model"
	"github.com/studyhub-ai/assistant-api/internal/provider"
	"github.com/studyhub-ai/assistant-api/pkg/logger"
)

const defaultEventListSize = 10

// CalendarHandler handles direct calendar endpoints and the OAuth
// authorization flow.
type CalendarHandler struct {
	resolver        provider.Resolver
	oauth           *google.OAuthConfig
	creds           *credstore.Store
	defaultTimezone string
	logger          *logger.Logger
}

// NewCalendarHandler creates a new calendar handler.
func NewCalendarHandler(
	resolver provider.Resolver,
	oauth *google.OAuthConfig,
	creds *credstore.Store,
	defaultTimezone string,
	log *logger.Logger,
) *CalendarHandler {
	return &CalendarHandler{
		resolver:        resolver,
		oauth:           oauth,
		creds:           creds,
		defaultTimezone: defaultTimezone,
		logger:          log,
	}
}

// CreateEvent handles POST /calendar/create-event
func (h *CalendarHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Summary == "" || req.StartTime == "" || req.EndTime == "" {
		writeError(w, http.StatusBadRequest, "summary, start_time and end_time are required")
		return
	}

	userID := resolveUserID(r, "")
	calendar, err := h.resolver.Calendar(r.Context(), userID)
	if err != nil {
		h.writeProviderError(w, "calendar", userID, err)
		return
	}

	timezone := req.Timezone
	if timezone == "" {
		timezone = h.defaultTimezone
	}
	eventID, err := calendar.CreateEvent(r.Context(), &intent.EventIntent{
		Summary:     req.Summary,
		Description: req.Description,
		Location:    req.Location,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Timezone:    timezone,
		Attendees:   req.Attendees,
	})
	if err != nil {
		h.logger.Error("failed to create event", zap.Error(err))
		writeError(w, http.StatusBadGateway, "failed to create event")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"event_id": eventID,
	})
}

// ListEvents handles GET /calendar/events
func (h *CalendarHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	userID := resolveUserID(r, "")
	calendar, err := h.resolver.Calendar(r.Context(), userID)
	if err != nil {
		h.writeProviderError(w, "calendar", userID, err)
		return
	}

	max := int64(defaultEventListSize)
	if m := r.URL.Query().Get("max"); m != "" {
		if parsed, err := strconv.ParseInt(m, 10, 64); err == nil && parsed > 0 && parsed <= 100 {
			max = parsed
		}
	}

	events, err := calendar.UpcomingEvents(r.Context(), max)
	if err != nil {
		h.logger.Error("failed to list events", zap.Error(err))
		writeError(w, http.StatusBadGateway, "failed to list events")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"events": events,
	})
}

// Authorize handles GET /calendar/authorize
func (h *CalendarHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	userID := resolveUserID(r, "")

	authURL, err := h.oauth.AuthURL(userID)
	if err != nil {
		h.logger.Error("failed to build auth URL", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to start authorization")
		return
	}

	http.Redirect(w, r, authURL, http.StatusFound)
}

// OAuthCallback handles GET /oauth2callback
func (h *CalendarHandler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	if errMsg := r.URL.Query().Get("error"); errMsg != "" {
		writeError(w, http.StatusBadRequest, "authorization denied: "+errMsg)
		return
	}

	userID, err := h.oauth.VerifyState(r.URL.Query().Get("state"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid state")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "missing authorization code")
		return
	}

	token, err := h.oauth.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("code exchange failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "failed to exchange authorization code")
		return
	}

	if err := h.creds.Upsert(r.Context(), credstore.Credential{
		UserID:       userID,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Expiry:       token.Expiry,
		Scopes:       google.Scopes,
	}); err != nil {
		h.logger.Error("failed to store credentials", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to store credentials")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "authorized",
		"user_id": userID,
	})
}

func (h *CalendarHandler) writeProviderError(w http.ResponseWriter, kind, userID string, err error) {
	if errors.Is(err, provider.ErrAuthRequired) {
		writeError(w, http.StatusUnauthorized, "authorization required; visit /calendar/authorize first")
		return
	}
	h.logger.Error("failed to resolve "+kind+" access",
		zap.String("user_id", userID),
		zap.Error(err),
	)
	writeError(w, http.StatusInternalServerError, "failed to access "+kind)
}
