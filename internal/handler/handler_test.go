package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/studyhub-ai/assistant-api/internal/chat"
	"github.com/studyhub-ai/assistant-api/internal/dispatch"
	"github.com/studyhub-ai/assistant-api/internal/google"
	"github.com/studyhub-ai/assistant-api/internal/history"
	"github.com/studyhub-ai/assistant-api/internal/intent"
	"github.com/studyhub-ai/assistant-api/internal/llm"
	"github.com/studyhub-ai/assistant-api/internal/model"
	"github.com/studyhub-ai/assistant-api/internal/provider"
	"github.com/studyhub-ai/assistant-api/pkg/logger"
)

type fixedLLM struct {
	reply string
}

func (f *fixedLLM) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return &llm.CompletionResponse{Content: f.reply, Model: "fixed"}, nil
}

func (f *fixedLLM) Name() string     { return "fixed" }
func (f *fixedLLM) Models() []string { return []string{"fixed"} }

type unauthorizedResolver struct{}

func (unauthorizedResolver) Calendar(ctx context.Context, userID string) (provider.Calendar, error) {
	return nil, provider.ErrAuthRequired
}

func (unauthorizedResolver) Mail(ctx context.Context, userID string) (provider.Mail, error) {
	return nil, provider.ErrAuthRequired
}

func newTestRouter(t *testing.T, reply string) *chi.Mux {
	t.Helper()

	log, err := logger.New("error")
	require.NoError(t, err)

	store := history.NewStore(filepath.Join(t.TempDir(), "history.json"), zap.NewNop())
	dispatcher := dispatch.NewDispatcher(&intent.Extractor{}, nil, zap.NewNop())
	svc := chat.NewService(store, &fixedLLM{reply: reply}, unauthorizedResolver{}, dispatcher, chat.Config{}, zap.NewNop())

	chatHandler := NewChatHandler(svc, log)

	r := chi.NewRouter()
	r.Post("/chat", chatHandler.Send)
	r.Route("/chat/history/{id}", func(r chi.Router) {
		r.Get("/", chatHandler.History)
		r.Delete("/", chatHandler.ClearHistory)
	})
	return r
}

func postJSON(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestChatSendReturnsReplyAndConversationID(t *testing.T) {
	router := newTestRouter(t, "hello there")

	rec := postJSON(t, router, "/chat", model.ChatRequest{Message: "hi"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp model.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "hello there", resp.Response)
	assert.NotEmpty(t, resp.ConversationID)
}

func TestChatSendRejectsEmptyMessage(t *testing.T) {
	router := newTestRouter(t, "unused")

	rec := postJSON(t, router, "/chat", model.ChatRequest{Message: ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatSendRejectsMalformedBody(t *testing.T) {
	router := newTestRouter(t, "unused")

	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatHistoryRoundTrip(t *testing.T) {
	router := newTestRouter(t, "reply one")

	rec := postJSON(t, router, "/chat", model.ChatRequest{Message: "first", ConversationID: "conv-1"})
	require.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/chat/history/conv-1", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var hist model.HistoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hist))
	require.Len(t, hist.History, 2)
	assert.Equal(t, model.RoleUser, hist.History[0].Role)
	assert.Equal(t, "first", hist.History[0].Content)
	assert.Equal(t, model.RoleAssistant, hist.History[1].Role)
	assert.Equal(t, "reply one", hist.History[1].Content)
}

func TestChatHistoryUnknownConversationIsEmpty(t *testing.T) {
	router := newTestRouter(t, "unused")

	req := httptest.NewRequest(http.MethodGet, "/chat/history/nope", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var hist model.HistoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hist))
	assert.Empty(t, hist.History)
}

func TestChatClearHistory(t *testing.T) {
	router := newTestRouter(t, "reply")

	rec := postJSON(t, router, "/chat", model.ChatRequest{Message: "hi", ConversationID: "conv-2"})
	require.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodDelete, "/chat/history/conv-2", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/chat/history/conv-2", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var hist model.HistoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hist))
	assert.Empty(t, hist.History)
}

func TestCollectionsUnavailableWithoutStore(t *testing.T) {
	log, err := logger.New("error")
	require.NoError(t, err)
	h := NewCollectionsHandler(nil, log)

	req := httptest.NewRequest(http.MethodGet, "/todos", nil)
	rec := httptest.NewRecorder()
	h.ListTodos(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	h.CreateTodoList(rec, postBody(t, model.CreateTodoListRequest{Name: "week 1"}))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func postBody(t *testing.T, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	return httptest.NewRequest(http.MethodPost, "/todos", bytes.NewReader(data))
}

func TestHealthEndpoints(t *testing.T) {
	h := NewHealthHandler(nil, nil)

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.Ready(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOAuthCallbackRejectsBadState(t *testing.T) {
	log, err := logger.New("error")
	require.NoError(t, err)
	oauth := google.NewOAuthConfig("id", "secret", "http://localhost/oauth2callback", "state-secret")
	h := NewCalendarHandler(unauthorizedResolver{}, oauth, nil, "America/New_York", log)

	req := httptest.NewRequest(http.MethodGet, "/oauth2callback?state=bogus&code=abc", nil)
	rec := httptest.NewRecorder()
	h.OAuthCallback(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateEventRequiresAuthorization(t *testing.T) {
	log, err := logger.New("error")
	require.NoError(t, err)
	oauth := google.NewOAuthConfig("id", "secret", "http://localhost/oauth2callback", "state-secret")
	h := NewCalendarHandler(unauthorizedResolver{}, oauth, nil, "America/New_York", log)

	body, err := json.Marshal(model.CreateEventRequest{
		Summary:   "Study group",
		StartTime: "2026-09-01T10:00:00",
		EndTime:   "2026-09-01T11:00:00",
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/calendar/create-event", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.CreateEvent(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
