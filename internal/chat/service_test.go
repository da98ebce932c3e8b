package chat

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/studyhub-ai/assistant-api/internal/dispatch"
	"github.com/studyhub-ai/assistant-api/internal/history"
	"github.com/studyhub-ai/assistant-api/internal/intent"
	"github.com/studyhub-ai/assistant-api/internal/llm"
	"github.com/studyhub-ai/assistant-api/internal/model"
	"github.com/studyhub-ai/assistant-api/internal/provider"
)

type scriptedLLM struct {
	replies  []string
	err      error
	requests []*llm.CompletionRequest
}

func (s *scriptedLLM) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	reply := "ok"
	if len(s.replies) > 0 {
		reply = s.replies[0]
		if len(s.replies) > 1 {
			s.replies = s.replies[1:]
		}
	}
	return &llm.CompletionResponse{Content: reply, Model: "test-model"}, nil
}

func (s *scriptedLLM) Name() string     { return "scripted" }
func (s *scriptedLLM) Models() []string { return []string{"test-model"} }

type stubCalendar struct {
	events  []provider.EventSummary
	listErr error
	created []*intent.EventIntent
}

func (c *stubCalendar) UpcomingEvents(ctx context.Context, max int64) ([]provider.EventSummary, error) {
	if c.listErr != nil {
		return nil, c.listErr
	}
	return c.events, nil
}

func (c *stubCalendar) CreateEvent(ctx context.Context, ev *intent.EventIntent) (string, error) {
	c.created = append(c.created, ev)
	return "evt-1", nil
}

type stubMail struct {
	messages []provider.MessageSummary
	listErr  error
	sent     []*intent.EmailIntent
}

func (m *stubMail) RecentMessages(ctx context.Context, max int64) ([]provider.MessageSummary, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.messages, nil
}

func (m *stubMail) Search(ctx context.Context, query string, max int64) ([]provider.MessageSummary, error) {
	return m.messages, nil
}

func (m *stubMail) Send(ctx context.Context, em *intent.EmailIntent) (string, error) {
	m.sent = append(m.sent, em)
	return "msg-1", nil
}

type stubResolver struct {
	calendar *stubCalendar
	mail     *stubMail
	err      error
}

func (r *stubResolver) Calendar(ctx context.Context, userID string) (provider.Calendar, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.calendar, nil
}

func (r *stubResolver) Mail(ctx context.Context, userID string) (provider.Mail, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.mail, nil
}

func newTestService(t *testing.T, llmClient llm.Client, resolver provider.Resolver) *Service {
	t.Helper()
	log := zap.NewNop()
	store := history.NewStore(filepath.Join(t.TempDir(), "history.json"), log)
	d := dispatch.NewDispatcher(&intent.Extractor{DefaultTimezone: "America/New_York"}, nil, log)
	return NewService(store, llmClient, resolver, d, Config{}, log)
}

func TestHandleTurnAppendsBothTurnsInOrder(t *testing.T) {
	gen := &scriptedLLM{replies: []string{"Hello! How can I help?"}}
	svc := newTestService(t, gen, &stubResolver{calendar: &stubCalendar{}, mail: &stubMail{}})

	reply, err := svc.HandleTurn(context.Background(), "c1", "u1", "hi")
	require.NoError(t, err)
	assert.Equal(t, "Hello! How can I help?", reply)

	turns, err := svc.History("c1")
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, model.Turn{Role: model.RoleUser, Content: "hi"}, turns[0])
	assert.Equal(t, model.Turn{Role: model.RoleAssistant, Content: "Hello! How can I help?"}, turns[1])
}

func TestHandleTurnEmptyMessage(t *testing.T) {
	gen := &scriptedLLM{}
	svc := newTestService(t, gen, &stubResolver{calendar: &stubCalendar{}, mail: &stubMail{}})

	_, err := svc.HandleTurn(context.Background(), "c1", "u1", "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)

	// no history mutation and no generation attempt
	turns, err := svc.History("c1")
	require.NoError(t, err)
	assert.Empty(t, turns)
	assert.Empty(t, gen.requests)
}

func TestHandleTurnSequentialRequestsKeepOrder(t *testing.T) {
	gen := &scriptedLLM{replies: []string{"first reply", "second reply"}}
	svc := newTestService(t, gen, &stubResolver{calendar: &stubCalendar{}, mail: &stubMail{}})

	_, err := svc.HandleTurn(context.Background(), "c1", "u1", "one")
	require.NoError(t, err)
	_, err = svc.HandleTurn(context.Background(), "c1", "u1", "two")
	require.NoError(t, err)

	turns, err := svc.History("c1")
	require.NoError(t, err)
	require.Len(t, turns, 4)
	assert.Equal(t, "one", turns[0].Content)
	assert.Equal(t, "first reply", turns[1].Content)
	assert.Equal(t, "two", turns[2].Content)
	assert.Equal(t, "second reply", turns[3].Content)
}

func TestHandleTurnGenerationFailureIsTerminal(t *testing.T) {
	gen := &scriptedLLM{err: errors.New("model overloaded")}
	svc := newTestService(t, gen, &stubResolver{calendar: &stubCalendar{}, mail: &stubMail{}})

	_, err := svc.HandleTurn(context.Background(), "c1", "u1", "hi")
	require.Error(t, err)

	turns, err := svc.History("c1")
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestHandleTurnDispatchesEventFromReply(t *testing.T) {
	reply := `Done!
{"action": "create_event", "event_details": {"summary": "Study session", "start_time": "2025-03-01T15:00:00", "end_time": "2025-03-01T17:00:00"}}`
	gen := &scriptedLLM{replies: []string{reply}}
	cal := &stubCalendar{}
	svc := newTestService(t, gen, &stubResolver{calendar: cal, mail: &stubMail{}})

	got, err := svc.HandleTurn(context.Background(), "c1", "u1", "book a study session")
	require.NoError(t, err)
	// the raw assistant text is returned regardless of dispatch
	assert.Equal(t, reply, got)

	require.Len(t, cal.created, 1)
	assert.Equal(t, "Study session", cal.created[0].Summary)
	assert.Equal(t, "America/New_York", cal.created[0].Timezone)
}

func TestHandleTurnContextIncluded(t *testing.T) {
	gen := &scriptedLLM{}
	cal := &stubCalendar{events: []provider.EventSummary{{Summary: "Physics exam", Start: "2025-03-03T09:00:00Z"}}}
	mail := &stubMail{messages: []provider.MessageSummary{{From: "prof@uni.edu", Subject: "Grades", Date: "Mon"}}}
	svc := newTestService(t, gen, &stubResolver{calendar: cal, mail: mail})

	_, err := svc.HandleTurn(context.Background(), "c1", "u1", "what's coming up?")
	require.NoError(t, err)

	require.Len(t, gen.requests, 1)
	msgs := gen.requests[0].Messages
	require.GreaterOrEqual(t, len(msgs), 4)
	assert.Contains(t, msgs[1].Content, "Physics exam")
	assert.Contains(t, msgs[2].Content, "prof@uni.edu")
	assert.Equal(t, "what's coming up?", msgs[len(msgs)-1].Content)
}

func TestHandleTurnContextDegradesToPlaceholders(t *testing.T) {
	gen := &scriptedLLM{}
	cal := &stubCalendar{listErr: errors.New("api down")}
	mail := &stubMail{listErr: errors.New("api down")}
	svc := newTestService(t, gen, &stubResolver{calendar: cal, mail: mail})

	_, err := svc.HandleTurn(context.Background(), "c1", "u1", "hello")
	require.NoError(t, err)

	msgs := gen.requests[0].Messages
	assert.Equal(t, "Unable to fetch calendar events.", msgs[1].Content)
	assert.Equal(t, "Unable to fetch recent emails.", msgs[2].Content)
}

func TestHandleTurnUnauthorizedUserStillGetsReply(t *testing.T) {
	reply := "send email to: a@b.com subject: Hi body: Hello"
	gen := &scriptedLLM{replies: []string{reply}}
	svc := newTestService(t, gen, &stubResolver{err: provider.ErrAuthRequired})

	got, err := svc.HandleTurn(context.Background(), "c1", "u1", "email bob")
	require.NoError(t, err)
	assert.Equal(t, reply, got)

	msgs := gen.requests[0].Messages
	assert.Equal(t, "Unable to fetch calendar events.", msgs[1].Content)
	assert.Equal(t, "Unable to fetch recent emails.", msgs[2].Content)
}

func TestHandleTurnHistoryWindowBounded(t *testing.T) {
	gen := &scriptedLLM{}
	svc := newTestService(t, gen, &stubResolver{calendar: &stubCalendar{}, mail: &stubMail{}})

	for i := 0; i < 6; i++ {
		_, err := svc.HandleTurn(context.Background(), "c1", "u1", fmt.Sprintf("message %d", i))
		require.NoError(t, err)
	}

	last := gen.requests[len(gen.requests)-1].Messages
	// 3 system messages + the 5-turn trailing window
	assert.Len(t, last, 8)
}
