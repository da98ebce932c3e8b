// Package chat implements the per-request conversation turn pipeline:
// validate, load history, gather provider context, generate a reply, dispatch
// any side effects the reply requests, persist, respond.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/studyhub-ai/assistant-api/internal/dispatch"
	"github.com/studyhub-ai/assistant-api/internal/history"
	"github.com/studyhub-ai/assistant-api/internal/llm"
	"github.com/studyhub-ai/assistant-api/internal/model"
	"github.com/studyhub-ai/assistant-api/internal/provider"
	"github.com/studyhub-ai/assistant-api/pkg/metrics"
)

// ErrEmptyMessage rejects a chat request whose message field is absent or
// blank. It is the only validation failure surfaced to the caller.
var ErrEmptyMessage = errors.New("chat: message is required")

const (
	calendarUnavailable = "Unable to fetch calendar events."
	mailUnavailable     = "Unable to fetch recent emails."
)

// systemPromptTemplate defines the assistant's capabilities and, critically,
// the two action formats the intent extractor scans for. The %s is the
// deployment's default event timezone.
const systemPromptTemplate = `You are a personal study assistant. You help with scheduling, email, homework and exam planning, and todo lists, and you answer questions informatively.

You can create calendar events and send emails on the user's behalf.

When the user asks you to send an email, first confirm the content with them, then reply using this exact format:
send email to: [email] subject: [subject] body: [message]

When the user asks you to create a calendar event, extract the title, dates, times, description, location, attendees and timezone (use %s when the user gives none), then reply with exactly this JSON structure:
{
    "action": "create_event",
    "event_details": {
        "summary": "Clear and concise title",
        "description": "Detailed description",
        "start_time": "YYYY-MM-DDTHH:MM:SS",
        "end_time": "YYYY-MM-DDTHH:MM:SS",
        "timezone": "%s",
        "location": "Location if provided",
        "attendees": ["email1@example.com"]
    }
}

Always confirm complex event details with the user before creating them.`

// Config holds orchestrator tunables.
type Config struct {
	// Model passed to the LLM client; empty uses the client default.
	Model string

	// MaxTokens for the completion call.
	MaxTokens int

	// Temperature for the completion call.
	Temperature float64

	// HistoryWindow is the number of trailing turns (including the new user
	// turn) included in the model input.
	HistoryWindow int

	// DefaultTimezone names the event timezone used when neither the user
	// nor the model supplies one.
	DefaultTimezone string

	// ContextEvents / ContextEmails bound the best-effort context fetches.
	ContextEvents int64
	ContextEmails int64
}

func (c Config) withDefaults() Config {
	if c.MaxTokens == 0 {
		c.MaxTokens = 800
	}
	if c.Temperature == 0 {
		c.Temperature = 0.7
	}
	if c.HistoryWindow == 0 {
		c.HistoryWindow = 5
	}
	if c.DefaultTimezone == "" {
		c.DefaultTimezone = "America/New_York"
	}
	if c.ContextEvents == 0 {
		c.ContextEvents = 3
	}
	if c.ContextEmails == 0 {
		c.ContextEmails = 5
	}
	return c
}

// Service orchestrates conversation turns.
type Service struct {
	store      *history.Store
	llmClient  llm.Client
	providers  provider.Resolver
	dispatcher *dispatch.Dispatcher
	cfg        Config
	prompt     string
	logger     *zap.Logger
}

// NewService creates a chat service.
func NewService(
	store *history.Store,
	llmClient llm.Client,
	providers provider.Resolver,
	dispatcher *dispatch.Dispatcher,
	cfg Config,
	log *zap.Logger,
) *Service {
	cfg = cfg.withDefaults()
	return &Service{
		store:      store,
		llmClient:  llmClient,
		providers:  providers,
		dispatcher: dispatcher,
		cfg:        cfg,
		prompt:     fmt.Sprintf(systemPromptTemplate, cfg.DefaultTimezone, cfg.DefaultTimezone),
		logger:     log,
	}
}

// HandleTurn runs one full conversation turn and returns the assistant's
// reply. Only an empty message or a failed completion call aborts the
// request; credential, context and side-effect failures degrade and the
// reply is still produced. History is persisted once, after both turns of
// the exchange exist, so a failed turn leaves no partial history.
func (s *Service) HandleTurn(ctx context.Context, conversationID, userID, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", ErrEmptyMessage
	}

	prior, err := s.store.Get(conversationID)
	if err != nil {
		return "", fmt.Errorf("load history: %w", err)
	}
	userTurn := model.Turn{Role: model.RoleUser, Content: message}

	calendar := s.resolveCalendar(ctx, userID)
	mail := s.resolveMail(ctx, userID)

	calendarContext := s.calendarContext(ctx, calendar)
	mailContext := s.mailContext(ctx, mail)

	messages := s.composeInput(prior, userTurn, calendarContext, mailContext)

	resp, err := s.llmClient.Complete(ctx, &llm.CompletionRequest{
		Model:       s.cfg.Model,
		Messages:    messages,
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		metrics.RecordCompletion(s.cfg.Model, "error", 0, 0, 0)
		return "", fmt.Errorf("completion failed: %w", err)
	}
	metrics.RecordCompletion(resp.Model, "success", float64(resp.LatencyMs)/1000.0, resp.TokensIn, resp.TokensOut)

	s.dispatcher.Dispatch(ctx, conversationID, userID, resp.Content, calendar, mail)

	assistantTurn := model.Turn{Role: model.RoleAssistant, Content: resp.Content}
	if _, err := s.store.Append(conversationID, userTurn, assistantTurn); err != nil {
		return "", fmt.Errorf("persist history: %w", err)
	}
	metrics.TurnsTotal.WithLabelValues(string(model.RoleUser)).Inc()
	metrics.TurnsTotal.WithLabelValues(string(model.RoleAssistant)).Inc()

	s.logger.Info("turn completed",
		zap.String("conversation_id", conversationID),
		zap.String("model", resp.Model),
		zap.Int("tokens_in", resp.TokensIn),
		zap.Int("tokens_out", resp.TokensOut),
	)
	return resp.Content, nil
}

// History returns the ordered turns of one conversation.
func (s *Service) History(conversationID string) ([]model.Turn, error) {
	return s.store.Get(conversationID)
}

// ClearHistory removes one conversation. Clearing twice is safe.
func (s *Service) ClearHistory(conversationID string) error {
	return s.store.Clear(conversationID)
}

func (s *Service) resolveCalendar(ctx context.Context, userID string) provider.Calendar {
	calendar, err := s.providers.Calendar(ctx, userID)
	if err != nil {
		s.logAuthFailure("calendar", userID, err)
		return nil
	}
	return calendar
}

func (s *Service) resolveMail(ctx context.Context, userID string) provider.Mail {
	mail, err := s.providers.Mail(ctx, userID)
	if err != nil {
		s.logAuthFailure("mail", userID, err)
		return nil
	}
	return mail
}

func (s *Service) logAuthFailure(kind, userID string, err error) {
	if errors.Is(err, provider.ErrAuthRequired) {
		s.logger.Info("no credentials, degrading "+kind+" features",
			zap.String("user_id", userID),
		)
		return
	}
	s.logger.Warn("failed to resolve "+kind+" access",
		zap.String("user_id", userID),
		zap.Error(err),
	)
}

func (s *Service) calendarContext(ctx context.Context, calendar provider.Calendar) string {
	if calendar == nil {
		return calendarUnavailable
	}
	evs, err := calendar.UpcomingEvents(ctx, s.cfg.ContextEvents)
	if err != nil {
		s.logger.Warn("failed to fetch upcoming events", zap.Error(err))
		return calendarUnavailable
	}

	var b strings.Builder
	b.WriteString("Your upcoming events:")
	for _, ev := range evs {
		fmt.Fprintf(&b, "\n- %s on %s", ev.Summary, ev.Start)
	}
	return b.String()
}

func (s *Service) mailContext(ctx context.Context, mail provider.Mail) string {
	if mail == nil {
		return mailUnavailable
	}
	msgs, err := mail.RecentMessages(ctx, s.cfg.ContextEmails)
	if err != nil {
		s.logger.Warn("failed to fetch recent emails", zap.Error(err))
		return mailUnavailable
	}

	var b strings.Builder
	b.WriteString("Your recent emails:")
	for _, m := range msgs {
		fmt.Fprintf(&b, "\n- From: %s, Subject: %s, Date: %s", m.From, m.Subject, m.Date)
	}
	return b.String()
}

// composeInput builds the model input: the fixed system prompt, the two
// context strings as pseudo-system turns, and the trailing window of the
// conversation including the new user turn.
func (s *Service) composeInput(prior []model.Turn, userTurn model.Turn, calendarContext, mailContext string) []llm.ChatMessage {
	turns := make([]model.Turn, 0, len(prior)+1)
	turns = append(turns, prior...)
	turns = append(turns, userTurn)
	if len(turns) > s.cfg.HistoryWindow {
		turns = turns[len(turns)-s.cfg.HistoryWindow:]
	}

	messages := make([]llm.ChatMessage, 0, len(turns)+3)
	messages = append(messages,
		llm.ChatMessage{Role: string(model.RoleSystem), Content: s.prompt},
		llm.ChatMessage{Role: string(model.RoleSystem), Content: calendarContext},
		llm.ChatMessage{Role: string(model.RoleSystem), Content: mailContext},
	)
	for _, t := range turns {
		messages = append(messages, llm.ChatMessage{Role: string(t.Role), Content: t.Content})
	}
	return messages
}
