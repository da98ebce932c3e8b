// Package dispatch turns intents detected in assistant text into at-most-once
// provider side effects. Nothing in this package can fail a chat turn: parse
// failures and provider errors are logged, counted, and swallowed so the
// conversational reply always reaches the user.
package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/studyhub-ai/assistant-api/internal/events"
	"github.com/studyhub-ai/assistant-api/internal/intent"
	"github.com/studyhub-ai/assistant-api/internal/provider"
	"github.com/studyhub-ai/assistant-api/pkg/metrics"
)

// Report records what the dispatcher actually executed for one assistant
// turn. Empty fields mean no side effect of that kind occurred.
type Report struct {
	EventID   string
	MessageID string
}

// Dispatcher extracts intents from assistant text and executes them.
type Dispatcher struct {
	extractor *intent.Extractor
	audit     *events.Publisher
	logger    *zap.Logger
}

// NewDispatcher creates a dispatcher. audit may be nil to disable the audit
// trail.
func NewDispatcher(extractor *intent.Extractor, audit *events.Publisher, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		extractor: extractor,
		audit:     audit,
		logger:    log,
	}
}

// Dispatch scans assistantText and executes at most one calendar intent and
// at most one email intent, each with exactly one provider call and no
// retries. A nil calendar or mail handle skips the corresponding side effect
// (the user is not authorized for it).
func (d *Dispatcher) Dispatch(
	ctx context.Context,
	conversationID, userID, assistantText string,
	calendar provider.Calendar,
	mail provider.Mail,
) Report {
	var report Report
	report.EventID = d.dispatchEvent(ctx, conversationID, userID, assistantText, calendar)
	report.MessageID = d.dispatchEmail(ctx, conversationID, userID, assistantText, mail)
	return report
}

func (d *Dispatcher) dispatchEvent(
	ctx context.Context,
	conversationID, userID, text string,
	calendar provider.Calendar,
) string {
	ev, err := d.extractor.EventIntent(text)
	if errors.Is(err, intent.ErrNoIntent) {
		return ""
	}
	if err != nil {
		metrics.IntentsTotal.WithLabelValues("event", "malformed").Inc()
		d.logger.Warn("discarding malformed calendar intent",
			zap.String("conversation_id", conversationID),
			zap.Error(err),
		)
		return ""
	}
	metrics.IntentsTotal.WithLabelValues("event", "extracted").Inc()

	if calendar == nil {
		d.logger.Info("calendar intent skipped, no calendar access",
			zap.String("conversation_id", conversationID),
			zap.String("user_id", userID),
		)
		return ""
	}

	eventID, err := calendar.CreateEvent(ctx, ev)
	if err != nil {
		metrics.DispatchesTotal.WithLabelValues("event", "error").Inc()
		d.logger.Error("failed to create calendar event",
			zap.String("conversation_id", conversationID),
			zap.Error(err),
		)
		return ""
	}
	metrics.DispatchesTotal.WithLabelValues("event", "success").Inc()

	d.logger.Info("created calendar event",
		zap.String("conversation_id", conversationID),
		zap.String("event_id", eventID),
	)
	d.audit.Publish(ctx, &events.ActionEvent{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ConversationID: conversationID,
		UserID:         userID,
		Type:           events.ActionEventCreated,
		ProviderID:     eventID,
		CreatedAt:      time.Now(),
	})
	return eventID
}

func (d *Dispatcher) dispatchEmail(
	ctx context.Context,
	conversationID, userID, text string,
	mail provider.Mail,
) string {
	em, err := d.extractor.EmailIntent(text)
	if errors.Is(err, intent.ErrNoIntent) {
		return ""
	}
	if err != nil {
		metrics.IntentsTotal.WithLabelValues("email", "malformed").Inc()
		d.logger.Warn("discarding malformed email intent",
			zap.String("conversation_id", conversationID),
			zap.Error(err),
		)
		return ""
	}
	metrics.IntentsTotal.WithLabelValues("email", "extracted").Inc()

	if mail == nil {
		d.logger.Info("email intent skipped, no mail access",
			zap.String("conversation_id", conversationID),
			zap.String("user_id", userID),
		)
		return ""
	}

	messageID, err := mail.Send(ctx, em)
	if err != nil {
		metrics.DispatchesTotal.WithLabelValues("email", "error").Inc()
		d.logger.Error("failed to send email",
			zap.String("conversation_id", conversationID),
			zap.String("to", em.To),
			zap.Error(err),
		)
		return ""
	}
	metrics.DispatchesTotal.WithLabelValues("email", "success").Inc()

	d.logger.Info("sent email",
		zap.String("conversation_id", conversationID),
		zap.String("to", em.To),
		zap.String("message_id", messageID),
	)
	d.audit.Publish(ctx, &events.ActionEvent{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ConversationID: conversationID,
		UserID:         userID,
		Type:           events.ActionEmailSent,
		ProviderID:     messageID,
		CreatedAt:      time.Now(),
	})
	return messageID
}
