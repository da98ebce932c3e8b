// Package provider defines the capability interfaces the assistant core uses
// to reach external calendar and mail services. Implementations live in
// internal/google; the core only sees these interfaces so tests can
// substitute fakes.
package provider

import (
	"context"
	"errors"

	"github.com/studyhub-ai/assistant-api/internal/intent"
)

// ErrAuthRequired reports that no usable delegated credentials exist for the
// requested user. Callers degrade the affected sub-feature and steer the
// user toward (re)authorization instead of failing the whole request.
var ErrAuthRequired = errors.New("provider: authorization required")

// EventSummary is a condensed upcoming calendar item used for prompt context.
type EventSummary struct {
	Summary string `json:"summary"`
	Start   string `json:"start"`
}

// MessageSummary is condensed mail metadata used for prompt context.
type MessageSummary struct {
	ID      string `json:"id"`
	From    string `json:"from"`
	Subject string `json:"subject"`
	Date    string `json:"date"`
}

// Calendar is a per-user calendar capability handle.
type Calendar interface {
	// UpcomingEvents lists up to max upcoming events ordered by start time.
	UpcomingEvents(ctx context.Context, max int64) ([]EventSummary, error)

	// CreateEvent issues exactly one insert for the intent and returns the
	// provider-assigned event id.
	CreateEvent(ctx context.Context, ev *intent.EventIntent) (string, error)
}

// Mail is a per-user mail capability handle.
type Mail interface {
	// RecentMessages lists metadata for up to max recent inbox messages.
	RecentMessages(ctx context.Context, max int64) ([]MessageSummary, error)

	// Search lists metadata for messages matching the provider query syntax.
	Search(ctx context.Context, query string, max int64) ([]MessageSummary, error)

	// Send issues exactly one send for the intent and returns the
	// provider-assigned message id.
	Send(ctx context.Context, em *intent.EmailIntent) (string, error)
}

// Resolver turns a user id into authorized capability handles.
type Resolver interface {
	Calendar(ctx context.Context, userID string) (Calendar, error)
	Mail(ctx context.Context, userID string) (Mail, error)
}
