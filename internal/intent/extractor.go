// Package intent extracts structured action intents from free-form assistant
// text. The contract is deliberately narrow: exactly two hardcoded sentinel
// markers, one for calendar event creation and one for email sending. The
// model is treated as an untrusted, best-effort formatter, so a present
// marker with a malformed payload is a parse failure for the caller to log
// and swallow, never a reason to reject the turn.
package intent

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	// eventMarker is matched case-sensitively; it is the exact fragment the
	// system prompt instructs the model to emit.
	eventMarker = `"action": "create_event"`

	// emailMarker is matched case-insensitively. Field separators after it
	// are matched case-sensitively, mirroring the prompt's template.
	emailMarker     = "send email to:"
	subjectSep      = " subject: "
	bodySep         = " body: "
	actionCreateEvt = "create_event"
)

// ErrNoIntent reports that the scanned text contains no intent marker. It is
// the normal outcome for most turns and must not be logged as a failure.
var ErrNoIntent = errors.New("intent: no marker present")

// ParseError reports a present marker whose payload could not be extracted.
type ParseError struct {
	Kind string // "event" or "email"
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("intent: malformed %s payload: %v", e.Kind, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// EventIntent is a calendar event extracted from an embedded JSON action
// payload. Start/end times stay in the model's wall-clock form; the timezone
// field qualifies both.
type EventIntent struct {
	Summary     string     `json:"summary"`
	Description string     `json:"description,omitempty"`
	Location    string     `json:"location,omitempty"`
	StartTime   string     `json:"start_time"`
	EndTime     string     `json:"end_time"`
	Timezone    string     `json:"timezone,omitempty"`
	Attendees   []string   `json:"attendees,omitempty"`
	Recurrence  string     `json:"recurrence,omitempty"`
	Reminders   *Reminders `json:"reminders,omitempty"`
}

// Reminders configures event notification overrides.
type Reminders struct {
	UseDefault bool               `json:"useDefault"`
	Overrides  []ReminderOverride `json:"overrides,omitempty"`
}

// ReminderOverride is a single reminder rule.
type ReminderOverride struct {
	Method  string `json:"method"`
	Minutes int64  `json:"minutes"`
}

// EmailIntent is an outbound email extracted from the sentinel-delimited
// "send email to: ... subject: ... body: ..." pattern.
type EmailIntent struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// eventEnvelope is the wire shape of the embedded action payload.
type eventEnvelope struct {
	Action       string       `json:"action"`
	EventDetails *EventIntent `json:"event_details"`
}

// Extractor scans assistant text for intents. The zero value is usable;
// DefaultTimezone fills EventIntent.Timezone when the payload omits it.
type Extractor struct {
	DefaultTimezone string
}

// EventIntent extracts at most one calendar intent from text. It returns
// ErrNoIntent when the marker is absent and a *ParseError when the marker is
// present but the surrounding JSON object is unusable. Only the first marker
// occurrence is considered: the JSON slice runs from the first '{' in the
// text to the last '}', so a repeated confirmation cannot fire twice.
func (x *Extractor) EventIntent(text string) (*EventIntent, error) {
	if !strings.Contains(text, eventMarker) {
		return nil, ErrNoIntent
	}

	open := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if open == -1 || end < open {
		return nil, &ParseError{Kind: "event", Err: errors.New("no JSON object around marker")}
	}

	var env eventEnvelope
	if err := json.Unmarshal([]byte(text[open:end+1]), &env); err != nil {
		return nil, &ParseError{Kind: "event", Err: err}
	}
	if env.Action != actionCreateEvt {
		// The marker matched inside an unrelated payload; nothing to do.
		return nil, ErrNoIntent
	}
	if env.EventDetails == nil {
		return nil, &ParseError{Kind: "event", Err: errors.New("missing event_details")}
	}

	ev := env.EventDetails
	if ev.Timezone == "" {
		ev.Timezone = x.DefaultTimezone
	}
	return ev, nil
}

// EmailIntent extracts at most one email intent from text. The recipient is
// the text between the marker and the first " subject: " separator; the
// subject runs up to the first " body: " separator; everything after is the
// body. All three fields are trimmed. A missing separator is a *ParseError.
func (x *Extractor) EmailIntent(text string) (*EmailIntent, error) {
	i := indexFold(text, emailMarker)
	if i == -1 {
		return nil, ErrNoIntent
	}
	tail := text[i:]

	parts := strings.SplitN(tail, subjectSep, 2)
	if len(parts) != 2 {
		return nil, &ParseError{Kind: "email", Err: errors.New("missing subject separator")}
	}
	to := strings.TrimSpace(parts[0][len(emailMarker):])

	rest := strings.SplitN(parts[1], bodySep, 2)
	if len(rest) != 2 {
		return nil, &ParseError{Kind: "email", Err: errors.New("missing body separator")}
	}

	return &EmailIntent{
		To:      to,
		Subject: strings.TrimSpace(rest[0]),
		Body:    strings.TrimSpace(rest[1]),
	}, nil
}

// indexFold returns the byte offset of the first case-insensitive occurrence
// of marker in text, or -1. Lowercasing the haystack would not do: case
// mapping can change a rune's byte length (İ), shifting every offset after
// it. marker is ASCII, so a fixed-width window compare preserves offsets.
func indexFold(text, marker string) int {
	for i := 0; i+len(marker) <= len(text); i++ {
		if strings.EqualFold(text[i:i+len(marker)], marker) {
			return i
		}
	}
	return -1
}
