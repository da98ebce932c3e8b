package intent

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventIntent(t *testing.T) {
	x := &Extractor{DefaultTimezone: "America/New_York"}

	t.Run("no marker", func(t *testing.T) {
		ev, err := x.EventIntent("Sure, I can help you plan your week.")
		assert.Nil(t, ev)
		assert.ErrorIs(t, err, ErrNoIntent)
	})

	t.Run("marker is case sensitive", func(t *testing.T) {
		_, err := x.EventIntent(`{"ACTION": "CREATE_EVENT", "event_details": {}}`)
		assert.ErrorIs(t, err, ErrNoIntent)
	})

	t.Run("well formed payload", func(t *testing.T) {
		text := `I'll create that event for you:
{
    "action": "create_event",
    "event_details": {
        "summary": "Team standup",
        "description": "Daily sync",
        "start_time": "2025-03-10T09:00:00",
        "end_time": "2025-03-10T09:15:00",
        "timezone": "Europe/Berlin",
        "location": "Room 4",
        "attendees": ["a@b.com", "c@d.com"]
    }
}
Let me know if you'd like changes.`

		ev, err := x.EventIntent(text)
		require.NoError(t, err)
		assert.Equal(t, "Team standup", ev.Summary)
		assert.Equal(t, "Daily sync", ev.Description)
		assert.Equal(t, "2025-03-10T09:00:00", ev.StartTime)
		assert.Equal(t, "2025-03-10T09:15:00", ev.EndTime)
		assert.Equal(t, "Europe/Berlin", ev.Timezone)
		assert.Equal(t, "Room 4", ev.Location)
		assert.Equal(t, []string{"a@b.com", "c@d.com"}, ev.Attendees)
	})

	t.Run("timezone defaults when omitted", func(t *testing.T) {
		text := `{"action": "create_event", "event_details": {"summary": "Exam", "start_time": "2025-05-01T10:00:00", "end_time": "2025-05-01T12:00:00"}}`

		ev, err := x.EventIntent(text)
		require.NoError(t, err)
		assert.Equal(t, "America/New_York", ev.Timezone)
		assert.Empty(t, ev.Location)
	})

	t.Run("malformed JSON after marker", func(t *testing.T) {
		ev, err := x.EventIntent(`{"action": "create_event", "event_details": {broken}`)
		assert.Nil(t, ev)
		var pe *ParseError
		require.True(t, errors.As(err, &pe))
		assert.Equal(t, "event", pe.Kind)
	})

	t.Run("missing event_details", func(t *testing.T) {
		_, err := x.EventIntent(`{"action": "create_event"}`)
		var pe *ParseError
		require.True(t, errors.As(err, &pe))
	})

	t.Run("marker without any object", func(t *testing.T) {
		_, err := x.EventIntent(`the literal "action": "create_event" with no braces`)
		var pe *ParseError
		require.True(t, errors.As(err, &pe))
	})

	t.Run("recurrence and reminders pass through", func(t *testing.T) {
		text := `{"action": "create_event", "event_details": {"summary": "Gym", "start_time": "2025-04-01T07:00:00", "end_time": "2025-04-01T08:00:00", "recurrence": "RRULE:FREQ=WEEKLY;BYDAY=MO", "reminders": {"useDefault": false, "overrides": [{"method": "popup", "minutes": 30}]}}}`

		ev, err := x.EventIntent(text)
		require.NoError(t, err)
		assert.Equal(t, "RRULE:FREQ=WEEKLY;BYDAY=MO", ev.Recurrence)
		require.NotNil(t, ev.Reminders)
		assert.False(t, ev.Reminders.UseDefault)
		require.Len(t, ev.Reminders.Overrides, 1)
		assert.Equal(t, "popup", ev.Reminders.Overrides[0].Method)
		assert.EqualValues(t, 30, ev.Reminders.Overrides[0].Minutes)
	})
}

func TestEmailIntent(t *testing.T) {
	x := &Extractor{}

	t.Run("no marker", func(t *testing.T) {
		em, err := x.EmailIntent("I could draft an email if you like.")
		assert.Nil(t, em)
		assert.ErrorIs(t, err, ErrNoIntent)
	})

	t.Run("canonical form", func(t *testing.T) {
		em, err := x.EmailIntent("send email to: a@b.com subject: Hi body: Hello")
		require.NoError(t, err)
		assert.Equal(t, &EmailIntent{To: "a@b.com", Subject: "Hi", Body: "Hello"}, em)
	})

	t.Run("marker matched case insensitively", func(t *testing.T) {
		em, err := x.EmailIntent("Here's what I propose:\nSend email to: john@email.com subject: Meeting Tomorrow body: Hello John, see you at 10.")
		require.NoError(t, err)
		assert.Equal(t, "john@email.com", em.To)
		assert.Equal(t, "Meeting Tomorrow", em.Subject)
		assert.Equal(t, "Hello John, see you at 10.", em.Body)
	})

	t.Run("multibyte runes before the marker keep field offsets", func(t *testing.T) {
		em, err := x.EmailIntent("İstanbul trip: send email to: a@b.com subject: Hi body: Hello")
		require.NoError(t, err)
		assert.Equal(t, &EmailIntent{To: "a@b.com", Subject: "Hi", Body: "Hello"}, em)
	})

	t.Run("everything after body marker belongs to the body", func(t *testing.T) {
		em, err := x.EmailIntent("send email to: a@b.com subject: Plans body: First line. subject: not a separator here")
		require.NoError(t, err)
		assert.Equal(t, "Plans", em.Subject)
		assert.Equal(t, "First line. subject: not a separator here", em.Body)
	})

	t.Run("first marker occurrence wins", func(t *testing.T) {
		em, err := x.EmailIntent("send email to: a@b.com subject: One body: send email to: x@y.com subject: Two body: nope")
		require.NoError(t, err)
		assert.Equal(t, "a@b.com", em.To)
		assert.Equal(t, "One", em.Subject)
	})

	t.Run("missing subject separator", func(t *testing.T) {
		_, err := x.EmailIntent("send email to: a@b.com with no structure")
		var pe *ParseError
		require.True(t, errors.As(err, &pe))
		assert.Equal(t, "email", pe.Kind)
	})

	t.Run("missing body separator", func(t *testing.T) {
		_, err := x.EmailIntent("send email to: a@b.com subject: Hi and nothing else")
		var pe *ParseError
		require.True(t, errors.As(err, &pe))
	})
}

func TestIntentsCoexist(t *testing.T) {
	x := &Extractor{DefaultTimezone: "UTC"}
	text := `Done. send email to: a@b.com subject: Invite body: You're invited.
{"action": "create_event", "event_details": {"summary": "Party", "start_time": "2025-06-01T18:00:00", "end_time": "2025-06-01T22:00:00"}}`

	ev, err := x.EventIntent(text)
	require.NoError(t, err)
	assert.Equal(t, "Party", ev.Summary)

	em, err := x.EmailIntent(text)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", em.To)
}
