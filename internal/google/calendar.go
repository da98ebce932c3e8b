package google

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/studyhub-ai/assistant-api/internal/intent"
	"github.com/studyhub-ai/assistant-api/internal/provider"
)

const primaryCalendar = "primary"

// CalendarClient implements provider.Calendar against the Calendar v3 API.
type CalendarClient struct {
	svc *calendar.Service
}

// NewCalendarClient builds an authorized calendar client.
func NewCalendarClient(ctx context.Context, ts oauth2.TokenSource) (*CalendarClient, error) {
	svc, err := calendar.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	return &CalendarClient{svc: svc}, nil
}

// UpcomingEvents lists up to max upcoming events on the primary calendar,
// ordered by start time.
func (c *CalendarClient) UpcomingEvents(ctx context.Context, max int64) ([]provider.EventSummary, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := c.svc.Events.List(primaryCalendar).
		TimeMin(now).
		MaxResults(max).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	summaries := make([]provider.EventSummary, 0, len(res.Items))
	for _, ev := range res.Items {
		summary := ev.Summary
		if summary == "" {
			summary = "Untitled"
		}
		start := "No date"
		if ev.Start != nil {
			if ev.Start.DateTime != "" {
				start = ev.Start.DateTime
			} else if ev.Start.Date != "" {
				start = ev.Start.Date
			}
		}
		summaries = append(summaries, provider.EventSummary{Summary: summary, Start: start})
	}
	return summaries, nil
}

// CreateEvent maps the intent onto a provider event record and issues
// exactly one insert. Returns the provider-assigned event id.
func (c *CalendarClient) CreateEvent(ctx context.Context, in *intent.EventIntent) (string, error) {
	event := &calendar.Event{
		Summary:     in.Summary,
		Description: in.Description,
		Location:    in.Location,
		Start: &calendar.EventDateTime{
			DateTime: in.StartTime,
			TimeZone: in.Timezone,
		},
		End: &calendar.EventDateTime{
			DateTime: in.EndTime,
			TimeZone: in.Timezone,
		},
	}

	if in.Recurrence != "" {
		event.Recurrence = []string{in.Recurrence}
	}
	for _, email := range in.Attendees {
		event.Attendees = append(event.Attendees, &calendar.EventAttendee{Email: email})
	}
	if in.Reminders != nil {
		reminders := &calendar.EventReminders{
			UseDefault: in.Reminders.UseDefault,
			// useDefault:false must reach the wire or overrides are ignored
			ForceSendFields: []string{"UseDefault"},
		}
		for _, o := range in.Reminders.Overrides {
			reminders.Overrides = append(reminders.Overrides, &calendar.EventReminder{
				Method:  o.Method,
				Minutes: o.Minutes,
			})
		}
		event.Reminders = reminders
	}

	created, err := c.svc.Events.Insert(primaryCalendar, event).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("insert event: %w", err)
	}
	return created.Id, nil
}
