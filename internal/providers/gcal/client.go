// Package gcal implements the calendar-provider surface over the Google
// Calendar API.
package gcal

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	calendarapi "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/camdenhq/rapport/internal/ingest"
	"github.com/camdenhq/rapport/internal/providers/google"
)

const pageSize = 250

// Client implements ingest.CalendarClient for Google Calendar.
type Client struct {
	svc *calendarapi.Service
}

// New creates a Calendar client bound to an access token.
func New(ctx context.Context, accessToken string) (*Client, error) {
	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	httpClient := oauth2.NewClient(ctx, source)

	svc, err := calendarapi.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}

	return &Client{svc: svc}, nil
}

// ListEvents returns one page of the primary calendar's events in [from, to]
// with recurring events expanded into single instances.
func (c *Client) ListEvents(ctx context.Context, from, to time.Time, cursor string) ([]ingest.Event, string, error) {
	call := c.svc.Events.List("primary").
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339)).
		MaxResults(pageSize).
		SingleEvents(true)
	if cursor != "" {
		call = call.PageToken(cursor)
	}

	resp, err := call.Context(ctx).Do()
	if err != nil {
		return nil, "", google.ClassifyError(google.Calendar, err)
	}

	events := make([]ingest.Event, 0, len(resp.Items))
	for _, item := range resp.Items {
		events = append(events, normalize(item))
	}
	return events, resp.NextPageToken, nil
}

// normalize maps one API event; a missing or unparseable start yields a zero
// Start, which the fetcher skips.
func normalize(item *calendarapi.Event) ingest.Event {
	event := ingest.Event{Summary: item.Summary}

	if item.Start != nil {
		event.Start = parseStart(item.Start)
	}

	for _, a := range item.Attendees {
		event.Attendees = append(event.Attendees, ingest.Attendee{
			Email:       a.Email,
			DisplayName: a.DisplayName,
		})
	}
	return event
}

func parseStart(start *calendarapi.EventDateTime) time.Time {
	if start.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, start.DateTime); err == nil {
			return t
		}
		return time.Time{}
	}
	if start.Date != "" {
		// All-day events carry a bare date.
		if t, err := time.Parse("2006-01-02", start.Date); err == nil {
			return t
		}
	}
	return time.Time{}
}
