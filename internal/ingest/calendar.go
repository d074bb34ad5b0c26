package ingest

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/camdenhq/rapport/internal/model"
)

// CalendarFetcher ingests calendar history over a fixed window: 90 days back
// and 30 days forward, with recurring events expanded by the provider.
// Attendees are processed sequentially; volume is low enough that batching
// is not worth it here.
type CalendarFetcher struct {
	Repo Repository

	// Now is overridable in tests; defaults to time.Now.
	Now func() time.Time
}

const (
	calendarDaysBack    = 90
	calendarDaysForward = 30
)

// Fetch runs one calendar ingestion pass for the user. A failure listing
// events aborts the fetch; a failure on one attendee only skips that
// attendee.
func (f *CalendarFetcher) Fetch(ctx context.Context, client CalendarClient, userID, userEmail string) (Result, error) {
	now := f.now()
	from := now.AddDate(0, 0, -calendarDaysBack)
	to := now.AddDate(0, 0, calendarDaysForward)
	ownEmail := strings.ToLower(userEmail)

	var result Result
	cursor := ""
	for {
		events, next, err := client.ListEvents(ctx, from, to, cursor)
		if err != nil {
			return result, fmt.Errorf("list events: %w", err)
		}

		for _, event := range events {
			// No attendees means no relationship signal; a zero start means
			// the provider timestamp was missing or unparseable.
			if len(event.Attendees) == 0 || event.Start.IsZero() {
				continue
			}
			result.Add(f.processEvent(ctx, userID, ownEmail, event, now))
		}

		if next == "" {
			break
		}
		cursor = next
	}

	return result, nil
}

func (f *CalendarFetcher) processEvent(ctx context.Context, userID, ownEmail string, event Event, now time.Time) Result {
	subject := event.Summary
	if subject == "" {
		subject = "Meeting"
	}

	var result Result
	for _, attendee := range event.Attendees {
		email := strings.ToLower(attendee.Email)
		if email == "" || email == ownEmail {
			continue
		}

		item, err := f.processAttendee(ctx, userID, email, attendee.DisplayName, subject, event.Start, now)
		if err != nil {
			log.Printf("calendar ingest: skipping attendee %s: %v", email, err)
		}
		result.Add(item)
	}
	return result
}

func (f *CalendarFetcher) processAttendee(ctx context.Context, userID, email, displayName, subject string, start, now time.Time) (Result, error) {
	// Future meetings are known but not yet contact made, so they must not
	// advance lastInteractionAt.
	var lastAt *time.Time
	if !start.After(now) {
		ts := start
		lastAt = &ts
	}

	contact, err := f.Repo.UpsertContact(ctx, userID, email, displayName, lastAt)
	if err != nil {
		return Result{}, err
	}
	item := Result{ContactsUpserted: 1}

	exists, err := f.Repo.HasMeetingInteraction(ctx, contact.ID, start, subject)
	if err != nil {
		return item, err
	}
	if exists {
		return item, nil
	}

	created, err := f.Repo.CreateInteraction(ctx, &model.Interaction{
		OwnerUserID: userID,
		ContactID:   contact.ID,
		Type:        model.InteractionMeeting,
		Subject:     subject,
		Timestamp:   start,
	})
	if err != nil {
		return item, err
	}
	if created {
		item.InteractionsCreated = 1
	}
	return item, nil
}

func (f *CalendarFetcher) now() time.Time {
	if f.Now != nil {
		return f.Now()
	}
	return time.Now()
}
