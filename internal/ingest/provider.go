// Package ingest turns provider mail and calendar history into contacts and
// interactions.
package ingest

import (
	"context"
	"time"

	"github.com/camdenhq/rapport/internal/model"
)

// MessageMeta is the normalized metadata of one mail message. Header values
// are raw; the fetcher parses addresses and the date.
type MessageMeta struct {
	ID       string
	ThreadID string
	Subject  string
	Snippet  string
	From     string // raw From header
	To       string // raw To header
	Date     string // raw Date header
}

// Event is one normalized calendar event instance. Start is zero when the
// provider start time was missing or unparseable.
type Event struct {
	Summary   string
	Start     time.Time
	Attendees []Attendee
}

type Attendee struct {
	Email       string
	DisplayName string
}

// MailClient is the consumed mail-provider surface: cursor-paginated message
// listing plus per-message metadata fetch.
type MailClient interface {
	ListMessageIDs(ctx context.Context, since time.Time, cursor string) (ids []string, nextCursor string, err error)
	GetMessage(ctx context.Context, id string) (*MessageMeta, error)
}

// CalendarClient is the consumed calendar-provider surface: cursor-paginated
// event listing for a time range with recurring events expanded.
type CalendarClient interface {
	ListEvents(ctx context.Context, from, to time.Time, cursor string) (events []Event, nextCursor string, err error)
}

// Repository is the slice of the store the fetchers write through.
type Repository interface {
	UpsertContact(ctx context.Context, ownerUserID, email, displayName string, lastInteractionAt *time.Time) (*model.Contact, error)
	HasEmailInteraction(ctx context.Context, contactID, threadID string, ts time.Time) (bool, error)
	HasMeetingInteraction(ctx context.Context, contactID string, ts time.Time, subject string) (bool, error)
	CreateInteraction(ctx context.Context, in *model.Interaction) (bool, error)
}

// Result aggregates one fetcher run. ContactsUpserted counts upsert calls,
// not distinct contacts.
type Result struct {
	ContactsUpserted    int
	InteractionsCreated int
}

// Add folds a per-item outcome into the running totals.
func (r *Result) Add(other Result) {
	r.ContactsUpserted += other.ContactsUpserted
	r.InteractionsCreated += other.InteractionsCreated
}
