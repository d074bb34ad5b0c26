// Package sync coordinates fetchers, repositories, and the scoring engine
// for one user-sync request.
package sync

import (
	"context"
	"fmt"
	"log"

	"github.com/camdenhq/rapport/internal/ingest"
	"github.com/camdenhq/rapport/internal/model"
)

// Clients are the per-user provider clients one sync runs against. Calendar
// is nil for providers without calendar support.
type Clients struct {
	Mail     ingest.MailClient
	Calendar ingest.CalendarClient
}

// ClientFactory builds provider clients for an access token.
type ClientFactory func(ctx context.Context, provider model.Provider, accessToken string) (Clients, error)

// TokenSource yields a valid access token for a user.
type TokenSource interface {
	ValidAccessToken(ctx context.Context, userID string) (string, error)
}

// UserLoader resolves the user record owning a sync.
type UserLoader interface {
	GetUser(ctx context.Context, id string) (*model.User, error)
}

// EventSink receives telemetry about completed syncs.
type EventSink interface {
	SyncCompleted(ctx context.Context, userID string, report *model.SyncReport)
}

// Recomputer runs the post-ingest scoring pass.
type Recomputer interface {
	RecomputeAll(ctx context.Context, userID string) error
}

// Orchestrator runs email ingestion (fatal on failure), calendar ingestion
// (downgraded to a report field on failure), then the score recompute pass.
type Orchestrator struct {
	Users      UserLoader
	Tokens     TokenSource
	Factory    ClientFactory
	Email      *ingest.EmailFetcher
	Calendar   *ingest.CalendarFetcher
	Recomputer Recomputer
	Events     EventSink // optional
}

// Sync runs one end-to-end fetch-then-score pass for the user.
func (o *Orchestrator) Sync(ctx context.Context, userID, userEmail string) (*model.SyncReport, error) {
	user, err := o.Users.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("unknown user %s: %w", userID, model.ErrAuthExpired)
	}

	token, err := o.Tokens.ValidAccessToken(ctx, userID)
	if err != nil {
		return nil, err
	}

	clients, err := o.Factory(ctx, user.Provider, token)
	if err != nil {
		return nil, fmt.Errorf("create provider clients: %w", err)
	}

	report := &model.SyncReport{}

	// Email is the primary signal; its failure fails the sync.
	emailRes, err := o.Email.Fetch(ctx, clients.Mail, userID, userEmail)
	if err != nil {
		return nil, err
	}
	report.EmailContactsUpserted = emailRes.ContactsUpserted
	report.EmailInteractionsCreated = emailRes.InteractionsCreated

	// Calendar access is secondary; its failure lands in the report.
	switch {
	case clients.Calendar == nil:
		report.CalendarError = "calendar sync is only available for google accounts"
	default:
		calRes, err := o.Calendar.Fetch(ctx, clients.Calendar, userID, userEmail)
		report.CalendarContactsUpserted = calRes.ContactsUpserted
		report.CalendarInteractionsCreated = calRes.InteractionsCreated
		if err != nil {
			report.CalendarError = err.Error()
			log.Printf("sync %s: calendar error: %v", userID, err)
		}
	}

	// Recompute after both fetchers so the pass sees fresh data.
	if err := o.Recomputer.RecomputeAll(ctx, userID); err != nil {
		return nil, fmt.Errorf("recompute scores: %w", err)
	}

	if o.Events != nil {
		o.Events.SyncCompleted(ctx, userID, report)
	}

	return report, nil
}
