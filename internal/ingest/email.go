package ingest

import (
	"context"
	"fmt"
	"log"
	"net/mail"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/camdenhq/rapport/internal/model"
)

// EmailFetcher ingests mail history: pages the provider's message list,
// fetches metadata in concurrent batches, resolves the counterparty for each
// message, and upserts contacts and deduplicated interactions.
type EmailFetcher struct {
	Repo      Repository
	DaysBack  int
	BatchSize int
	// Pace between batches; absorbs provider rate limits.
	BatchInterval time.Duration

	// Now is overridable in tests; defaults to time.Now.
	Now func() time.Time
}

// Fetch runs one email ingestion pass for the user. A failure listing
// message IDs aborts the whole fetch; a failure fetching or parsing one
// message only skips that message.
func (f *EmailFetcher) Fetch(ctx context.Context, client MailClient, userID, userEmail string) (Result, error) {
	now := f.now()
	since := now.AddDate(0, 0, -f.DaysBack)
	ownEmail := strings.ToLower(userEmail)

	// Accumulate the full working set of IDs before processing. Bounded by
	// the requested window, so mailbox volume stays manageable.
	var messageIDs []string
	cursor := ""
	for {
		ids, next, err := client.ListMessageIDs(ctx, since, cursor)
		if err != nil {
			return Result{}, fmt.Errorf("list messages: %w", err)
		}
		messageIDs = append(messageIDs, ids...)
		if next == "" {
			break
		}
		cursor = next
	}

	batchSize := f.BatchSize
	if batchSize <= 0 {
		batchSize = 50
	}
	limiter := rate.NewLimiter(rate.Every(f.BatchInterval), 1)

	var result Result
	var mu sync.Mutex

	for start := 0; start < len(messageIDs); start += batchSize {
		if start > 0 {
			if err := limiter.Wait(ctx); err != nil {
				return result, err
			}
		}

		end := start + batchSize
		if end > len(messageIDs) {
			end = len(messageIDs)
		}

		var wg sync.WaitGroup
		for _, msgID := range messageIDs[start:end] {
			wg.Add(1)
			go func(msgID string) {
				defer wg.Done()
				item, err := f.processMessage(ctx, client, userID, ownEmail, msgID, now)
				if err != nil {
					// Skippable per-item failure; whatever succeeded before
					// the error still counts.
					log.Printf("email ingest: skipping message %s: %v", msgID, err)
				}
				mu.Lock()
				result.Add(item)
				mu.Unlock()
			}(msgID)
		}
		wg.Wait()
	}

	return result, nil
}

// processMessage handles one message end to end. Any returned error means
// the message is skipped.
func (f *EmailFetcher) processMessage(ctx context.Context, client MailClient, userID, ownEmail, msgID string, now time.Time) (Result, error) {
	msg, err := client.GetMessage(ctx, msgID)
	if err != nil {
		return Result{}, err
	}

	ts := now
	if msg.Date != "" {
		ts, err = mail.ParseDate(msg.Date)
		if err != nil {
			return Result{}, fmt.Errorf("malformed date %q: %w", msg.Date, err)
		}
	}

	fromName, fromEmail := parseAddress(msg.From)
	outbound := fromEmail == ownEmail

	// The contact is the other party: first recipient for outbound mail,
	// the sender for inbound mail.
	contactName, contactEmail := fromName, fromEmail
	if outbound {
		contactName, contactEmail = firstAddress(msg.To)
	}

	// Self-mail and mailing-list artifacts carry no relationship signal.
	if contactEmail == "" || contactEmail == ownEmail {
		return Result{}, nil
	}

	contact, err := f.Repo.UpsertContact(ctx, userID, contactEmail, contactName, &ts)
	if err != nil {
		return Result{}, err
	}
	item := Result{ContactsUpserted: 1}

	exists, err := f.Repo.HasEmailInteraction(ctx, contact.ID, msg.ThreadID, ts)
	if err != nil {
		return item, err
	}
	if exists {
		return item, nil
	}

	typ := model.InteractionEmailIn
	if outbound {
		typ = model.InteractionEmailOut
	}
	created, err := f.Repo.CreateInteraction(ctx, &model.Interaction{
		OwnerUserID: userID,
		ContactID:   contact.ID,
		Type:        typ,
		Subject:     msg.Subject,
		Snippet:     msg.Snippet,
		Timestamp:   ts,
		ThreadID:    msg.ThreadID,
	})
	if err != nil {
		return item, err
	}
	if created {
		item.InteractionsCreated = 1
	}
	return item, nil
}

func (f *EmailFetcher) now() time.Time {
	if f.Now != nil {
		return f.Now()
	}
	return time.Now()
}
