package scoring

import (
	"context"
	"fmt"
	"time"

	"github.com/camdenhq/rapport/internal/model"
	"github.com/camdenhq/rapport/internal/store"
)

// ScoreStore is the slice of the store the recompute pass needs.
type ScoreStore interface {
	ListContactsWithInteractions(ctx context.Context, ownerUserID string) ([]*store.ContactWithHistory, error)
	UpdateContactScore(ctx context.Context, contactID string, score int, label model.RiskLabel) error
}

// Recomputer overwrites every contact's (score, riskLabel) pair from its
// full interaction history. Runs after ingestion so it sees fresh data.
type Recomputer struct {
	Store ScoreStore

	// Now is overridable in tests; defaults to time.Now.
	Now func() time.Time
}

// RecomputeAll recomputes and persists the score for every contact owned by
// the user.
func (r *Recomputer) RecomputeAll(ctx context.Context, userID string) error {
	contacts, err := r.Store.ListContactsWithInteractions(ctx, userID)
	if err != nil {
		return fmt.Errorf("load contacts: %w", err)
	}

	now := time.Now()
	if r.Now != nil {
		now = r.Now()
	}

	for _, cwh := range contacts {
		score, label := ComputeScore(ParamsFor(cwh.Contact, cwh.Interactions, now))
		if err := r.Store.UpdateContactScore(ctx, cwh.Contact.ID, score, label); err != nil {
			return fmt.Errorf("update score for %s: %w", cwh.Contact.ID, err)
		}
	}

	return nil
}

// ParamsFor derives the formula inputs from a contact and its interactions.
// Interactions must be ordered by timestamp descending.
func ParamsFor(contact *model.Contact, interactions []*model.Interaction, now time.Time) Params {
	last := contact.CreatedAt
	if contact.LastInteractionAt != nil {
		last = *contact.LastInteractionAt
	}
	daysSince := int(now.Sub(last).Hours() / 24)
	if daysSince < 0 {
		daysSince = 0
	}

	thirtyDaysAgo := now.Add(-30 * 24 * time.Hour)

	p := Params{DaysSinceLastInteraction: daysSince}
	sawEmail := false
	for _, in := range interactions {
		if in.Type.IsEmail() && !sawEmail {
			// Newest email decides outbound-pending: the user sent the last
			// email and has not yet received a reply.
			sawEmail = true
			p.OutboundPending = in.Type == model.InteractionEmailOut
		}
		if in.Timestamp.Before(thirtyDaysAgo) {
			continue
		}
		switch {
		case in.Type == model.InteractionMeeting:
			p.MeetingCountLast30++
		case in.Type.IsEmail():
			p.EmailCountLast30++
		}
	}

	return p
}
