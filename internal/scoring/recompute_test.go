package scoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/camdenhq/rapport/internal/model"
	"github.com/camdenhq/rapport/internal/store"
)

type fakeScoreStore struct {
	contacts []*store.ContactWithHistory
	listErr  error

	updated map[string]struct {
		score int
		label model.RiskLabel
	}
	updateErr error
}

func (f *fakeScoreStore) ListContactsWithInteractions(ctx context.Context, ownerUserID string) ([]*store.ContactWithHistory, error) {
	return f.contacts, f.listErr
}

func (f *fakeScoreStore) UpdateContactScore(ctx context.Context, contactID string, score int, label model.RiskLabel) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if f.updated == nil {
		f.updated = map[string]struct {
			score int
			label model.RiskLabel
		}{}
	}
	f.updated[contactID] = struct {
		score int
		label model.RiskLabel
	}{score, label}
	return nil
}

func TestParamsFor(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	lastAt := now.Add(-5 * 24 * time.Hour)

	mkContact := func(last *time.Time) *model.Contact {
		return &model.Contact{ID: "c1", CreatedAt: now.Add(-200 * 24 * time.Hour), LastInteractionAt: last}
	}
	mk := func(typ model.InteractionType, daysAgo int) *model.Interaction {
		return &model.Interaction{Type: typ, Timestamp: now.Add(-time.Duration(daysAgo) * 24 * time.Hour)}
	}

	tests := []struct {
		name         string
		contact      *model.Contact
		interactions []*model.Interaction
		want         Params
	}{
		{
			name:    "no interactions falls back to created time",
			contact: mkContact(nil),
			want:    Params{DaysSinceLastInteraction: 200},
		},
		{
			name:    "newest outbound email sets pending",
			contact: mkContact(&lastAt),
			interactions: []*model.Interaction{
				mk(model.InteractionEmailOut, 5),
				mk(model.InteractionEmailIn, 8),
			},
			want: Params{DaysSinceLastInteraction: 5, OutboundPending: true, EmailCountLast30: 2},
		},
		{
			name:    "reply clears pending even with older outbound",
			contact: mkContact(&lastAt),
			interactions: []*model.Interaction{
				mk(model.InteractionEmailIn, 5),
				mk(model.InteractionEmailOut, 8),
			},
			want: Params{DaysSinceLastInteraction: 5, EmailCountLast30: 2},
		},
		{
			name:    "meeting after outbound does not clear pending",
			contact: mkContact(&lastAt),
			interactions: []*model.Interaction{
				mk(model.InteractionMeeting, 2),
				mk(model.InteractionEmailOut, 5),
			},
			want: Params{DaysSinceLastInteraction: 5, OutboundPending: true, MeetingCountLast30: 1, EmailCountLast30: 1},
		},
		{
			name:    "interactions older than thirty days not counted",
			contact: mkContact(&lastAt),
			interactions: []*model.Interaction{
				mk(model.InteractionEmailIn, 5),
				mk(model.InteractionMeeting, 40),
				mk(model.InteractionEmailOut, 45),
			},
			want: Params{DaysSinceLastInteraction: 5, EmailCountLast30: 1},
		},
		{
			name: "future last interaction clamps days to zero",
			contact: func() *model.Contact {
				future := now.Add(48 * time.Hour)
				return mkContact(&future)
			}(),
			want: Params{DaysSinceLastInteraction: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParamsFor(tt.contact, tt.interactions, now)
			if got != tt.want {
				t.Errorf("ParamsFor() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestRecomputeAll(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	lastAt := now.Add(-10 * 24 * time.Hour)

	st := &fakeScoreStore{
		contacts: []*store.ContactWithHistory{
			{
				Contact: &model.Contact{ID: "c1", LastInteractionAt: &lastAt, CreatedAt: lastAt},
				Interactions: []*model.Interaction{
					{Type: model.InteractionEmailIn, Timestamp: lastAt},
				},
			},
			{
				Contact: &model.Contact{ID: "c2", CreatedAt: now.Add(-60 * 24 * time.Hour)},
			},
		},
	}

	r := &Recomputer{Store: st, Now: func() time.Time { return now }}
	if err := r.RecomputeAll(context.Background(), "u1"); err != nil {
		t.Fatalf("RecomputeAll: %v", err)
	}

	// c1: 100 - 20 + 2 = 82 Active; c2: 100 - 120 -> 0 At Risk.
	if got := st.updated["c1"]; got.score != 82 || got.label != model.RiskActive {
		t.Errorf("c1 = (%d, %q), want (82, %q)", got.score, got.label, model.RiskActive)
	}
	if got := st.updated["c2"]; got.score != 0 || got.label != model.RiskAtRisk {
		t.Errorf("c2 = (%d, %q), want (0, %q)", got.score, got.label, model.RiskAtRisk)
	}
}

func TestRecomputeAllErrors(t *testing.T) {
	listErr := errors.New("db down")
	r := &Recomputer{Store: &fakeScoreStore{listErr: listErr}}
	if err := r.RecomputeAll(context.Background(), "u1"); !errors.Is(err, listErr) {
		t.Errorf("err = %v, want wrapped %v", err, listErr)
	}

	updateErr := errors.New("write failed")
	r = &Recomputer{Store: &fakeScoreStore{
		contacts:  []*store.ContactWithHistory{{Contact: &model.Contact{ID: "c1"}}},
		updateErr: updateErr,
	}}
	if err := r.RecomputeAll(context.Background(), "u1"); !errors.Is(err, updateErr) {
		t.Errorf("err = %v, want wrapped %v", err, updateErr)
	}
}
