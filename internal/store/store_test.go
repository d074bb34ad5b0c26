package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/camdenhq/rapport/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustUser(t *testing.T, s *Store, id, email string) *model.User {
	t.Helper()
	u, err := s.UpsertUser(context.Background(), &model.User{
		ID: id, Email: email, Provider: model.ProviderGoogle, AccessToken: "tok",
	})
	if err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}
	return u
}

func TestUpsertUser(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	u, err := s.UpsertUser(ctx, &model.User{
		ID: "sub-1", Email: "me@example.com", Name: "Me",
		Provider: model.ProviderGoogle, AccessToken: "tok-1", RefreshToken: "ref-1",
	})
	if err != nil {
		t.Fatalf("first UpsertUser: %v", err)
	}
	if u.ID != "sub-1" {
		t.Errorf("ID = %q, want the caller-provided subject", u.ID)
	}

	// Re-sign-in with a new access token but no refresh token keeps the old
	// refresh token and the original row ID.
	u2, err := s.UpsertUser(ctx, &model.User{
		ID: "other-sub", Email: "me@example.com",
		Provider: model.ProviderGoogle, AccessToken: "tok-2",
	})
	if err != nil {
		t.Fatalf("second UpsertUser: %v", err)
	}
	if u2.ID != "sub-1" {
		t.Errorf("ID changed to %q on re-sign-in", u2.ID)
	}
	if u2.AccessToken != "tok-2" || u2.RefreshToken != "ref-1" {
		t.Errorf("tokens = (%q, %q), want (tok-2, ref-1)", u2.AccessToken, u2.RefreshToken)
	}
	if u2.Name != "Me" {
		t.Errorf("name = %q, empty name overwrote the stored one", u2.Name)
	}
}

func TestUpdateUserToken(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	u := mustUser(t, s, "u1", "me@example.com")

	expiry := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	if err := s.UpdateUserToken(ctx, u.ID, "fresh", expiry); err != nil {
		t.Fatalf("UpdateUserToken: %v", err)
	}

	got, err := s.GetUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got.AccessToken != "fresh" || !got.TokenExpiry.Equal(expiry) {
		t.Errorf("token = (%q, %v), want (fresh, %v)", got.AccessToken, got.TokenExpiry, expiry)
	}
}

func TestGetUserUnknown(t *testing.T) {
	s := openTestStore(t)
	u, err := s.GetUser(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if u != nil {
		t.Errorf("user = %+v, want nil", u)
	}
}

func TestUpsertContact(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	mustUser(t, s, "u1", "me@example.com")

	first := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	c, err := s.UpsertContact(ctx, "u1", "ada@example.com", "Ada Lovelace", &first)
	if err != nil {
		t.Fatalf("first UpsertContact: %v", err)
	}
	if c.DisplayName != "Ada Lovelace" || c.LastInteractionAt == nil || !c.LastInteractionAt.Equal(first) {
		t.Fatalf("contact = %+v", c)
	}
	if c.RiskLabel != model.RiskAtRisk || c.Score != 0 {
		t.Errorf("new contact scored (%d, %q), want the zero baseline", c.Score, c.RiskLabel)
	}

	// An empty display name and a nil timestamp leave the stored values
	// untouched; a non-nil timestamp always wins.
	c2, err := s.UpsertContact(ctx, "u1", "ada@example.com", "", nil)
	if err != nil {
		t.Fatalf("second UpsertContact: %v", err)
	}
	if c2.ID != c.ID {
		t.Errorf("upsert created a second row: %q vs %q", c2.ID, c.ID)
	}
	if c2.DisplayName != "Ada Lovelace" {
		t.Errorf("display name = %q after empty-name upsert", c2.DisplayName)
	}
	if c2.LastInteractionAt == nil || !c2.LastInteractionAt.Equal(first) {
		t.Errorf("lastInteractionAt = %v after nil upsert, want %v", c2.LastInteractionAt, first)
	}

	later := first.Add(48 * time.Hour)
	c3, err := s.UpsertContact(ctx, "u1", "ada@example.com", "Ada L.", &later)
	if err != nil {
		t.Fatalf("third UpsertContact: %v", err)
	}
	if c3.DisplayName != "Ada L." || !c3.LastInteractionAt.Equal(later) {
		t.Errorf("contact = %+v, want updated name and timestamp", c3)
	}
}

func TestContactsScopedToOwner(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	mustUser(t, s, "u1", "one@example.com")
	mustUser(t, s, "u2", "two@example.com")

	c, err := s.UpsertContact(ctx, "u1", "ada@example.com", "", nil)
	if err != nil {
		t.Fatalf("UpsertContact: %v", err)
	}

	if _, err := s.GetContact(ctx, "u2", c.ID); !errors.Is(err, model.ErrContactNotFound) {
		t.Errorf("cross-owner GetContact err = %v, want ErrContactNotFound", err)
	}
	list, err := s.ListContacts(ctx, "u2")
	if err != nil {
		t.Fatalf("ListContacts: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("u2 sees %d of u1's contacts", len(list))
	}
}

func TestEmailInteractionDedup(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	mustUser(t, s, "u1", "me@example.com")
	c, _ := s.UpsertContact(ctx, "u1", "ada@example.com", "", nil)

	ts := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	in := &model.Interaction{
		OwnerUserID: "u1", ContactID: c.ID, Type: model.InteractionEmailIn,
		Subject: "Hello", Timestamp: ts, ThreadID: "t1",
	}

	created, err := s.CreateInteraction(ctx, in)
	if err != nil || !created {
		t.Fatalf("CreateInteraction = (%v, %v), want (true, nil)", created, err)
	}

	exists, err := s.HasEmailInteraction(ctx, c.ID, "t1", ts)
	if err != nil || !exists {
		t.Fatalf("HasEmailInteraction = (%v, %v), want (true, nil)", exists, err)
	}

	// The unique index absorbs a duplicate that raced past the check.
	dup := &model.Interaction{
		OwnerUserID: "u1", ContactID: c.ID, Type: model.InteractionEmailIn,
		Subject: "Hello again", Timestamp: ts, ThreadID: "t1",
	}
	created, err = s.CreateInteraction(ctx, dup)
	if err != nil {
		t.Fatalf("duplicate CreateInteraction: %v", err)
	}
	if created {
		t.Error("duplicate insert reported created = true")
	}

	// A different thread at the same timestamp is a distinct interaction.
	other := &model.Interaction{
		OwnerUserID: "u1", ContactID: c.ID, Type: model.InteractionEmailIn,
		Timestamp: ts, ThreadID: "t2",
	}
	if created, err = s.CreateInteraction(ctx, other); err != nil || !created {
		t.Errorf("distinct-thread CreateInteraction = (%v, %v), want (true, nil)", created, err)
	}
}

func TestMeetingInteractionDedup(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	mustUser(t, s, "u1", "me@example.com")
	c, _ := s.UpsertContact(ctx, "u1", "ada@example.com", "", nil)

	ts := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	meeting := func(subject string) *model.Interaction {
		return &model.Interaction{
			OwnerUserID: "u1", ContactID: c.ID, Type: model.InteractionMeeting,
			Subject: subject, Timestamp: ts,
		}
	}

	if created, err := s.CreateInteraction(ctx, meeting("Kickoff")); err != nil || !created {
		t.Fatalf("CreateInteraction = (%v, %v)", created, err)
	}
	if exists, err := s.HasMeetingInteraction(ctx, c.ID, ts, "Kickoff"); err != nil || !exists {
		t.Fatalf("HasMeetingInteraction = (%v, %v), want (true, nil)", exists, err)
	}

	if created, err := s.CreateInteraction(ctx, meeting("Kickoff")); err != nil || created {
		t.Errorf("duplicate meeting = (%v, %v), want (false, nil)", created, err)
	}
	// Same slot with another subject is a different meeting.
	if created, err := s.CreateInteraction(ctx, meeting("Retro")); err != nil || !created {
		t.Errorf("distinct-subject meeting = (%v, %v), want (true, nil)", created, err)
	}
}

func TestListContactsWithInteractions(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	mustUser(t, s, "u1", "me@example.com")
	c, _ := s.UpsertContact(ctx, "u1", "ada@example.com", "", nil)

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, typ := range []model.InteractionType{model.InteractionEmailIn, model.InteractionEmailOut, model.InteractionMeeting} {
		in := &model.Interaction{
			OwnerUserID: "u1", ContactID: c.ID, Type: typ,
			Timestamp: base.Add(time.Duration(i) * time.Hour), ThreadID: "t1",
		}
		if typ == model.InteractionMeeting {
			in.ThreadID = ""
			in.Subject = "Sync"
		}
		if _, err := s.CreateInteraction(ctx, in); err != nil {
			t.Fatalf("CreateInteraction: %v", err)
		}
	}

	cwhs, err := s.ListContactsWithInteractions(ctx, "u1")
	if err != nil {
		t.Fatalf("ListContactsWithInteractions: %v", err)
	}
	if len(cwhs) != 1 || len(cwhs[0].Interactions) != 3 {
		t.Fatalf("got %d contacts, want 1 with 3 interactions", len(cwhs))
	}
	ins := cwhs[0].Interactions
	for i := 1; i < len(ins); i++ {
		if ins[i].Timestamp.After(ins[i-1].Timestamp) {
			t.Error("interactions not ordered newest first")
		}
	}
}

func TestUpdateContactScore(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	mustUser(t, s, "u1", "me@example.com")
	c, _ := s.UpsertContact(ctx, "u1", "ada@example.com", "", nil)

	if err := s.UpdateContactScore(ctx, c.ID, 85, model.RiskActive); err != nil {
		t.Fatalf("UpdateContactScore: %v", err)
	}
	got, err := s.GetContact(ctx, "u1", c.ID)
	if err != nil {
		t.Fatalf("GetContact: %v", err)
	}
	if got.Score != 85 || got.RiskLabel != model.RiskActive {
		t.Errorf("contact scored (%d, %q), want (85, Active)", got.Score, got.RiskLabel)
	}
}

func TestBriefsAndDrafts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	mustUser(t, s, "u1", "me@example.com")

	if b, err := s.LatestBrief(ctx, "u1"); err != nil || b != nil {
		t.Fatalf("LatestBrief on empty store = (%+v, %v), want (nil, nil)", b, err)
	}

	if _, err := s.CreateBrief(ctx, "u1", "first"); err != nil {
		t.Fatalf("CreateBrief: %v", err)
	}
	// generated_at has second resolution; make the second brief strictly newer.
	time.Sleep(1100 * time.Millisecond)
	if _, err := s.CreateBrief(ctx, "u1", "second"); err != nil {
		t.Fatalf("CreateBrief: %v", err)
	}

	latest, err := s.LatestBrief(ctx, "u1")
	if err != nil {
		t.Fatalf("LatestBrief: %v", err)
	}
	if latest.Content != "second" {
		t.Errorf("latest brief = %q, want %q", latest.Content, "second")
	}

	c, _ := s.UpsertContact(ctx, "u1", "ada@example.com", "", nil)
	d, err := s.CreateDraft(ctx, "u1", c.ID, "Checking in", "Hi Ada,")
	if err != nil {
		t.Fatalf("CreateDraft: %v", err)
	}
	if d.ID == "" || d.Subject != "Checking in" {
		t.Errorf("draft = %+v", d)
	}
}

func TestLoadDashboard(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	mustUser(t, s, "u1", "me@example.com")
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	ada, _ := s.UpsertContact(ctx, "u1", "ada@example.com", "Ada", nil)
	bob, _ := s.UpsertContact(ctx, "u1", "bob@example.com", "Bob", nil)
	s.UpdateContactScore(ctx, ada.ID, 15, model.RiskAtRisk)
	s.UpdateContactScore(ctx, bob.ID, 80, model.RiskActive)

	// Ada's newest email is outbound and unanswered for four days.
	outAt := now.Add(-4 * 24 * time.Hour)
	s.CreateInteraction(ctx, &model.Interaction{
		OwnerUserID: "u1", ContactID: ada.ID, Type: model.InteractionEmailOut,
		Timestamp: outAt, ThreadID: "t1",
	})
	s.CreateInteraction(ctx, &model.Interaction{
		OwnerUserID: "u1", ContactID: ada.ID, Type: model.InteractionEmailIn,
		Timestamp: outAt.Add(-24 * time.Hour), ThreadID: "t1",
	})
	// Bob replied last, so he is not pending.
	s.CreateInteraction(ctx, &model.Interaction{
		OwnerUserID: "u1", ContactID: bob.ID, Type: model.InteractionEmailIn,
		Timestamp: now.Add(-2 * 24 * time.Hour), ThreadID: "t2",
	})
	// One upcoming meeting with both of them.
	meetAt := now.Add(3 * 24 * time.Hour)
	for _, id := range []string{ada.ID, bob.ID} {
		s.CreateInteraction(ctx, &model.Interaction{
			OwnerUserID: "u1", ContactID: id, Type: model.InteractionMeeting,
			Subject: "Roadmap", Timestamp: meetAt,
		})
	}

	d, err := s.LoadDashboard(ctx, "u1", now)
	if err != nil {
		t.Fatalf("LoadDashboard: %v", err)
	}

	if len(d.AtRiskContacts) != 1 || d.AtRiskContacts[0].ID != ada.ID {
		t.Errorf("at-risk contacts = %+v, want just ada", d.AtRiskContacts)
	}
	if len(d.OutboundPendingContacts) != 1 {
		t.Fatalf("outbound pending = %+v, want just ada", d.OutboundPendingContacts)
	}
	if p := d.OutboundPendingContacts[0]; p.ID != ada.ID || p.DaysPending != 4 {
		t.Errorf("pending = %+v, want ada at 4 days", p)
	}
	if len(d.UpcomingMeetings) != 1 {
		t.Fatalf("upcoming meetings = %+v, want one group", d.UpcomingMeetings)
	}
	if m := d.UpcomingMeetings[0]; m.Subject != "Roadmap" || len(m.Attendees) != 2 {
		t.Errorf("meeting group = %+v, want Roadmap with both attendees", m)
	}
	// The 7-day count includes the future meeting rows.
	want := QuickStats{TotalContacts: 2, AtRiskCount: 1, OutboundPendingCount: 1, InteractionsLast7d: 5}
	if d.QuickStats != want {
		t.Errorf("quick stats = %+v, want %+v", d.QuickStats, want)
	}
	if d.LastSyncAt == nil || !d.LastSyncAt.Equal(meetAt) {
		t.Errorf("lastSyncAt = %v, want %v", d.LastSyncAt, meetAt)
	}
}
