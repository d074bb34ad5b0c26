package store

import (
	"context"
	"fmt"
	"time"

	"github.com/camdenhq/rapport/internal/model"
)

// Dashboard is the aggregate view backing the dashboard page.
type Dashboard struct {
	LastSyncAt              *time.Time        `json:"lastSyncAt"`
	AtRiskContacts          []*model.Contact  `json:"atRiskContacts"`
	OutboundPendingContacts []OutboundPending `json:"outboundPendingContacts"`
	UpcomingMeetings        []MeetingGroup    `json:"upcomingMeetings"`
	QuickStats              QuickStats        `json:"quickStats"`
	LatestBrief             *model.Brief      `json:"latestBrief"`
}

// OutboundPending is a contact whose most recent email was sent by the user
// and has not yet received a reply.
type OutboundPending struct {
	ID             string          `json:"id"`
	Name           string          `json:"name,omitempty"`
	Email          string          `json:"email"`
	Score          int             `json:"score"`
	RiskLabel      model.RiskLabel `json:"riskLabel"`
	LastOutboundAt time.Time       `json:"lastOutboundAt"`
	DaysPending    int             `json:"daysPending"`
}

// MeetingGroup is one upcoming meeting with the attendees it was stored
// against, grouped by (subject, timestamp).
type MeetingGroup struct {
	ID        string            `json:"id"`
	Subject   string            `json:"subject,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Attendees []MeetingAttendee `json:"attendees"`
}

type MeetingAttendee struct {
	ContactID string          `json:"contactId"`
	Name      string          `json:"name,omitempty"`
	Email     string          `json:"email"`
	RiskLabel model.RiskLabel `json:"riskLabel"`
}

type QuickStats struct {
	TotalContacts        int `json:"totalContacts"`
	AtRiskCount          int `json:"atRiskCount"`
	OutboundPendingCount int `json:"outboundPendingCount"`
	InteractionsLast7d   int `json:"interactionsLast7Days"`
}

// LoadDashboard assembles the dashboard aggregates for a user as of now.
func (s *Store) LoadDashboard(ctx context.Context, ownerUserID string, now time.Time) (*Dashboard, error) {
	d := &Dashboard{}

	atRisk, err := s.listAtRiskContacts(ctx, ownerUserID, 5)
	if err != nil {
		return nil, err
	}
	d.AtRiskContacts = atRisk

	pending, err := s.listOutboundPending(ctx, ownerUserID, now)
	if err != nil {
		return nil, err
	}
	if len(pending) > 5 {
		d.OutboundPendingContacts = pending[:5]
	} else {
		d.OutboundPendingContacts = pending
	}

	meetings, err := s.listUpcomingMeetings(ctx, ownerUserID, now, now.Add(7*24*time.Hour), 5)
	if err != nil {
		return nil, err
	}
	d.UpcomingMeetings = meetings

	total, atRiskCount, err := s.CountContacts(ctx, ownerUserID)
	if err != nil {
		return nil, err
	}
	last7d, err := s.CountInteractionsSince(ctx, ownerUserID, now.Add(-7*24*time.Hour))
	if err != nil {
		return nil, err
	}
	d.QuickStats = QuickStats{
		TotalContacts:        total,
		AtRiskCount:          atRiskCount,
		OutboundPendingCount: len(pending),
		InteractionsLast7d:   last7d,
	}

	d.LatestBrief, err = s.LatestBrief(ctx, ownerUserID)
	if err != nil {
		return nil, err
	}

	d.LastSyncAt, err = s.LastInteractionTime(ctx, ownerUserID)
	if err != nil {
		return nil, err
	}

	return d, nil
}

// listAtRiskContacts returns the worst-scored at-risk contacts first.
func (s *Store) listAtRiskContacts(ctx context.Context, ownerUserID string, limit int) ([]*model.Contact, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, owner_user_id, email, display_name, last_interaction_at, score, risk_label, created_at
		FROM contacts
		WHERE owner_user_id = ? AND risk_label = ?
		ORDER BY score ASC
		LIMIT ?
	`, ownerUserID, string(model.RiskAtRisk), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query at-risk contacts: %w", err)
	}
	defer rows.Close()
	return collectContacts(rows)
}

// listOutboundPending selects contacts whose newest email interaction is an
// EMAIL_OUT, sorted by how long the reply has been pending.
func (s *Store) listOutboundPending(ctx context.Context, ownerUserID string, now time.Time) ([]OutboundPending, error) {
	rows, err := s.DB.QueryContext(ctx, `
		WITH last_email AS (
			SELECT contact_id, type, timestamp,
			       ROW_NUMBER() OVER (PARTITION BY contact_id ORDER BY timestamp DESC, id) AS rn
			FROM interactions
			WHERE owner_user_id = ? AND type IN (?, ?)
		)
		SELECT c.id, c.display_name, c.email, c.score, c.risk_label, le.timestamp
		FROM last_email le
		JOIN contacts c ON c.id = le.contact_id
		WHERE le.rn = 1 AND le.type = ?
		ORDER BY le.timestamp ASC
	`, ownerUserID,
		string(model.InteractionEmailIn), string(model.InteractionEmailOut),
		string(model.InteractionEmailOut))
	if err != nil {
		return nil, fmt.Errorf("failed to query outbound-pending contacts: %w", err)
	}
	defer rows.Close()

	var result []OutboundPending
	for rows.Next() {
		var p OutboundPending
		var label string
		var ts int64
		if err := rows.Scan(&p.ID, &p.Name, &p.Email, &p.Score, &label, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan outbound-pending row: %w", err)
		}
		p.RiskLabel = model.RiskLabel(label)
		p.LastOutboundAt = time.Unix(ts, 0).UTC()
		p.DaysPending = int(now.Sub(p.LastOutboundAt).Hours() / 24)
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate outbound-pending rows: %w", err)
	}
	return result, nil
}

// listUpcomingMeetings groups meeting interactions in [from, to] by
// (subject, timestamp) so one calendar event with several attendees shows as
// a single meeting.
func (s *Store) listUpcomingMeetings(ctx context.Context, ownerUserID string, from, to time.Time, limit int) ([]MeetingGroup, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT i.id, i.subject, i.timestamp, c.id, c.display_name, c.email, c.risk_label
		FROM interactions i
		JOIN contacts c ON c.id = i.contact_id
		WHERE i.owner_user_id = ? AND i.type = ? AND i.timestamp >= ? AND i.timestamp <= ?
		ORDER BY i.timestamp ASC
	`, ownerUserID, string(model.InteractionMeeting), from.Unix(), to.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to query upcoming meetings: %w", err)
	}
	defer rows.Close()

	var groups []MeetingGroup
	index := make(map[string]int)
	for rows.Next() {
		var id, subject string
		var ts int64
		var att MeetingAttendee
		var label string
		if err := rows.Scan(&id, &subject, &ts, &att.ContactID, &att.Name, &att.Email, &label); err != nil {
			return nil, fmt.Errorf("failed to scan meeting row: %w", err)
		}
		att.RiskLabel = model.RiskLabel(label)

		key := fmt.Sprintf("%s|%d", subject, ts)
		if i, ok := index[key]; ok {
			groups[i].Attendees = append(groups[i].Attendees, att)
			continue
		}
		index[key] = len(groups)
		groups = append(groups, MeetingGroup{
			ID:        id,
			Subject:   subject,
			Timestamp: time.Unix(ts, 0).UTC(),
			Attendees: []MeetingAttendee{att},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate meeting rows: %w", err)
	}

	if len(groups) > limit {
		groups = groups[:limit]
	}
	return groups, nil
}
