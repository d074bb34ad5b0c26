package store

import (
	"context"
	"fmt"
	"time"

	"github.com/camdenhq/rapport/internal/model"
)

// ListLowestScoredContacts returns the worst-scored contacts first,
// regardless of label.
func (s *Store) ListLowestScoredContacts(ctx context.Context, ownerUserID string, limit int) ([]*model.Contact, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, owner_user_id, email, display_name, last_interaction_at, score, risk_label, created_at
		FROM contacts WHERE owner_user_id = ?
		ORDER BY score ASC
		LIMIT ?
	`, ownerUserID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query lowest-scored contacts: %w", err)
	}
	defer rows.Close()
	return collectContacts(rows)
}

// MeetingWithContact is one meeting interaction joined with its contact.
type MeetingWithContact struct {
	Subject      string
	Timestamp    time.Time
	ContactName  string
	ContactEmail string
}

// ListMeetingsWithContacts returns meetings in [from, to] with contact
// identity attached, earliest first.
func (s *Store) ListMeetingsWithContacts(ctx context.Context, ownerUserID string, from, to time.Time, limit int) ([]MeetingWithContact, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT i.subject, i.timestamp, c.display_name, c.email
		FROM interactions i
		JOIN contacts c ON c.id = i.contact_id
		WHERE i.owner_user_id = ? AND i.type = ? AND i.timestamp >= ? AND i.timestamp <= ?
		ORDER BY i.timestamp ASC
		LIMIT ?
	`, ownerUserID, string(model.InteractionMeeting), from.Unix(), to.Unix(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query meetings: %w", err)
	}
	defer rows.Close()

	var meetings []MeetingWithContact
	for rows.Next() {
		var m MeetingWithContact
		var ts int64
		if err := rows.Scan(&m.Subject, &ts, &m.ContactName, &m.ContactEmail); err != nil {
			return nil, fmt.Errorf("failed to scan meeting: %w", err)
		}
		m.Timestamp = time.Unix(ts, 0).UTC()
		meetings = append(meetings, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate meetings: %w", err)
	}
	return meetings, nil
}

// ListHighActivityContacts returns the contacts with the most interactions
// since the cutoff.
func (s *Store) ListHighActivityContacts(ctx context.Context, ownerUserID string, since time.Time, limit int) ([]*model.Contact, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT c.id, c.owner_user_id, c.email, c.display_name, c.last_interaction_at, c.score, c.risk_label, c.created_at
		FROM contacts c
		JOIN interactions i ON i.contact_id = c.id AND i.timestamp >= ?
		WHERE c.owner_user_id = ?
		GROUP BY c.id
		ORDER BY COUNT(i.id) DESC
		LIMIT ?
	`, since.Unix(), ownerUserID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query high-activity contacts: %w", err)
	}
	defer rows.Close()
	return collectContacts(rows)
}
