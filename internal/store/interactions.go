package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/camdenhq/rapport/internal/model"
)

// HasEmailInteraction reports whether an email interaction already exists
// for (contactID, threadID, timestamp). An empty threadID matches rows with
// a NULL thread id.
func (s *Store) HasEmailInteraction(ctx context.Context, contactID, threadID string, ts time.Time) (bool, error) {
	var query string
	args := []any{contactID, ts.Unix()}
	if threadID == "" {
		query = `SELECT 1 FROM interactions WHERE contact_id = ? AND timestamp = ? AND thread_id IS NULL LIMIT 1`
	} else {
		query = `SELECT 1 FROM interactions WHERE contact_id = ? AND timestamp = ? AND thread_id = ? LIMIT 1`
		args = append(args, threadID)
	}
	return s.exists(ctx, query, args...)
}

// HasMeetingInteraction reports whether a meeting interaction already exists
// for (contactID, timestamp, subject).
func (s *Store) HasMeetingInteraction(ctx context.Context, contactID string, ts time.Time, subject string) (bool, error) {
	return s.exists(ctx, `
		SELECT 1 FROM interactions
		WHERE contact_id = ? AND type = ? AND timestamp = ? AND subject = ?
		LIMIT 1
	`, contactID, string(model.InteractionMeeting), ts.Unix(), subject)
}

func (s *Store) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var one int
	err := s.DB.QueryRowContext(ctx, query, args...).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check interaction: %w", err)
	}
	return true, nil
}

// CreateInteraction inserts one interaction row. The partial unique indexes
// absorb duplicate inserts racing past the read-then-write check; created
// reports whether a row was actually written.
func (s *Store) CreateInteraction(ctx context.Context, in *model.Interaction) (created bool, err error) {
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	var threadID any
	if in.ThreadID != "" {
		threadID = in.ThreadID
	}

	res, err := s.DB.ExecContext(ctx, `
		INSERT OR IGNORE INTO interactions
		(id, owner_user_id, contact_id, type, subject, snippet, timestamp, thread_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, in.ID, in.OwnerUserID, in.ContactID, string(in.Type), in.Subject, in.Snippet, in.Timestamp.Unix(), threadID, time.Now().Unix())
	if err != nil {
		return false, fmt.Errorf("failed to create interaction: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}

// ListRecentInteractions returns the most recent interactions for a contact.
func (s *Store) ListRecentInteractions(ctx context.Context, contactID string, limit int) ([]*model.Interaction, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, owner_user_id, contact_id, type, subject, snippet, timestamp, thread_id
		FROM interactions WHERE contact_id = ?
		ORDER BY timestamp DESC
		LIMIT ?
	`, contactID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query interactions: %w", err)
	}
	defer rows.Close()
	return collectInteractions(rows)
}

// LastMeeting returns the most recent meeting with a contact, or nil.
func (s *Store) LastMeeting(ctx context.Context, contactID string) (*model.Interaction, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT id, owner_user_id, contact_id, type, subject, snippet, timestamp, thread_id
		FROM interactions WHERE contact_id = ? AND type = ?
		ORDER BY timestamp DESC
		LIMIT 1
	`, contactID, string(model.InteractionMeeting))
	in, err := scanInteraction(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load last meeting: %w", err)
	}
	return in, nil
}

// CountInteractionsSince counts a user's interactions newer than since.
func (s *Store) CountInteractionsSince(ctx context.Context, ownerUserID string, since time.Time) (int, error) {
	var n int
	err := s.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM interactions WHERE owner_user_id = ? AND timestamp >= ?
	`, ownerUserID, since.Unix()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count interactions: %w", err)
	}
	return n, nil
}

// LastInteractionTime returns the newest interaction timestamp for a user,
// used as the last-sync proxy on the dashboard.
func (s *Store) LastInteractionTime(ctx context.Context, ownerUserID string) (*time.Time, error) {
	var ts sql.NullInt64
	err := s.DB.QueryRowContext(ctx, `
		SELECT MAX(timestamp) FROM interactions WHERE owner_user_id = ?
	`, ownerUserID).Scan(&ts)
	if err != nil {
		return nil, fmt.Errorf("failed to load last interaction time: %w", err)
	}
	return scanTime(ts), nil
}

func scanInteraction(row rowScanner) (*model.Interaction, error) {
	in := &model.Interaction{}
	var typ string
	var ts int64
	var threadID sql.NullString
	err := row.Scan(&in.ID, &in.OwnerUserID, &in.ContactID, &typ, &in.Subject, &in.Snippet, &ts, &threadID)
	if err != nil {
		return nil, err
	}
	in.Type = model.InteractionType(typ)
	in.Timestamp = time.Unix(ts, 0).UTC()
	in.ThreadID = threadID.String
	return in, nil
}

func collectInteractions(rows *sql.Rows) ([]*model.Interaction, error) {
	var interactions []*model.Interaction
	for rows.Next() {
		in, err := scanInteraction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan interaction: %w", err)
		}
		interactions = append(interactions, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate interactions: %w", err)
	}
	return interactions, nil
}
