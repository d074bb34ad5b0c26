package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/camdenhq/rapport/internal/model"
)

// CreateBrief stores a generated daily briefing.
func (s *Store) CreateBrief(ctx context.Context, ownerUserID, content string) (*model.Brief, error) {
	b := &model.Brief{
		ID:          uuid.NewString(),
		OwnerUserID: ownerUserID,
		Content:     content,
		GeneratedAt: time.Now().UTC().Truncate(time.Second),
	}
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO briefs (id, owner_user_id, content, generated_at) VALUES (?, ?, ?, ?)
	`, b.ID, b.OwnerUserID, b.Content, b.GeneratedAt.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to create brief: %w", err)
	}
	return b, nil
}

// LatestBrief returns the most recently generated brief, or nil.
func (s *Store) LatestBrief(ctx context.Context, ownerUserID string) (*model.Brief, error) {
	b := &model.Brief{}
	var generatedAt int64
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, owner_user_id, content, generated_at
		FROM briefs WHERE owner_user_id = ?
		ORDER BY generated_at DESC
		LIMIT 1
	`, ownerUserID).Scan(&b.ID, &b.OwnerUserID, &b.Content, &generatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load brief: %w", err)
	}
	b.GeneratedAt = time.Unix(generatedAt, 0).UTC()
	return b, nil
}

// CreateDraft stores a generated follow-up draft for a contact.
func (s *Store) CreateDraft(ctx context.Context, ownerUserID, contactID, subject, body string) (*model.FollowUpDraft, error) {
	d := &model.FollowUpDraft{
		ID:          uuid.NewString(),
		OwnerUserID: ownerUserID,
		ContactID:   contactID,
		Subject:     subject,
		Body:        body,
		CreatedAt:   time.Now().UTC().Truncate(time.Second),
	}
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO follow_up_drafts (id, owner_user_id, contact_id, subject, body, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, d.ID, d.OwnerUserID, d.ContactID, d.Subject, d.Body, d.CreatedAt.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to create draft: %w", err)
	}
	return d, nil
}
