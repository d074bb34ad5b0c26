package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/camdenhq/rapport/internal/model"
)

// UpsertContact creates the contact on first observation or updates it on a
// subsequent one. The display name is only overwritten when the newly
// observed name is non-empty. lastInteractionAt is left untouched when nil
// (future calendar events) and overwritten when set (last write wins for
// email ingestion).
func (s *Store) UpsertContact(ctx context.Context, ownerUserID, email, displayName string, lastInteractionAt *time.Time) (*model.Contact, error) {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO contacts (id, owner_user_id, email, display_name, last_interaction_at, score, risk_label, created_at)
		VALUES (?, ?, ?, ?, ?, 0, ?, ?)
		ON CONFLICT(owner_user_id, email) DO UPDATE SET
			display_name = CASE WHEN excluded.display_name <> '' THEN excluded.display_name ELSE contacts.display_name END,
			last_interaction_at = COALESCE(excluded.last_interaction_at, contacts.last_interaction_at)
	`, uuid.NewString(), ownerUserID, email, displayName, nullTime(lastInteractionAt), string(model.RiskAtRisk), time.Now().Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to upsert contact: %w", err)
	}

	return s.GetContactByEmail(ctx, ownerUserID, email)
}

// GetContact loads one contact by ID, scoped to its owner.
func (s *Store) GetContact(ctx context.Context, ownerUserID, id string) (*model.Contact, error) {
	c, err := s.getContact(ctx, "owner_user_id = ? AND id = ?", ownerUserID, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, model.ErrContactNotFound
	}
	return c, nil
}

// GetContactByEmail loads one contact by its (owner, email) identity.
func (s *Store) GetContactByEmail(ctx context.Context, ownerUserID, email string) (*model.Contact, error) {
	return s.getContact(ctx, "owner_user_id = ? AND email = ?", ownerUserID, email)
}

func (s *Store) getContact(ctx context.Context, where string, args ...any) (*model.Contact, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT id, owner_user_id, email, display_name, last_interaction_at, score, risk_label, created_at
		FROM contacts WHERE `+where, args...)
	c, err := scanContact(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load contact: %w", err)
	}
	return c, nil
}

// ListContacts returns all contacts for a user, highest score first.
func (s *Store) ListContacts(ctx context.Context, ownerUserID string) ([]*model.Contact, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, owner_user_id, email, display_name, last_interaction_at, score, risk_label, created_at
		FROM contacts WHERE owner_user_id = ?
		ORDER BY score DESC, email
	`, ownerUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to query contacts: %w", err)
	}
	defer rows.Close()
	return collectContacts(rows)
}

// ContactWithHistory pairs a contact with its full interaction history,
// newest first. Consumed by the score recompute pass.
type ContactWithHistory struct {
	Contact      *model.Contact
	Interactions []*model.Interaction
}

// ListContactsWithInteractions loads every contact owned by the user together
// with its interactions ordered by timestamp descending.
func (s *Store) ListContactsWithInteractions(ctx context.Context, ownerUserID string) ([]*ContactWithHistory, error) {
	contacts, err := s.ListContacts(ctx, ownerUserID)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*ContactWithHistory, len(contacts))
	result := make([]*ContactWithHistory, 0, len(contacts))
	for _, c := range contacts {
		cwh := &ContactWithHistory{Contact: c}
		byID[c.ID] = cwh
		result = append(result, cwh)
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, owner_user_id, contact_id, type, subject, snippet, timestamp, thread_id
		FROM interactions WHERE owner_user_id = ?
		ORDER BY timestamp DESC
	`, ownerUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to query interactions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		in, err := scanInteraction(rows)
		if err != nil {
			return nil, err
		}
		if cwh, ok := byID[in.ContactID]; ok {
			cwh.Interactions = append(cwh.Interactions, in)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate interactions: %w", err)
	}

	return result, nil
}

// UpdateContactScore overwrites the derived (score, riskLabel) pair in place.
func (s *Store) UpdateContactScore(ctx context.Context, contactID string, score int, label model.RiskLabel) error {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE contacts SET score = ?, risk_label = ? WHERE id = ?
	`, score, string(label), contactID)
	if err != nil {
		return fmt.Errorf("failed to update score: %w", err)
	}
	return nil
}

// CountContacts returns total and at-risk contact counts for a user.
func (s *Store) CountContacts(ctx context.Context, ownerUserID string) (total, atRisk int, err error) {
	err = s.DB.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(CASE WHEN risk_label = ? THEN 1 END)
		FROM contacts WHERE owner_user_id = ?
	`, string(model.RiskAtRisk), ownerUserID).Scan(&total, &atRisk)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count contacts: %w", err)
	}
	return total, atRisk, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContact(row rowScanner) (*model.Contact, error) {
	c := &model.Contact{}
	var label string
	var lastAt, createdAt sql.NullInt64
	err := row.Scan(&c.ID, &c.OwnerUserID, &c.Email, &c.DisplayName, &lastAt, &c.Score, &label, &createdAt)
	if err != nil {
		return nil, err
	}
	c.RiskLabel = model.RiskLabel(label)
	c.LastInteractionAt = scanTime(lastAt)
	if t := scanTime(createdAt); t != nil {
		c.CreatedAt = *t
	}
	return c, nil
}

func collectContacts(rows *sql.Rows) ([]*model.Contact, error) {
	var contacts []*model.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate contacts: %w", err)
	}
	return contacts, nil
}
