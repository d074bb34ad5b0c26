package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/camdenhq/rapport/internal/model"
)

// UpsertUser creates the user on first sign-in or updates the name and token
// fields on subsequent sign-ins. Keyed by email.
func (s *Store) UpsertUser(ctx context.Context, u *model.User) (*model.User, error) {
	var expiry *time.Time
	if !u.TokenExpiry.IsZero() {
		expiry = &u.TokenExpiry
	}

	// First sign-in keeps the identity layer's subject as the row ID; later
	// sign-ins conflict on email and leave it untouched.
	id := u.ID
	if id == "" {
		id = uuid.NewString()
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO users (id, email, name, provider, access_token, refresh_token, token_expiry, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(email) DO UPDATE SET
			name = CASE WHEN excluded.name <> '' THEN excluded.name ELSE users.name END,
			provider = excluded.provider,
			access_token = CASE WHEN excluded.access_token <> '' THEN excluded.access_token ELSE users.access_token END,
			refresh_token = CASE WHEN excluded.refresh_token <> '' THEN excluded.refresh_token ELSE users.refresh_token END,
			token_expiry = COALESCE(excluded.token_expiry, users.token_expiry)
	`, id, u.Email, u.Name, string(u.Provider), u.AccessToken, u.RefreshToken, nullTime(expiry), time.Now().Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	return s.GetUserByEmail(ctx, u.Email)
}

// GetUser loads a user by ID.
func (s *Store) GetUser(ctx context.Context, id string) (*model.User, error) {
	return s.getUser(ctx, "id = ?", id)
}

// GetUserByEmail loads a user by email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.getUser(ctx, "email = ?", email)
}

func (s *Store) getUser(ctx context.Context, where string, arg any) (*model.User, error) {
	u := &model.User{}
	var provider string
	var expiry, createdAt sql.NullInt64
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, email, name, provider, access_token, refresh_token, token_expiry, created_at
		FROM users WHERE `+where, arg,
	).Scan(&u.ID, &u.Email, &u.Name, &provider, &u.AccessToken, &u.RefreshToken, &expiry, &createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	u.Provider = model.Provider(provider)
	if t := scanTime(expiry); t != nil {
		u.TokenExpiry = *t
	}
	if t := scanTime(createdAt); t != nil {
		u.CreatedAt = *t
	}
	return u, nil
}

// UpdateUserToken persists a freshly refreshed access token and its expiry.
func (s *Store) UpdateUserToken(ctx context.Context, userID, accessToken string, expiry time.Time) error {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE users SET access_token = ?, token_expiry = ? WHERE id = ?
	`, accessToken, expiry.Unix(), userID)
	if err != nil {
		return fmt.Errorf("failed to update token: %w", err)
	}
	return nil
}
