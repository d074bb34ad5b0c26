package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/camdenhq/rapport/internal/model"
)

// UserTokenStore is the slice of the store the token provider needs.
type UserTokenStore interface {
	GetUser(ctx context.Context, id string) (*model.User, error)
	UpdateUserToken(ctx context.Context, userID, accessToken string, expiry time.Time) error
}

// Endpoint describes one provider's OAuth2 token endpoint.
type Endpoint struct {
	URL          string
	ClientID     string
	ClientSecret string
}

// TokenProvider returns a valid access token for a user, refreshing it
// against the provider token endpoint when expired. Refreshes for the same
// user are serialized so concurrent syncs never race a stale token write.
type TokenProvider struct {
	store     UserTokenStore
	endpoints map[model.Provider]Endpoint
	client    *http.Client

	mu        sync.Mutex
	userLocks map[string]*sync.Mutex
}

// NewTokenProvider creates a token provider over the given endpoints.
func NewTokenProvider(store UserTokenStore, endpoints map[model.Provider]Endpoint, timeout time.Duration) *TokenProvider {
	return &TokenProvider{
		store:     store,
		endpoints: endpoints,
		client:    &http.Client{Timeout: timeout},
		userLocks: make(map[string]*sync.Mutex),
	}
}

// ValidAccessToken returns the stored access token when its expiry is still
// in the future, otherwise exchanges the refresh token for a new one and
// persists it. Returns model.ErrAuthExpired when the user never signed in or
// the refresh token is missing or rejected.
func (p *TokenProvider) ValidAccessToken(ctx context.Context, userID string) (string, error) {
	lock := p.lockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	user, err := p.store.GetUser(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("load user: %w", err)
	}
	if user == nil || user.AccessToken == "" {
		return "", fmt.Errorf("no access token on file: %w", model.ErrAuthExpired)
	}

	if !user.TokenExpiry.IsZero() && time.Now().Before(user.TokenExpiry) {
		return user.AccessToken, nil
	}

	if user.RefreshToken == "" {
		return "", fmt.Errorf("no refresh token on file: %w", model.ErrAuthExpired)
	}

	endpoint, ok := p.endpoints[user.Provider]
	if !ok {
		return "", fmt.Errorf("no token endpoint configured for provider %q", user.Provider)
	}

	accessToken, expiry, err := p.refresh(ctx, endpoint, user.RefreshToken)
	if err != nil {
		return "", err
	}

	if err := p.store.UpdateUserToken(ctx, userID, accessToken, expiry); err != nil {
		return "", fmt.Errorf("persist refreshed token: %w", err)
	}

	return accessToken, nil
}

func (p *TokenProvider) refresh(ctx context.Context, endpoint Endpoint, refreshToken string) (string, time.Time, error) {
	form := url.Values{
		"client_id":     {endpoint.ClientID},
		"client_secret": {endpoint.ClientSecret},
		"refresh_token": {refreshToken},
		"grant_type":    {"refresh_token"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.URL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("create refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("token refresh request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// The provider rejected the refresh token; only a new sign-in helps.
		return "", time.Time{}, fmt.Errorf("token endpoint returned %d: %w", resp.StatusCode, model.ErrAuthExpired)
	}

	var result struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", time.Time{}, fmt.Errorf("decode token response: %w", err)
	}
	if result.AccessToken == "" {
		return "", time.Time{}, fmt.Errorf("token endpoint returned empty access token: %w", model.ErrAuthExpired)
	}

	return result.AccessToken, time.Now().Add(time.Duration(result.ExpiresIn) * time.Second), nil
}

func (p *TokenProvider) lockFor(userID string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	lock, ok := p.userLocks[userID]
	if !ok {
		lock = &sync.Mutex{}
		p.userLocks[userID] = lock
	}
	return lock
}
