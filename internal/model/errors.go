package model

import (
	"errors"
	"fmt"
)

// ErrAuthExpired means there is no valid or refreshable token on file. The
// user has to re-authenticate; it is never retried automatically.
var ErrAuthExpired = errors.New("authentication expired, please sign out and sign in again")

// ErrSyncRunning means a sync for the same user is already in flight.
var ErrSyncRunning = errors.New("sync already running")

// ErrContactNotFound is returned when a contact lookup misses.
var ErrContactNotFound = errors.New("contact not found")

// ProviderError is a fatal provider-API failure: API disabled for the
// project, access denied, or rate-limited. Message is human-actionable.
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return e.Message
}

// NewProviderError builds a ProviderError from an HTTP-level status.
func NewProviderError(status int, format string, args ...any) *ProviderError {
	return &ProviderError{StatusCode: status, Message: fmt.Sprintf(format, args...)}
}

// IsProviderError reports whether err wraps a ProviderError and returns it.
func IsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
