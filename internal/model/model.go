package model

import "time"

// Provider represents the external account a user connected.
type Provider string

const (
	ProviderGoogle    Provider = "google"
	ProviderMicrosoft Provider = "microsoft"
)

// InteractionType classifies one observed contact event.
type InteractionType string

const (
	InteractionEmailIn  InteractionType = "EMAIL_IN"
	InteractionEmailOut InteractionType = "EMAIL_OUT"
	InteractionMeeting  InteractionType = "MEETING"
)

// IsEmail reports whether the type is an inbound or outbound email.
func (t InteractionType) IsEmail() bool {
	return t == InteractionEmailIn || t == InteractionEmailOut
}

// RiskLabel is the categorical bucket derived from a contact's score.
type RiskLabel string

const (
	RiskActive RiskLabel = "Active"
	RiskWarm   RiskLabel = "Warm"
	RiskAtRisk RiskLabel = "At Risk"
)

// User owns a provider identity and the token pair used to reach it.
// Created on first sign-in, mutated on every token refresh.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Provider     Provider  `json:"provider"`
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	TokenExpiry  time.Time `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Contact is one external person known to a user. (OwnerUserID, Email) is
// unique; Email is stored lowercase.
type Contact struct {
	ID                string     `json:"id"`
	OwnerUserID       string     `json:"-"`
	Email             string     `json:"email"`
	DisplayName       string     `json:"name,omitempty"`
	LastInteractionAt *time.Time `json:"lastInteractionAt,omitempty"`
	Score             int        `json:"score"`
	RiskLabel         RiskLabel  `json:"riskLabel"`
	CreatedAt         time.Time  `json:"createdAt"`
}

// Interaction is one observed email or meeting event tied to a contact.
// Immutable once created; duplicates are skipped, never updated.
type Interaction struct {
	ID          string          `json:"id"`
	OwnerUserID string          `json:"-"`
	ContactID   string          `json:"contactId"`
	Type        InteractionType `json:"type"`
	Subject     string          `json:"subject,omitempty"`
	Snippet     string          `json:"snippet,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
	ThreadID    string          `json:"threadId,omitempty"`
}

// Brief is one generated daily briefing.
type Brief struct {
	ID          string    `json:"id"`
	OwnerUserID string    `json:"-"`
	Content     string    `json:"content"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// FollowUpDraft is one generated follow-up email for a contact.
type FollowUpDraft struct {
	ID          string    `json:"id"`
	OwnerUserID string    `json:"-"`
	ContactID   string    `json:"contactId"`
	Subject     string    `json:"subject"`
	Body        string    `json:"body"`
	CreatedAt   time.Time `json:"createdAt"`
}

// SyncReport aggregates the outcome of one sync run. CalendarError is
// non-empty when calendar ingestion failed but email succeeded.
type SyncReport struct {
	EmailContactsUpserted       int    `json:"emailContactsUpserted"`
	EmailInteractionsCreated    int    `json:"emailInteractionsCreated"`
	CalendarContactsUpserted    int    `json:"calendarContactsUpserted"`
	CalendarInteractionsCreated int    `json:"calendarInteractionsCreated"`
	CalendarError               string `json:"calendarError,omitempty"`
}
