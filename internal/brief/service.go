// Package brief generates daily briefings and follow-up drafts from the
// relationship graph via an opaque text-generation collaborator.
package brief

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/camdenhq/rapport/internal/model"
	"github.com/camdenhq/rapport/internal/store"
)

// Generator produces text from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Service assembles prompts from stored data and persists the results.
type Service struct {
	Store     *store.Store
	Generator Generator

	// Now is overridable in tests; defaults to time.Now.
	Now func() time.Time
}

// GenerateBrief builds the daily briefing for a user and stores it.
func (s *Service) GenerateBrief(ctx context.Context, userID string) (*model.Brief, error) {
	now := s.now()

	atRisk, err := s.Store.ListLowestScoredContacts(ctx, userID, 5)
	if err != nil {
		return nil, err
	}
	meetings, err := s.Store.ListMeetingsWithContacts(ctx, userID, now, now.Add(7*24*time.Hour), 10)
	if err != nil {
		return nil, err
	}
	highActivity, err := s.Store.ListHighActivityContacts(ctx, userID, now.Add(-30*24*time.Hour), 5)
	if err != nil {
		return nil, err
	}

	prompt := briefPrompt(atRisk, meetings, highActivity)
	content, err := s.Generator.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate brief: %w", err)
	}

	return s.Store.CreateBrief(ctx, userID, content)
}

// GenerateDraft builds a follow-up email draft for one contact and stores it.
func (s *Service) GenerateDraft(ctx context.Context, userID, contactID string) (*model.FollowUpDraft, error) {
	contact, err := s.Store.GetContact(ctx, userID, contactID)
	if err != nil {
		return nil, err
	}

	recent, err := s.Store.ListRecentInteractions(ctx, contactID, 5)
	if err != nil {
		return nil, err
	}
	lastMeeting, err := s.Store.LastMeeting(ctx, contactID)
	if err != nil {
		return nil, err
	}

	raw, err := s.Generator.Generate(ctx, draftPrompt(contact, recent, lastMeeting))
	if err != nil {
		return nil, fmt.Errorf("generate draft: %w", err)
	}

	subject, body, err := parseDraft(raw)
	if err != nil {
		return nil, err
	}

	return s.Store.CreateDraft(ctx, userID, contactID, subject, body)
}

func briefPrompt(atRisk []*model.Contact, meetings []store.MeetingWithContact, highActivity []*model.Contact) string {
	var atRiskText strings.Builder
	for _, c := range atRisk {
		last := "unknown"
		if c.LastInteractionAt != nil {
			last = c.LastInteractionAt.Format("Jan 2, 2006")
		}
		fmt.Fprintf(&atRiskText, "- %s (%s): Score %d/100, %s, last contact: %s\n",
			displayName(c), c.Email, c.Score, c.RiskLabel, last)
	}

	var meetingsText strings.Builder
	for _, m := range meetings {
		who := m.ContactName
		if who == "" {
			who = m.ContactEmail
		}
		subject := m.Subject
		if subject == "" {
			subject = "Meeting"
		}
		fmt.Fprintf(&meetingsText, "- %s with %s on %s\n", subject, who, m.Timestamp.Format("Jan 2, 2006"))
	}

	var activityText strings.Builder
	for _, c := range highActivity {
		fmt.Fprintf(&activityText, "- %s (score: %d/100)\n", displayName(c), c.Score)
	}

	return fmt.Sprintf(`You are an executive relationship advisor. Based on the following data about the executive's professional network, generate a concise daily briefing.

AT-RISK RELATIONSHIPS:
%s
UPCOMING MEETINGS (next 7 days):
%s
HIGH-ACTIVITY CONTACTS:
%s
Generate a briefing with:
1. A 2-3 sentence executive summary of relationship health
2. Top 3-5 specific action items (reference real names and context)
3. Key focus areas for the week

Be specific, reference names, and keep it actionable. Use a professional, concise tone.`,
		orNone(atRiskText.String(), "None identified\n"),
		orNone(meetingsText.String(), "No meetings scheduled\n"),
		orNone(activityText.String(), "None\n"))
}

func draftPrompt(contact *model.Contact, recent []*model.Interaction, lastMeeting *model.Interaction) string {
	var history strings.Builder
	for _, in := range recent {
		line := fmt.Sprintf("- [%s] %s: %s", in.Type, in.Timestamp.Format("Jan 2, 2006"), orNone(in.Subject, "(no subject)"))
		if in.Snippet != "" {
			snippet := in.Snippet
			if len(snippet) > 100 {
				snippet = snippet[:100]
			}
			line += fmt.Sprintf(": %q", snippet)
		}
		history.WriteString(line + "\n")
	}

	meetingLine := ""
	if lastMeeting != nil {
		meetingLine = fmt.Sprintf("LAST MEETING: %s on %s\n", lastMeeting.Subject, lastMeeting.Timestamp.Format("Jan 2, 2006"))
	}

	return fmt.Sprintf(`You are drafting a professional follow-up email on behalf of an executive.

CONTACT: %s (%s)
RELATIONSHIP STATUS: %s (Score: %d/100)

RECENT INTERACTION HISTORY:
%s
%sWrite a follow-up email with:
- Subject line
- Email body

The tone should be warm but professional. Reference specific past interactions where relevant. Include a clear call to action. Keep it concise (under 150 words for the body).

Return as JSON only: { "subject": "...", "body": "..." }`,
		displayName(contact), contact.Email, contact.RiskLabel, contact.Score,
		orNone(history.String(), "No recent interactions\n"), meetingLine)
}

// parseDraft extracts the {subject, body} JSON object from the model output,
// tolerating surrounding prose or code fences.
func parseDraft(raw string) (subject, body string, err error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return "", "", fmt.Errorf("failed to parse generated draft")
	}

	var parsed struct {
		Subject string `json:"subject"`
		Body    string `json:"body"`
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), &parsed); err != nil {
		return "", "", fmt.Errorf("failed to parse generated draft: %w", err)
	}
	return parsed.Subject, parsed.Body, nil
}

func displayName(c *model.Contact) string {
	if c.DisplayName != "" {
		return c.DisplayName
	}
	return c.Email
}

func orNone(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
