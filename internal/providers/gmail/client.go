// Package gmail implements the mail-provider surface over the Gmail API.
package gmail

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/camdenhq/rapport/internal/ingest"
	"github.com/camdenhq/rapport/internal/providers/google"
)

const pageSize = 500

// Client implements ingest.MailClient for Gmail.
type Client struct {
	svc *gmailapi.Service
}

// New creates a Gmail client bound to an access token.
func New(ctx context.Context, accessToken string) (*Client, error) {
	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	httpClient := oauth2.NewClient(ctx, source)

	svc, err := gmailapi.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	return &Client{svc: svc}, nil
}

// ListMessageIDs returns one page of message IDs on or after since, plus the
// cursor for the next page.
func (c *Client) ListMessageIDs(ctx context.Context, since time.Time, cursor string) ([]string, string, error) {
	query := fmt.Sprintf("after:%s", since.Format("2006/01/02"))

	call := c.svc.Users.Messages.List("me").Q(query).MaxResults(pageSize)
	if cursor != "" {
		call = call.PageToken(cursor)
	}

	resp, err := call.Context(ctx).Do()
	if err != nil {
		return nil, "", google.ClassifyError(google.Gmail, err)
	}

	ids := make([]string, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		if m.Id != "" {
			ids = append(ids, m.Id)
		}
	}
	return ids, resp.NextPageToken, nil
}

// GetMessage fetches metadata for one message: the headers the fetcher needs
// plus snippet and thread id.
func (c *Client) GetMessage(ctx context.Context, id string) (*ingest.MessageMeta, error) {
	msg, err := c.svc.Users.Messages.Get("me", id).
		Format("metadata").
		MetadataHeaders("From", "To", "Subject", "Date").
		Context(ctx).Do()
	if err != nil {
		return nil, google.ClassifyError(google.Gmail, err)
	}

	meta := &ingest.MessageMeta{
		ID:       msg.Id,
		ThreadID: msg.ThreadId,
		Snippet:  msg.Snippet,
	}
	if msg.Payload != nil {
		meta.From = header(msg.Payload.Headers, "From")
		meta.To = header(msg.Payload.Headers, "To")
		meta.Subject = header(msg.Payload.Headers, "Subject")
		meta.Date = header(msg.Payload.Headers, "Date")
	}
	return meta, nil
}

func header(headers []*gmailapi.MessagePartHeader, name string) string {
	for _, h := range headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}
