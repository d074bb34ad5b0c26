// Package outlook implements the mail-provider surface over Microsoft Graph.
// Mail only; microsoft accounts have no calendar ingestion.
package outlook

import (
	"context"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	msgraphsdk "github.com/microsoftgraph/msgraph-sdk-go"
	"github.com/microsoftgraph/msgraph-sdk-go/models"
	"github.com/microsoftgraph/msgraph-sdk-go/users"

	"github.com/camdenhq/rapport/internal/ingest"
)

const pageSize = int32(100)

// Client implements ingest.MailClient for Outlook.
type Client struct {
	client *msgraphsdk.GraphServiceClient
}

// New creates a Graph client bound to an access token.
func New(accessToken string) (*Client, error) {
	cred := &staticTokenCredential{token: accessToken}

	client, err := msgraphsdk.NewGraphServiceClientWithCredentials(cred, []string{})
	if err != nil {
		return nil, fmt.Errorf("failed to create Graph client: %w", err)
	}

	return &Client{client: client}, nil
}

// ListMessageIDs returns one page of message IDs received on or after since.
// The cursor is the @odata.nextLink of the previous page.
func (c *Client) ListMessageIDs(ctx context.Context, since time.Time, cursor string) ([]string, string, error) {
	var (
		result models.MessageCollectionResponseable
		err    error
	)

	if cursor == "" {
		top := pageSize
		filter := fmt.Sprintf("receivedDateTime ge %s", since.UTC().Format(time.RFC3339))
		result, err = c.client.Me().Messages().Get(ctx, &users.ItemMessagesRequestBuilderGetRequestConfiguration{
			QueryParameters: &users.ItemMessagesRequestBuilderGetQueryParameters{
				Top:    &top,
				Filter: &filter,
				Select: []string{"id"},
			},
		})
	} else {
		result, err = users.NewItemMessagesRequestBuilder(cursor, c.client.GetAdapter()).Get(ctx, nil)
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to list messages: %w", err)
	}

	var ids []string
	for _, msg := range result.GetValue() {
		if id := msg.GetId(); id != nil {
			ids = append(ids, *id)
		}
	}

	next := ""
	if link := result.GetOdataNextLink(); link != nil {
		next = *link
	}
	return ids, next, nil
}

// GetMessage fetches metadata for one message and renders it into the raw
// header shape the fetcher parses.
func (c *Client) GetMessage(ctx context.Context, id string) (*ingest.MessageMeta, error) {
	msg, err := c.client.Me().Messages().ByMessageId(id).Get(ctx, &users.ItemMessagesMessageItemRequestBuilderGetRequestConfiguration{
		QueryParameters: &users.ItemMessagesMessageItemRequestBuilderGetQueryParameters{
			Select: []string{"id", "conversationId", "subject", "from", "toRecipients", "bodyPreview", "receivedDateTime"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", id, err)
	}

	return normalize(msg), nil
}

func normalize(m models.Messageable) *ingest.MessageMeta {
	meta := &ingest.MessageMeta{}

	if id := m.GetId(); id != nil {
		meta.ID = *id
	}
	if convID := m.GetConversationId(); convID != nil {
		meta.ThreadID = *convID
	}
	if subject := m.GetSubject(); subject != nil {
		meta.Subject = *subject
	}
	if preview := m.GetBodyPreview(); preview != nil {
		meta.Snippet = *preview
	}
	if from := m.GetFrom(); from != nil {
		meta.From = formatRecipient(from)
	}
	if to := m.GetToRecipients(); len(to) > 0 {
		for i, r := range to {
			if i > 0 {
				meta.To += ", "
			}
			meta.To += formatRecipient(r)
		}
	}
	if rcvd := m.GetReceivedDateTime(); rcvd != nil {
		meta.Date = rcvd.Format(time.RFC1123Z)
	}

	return meta
}

// formatRecipient renders a Graph recipient as an RFC 5322 address.
func formatRecipient(r models.Recipientable) string {
	addr := r.GetEmailAddress()
	if addr == nil {
		return ""
	}

	email := ""
	if a := addr.GetAddress(); a != nil {
		email = *a
	}
	if name := addr.GetName(); name != nil && *name != "" {
		return fmt.Sprintf("%q <%s>", *name, email)
	}
	return email
}

// staticTokenCredential adapts a bare access token to the Azure credential
// interface.
type staticTokenCredential struct {
	token string
}

func (c *staticTokenCredential) GetToken(ctx context.Context, options policy.TokenRequestOptions) (azcore.AccessToken, error) {
	return azcore.AccessToken{
		Token:     c.token,
		ExpiresOn: time.Now().Add(1 * time.Hour),
	}, nil
}
