package google

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/studyhub-ai/assistant-api/internal/intent"
	"github.com/studyhub-ai/assistant-api/internal/provider"
)

const gmailSelf = "me"

// MailClient implements provider.Mail against the Gmail v1 API.
type MailClient struct {
	svc *gmail.Service
}

// NewMailClient builds an authorized mail client.
func NewMailClient(ctx context.Context, ts oauth2.TokenSource) (*MailClient, error) {
	svc, err := gmail.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}
	return &MailClient{svc: svc}, nil
}

// Send serializes the intent as a single-part text message, base64url-encodes
// it (padding retained, per MIME transport requirements), and issues exactly
// one send call. Returns the provider-assigned message id.
func (m *MailClient) Send(ctx context.Context, em *intent.EmailIntent) (string, error) {
	raw := base64.URLEncoding.EncodeToString(buildTextMessage(em))

	sent, err := m.svc.Users.Messages.Send(gmailSelf, &gmail.Message{Raw: raw}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("send message: %w", err)
	}
	return sent.Id, nil
}

// RecentMessages lists metadata for up to max recent inbox messages.
func (m *MailClient) RecentMessages(ctx context.Context, max int64) ([]provider.MessageSummary, error) {
	res, err := m.svc.Users.Messages.List(gmailSelf).
		LabelIds("INBOX").
		MaxResults(max).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return m.fetchMetadata(ctx, res.Messages)
}

// Search lists metadata for messages matching Gmail's search syntax.
func (m *MailClient) Search(ctx context.Context, query string, max int64) ([]provider.MessageSummary, error) {
	res, err := m.svc.Users.Messages.List(gmailSelf).
		Q(query).
		MaxResults(max).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("search messages: %w", err)
	}
	return m.fetchMetadata(ctx, res.Messages)
}

func (m *MailClient) fetchMetadata(ctx context.Context, refs []*gmail.Message) ([]provider.MessageSummary, error) {
	summaries := make([]provider.MessageSummary, 0, len(refs))
	for _, ref := range refs {
		msg, err := m.svc.Users.Messages.Get(gmailSelf, ref.Id).
			Format("metadata").
			MetadataHeaders("From", "Subject", "Date").
			Context(ctx).
			Do()
		if err != nil {
			return nil, fmt.Errorf("get message %s: %w", ref.Id, err)
		}
		summaries = append(summaries, provider.MessageSummary{
			ID:      msg.Id,
			From:    headerValue(msg, "From"),
			Subject: headerValue(msg, "Subject"),
			Date:    headerValue(msg, "Date"),
		})
	}
	return summaries, nil
}

func headerValue(msg *gmail.Message, name string) string {
	if msg.Payload == nil {
		return ""
	}
	for _, h := range msg.Payload.Headers {
		if h.Name == name {
			return h.Value
		}
	}
	return ""
}

func buildTextMessage(em *intent.EmailIntent) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "To: %s\r\n", em.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", em.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(em.Body)
	return b.Bytes()
}
