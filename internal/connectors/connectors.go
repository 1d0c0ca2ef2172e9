package connectors

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/jhillyerd/enmime"

	"campaignmap/internal"
)

// MailConnector pulls raw report emails from a mailbox.
type MailConnector interface {
	FetchInbox(ctx context.Context, label string, max int) ([]internal.FetchedMailMessage, error)
}

// MessageFromRaw builds a fetched message from the raw RFC 822 bytes alone,
// reading subject, sender, Message-ID and date from the headers. fallbackID is
// used when the message carries no Message-ID.
func MessageFromRaw(provider, fallbackID string, raw []byte) (internal.FetchedMailMessage, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return internal.FetchedMailMessage{}, err
	}

	messageID := strings.TrimSpace(env.GetHeader("Message-ID"))
	if messageID == "" {
		messageID = fallbackID
	}

	return internal.FetchedMailMessage{
		Provider:   provider,
		MessageID:  messageID,
		Subject:    env.GetHeader("Subject"),
		From:       env.GetHeader("From"),
		ReceivedAt: ParseReceived(env.GetHeader("Date")),
		Raw:        raw,
	}, nil
}

var mailDateLayouts = []string{
	time.RFC1123Z,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 -0700 (MST)",
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC850,
	time.ANSIC,
}

// ParseReceived normalizes a Date header to RFC 3339 UTC, falling back to now.
func ParseReceived(value string) string {
	value = strings.TrimSpace(value)
	for _, layout := range mailDateLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.UTC().Format(time.RFC3339)
		}
	}
	return time.Now().UTC().Format(time.RFC3339)
}
