package email

import (
	"context"
	"time"
)

// SendRequest is a single outbound message. Reminders always go to one recipient.
type SendRequest struct {
	To      string // Recipient address
	From    string // Sender header, e.g. "Vrijwilligers <vog@example.org>"
	Subject string
	HTML    string // HTML body
	Text    string // Plain text alternative
	ReplyTo string
	Tags    map[string]string // Provider tags for delivery reporting
}

// SendResult contains the response from the email provider.
type SendResult struct {
	MessageID string    // Provider's message ID for tracking
	SentAt    time.Time // When the send was accepted
}

// Sender hands a message to an email provider. Implementations must honour
// ctx cancellation so callers can bound each dispatch with a timeout.
type Sender interface {
	Send(ctx context.Context, req SendRequest) (SendResult, error)
}
