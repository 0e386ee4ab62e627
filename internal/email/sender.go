package email

import "context"

// Sender delivers transactional follow-up emails. Delivery failures
// never fail the business operation that triggered them; callers log
// and continue.
type Sender interface {
	SendCancellationNotice(ctx context.Context, toEmail, clientName, title, scheduledDate, reason string) error
	SendOutcomeSummary(ctx context.Context, toEmail, clientName, title, outcome string, actionItems []string) error
}

// NoopSender is used when no SMTP transport is configured.
type NoopSender struct{}

func (NoopSender) SendCancellationNotice(ctx context.Context, toEmail, clientName, title, scheduledDate, reason string) error {
	return nil
}

func (NoopSender) SendOutcomeSummary(ctx context.Context, toEmail, clientName, title, outcome string, actionItems []string) error {
	return nil
}

var (
	_ Sender = NoopSender{}
	_ Sender = (*SMTPSender)(nil)
)
