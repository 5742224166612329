package notification

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"
)

// SendMailFunc delivers a rendered message. Wiring it as a function keeps SMTP
// details out of this package and makes the channel trivially fakeable.
type SendMailFunc func(ctx context.Context, from, to, subject, body string) error

// NewSMTPSender builds a SendMailFunc delivering over a plain SMTP relay.
// username may be empty for relays that accept unauthenticated submission.
func NewSMTPSender(addr, username, password string) SendMailFunc {
	return func(_ context.Context, from, to, subject, body string) error {
		var auth smtp.Auth
		if username != "" {
			host := addr
			if i := strings.LastIndex(addr, ":"); i >= 0 {
				host = addr[:i]
			}
			auth = smtp.PlainAuth("", username, password, host)
		}
		msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s", from, to, subject, body)
		if err := smtp.SendMail(addr, auth, from, []string{to}, []byte(msg)); err != nil {
			return fmt.Errorf("smtp send: %w", err)
		}
		return nil
	}
}

// EmailChannel renders a bulk summary into a plain-text mail.
type EmailChannel struct {
	from string
	to   string
	send SendMailFunc
}

func NewEmailChannel(from, to string, send SendMailFunc) *EmailChannel {
	return &EmailChannel{from: from, to: to, send: send}
}

func (c *EmailChannel) Name() string { return "email" }

func (c *EmailChannel) Send(ctx context.Context, summary Summary) error {
	subject := fmt.Sprintf("Bulk %s completed: %d successful, %d failed",
		summary.OperationKind, summary.Successful, summary.Failed)
	body := fmt.Sprintf(
		"Operation: %s\nTotal items: %d\nSuccessful: %d\nFailed: %d\nDuration: %s\n",
		summary.OperationKind, summary.Total, summary.Successful, summary.Failed,
		summary.Duration.Round(time.Millisecond))
	return c.send(ctx, c.from, c.to, subject, body)
}
