// Package notify delivers the once-per-run batching notification to an
// insurer's registered email address.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/wneessen/go-mail"

	"github.com/clearhealth/claimflow/internal/common"
	"github.com/clearhealth/claimflow/internal/model"
)

const subject = "Claim Batched Notification"

// Config holds SMTP settings for the mailer.
type Config struct {
	Host     string
	Username string
	Password string
	From     string
	Port     int
}

// SMTPNotifier implements service.Notifier over SMTP.
type SMTPNotifier struct {
	client *mail.Client
	from   string
}

// NewSMTPNotifier creates a mailer from config.
func NewSMTPNotifier(cfg Config) (*SMTPNotifier, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("%w: mail host", common.ErrMissingConfig)
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("%w: mail from address", common.ErrMissingConfig)
	}

	opts := []mail.Option{mail.WithPort(cfg.Port)}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password))
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}

	return &SMTPNotifier{client: client, from: cfg.From}, nil
}

// ClaimBatched sends the notification for one engine run. Insurers without
// a registered address are skipped silently.
func (n *SMTPNotifier) ClaimBatched(ctx context.Context, claim *model.Claim, insurer *model.Insurer) error {
	if insurer.Email == "" {
		return nil
	}

	msg := mail.NewMsg()
	if err := msg.From(n.from); err != nil {
		return fmt.Errorf("bad from address: %w", err)
	}
	if err := msg.To(insurer.Email); err != nil {
		return fmt.Errorf("bad recipient address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body(claim))

	if err := n.client.DialAndSendWithContext(ctx, msg); err != nil {
		return &common.RetryableError{
			Err:       fmt.Errorf("%w: %v", common.ErrMailConnection, err),
			Retryable: true,
		}
	}
	return nil
}

// body renders the plain-text notification.
func body(claim *model.Claim) string {
	batchDate := ""
	if claim.BatchDate != nil {
		batchDate = claim.BatchDate.Format("2006-01-02")
	}

	var b strings.Builder
	b.WriteString("Dear Insurer,\n\n")
	b.WriteString("A new claim has been processed.\n\n")
	b.WriteString("Claim Details:\n")
	fmt.Fprintf(&b, "- Claim ID: %s\n", claim.ID)
	fmt.Fprintf(&b, "- Batch ID: %s\n", claim.BatchID)
	fmt.Fprintf(&b, "- Batch Date: %s\n", batchDate)
	fmt.Fprintf(&b, "- Provider: %s\n", claim.ProviderName)
	fmt.Fprintf(&b, "- Insurer: %s\n", claim.InsurerCode)
	b.WriteString("\nThanks,\nclaimflow\n")
	return b.String()
}

// LogNotifier is the fallback when no SMTP server is configured: it writes
// the notification to the log instead of sending mail.
type LogNotifier struct{}

// ClaimBatched implements service.Notifier.
func (LogNotifier) ClaimBatched(_ context.Context, claim *model.Claim, insurer *model.Insurer) error {
	if insurer.Email == "" {
		return nil
	}
	slog.Info("Claim batched notification (mail not configured)",
		"to", insurer.Email,
		"claim_id", claim.ID,
		"batch_id", claim.BatchID,
		"provider", claim.ProviderName,
		"insurer_code", claim.InsurerCode)
	return nil
}
