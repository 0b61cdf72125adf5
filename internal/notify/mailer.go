// Package notify delivers change reports by email.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/wneessen/go-mail"

	"github.com/mkessler/sitepulse/internal/config"
	"github.com/mkessler/sitepulse/internal/ui"
)

// Error reports a failed delivery. It carries the recipients that did not get
// the report; delivery to the others succeeded.
type Error struct {
	Failed []string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("notify %s: %v", strings.Join(e.Failed, ", "), e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Notifier delivers one rendered change report.
type Notifier interface {
	Send(ctx context.Context, subject, htmlBody string) error
}

// Mailer sends reports over SMTP, one message per recipient so a bad address
// does not block the rest.
type Mailer struct {
	cfg    config.NotificationConfig
	client *mail.Client
	logger *ui.Logger
}

// NewMailer builds a Mailer from the notification config.
func NewMailer(cfg config.NotificationConfig, logger *ui.Logger) (*Mailer, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.SMTP.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.SMTP.Username),
		mail.WithPassword(cfg.SMTP.Password),
	}
	if cfg.SMTP.Secure {
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSMandatory))
	} else {
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSOpportunistic))
	}

	client, err := mail.NewClient(cfg.SMTP.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client for %s: %w", cfg.SMTP.Host, err)
	}

	return &Mailer{cfg: cfg, client: client, logger: logger}, nil
}

// From returns the sender address: the SMTP username when use_smtp_from is
// set, the configured from address otherwise.
func (m *Mailer) From() string {
	if m.cfg.UseSMTPFrom {
		return m.cfg.SMTP.Username
	}
	return m.cfg.From
}

// Send delivers the report to every configured recipient. Per-recipient
// failures are logged and collected; a *Error is returned if any recipient
// failed, nil if all succeeded.
func (m *Mailer) Send(ctx context.Context, subject, htmlBody string) error {
	var failed []string
	var lastErr error

	for _, recipient := range m.cfg.Recipients {
		if err := m.sendOne(ctx, recipient, subject, htmlBody); err != nil {
			m.logger.Error("Email delivery failed", err, "recipient", recipient)
			failed = append(failed, recipient)
			lastErr = err
			continue
		}
		m.logger.Info("Email sent", "recipient", recipient)
	}

	if len(failed) > 0 {
		return &Error{Failed: failed, Err: lastErr}
	}
	return nil
}

func (m *Mailer) sendOne(ctx context.Context, recipient, subject, htmlBody string) error {
	msg := mail.NewMsg()
	if err := msg.From(m.From()); err != nil {
		return fmt.Errorf("invalid sender %s: %w", m.From(), err)
	}
	if err := msg.To(recipient); err != nil {
		return fmt.Errorf("invalid recipient %s: %w", recipient, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)

	return m.client.DialAndSendWithContext(ctx, msg)
}

// SubjectFor expands the {url} placeholder in the configured subject line.
func SubjectFor(template, url string) string {
	return strings.ReplaceAll(template, "{url}", url)
}
