// internal/app/system/mailer/mailer.go
package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dalemusser/youlead/internal/app/system/timeouts"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// Email is one outbound message.
type Email struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// Sender delivers an Email.
type Sender interface {
	Send(ctx context.Context, e Email) error
}

// Config holds SMTP settings. An empty Host disables sending.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// Mailer sends through an SMTP relay with go-mail.
type Mailer struct {
	cfg Config
	log *zap.Logger
}

// New returns a Mailer for cfg.
func New(cfg Config, logger *zap.Logger) *Mailer {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &Mailer{cfg: cfg, log: logger}
}

// Enabled reports whether an SMTP host is configured.
func (m *Mailer) Enabled() bool { return m.cfg.Host != "" }

// Send implements Sender. With no host configured the message is logged
// and dropped.
func (m *Mailer) Send(ctx context.Context, e Email) error {
	if !m.Enabled() {
		m.log.Debug("mail disabled, dropping message",
			zap.String("to", e.To),
			zap.String("subject", e.Subject))
		return nil
	}
	if strings.TrimSpace(e.To) == "" {
		return errors.New("mailer: empty recipient")
	}

	msg := mail.NewMsg()
	if err := msg.FromFormat(m.cfg.FromName, m.cfg.From); err != nil {
		return fmt.Errorf("mailer: from: %w", err)
	}
	if err := msg.To(e.To); err != nil {
		return fmt.Errorf("mailer: to: %w", err)
	}
	msg.Subject(e.Subject)
	msg.SetBodyString(mail.TypeTextPlain, e.TextBody)
	if e.HTMLBody != "" {
		msg.AddAlternativeString(mail.TypeTextHTML, e.HTMLBody)
	}

	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
		)
	}
	client, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("mailer: client: %w", err)
	}
	return client.DialAndSendWithContext(ctx, msg)
}

// Notifier sends emails in the background. Failures are logged, never
// retried or returned to the caller.
type Notifier struct {
	sender Sender
	log    *zap.Logger
	wg     sync.WaitGroup
}

// NewNotifier wraps a Sender.
func NewNotifier(sender Sender, logger *zap.Logger) *Notifier {
	return &Notifier{sender: sender, log: logger}
}

// Notify sends each email on its own goroutine with the mail timeout.
// A nil Notifier is a no-op.
func (n *Notifier) Notify(emails ...Email) {
	if n == nil || n.sender == nil {
		return
	}
	for _, e := range emails {
		n.wg.Add(1)
		go func(e Email) {
			defer n.wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), timeouts.Mail())
			defer cancel()
			if err := n.sender.Send(ctx, e); err != nil {
				n.log.Warn("email send failed",
					zap.Error(err),
					zap.String("to", e.To),
					zap.String("subject", e.Subject))
			}
		}(e)
	}
}

// Wait blocks until in-flight sends finish. Used at shutdown and in tests.
func (n *Notifier) Wait() {
	if n != nil {
		n.wg.Wait()
	}
}
