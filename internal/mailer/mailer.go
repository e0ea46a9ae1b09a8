// Package mailer sends account emails over SMTP.
package mailer

import (
	"context"
	"fmt"
	"html"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"

	"skillsync/internal/config"
)

type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Mailer sends verification emails. With no SMTP host configured it only logs.
type Mailer struct {
	from   string
	dialer sender
	logger *zerolog.Logger
}

// New builds a mailer from cfg.
func New(cfg config.SMTPConfig, logger *zerolog.Logger) *Mailer {
	m := &Mailer{from: cfg.From, logger: logger}
	if cfg.Host != "" {
		m.dialer = gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	}
	return m
}

// Enabled reports whether mail actually leaves the process.
func (m *Mailer) Enabled() bool {
	return m.dialer != nil
}

// SendVerification mails the email verification link to a new user.
func (m *Mailer) SendVerification(ctx context.Context, to, name, link string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.dialer == nil {
		m.logger.Debug().Str("to", to).Msg("smtp not configured, verification email skipped")
		return nil
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetAddressHeader("To", to, name)
	msg.SetHeader("Subject", "Verify your SkillSync email")
	msg.SetBody("text/plain", verificationText(name, link))
	msg.AddAlternative("text/html", verificationHTML(name, link))

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send verification email: %w", err)
	}
	return nil
}

func verificationText(name, link string) string {
	return fmt.Sprintf("Hi %s,\n\nConfirm your email address by opening the link below. It expires in 24 hours.\n\n%s\n", name, link)
}

func verificationHTML(name, link string) string {
	return fmt.Sprintf(`<p>Hi %s,</p><p>Confirm your email address by opening the link below. It expires in 24 hours.</p><p><a href="%s">Verify email</a></p>`,
		html.EscapeString(name), html.EscapeString(link))
}
