// Package mailer sends transactional email over SMTP.
package mailer

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"log/slog"
	texttemplate "text/template"
	"time"

	"github.com/wneessen/go-mail"

	"pocketbook/internal/domain/notification"
	"pocketbook/internal/shared/config"
)

//go:embed templates/*
var templateFS embed.FS

// Sender delivers composed messages. *mail.Client satisfies it.
type Sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// Mailer implements notification.Mailer and user.OTPSender. With a nil
// Sender it logs each message instead of sending it.
type Mailer struct {
	sender Sender
	from   string
	html   *htmltemplate.Template
	text   *texttemplate.Template
}

func New(cfg config.MailConfig) (*Mailer, error) {
	if !cfg.Enabled {
		return NewWithSender(nil, cfg.From)
	}

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(10 * time.Second),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create SMTP client: %w", err)
	}
	return NewWithSender(client, cfg.From)
}

func NewWithSender(sender Sender, from string) (*Mailer, error) {
	html, err := htmltemplate.ParseFS(templateFS, "templates/email.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse html template: %w", err)
	}
	text, err := texttemplate.ParseFS(templateFS, "templates/email.txt")
	if err != nil {
		return nil, fmt.Errorf("failed to parse text template: %w", err)
	}
	return &Mailer{sender: sender, from: from, html: html, text: text}, nil
}

// SendOTP delivers a one-time login code. Unlike event mail the caller
// needs the outcome, so errors are returned.
func (m *Mailer) SendOTP(ctx context.Context, email, name, otp string) error {
	return m.send(ctx, email, "Your BudgetTracker login code", content{
		Name:    name,
		Heading: "Login Code",
		Color:   colorBlue,
		Intro:   "Use the code below to sign in. It expires in 10 minutes.",
		Code:    otp,
		Outro:   "If you did not request this code you can ignore this email.",
	})
}

// SendEventEmail renders the email for e. Kinds without an email are
// ignored.
func (m *Mailer) SendEventEmail(ctx context.Context, to notification.Recipient, e notification.Event) error {
	subject, c, ok := compose(e)
	if !ok {
		return nil
	}
	c.Name = to.Name
	return m.send(ctx, to.Email, subject, c)
}

func (m *Mailer) send(ctx context.Context, to, subject string, c content) error {
	if m.sender == nil {
		slog.InfoContext(ctx, "mail disabled, dropping message", "to", to, "subject", subject)
		return nil
	}

	msg, err := m.build(to, subject, c)
	if err != nil {
		return err
	}
	if err := m.sender.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	slog.DebugContext(ctx, "email sent", "to", to, "subject", subject)
	return nil
}

func (m *Mailer) build(to, subject string, c content) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(subject)

	var plain bytes.Buffer
	if err := m.text.Execute(&plain, c); err != nil {
		return nil, fmt.Errorf("failed to render text body: %w", err)
	}
	msg.SetBodyString(mail.TypeTextPlain, plain.String())
	if err := msg.AddAlternativeHTMLTemplate(m.html, c); err != nil {
		return nil, fmt.Errorf("failed to render html body: %w", err)
	}
	return msg, nil
}
