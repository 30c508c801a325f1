package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mend/internal/config"

	"github.com/resend/resend-go/v2"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

type Email struct {
	ToAddress string
	ToName    string
	Subject   string
	HTML      string
	Text      string
}

// ErrEmailDisabled is returned by the logging mailer used when no provider is configured.
var ErrEmailDisabled = errors.New("email delivery disabled")

type Mailer interface {
	Send(ctx context.Context, msg *Email) error
}

// NewMailer picks the transactional email backend named by EMAIL_PROVIDER.
// Without an API key for the chosen provider it falls back to logging the message.
func NewMailer(cfg *config.Config, log *slog.Logger) Mailer {
	switch cfg.Email.Provider {
	case "sendgrid":
		if cfg.SendGrid.APIKey != "" {
			return &sendgridMailer{
				client:  sendgrid.NewSendClient(cfg.SendGrid.APIKey),
				from:    mail.NewEmail(cfg.Email.FromName, cfg.Email.FromAddress),
				replyTo: cfg.Email.ReplyTo,
			}
		}
	case "resend":
		if cfg.Resend.APIKey != "" {
			return &resendMailer{
				client: resend.NewClient(cfg.Resend.APIKey),
				from:   fmt.Sprintf("%s <%s>", cfg.Email.FromName, cfg.Email.FromAddress),
			}
		}
	}

	log.Warn("no email provider configured, recovery emails will only be logged", "provider", cfg.Email.Provider)
	return &logMailer{log: log}
}

type sendgridMailer struct {
	client  *sendgrid.Client
	from    *mail.Email
	replyTo string
}

func (m *sendgridMailer) Send(ctx context.Context, msg *Email) error {
	to := mail.NewEmail(msg.ToName, msg.ToAddress)
	message := mail.NewSingleEmail(m.from, msg.Subject, to, msg.Text, msg.HTML)
	if m.replyTo != "" {
		message.SetReplyTo(mail.NewEmail("", m.replyTo))
	}

	resp, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid error %d: %s", resp.StatusCode, resp.Body)
	}

	return nil
}

type resendMailer struct {
	client *resend.Client
	from   string
}

func (m *resendMailer) Send(ctx context.Context, msg *Email) error {
	_, err := m.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{msg.ToAddress},
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
	})
	if err != nil {
		return fmt.Errorf("resend send: %w", err)
	}
	return nil
}

type logMailer struct {
	log *slog.Logger
}

func (m *logMailer) Send(ctx context.Context, msg *Email) error {
	m.log.InfoContext(ctx, "email not sent, no provider configured",
		"to", msg.ToAddress,
		"subject", msg.Subject,
	)
	return ErrEmailDisabled
}
