package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"mend/internal/client"
	"time"
)

type NotifyOutcome string

const (
	NotifySent        NotifyOutcome = "sent"
	NotifySkipped     NotifyOutcome = "skipped"
	NotifyEmailFailed NotifyOutcome = "email_failed"
)

var recoveryEmailTmpl = template.Must(template.New("recovery").Parse(`<div style="font-family: sans-serif; line-height: 1.6; max-width: 600px; margin: 0 auto;">
  <div style="background: #f8fafc; padding: 30px; border-radius: 12px; margin: 20px 0;">
    <h2 style="color: #1e293b; margin: 0 0 20px 0; font-size: 20px;">Mend</h2>
    <div style="background: white; padding: 25px; border-radius: 8px; border: 1px solid #e2e8f0; white-space: pre-line; margin-bottom: 25px;">{{.Message}}</div>
    <div style="border-top: 1px solid #e2e8f0; padding-top: 20px; font-size: 13px; color: #64748b;">
      <p>This is an automated message from Mend. If you believe this is a mistake, please contact our support team.</p>
      <p>&copy; {{.Year}} Mend. All rights reserved.</p>
    </div>
  </div>
</div>`))

// RecoveryNotifier emails the composed message. It reports failures instead of returning them.
type RecoveryNotifier struct {
	mailer  client.Mailer
	subject string
	timeout time.Duration
	log     *slog.Logger
	now     func() time.Time
}

func NewRecoveryNotifier(mailer client.Mailer, subject string, timeout time.Duration, log *slog.Logger) *RecoveryNotifier {
	return &RecoveryNotifier{
		mailer:  mailer,
		subject: subject,
		timeout: timeout,
		log:     log,
		now:     time.Now,
	}
}

func (n *RecoveryNotifier) Notify(ctx context.Context, to Customer, message string) (NotifyOutcome, StepResult) {
	const step = "notify_customer"

	if to.Email == "" {
		return NotifySkipped, stepOK(step)
	}

	html, err := n.render(message)
	if err != nil {
		return NotifyEmailFailed, stepDegraded(step, err)
	}

	sendCtx := ctx
	if n.timeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	err = n.mailer.Send(sendCtx, &client.Email{
		ToAddress: to.Email,
		ToName:    to.Name,
		Subject:   n.subject,
		HTML:      html,
		Text:      message,
	})
	if errors.Is(err, client.ErrEmailDisabled) {
		return NotifySkipped, stepOK(step)
	}
	if err != nil {
		n.log.ErrorContext(ctx, "failed to send recovery email", "to", to.Email, "err", err)
		return NotifyEmailFailed, stepDegraded(step, fmt.Errorf("send recovery email: %w", err))
	}

	n.log.InfoContext(ctx, "recovery email sent", "to", to.Email)
	return NotifySent, stepOK(step)
}

func (n *RecoveryNotifier) render(message string) (string, error) {
	var buf bytes.Buffer
	err := recoveryEmailTmpl.Execute(&buf, struct {
		Message string
		Year    int
	}{
		Message: message,
		Year:    n.now().Year(),
	})
	if err != nil {
		return "", fmt.Errorf("render recovery email: %w", err)
	}
	return buf.String(), nil
}
