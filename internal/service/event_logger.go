package service

import (
	"context"
	"log/slog"
	"mend/internal/model"
	"mend/internal/repository"
	"time"

	"github.com/google/uuid"
)

// EventLogger writes the webhook audit trail. Its failures are logged and never
// interrupt the pipeline.
type EventLogger struct {
	repo repository.WebhookEventRepository
	log  *slog.Logger
	now  func() time.Time
}

func NewEventLogger(repo repository.WebhookEventRepository, log *slog.Logger) *EventLogger {
	return &EventLogger{
		repo: repo,
		log:  log,
		now:  time.Now,
	}
}

// Received records a verified event with status received and returns its row id,
// or "" when the row could not be written.
func (l *EventLogger) Received(ctx context.Context, event model.Event, payload []byte) string {
	eventID := event.EventID()
	row, err := l.repo.Record(ctx, &model.WebhookEvent{
		ID:                uuid.NewString(),
		ProviderEventID:   &eventID,
		EventType:         event.Kind(),
		ProviderEventType: event.ProviderType(),
		StripeAccountID:   event.Account(),
		Payload:           string(payload),
		Status:            model.WebhookStatusReceived,
		Deliveries:        1,
	})
	if err != nil {
		l.log.ErrorContext(ctx, "failed to log webhook event", "event_id", eventID, "err", err)
		return ""
	}

	if row.Deliveries > 1 {
		l.log.InfoContext(ctx, "webhook event redelivered", "event_id", eventID, "deliveries", row.Deliveries)
	}
	return row.ID
}

// Rejected records a delivery that failed verification.
func (l *EventLogger) Rejected(ctx context.Context, payload []byte, cause error) {
	now := l.now()
	_, err := l.repo.Record(ctx, &model.WebhookEvent{
		ID:           uuid.NewString(),
		EventType:    model.WebhookEventSignatureFailed,
		Payload:      string(payload),
		Status:       model.WebhookStatusFailed,
		ErrorMessage: cause.Error(),
		Deliveries:   1,
		ProcessedAt:  &now,
	})
	if err != nil {
		l.log.ErrorContext(ctx, "failed to log rejected webhook", "err", err)
	}
}

// Finish stamps the terminal status on a row created by Received. A row that already
// finished keeps its first outcome; the redelivery's outcome is only logged.
func (l *EventLogger) Finish(ctx context.Context, rowID string, status model.WebhookEventStatus, cause error) {
	if rowID == "" {
		return
	}

	var msg string
	if cause != nil {
		msg = cause.Error()
	}

	finished, err := l.repo.Finish(ctx, rowID, status, msg, l.now())
	if err != nil {
		l.log.ErrorContext(ctx, "failed to finish webhook log", "row_id", rowID, "status", status, "err", err)
		return
	}
	if !finished {
		l.log.InfoContext(ctx, "webhook log already finished, keeping first outcome",
			"row_id", rowID,
			"redelivery_status", status,
			"redelivery_error", msg,
		)
	}
}
