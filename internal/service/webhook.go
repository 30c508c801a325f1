package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mend/internal/cache"
	"mend/internal/model"
	"mend/internal/repository"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type WebhookResult struct {
	EventID   string
	Status    model.WebhookEventStatus
	Duplicate bool
	Warning   string
}

type WebhookService interface {
	// HandleWebhook verifies and processes one delivery. Returned errors wrap
	// ErrInvalidSignature or ErrMalformedEvent for rejected deliveries; any other
	// error is a storage failure the provider should retry.
	HandleWebhook(ctx context.Context, signature string, payload []byte) (*WebhookResult, error)
}

type webhookServiceImpl struct {
	verifier       EventVerifier
	events         *EventLogger
	resolver       *CustomerResolver
	composer       *MessageComposer
	notifier       *RecoveryNotifier
	accounts       AccountService
	recoveryRepo   repository.RecoveryRepository
	commissionRepo repository.CommissionRepository
	processed      cache.ProcessedEvents
	log            *slog.Logger
	now            func() time.Time
}

func NewWebhookService(
	verifier EventVerifier,
	events *EventLogger,
	resolver *CustomerResolver,
	composer *MessageComposer,
	notifier *RecoveryNotifier,
	accounts AccountService,
	recoveryRepo repository.RecoveryRepository,
	commissionRepo repository.CommissionRepository,
	processed cache.ProcessedEvents,
	log *slog.Logger,
) WebhookService {
	if processed == nil {
		processed = cache.NewNoopProcessedEvents()
	}

	return &webhookServiceImpl{
		verifier:       verifier,
		events:         events,
		resolver:       resolver,
		composer:       composer,
		notifier:       notifier,
		accounts:       accounts,
		recoveryRepo:   recoveryRepo,
		commissionRepo: commissionRepo,
		processed:      processed,
		log:            log,
		now:            time.Now,
	}
}

func (s *webhookServiceImpl) HandleWebhook(ctx context.Context, signature string, payload []byte) (*WebhookResult, error) {
	event, err := s.verifier.Verify(payload, signature)
	if err != nil {
		s.log.WarnContext(ctx, "webhook rejected", "err", err)
		s.events.Rejected(ctx, payload, err)
		return nil, err
	}

	log := s.log.With("event_id", event.EventID(), "event_type", event.ProviderType(), "account", event.Account())
	rowID := s.events.Received(ctx, event, payload)
	result := &WebhookResult{EventID: event.EventID()}

	seen, err := s.processed.Seen(ctx, event.EventID())
	if err != nil {
		log.WarnContext(ctx, "processed-event cache unavailable", "err", err)
	}
	if seen {
		log.InfoContext(ctx, "duplicate delivery of processed event")
		s.events.Finish(ctx, rowID, model.WebhookStatusProcessed, nil)
		result.Status = model.WebhookStatusProcessed
		result.Duplicate = true
		return result, nil
	}

	var results []StepResult
	switch ev := event.(type) {
	case model.PaymentFailedEvent:
		results, err = s.handlePaymentFailed(ctx, log, ev)
	case model.PaymentSucceededEvent:
		results, err = s.handlePaymentSucceeded(ctx, log, ev)
	case model.IgnoredEvent:
		log.DebugContext(ctx, "ignoring event type")
	}
	if err != nil {
		log.ErrorContext(ctx, "webhook processing failed", "err", err)
		s.events.Finish(ctx, rowID, model.WebhookStatusFailed, err)
		return nil, err
	}

	status, cause := finalStatus(results)
	s.events.Finish(ctx, rowID, status, cause)
	result.Status = status
	for _, r := range results {
		if errors.Is(r.Err, ErrUnlinkedAccount) {
			result.Warning = "No account found in database"
		}
	}

	if status == model.WebhookStatusProcessed {
		if err := s.processed.Remember(ctx, event.EventID()); err != nil {
			log.WarnContext(ctx, "failed to remember processed event", "err", err)
		}
	}

	log.InfoContext(ctx, "webhook processed", "status", status)
	return result, nil
}

func (s *webhookServiceImpl) handlePaymentFailed(ctx context.Context, log *slog.Logger, ev model.PaymentFailedEvent) ([]StepResult, error) {
	account := ev.Account()
	inv := ev.Invoice

	// Redelivery of an already tracked invoice must not email the customer again.
	existing, err := s.recoveryRepo.FindByInvoice(ctx, account, inv.ID)
	if err == nil {
		log.InfoContext(ctx, "recovery already recorded", "invoice_id", inv.ID, "recovery_id", existing.ID)
		return []StepResult{stepOK("record_attempt")}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load recovery attempt: %w", err)
	}

	customer, resolved := s.resolver.Resolve(ctx, account, inv)
	results := []StepResult{resolved}

	if _, err := s.accounts.ResolveUser(ctx, account); err != nil {
		if errors.Is(err, ErrUnlinkedAccount) {
			log.WarnContext(ctx, "no account link for stripe account, skipping recovery")
			return append(results, StepResult{Step: "link_account", Outcome: StepOK, Err: err}), nil
		}
		return nil, err
	}

	message, composed := s.composer.Compose(ctx, customer.Name, FormatAmount(inv.AmountDue), inv.Currency)
	results = append(results, composed)

	outcome, notified := s.notifier.Notify(ctx, customer, message)
	results = append(results, notified)

	status := model.RecoveryStatusPending
	if outcome == NotifySent {
		status = model.RecoveryStatusEmailSent
	}

	created, err := s.recoveryRepo.RecordAttempt(ctx, &model.RecoveryAttempt{
		ID:               uuid.NewString(),
		StripeInvoiceID:  inv.ID,
		StripeAccountID:  account,
		StripeCustomerID: inv.CustomerID,
		AmountDue:        inv.AmountDue,
		Currency:         inv.Currency,
		CustomerEmail:    customer.Email,
		CustomerName:     customer.Name,
		MessageSent:      message,
		Status:           status,
	})
	if err != nil {
		return nil, fmt.Errorf("record recovery attempt: %w", err)
	}
	if !created {
		log.InfoContext(ctx, "recovery attempt already exists", "invoice_id", inv.ID)
	} else {
		log.InfoContext(ctx, "recovery attempt recorded", "invoice_id", inv.ID, "status", status, "notify", outcome)
	}

	return append(results, stepOK("record_attempt")), nil
}

func (s *webhookServiceImpl) handlePaymentSucceeded(ctx context.Context, log *slog.Logger, ev model.PaymentSucceededEvent) ([]StepResult, error) {
	account := ev.Account()
	inv := ev.Invoice

	attempt, err := s.recoveryRepo.MarkRecovered(ctx, account, inv.ID, s.now())
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.InfoContext(ctx, "paid invoice was never tracked", "invoice_id", inv.ID)
		return []StepResult{stepOK("mark_recovered")}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mark recovered: %w", err)
	}
	results := []StepResult{stepOK("mark_recovered")}

	userID, err := s.accounts.ResolveUser(ctx, account)
	if err != nil {
		if errors.Is(err, ErrUnlinkedAccount) {
			log.WarnContext(ctx, "no account link for stripe account, skipping commission")
			return append(results, StepResult{Step: "link_account", Outcome: StepOK, Err: err}), nil
		}
		return nil, err
	}

	commission := CalculateCommission(attempt, userID, ev.RecoveredAmount(), s.now())
	created, err := s.commissionRepo.Create(ctx, commission)
	if err != nil {
		return nil, fmt.Errorf("create commission: %w", err)
	}
	if !created {
		log.InfoContext(ctx, "commission already exists", "recovery_id", attempt.ID)
	} else {
		log.InfoContext(ctx, "commission created",
			"recovery_id", attempt.ID,
			"user_id", userID,
			"amount_recovered", commission.AmountRecovered,
			"commission_amount", commission.CommissionAmount,
		)
	}

	return append(results, stepOK("create_commission")), nil
}
