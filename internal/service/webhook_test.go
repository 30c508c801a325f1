package service

import (
	"context"
	"errors"
	"mend/internal/cache"
	"mend/internal/model"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func countRows(t *testing.T, h *harness, value interface{}) int64 {
	t.Helper()

	var n int64
	require.NoError(t, h.db.Model(value).Count(&n).Error)
	return n
}

func loggedEvent(t *testing.T, h *harness, eventID string) *model.WebhookEvent {
	t.Helper()

	var row model.WebhookEvent
	require.NoError(t, h.db.Where("provider_event_id = ?", eventID).First(&row).Error)
	return &row
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	h := newHarness(t)
	payload := eventPayload(t, "evt_1", "invoice.payment_failed", "acct_1", failedInvoice("inv_1", 4900))

	res, err := h.webhooks.HandleWebhook(context.Background(), sign(payload, "whsec_wrong"), payload)
	require.ErrorIs(t, err, ErrInvalidSignature)
	require.Nil(t, res)

	require.Zero(t, countRows(t, h, &model.RecoveryAttempt{}))
	require.Zero(t, countRows(t, h, &model.Commission{}))
	require.Zero(t, h.mailer.count())

	var rejected model.WebhookEvent
	require.NoError(t, h.db.Where("event_type = ?", model.WebhookEventSignatureFailed).First(&rejected).Error)
	require.Equal(t, model.WebhookStatusFailed, rejected.Status)
	require.Nil(t, rejected.ProviderEventID)
	require.NotEmpty(t, rejected.ErrorMessage)
}

func TestWebhookPaymentFailedDuplicateDelivery(t *testing.T) {
	h := newHarness(t)
	payload := eventPayload(t, "evt_1", "invoice.payment_failed", "acct_1", failedInvoice("inv_1", 4900))

	first := h.deliver(t, payload)
	require.Equal(t, model.WebhookStatusProcessed, first.Status)

	second := h.deliver(t, payload)
	require.Equal(t, model.WebhookStatusProcessed, second.Status)

	require.Equal(t, int64(1), countRows(t, h, &model.RecoveryAttempt{}))
	require.Equal(t, 1, h.mailer.count())

	row := loggedEvent(t, h, "evt_1")
	require.Equal(t, 2, row.Deliveries)
	require.Equal(t, model.WebhookStatusProcessed, row.Status)
}

func TestWebhookPaymentFailedDistinctEventsSameInvoice(t *testing.T) {
	h := newHarness(t)
	inv := failedInvoice("inv_1", 4900)

	h.deliver(t, eventPayload(t, "evt_1", "invoice.payment_failed", "acct_1", inv))
	h.deliver(t, eventPayload(t, "evt_2", "invoice.payment_failed", "acct_1", inv))

	require.Equal(t, int64(1), countRows(t, h, &model.RecoveryAttempt{}))
	require.Equal(t, int64(2), countRows(t, h, &model.WebhookEvent{}))
}

func TestWebhookRecoveryEndToEnd(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res := h.deliver(t, eventPayload(t, "evt_fail", "invoice.payment_failed", "acct_1", failedInvoice("inv_1", 4900)))
	require.Equal(t, model.WebhookStatusProcessed, res.Status)

	attempt, err := h.recoveries.FindByInvoice(ctx, "acct_1", "inv_1")
	require.NoError(t, err)
	require.Equal(t, int64(4900), attempt.AmountDue)
	require.Equal(t, model.RecoveryStatusEmailSent, attempt.Status)
	require.Equal(t, "alex@example.com", attempt.CustomerEmail)
	require.Equal(t, "Hi Alex, your card may have expired.", attempt.MessageSent)
	require.Equal(t, 1, h.mailer.count())
	require.Equal(t, "alex@example.com", h.mailer.sent[0].ToAddress)

	paid := eventPayload(t, "evt_paid", "invoice.paid", "acct_1", paidInvoice("inv_1", 4900))
	res = h.deliver(t, paid)
	require.Equal(t, model.WebhookStatusProcessed, res.Status)

	attempt, err = h.recoveries.FindByInvoice(ctx, "acct_1", "inv_1")
	require.NoError(t, err)
	require.Equal(t, model.RecoveryStatusRecovered, attempt.Status)
	require.NotNil(t, attempt.RecoveredAt)

	commission, err := h.commissions.FindByRecoveryID(ctx, attempt.ID)
	require.NoError(t, err)
	require.Equal(t, int64(490), commission.CommissionAmount)
	require.Equal(t, int64(4900), commission.AmountRecovered)
	require.Equal(t, model.CommissionStatusPending, commission.Status)
	require.Equal(t, "user_1", commission.UserID)
	require.Equal(t, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), commission.PeriodStart.UTC())

	// redelivery of the paid event
	res = h.deliver(t, paid)
	require.Equal(t, model.WebhookStatusProcessed, res.Status)
	require.Equal(t, int64(1), countRows(t, h, &model.Commission{}))
}

func TestWebhookPaidUsesAmountDueWhenNothingPaid(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.deliver(t, eventPayload(t, "evt_fail", "invoice.payment_failed", "acct_1", failedInvoice("inv_1", 2500)))
	h.deliver(t, eventPayload(t, "evt_paid", "invoice.paid", "acct_1", failedInvoice("inv_1", 2500)))

	attempt, err := h.recoveries.FindByInvoice(ctx, "acct_1", "inv_1")
	require.NoError(t, err)
	commission, err := h.commissions.FindByRecoveryID(ctx, attempt.ID)
	require.NoError(t, err)
	require.Equal(t, int64(250), commission.CommissionAmount)
}

func TestWebhookPaidForUntrackedInvoice(t *testing.T) {
	h := newHarness(t)

	res := h.deliver(t, eventPayload(t, "evt_paid", "invoice.paid", "acct_1", paidInvoice("inv_unknown", 4900)))
	require.Equal(t, model.WebhookStatusProcessed, res.Status)
	require.Zero(t, countRows(t, h, &model.Commission{}))
}

func TestWebhookUnlinkedAccount(t *testing.T) {
	h := newHarness(t)

	res := h.deliver(t, eventPayload(t, "evt_1", "invoice.payment_failed", "acct_stranger", failedInvoice("inv_1", 4900)))
	require.Equal(t, model.WebhookStatusProcessed, res.Status)
	require.Equal(t, "No account found in database", res.Warning)

	require.Zero(t, countRows(t, h, &model.RecoveryAttempt{}))
	require.Zero(t, h.mailer.count())

	row := loggedEvent(t, h, "evt_1")
	require.Equal(t, model.WebhookStatusProcessed, row.Status)
	require.Contains(t, row.ErrorMessage, "not linked")
}

func TestWebhookEmailFailureIsPartial(t *testing.T) {
	h := newHarness(t)
	h.mailer.err = errors.New("provider down")

	res := h.deliver(t, eventPayload(t, "evt_1", "invoice.payment_failed", "acct_1", failedInvoice("inv_1", 4900)))
	require.Equal(t, model.WebhookStatusPartial, res.Status)

	attempt, err := h.recoveries.FindByInvoice(context.Background(), "acct_1", "inv_1")
	require.NoError(t, err)
	require.Equal(t, model.RecoveryStatusPending, attempt.Status)

	row := loggedEvent(t, h, "evt_1")
	require.Equal(t, model.WebhookStatusPartial, row.Status)
	require.Contains(t, row.ErrorMessage, "provider down")
	require.NotNil(t, row.ProcessedAt)
}

func TestWebhookRedeliveryKeepsFirstOutcome(t *testing.T) {
	h := newHarness(t)
	h.mailer.err = errors.New("provider down")
	payload := eventPayload(t, "evt_1", "invoice.payment_failed", "acct_1", failedInvoice("inv_1", 4900))

	res := h.deliver(t, payload)
	require.Equal(t, model.WebhookStatusPartial, res.Status)

	h.mailer.err = nil
	h.deliver(t, payload)

	row := loggedEvent(t, h, "evt_1")
	require.Equal(t, 2, row.Deliveries)
	require.Equal(t, model.WebhookStatusPartial, row.Status)
	require.Contains(t, row.ErrorMessage, "provider down")

	attempt, err := h.recoveries.FindByInvoice(context.Background(), "acct_1", "inv_1")
	require.NoError(t, err)
	require.Equal(t, model.RecoveryStatusPending, attempt.Status)
	require.Zero(t, h.mailer.count())
}

func TestWebhookConcurrentDuplicateDeliveries(t *testing.T) {
	h := newHarness(t)
	const workers = 8

	deliverAll := func(payload []byte) {
		sig := sign(payload, testWebhookSecret)
		errs := make(chan error, workers)
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := h.webhooks.HandleWebhook(context.Background(), sig, payload)
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}
	}

	deliverAll(eventPayload(t, "evt_fail", "invoice.payment_failed", "acct_1", failedInvoice("inv_1", 4900)))
	require.Equal(t, int64(1), countRows(t, h, &model.RecoveryAttempt{}))
	require.Equal(t, workers, loggedEvent(t, h, "evt_fail").Deliveries)

	deliverAll(eventPayload(t, "evt_paid", "invoice.paid", "acct_1", paidInvoice("inv_1", 4900)))
	require.Equal(t, int64(1), countRows(t, h, &model.Commission{}))

	attempt, err := h.recoveries.FindByInvoice(context.Background(), "acct_1", "inv_1")
	require.NoError(t, err)
	require.Equal(t, model.RecoveryStatusRecovered, attempt.Status)

	commission, err := h.commissions.FindByRecoveryID(context.Background(), attempt.ID)
	require.NoError(t, err)
	require.Equal(t, int64(490), commission.CommissionAmount)
}

func TestWebhookGeneratorFailureStillNotifies(t *testing.T) {
	h := newHarness(t)
	h.generator.err = errors.New("quota exceeded")
	h.generator.text = ""

	res := h.deliver(t, eventPayload(t, "evt_1", "invoice.payment_failed", "acct_1", failedInvoice("inv_1", 4900)))
	require.Equal(t, model.WebhookStatusPartial, res.Status)

	require.Equal(t, 1, h.mailer.count())
	require.Contains(t, h.mailer.sent[0].Text, "$49.00 USD")

	attempt, err := h.recoveries.FindByInvoice(context.Background(), "acct_1", "inv_1")
	require.NoError(t, err)
	require.Equal(t, model.RecoveryStatusEmailSent, attempt.Status)
}

func TestWebhookLooksUpCustomerWithoutEmbeddedEmail(t *testing.T) {
	h := newHarness(t)
	h.stripe.err = errors.New("stripe unavailable")

	inv := failedInvoice("inv_1", 4900)
	inv.CustomerEmail = ""
	res := h.deliver(t, eventPayload(t, "evt_1", "invoice.payment_failed", "acct_1", inv))
	require.Equal(t, model.WebhookStatusPartial, res.Status)
	require.Equal(t, 1, h.stripe.calls)
	require.Zero(t, h.mailer.count())

	attempt, err := h.recoveries.FindByInvoice(context.Background(), "acct_1", "inv_1")
	require.NoError(t, err)
	require.Equal(t, model.RecoveryStatusPending, attempt.Status)
	require.Empty(t, attempt.CustomerEmail)
}

func TestWebhookIgnoredEventType(t *testing.T) {
	h := newHarness(t)

	res := h.deliver(t, eventPayload(t, "evt_1", "charge.refunded", "acct_1", map[string]interface{}{"id": "ch_1", "object": "charge"}))
	require.Equal(t, model.WebhookStatusProcessed, res.Status)

	row := loggedEvent(t, h, "evt_1")
	require.Equal(t, model.WebhookEventOther, row.EventType)
	require.Equal(t, "charge.refunded", row.ProviderEventType)
}

func TestWebhookProcessedCacheShortCircuits(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	h := newHarnessWithCache(t, cache.NewRedisProcessedEvents(rdb, time.Hour))
	payload := eventPayload(t, "evt_1", "invoice.payment_failed", "acct_1", failedInvoice("inv_1", 4900))

	first := h.deliver(t, payload)
	require.False(t, first.Duplicate)

	second := h.deliver(t, payload)
	require.True(t, second.Duplicate)
	require.Equal(t, model.WebhookStatusProcessed, second.Status)

	require.Equal(t, 1, h.mailer.count())
	require.Equal(t, 2, loggedEvent(t, h, "evt_1").Deliveries)
}
