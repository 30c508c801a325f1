package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mend/internal/cache"
	"mend/internal/client"
	"mend/internal/config"
	"mend/internal/repository"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"
	"gorm.io/gorm"
)

const testWebhookSecret = "whsec_test_secret"

var testNow = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := client.InitDB(config.Database{
		Driver:          "sqlite",
		URL:             "file:" + uuid.NewString() + "?mode=memory&cache=shared",
		MaxIdleConns:    1,
		MaxOpenConns:    1,
		ConnMaxLifetime: time.Hour,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

type fakeStripe struct {
	mu        sync.Mutex
	customers map[string]*client.StripeCustomer
	err       error
	calls     int
}

func (f *fakeStripe) GetCustomer(_ context.Context, _, customerID string) (*client.StripeCustomer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	c, ok := f.customers[customerID]
	if !ok {
		return nil, errors.New("no such customer: " + customerID)
	}
	return c, nil
}

type fakeGenerator struct {
	mu    sync.Mutex
	text  string
	err   error
	block bool
	calls int
}

func (f *fakeGenerator) Generate(ctx context.Context, _, _ string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.text, f.err
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []*client.Email
	err  error
}

func (f *fakeMailer) Send(_ context.Context, msg *client.Email) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeMailer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type harness struct {
	db          *gorm.DB
	stripe      *fakeStripe
	generator   *fakeGenerator
	mailer      *fakeMailer
	recoveries  repository.RecoveryRepository
	commissions repository.CommissionRepository
	events      repository.WebhookEventRepository
	links       repository.AccountLinkRepository
	accounts    AccountService
	ledger      CommissionService
	webhooks    *webhookServiceImpl
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWithCache(t, cache.NewNoopProcessedEvents())
}

func newHarnessWithCache(t *testing.T, processed cache.ProcessedEvents) *harness {
	t.Helper()

	log := discardLogger()
	h := &harness{
		db:        newTestDB(t),
		stripe:    &fakeStripe{customers: map[string]*client.StripeCustomer{}},
		generator: &fakeGenerator{text: "Hi Alex, your card may have expired."},
		mailer:    &fakeMailer{},
	}
	h.recoveries = repository.NewRecoveryRepository(h.db)
	h.commissions = repository.NewCommissionRepository(h.db)
	h.events = repository.NewWebhookEventRepository(h.db)
	h.links = repository.NewAccountLinkRepository(h.db)
	h.accounts = NewAccountService(h.db, h.links, h.recoveries, h.commissions, h.events, log)
	h.ledger = NewCommissionService(h.commissions)

	verifier := NewStripeVerifier(&config.Stripe{
		WebhookSecret:     testWebhookSecret,
		WebhookTolerance:  5 * time.Minute,
		PlatformAccountID: "acct_default",
	})
	events := NewEventLogger(h.events, log)
	events.now = func() time.Time { return testNow }

	svc := NewWebhookService(
		verifier,
		events,
		NewCustomerResolver(h.stripe, time.Second, log),
		NewMessageComposer(h.generator, time.Second, log),
		NewRecoveryNotifier(h.mailer, "Payment Issue Update", time.Second, log),
		h.accounts,
		h.recoveries,
		h.commissions,
		processed,
		log,
	).(*webhookServiceImpl)
	svc.now = func() time.Time { return testNow }
	h.webhooks = svc

	_, err := h.accounts.Link(context.Background(), "user_1", "acct_1")
	require.NoError(t, err)

	return h
}

type invoiceFixture struct {
	ID            string      `json:"id"`
	Object        string      `json:"object"`
	Customer      interface{} `json:"customer,omitempty"`
	CustomerEmail string      `json:"customer_email,omitempty"`
	CustomerName  string      `json:"customer_name,omitempty"`
	AmountDue     int64       `json:"amount_due"`
	AmountPaid    int64       `json:"amount_paid"`
	Currency      string      `json:"currency"`
}

func eventPayload(t *testing.T, eventID, eventType, account string, object interface{}) []byte {
	t.Helper()

	body := map[string]interface{}{
		"id":     eventID,
		"object": "event",
		"type":   eventType,
		"data":   map[string]interface{}{"object": object},
	}
	if account != "" {
		body["account"] = account
	}

	payload, err := json.Marshal(body)
	require.NoError(t, err)
	return payload
}

func failedInvoice(invoiceID string, amount int64) invoiceFixture {
	return invoiceFixture{
		ID:            invoiceID,
		Object:        "invoice",
		Customer:      "cus_1",
		CustomerEmail: "alex@example.com",
		CustomerName:  "Alex",
		AmountDue:     amount,
		Currency:      "usd",
	}
}

func paidInvoice(invoiceID string, amount int64) invoiceFixture {
	inv := failedInvoice(invoiceID, amount)
	inv.AmountPaid = amount
	return inv
}

func sign(payload []byte, secret string) string {
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: time.Now(),
		Scheme:    "v1",
	})
	return signed.Header
}

func (h *harness) deliver(t *testing.T, payload []byte) *WebhookResult {
	t.Helper()

	res, err := h.webhooks.HandleWebhook(context.Background(), sign(payload, testWebhookSecret), payload)
	require.NoError(t, err)
	return res
}
