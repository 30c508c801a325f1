package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mend/internal/client"
	"mend/internal/config"
	"mend/internal/dto"
	"mend/internal/repository"
	"mend/internal/service"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"
)

const (
	testJWTSecret     = "jwt-test-secret"
	testWebhookSecret = "whsec_test"
)

type noCustomers struct{}

func (noCustomers) GetCustomer(context.Context, string, string) (*client.StripeCustomer, error) {
	return nil, io.EOF
}

type testServer struct {
	handler     http.Handler
	commissions repository.CommissionRepository
	recoveries  repository.RecoveryRepository
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := &config.Config{
		Database: config.Database{
			Driver:          "sqlite",
			URL:             "file:" + uuid.NewString() + "?mode=memory&cache=shared",
			MaxIdleConns:    1,
			MaxOpenConns:    1,
			ConnMaxLifetime: time.Hour,
		},
		Stripe: config.Stripe{
			SecretKey:         "sk_test",
			WebhookSecret:     testWebhookSecret,
			WebhookTolerance:  5 * time.Minute,
			PlatformAccountID: "acct_default",
		},
		Email: config.Email{Provider: "log", Subject: "Payment Issue Update"},
		Auth:  config.Auth{JWTSecret: testJWTSecret},
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := client.InitDB(cfg.Database)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	recoveryRepo := repository.NewRecoveryRepository(db)
	commissionRepo := repository.NewCommissionRepository(db)
	eventRepo := repository.NewWebhookEventRepository(db)
	linkRepo := repository.NewAccountLinkRepository(db)

	accountService := service.NewAccountService(db, linkRepo, recoveryRepo, commissionRepo, eventRepo, log)
	commissionService := service.NewCommissionService(commissionRepo)
	webhookService := service.NewWebhookService(
		service.NewStripeVerifier(&cfg.Stripe),
		service.NewEventLogger(eventRepo, log),
		service.NewCustomerResolver(noCustomers{}, time.Second, log),
		service.NewMessageComposer(nil, time.Second, log),
		service.NewRecoveryNotifier(client.NewMailer(cfg, log), cfg.Email.Subject, time.Second, log),
		accountService,
		recoveryRepo,
		commissionRepo,
		nil,
		log,
	)

	srv := NewServer(cfg, log, webhookService, commissionService, accountService)
	return &testServer{
		handler:     srv.Handler(),
		commissions: commissionRepo,
		recoveries:  recoveryRepo,
	}
}

func token(t *testing.T, sub, role string) string {
	t.Helper()

	claims := jwt.MapClaims{
		"sub": sub,
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	if role != "" {
		claims["role"] = role
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return signed
}

func (s *testServer) do(t *testing.T, method, path, bearer string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) deliver(t *testing.T, eventID, eventType string, invoice map[string]interface{}) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(map[string]interface{}{
		"id":      eventID,
		"object":  "event",
		"type":    eventType,
		"account": "acct_1",
		"data":    map[string]interface{}{"object": invoice},
	})
	require.NoError(t, err)

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    testWebhookSecret,
		Timestamp: time.Now(),
		Scheme:    "v1",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", signed.Header)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func invoice(amountPaid int64) map[string]interface{} {
	return map[string]interface{}{
		"id":             "inv_1",
		"object":         "invoice",
		"customer":       "cus_1",
		"customer_email": "alex@example.com",
		"customer_name":  "Alex",
		"amount_due":     4900,
		"amount_paid":    amountPaid,
		"currency":       "usd",
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestWebhookRejectsUnsignedDelivery(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", bytes.NewReader([]byte(`{"id":"evt_1"}`)))
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthGuards(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/admin/commissions", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/admin/commissions", "not-a-jwt", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/admin/commissions", token(t, "user_1", ""), nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/users/user_1/recoveries", token(t, "user_2", ""), nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRecoveryCommissionAndDeletionFlow(t *testing.T) {
	s := newTestServer(t)
	admin := token(t, "ops", "admin")
	user := token(t, "user_1", "")

	rec := s.do(t, http.MethodPost, "/api/accounts/link", user, dto.LinkAccountRequest{UserID: "user_1", StripeAccountID: "acct_1"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/accounts/link", user, dto.LinkAccountRequest{UserID: "user_1", StripeAccountID: "cus_1"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.deliver(t, "evt_fail", "invoice.payment_failed", invoice(0))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"received":true}`, rec.Body.String())

	rec = s.deliver(t, "evt_paid", "invoice.paid", invoice(4900))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/users/user_1/recoveries", user, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var recoveries dto.RecoveryListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &recoveries))
	require.Equal(t, 1, recoveries.TotalCount)
	require.Equal(t, 1, recoveries.RecoveredCount)
	require.Equal(t, "49.00", recoveries.RecoveredTotal)

	rec = s.do(t, http.MethodGet, "/api/users/user_1/webhook-events", user, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/admin/commissions?group_by=user", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list dto.CommissionListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Commissions, 1)
	require.Equal(t, "4.90", list.Stats.TotalOwed)
	require.Equal(t, 1, list.Stats.PendingCount)
	require.Len(t, list.Groups, 1)
	commissionID := list.Commissions[0].ID

	rec = s.do(t, http.MethodPost, "/api/account/delete", user, dto.DeleteAccountRequest{UserID: "user_1"})
	require.Equal(t, http.StatusConflict, rec.Code)
	var refusal dto.DeleteAccountRefusal
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &refusal))
	require.Equal(t, "4.90", refusal.PendingAmount)
	require.Equal(t, int64(490), refusal.PendingAmountCents)
	require.Equal(t, 1, refusal.CommissionCount)

	rec = s.do(t, http.MethodPost, "/api/admin/commissions/mark-paid", admin, dto.CommissionActionRequest{CommissionID: commissionID, UserID: "user_1"})
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/admin/commissions/mark-invoiced", admin, dto.CommissionActionRequest{CommissionID: commissionID, UserID: "user_2"})
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/admin/commissions/mark-invoiced", admin, dto.CommissionActionRequest{UserID: "user_1"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/admin/commissions/mark-invoiced", admin, dto.CommissionActionRequest{CommissionID: commissionID, UserID: "user_1"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/admin/commissions/mark-paid", admin, dto.CommissionActionRequest{CommissionID: commissionID, UserID: "user_1"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/account/delete", user, dto.DeleteAccountRequest{UserID: "user_1"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/users/user_1/recoveries", user, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
