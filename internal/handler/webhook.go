package handler

import (
	"errors"
	"io"
	"mend/internal/config"
	"mend/internal/dto"
	"mend/internal/service"
	"net/http"

	"github.com/labstack/echo/v4"
)

const maxWebhookBody = 1 << 20

type WebhookHandler struct {
	webhookService service.WebhookService
	stripeCfg      *config.Stripe
}

func NewWebhookHandler(webhookService service.WebhookService, stripeCfg *config.Stripe) *WebhookHandler {
	return &WebhookHandler{
		webhookService: webhookService,
		stripeCfg:      stripeCfg,
	}
}

// StripeWebhook must see the body exactly as sent; the signature covers the raw bytes.
func (h *WebhookHandler) StripeWebhook(c echo.Context) error {
	ctx := c.Request().Context()

	body, err := io.ReadAll(http.MaxBytesReader(c.Response(), c.Request().Body, maxWebhookBody))
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Could not read request body"})
	}

	res, err := h.webhookService.HandleWebhook(ctx, c.Request().Header.Get("Stripe-Signature"), body)
	switch {
	case errors.Is(err, service.ErrInvalidSignature):
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid signature"})
	case errors.Is(err, service.ErrMalformedEvent):
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Malformed event", Details: err.Error()})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Webhook handler failed", Details: err.Error()})
	}

	return c.JSON(http.StatusOK, dto.WebhookAck{
		Received:  true,
		Duplicate: res.Duplicate,
		Warning:   res.Warning,
	})
}

func (h *WebhookHandler) StripeWebhookStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":             "Webhook endpoint is active",
		"has_stripe_key":     h.stripeCfg.SecretKey != "",
		"has_webhook_secret": h.stripeCfg.WebhookSecret != "",
	})
}
