package service

import (
	"encoding/json"
	"fmt"
	"mend/internal/config"
	"mend/internal/model"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

const (
	stripeEventInvoicePaymentFailed = "invoice.payment_failed"
	stripeEventInvoicePaid          = "invoice.paid"
)

type EventVerifier interface {
	// Verify checks the signature over the raw body and decodes the event.
	Verify(payload []byte, signature string) (model.Event, error)
}

type stripeVerifier struct {
	secret            string
	tolerance         time.Duration
	platformAccountID string
}

func NewStripeVerifier(cfg *config.Stripe) EventVerifier {
	tolerance := cfg.WebhookTolerance
	if tolerance <= 0 {
		tolerance = webhook.DefaultTolerance
	}

	return &stripeVerifier{
		secret:            cfg.WebhookSecret,
		tolerance:         tolerance,
		platformAccountID: cfg.PlatformAccountID,
	}
}

func (v *stripeVerifier) Verify(payload []byte, signature string) (model.Event, error) {
	if signature == "" {
		return nil, fmt.Errorf("%w: missing Stripe-Signature header", ErrInvalidSignature)
	}
	if v.secret == "" {
		return nil, fmt.Errorf("%w: webhook secret not configured", ErrInvalidSignature)
	}

	if err := webhook.ValidatePayloadWithTolerance(payload, signature, v.secret, v.tolerance); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	return v.decode(&event)
}

func (v *stripeVerifier) decode(event *stripe.Event) (model.Event, error) {
	if event.ID == "" {
		return nil, fmt.Errorf("%w: missing event id", ErrMalformedEvent)
	}

	account := event.Account
	if account == "" {
		account = v.platformAccountID
	}
	eventType := string(event.Type)

	switch eventType {
	case stripeEventInvoicePaymentFailed:
		inv, err := decodeInvoice(event)
		if err != nil {
			return nil, err
		}
		return model.NewPaymentFailedEvent(event.ID, account, eventType, inv), nil

	case stripeEventInvoicePaid:
		inv, err := decodeInvoice(event)
		if err != nil {
			return nil, err
		}
		return model.NewPaymentSucceededEvent(event.ID, account, eventType, inv), nil
	}

	return model.NewIgnoredEvent(event.ID, account, eventType), nil
}

func decodeInvoice(event *stripe.Event) (model.Invoice, error) {
	if event.Data == nil || len(event.Data.Raw) == 0 {
		return model.Invoice{}, fmt.Errorf("%w: %s has no data.object", ErrMalformedEvent, event.Type)
	}

	var inv stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
		return model.Invoice{}, fmt.Errorf("%w: decode invoice: %v", ErrMalformedEvent, err)
	}
	if inv.ID == "" {
		return model.Invoice{}, fmt.Errorf("%w: invoice id missing", ErrMalformedEvent)
	}

	out := model.Invoice{
		ID:            inv.ID,
		CustomerEmail: inv.CustomerEmail,
		CustomerName:  inv.CustomerName,
		AmountDue:     inv.AmountDue,
		AmountPaid:    inv.AmountPaid,
		Currency:      strings.ToUpper(string(inv.Currency)),
	}

	// customer is either an id string or an expanded object
	if inv.Customer != nil {
		out.CustomerID = inv.Customer.ID
		if out.CustomerEmail == "" {
			out.CustomerEmail = inv.Customer.Email
		}
		if out.CustomerName == "" {
			out.CustomerName = inv.Customer.Name
		}
	}

	return out, nil
}
