package model

// Event is a verified Stripe event, narrowed to the variants the pipeline reacts to.
// Only types in this package implement it.
type Event interface {
	EventID() string
	Account() string
	ProviderType() string
	Kind() WebhookEventType
	isEvent()
}

// Invoice holds the invoice fields Mend reads from invoice.* events.
type Invoice struct {
	ID            string
	CustomerID    string
	CustomerEmail string
	CustomerName  string
	AmountDue     int64
	AmountPaid    int64
	Currency      string
}

type envelope struct {
	ID            string
	StripeAccount string
	Type          string
}

func (e envelope) EventID() string      { return e.ID }
func (e envelope) Account() string      { return e.StripeAccount }
func (e envelope) ProviderType() string { return e.Type }

type PaymentFailedEvent struct {
	envelope
	Invoice Invoice
}

func (PaymentFailedEvent) Kind() WebhookEventType { return WebhookEventPaymentFailed }
func (PaymentFailedEvent) isEvent()               {}

type PaymentSucceededEvent struct {
	envelope
	Invoice Invoice
}

func (PaymentSucceededEvent) Kind() WebhookEventType { return WebhookEventPaymentSucceeded }
func (PaymentSucceededEvent) isEvent()               {}

// RecoveredAmount is what the customer actually paid, falling back to the amount due.
func (e PaymentSucceededEvent) RecoveredAmount() int64 {
	if e.Invoice.AmountPaid > 0 {
		return e.Invoice.AmountPaid
	}
	return e.Invoice.AmountDue
}

// IgnoredEvent is any verified event type the pipeline acknowledges without acting on.
type IgnoredEvent struct {
	envelope
}

func (IgnoredEvent) Kind() WebhookEventType { return WebhookEventOther }
func (IgnoredEvent) isEvent()               {}

func NewPaymentFailedEvent(id, account, eventType string, inv Invoice) PaymentFailedEvent {
	return PaymentFailedEvent{envelope: envelope{ID: id, StripeAccount: account, Type: eventType}, Invoice: inv}
}

func NewPaymentSucceededEvent(id, account, eventType string, inv Invoice) PaymentSucceededEvent {
	return PaymentSucceededEvent{envelope: envelope{ID: id, StripeAccount: account, Type: eventType}, Invoice: inv}
}

func NewIgnoredEvent(id, account, eventType string) IgnoredEvent {
	return IgnoredEvent{envelope: envelope{ID: id, StripeAccount: account, Type: eventType}}
}
