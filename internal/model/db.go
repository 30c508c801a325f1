package model

import (
	"time"

	"gorm.io/gorm"
)

type WebhookEventType string

const (
	WebhookEventPaymentFailed    WebhookEventType = "payment_failed"
	WebhookEventPaymentSucceeded WebhookEventType = "payment_succeeded"
	WebhookEventOther            WebhookEventType = "other"
	WebhookEventSignatureFailed  WebhookEventType = "signature_failed"
)

type WebhookEventStatus string

const (
	WebhookStatusReceived  WebhookEventStatus = "received"
	WebhookStatusProcessed WebhookEventStatus = "processed"
	WebhookStatusPartial   WebhookEventStatus = "partial"
	WebhookStatusFailed    WebhookEventStatus = "failed"
)

type RecoveryStatus string

const (
	RecoveryStatusPending   RecoveryStatus = "pending"
	RecoveryStatusEmailSent RecoveryStatus = "email_sent"
	RecoveryStatusRecovered RecoveryStatus = "recovered"
)

type CommissionStatus string

const (
	CommissionStatusPending  CommissionStatus = "pending"
	CommissionStatusInvoiced CommissionStatus = "invoiced"
	CommissionStatusPaid     CommissionStatus = "paid"
)

// WebhookEvent is the audit row for one inbound provider event. Rows are never deleted.
type WebhookEvent struct {
	ID                string             `gorm:"primaryKey;size:36"`
	ProviderEventID   *string            `gorm:"size:128;uniqueIndex"` // NULL when verification failed
	EventType         WebhookEventType   `gorm:"size:32;index;not null"`
	ProviderEventType string             `gorm:"size:64"`
	StripeAccountID   string             `gorm:"size:64;index"`
	Payload           string             `gorm:"type:text"`
	Status            WebhookEventStatus `gorm:"size:16;index;not null"`
	ErrorMessage      string             `gorm:"type:text"`
	Deliveries        int                `gorm:"not null;default:1"`
	CreatedAt         time.Time
	ProcessedAt       *time.Time
}

type RecoveryAttempt struct {
	ID               string         `gorm:"primaryKey;size:36"`
	StripeInvoiceID  string         `gorm:"size:128;uniqueIndex:idx_recovery_account_invoice;not null"`
	StripeAccountID  string         `gorm:"size:64;uniqueIndex:idx_recovery_account_invoice;not null"`
	StripeCustomerID string         `gorm:"size:128;index"`
	AmountDue        int64          `gorm:"not null"` // minor units
	Currency         string         `gorm:"size:8"`
	CustomerEmail    string         `gorm:"size:255"`
	CustomerName     string         `gorm:"size:255"`
	MessageSent      string         `gorm:"type:text"`
	Status           RecoveryStatus `gorm:"size:16;index;not null"`
	CreatedAt        time.Time
	RecoveredAt      *time.Time
	DeletedAt        gorm.DeletedAt `gorm:"index"`
}

type Commission struct {
	ID                   string           `gorm:"primaryKey;size:36"`
	UserID               string           `gorm:"size:64;index;not null"`
	StripeAccountID      string           `gorm:"size:64;index;not null"`
	RecoveryID           string           `gorm:"size:36;uniqueIndex;not null"`
	AmountRecovered      int64            `gorm:"not null"`
	CommissionPercentage int              `gorm:"not null"`
	CommissionAmount     int64            `gorm:"not null"`
	PeriodStart          time.Time        `gorm:"type:date"`
	PeriodEnd            time.Time        `gorm:"type:date"`
	Status               CommissionStatus `gorm:"size:16;index;not null"`
	InvoiceSentAt        *time.Time
	PaidAt               *time.Time
	CreatedAt            time.Time
	DeletedAt            gorm.DeletedAt `gorm:"index"`
}

// AccountLink maps an internal user to a connected Stripe account.
type AccountLink struct {
	ID                string `gorm:"primaryKey;size:36"`
	UserID            string `gorm:"size:64;uniqueIndex;not null"`
	StripeAccountID   string `gorm:"size:64;uniqueIndex;not null"`
	CreatedAt         time.Time
	DeleteRequestedAt *time.Time
	DeletedAt         gorm.DeletedAt `gorm:"index"`
}

// All lists every table the service owns, in migration order.
func All() []interface{} {
	return []interface{}{
		&WebhookEvent{},
		&AccountLink{},
		&RecoveryAttempt{},
		&Commission{},
	}
}
