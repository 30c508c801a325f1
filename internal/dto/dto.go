package dto

type WebhookAck struct {
	Received  bool   `json:"received"`
	Duplicate bool   `json:"duplicate,omitempty"`
	Warning   string `json:"warning,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type CommissionActionRequest struct {
	CommissionID string `json:"commission_id" validate:"required"`
	UserID       string `json:"user_id" validate:"required"`
}

type CommissionActionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type Commission struct {
	ID               string  `json:"id"`
	UserID           string  `json:"user_id"`
	StripeAccountID  string  `json:"stripe_account_id"`
	RecoveryID       string  `json:"recovery_id"`
	AmountRecovered  int64   `json:"amount_recovered"`
	CommissionAmount int64   `json:"commission_amount"`
	CommissionDollar string  `json:"commission_amount_decimal"`
	Status           string  `json:"status"`
	PeriodStart      string  `json:"period_start"`
	PeriodEnd        string  `json:"period_end"`
	CreatedAt        string  `json:"created_at"`
	InvoiceSentAt    *string `json:"invoice_sent_at"`
	PaidAt           *string `json:"paid_at"`
}

type CommissionStats struct {
	TotalOwed      string `json:"total_owed"`
	TotalOwedCents int64  `json:"total_owed_cents"`
	PendingCount   int    `json:"pending_count"`
	InvoicedCount  int    `json:"invoiced_count"`
	PaidCount      int    `json:"paid_count"`
}

type UserCommissions struct {
	UserID         string       `json:"user_id"`
	TotalOwed      string       `json:"total_owed"`
	TotalOwedCents int64        `json:"total_owed_cents"`
	Commissions    []Commission `json:"commissions"`
}

type CommissionListResponse struct {
	Success     bool              `json:"success"`
	Commissions []Commission      `json:"commissions"`
	Groups      []UserCommissions `json:"groups,omitempty"`
	Stats       CommissionStats   `json:"stats"`
}

type LinkAccountRequest struct {
	UserID          string `json:"user_id" validate:"required"`
	StripeAccountID string `json:"stripe_account_id" validate:"required,startswith=acct_"`
}

type DeleteAccountRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

type DeleteAccountRefusal struct {
	Error              string `json:"error"`
	PendingAmount      string `json:"pending_amount"`
	PendingAmountCents int64  `json:"pending_amount_cents"`
	CommissionCount    int    `json:"commission_count"`
	Message            string `json:"message"`
}

type DeleteAccountResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	UserID  string `json:"user_id"`
}

type Recovery struct {
	ID              string  `json:"id"`
	StripeInvoiceID string  `json:"stripe_invoice_id"`
	CustomerEmail   string  `json:"customer_email"`
	CustomerName    string  `json:"customer_name"`
	AmountDue       int64   `json:"amount_due"`
	Currency        string  `json:"currency"`
	Status          string  `json:"status"`
	CreatedAt       string  `json:"created_at"`
	RecoveredAt     *string `json:"recovered_at"`
}

type RecoveryListResponse struct {
	Recoveries     []Recovery `json:"recoveries"`
	TotalCount     int        `json:"total_count"`
	RecoveredCount int        `json:"recovered_count"`
	RecoveredTotal string     `json:"recovered_total"`
}

type WebhookEvent struct {
	ID                string  `json:"id"`
	ProviderEventID   string  `json:"stripe_event_id"`
	EventType         string  `json:"event_type"`
	ProviderEventType string  `json:"provider_event_type"`
	Status            string  `json:"status"`
	ErrorMessage      string  `json:"error_message,omitempty"`
	Deliveries        int     `json:"deliveries"`
	CreatedAt         string  `json:"created_at"`
	ProcessedAt       *string `json:"processed_at"`
}
