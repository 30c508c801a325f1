package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mend/internal/client"
	"mend/internal/model"
	"strings"
	"time"
)

const defaultCustomerName = "there"

var placeholderEmails = map[string]bool{
	"unknown":             true,
	"unknown@example.com": true,
}

type Customer struct {
	Email string
	Name  string
}

// CustomerResolver finds who to email about a failed invoice.
type CustomerResolver struct {
	stripe  client.StripeClient
	timeout time.Duration
	log     *slog.Logger
}

func NewCustomerResolver(stripe client.StripeClient, timeout time.Duration, log *slog.Logger) *CustomerResolver {
	return &CustomerResolver{
		stripe:  stripe,
		timeout: timeout,
		log:     log,
	}
}

// Resolve prefers the email embedded in the invoice and falls back to a Stripe lookup.
// A failed lookup degrades to an empty email instead of failing.
func (r *CustomerResolver) Resolve(ctx context.Context, account string, inv model.Invoice) (Customer, StepResult) {
	const step = "resolve_customer"

	customer := Customer{
		Email: strings.TrimSpace(inv.CustomerEmail),
		Name:  strings.TrimSpace(inv.CustomerName),
	}
	if customer.Name == "" {
		customer.Name = defaultCustomerName
	}

	if usableEmail(customer.Email) {
		return customer, stepOK(step)
	}
	customer.Email = ""

	if inv.CustomerID == "" {
		return customer, stepDegraded(step, errors.New("invoice has no customer email or customer id"))
	}

	lookupCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		lookupCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	found, err := r.stripe.GetCustomer(lookupCtx, account, inv.CustomerID)
	if err != nil {
		r.log.WarnContext(ctx, "failed to fetch customer details", "customer_id", inv.CustomerID, "account", account, "err", err)
		return customer, stepDegraded(step, fmt.Errorf("customer lookup: %w", err))
	}

	if found.Name != "" && customer.Name == defaultCustomerName {
		customer.Name = found.Name
	}
	if !usableEmail(found.Email) {
		return customer, stepDegraded(step, fmt.Errorf("customer %s has no email", inv.CustomerID))
	}
	customer.Email = found.Email

	return customer, stepOK(step)
}

func usableEmail(email string) bool {
	return email != "" && !placeholderEmails[strings.ToLower(email)]
}
