package client

import (
	"context"
	"fmt"
	"mend/internal/config"

	"github.com/stripe/stripe-go/v82"
	stripeclient "github.com/stripe/stripe-go/v82/client"
)

type StripeClient interface {
	// GetCustomer fetches a customer, acting as the connected account when accountID is not the platform.
	GetCustomer(ctx context.Context, accountID, customerID string) (*StripeCustomer, error)
}

type StripeCustomer struct {
	ID    string
	Email string
	Name  string
}

type stripeClientImpl struct {
	api               *stripeclient.API
	platformAccountID string
}

func NewStripeClient(cfg *config.Stripe) StripeClient {
	return &stripeClientImpl{
		api:               stripeclient.New(cfg.SecretKey, nil),
		platformAccountID: cfg.PlatformAccountID,
	}
}

func (c *stripeClientImpl) GetCustomer(ctx context.Context, accountID, customerID string) (*StripeCustomer, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	if accountID != "" && accountID != c.platformAccountID {
		params.SetStripeAccount(accountID)
	}

	cust, err := c.api.Customers.Get(customerID, params)
	if err != nil {
		return nil, fmt.Errorf("stripe get customer %s: %w", customerID, err)
	}
	if cust.Deleted {
		return nil, fmt.Errorf("stripe customer %s is deleted", customerID)
	}

	return &StripeCustomer{
		ID:    cust.ID,
		Email: cust.Email,
		Name:  cust.Name,
	}, nil
}
