package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidSignature     = errors.New("webhook signature verification failed")
	ErrMalformedEvent       = errors.New("malformed webhook event")
	ErrUnlinkedAccount      = errors.New("stripe account is not linked to a user")
	ErrNotFound             = errors.New("not found")
	ErrInvalidTransition    = errors.New("invalid commission status transition")
	ErrAccountAlreadyLinked = errors.New("user already has a linked stripe account")
)

// PendingCommissionsError refuses an account deletion while commissions are still pending.
type PendingCommissionsError struct {
	AmountCents int64
	Count       int
}

func (e *PendingCommissionsError) Error() string {
	return fmt.Sprintf("cannot delete account with pending commissions: $%s across %d commission(s)", FormatAmount(e.AmountCents), e.Count)
}
