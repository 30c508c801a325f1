package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mend/internal/model"
	"mend/internal/repository"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const maxWebhookEventPage = 100

type AccountService interface {
	Link(ctx context.Context, userID, stripeAccountID string) (*model.AccountLink, error)
	// ResolveUser returns the user owning a Stripe account, or ErrUnlinkedAccount.
	ResolveUser(ctx context.Context, stripeAccountID string) (string, error)
	Recoveries(ctx context.Context, userID string) ([]*model.RecoveryAttempt, error)
	WebhookEvents(ctx context.Context, userID string, limit int) ([]*model.WebhookEvent, error)
	// Delete refuses with *PendingCommissionsError while the user owes pending commissions,
	// otherwise soft-deletes the link, its recoveries and the user's settled commissions together.
	Delete(ctx context.Context, userID string) error
}

type accountServiceImpl struct {
	db             *gorm.DB
	linkRepo       repository.AccountLinkRepository
	recoveryRepo   repository.RecoveryRepository
	commissionRepo repository.CommissionRepository
	eventRepo      repository.WebhookEventRepository
	log            *slog.Logger
	now            func() time.Time
}

func NewAccountService(
	db *gorm.DB,
	linkRepo repository.AccountLinkRepository,
	recoveryRepo repository.RecoveryRepository,
	commissionRepo repository.CommissionRepository,
	eventRepo repository.WebhookEventRepository,
	log *slog.Logger,
) AccountService {
	return &accountServiceImpl{
		db:             db,
		linkRepo:       linkRepo,
		recoveryRepo:   recoveryRepo,
		commissionRepo: commissionRepo,
		eventRepo:      eventRepo,
		log:            log,
		now:            time.Now,
	}
}

func (s *accountServiceImpl) Link(ctx context.Context, userID, stripeAccountID string) (*model.AccountLink, error) {
	link := &model.AccountLink{
		ID:              uuid.NewString(),
		UserID:          userID,
		StripeAccountID: stripeAccountID,
	}
	created, err := s.linkRepo.Create(ctx, link)
	if err != nil {
		return nil, fmt.Errorf("link stripe account: %w", err)
	}
	if created {
		s.log.InfoContext(ctx, "stripe account linked", "user_id", userID, "stripe_account_id", stripeAccountID)
		return link, nil
	}

	// Relinking the same pair is a no-op.
	existing, err := s.linkRepo.FindByUser(ctx, userID)
	if err == nil && existing.StripeAccountID == stripeAccountID {
		return existing, nil
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load account link: %w", err)
	}

	return nil, ErrAccountAlreadyLinked
}

func (s *accountServiceImpl) ResolveUser(ctx context.Context, stripeAccountID string) (string, error) {
	link, err := s.linkRepo.FindByStripeAccount(ctx, stripeAccountID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("%w: %s", ErrUnlinkedAccount, stripeAccountID)
	}
	if err != nil {
		return "", fmt.Errorf("resolve account link: %w", err)
	}

	return link.UserID, nil
}

func (s *accountServiceImpl) Recoveries(ctx context.Context, userID string) ([]*model.RecoveryAttempt, error) {
	link, err := s.findLink(ctx, userID)
	if err != nil {
		return nil, err
	}

	return s.recoveryRepo.ListByStripeAccount(ctx, link.StripeAccountID)
}

func (s *accountServiceImpl) WebhookEvents(ctx context.Context, userID string, limit int) ([]*model.WebhookEvent, error) {
	if limit <= 0 || limit > maxWebhookEventPage {
		limit = maxWebhookEventPage
	}

	link, err := s.findLink(ctx, userID)
	if err != nil {
		return nil, err
	}

	return s.eventRepo.ListByStripeAccount(ctx, link.StripeAccountID, limit)
}

func (s *accountServiceImpl) Delete(ctx context.Context, userID string) error {
	total, count, err := s.commissionRepo.PendingTotal(ctx, userID)
	if err != nil {
		return fmt.Errorf("check pending commissions: %w", err)
	}
	if total > 0 {
		return &PendingCommissionsError{AmountCents: total, Count: count}
	}

	link, err := s.linkRepo.FindByUser(ctx, userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("load account link: %w", err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// A commission may have been created since the first check.
		total, count, err := s.commissionRepo.PendingTotalTx(ctx, tx, userID)
		if err != nil {
			return fmt.Errorf("check pending commissions: %w", err)
		}
		if total > 0 {
			return &PendingCommissionsError{AmountCents: total, Count: count}
		}

		if link != nil {
			if err := s.recoveryRepo.SoftDeleteByStripeAccount(ctx, tx, link.StripeAccountID); err != nil {
				return fmt.Errorf("delete recoveries: %w", err)
			}
		}
		if err := s.commissionRepo.SoftDeleteByUser(ctx, tx, userID); err != nil {
			return fmt.Errorf("delete commissions: %w", err)
		}
		if err := s.linkRepo.SoftDeleteByUser(ctx, tx, userID, s.now()); err != nil {
			return fmt.Errorf("delete account link: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.InfoContext(ctx, "account data soft-deleted", "user_id", userID)
	return nil
}

func (s *accountServiceImpl) findLink(ctx context.Context, userID string) (*model.AccountLink, error) {
	link, err := s.linkRepo.FindByUser(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("no stripe account linked for user %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load account link: %w", err)
	}
	return link, nil
}
