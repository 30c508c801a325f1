package repository

import (
	"context"
	"mend/internal/model"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RecoveryRepository interface {
	// RecordAttempt inserts the attempt unless one already exists for its (account, invoice) pair.
	RecordAttempt(ctx context.Context, attempt *model.RecoveryAttempt) (bool, error)
	MarkRecovered(ctx context.Context, stripeAccountID, invoiceID string, at time.Time) (*model.RecoveryAttempt, error)
	FindByInvoice(ctx context.Context, stripeAccountID, invoiceID string) (*model.RecoveryAttempt, error)
	ListByStripeAccount(ctx context.Context, stripeAccountID string) ([]*model.RecoveryAttempt, error)
	SoftDeleteByStripeAccount(ctx context.Context, tx *gorm.DB, stripeAccountID string) error
}

type recoveryRepoImpl struct {
	db *gorm.DB
}

func NewRecoveryRepository(db *gorm.DB) RecoveryRepository {
	return &recoveryRepoImpl{
		db: db,
	}
}

func (r *recoveryRepoImpl) RecordAttempt(ctx context.Context, attempt *model.RecoveryAttempt) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(attempt)

	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected == 1, nil
}

func (r *recoveryRepoImpl) MarkRecovered(ctx context.Context, stripeAccountID, invoiceID string, at time.Time) (*model.RecoveryAttempt, error) {
	var attempt model.RecoveryAttempt
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.RecoveryAttempt{}).
			Where(`
				stripe_account_id = ?
				AND stripe_invoice_id = ?
				AND status IN ?
			`,
				stripeAccountID,
				invoiceID,
				[]model.RecoveryStatus{model.RecoveryStatusPending, model.RecoveryStatusEmailSent},
			).
			Updates(map[string]interface{}{
				"status":       model.RecoveryStatusRecovered,
				"recovered_at": at,
			})

		if result.Error != nil {
			return result.Error
		}

		// Fetch within the same transaction; an already-recovered row is a redelivery
		err := tx.Where("stripe_account_id = ? AND stripe_invoice_id = ?", stripeAccountID, invoiceID).
			First(&attempt).Error
		if err != nil {
			return err
		}
		if attempt.Status != model.RecoveryStatusRecovered {
			return gorm.ErrRecordNotFound
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return &attempt, nil
}

func (r *recoveryRepoImpl) FindByInvoice(ctx context.Context, stripeAccountID, invoiceID string) (*model.RecoveryAttempt, error) {
	var attempt model.RecoveryAttempt
	err := r.db.WithContext(ctx).
		Where("stripe_account_id = ? AND stripe_invoice_id = ?", stripeAccountID, invoiceID).
		First(&attempt).Error

	if err != nil {
		return nil, err
	}

	return &attempt, nil
}

func (r *recoveryRepoImpl) ListByStripeAccount(ctx context.Context, stripeAccountID string) ([]*model.RecoveryAttempt, error) {
	var attempts []*model.RecoveryAttempt
	err := r.db.WithContext(ctx).
		Where("stripe_account_id = ?", stripeAccountID).
		Order("created_at DESC").
		Find(&attempts).Error

	if err != nil {
		return nil, err
	}

	return attempts, nil
}

func (r *recoveryRepoImpl) SoftDeleteByStripeAccount(ctx context.Context, tx *gorm.DB, stripeAccountID string) error {
	return tx.WithContext(ctx).
		Where("stripe_account_id = ?", stripeAccountID).
		Delete(&model.RecoveryAttempt{}).Error
}
