package repository

import (
	"context"
	"mend/internal/model"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AccountLinkRepository interface {
	Create(ctx context.Context, link *model.AccountLink) (bool, error)
	FindByStripeAccount(ctx context.Context, stripeAccountID string) (*model.AccountLink, error)
	FindByUser(ctx context.Context, userID string) (*model.AccountLink, error)
	SoftDeleteByUser(ctx context.Context, tx *gorm.DB, userID string, at time.Time) error
}

type accountLinkRepoImpl struct {
	db *gorm.DB
}

func NewAccountLinkRepository(db *gorm.DB) AccountLinkRepository {
	return &accountLinkRepoImpl{
		db: db,
	}
}

func (r *accountLinkRepoImpl) Create(ctx context.Context, link *model.AccountLink) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(link)

	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected == 1, nil
}

func (r *accountLinkRepoImpl) FindByStripeAccount(ctx context.Context, stripeAccountID string) (*model.AccountLink, error) {
	var link model.AccountLink
	err := r.db.WithContext(ctx).
		Where("stripe_account_id = ?", stripeAccountID).
		First(&link).Error

	if err != nil {
		return nil, err
	}

	return &link, nil
}

func (r *accountLinkRepoImpl) FindByUser(ctx context.Context, userID string) (*model.AccountLink, error) {
	var link model.AccountLink
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&link).Error

	if err != nil {
		return nil, err
	}

	return &link, nil
}

func (r *accountLinkRepoImpl) SoftDeleteByUser(ctx context.Context, tx *gorm.DB, userID string, at time.Time) error {
	err := tx.WithContext(ctx).
		Model(&model.AccountLink{}).
		Where("user_id = ?", userID).
		Update("delete_requested_at", at).Error
	if err != nil {
		return err
	}

	return tx.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&model.AccountLink{}).Error
}
