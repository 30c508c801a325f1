package repository

import (
	"context"
	"mend/internal/model"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CommissionFilter struct {
	UserID string
	Status model.CommissionStatus
}

type CommissionRepository interface {
	// Create inserts the commission unless one already exists for its recovery attempt.
	Create(ctx context.Context, commission *model.Commission) (bool, error)
	FindByRecoveryID(ctx context.Context, recoveryID string) (*model.Commission, error)
	Get(ctx context.Context, id, userID string) (*model.Commission, error)
	// Transition moves a commission from one status to the next in a single conditional update.
	Transition(ctx context.Context, id, userID string, from, to model.CommissionStatus, at time.Time) (bool, error)
	List(ctx context.Context, filter CommissionFilter) ([]*model.Commission, error)
	PendingTotal(ctx context.Context, userID string) (int64, int, error)
	PendingTotalTx(ctx context.Context, tx *gorm.DB, userID string) (int64, int, error)
	// SoftDeleteByUser soft-deletes the user's invoiced and paid commissions. Pending ones are never touched.
	SoftDeleteByUser(ctx context.Context, tx *gorm.DB, userID string) error
}

type commissionRepoImpl struct {
	db *gorm.DB
}

func NewCommissionRepository(db *gorm.DB) CommissionRepository {
	return &commissionRepoImpl{
		db: db,
	}
}

func (r *commissionRepoImpl) Create(ctx context.Context, commission *model.Commission) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(commission)

	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected == 1, nil
}

func (r *commissionRepoImpl) FindByRecoveryID(ctx context.Context, recoveryID string) (*model.Commission, error) {
	var commission model.Commission
	err := r.db.WithContext(ctx).
		Where("recovery_id = ?", recoveryID).
		First(&commission).Error

	if err != nil {
		return nil, err
	}

	return &commission, nil
}

func (r *commissionRepoImpl) Get(ctx context.Context, id, userID string) (*model.Commission, error) {
	var commission model.Commission
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&commission).Error

	if err != nil {
		return nil, err
	}

	return &commission, nil
}

func (r *commissionRepoImpl) Transition(ctx context.Context, id, userID string, from, to model.CommissionStatus, at time.Time) (bool, error) {
	updates := map[string]interface{}{
		"status": to,
	}
	switch to {
	case model.CommissionStatusInvoiced:
		updates["invoice_sent_at"] = at
	case model.CommissionStatusPaid:
		updates["paid_at"] = at
	}

	result := r.db.WithContext(ctx).
		Model(&model.Commission{}).
		Where("id = ? AND user_id = ? AND status = ?", id, userID, from).
		Updates(updates)

	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected == 1, nil
}

func (r *commissionRepoImpl) List(ctx context.Context, filter CommissionFilter) ([]*model.Commission, error) {
	query := r.db.WithContext(ctx).Model(&model.Commission{})
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var commissions []*model.Commission
	err := query.Order("created_at DESC").Find(&commissions).Error
	if err != nil {
		return nil, err
	}

	return commissions, nil
}

func (r *commissionRepoImpl) PendingTotal(ctx context.Context, userID string) (int64, int, error) {
	return r.PendingTotalTx(ctx, r.db, userID)
}

func (r *commissionRepoImpl) PendingTotalTx(ctx context.Context, tx *gorm.DB, userID string) (int64, int, error) {
	var row struct {
		Total int64
		Count int
	}
	err := tx.WithContext(ctx).
		Model(&model.Commission{}).
		Select("COALESCE(SUM(commission_amount), 0) AS total, COUNT(*) AS count").
		Where("user_id = ? AND status = ?", userID, model.CommissionStatusPending).
		Scan(&row).Error

	if err != nil {
		return 0, 0, err
	}

	return row.Total, row.Count, nil
}

func (r *commissionRepoImpl) SoftDeleteByUser(ctx context.Context, tx *gorm.DB, userID string) error {
	return tx.WithContext(ctx).
		Where("user_id = ? AND status <> ?", userID, model.CommissionStatusPending).
		Delete(&model.Commission{}).Error
}
