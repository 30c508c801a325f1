package repository

import (
	"context"
	"mend/internal/model"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WebhookEventRepository interface {
	// Record stores a delivery. A redelivered provider event id reuses its row and only bumps Deliveries.
	Record(ctx context.Context, event *model.WebhookEvent) (*model.WebhookEvent, error)
	// Finish stamps a terminal status on a row that is still received. It reports false
	// when the row already carries a terminal status.
	Finish(ctx context.Context, id string, status model.WebhookEventStatus, errMsg string, at time.Time) (bool, error)
	ListByStripeAccount(ctx context.Context, stripeAccountID string, limit int) ([]*model.WebhookEvent, error)
}

type webhookEventRepoImpl struct {
	db *gorm.DB
}

func NewWebhookEventRepository(db *gorm.DB) WebhookEventRepository {
	return &webhookEventRepoImpl{db: db}
}

func (r *webhookEventRepoImpl) Record(ctx context.Context, event *model.WebhookEvent) (*model.WebhookEvent, error) {
	if event.ProviderEventID == nil {
		if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
			return nil, err
		}
		return event, nil
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(event)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 1 {
		return event, nil
	}

	err := r.db.WithContext(ctx).
		Model(&model.WebhookEvent{}).
		Where("provider_event_id = ?", *event.ProviderEventID).
		Update("deliveries", gorm.Expr("deliveries + 1")).Error
	if err != nil {
		return nil, err
	}

	var stored model.WebhookEvent
	err = r.db.WithContext(ctx).
		Where("provider_event_id = ?", *event.ProviderEventID).
		First(&stored).Error
	if err != nil {
		return nil, err
	}

	return &stored, nil
}

func (r *webhookEventRepoImpl) Finish(ctx context.Context, id string, status model.WebhookEventStatus, errMsg string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.WebhookEvent{}).
		Where("id = ? AND status = ?", id, model.WebhookStatusReceived).
		Updates(map[string]interface{}{
			"status":        status,
			"error_message": errMsg,
			"processed_at":  at,
		})

	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 1 {
		return true, nil
	}

	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.WebhookEvent{}).
		Where("id = ?", id).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	if count == 0 {
		return false, gorm.ErrRecordNotFound
	}

	return false, nil
}

func (r *webhookEventRepoImpl) ListByStripeAccount(ctx context.Context, stripeAccountID string, limit int) ([]*model.WebhookEvent, error) {
	var events []*model.WebhookEvent
	err := r.db.WithContext(ctx).
		Where("stripe_account_id = ?", stripeAccountID).
		Order("created_at DESC").
		Limit(limit).
		Find(&events).Error

	if err != nil {
		return nil, err
	}

	return events, nil
}
