package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const processedKeyPrefix = "mend:webhook:processed:"

// ProcessedEvents remembers provider event ids whose processing already finished.
// It is a shortcut for redeliveries only; ledger uniqueness stays the guarantee.
type ProcessedEvents interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Remember(ctx context.Context, eventID string) error
}

type redisProcessedEvents struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisProcessedEvents(client *redis.Client, ttl time.Duration) ProcessedEvents {
	return &redisProcessedEvents{
		client: client,
		ttl:    ttl,
	}
}

func (r *redisProcessedEvents) Seen(ctx context.Context, eventID string) (bool, error) {
	n, err := r.client.Exists(ctx, processedKeyPrefix+eventID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *redisProcessedEvents) Remember(ctx context.Context, eventID string) error {
	return r.client.SetNX(ctx, processedKeyPrefix+eventID, time.Now().Unix(), r.ttl).Err()
}

type noopProcessedEvents struct{}

// NewNoopProcessedEvents is used when no redis is configured.
func NewNoopProcessedEvents() ProcessedEvents {
	return noopProcessedEvents{}
}

func (noopProcessedEvents) Seen(context.Context, string) (bool, error) { return false, nil }
func (noopProcessedEvents) Remember(context.Context, string) error     { return nil }
