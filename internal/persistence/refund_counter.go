package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const refundCounterTTL = 48 * time.Hour

// RefundCounter tracks per-actor auto-approved refund counts in Redis,
// keyed by UTC calendar day.
type RefundCounter struct {
	client *redis.Client
}

// NewRefundCounter creates a Redis-backed refund counter.
func NewRefundCounter(client *redis.Client) *RefundCounter {
	return &RefundCounter{client: client}
}

func (c *RefundCounter) key(actorID string) string {
	return fmt.Sprintf("refund:approved:%s:%s", actorID, time.Now().UTC().Format("2006-01-02"))
}

// CountToday returns how many refunds were auto-approved for the actor today.
func (c *RefundCounter) CountToday(ctx context.Context, actorID string) (int, error) {
	val, err := c.client.Get(ctx, c.key(actorID)).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return val, nil
}

// Increment records one more auto-approved refund for the actor today. The key
// expires after the day it counts has passed.
func (c *RefundCounter) Increment(ctx context.Context, actorID string) error {
	key := c.key(actorID)
	pipe := c.client.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, refundCounterTTL)
	_, err := pipe.Exec(ctx)
	return err
}
