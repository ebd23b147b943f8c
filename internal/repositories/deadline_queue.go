package repositories

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const deadlineKey = "exchange:deadlines"

// DeadlineQueue keeps exchange deadlines in a Redis sorted set so they
// survive restarts and can be swept by any instance.
type DeadlineQueue struct {
	rdb *redis.Client
	key string
}

// NewDeadlineQueue creates a queue on rdb.
func NewDeadlineQueue(rdb *redis.Client) *DeadlineQueue {
	return &DeadlineQueue{rdb: rdb, key: deadlineKey}
}

// Schedule records the deadline of matchID, replacing an older one.
func (q *DeadlineQueue) Schedule(ctx context.Context, matchID string, deadline time.Time) error {
	return q.rdb.ZAdd(ctx, q.key, redis.Z{Score: deadlineScore(deadline), Member: matchID}).Err()
}

// Cancel forgets the deadline of matchID.
func (q *DeadlineQueue) Cancel(ctx context.Context, matchID string) error {
	return q.rdb.ZRem(ctx, q.key, matchID).Err()
}

// Due returns the matches whose deadline is before now.
func (q *DeadlineQueue) Due(ctx context.Context, now time.Time, limit int64) ([]string, error) {
	return q.rdb.ZRangeByScore(ctx, q.key, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   "(" + strconv.FormatFloat(deadlineScore(now), 'f', -1, 64),
		Count: limit,
	}).Result()
}

func deadlineScore(t time.Time) float64 {
	return float64(t.UnixMilli())
}
