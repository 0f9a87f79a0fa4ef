package batchlock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

const lockTTL = 10 * time.Minute

// ErrHeld means another instance holds the lock right now.
var ErrHeld = errors.New("batchlock: lock is held")

// Locker serializes batch runs across instances with a Redis lock.
// Obtain fails fast rather than queueing; a cron retries on the next
// tick anyway.
type Locker struct {
	client *redislock.Client
}

func New(rdb *redis.Client) *Locker {
	return &Locker{client: redislock.New(rdb)}
}

func (l *Locker) Obtain(ctx context.Context, key string) (func(context.Context) error, error) {
	lock, err := l.client.Obtain(ctx, key, lockTTL, nil)
	if err != nil {
		if errors.Is(err, redislock.ErrNotObtained) {
			return nil, ErrHeld
		}
		return nil, fmt.Errorf("obtain lock %s: %w", key, err)
	}
	return lock.Release, nil
}
