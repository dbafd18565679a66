package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// compare-and-delete so that an expired lock taken over by another holder is left alone
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
    return redis.call("del", KEYS[1])
else
    return 0
end
`)

// Locker hands out SET NX PX locks with a per-acquisition token.
type Locker struct {
	rdb *redis.Client
}

func NewLocker(rdb *redis.Client) *Locker {
	return &Locker{rdb: rdb}
}

// Acquire tries once. ok is false when another holder owns key. The returned release
// function reports whether the lock was still held by this acquisition.
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) (bool, error), ok bool, err error) {
	token := uuid.NewString()
	ok, err = l.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}
	release = func(ctx context.Context) (bool, error) {
		deleted, err := releaseScript.Run(ctx, l.rdb, []string{key}, token).Int64()
		if err != nil {
			return false, fmt.Errorf("release lock %s: %w", key, err)
		}
		return deleted == 1, nil
	}
	return release, true, nil
}
