package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"contest_hub/internal/platform/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrEmpty is returned by Dequeue when the blocking pop timed out.
var ErrEmpty = errors.New("queue empty")

// Connect creates the client and pings it. The caller closes it on shutdown.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}
	logger.Info("connected to Redis", zap.String("addr", addr))
	return rdb, nil
}

// List is a FIFO work queue of string ids backed by a Redis list: producers LPUSH, the
// consumer BRPOPs from the other end.
type List struct {
	rdb  *redis.Client
	name string
}

func NewList(rdb *redis.Client, name string) *List {
	return &List{rdb: rdb, name: name}
}

func (l *List) Enqueue(ctx context.Context, id string) error {
	if err := l.rdb.LPush(ctx, l.name, id).Err(); err != nil {
		return fmt.Errorf("push %s onto %s: %w", id, l.name, err)
	}
	return nil
}

// Requeue puts id back at the consuming end so that it is retried next.
func (l *List) Requeue(ctx context.Context, id string) error {
	if err := l.rdb.RPush(ctx, l.name, id).Err(); err != nil {
		return fmt.Errorf("requeue %s onto %s: %w", id, l.name, err)
	}
	return nil
}

// Dequeue blocks up to timeout for the next id. It returns ErrEmpty on timeout.
func (l *List) Dequeue(ctx context.Context, timeout time.Duration) (string, error) {
	res, err := l.rdb.BRPop(ctx, timeout, l.name).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrEmpty
		}
		return "", err
	}
	// res is [queueName, value]
	if len(res) < 2 || res[1] == "" {
		return "", ErrEmpty
	}
	return res[1], nil
}
