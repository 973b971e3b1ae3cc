// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jason-s-yu/crystal-clear/internal/models"
	"github.com/redis/go-redis/v9"
)

// DefaultQueueName is the Redis list round events are pushed to.
const DefaultQueueName = "crystal:round-events"

// ConnectRedis creates a client for addr/db and pings it.
func ConnectRedis(ctx context.Context, addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// RedisEventLog is a FIFO of round events on a Redis list. The game server
// appends; the historian pops.
type RedisEventLog struct {
	rdb   redis.Cmdable
	queue string
}

// NewRedisEventLog uses queue, or DefaultQueueName when empty.
func NewRedisEventLog(rdb redis.Cmdable, queue string) *RedisEventLog {
	if queue == "" {
		queue = DefaultQueueName
	}
	return &RedisEventLog{rdb: rdb, queue: queue}
}

// Queue is the list name.
func (l *RedisEventLog) Queue() string {
	return l.queue
}

// Append serializes ev and pushes it to the tail of the queue.
func (l *RedisEventLog) Append(ctx context.Context, ev models.RoundEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal RoundEvent: %w", err)
	}
	if err := l.rdb.RPush(ctx, l.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", l.queue, err)
	}
	return nil
}

// Pop blocks up to timeout for the next event. ok is false when the wait timed
// out. Undecodable entries are returned as an error and are not requeued.
func (l *RedisEventLog) Pop(ctx context.Context, timeout time.Duration) (ev models.RoundEvent, ok bool, err error) {
	res, err := l.rdb.BLPop(ctx, timeout, l.queue).Result()
	if errors.Is(err, redis.Nil) {
		return ev, false, nil
	}
	if err != nil {
		return ev, false, fmt.Errorf("BLPop %s: %w", l.queue, err)
	}
	// res[0] is the queue name and res[1] the payload.
	if len(res) < 2 {
		return ev, false, nil
	}
	if err := json.Unmarshal([]byte(res[1]), &ev); err != nil {
		return ev, false, fmt.Errorf("invalid round event: %w", err)
	}
	return ev, true, nil
}
