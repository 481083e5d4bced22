// package queue implements a leased work queue on Redis lists.
//
// Items move from the main list to a processing list when leased. Each lease is a key with a TTL
// naming the session that holds it; an item whose lease key has expired can be reclaimed and
// handed to another worker. Processing is therefore at-least-once.
package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/playlist-etl/internal/shared"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// RedisQueue is a named work queue shared by any number of workers.
type RedisQueue struct {
	client     *redis.Client
	name       string
	processing string
	leasePfx   string
	session    string
}

// Stats counts items waiting and items currently leased or awaiting reclaim.
type Stats struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
}

// New returns a queue named name with a fresh session id.
func New(client *redis.Client, name string) *RedisQueue {
	return &RedisQueue{
		client:     client,
		name:       name,
		processing: name + ":processing",
		leasePfx:   name + ":leased_by_session:",
		session:    uuid.New().String(),
	}
}

// SessionID identifies this worker's leases.
func (q *RedisQueue) SessionID() string { return q.session }

// Name returns the main list key.
func (q *RedisQueue) Name() string { return q.name }

// Push appends items to the queue. They are leased in push order.
func (q *RedisQueue) Push(ctx context.Context, items ...string) error {
	if len(items) == 0 {
		return nil
	}
	vals := make([]any, len(items))
	for i, it := range items {
		vals[i] = it
	}
	if err := q.client.LPush(ctx, q.name, vals...).Err(); err != nil {
		return fmt.Errorf("%w: push: %v", shared.ErrQueue, err)
	}
	return nil
}

// Lease takes the next item and holds it for lease.
//
// With block set it waits up to timeout for an item. ok is false when nothing was available.
func (q *RedisQueue) Lease(ctx context.Context, lease time.Duration, block bool, timeout time.Duration) (item string, ok bool, err error) {
	if block {
		item, err = q.client.BRPopLPush(ctx, q.name, q.processing, timeout).Result()
	} else {
		item, err = q.client.RPopLPush(ctx, q.name, q.processing).Result()
	}
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: lease: %v", shared.ErrQueue, err)
	}

	if err := q.client.Set(ctx, q.leaseKey(item), q.session, lease).Err(); err != nil {
		return "", false, fmt.Errorf("%w: record lease of %q: %v", shared.ErrQueue, item, err)
	}
	return item, true, nil
}

// Complete acknowledges a leased item so it is never handed out again.
func (q *RedisQueue) Complete(ctx context.Context, item string) error {
	_, err := q.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.LRem(ctx, q.processing, 0, item)
		p.Del(ctx, q.leaseKey(item))
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: complete %q: %v", shared.ErrQueue, item, err)
	}
	return nil
}

// Empty reports whether nothing is waiting and nothing is being processed.
func (q *RedisQueue) Empty(ctx context.Context) (bool, error) {
	s, err := q.Stats(ctx)
	if err != nil {
		return false, err
	}
	return s.Pending == 0 && s.Processing == 0, nil
}

// Stats returns the list lengths.
func (q *RedisQueue) Stats(ctx context.Context) (Stats, error) {
	var pending, processing *redis.IntCmd
	_, err := q.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		pending = p.LLen(ctx, q.name)
		processing = p.LLen(ctx, q.processing)
		return nil
	})
	if err != nil {
		return Stats{}, fmt.Errorf("%w: stats: %v", shared.ErrQueue, err)
	}
	return Stats{Pending: pending.Val(), Processing: processing.Val()}, nil
}

// Reclaim returns items whose lease expired to the front of the queue and reports how many moved.
func (q *RedisQueue) Reclaim(ctx context.Context) (int, error) {
	items, err := q.client.LRange(ctx, q.processing, 0, -1).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: reclaim: %v", shared.ErrQueue, err)
	}

	moved := 0
	for _, item := range items {
		n, err := q.client.Exists(ctx, q.leaseKey(item)).Result()
		if err != nil {
			return moved, fmt.Errorf("%w: reclaim: %v", shared.ErrQueue, err)
		}
		if n > 0 {
			continue
		}

		var removed *redis.IntCmd
		_, err = q.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
			removed = p.LRem(ctx, q.processing, 1, item)
			p.RPush(ctx, q.name, item)
			return nil
		})
		if err != nil {
			return moved, fmt.Errorf("%w: reclaim %q: %v", shared.ErrQueue, item, err)
		}
		if removed.Val() == 0 {
			// completed between LRANGE and the transaction
			if err := q.client.LRem(ctx, q.name, -1, item).Err(); err != nil {
				return moved, fmt.Errorf("%w: reclaim %q: %v", shared.ErrQueue, item, err)
			}
			continue
		}
		moved++
	}
	return moved, nil
}

func (q *RedisQueue) leaseKey(item string) string {
	return q.leasePfx + item
}
