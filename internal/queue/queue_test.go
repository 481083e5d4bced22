package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/desertthunder/playlist-etl/internal/shared"
	"github.com/go-redis/redis/v8"
)

func newTestQueue(t *testing.T) (*RedisQueue, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return New(client, "job2"), mr, client
}

func TestRedisQueue(t *testing.T) {
	ctx := context.Background()

	t.Run("lease in push order", func(t *testing.T) {
		q, _, _ := newTestQueue(t)
		if err := q.Push(ctx, "p1", "p2", "p3"); err != nil {
			t.Fatalf("push failed: %v", err)
		}

		for _, want := range []string{"p1", "p2", "p3"} {
			item, ok, err := q.Lease(ctx, 80*time.Second, false, 0)
			if err != nil || !ok {
				t.Fatalf("lease failed: %v, %v", ok, err)
			}
			if item != want {
				t.Errorf("expected %s, got %s", want, item)
			}
		}

		if _, ok, err := q.Lease(ctx, 80*time.Second, false, 0); ok || err != nil {
			t.Errorf("expected nothing to lease, got %v, %v", ok, err)
		}
	})

	t.Run("lease records the session", func(t *testing.T) {
		q, mr, _ := newTestQueue(t)
		_ = q.Push(ctx, "p1")

		if _, _, err := q.Lease(ctx, 80*time.Second, false, 0); err != nil {
			t.Fatalf("lease failed: %v", err)
		}

		got, err := mr.Get("job2:leased_by_session:p1")
		if err != nil || got != q.SessionID() {
			t.Errorf("expected lease held by %s, got %q (%v)", q.SessionID(), got, err)
		}
		if ttl := mr.TTL("job2:leased_by_session:p1"); ttl != 80*time.Second {
			t.Errorf("expected 80s lease, got %v", ttl)
		}
	})

	t.Run("complete removes the item for good", func(t *testing.T) {
		q, mr, _ := newTestQueue(t)
		_ = q.Push(ctx, "p1")
		item, _, _ := q.Lease(ctx, 80*time.Second, false, 0)

		empty, _ := q.Empty(ctx)
		if empty {
			t.Error("queue with a leased item should not be empty")
		}

		if err := q.Complete(ctx, item); err != nil {
			t.Fatalf("complete failed: %v", err)
		}
		empty, err := q.Empty(ctx)
		if err != nil || !empty {
			t.Errorf("expected empty queue, got %v (%v)", empty, err)
		}
		if mr.Exists("job2:leased_by_session:p1") {
			t.Error("lease key should be deleted")
		}
	})

	t.Run("expired leases are reclaimed", func(t *testing.T) {
		q, mr, client := newTestQueue(t)
		_ = q.Push(ctx, "p1", "p2")
		first, _, _ := q.Lease(ctx, 10*time.Second, false, 0)
		second, _, _ := q.Lease(ctx, 100*time.Second, false, 0)

		mr.FastForward(11 * time.Second)

		moved, err := q.Reclaim(ctx)
		if err != nil {
			t.Fatalf("reclaim failed: %v", err)
		}
		if moved != 1 {
			t.Errorf("expected 1 reclaimed item, got %d", moved)
		}

		other := New(client, "job2")
		item, ok, err := other.Lease(ctx, 80*time.Second, false, 0)
		if err != nil || !ok || item != first {
			t.Errorf("expected %s to be leasable again, got %q, %v, %v", first, item, ok, err)
		}

		stats, _ := q.Stats(ctx)
		if stats.Pending != 0 || stats.Processing != 2 {
			t.Errorf("expected 0 pending and 2 processing, got %+v", stats)
		}
		if err := q.Complete(ctx, second); err != nil {
			t.Fatalf("complete failed: %v", err)
		}
	})

	t.Run("blocking lease times out on an empty queue", func(t *testing.T) {
		q, _, _ := newTestQueue(t)
		_, ok, err := q.Lease(ctx, 80*time.Second, true, time.Second)
		if err != nil || ok {
			t.Errorf("expected timeout without item, got %v, %v", ok, err)
		}
	})

	t.Run("sessions are distinct", func(t *testing.T) {
		q, _, client := newTestQueue(t)
		if q.SessionID() == New(client, "job2").SessionID() || q.SessionID() == "" {
			t.Error("expected unique session ids")
		}
	})

	t.Run("unreachable redis", func(t *testing.T) {
		client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
		t.Cleanup(func() { client.Close() })

		q := New(client, "job2")
		if err := q.Push(ctx, "p1"); !errors.Is(err, shared.ErrQueue) {
			t.Errorf("expected ErrQueue, got %v", err)
		}
		if _, err := q.Empty(ctx); !errors.Is(err, shared.ErrQueue) {
			t.Errorf("expected ErrQueue, got %v", err)
		}
	})
}
