package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/desertthunder/playlist-etl/internal/shared"
	tu "github.com/desertthunder/playlist-etl/internal/testing"
	"github.com/go-redis/redis/v8"
)

type countingExchanger struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (c *countingExchanger) Exchange(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return "", c.err
	}
	c.calls++
	return fmt.Sprintf("token-%d", c.calls), nil
}

func (c *countingExchanger) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type fakeClock struct{ now time.Time }

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time          { return f.now }
func (f *fakeClock) Advance(d time.Duration) { f.now = f.now.Add(d) }

func TestMemoryTokenCache(t *testing.T) {
	ctx := context.Background()

	t.Run("first call exchanges credentials", func(t *testing.T) {
		ex := &countingExchanger{}
		cache := NewMemoryTokenCache(ex)

		tok, err := cache.Token(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tok != "token-1" || ex.Calls() != 1 {
			t.Errorf("expected token-1 after one exchange, got %s after %d", tok, ex.Calls())
		}
	})

	t.Run("refresh boundary", func(t *testing.T) {
		ex := &countingExchanger{}
		clock := newFakeClock()
		cache := NewMemoryTokenCache(ex)
		cache.SetClock(clock.Now)

		if _, err := cache.Token(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		clock.Advance(3399 * time.Second)
		tok, err := cache.Token(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tok != "token-1" || ex.Calls() != 1 {
			t.Errorf("expected cached token at +3399s, got %s after %d exchanges", tok, ex.Calls())
		}

		clock.Advance(2 * time.Second)
		tok, err = cache.Token(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tok != "token-2" || ex.Calls() != 2 {
			t.Errorf("expected exactly one refresh at +3401s, got %s after %d exchanges", tok, ex.Calls())
		}

		if _, err := cache.Token(ctx); err != nil || ex.Calls() != 2 {
			t.Errorf("refreshed token should be reused, got %d exchanges", ex.Calls())
		}
	})

	t.Run("exchange failure is returned", func(t *testing.T) {
		cache := NewMemoryTokenCache(&countingExchanger{err: &shared.AuthError{StatusCode: 400, Err: errors.New("bad")}})
		if _, err := cache.Token(ctx); !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
	})
}

func TestRedisTokenCache(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	ex := &countingExchanger{}
	clock := newFakeClock()

	first := NewRedisTokenCache(client, ex, "test")
	first.SetClock(clock.Now)
	second := NewRedisTokenCache(client, ex, "test")
	second.SetClock(clock.Now)

	t.Run("token is shared between instances", func(t *testing.T) {
		a, err := first.Token(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		b, err := second.Token(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if a != b || ex.Calls() != 1 {
			t.Errorf("expected one shared token, got %s and %s after %d exchanges", a, b, ex.Calls())
		}
		if !mr.Exists(first.Key()) {
			t.Errorf("expected token stored under %s", first.Key())
		}
	})

	t.Run("stale token is refreshed once", func(t *testing.T) {
		clock.Advance(3401 * time.Second)

		a, err := second.Token(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		b, err := first.Token(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if a != "token-2" || b != "token-2" || ex.Calls() != 2 {
			t.Errorf("expected token-2 from both instances after one refresh, got %s, %s after %d", a, b, ex.Calls())
		}
	})

	t.Run("unreadable redis", func(t *testing.T) {
		broken := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
		t.Cleanup(func() { broken.Close() })

		cache := NewRedisTokenCache(broken, ex, "test")
		if _, err := cache.Token(ctx); !errors.Is(err, shared.ErrTokenStore) {
			t.Errorf("expected ErrTokenStore, got %v", err)
		}
	})
}

func TestClientCredentials(t *testing.T) {
	ctx := context.Background()

	t.Run("exchanges with basic auth", func(t *testing.T) {
		cs := tu.NewCatalogServer(t)
		ex, err := NewClientCredentials(tu.ClientID, tu.ClientSecret, cs.TokenURL(), cs.Client())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		tok, err := ex.Exchange(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tok != "token-1" {
			t.Errorf("expected token-1, got %s", tok)
		}
	})

	t.Run("wrong secret is an AuthError", func(t *testing.T) {
		cs := tu.NewCatalogServer(t)
		ex, err := NewClientCredentials(tu.ClientID, "wrong", cs.TokenURL(), cs.Client())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		_, err = ex.Exchange(ctx)
		var ae *shared.AuthError
		if !errors.As(err, &ae) {
			t.Fatalf("expected *AuthError, got %v", err)
		}
		if ae.StatusCode != http.StatusUnauthorized {
			t.Errorf("expected status 401, got %d", ae.StatusCode)
		}
	})

	t.Run("server error is an AuthError", func(t *testing.T) {
		cs := tu.NewCatalogServer(t)
		cs.FailToken(http.StatusServiceUnavailable)
		ex, _ := NewClientCredentials(tu.ClientID, tu.ClientSecret, cs.TokenURL(), cs.Client())

		if _, err := ex.Exchange(ctx); !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
	})

	t.Run("missing credentials", func(t *testing.T) {
		if _, err := NewClientCredentials("", "secret", "http://localhost", nil); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})
}

func TestTokenClient(t *testing.T) {
	tokens := &tu.StaticTokens{Value: "abc"}
	var got string
	client := NewTokenClient(context.Background(), tokens, roundTripFunc(func(r *http.Request) (*http.Response, error) {
		got = r.Header.Get("Authorization")
		return &http.Response{StatusCode: http.StatusNoContent, Body: http.NoBody, Request: r}, nil
	}))

	for range 2 {
		resp, err := client.Get("http://catalog.test/v1/me")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		resp.Body.Close()
	}

	if got != "Bearer abc" {
		t.Errorf("expected bearer header, got %q", got)
	}
	if tokens.Calls != 2 {
		t.Errorf("expected the cache to be consulted per request, got %d", tokens.Calls)
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }
