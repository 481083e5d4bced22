package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/desertthunder/playlist-etl/internal/shared"
	"github.com/go-redis/redis/v8"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	// TokenTTL is the lifetime the token endpoint grants.
	TokenTTL = 3600 * time.Second
	// RefreshAfter is how long a cached token is trusted: 200s short of [TokenTTL].
	RefreshAfter = 3400 * time.Second
)

// TokenCache hands out a bearer token that is valid for at least the next request.
type TokenCache interface {
	Token(ctx context.Context) (string, error)
}

// CredentialExchanger performs one credential exchange against the token endpoint.
type CredentialExchanger interface {
	Exchange(ctx context.Context) (string, error)
}

// ClientCredentials exchanges a client id and secret for an app token using HTTP Basic auth.
type ClientCredentials struct {
	config     clientcredentials.Config
	httpClient *http.Client
}

// NewClientCredentials builds an exchanger for tokenURL. A nil client uses [http.DefaultClient].
func NewClientCredentials(clientID, clientSecret, tokenURL string, client *http.Client) (*ClientCredentials, error) {
	if clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("%w: client_id and client_secret are required", shared.ErrMissingCredentials)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &ClientCredentials{
		config: clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     tokenURL,
			AuthStyle:    oauth2.AuthStyleInHeader,
		},
		httpClient: client,
	}, nil
}

// Exchange posts grant_type=client_credentials and returns the access token.
func (c *ClientCredentials) Exchange(ctx context.Context) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	tok, err := c.config.Token(ctx)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			return "", &shared.AuthError{StatusCode: re.Response.StatusCode, Err: err}
		}
		return "", &shared.AuthError{Err: err}
	}
	if tok.AccessToken == "" {
		return "", &shared.AuthError{Err: errors.New("token endpoint returned an empty access_token")}
	}
	return tok.AccessToken, nil
}

// MemoryTokenCache keeps the token in process memory.
type MemoryTokenCache struct {
	mu        sync.Mutex
	exchanger CredentialExchanger
	now       func() time.Time
	token     string
	issuedAt  time.Time
}

// NewMemoryTokenCache returns an empty cache. The first Token call performs the exchange.
func NewMemoryTokenCache(exchanger CredentialExchanger) *MemoryTokenCache {
	return &MemoryTokenCache{exchanger: exchanger, now: time.Now}
}

// SetClock replaces the time source.
func (c *MemoryTokenCache) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Token returns the cached token, refreshing it once it is older than [RefreshAfter].
func (c *MemoryTokenCache) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && !stale(c.issuedAt, c.now()) {
		return c.token, nil
	}

	tok, err := c.exchanger.Exchange(ctx)
	if err != nil {
		return "", err
	}
	c.token = tok
	c.issuedAt = c.now()
	return tok, nil
}

// RedisTokenCache shares one token between worker processes.
//
// Concurrent refreshes are not coordinated; the last writer wins.
type RedisTokenCache struct {
	client    *redis.Client
	exchanger CredentialExchanger
	key       string
	now       func() time.Time
}

type storedToken struct {
	AccessToken string `json:"access_token"`
	IssuedAt    int64  `json:"issued_at"`
}

// NewRedisTokenCache stores the token under petl:token:<scope>.
func NewRedisTokenCache(client *redis.Client, exchanger CredentialExchanger, scope string) *RedisTokenCache {
	return &RedisTokenCache{
		client:    client,
		exchanger: exchanger,
		key:       "petl:token:" + scope,
		now:       time.Now,
	}
}

// SetClock replaces the time source.
func (c *RedisTokenCache) SetClock(now func() time.Time) { c.now = now }

// Key returns the Redis key holding the token.
func (c *RedisTokenCache) Key() string { return c.key }

func (c *RedisTokenCache) Token(ctx context.Context) (string, error) {
	data, err := c.client.Get(ctx, c.key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
	case err != nil:
		return "", fmt.Errorf("%w: read token: %v", shared.ErrTokenStore, err)
	default:
		var st storedToken
		if err := json.Unmarshal(data, &st); err == nil && st.AccessToken != "" {
			if !stale(time.Unix(st.IssuedAt, 0), c.now()) {
				return st.AccessToken, nil
			}
		}
	}

	tok, err := c.exchanger.Exchange(ctx)
	if err != nil {
		return "", err
	}

	data, err = json.Marshal(storedToken{AccessToken: tok, IssuedAt: c.now().Unix()})
	if err != nil {
		return "", err
	}
	if err := c.client.Set(ctx, c.key, data, TokenTTL).Err(); err != nil {
		return "", fmt.Errorf("%w: store token: %v", shared.ErrTokenStore, err)
	}
	return tok, nil
}

func stale(issuedAt, now time.Time) bool {
	return now.Sub(issuedAt) > RefreshAfter
}

// TokenSource adapts a [TokenCache] to [oauth2.TokenSource] so typed API clients share it.
//
// The returned tokens carry no expiry; staleness is decided by the cache on every call.
func TokenSource(ctx context.Context, cache TokenCache) oauth2.TokenSource {
	return &cacheSource{ctx: ctx, cache: cache}
}

type cacheSource struct {
	ctx   context.Context
	cache TokenCache
}

func (s *cacheSource) Token() (*oauth2.Token, error) {
	tok, err := s.cache.Token(s.ctx)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{AccessToken: tok, TokenType: "Bearer"}, nil
}

// NewTokenClient returns an HTTP client that authorizes every request through cache.
func NewTokenClient(ctx context.Context, cache TokenCache, base http.RoundTripper) *http.Client {
	if base == nil {
		base = http.DefaultTransport
	}
	return &http.Client{
		Transport: &oauth2.Transport{Source: TokenSource(ctx, cache), Base: base},
	}
}
