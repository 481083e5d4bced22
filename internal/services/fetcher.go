package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/playlist-etl/internal/models"
	"github.com/desertthunder/playlist-etl/internal/shared"
	"golang.org/x/time/rate"
)

// PagedFetcher walks a paginated collection endpoint by following its next links.
type PagedFetcher struct {
	httpClient *http.Client
	tokens     TokenCache
	limiter    *rate.Limiter
}

// NewPagedFetcher returns a fetcher authorizing every page through tokens. A nil client uses [http.DefaultClient].
func NewPagedFetcher(client *http.Client, tokens TokenCache) *PagedFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &PagedFetcher{httpClient: client, tokens: tokens}
}

// WithRateLimit paces page requests to perSecond. Zero or less disables pacing.
func (f *PagedFetcher) WithRateLimit(perSecond float64) *PagedFetcher {
	if perSecond > 0 {
		f.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	} else {
		f.limiter = nil
	}
	return f
}

type page struct {
	Items []models.RawTrackItem `json:"items"`
	Next  *string               `json:"next"`
}

// FetchAll returns every item reachable from startURL, in page order.
//
// fields, when set, is sent as the projection parameter on the first request only; next links
// already carry it. Any failed page discards the pages fetched so far.
func (f *PagedFetcher) FetchAll(ctx context.Context, startURL, fields string) ([]models.RawTrackItem, error) {
	target, err := withFields(startURL, fields)
	if err != nil {
		return nil, &shared.FetchError{URL: startURL, Err: err}
	}

	var items []models.RawTrackItem
	for target != "" {
		p, err := f.fetchPage(ctx, target)
		if err != nil {
			return nil, err
		}
		items = append(items, p.Items...)

		target = ""
		if p.Next != nil {
			target = *p.Next
		}
	}
	if items == nil {
		items = []models.RawTrackItem{}
	}
	return items, nil
}

func (f *PagedFetcher) fetchPage(ctx context.Context, target string) (*page, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, &shared.FetchError{URL: target, Err: err}
		}
	}

	token, err := f.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &shared.FetchError{URL: target, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, &shared.FetchError{URL: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &shared.FetchError{
			URL:        target,
			StatusCode: resp.StatusCode,
			Err:        errors.New(strings.TrimSpace(string(body))),
		}
	}

	var p page
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&p); err != nil {
		return nil, &shared.FetchError{URL: target, Err: fmt.Errorf("failed to decode page: %w", err)}
	}
	return &p, nil
}

func withFields(rawURL, fields string) (string, error) {
	if fields == "" {
		return rawURL, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid start URL: %w", err)
	}
	q := u.Query()
	q.Set("fields", fields)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// PlaylistTracksURL returns the tracks collection URL of a playlist.
func PlaylistTracksURL(baseURL, playlistID string) string {
	return strings.TrimRight(baseURL, "/") + "/playlists/" + url.PathEscape(playlistID) + "/tracks"
}
