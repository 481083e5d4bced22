package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/desertthunder/playlist-etl/internal/shared"
	tu "github.com/desertthunder/playlist-etl/internal/testing"
)

func TestPagedFetcher(t *testing.T) {
	ctx := context.Background()

	t.Run("single page", func(t *testing.T) {
		cs := tu.NewCatalogServer(t)
		cs.AddPlaylist("p1", []map[string]any{tu.TrackItem("t1", "a1"), tu.TrackItem("t2", "a2")})
		tokens := &tu.StaticTokens{Value: "abc"}

		items, err := NewPagedFetcher(cs.Client(), tokens).FetchAll(ctx, PlaylistTracksURL(cs.BaseURL(), "p1"), "items(track(id)),next")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(items) != 2 {
			t.Fatalf("expected 2 items, got %d", len(items))
		}

		reqs := cs.Requests()
		if len(reqs) != 1 || !strings.Contains(reqs[0], "fields=") {
			t.Errorf("expected one request with a fields projection, got %v", reqs)
		}
		if got := cs.BearerTokens(); len(got) != 1 || got[0] != "abc" {
			t.Errorf("expected bearer token abc, got %v", got)
		}
	})

	t.Run("follows next links across pages", func(t *testing.T) {
		cs := tu.NewCatalogServer(t)
		cs.AddPlaylist("p1",
			[]map[string]any{tu.TrackItem("t0")},
			[]map[string]any{tu.TrackItem("t1")},
			[]map[string]any{tu.TrackItem("t2")},
		)
		tokens := &tu.StaticTokens{Value: "abc"}

		items, err := NewPagedFetcher(cs.Client(), tokens).WithRateLimit(1000).FetchAll(ctx, PlaylistTracksURL(cs.BaseURL(), "p1"), "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(items) != 3 {
			t.Fatalf("expected 3 items, got %d", len(items))
		}
		for i, item := range items {
			track := item["track"].(map[string]any)
			if track["id"] != fmt.Sprintf("t%d", i) {
				t.Errorf("item %d: expected t%d, got %v", i, i, track["id"])
			}
		}
		if len(cs.Requests()) != 3 {
			t.Errorf("expected 3 page requests, got %d", len(cs.Requests()))
		}
		if tokens.Calls != 3 {
			t.Errorf("expected a token lookup per page, got %d", tokens.Calls)
		}
	})

	t.Run("empty playlist", func(t *testing.T) {
		cs := tu.NewCatalogServer(t)
		cs.AddPlaylist("p1", []map[string]any{})

		items, err := NewPagedFetcher(cs.Client(), &tu.StaticTokens{Value: "abc"}).FetchAll(ctx, PlaylistTracksURL(cs.BaseURL(), "p1"), "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if items == nil || len(items) != 0 {
			t.Errorf("expected an empty, non-nil sequence, got %v", items)
		}
	})

	t.Run("non-200 page discards earlier pages", func(t *testing.T) {
		var srv *httptest.Server
		srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("page") == "1" {
				w.WriteHeader(http.StatusInternalServerError)
				fmt.Fprint(w, "boom")
				return
			}
			fmt.Fprintf(w, `{"items":[{"track":{"id":"t0"}}],"next":"%s/tracks?page=1"}`, srv.URL)
		}))
		defer srv.Close()

		items, err := NewPagedFetcher(srv.Client(), &tu.StaticTokens{Value: "abc"}).FetchAll(ctx, srv.URL+"/tracks", "")
		if items != nil {
			t.Errorf("expected no partial results, got %d items", len(items))
		}

		var fe *shared.FetchError
		if !errors.As(err, &fe) {
			t.Fatalf("expected *FetchError, got %v", err)
		}
		if fe.StatusCode != http.StatusInternalServerError || !strings.HasSuffix(fe.URL, "page=1") {
			t.Errorf("expected 500 on page=1, got %d on %s", fe.StatusCode, fe.URL)
		}
		if fe.Permanent() {
			t.Error("a server error should not be permanent")
		}
	})

	t.Run("unknown playlist is a permanent failure", func(t *testing.T) {
		cs := tu.NewCatalogServer(t)

		_, err := NewPagedFetcher(cs.Client(), &tu.StaticTokens{Value: "abc"}).FetchAll(ctx, PlaylistTracksURL(cs.BaseURL(), "nope"), "")
		var fe *shared.FetchError
		if !errors.As(err, &fe) || fe.StatusCode != http.StatusNotFound || !fe.Permanent() {
			t.Errorf("expected permanent 404 FetchError, got %v", err)
		}
	})

	t.Run("token failure aborts before any request", func(t *testing.T) {
		cs := tu.NewCatalogServer(t)
		cs.AddPlaylist("p1", []map[string]any{tu.TrackItem("t1")})
		tokens := &tu.StaticTokens{Err: &shared.AuthError{StatusCode: 400, Err: errors.New("bad")}}

		_, err := NewPagedFetcher(cs.Client(), tokens).FetchAll(ctx, PlaylistTracksURL(cs.BaseURL(), "p1"), "")
		if !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
		if len(cs.Requests()) != 0 {
			t.Errorf("expected no API requests, got %d", len(cs.Requests()))
		}
	})

	t.Run("expired deadline is a transport failure", func(t *testing.T) {
		cs := tu.NewCatalogServer(t)
		cs.AddPlaylist("p1", []map[string]any{tu.TrackItem("t1")})

		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := NewPagedFetcher(cs.Client(), &tu.StaticTokens{Value: "abc"}).FetchAll(cctx, PlaylistTracksURL(cs.BaseURL(), "p1"), "")
		var fe *shared.FetchError
		if !errors.As(err, &fe) || fe.StatusCode != 0 {
			t.Errorf("expected FetchError with status 0, got %v", err)
		}
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected the cause to be preserved, got %v", err)
		}
	})

	t.Run("PlaylistTracksURL", func(t *testing.T) {
		got := PlaylistTracksURL("https://api.spotify.com/v1/", "37i9dQZF1DXcBWIGoYBM5M")
		want := "https://api.spotify.com/v1/playlists/37i9dQZF1DXcBWIGoYBM5M/tracks"
		if got != want {
			t.Errorf("expected %s, got %s", want, got)
		}
	})
}
