package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/desertthunder/playlist-etl/internal/models"
	"github.com/desertthunder/playlist-etl/internal/shared"
	tu "github.com/desertthunder/playlist-etl/internal/testing"
)

func newTestCatalog(t *testing.T, cs *tu.CatalogServer) *Catalog {
	t.Helper()
	client := NewTokenClient(context.Background(), &tu.StaticTokens{Value: "abc"}, cs.Client().Transport)
	return NewCatalog(client, cs.BaseURL())
}

func TestArtistEnricher(t *testing.T) {
	ctx := context.Background()

	t.Run("batches of at most 20", func(t *testing.T) {
		cs := tu.NewCatalogServer(t)
		ids := make([]string, 0, 45)
		for i := range 45 {
			id := fmt.Sprintf("artist%02d", i)
			ids = append(ids, id)
			cs.AddArtist(id, []string{"pop"}, i)
		}

		infos, err := NewArtistEnricher(newTestCatalog(t, cs).Artists()).Enrich(ctx, ids)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(infos) != 45 {
			t.Errorf("expected 45 artists, got %d", len(infos))
		}

		batches := cs.ArtistBatches()
		sizes := make([]int, 0, len(batches))
		for _, b := range batches {
			sizes = append(sizes, len(b))
		}
		if fmt.Sprint(sizes) != "[20 20 5]" {
			t.Errorf("expected batch sizes [20 20 5], got %v", sizes)
		}
	})

	t.Run("duplicate ids are requested once", func(t *testing.T) {
		cs := tu.NewCatalogServer(t)
		cs.AddArtist("a", nil, 1)
		cs.AddArtist("b", nil, 2)

		if _, err := NewArtistEnricher(newTestCatalog(t, cs).Artists()).Enrich(ctx, []string{"a", "b", "a", "", "b"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		batches := cs.ArtistBatches()
		if len(batches) != 1 || len(batches[0]) != 2 {
			t.Errorf("expected one batch of 2, got %v", batches)
		}
	})

	t.Run("no ids makes no requests", func(t *testing.T) {
		cs := tu.NewCatalogServer(t)
		infos, err := NewArtistEnricher(newTestCatalog(t, cs).Artists()).Enrich(ctx, nil)
		if err != nil || len(infos) != 0 {
			t.Errorf("expected empty result, got %v, %v", infos, err)
		}
		if len(cs.ArtistBatches()) != 0 {
			t.Error("expected no upstream calls")
		}
	})

	t.Run("genres project onto two slots", func(t *testing.T) {
		cs := tu.NewCatalogServer(t)
		cs.AddArtist("none", []string{}, 0)
		cs.AddArtist("one", []string{"jazz"}, 10)
		cs.AddArtist("three", []string{"rock", "indie", "shoegaze"}, 300)

		infos, err := NewArtistEnricher(newTestCatalog(t, cs).Artists()).Enrich(ctx, []string{"none", "one", "three", "missing"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if infos["none"].Genre1 != nil || infos["none"].Genre2 != nil {
			t.Error("expected both genre slots empty")
		}
		if g := infos["one"].Genre1; g == nil || *g != "jazz" || infos["one"].Genre2 != nil {
			t.Errorf("expected jazz and an empty second slot, got %+v", infos["one"])
		}
		three := infos["three"]
		if three.Genre1 == nil || *three.Genre1 != "rock" || three.Genre2 == nil || *three.Genre2 != "indie" {
			t.Errorf("expected rock/indie, got %+v", three)
		}
		if three.Followers != 300 {
			t.Errorf("expected 300 followers, got %d", three.Followers)
		}
		if _, ok := infos["missing"]; ok {
			t.Error("unknown artist should be absent")
		}
	})

	t.Run("upstream failure is a FetchError", func(t *testing.T) {
		cs := tu.NewCatalogServer(t)
		cs.FailPath("/v1/artists", http.StatusForbidden)

		_, err := NewArtistEnricher(newTestCatalog(t, cs).Artists()).Enrich(ctx, []string{"a"})
		var fe *shared.FetchError
		if !errors.As(err, &fe) {
			t.Fatalf("expected *FetchError, got %v", err)
		}
		if fe.StatusCode != http.StatusForbidden {
			t.Errorf("expected status 403, got %d", fe.StatusCode)
		}
	})
}

func TestJoin(t *testing.T) {
	rock := "rock"
	ds := &models.Dataset{Artists: []models.ArtistRecord{
		{TrackID: "t1", ArtistID: "a"},
		{TrackID: "t2", ArtistID: "a"},
		{TrackID: "t2", ArtistID: "b"},
	}}

	Join(ds, map[string]ArtistInfo{"a": {Genre1: &rock, Followers: 5}})

	for i := range 2 {
		a := ds.Artists[i]
		if a.Genre1 == nil || *a.Genre1 != "rock" || a.Followers == nil || *a.Followers != 5 {
			t.Errorf("row %d: expected enrichment, got %+v", i, a)
		}
		if a.Genre2 != nil {
			t.Errorf("row %d: second genre slot should stay empty", i)
		}
	}
	if ds.Artists[2].Followers != nil {
		t.Error("artist without info should stay empty")
	}
}

func TestCatalog(t *testing.T) {
	ctx := context.Background()

	t.Run("playlist metadata", func(t *testing.T) {
		cs := tu.NewCatalogServer(t)
		cs.AddPlaylist("p1", []map[string]any{tu.TrackItem("t1"), tu.TrackItem("t2")})

		meta, err := newTestCatalog(t, cs).Playlist(ctx, "p1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if meta.ID != "p1" || meta.Name != "Playlist p1" || meta.OwnerID != "curator" {
			t.Errorf("unexpected metadata %+v", meta)
		}
		if meta.TrackCount != 2 || meta.Followers != 7 {
			t.Errorf("expected 2 tracks and 7 followers, got %d and %d", meta.TrackCount, meta.Followers)
		}
		if got := cs.BearerTokens(); len(got) != 1 || got[0] != "abc" {
			t.Errorf("expected requests authorized through the token cache, got %v", got)
		}
	})

	t.Run("unknown playlist", func(t *testing.T) {
		cs := tu.NewCatalogServer(t)

		_, err := newTestCatalog(t, cs).Playlist(ctx, "missing")
		var fe *shared.FetchError
		if !errors.As(err, &fe) || fe.StatusCode != http.StatusNotFound {
			t.Errorf("expected 404 FetchError, got %v", err)
		}
	})
}
