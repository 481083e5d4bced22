package services

import (
	"context"
	"errors"
	"strings"

	"github.com/desertthunder/playlist-etl/internal/models"
	"github.com/desertthunder/playlist-etl/internal/shared"
	"github.com/zmb3/spotify/v2"
)

// MaxArtistsPerRequest is the bulk artist lookup limit.
const MaxArtistsPerRequest = 20

// ArtistLookup fetches full artist objects in bulk. [*spotify.Client] satisfies it.
type ArtistLookup interface {
	GetArtists(ctx context.Context, ids ...spotify.ID) ([]*spotify.FullArtist, error)
}

// ArtistInfo is the enrichment joined onto artist rows.
//
// Genres are projected onto exactly two slots; missing slots stay nil.
type ArtistInfo struct {
	Genre1    *string
	Genre2    *string
	Followers int
}

// ArtistEnricher looks up genres and follower counts for artist ids.
type ArtistEnricher struct {
	lookup    ArtistLookup
	batchSize int
}

func NewArtistEnricher(lookup ArtistLookup) *ArtistEnricher {
	return &ArtistEnricher{lookup: lookup, batchSize: MaxArtistsPerRequest}
}

// Enrich returns info keyed by artist id. Duplicate ids are requested once.
//
// Artists the catalog does not return are absent from the map.
func (e *ArtistEnricher) Enrich(ctx context.Context, ids []string) (map[string]ArtistInfo, error) {
	unique := dedupe(ids)
	out := make(map[string]ArtistInfo, len(unique))

	for start := 0; start < len(unique); start += e.batchSize {
		end := min(start+e.batchSize, len(unique))
		batch := make([]spotify.ID, 0, end-start)
		for _, id := range unique[start:end] {
			batch = append(batch, spotify.ID(id))
		}

		artists, err := e.lookup.GetArtists(ctx, batch...)
		if err != nil {
			return nil, artistFetchError(unique[start:end], err)
		}

		for _, a := range artists {
			if a == nil {
				continue
			}
			out[a.ID.String()] = artistInfo(a)
		}
	}
	return out, nil
}

// Join fills the enrichment columns of every artist row found in infos.
func Join(ds *models.Dataset, infos map[string]ArtistInfo) {
	for i := range ds.Artists {
		info, ok := infos[ds.Artists[i].ArtistID]
		if !ok {
			continue
		}
		followers := info.Followers
		ds.Artists[i].Genre1 = info.Genre1
		ds.Artists[i].Genre2 = info.Genre2
		ds.Artists[i].Followers = &followers
	}
}

func artistInfo(a *spotify.FullArtist) ArtistInfo {
	info := ArtistInfo{Followers: int(a.Followers.Count)}
	if len(a.Genres) > 0 {
		g := a.Genres[0]
		info.Genre1 = &g
	}
	if len(a.Genres) > 1 {
		g := a.Genres[1]
		info.Genre2 = &g
	}
	return info
}

func artistFetchError(ids []string, err error) error {
	target := "artists?ids=" + strings.Join(ids, ",")
	var se spotify.Error
	if errors.As(err, &se) {
		return &shared.FetchError{URL: target, StatusCode: se.Status, Err: err}
	}
	return &shared.FetchError{URL: target, Err: err}
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
