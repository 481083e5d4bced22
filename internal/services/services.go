package services

import (
	"context"

	"github.com/desertthunder/playlist-etl/internal/models"
)

// ItemFetcher retrieves the complete item sequence of a paginated collection.
type ItemFetcher interface {
	FetchAll(ctx context.Context, startURL, fields string) ([]models.RawTrackItem, error)
}

// Enricher resolves artist ids to genre and follower info.
type Enricher interface {
	Enrich(ctx context.Context, ids []string) (map[string]ArtistInfo, error)
}

// PlaylistSource looks up playlist metadata.
type PlaylistSource interface {
	Playlist(ctx context.Context, playlistID string) (*PlaylistMetadata, error)
}

var (
	_ TokenCache     = (*MemoryTokenCache)(nil)
	_ TokenCache     = (*RedisTokenCache)(nil)
	_ ItemFetcher    = (*PagedFetcher)(nil)
	_ Enricher       = (*ArtistEnricher)(nil)
	_ PlaylistSource = (*Catalog)(nil)
)
