package services

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/desertthunder/playlist-etl/internal/shared"
	"github.com/zmb3/spotify/v2"
)

// PlaylistFields is the projection used for playlist metadata lookups.
const PlaylistFields = "id,name,owner(id,display_name),description,followers(total),snapshot_id,tracks(total)"

// PlaylistMetadata summarizes a playlist without its tracks.
type PlaylistMetadata struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	OwnerID     string `json:"owner_id"`
	OwnerName   string `json:"owner_name"`
	Followers   int    `json:"followers"`
	SnapshotID  string `json:"snapshot_id"`
	TrackCount  int    `json:"track_count"`
}

// Catalog wraps the typed Spotify client for the un-paginated lookups.
type Catalog struct {
	api *spotify.Client
}

// NewCatalog builds a client on httpClient, which must already authorize requests
// (see [NewTokenClient]). An empty baseURL keeps the library default.
func NewCatalog(httpClient *http.Client, baseURL string) *Catalog {
	var opts []spotify.ClientOption
	if baseURL != "" {
		opts = append(opts, spotify.WithBaseURL(strings.TrimRight(baseURL, "/")+"/"))
	}
	return &Catalog{api: spotify.New(httpClient, opts...)}
}

// Artists exposes the bulk artist lookup.
func (c *Catalog) Artists() ArtistLookup { return c.api }

// Playlist fetches playlist metadata.
func (c *Catalog) Playlist(ctx context.Context, playlistID string) (*PlaylistMetadata, error) {
	fp, err := c.api.GetPlaylist(ctx, spotify.ID(playlistID), spotify.Fields(PlaylistFields))
	if err != nil {
		target := "playlists/" + playlistID
		var se spotify.Error
		if errors.As(err, &se) {
			return nil, &shared.FetchError{URL: target, StatusCode: se.Status, Err: err}
		}
		return nil, &shared.FetchError{URL: target, Err: err}
	}

	return &PlaylistMetadata{
		ID:          fp.ID.String(),
		Name:        fp.Name,
		Description: fp.Description,
		OwnerID:     fp.Owner.ID,
		OwnerName:   fp.Owner.DisplayName,
		Followers:   int(fp.Followers.Count),
		SnapshotID:  fp.SnapshotID,
		TrackCount:  int(fp.Tracks.Total),
	}, nil
}
