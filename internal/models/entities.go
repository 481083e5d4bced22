package models

import (
	"fmt"
	"strings"
)

// RawTrackItem is one element of a paginated playlist-tracks response, decoded as generic JSON.
type RawTrackItem map[string]any

// Entity names an output entity type. The value doubles as the storage prefix.
type Entity string

const (
	EntityPlaylist Entity = "playlists"
	EntityTrack    Entity = "tracks"
	EntityAlbum    Entity = "albums"
	EntityArtist   Entity = "artists"
)

// Entities lists every output entity in emission order.
var Entities = []Entity{EntityPlaylist, EntityTrack, EntityAlbum, EntityArtist}

// Column schemas, in output order.
var (
	PlaylistColumns = []string{"playlist_id", "track_no", "track_id", "added_at", "added_by_id"}
	TrackColumns    = []string{
		"track_id", "name", "explicit", "popularity", "duration_ms",
		"album_id", "disc_number", "track_number", "href", "uri",
	}
	AlbumColumns = []string{
		"track_id", "album_id", "name", "album_type", "release_date",
		"total_tracks", "image_url", "href", "uri",
	}
	ArtistColumns = []string{
		"artist_order", "track_id", "artist_id", "name", "href", "uri", "type",
		"genre_1", "genre_2", "followers_total",
	}
)

// ParseEntity resolves an entity name; the singular form is accepted too.
func ParseEntity(name string) (Entity, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, e := range Entities {
		if name == string(e) || name+"s" == string(e) {
			return e, nil
		}
	}
	return "", fmt.Errorf("unknown entity %q", name)
}

// Columns returns the schema for e, or nil for an unknown entity.
func (e Entity) Columns() []string {
	switch e {
	case EntityPlaylist:
		return PlaylistColumns
	case EntityTrack:
		return TrackColumns
	case EntityAlbum:
		return AlbumColumns
	case EntityArtist:
		return ArtistColumns
	default:
		return nil
	}
}

// PlaylistRecord places one track occurrence within a playlist.
type PlaylistRecord struct {
	PlaylistID string
	TrackNo    int // 0-based, contiguous across every page of the playlist
	TrackID    string
	AddedAt    string
	AddedByID  string
	Extra      map[string]any // playlist-scoped fields outside the schema, e.g. primary_color
}

func (r PlaylistRecord) Values() []any {
	return []any{r.PlaylistID, r.TrackNo, r.TrackID, r.AddedAt, r.AddedByID}
}

// TrackRecord holds track metadata for one playlist occurrence.
type TrackRecord struct {
	TrackID     string
	Name        string
	Explicit    bool
	Popularity  int
	DurationMS  int
	AlbumID     string
	DiscNumber  int
	TrackNumber int
	Href        string
	URI         string
	Extra       map[string]any
}

func (r TrackRecord) Values() []any {
	return []any{
		r.TrackID, r.Name, r.Explicit, r.Popularity, r.DurationMS,
		r.AlbumID, r.DiscNumber, r.TrackNumber, r.Href, r.URI,
	}
}

// AlbumRecord holds the album of one track occurrence. Albums are not deduplicated.
type AlbumRecord struct {
	TrackID     string
	AlbumID     string
	Name        string
	AlbumType   string
	ReleaseDate string
	TotalTracks int
	ImageURL    string // first entry of the album's image list
	Href        string
	URI         string
	Extra       map[string]any
}

func (r AlbumRecord) Values() []any {
	return []any{
		r.TrackID, r.AlbumID, r.Name, r.AlbumType, r.ReleaseDate,
		r.TotalTracks, r.ImageURL, r.Href, r.URI,
	}
}

// ArtistRecord is one credited artist of a track.
//
// Genre1, Genre2 and Followers are set by artist enrichment and stay nil otherwise.
type ArtistRecord struct {
	ArtistOrder int // index in the track's artist list, primary artist first
	TrackID     string
	ArtistID    string
	Name        string
	Href        string
	URI         string
	Type        string
	Genre1      *string
	Genre2      *string
	Followers   *int
	Extra       map[string]any
}

func (r ArtistRecord) Values() []any {
	return []any{
		r.ArtistOrder, r.TrackID, r.ArtistID, r.Name, r.Href, r.URI, r.Type,
		deref(r.Genre1), deref(r.Genre2), deref(r.Followers),
	}
}

func deref[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
