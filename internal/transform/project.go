package transform

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/desertthunder/playlist-etl/internal/models"
	"github.com/desertthunder/playlist-etl/internal/shared"
)

// projector reads typed columns out of a renamed row and remembers the first type mismatch.
type projector struct {
	index  int
	entity models.Entity
	row    map[string]any
	used   map[string]struct{}
	err    error
}

func newProjector(index int, entity models.Entity, row map[string]any) *projector {
	return &projector{index: index, entity: entity, row: row, used: make(map[string]struct{}, len(row))}
}

func (p *projector) take(key string) any {
	p.used[key] = struct{}{}
	return p.row[key]
}

func (p *projector) fail(key string, v any, want string) {
	if p.err != nil {
		return
	}
	p.err = &shared.DecomposeError{
		Index: p.index,
		Path:  string(p.entity) + "." + key,
		Err:   fmt.Errorf("expected %s, got %T", want, v),
	}
}

func (p *projector) str(key string) string {
	switch v := p.take(key).(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		p.fail(key, v, "a string")
		return ""
	}
}

func (p *projector) integer(key string) int {
	switch v := p.take(key).(type) {
	case nil:
		return 0
	case int:
		return v
	case float64:
		if v != math.Trunc(v) {
			p.fail(key, v, "an integer")
			return 0
		}
		return int(v)
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			p.fail(key, v, "an integer")
			return 0
		}
		return int(n)
	default:
		p.fail(key, v, "an integer")
		return 0
	}
}

func (p *projector) boolean(key string) bool {
	switch v := p.take(key).(type) {
	case nil:
		return false
	case bool:
		return v
	default:
		p.fail(key, v, "a boolean")
		return false
	}
}

// extra returns the fields no column read, or nil when there are none.
func (p *projector) extra() map[string]any {
	var out map[string]any
	for k, v := range p.row {
		if _, ok := p.used[k]; ok {
			continue
		}
		if out == nil {
			out = make(map[string]any)
		}
		out[k] = v
	}
	return out
}

func projectPlaylist(index int, row map[string]any) (models.PlaylistRecord, error) {
	p := newProjector(index, models.EntityPlaylist, row)
	r := models.PlaylistRecord{
		TrackID:   p.str("track_id"),
		AddedAt:   p.str("added_at"),
		AddedByID: p.str("added_by_id"),
	}
	r.Extra = p.extra()
	return r, p.err
}

func projectTrack(index int, row map[string]any) (models.TrackRecord, error) {
	p := newProjector(index, models.EntityTrack, row)
	r := models.TrackRecord{
		TrackID:     p.str("id"),
		Name:        p.str("name"),
		Explicit:    p.boolean("explicit"),
		Popularity:  p.integer("popularity"),
		DurationMS:  p.integer("duration_ms"),
		AlbumID:     p.str("album_id"),
		DiscNumber:  p.integer("disc_number"),
		TrackNumber: p.integer("track_number"),
		Href:        p.str("href"),
		URI:         p.str("uri"),
	}
	r.Extra = p.extra()
	return r, p.err
}

func projectAlbum(index int, row map[string]any) (models.AlbumRecord, error) {
	p := newProjector(index, models.EntityAlbum, row)
	r := models.AlbumRecord{
		TrackID:     p.str("track_id"),
		AlbumID:     p.str("id"),
		Name:        p.str("name"),
		AlbumType:   p.str("album_type"),
		ReleaseDate: p.str("release_date"),
		TotalTracks: p.integer("total_tracks"),
		ImageURL:    p.str("image_url"),
		Href:        p.str("href"),
		URI:         p.str("uri"),
	}
	r.Extra = p.extra()
	return r, p.err
}

func projectArtist(index int, row map[string]any) (models.ArtistRecord, error) {
	p := newProjector(index, models.EntityArtist, row)
	r := models.ArtistRecord{
		ArtistOrder: p.integer("artist_order"),
		TrackID:     p.str("track_id"),
		ArtistID:    p.str("id"),
		Name:        p.str("name"),
		Href:        p.str("href"),
		URI:         p.str("uri"),
		Type:        p.str("type"),
	}
	r.Extra = p.extra()
	return r, p.err
}
