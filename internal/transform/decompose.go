package transform

import (
	"errors"
	"fmt"

	"github.com/desertthunder/playlist-etl/internal/models"
	"github.com/desertthunder/playlist-etl/internal/shared"
)

const (
	joinKey       = "track.id"
	albumKey      = "track.album.id"
	albumImages   = "track.album.images"
	albumImageURL = "track.album.image_url"
	artistsField  = "track.artists"
)

var errMissingField = errors.New("field is missing")

// Decomposer splits raw playlist-track items into playlist, track, album and artist records.
type Decomposer struct {
	rules   []Rule
	artists Explode
}

// NewDecomposer returns a Decomposer using rules, or [DefaultRules] when rules is empty.
func NewDecomposer(rules []Rule) *Decomposer {
	if len(rules) == 0 {
		rules = DefaultRules
	}
	return &Decomposer{
		rules: rules,
		artists: Explode{
			Field:       artistsField,
			Propagate:   []string{joinKey},
			IndexColumn: "artist_order",
		},
	}
}

// Decompose converts the full item sequence of one playlist into a [models.Dataset].
//
// Items whose track is null or has no id (local files, removed tracks) are counted in
// Dataset.Skipped and do not consume a track_no. Any other shape mismatch aborts with a
// [shared.DecomposeError] naming the item index and field path.
func (d *Decomposer) Decompose(items []models.RawTrackItem, playlistID string) (*models.Dataset, error) {
	ds := &models.Dataset{
		Playlists: make([]models.PlaylistRecord, 0, len(items)),
		Tracks:    make([]models.TrackRecord, 0, len(items)),
		Albums:    make([]models.AlbumRecord, 0, len(items)),
		Artists:   make([]models.ArtistRecord, 0, len(items)),
	}

	trackNo := 0
	for i, item := range items {
		rec, err := d.decomposeItem(i, item)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			ds.Skipped++
			continue
		}

		rec.playlist.PlaylistID = playlistID
		rec.playlist.TrackNo = trackNo
		trackNo++

		ds.Playlists = append(ds.Playlists, rec.playlist)
		ds.Tracks = append(ds.Tracks, rec.track)
		ds.Albums = append(ds.Albums, rec.album)
		ds.Artists = append(ds.Artists, rec.artists...)
	}
	return ds, nil
}

type itemRecords struct {
	playlist models.PlaylistRecord
	track    models.TrackRecord
	album    models.AlbumRecord
	artists  []models.ArtistRecord
}

// decomposeItem returns nil records for an item that should be skipped.
func (d *Decomposer) decomposeItem(index int, item models.RawTrackItem) (*itemRecords, error) {
	raw, ok := item["track"]
	if !ok {
		return nil, &shared.DecomposeError{Index: index, Path: "track", Err: errMissingField}
	}
	if raw == nil {
		return nil, nil
	}
	if _, ok := raw.(map[string]any); !ok {
		return nil, &shared.DecomposeError{Index: index, Path: "track", Err: fmt.Errorf("expected an object, got %T", raw)}
	}

	flat := Flatten(item)
	idRaw := flat[joinKey]
	if idRaw == nil {
		return nil, nil
	}
	trackID, ok := idRaw.(string)
	if !ok {
		return nil, &shared.DecomposeError{Index: index, Path: joinKey, Err: fmt.Errorf("expected a string, got %T", idRaw)}
	}
	if trackID == "" {
		return nil, nil
	}

	parts := Partition(d.rules, flat)
	for _, e := range models.Entities {
		parts[e][joinKey] = trackID
	}
	if albumID, ok := flat[albumKey]; ok {
		parts[models.EntityTrack][albumKey] = albumID
	}

	var (
		rec itemRecords
		err error
	)

	if rec.playlist, err = projectPlaylist(index, Rename(parts[models.EntityPlaylist], "")); err != nil {
		return nil, err
	}
	if rec.track, err = projectTrack(index, Rename(parts[models.EntityTrack], "track.")); err != nil {
		return nil, err
	}

	album := parts[models.EntityAlbum]
	imageURL, err := firstImageURL(album[albumImages])
	if err != nil {
		return nil, &shared.DecomposeError{Index: index, Path: albumImages, Err: err}
	}
	delete(album, albumImages)
	album[albumImageURL] = imageURL
	if rec.album, err = projectAlbum(index, Rename(album, "track.album.")); err != nil {
		return nil, err
	}

	rows, err := d.artists.Apply(parts[models.EntityArtist])
	if err != nil {
		return nil, &shared.DecomposeError{Index: index, Path: artistsField, Err: err}
	}
	rec.artists = make([]models.ArtistRecord, 0, len(rows))
	for _, row := range rows {
		a, err := projectArtist(index, Rename(row, ""))
		if err != nil {
			return nil, err
		}
		rec.artists = append(rec.artists, a)
	}

	return &rec, nil
}

// firstImageURL picks the url of the first image descriptor. Later images are never consulted.
func firstImageURL(v any) (string, error) {
	if v == nil {
		return "", nil
	}
	images, ok := v.([]any)
	if !ok {
		return "", fmt.Errorf("expected a list, got %T", v)
	}
	if len(images) == 0 {
		return "", nil
	}
	img, ok := images[0].(map[string]any)
	if !ok {
		return "", fmt.Errorf("element 0: expected an object, got %T", images[0])
	}
	switch u := img["url"].(type) {
	case nil:
		return "", nil
	case string:
		return u, nil
	default:
		return "", fmt.Errorf("element 0: url: expected a string, got %T", u)
	}
}
