package models

// Dataset is the decomposed output for one or more playlists.
type Dataset struct {
	Playlists []PlaylistRecord
	Tracks    []TrackRecord
	Albums    []AlbumRecord
	Artists   []ArtistRecord
	Skipped   int // raw items dropped because their track was null or had no id
}

// Merge appends other's records after d's, preserving order.
func (d *Dataset) Merge(other *Dataset) {
	if other == nil {
		return
	}
	d.Playlists = append(d.Playlists, other.Playlists...)
	d.Tracks = append(d.Tracks, other.Tracks...)
	d.Albums = append(d.Albums, other.Albums...)
	d.Artists = append(d.Artists, other.Artists...)
	d.Skipped += other.Skipped
}

// ArtistIDs returns the distinct artist ids in first-seen order.
func (d *Dataset) ArtistIDs() []string {
	seen := make(map[string]struct{}, len(d.Artists))
	ids := make([]string, 0, len(d.Artists))
	for _, a := range d.Artists {
		if a.ArtistID == "" {
			continue
		}
		if _, ok := seen[a.ArtistID]; ok {
			continue
		}
		seen[a.ArtistID] = struct{}{}
		ids = append(ids, a.ArtistID)
	}
	return ids
}

// Table is a rectangular view of one entity: a fixed header and one value slice per record.
type Table struct {
	Entity  Entity
	Columns []string
	Rows    [][]any
}

// Len returns the number of rows.
func (t Table) Len() int { return len(t.Rows) }

// Table renders the records of entity e. An empty dataset still yields the full header.
func (d *Dataset) Table(e Entity) Table {
	t := Table{Entity: e, Columns: e.Columns()}
	switch e {
	case EntityPlaylist:
		t.Rows = rows(d.Playlists)
	case EntityTrack:
		t.Rows = rows(d.Tracks)
	case EntityAlbum:
		t.Rows = rows(d.Albums)
	case EntityArtist:
		t.Rows = rows(d.Artists)
	}
	return t
}

// Tables renders every entity in [Entities] order.
func (d *Dataset) Tables() []Table {
	tables := make([]Table, 0, len(Entities))
	for _, e := range Entities {
		tables = append(tables, d.Table(e))
	}
	return tables
}

type valuer interface{ Values() []any }

func rows[T valuer](records []T) [][]any {
	out := make([][]any, 0, len(records))
	for _, r := range records {
		out = append(out, r.Values())
	}
	return out
}
