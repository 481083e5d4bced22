package models

import (
	"reflect"
	"testing"
)

func TestDataset(t *testing.T) {
	t.Run("empty dataset keeps headers", func(t *testing.T) {
		var d Dataset
		for _, table := range d.Tables() {
			if len(table.Columns) == 0 {
				t.Errorf("%s: expected columns for empty table", table.Entity)
			}
			if table.Len() != 0 {
				t.Errorf("%s: expected no rows, got %d", table.Entity, table.Len())
			}
		}
	})

	t.Run("row width matches schema", func(t *testing.T) {
		g := "indie"
		d := Dataset{
			Playlists: []PlaylistRecord{{PlaylistID: "p", TrackID: "t"}},
			Tracks:    []TrackRecord{{TrackID: "t"}},
			Albums:    []AlbumRecord{{TrackID: "t", AlbumID: "a"}},
			Artists:   []ArtistRecord{{TrackID: "t", ArtistID: "x", Genre1: &g}},
		}
		for _, table := range d.Tables() {
			for _, row := range table.Rows {
				if len(row) != len(table.Columns) {
					t.Errorf("%s: row has %d values for %d columns", table.Entity, len(row), len(table.Columns))
				}
			}
		}

		artist := d.Table(EntityArtist).Rows[0]
		if artist[7] != "indie" || artist[8] != nil || artist[9] != nil {
			t.Errorf("unexpected enrichment values %v", artist[7:])
		}
	})

	t.Run("Merge preserves order", func(t *testing.T) {
		a := &Dataset{Tracks: []TrackRecord{{TrackID: "1"}}, Skipped: 1}
		b := &Dataset{Tracks: []TrackRecord{{TrackID: "2"}, {TrackID: "3"}}, Skipped: 2}
		a.Merge(b)
		a.Merge(nil)

		var ids []string
		for _, tr := range a.Tracks {
			ids = append(ids, tr.TrackID)
		}
		if !reflect.DeepEqual(ids, []string{"1", "2", "3"}) {
			t.Errorf("unexpected order %v", ids)
		}
		if a.Skipped != 3 {
			t.Errorf("expected 3 skipped, got %d", a.Skipped)
		}
	})

	t.Run("ArtistIDs dedups in first-seen order", func(t *testing.T) {
		d := Dataset{Artists: []ArtistRecord{
			{ArtistID: "b"}, {ArtistID: "a"}, {ArtistID: "b"}, {ArtistID: ""}, {ArtistID: "c"},
		}}
		if got := d.ArtistIDs(); !reflect.DeepEqual(got, []string{"b", "a", "c"}) {
			t.Errorf("unexpected ids %v", got)
		}
	})
}

func TestRun(t *testing.T) {
	t.Run("Validate", func(t *testing.T) {
		r := &Run{ID: "r1", Bucket: "b", PlaylistIDs: []string{"p"}, Status: RunRunning}
		if err := r.Validate(); err != nil {
			t.Errorf("expected valid run, got %v", err)
		}

		r.Status = "paused"
		if err := r.Validate(); err == nil {
			t.Error("expected error for invalid status")
		}
	})

	t.Run("ids round trip", func(t *testing.T) {
		ids := []string{"a", "b"}
		if got := SplitIDs(JoinIDs(ids)); !reflect.DeepEqual(got, ids) {
			t.Errorf("expected %v, got %v", ids, got)
		}
		if SplitIDs("") != nil {
			t.Error("expected nil for empty string")
		}
	})
}

func TestParseEntity(t *testing.T) {
	tt := []struct {
		in   string
		want Entity
		ok   bool
	}{
		{in: "tracks", want: EntityTrack, ok: true},
		{in: "album", want: EntityAlbum, ok: true},
		{in: " Artists ", want: EntityArtist, ok: true},
		{in: "playlist", want: EntityPlaylist, ok: true},
		{in: "genres", ok: false},
		{in: "", ok: false},
	}

	for _, tc := range tt {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseEntity(tc.in)
			if (err == nil) != tc.ok {
				t.Fatalf("expected ok=%v, got %v", tc.ok, err)
			}
			if got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}
