package formatter

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/desertthunder/playlist-etl/internal/models"
	"github.com/desertthunder/playlist-etl/internal/shared"
	th "github.com/desertthunder/playlist-etl/internal/testing"
)

func sampleDataset() *models.Dataset {
	rock := "rock"
	followers := 1200
	return &models.Dataset{
		Playlists: []models.PlaylistRecord{
			{PlaylistID: "pl1", TrackNo: 0, TrackID: "t1", AddedAt: "2023-01-02T03:04:05Z", AddedByID: "curator"},
		},
		Artists: []models.ArtistRecord{
			{ArtistOrder: 0, TrackID: "t1", ArtistID: "a1", Name: "Comma, Artist", Type: "artist", Genre1: &rock, Followers: &followers},
			{ArtistOrder: 1, TrackID: "t1", ArtistID: "a2", Name: "Plain", Type: "artist"},
		},
	}
}

func TestEncoders(t *testing.T) {
	ds := sampleDataset()

	t.Run("ToCSV", func(t *testing.T) {
		data, err := ToCSV(ds.Table(models.EntityArtist))
		if err != nil {
			t.Fatalf("ToCSV failed: %v", err)
		}

		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		if len(lines) != 3 {
			t.Fatalf("expected header and 2 rows, got %d lines: %s", len(lines), data)
		}
		if lines[0] != strings.Join(models.ArtistColumns, ",") {
			t.Errorf("unexpected header %s", lines[0])
		}
		if lines[1] != `0,t1,a1,"Comma, Artist",,,artist,rock,,1200` {
			t.Errorf("unexpected enriched row %s", lines[1])
		}
		if lines[2] != "1,t1,a2,Plain,,,artist,,," {
			t.Errorf("unenriched row should have empty cells, got %s", lines[2])
		}
	})

	t.Run("ToCSV on empty dataset keeps headers", func(t *testing.T) {
		empty := &models.Dataset{}
		for _, table := range empty.Tables() {
			data, err := ToCSV(table)
			if err != nil {
				t.Fatalf("ToCSV failed: %v", err)
			}
			want := strings.Join(table.Columns, ",") + "\n"
			if string(data) != want {
				t.Errorf("%s: expected %q, got %q", table.Entity, want, data)
			}
		}
	})

	t.Run("ToJSON", func(t *testing.T) {
		data, err := ToJSON(ds.Table(models.EntityPlaylist))
		if err != nil {
			t.Fatalf("ToJSON failed: %v", err)
		}

		var rows []map[string]any
		if err := json.Unmarshal(data, &rows); err != nil {
			t.Fatalf("output is not valid JSON: %v\n%s", err, data)
		}
		if len(rows) != 1 || rows[0]["playlist_id"] != "pl1" || rows[0]["track_no"] != float64(0) {
			t.Errorf("unexpected rows %v", rows)
		}
		if !strings.HasPrefix(string(data), `[`+"\n"+`{"playlist_id":"pl1","track_no":0,`) {
			t.Errorf("expected keys in column order, got %s", data)
		}
	})

	t.Run("ToJSON on empty table", func(t *testing.T) {
		data, err := ToJSON((&models.Dataset{}).Table(models.EntityTrack))
		if err != nil {
			t.Fatalf("ToJSON failed: %v", err)
		}
		if string(data) != "[]\n" {
			t.Errorf("expected empty array, got %q", data)
		}
	})

	t.Run("ragged rows are rejected", func(t *testing.T) {
		table := models.Table{Entity: models.EntityTrack, Columns: []string{"a", "b"}, Rows: [][]any{{"only"}}}
		for _, f := range []Format{CSV, JSON} {
			if _, err := Encode(table, f); !errors.Is(err, shared.ErrInvalidInput) {
				t.Errorf("%s: expected ErrInvalidInput, got %v", f, err)
			}
		}
	})
}

func TestFormat(t *testing.T) {
	t.Run("ParseFormat", func(t *testing.T) {
		tt := []struct {
			in      string
			want    Format
			wantErr bool
		}{
			{in: "csv", want: CSV},
			{in: "json", want: JSON},
			{in: "parquet", wantErr: true},
		}
		for _, tc := range tt {
			got, err := ParseFormat(tc.in)
			if tc.wantErr {
				if !errors.Is(err, shared.ErrInvalidArgument) {
					t.Errorf("%s: expected ErrInvalidArgument, got %v", tc.in, err)
				}
				continue
			}
			if err != nil || got != tc.want {
				t.Errorf("%s: expected %s, got %s (%v)", tc.in, tc.want, got, err)
			}
		}
	})

	t.Run("content types", func(t *testing.T) {
		if CSV.ContentType() != "text/csv" || JSON.ContentType() != "application/json" {
			t.Errorf("unexpected content types %s, %s", CSV.ContentType(), JSON.ContentType())
		}
		if CSV.Extension() != "csv" {
			t.Errorf("expected csv extension, got %s", CSV.Extension())
		}
	})
}

func TestWriteTable(t *testing.T) {
	t.Run("write failure", func(t *testing.T) {
		err := WriteTable(&th.FWriter{}, sampleDataset().Table(models.EntityPlaylist), CSV)
		if err == nil {
			t.Error("expected error from failing writer")
		}
	})

	t.Run("writes encoded table", func(t *testing.T) {
		var sb strings.Builder
		if err := WriteTable(&sb, sampleDataset().Table(models.EntityPlaylist), CSV); err != nil {
			t.Fatalf("WriteTable failed: %v", err)
		}
		if !strings.HasPrefix(sb.String(), "playlist_id,track_no") {
			t.Errorf("unexpected output %s", sb.String())
		}
	})
}
