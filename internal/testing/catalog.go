package testing

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// Fake client credentials accepted by [CatalogServer].
const (
	ClientID     = "test_client_id"
	ClientSecret = "test_client_secret"
)

// CatalogServer fakes the token endpoint and the playlist, tracks and artists endpoints.
//
// Paths: POST /api/token, GET /v1/playlists/{id}, GET /v1/playlists/{id}/tracks, GET /v1/artists.
type CatalogServer struct {
	*httptest.Server

	mu           sync.Mutex
	pages        map[string][][]map[string]any
	artists      map[string]map[string]any
	failures     map[string]int
	tokenStatus  int
	tokenCalls   int
	requests     []*http.Request
	artistCalls  [][]string
	bearerTokens []string
}

// NewCatalogServer starts a server that is closed with the test.
func NewCatalogServer(t *testing.T) *CatalogServer {
	t.Helper()
	cs := &CatalogServer{
		pages:    make(map[string][][]map[string]any),
		artists:  make(map[string]map[string]any),
		failures: make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/token", cs.handleToken)
	mux.HandleFunc("GET /v1/playlists/{id}", cs.handlePlaylist)
	mux.HandleFunc("GET /v1/playlists/{id}/tracks", cs.handleTracks)
	mux.HandleFunc("GET /v1/artists", cs.handleArtists)

	cs.Server = httptest.NewServer(cs.record(mux))
	t.Cleanup(cs.Close)
	return cs
}

// BaseURL is the API root, e.g. http://127.0.0.1:1234/v1.
func (cs *CatalogServer) BaseURL() string { return cs.URL + "/v1" }

// TokenURL is the credential exchange endpoint.
func (cs *CatalogServer) TokenURL() string { return cs.URL + "/api/token" }

// AddPlaylist registers the item pages of a playlist.
func (cs *CatalogServer) AddPlaylist(id string, pages ...[]map[string]any) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.pages[id] = pages
}

// AddArtist registers a full artist object.
func (cs *CatalogServer) AddArtist(id string, genres []string, followers int) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.artists[id] = map[string]any{
		"id":        id,
		"name":      "Artist " + id,
		"type":      "artist",
		"uri":       "spotify:artist:" + id,
		"genres":    genres,
		"followers": map[string]any{"href": nil, "total": followers},
	}
}

// FailPath makes every request to path answer with status.
func (cs *CatalogServer) FailPath(path string, status int) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.failures[path] = status
}

// FailToken makes the token endpoint answer with status.
func (cs *CatalogServer) FailToken(status int) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.tokenStatus = status
}

// TokenCalls returns the number of credential exchanges served.
func (cs *CatalogServer) TokenCalls() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.tokenCalls
}

// Requests returns the URLs of all API requests in arrival order, token calls excluded.
func (cs *CatalogServer) Requests() []string {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	out := make([]string, 0, len(cs.requests))
	for _, r := range cs.requests {
		out = append(out, r.URL.String())
	}
	return out
}

// BearerTokens returns the bearer token of every API request.
func (cs *CatalogServer) BearerTokens() []string {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return append([]string(nil), cs.bearerTokens...)
}

// ArtistBatches returns the ids of every bulk artist request.
func (cs *CatalogServer) ArtistBatches() [][]string {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return append([][]string(nil), cs.artistCalls...)
}

func (cs *CatalogServer) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/v1/") {
			cs.mu.Lock()
			cs.requests = append(cs.requests, r)
			cs.bearerTokens = append(cs.bearerTokens, strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
			status := cs.failures[r.URL.Path]
			cs.mu.Unlock()

			if status != 0 {
				writeError(w, status)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (cs *CatalogServer) handleToken(w http.ResponseWriter, r *http.Request) {
	cs.mu.Lock()
	cs.tokenCalls++
	n := cs.tokenCalls
	status := cs.tokenStatus
	cs.mu.Unlock()

	if status != 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprint(w, `{"error":"invalid_client"}`)
		return
	}

	id, secret, ok := r.BasicAuth()
	if !ok || id != ClientID || secret != ClientSecret {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":"invalid_client"}`)
		return
	}
	if err := r.ParseForm(); err != nil || r.PostForm.Get("grant_type") != "client_credentials" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	writeJSON(w, map[string]any{
		"access_token": fmt.Sprintf("token-%d", n),
		"token_type":   "bearer",
		"expires_in":   3600,
	})
}

func (cs *CatalogServer) handlePlaylist(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	cs.mu.Lock()
	pages, ok := cs.pages[id]
	cs.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound)
		return
	}

	total := 0
	for _, p := range pages {
		total += len(p)
	}
	writeJSON(w, map[string]any{
		"id":          id,
		"name":        "Playlist " + id,
		"description": "fixture",
		"snapshot_id": "snap-" + id,
		"owner":       map[string]any{"id": "curator", "display_name": "Curator"},
		"followers":   map[string]any{"href": nil, "total": 7},
		"tracks":      map[string]any{"total": total},
	})
}

func (cs *CatalogServer) handleTracks(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	cs.mu.Lock()
	pages, ok := cs.pages[id]
	cs.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound)
		return
	}

	n, _ := strconv.Atoi(r.URL.Query().Get("page"))
	body := map[string]any{"items": []map[string]any{}, "next": nil}
	if n < len(pages) {
		body["items"] = pages[n]
	}
	if n+1 < len(pages) {
		body["next"] = fmt.Sprintf("%s/v1/playlists/%s/tracks?page=%d", cs.URL, id, n+1)
	}
	writeJSON(w, body)
}

func (cs *CatalogServer) handleArtists(w http.ResponseWriter, r *http.Request) {
	ids := strings.Split(r.URL.Query().Get("ids"), ",")

	cs.mu.Lock()
	cs.artistCalls = append(cs.artistCalls, ids)
	artists := make([]any, 0, len(ids))
	for _, id := range ids {
		if a, ok := cs.artists[id]; ok {
			artists = append(artists, a)
		} else {
			artists = append(artists, nil)
		}
	}
	cs.mu.Unlock()

	writeJSON(w, map[string]any{"artists": artists})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"status": status, "message": http.StatusText(status)},
	})
}

// TrackItem builds a raw playlist-track item in the catalog's shape.
func TrackItem(trackID string, artistIDs ...string) map[string]any {
	artists := make([]any, 0, len(artistIDs))
	for _, a := range artistIDs {
		artists = append(artists, map[string]any{
			"id":            a,
			"name":          "Artist " + a,
			"href":          "https://api.spotify.com/v1/artists/" + a,
			"uri":           "spotify:artist:" + a,
			"type":          "artist",
			"external_urls": map[string]any{"spotify": "https://open.spotify.com/artist/" + a},
		})
	}
	return map[string]any{
		"added_at":      "2023-01-02T03:04:05Z",
		"added_by":      map[string]any{"id": "curator", "href": "https://api.spotify.com/v1/users/curator"},
		"primary_color": nil,
		"track": map[string]any{
			"id":           trackID,
			"name":         "Song " + trackID,
			"explicit":     false,
			"popularity":   50,
			"duration_ms":  180000,
			"disc_number":  1,
			"track_number": 1,
			"href":         "https://api.spotify.com/v1/tracks/" + trackID,
			"uri":          "spotify:track:" + trackID,
			"artists":      artists,
			"album": map[string]any{
				"id":           "album-" + trackID,
				"name":         "Album " + trackID,
				"album_type":   "album",
				"release_date": "2021-01-01",
				"total_tracks": 10,
				"href":         "https://api.spotify.com/v1/albums/album-" + trackID,
				"uri":          "spotify:album:album-" + trackID,
				"images": []any{
					map[string]any{"url": "https://i.scdn.co/image/" + trackID + "-640", "height": 640, "width": 640},
					map[string]any{"url": "https://i.scdn.co/image/" + trackID + "-300", "height": 300, "width": 300},
				},
			},
		},
	}
}
