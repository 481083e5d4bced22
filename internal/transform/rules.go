package transform

import (
	"strings"

	"github.com/desertthunder/playlist-etl/internal/models"
)

// Rule claims every field whose path starts with Prefix, unless it also starts with one of Exclude.
type Rule struct {
	Prefix  string
	Exclude []string
	Entity  models.Entity
}

// Matches reports whether path falls under the rule.
func (r Rule) Matches(path string) bool {
	if !strings.HasPrefix(path, r.Prefix) {
		return false
	}
	for _, ex := range r.Exclude {
		if strings.HasPrefix(path, ex) {
			return false
		}
	}
	return true
}

// DefaultRules routes playlist-track fields. Order matters: the first matching rule wins.
var DefaultRules = []Rule{
	{Prefix: "track.album.", Exclude: []string{"track.album.artists"}, Entity: models.EntityAlbum},
	{Prefix: "track.artists", Entity: models.EntityArtist},
	{Prefix: "track.", Entity: models.EntityTrack},
	{Prefix: "", Entity: models.EntityPlaylist},
}

// Classify returns the entity of the first rule matching path.
func Classify(rules []Rule, path string) (models.Entity, bool) {
	for _, r := range rules {
		if r.Matches(path) {
			return r.Entity, true
		}
	}
	return "", false
}

// Partition splits a flattened row into one map per entity. Unclaimed fields are dropped.
func Partition(rules []Rule, flat map[string]any) map[models.Entity]map[string]any {
	parts := make(map[models.Entity]map[string]any, len(models.Entities))
	for _, e := range models.Entities {
		parts[e] = make(map[string]any)
	}
	for path, v := range flat {
		e, ok := Classify(rules, path)
		if !ok {
			continue
		}
		if parts[e] == nil {
			parts[e] = make(map[string]any)
		}
		parts[e][path] = v
	}
	return parts
}
