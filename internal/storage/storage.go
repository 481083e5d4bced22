// package storage writes entity files to object storage.
package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/playlist-etl/internal/models"
)

// StampLayout is the run timestamp layout: day, month, two-digit year, then time of day.
const StampLayout = "020106_150405"

// Sink is an object store.
type Sink interface {
	// EnsureBucket creates bucket when it does not exist yet.
	EnsureBucket(ctx context.Context, bucket string) error
	// Put writes one object, replacing any existing object at key.
	Put(ctx context.Context, bucket, key string, body []byte, contentType string) error
}

// RunStamp formats t as a run timestamp.
func RunStamp(t time.Time) string {
	return t.Format(StampLayout)
}

// ObjectKey returns <entity>/<stamp>[_<suffix>].<ext>.
func ObjectKey(entity models.Entity, stamp, suffix, ext string) string {
	name := stamp
	if suffix = strings.TrimSpace(suffix); suffix != "" {
		name += "_" + suffix
	}
	return fmt.Sprintf("%s/%s.%s", entity, name, ext)
}
