package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/desertthunder/playlist-etl/internal/shared"
)

// LocalSink stores each bucket as a directory under Root.
type LocalSink struct {
	Root string
}

func NewLocalSink(root string) *LocalSink {
	return &LocalSink{Root: root}
}

func (l *LocalSink) EnsureBucket(ctx context.Context, bucket string) error {
	dir, err := l.path(bucket, "")
	if err != nil {
		return &shared.StorageError{Op: "create", Bucket: bucket, Err: err}
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &shared.StorageError{Op: "create", Bucket: bucket, Err: err}
	}
	return nil
}

func (l *LocalSink) Put(ctx context.Context, bucket, key string, body []byte, contentType string) error {
	if err := ctx.Err(); err != nil {
		return &shared.StorageError{Op: "put", Bucket: bucket, Key: key, Err: err}
	}
	path, err := l.path(bucket, key)
	if err != nil {
		return &shared.StorageError{Op: "put", Bucket: bucket, Key: key, Err: err}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return &shared.StorageError{Op: "put", Bucket: bucket, Key: key, Err: err}
	}
	if err := os.WriteFile(path, body, 0644); err != nil {
		return &shared.StorageError{Op: "put", Bucket: bucket, Key: key, Err: err}
	}
	return nil
}

// Path returns the file path of an object.
func (l *LocalSink) Path(bucket, key string) string {
	p, _ := l.path(bucket, key)
	return p
}

func (l *LocalSink) path(bucket, key string) (string, error) {
	if bucket == "" || strings.ContainsAny(bucket, `/\`) || bucket == "." || bucket == ".." {
		return "", fmt.Errorf("%w: invalid bucket name %q", shared.ErrInvalidArgument, bucket)
	}
	p := filepath.Join(l.Root, bucket, filepath.FromSlash(key))
	base := filepath.Join(l.Root, bucket)
	if p != base && !strings.HasPrefix(p, base+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: key %q escapes the bucket", shared.ErrInvalidArgument, key)
	}
	return p, nil
}
