package models

import (
	"fmt"
	"strings"
	"time"
)

// RunStatus is the lifecycle state of a pipeline run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// Run is a ledger entry for one pipeline invocation over a set of playlists.
type Run struct {
	ID          string
	Object      string
	Bucket      string
	PlaylistIDs []string
	SessionID   string
	Status      RunStatus
	Error       string
	Skipped     int
	StartedAt   time.Time
	FinishedAt  *time.Time
	Files       []RunFile
}

// RunFile is one object written by a run.
type RunFile struct {
	RunID  string
	Entity Entity
	Key    string
	Rows   int
}

// Validate checks the fields required to persist a run.
func (r *Run) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("run id is required")
	}
	if r.Bucket == "" {
		return fmt.Errorf("run bucket is required")
	}
	if len(r.PlaylistIDs) == 0 {
		return fmt.Errorf("run needs at least one playlist id")
	}
	switch r.Status {
	case RunRunning, RunSucceeded, RunFailed:
	default:
		return fmt.Errorf("invalid run status %q", r.Status)
	}
	return nil
}

// Elapsed returns the run duration, or zero while it is still running.
func (r *Run) Elapsed() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// JoinIDs encodes playlist ids for storage.
func JoinIDs(ids []string) string { return strings.Join(ids, ",") }

// SplitIDs decodes ids produced by [JoinIDs].
func SplitIDs(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
