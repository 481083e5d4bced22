package main

import (
	"context"

	"github.com/desertthunder/playlist-etl/internal/models"
	"github.com/desertthunder/playlist-etl/internal/ui"
	"github.com/urfave/cli/v3"
)

// runView is the JSON shape of a ledger entry.
type runView struct {
	ID          string           `json:"id"`
	Object      string           `json:"object"`
	Bucket      string           `json:"bucket"`
	PlaylistIDs []string         `json:"playlist_ids"`
	SessionID   string           `json:"session_id,omitempty"`
	Status      models.RunStatus `json:"status"`
	Error       string           `json:"error,omitempty"`
	Skipped     int              `json:"skipped"`
	StartedAt   string           `json:"started_at"`
	Elapsed     float64          `json:"elapsed_seconds"`
	Files       []fileView       `json:"files,omitempty"`
}

type fileView struct {
	Entity models.Entity `json:"entity"`
	Key    string        `json:"key"`
	Rows   int           `json:"rows"`
}

func newRunView(run *models.Run) runView {
	v := runView{
		ID:          run.ID,
		Object:      run.Object,
		Bucket:      run.Bucket,
		PlaylistIDs: run.PlaylistIDs,
		SessionID:   run.SessionID,
		Status:      run.Status,
		Error:       run.Error,
		Skipped:     run.Skipped,
		StartedAt:   run.StartedAt.UTC().Format("2006-01-02T15:04:05Z"),
		Elapsed:     run.Elapsed().Seconds(),
	}
	for _, f := range run.Files {
		v.Files = append(v.Files, fileView{Entity: f.Entity, Key: f.Key, Rows: f.Rows})
	}
	return v
}

// Runs lists recent ledger entries, or the files of the run given as argument.
func (r *Runner) Runs(ctx context.Context, cmd *cli.Command) error {
	ledger, err := r.ledger()
	if err != nil {
		return err
	}

	if id := cmd.Args().First(); id != "" {
		run, err := ledger.Get(id)
		if err != nil {
			return err
		}
		if cmd.Bool("json") {
			return r.writeJSON(newRunView(run), true)
		}
		return r.writePlain("%s\n%s\n", ui.RunsTable([]*models.Run{run}), ui.FilesTable(run.Bucket, run.Files))
	}

	runs, err := ledger.List(int(cmd.Int("limit")))
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		views := make([]runView, 0, len(runs))
		for _, run := range runs {
			views = append(views, newRunView(run))
		}
		return r.writeJSON(views, true)
	}
	if len(runs) == 0 {
		return r.writePlain("No runs recorded in %s\n", r.config.Database.Path)
	}
	return r.writePlain("%s\n", ui.RunsTable(runs))
}
