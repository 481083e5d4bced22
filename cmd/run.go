package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/playlist-etl/internal/shared"
	"github.com/desertthunder/playlist-etl/internal/tasks"
	"github.com/desertthunder/playlist-etl/internal/ui"
	"github.com/urfave/cli/v3"
)

// Run extracts the playlists named on the command line into the bucket.
//
// Start and end times and the elapsed seconds are logged whether or not the run succeeds.
func (r *Runner) Run(ctx context.Context, cmd *cli.Command) error {
	args := cmd.Args().Slice()
	if len(args) < 2 {
		return fmt.Errorf("%w: usage: petl run <bucket> <playlist_id>...", shared.ErrMissingArgument)
	}
	bucket, ids := args[0], args[1:]

	p, err := r.pipeline(ctx, cmd.Bool("enrich"), cmd.String("format"))
	if err != nil {
		return err
	}

	timeout := cmd.Duration("timeout")
	if timeout <= 0 {
		timeout = r.config.API.Timeout()
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opts := tasks.RunOpts{
		Object:      cmd.String("object"),
		Bucket:      bucket,
		PlaylistIDs: ids,
		Suffix:      cmd.String("suffix"),
	}

	start := time.Now()
	r.logger.Info("start", "time", start.Format(time.RFC3339), "bucket", bucket, "playlists", len(ids))

	var result *tasks.RunResult
	if cmd.Bool("progress") {
		result, err = ui.Run(runCtx, bucket, func(ctx context.Context, progress chan<- tasks.ProgressUpdate) (*tasks.RunResult, error) {
			return p.Run(ctx, opts, progress)
		})
	} else {
		result, err = p.Run(runCtx, opts, nil)
	}

	end := time.Now()
	r.logger.Info("end", "time", end.Format(time.RFC3339), "elapsed", end.Sub(start).Seconds())
	if err != nil {
		return err
	}

	if !cmd.Bool("progress") {
		return r.writePlain("%s\n", ui.FilesTable(bucket, result.Files))
	}
	return nil
}
