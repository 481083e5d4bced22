package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/playlist-etl/internal/shared"
	"github.com/desertthunder/playlist-etl/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Worker drains the work queue, running the pipeline over each leased batch.
func (r *Runner) Worker(ctx context.Context, cmd *cli.Command) error {
	bucket := cmd.Args().First()
	if bucket == "" {
		bucket = r.config.Storage.Bucket
	}
	if bucket == "" {
		return fmt.Errorf("%w: bucket (argument, storage.bucket or AWS_BUCKET)", shared.ErrMissingArgument)
	}

	q, err := r.openQueue(ctx, cmd.String("queue"))
	if err != nil {
		return err
	}
	p, err := r.pipeline(ctx, cmd.Bool("enrich"), "")
	if err != nil {
		return err
	}

	batch := int(cmd.Int("batch"))
	if batch <= 0 {
		batch = r.config.Queue.Batch
	}
	lease := cmd.Duration("lease")
	if lease <= 0 {
		lease = r.config.Queue.Lease()
	}

	r.logger.Info("worker session", "id", q.SessionID(), "queue", q.Name(), "bucket", bucket)
	w := tasks.NewWorker(q, p, tasks.WorkerOpts{
		Bucket:     bucket,
		Lease:      lease,
		Wait:       r.config.Queue.Wait(),
		Batch:      batch,
		RunTimeout: r.config.API.Timeout(),
		Logger:     r.logger,
	})

	stats, err := w.Run(ctx)
	if err != nil {
		return err
	}

	return r.writePlain("✓ Queue drained: %d runs, %d completed, %d dropped, %d abandoned\n",
		stats.Runs, stats.Completed, stats.Dropped, stats.Abandoned)
}

// QueuePush enqueues playlist ids.
func (r *Runner) QueuePush(ctx context.Context, cmd *cli.Command) error {
	ids := cmd.Args().Slice()
	if len(ids) == 0 {
		return fmt.Errorf("%w: at least one playlist id", shared.ErrMissingArgument)
	}

	q, err := r.openQueue(ctx, cmd.String("queue"))
	if err != nil {
		return err
	}
	if err := q.Push(ctx, ids...); err != nil {
		return err
	}

	r.logger.Info("queued playlists", "queue", q.Name(), "count", len(ids))
	return r.writePlain("✓ Queued %d playlists on %s\n", len(ids), q.Name())
}

// QueueStats prints pending and leased item counts.
func (r *Runner) QueueStats(ctx context.Context, cmd *cli.Command) error {
	q, err := r.openQueue(ctx, cmd.String("queue"))
	if err != nil {
		return err
	}
	stats, err := q.Stats(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{"queue": q.Name(), "pending": stats.Pending, "processing": stats.Processing}, false)
	}
	return r.writePlain("%s: %d pending, %d processing\n", q.Name(), stats.Pending, stats.Processing)
}

// QueueReclaim returns items with expired leases to the queue.
func (r *Runner) QueueReclaim(ctx context.Context, cmd *cli.Command) error {
	q, err := r.openQueue(ctx, cmd.String("queue"))
	if err != nil {
		return err
	}
	n, err := q.Reclaim(ctx)
	if err != nil {
		return err
	}
	return r.writePlain("✓ Reclaimed %d items\n", n)
}
