package tasks

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/playlist-etl/internal/shared"
)

// WorkQueue is the leasing queue a [Worker] drains. [queue.RedisQueue] implements it.
type WorkQueue interface {
	SessionID() string
	Lease(ctx context.Context, lease time.Duration, block bool, timeout time.Duration) (string, bool, error)
	Complete(ctx context.Context, item string) error
	Empty(ctx context.Context) (bool, error)
	Reclaim(ctx context.Context) (int, error)
}

// WorkerOpts configures a [Worker].
type WorkerOpts struct {
	Bucket     string
	Lease      time.Duration // defaults to 80s
	Wait       time.Duration // blocking lease timeout, defaults to 2s
	Batch      int           // playlists per run, defaults to 2
	RunTimeout time.Duration // per-run deadline, zero disables
	Logger     *log.Logger
}

// WorkerStats counts what a [Worker] did with the items it leased.
type WorkerStats struct {
	Runs      int // successful pipeline runs
	Completed int // items written and removed from the queue
	Dropped   int // items removed after a permanent failure
	Abandoned int // items left for lease expiry after a transient failure
}

// Worker leases playlist ids from a queue and runs the pipeline over each batch.
//
// Delivery is at-least-once: items are completed only after their objects are written,
// or when their failure cannot be fixed by retrying.
type Worker struct {
	queue    WorkQueue
	pipeline Orchestrator
	opts     WorkerOpts
	logger   *log.Logger
}

// NewWorker creates a [Worker].
func NewWorker(q WorkQueue, pipeline Orchestrator, opts WorkerOpts) *Worker {
	if opts.Lease <= 0 {
		opts.Lease = 80 * time.Second
	}
	if opts.Wait <= 0 {
		opts.Wait = 2 * time.Second
	}
	if opts.Batch <= 0 {
		opts.Batch = 2
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	return &Worker{
		queue:    q,
		pipeline: pipeline,
		opts:     opts,
		logger:   opts.Logger.With("session", q.SessionID()),
	}
}

// Run drains the queue and returns once it is empty or ctx is done.
//
// Queue errors stop the worker; pipeline errors do not.
func (w *Worker) Run(ctx context.Context) (WorkerStats, error) {
	var stats WorkerStats
	w.logger.Info("worker started")

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		empty, err := w.queue.Empty(ctx)
		if err != nil {
			return stats, err
		}
		if empty {
			w.logger.Info("queue empty, exiting", "runs", stats.Runs, "completed", stats.Completed, "dropped", stats.Dropped)
			return stats, nil
		}

		if n, err := w.queue.Reclaim(ctx); err != nil {
			return stats, err
		} else if n > 0 {
			w.logger.Warn("reclaimed expired leases", "items", n)
		}

		items, err := w.lease(ctx)
		if err != nil {
			return stats, err
		}
		if len(items) == 0 {
			continue
		}

		if err := w.process(ctx, items, &stats); err != nil {
			return stats, err
		}
	}
}

func (w *Worker) lease(ctx context.Context) ([]string, error) {
	items := make([]string, 0, w.opts.Batch)
	for range w.opts.Batch {
		item, ok, err := w.queue.Lease(ctx, w.opts.Lease, len(items) == 0, w.opts.Wait)
		if err != nil {
			return items, err
		}
		if !ok {
			break
		}
		items = append(items, item)
	}
	return items, nil
}

// process runs the pipeline over items, dropping permanently failing ones and retrying the rest in place.
func (w *Worker) process(ctx context.Context, items []string, stats *WorkerStats) error {
	pending := slices.Clone(items)
	for len(pending) > 0 {
		runCtx, cancel := ctx, context.CancelFunc(func() {})
		if w.opts.RunTimeout > 0 {
			runCtx, cancel = context.WithTimeout(ctx, w.opts.RunTimeout)
		}
		result, err := w.pipeline.Run(runCtx, RunOpts{
			Object:      ObjectPlaylist,
			Bucket:      w.opts.Bucket,
			PlaylistIDs: pending,
			Suffix:      w.queue.SessionID(),
			SessionID:   w.queue.SessionID(),
		}, nil)
		cancel()

		if err == nil {
			stats.Runs++
			for _, item := range pending {
				if err := w.queue.Complete(ctx, item); err != nil {
					return err
				}
				stats.Completed++
			}
			w.logger.Info("batch written", "playlists", pending, "run", result.RunID)
			return nil
		}

		var pe *PlaylistError
		if !errors.As(err, &pe) || !IsPermanent(pe.Err) {
			w.logger.Warn("batch failed, leaving for lease expiry", "playlists", pending, "err", err)
			stats.Abandoned += len(pending)
			return nil
		}

		w.logger.Error("dropping playlist", "playlist", pe.PlaylistID, "err", pe.Err)
		if err := w.queue.Complete(ctx, pe.PlaylistID); err != nil {
			return err
		}
		stats.Dropped++
		pending = slices.DeleteFunc(pending, func(id string) bool { return id == pe.PlaylistID })
	}
	return nil
}
