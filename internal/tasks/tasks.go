package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/playlist-etl/internal/formatter"
	"github.com/desertthunder/playlist-etl/internal/models"
	"github.com/desertthunder/playlist-etl/internal/services"
	"github.com/desertthunder/playlist-etl/internal/shared"
	"github.com/desertthunder/playlist-etl/internal/storage"
	"github.com/desertthunder/playlist-etl/internal/transform"
)

// ObjectPlaylist is the only object type the pipeline extracts.
const ObjectPlaylist = "playlist"

// Ledger records pipeline runs. [repositories.RunRepository] implements it.
type Ledger interface {
	Start(run *models.Run) error
	AddFile(file models.RunFile) error
	Finish(id string, status models.RunStatus, runErr error, skipped int) error
}

// Orchestrator runs the extract-transform-load sequence for a set of playlists.
type Orchestrator interface {
	Run(ctx context.Context, opts RunOpts, progress chan<- ProgressUpdate) (*RunResult, error)
}

// RunOpts selects what a single pipeline run extracts and where it lands.
type RunOpts struct {
	Object      string   // defaults to [ObjectPlaylist]
	Bucket      string   // destination bucket
	PlaylistIDs []string // processed in order; all succeed or nothing is written
	Suffix      string   // appended to the run timestamp in every object key
	SessionID   string   // worker session, recorded in the ledger
}

// RunResult describes a completed run.
type RunResult struct {
	RunID      string
	Stamp      string
	Dataset    *models.Dataset
	Files      []models.RunFile
	StartedAt  time.Time
	FinishedAt time.Time
}

// Elapsed returns the wall time of the run.
func (r *RunResult) Elapsed() time.Duration { return r.FinishedAt.Sub(r.StartedAt) }

// PlaylistError attributes a fetch or decompose failure to one playlist.
type PlaylistError struct {
	PlaylistID string
	Err        error
}

func (e *PlaylistError) Error() string {
	return fmt.Sprintf("playlist %s: %v", e.PlaylistID, e.Err)
}

func (e *PlaylistError) Unwrap() error { return e.Err }

// IsPermanent reports whether retrying the same input cannot succeed.
//
// Malformed items and client errors other than 401/429 are permanent.
func IsPermanent(err error) bool {
	var de *shared.DecomposeError
	if errors.As(err, &de) {
		return true
	}
	var fe *shared.FetchError
	if errors.As(err, &fe) {
		return fe.Permanent()
	}
	return false
}

// PipelineOpts configures a [Pipeline].
type PipelineOpts struct {
	BaseURL  string           // catalog API root
	Fields   string           // field filter sent with the first page request
	Format   formatter.Format // defaults to CSV
	Enricher services.Enricher
	Ledger   Ledger
	Logger   *log.Logger
}

// Pipeline implements [Orchestrator].
//
// A run is sequential: playlists are fetched and decomposed one after another, merged, optionally enriched,
// encoded, and written as one object per entity.
type Pipeline struct {
	fetcher    services.ItemFetcher
	decomposer *transform.Decomposer
	enricher   services.Enricher
	sink       storage.Sink
	ledger     Ledger
	format     formatter.Format
	baseURL    string
	fields     string
	logger     *log.Logger
	now        func() time.Time
}

// NewPipeline creates a [Pipeline] reading through fetcher and writing to sink.
func NewPipeline(fetcher services.ItemFetcher, sink storage.Sink, opts PipelineOpts) *Pipeline {
	if opts.Format == "" {
		opts.Format = formatter.CSV
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	return &Pipeline{
		fetcher:    fetcher,
		decomposer: transform.NewDecomposer(nil),
		enricher:   opts.Enricher,
		sink:       sink,
		ledger:     opts.Ledger,
		format:     opts.Format,
		baseURL:    opts.BaseURL,
		fields:     opts.Fields,
		logger:     opts.Logger,
		now:        time.Now,
	}
}

// SetClock replaces the time source used for run stamps.
func (p *Pipeline) SetClock(now func() time.Time) { p.now = now }

// sendProgress sends a progress update through the channel without blocking.
func (p *Pipeline) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Run extracts every playlist in opts and writes the four entity objects.
//
// Any fetch or decompose failure returns a [*PlaylistError] before anything is written.
func (p *Pipeline) Run(ctx context.Context, opts RunOpts, progress chan<- ProgressUpdate) (*RunResult, error) {
	if opts.Object == "" {
		opts.Object = ObjectPlaylist
	}
	if opts.Object != ObjectPlaylist {
		return nil, fmt.Errorf("%w: %q", shared.ErrUnsupportedObject, opts.Object)
	}
	if opts.Bucket == "" {
		return nil, fmt.Errorf("%w: bucket", shared.ErrMissingArgument)
	}
	if len(opts.PlaylistIDs) == 0 {
		return nil, fmt.Errorf("%w: at least one playlist id", shared.ErrMissingArgument)
	}

	started := p.now().UTC()
	run := &models.Run{
		ID:          shared.GenerateID(),
		Object:      opts.Object,
		Bucket:      opts.Bucket,
		PlaylistIDs: opts.PlaylistIDs,
		SessionID:   opts.SessionID,
		StartedAt:   started,
	}
	if p.ledger != nil {
		if err := p.ledger.Start(run); err != nil {
			return nil, fmt.Errorf("failed to record run: %w", err)
		}
	}

	logger := p.logger.With("run", run.ID)
	logger.Info("run started", "bucket", opts.Bucket, "playlists", len(opts.PlaylistIDs))

	result, err := p.run(ctx, logger, run, opts, progress)
	if err != nil {
		logger.Error("run failed", "err", err)
		p.finish(logger, run.ID, models.RunFailed, err, 0)
		return nil, err
	}

	result.FinishedAt = p.now().UTC()
	p.finish(logger, run.ID, models.RunSucceeded, nil, result.Dataset.Skipped)
	logger.Info("run finished", "files", len(result.Files), "elapsed", result.Elapsed().Seconds())
	return result, nil
}

func (p *Pipeline) run(ctx context.Context, logger *log.Logger, run *models.Run, opts RunOpts, progress chan<- ProgressUpdate) (*RunResult, error) {
	if err := p.sink.EnsureBucket(ctx, opts.Bucket); err != nil {
		return nil, err
	}

	merged := &models.Dataset{}
	total := len(opts.PlaylistIDs)
	for i, id := range opts.PlaylistIDs {
		p.sendProgress(progress, fetchItemsUpdate(i+1, total, id))

		items, err := p.fetcher.FetchAll(ctx, services.PlaylistTracksURL(p.baseURL, id), p.fields)
		if err != nil {
			return nil, &PlaylistError{PlaylistID: id, Err: err}
		}

		ds, err := p.decomposer.Decompose(items, id)
		if err != nil {
			return nil, &PlaylistError{PlaylistID: id, Err: err}
		}

		logger.Debug("decomposed playlist", "playlist", id, "items", len(items), "skipped", ds.Skipped)
		p.sendProgress(progress, decomposedUpdate(i+1, total, id, ds))
		merged.Merge(ds)
	}

	if p.enricher != nil {
		ids := merged.ArtistIDs()
		p.sendProgress(progress, enrichUpdate(len(ids)))
		infos, err := p.enricher.Enrich(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("artist enrichment failed: %w", err)
		}
		services.Join(merged, infos)
	}

	tables := merged.Tables()
	bodies := make([][]byte, len(tables))
	for i, t := range tables {
		p.sendProgress(progress, encodeUpdate(i+1, len(tables), t))
		body, err := formatter.Encode(t, p.format)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", t.Entity, err)
		}
		bodies[i] = body
	}

	result := &RunResult{
		RunID:     run.ID,
		Stamp:     storage.RunStamp(run.StartedAt),
		Dataset:   merged,
		StartedAt: run.StartedAt,
	}
	for i, t := range tables {
		file := models.RunFile{
			RunID:  run.ID,
			Entity: t.Entity,
			Key:    storage.ObjectKey(t.Entity, result.Stamp, opts.Suffix, p.format.Extension()),
			Rows:   t.Len(),
		}
		if err := p.sink.Put(ctx, opts.Bucket, file.Key, bodies[i], p.format.ContentType()); err != nil {
			return nil, err
		}
		if p.ledger != nil {
			if err := p.ledger.AddFile(file); err != nil {
				logger.Warn("failed to record file", "key", file.Key, "err", err)
			}
		}
		result.Files = append(result.Files, file)
		p.sendProgress(progress, uploadUpdate(i+1, len(tables), opts.Bucket, file))
	}
	return result, nil
}

func (p *Pipeline) finish(logger *log.Logger, id string, status models.RunStatus, runErr error, skipped int) {
	if p.ledger == nil {
		return
	}
	if err := p.ledger.Finish(id, status, runErr, skipped); err != nil {
		logger.Warn("failed to finish run record", "err", err)
	}
}

var _ Orchestrator = (*Pipeline)(nil)
