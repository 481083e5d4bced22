package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/playlist-etl/internal/models"
	"github.com/desertthunder/playlist-etl/internal/shared"
)

// RunRepository persists [models.Run] ledger entries.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new RunRepository with the given database connection
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Start inserts run with status running. ID and StartedAt are filled in when unset.
func (r *RunRepository) Start(run *models.Run) error {
	if run.ID == "" {
		run.ID = shared.GenerateID()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	if run.Object == "" {
		run.Object = "playlist"
	}
	run.Status = models.RunRunning

	if err := run.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	query := `
		INSERT INTO runs (id, object, bucket, playlist_ids, session_id, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		run.ID,
		run.Object,
		run.Bucket,
		models.JoinIDs(run.PlaylistIDs),
		run.SessionID,
		run.Status,
		run.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	return nil
}

// AddFile records an object written by a run.
func (r *RunRepository) AddFile(file models.RunFile) error {
	query := `
		INSERT INTO run_files (run_id, entity, object_key, row_count)
		VALUES (?, ?, ?, ?)
	`

	if _, err := r.db.Exec(query, file.RunID, file.Entity, file.Key, file.Rows); err != nil {
		return fmt.Errorf("failed to insert run file: %w", err)
	}
	return nil
}

// Finish closes a running run with its final status.
func (r *RunRepository) Finish(id string, status models.RunStatus, runErr error, skipped int) error {
	if status != models.RunSucceeded && status != models.RunFailed {
		return fmt.Errorf("%w: cannot finish a run as %q", shared.ErrInvalidArgument, status)
	}

	var message string
	if runErr != nil {
		message = runErr.Error()
	}

	query := `
		UPDATE runs
		SET status = ?, error = ?, skipped_items = ?, finished_at = ?
		WHERE id = ? AND status = 'running'
	`

	result, err := r.db.Exec(query, status, message, skipped, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: no running run %s", shared.ErrNotFound, id)
	}

	return nil
}

// Get retrieves a run and its files.
func (r *RunRepository) Get(id string) (*models.Run, error) {
	query := `
		SELECT id, object, bucket, playlist_ids, session_id, status, error, skipped_items, started_at, finished_at
		FROM runs
		WHERE id = ?
	`

	run, err := scanRun(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: run %s", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	files, err := r.files(id)
	if err != nil {
		return nil, err
	}
	run.Files = files
	return run, nil
}

// List returns the most recent runs first. A limit of zero or less returns every run.
func (r *RunRepository) List(limit int) ([]*models.Run, error) {
	query := `
		SELECT id, object, bucket, playlist_ids, session_id, status, error, skipped_items, started_at, finished_at
		FROM runs
		ORDER BY started_at DESC, id ASC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return runs, nil
}

func (r *RunRepository) files(runID string) ([]models.RunFile, error) {
	query := `
		SELECT run_id, entity, object_key, row_count
		FROM run_files
		WHERE run_id = ?
		ORDER BY CASE entity
			WHEN 'playlists' THEN 0
			WHEN 'tracks' THEN 1
			WHEN 'albums' THEN 2
			WHEN 'artists' THEN 3
			ELSE 4
		END
	`

	rows, err := r.db.Query(query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query run files: %w", err)
	}
	defer rows.Close()

	var files []models.RunFile
	for rows.Next() {
		var (
			f      models.RunFile
			entity string
		)
		if err := rows.Scan(&f.RunID, &entity, &f.Key, &f.Rows); err != nil {
			return nil, fmt.Errorf("failed to scan run file: %w", err)
		}
		f.Entity = models.Entity(entity)
		files = append(files, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return files, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanRun scans a runs row from either [sql.Row] or [sql.Rows].
func scanRun(s scanner) (*models.Run, error) {
	var (
		run        models.Run
		ids        string
		status     string
		finishedAt sql.NullTime
	)

	err := s.Scan(&run.ID, &run.Object, &run.Bucket, &ids, &run.SessionID, &status, &run.Error, &run.Skipped, &run.StartedAt, &finishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	run.PlaylistIDs = models.SplitIDs(ids)
	run.Status = models.RunStatus(status)
	if finishedAt.Valid {
		t := finishedAt.Time
		run.FinishedAt = &t
	}
	return &run, nil
}
