package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/pxsync/internal/models"
	"github.com/desertthunder/pxsync/internal/shared"
)

// RunRepository persists [models.SyncRun] rows.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new [RunRepository] with the given database connection
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a run with a generated ID and sequence, filling both on run.
func (r *RunRepository) Create(run *models.SyncRun) error {
	if run.Playlist == "" {
		return fmt.Errorf("%w: run playlist is required", shared.ErrInvalidInput)
	}

	sequence, err := NextSequence(r.db, "sync_runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	if run.Status == "" {
		run.Status = models.RunStatusSynced
	}

	id := shared.GenerateID()
	query := `
		INSERT INTO sync_runs (id, sequence, batch_id, source, playlist, total_tracks, matched, unmatched, accounts, status, ledger_path, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query, id, sequence, run.BatchID, run.Source, run.Playlist,
		run.TotalTracks, run.Matched, run.Unmatched, run.Accounts, run.Status, run.LedgerPath, run.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert sync run: %w", err)
	}

	run.ID = id
	run.Sequence = sequence
	return nil
}

// List returns the most recent runs, newest first. A non-empty playlist restricts the result to that playlist.
func (r *RunRepository) List(playlist string, limit int) ([]*models.SyncRun, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, sequence, batch_id, source, playlist, total_tracks, matched, unmatched, accounts, status, ledger_path, created_at
		FROM sync_runs
		WHERE (? = '' OR playlist = ?)
		ORDER BY sequence DESC
		LIMIT ?
	`

	rows, err := r.db.Query(query, playlist, playlist, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync runs: %w", err)
	}
	defer rows.Close()

	return scanRuns(rows)
}

// Batch returns every run recorded under batchID in insertion order.
func (r *RunRepository) Batch(batchID string) ([]*models.SyncRun, error) {
	query := `
		SELECT id, sequence, batch_id, source, playlist, total_tracks, matched, unmatched, accounts, status, ledger_path, created_at
		FROM sync_runs
		WHERE batch_id = ?
		ORDER BY sequence ASC
	`

	rows, err := r.db.Query(query, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query batch: %w", err)
	}
	defer rows.Close()

	return scanRuns(rows)
}

func scanRuns(rows *sql.Rows) ([]*models.SyncRun, error) {
	var runs []*models.SyncRun
	for rows.Next() {
		var run models.SyncRun
		if err := rows.Scan(&run.ID, &run.Sequence, &run.BatchID, &run.Source, &run.Playlist,
			&run.TotalTracks, &run.Matched, &run.Unmatched, &run.Accounts, &run.Status, &run.LedgerPath, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan sync run: %w", err)
		}
		runs = append(runs, &run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sync runs: %w", err)
	}

	return runs, nil
}
