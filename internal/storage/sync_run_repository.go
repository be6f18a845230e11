package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rental-sync/backend/internal/storage/models"
)

const syncRunColumns = `id, trigger_source, status, started_at, finished_at, properties_synced, reservations_created, errors`

// ErrRunFinished is returned when finishing a run that is no longer RUNNING.
var ErrRunFinished = errors.New("sync run already finished")

// SyncRunRepository persists sync run records.
type SyncRunRepository struct {
	BaseRepository
}

// NewSyncRunRepository creates a new sync run repository.
func NewSyncRunRepository(db *DB) *SyncRunRepository {
	return &SyncRunRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// Create inserts a run in the RUNNING state and fills in its ID and start
// time.
func (r *SyncRunRepository) Create(ctx context.Context, run *models.SyncRun) error {
	run.ID = GenerateID()
	run.Status = models.RunStatusRunning
	run.StartedAt = r.Now()
	run.FinishedAt = nil
	run.Errors = models.RunErrors{}

	_, err := r.exec(ctx, `
		INSERT INTO sync_runs (id, trigger_source, status, started_at, errors)
		VALUES (?, ?, ?, ?, ?)
	`, run.ID, run.Trigger, run.Status, run.StartedAt, run.Errors)
	if err != nil {
		return fmt.Errorf("inserting sync run: %w", err)
	}
	return nil
}

// Finish writes the terminal state of a run. Only a RUNNING row is updated,
// so a run cannot be finished twice.
func (r *SyncRunRepository) Finish(ctx context.Context, run *models.SyncRun) error {
	if run.Status != models.RunStatusCompleted && run.Status != models.RunStatusFailed {
		return fmt.Errorf("finishing sync run with status %q", run.Status)
	}
	if run.FinishedAt == nil {
		now := r.Now()
		run.FinishedAt = &now
	}

	res, err := r.exec(ctx, `
		UPDATE sync_runs SET
			status = ?, finished_at = ?, properties_synced = ?,
			reservations_created = ?, errors = ?
		WHERE id = ? AND status = ?
	`,
		run.Status, run.FinishedAt, run.PropertiesSynced,
		run.ReservationsCreated, run.Errors, run.ID, models.RunStatusRunning,
	)
	if err != nil {
		return fmt.Errorf("finishing sync run: %w", err)
	}

	ok, err := affectedOne(res)
	if err != nil {
		return fmt.Errorf("finishing sync run: %w", err)
	}
	if !ok {
		return fmt.Errorf("sync run %s: %w", run.ID, ErrRunFinished)
	}
	return nil
}

// GetByID retrieves a run by its ID. It returns nil if none exists.
func (r *SyncRunRepository) GetByID(ctx context.Context, id string) (*models.SyncRun, error) {
	run := &models.SyncRun{}
	err := r.get(ctx, run, `SELECT `+syncRunColumns+` FROM sync_runs WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying sync run: %w", err)
	}
	return run, nil
}

// ListRecent returns up to limit runs, newest first.
func (r *SyncRunRepository) ListRecent(ctx context.Context, limit int) ([]models.SyncRun, error) {
	runs := []models.SyncRun{}
	err := r.selectAll(ctx, &runs, `
		SELECT `+syncRunColumns+`
		FROM sync_runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying sync runs: %w", err)
	}
	return runs, nil
}

// Latest returns the most recent run, or nil if there has been none.
func (r *SyncRunRepository) Latest(ctx context.Context) (*models.SyncRun, error) {
	runs, err := r.ListRecent(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}
