package calendar

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rental-sync/backend/internal/metrics"
	"github.com/rental-sync/backend/internal/storage/models"
)

// RunStore persists sync run records.
type RunStore interface {
	Create(ctx context.Context, run *models.SyncRun) error
	Finish(ctx context.Context, run *models.SyncRun) error
}

// RunFunc is one orchestrator invocation executed under a run record.
type RunFunc func(ctx context.Context, runID string) (*models.BatchSyncResult, error)

// RunLogger wraps orchestrator invocations in a persisted SyncRun that goes
// RUNNING -> COMPLETED or RUNNING -> FAILED exactly once.
type RunLogger struct {
	runs      RunStore
	metrics   *metrics.Registry
	publisher EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewRunLogger creates a run logger. publisher may be nil.
func NewRunLogger(runs RunStore, m *metrics.Registry, publisher EventPublisher, logger *zap.Logger) *RunLogger {
	return &RunLogger{
		runs:      runs,
		metrics:   m,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// Run records a RUNNING run, executes fn and records the outcome. If the run
// row cannot be written the invocation still proceeds; the returned run then
// has an empty ID.
//
// On success the run is COMPLETED with the attempted property count, the sum
// of created reservations and one error entry per failed property. If fn
// fails the run is FAILED with a single error entry and fn's error is
// returned.
func (l *RunLogger) Run(ctx context.Context, trigger string, fn RunFunc) (*models.SyncRun, *models.BatchSyncResult, error) {
	log := l.logger.With(zap.String("trigger", trigger))

	run := &models.SyncRun{Trigger: trigger}
	persisted := true
	if err := l.runs.Create(ctx, run); err != nil {
		log.Error("failed to record sync run start", zap.Error(err))
		persisted = false
		run.ID = ""
		run.Status = models.RunStatusRunning
		run.StartedAt = l.now().UTC()
		run.Errors = models.RunErrors{}
	}
	log = log.With(zap.String("run_id", run.ID))
	log.Info("sync run started")
	if l.publisher != nil {
		l.publisher.RunStarted(*run)
	}

	batch, runErr := fn(ctx, run.ID)

	finishedAt := l.now().UTC()
	run.FinishedAt = &finishedAt
	if runErr != nil {
		run.Status = models.RunStatusFailed
		run.Errors = models.RunErrors{{Error: runErr.Error()}}
	} else {
		run.Status = models.RunStatusCompleted
		run.PropertiesSynced = batch.Synced
		run.ReservationsCreated = batch.ReservationsCreated()
		run.Errors = batch.Errors()
	}

	// The outcome is written even if the caller has gone away.
	if persisted {
		if err := l.runs.Finish(context.WithoutCancel(ctx), run); err != nil {
			log.Error("failed to record sync run outcome", zap.Error(err))
		}
	}

	l.metrics.ObserveRun(trigger, run.Status, finishedAt.Sub(run.StartedAt))
	if l.publisher != nil {
		l.publisher.RunFinished(*run)
	}

	if runErr != nil {
		log.Error("sync run failed", zap.Error(runErr))
		return run, nil, runErr
	}

	log.Info("sync run completed",
		zap.Int("properties_synced", run.PropertiesSynced),
		zap.Int("reservations_created", run.ReservationsCreated),
		zap.Int("errors", len(run.Errors)),
	)
	return run, batch, nil
}
