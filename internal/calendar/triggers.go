package calendar

import (
	"context"

	"github.com/rental-sync/backend/internal/storage/models"
)

// Triggers is the entry point shared by the HTTP handlers, the scheduler and
// the CLI. Every trigger produces a SyncRun.
type Triggers struct {
	sync *SyncService
	runs *RunLogger
}

// NewTriggers pairs an orchestrator with a run logger.
func NewTriggers(sync *SyncService, runs *RunLogger) *Triggers {
	return &Triggers{sync: sync, runs: runs}
}

// SyncProperty syncs one property. Unknown properties and properties
// without a feed are rejected before any run is recorded.
func (t *Triggers) SyncProperty(ctx context.Context, propertyID string) (*models.SyncRun, *models.BatchSyncResult, error) {
	prop, err := t.sync.LookupProperty(ctx, propertyID)
	if err != nil {
		return nil, nil, err
	}

	return t.runs.Run(ctx, models.TriggerManualProperty, func(ctx context.Context, runID string) (*models.BatchSyncResult, error) {
		return t.sync.SyncProperty(ctx, runID, *prop), nil
	})
}

// SyncAll syncs every enabled property on behalf of an operator.
func (t *Triggers) SyncAll(ctx context.Context) (*models.SyncRun, *models.BatchSyncResult, error) {
	return t.runs.Run(ctx, models.TriggerManualAll, t.sync.SyncAllEnabled)
}

// Scheduled syncs every enabled property with no caller identity.
func (t *Triggers) Scheduled(ctx context.Context) (*models.SyncRun, *models.BatchSyncResult, error) {
	return t.runs.Run(ctx, models.TriggerScheduled, t.sync.SyncAllEnabled)
}
