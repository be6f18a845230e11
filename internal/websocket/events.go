package websocket

import (
	"go.uber.org/zap"

	"github.com/rental-sync/backend/internal/storage/models"
)

// EventBroadcaster turns sync lifecycle notifications into hub messages.
type EventBroadcaster struct {
	hub    *Hub
	logger *zap.Logger
}

// NewEventBroadcaster creates a new event broadcaster.
func NewEventBroadcaster(hub *Hub, logger *zap.Logger) *EventBroadcaster {
	return &EventBroadcaster{hub: hub, logger: logger}
}

// RunStarted sends sync.run_started.
func (b *EventBroadcaster) RunStarted(run models.SyncRun) {
	b.broadcast(NewMessage(TypeSyncRunStarted, runPayload(run)))
}

// RunFinished sends sync.run_completed or sync.run_failed.
func (b *EventBroadcaster) RunFinished(run models.SyncRun) {
	msgType := TypeSyncRunCompleted
	if run.Status == models.RunStatusFailed {
		msgType = TypeSyncRunFailed
	}
	b.broadcast(NewMessage(msgType, runPayload(run)))
}

// PropertySyncFailed sends sync.property_error.
func (b *EventBroadcaster) PropertySyncFailed(runID string, result models.PropertySyncResult) {
	b.broadcast(NewMessage(TypeSyncPropertyError, PropertyErrorPayload{
		RunID:        runID,
		PropertyID:   result.PropertyID,
		PropertyName: result.PropertyName,
		Error:        result.Error,
	}))
}

func runPayload(run models.SyncRun) RunPayload {
	p := RunPayload{
		RunID:               run.ID,
		Trigger:             run.Trigger,
		Status:              run.Status,
		StartedAt:           run.StartedAt,
		FinishedAt:          run.FinishedAt,
		PropertiesSynced:    run.PropertiesSynced,
		ReservationsCreated: run.ReservationsCreated,
		ErrorCount:          len(run.Errors),
	}
	if run.Status == models.RunStatusFailed && len(run.Errors) > 0 {
		p.Error = run.Errors[0].Error
	}
	return p
}

func (b *EventBroadcaster) broadcast(msg Message) {
	data, err := msg.JSON()
	if err != nil {
		b.logger.Error("encoding websocket message", zap.String("type", string(msg.Type)), zap.Error(err))
		return
	}
	b.hub.Broadcast(data)
}
