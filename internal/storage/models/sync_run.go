package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Run statuses. A run starts RUNNING and moves exactly once to COMPLETED or
// FAILED.
const (
	RunStatusRunning   = "RUNNING"
	RunStatusCompleted = "COMPLETED"
	RunStatusFailed    = "FAILED"
)

// Run triggers.
const (
	TriggerManualProperty = "manual_property"
	TriggerManualAll      = "manual_all"
	TriggerScheduled      = "scheduled"
)

// RunError is one entry of a run's error list. Run-wide failures carry only
// Error.
type RunError struct {
	PropertyID   string `json:"property_id,omitempty"`
	PropertyName string `json:"property_name,omitempty"`
	Error        string `json:"error"`
}

// RunErrors is stored as a JSON array.
type RunErrors []RunError

func (e RunErrors) Value() (driver.Value, error) {
	if e == nil {
		e = RunErrors{}
	}
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encoding run errors: %w", err)
	}
	return string(b), nil
}

func (e *RunErrors) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*e = RunErrors{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("cannot scan %T into RunErrors", src)
	}
	if len(raw) == 0 {
		*e = RunErrors{}
		return nil
	}
	if err := json.Unmarshal(raw, e); err != nil {
		return fmt.Errorf("decoding run errors: %w", err)
	}
	return nil
}

// SyncRun is the persisted record of one orchestrator invocation.
type SyncRun struct {
	ID                  string     `db:"id" json:"id"`
	Trigger             string     `db:"trigger_source" json:"trigger"`
	Status              string     `db:"status" json:"status"`
	StartedAt           time.Time  `db:"started_at" json:"started_at"`
	FinishedAt          *time.Time `db:"finished_at" json:"finished_at,omitempty"`
	PropertiesSynced    int        `db:"properties_synced" json:"properties_synced"`
	ReservationsCreated int        `db:"reservations_created" json:"reservations_created"`
	Errors              RunErrors  `db:"errors" json:"errors"`
}

// PropertySyncResult is the outcome of syncing one property.
type PropertySyncResult struct {
	PropertyID   string `json:"propertyId"`
	PropertyName string `json:"propertyName"`
	Success      bool   `json:"success"`
	Imported     int    `json:"imported"`
	Updated      int    `json:"updated"`
	Skipped      int    `json:"skipped"`
	Total        int    `json:"total"`
	Error        string `json:"error,omitempty"`
}

// BatchSyncResult aggregates the per-property results of one invocation.
type BatchSyncResult struct {
	Success bool                 `json:"success"`
	Message string               `json:"message,omitempty"`
	Synced  int                  `json:"synced"`
	Results []PropertySyncResult `json:"results"`
}

// ReservationsCreated sums Imported across results.
func (b *BatchSyncResult) ReservationsCreated() int {
	n := 0
	for _, r := range b.Results {
		n += r.Imported
	}
	return n
}

// Errors returns an entry for every failed property.
func (b *BatchSyncResult) Errors() RunErrors {
	errs := RunErrors{}
	for _, r := range b.Results {
		if r.Success {
			continue
		}
		errs = append(errs, RunError{
			PropertyID:   r.PropertyID,
			PropertyName: r.PropertyName,
			Error:        r.Error,
		})
	}
	return errs
}
