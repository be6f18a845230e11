package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rental-sync/backend/internal/lease"
	"github.com/rental-sync/backend/internal/metrics"
	"github.com/rental-sync/backend/internal/storage/models"
)

var (
	// ErrPropertyNotFound is returned for a sync of an unknown property.
	ErrPropertyNotFound = errors.New("property not found")
	// ErrNoFeedURL is returned for a sync of a property without a feed.
	ErrNoFeedURL = errors.New("property has no calendar feed URL")
)

// PropertyStore is the property access the orchestrator needs.
type PropertyStore interface {
	GetByID(ctx context.Context, id string) (*models.Property, error)
	ListSyncEnabled(ctx context.Context) ([]models.Property, error)
	MarkSynced(ctx context.Context, id string, at time.Time) error
}

// FeedFetcher downloads a feed body.
type FeedFetcher interface {
	Fetch(ctx context.Context, feedURL string) (string, error)
}

// EventPublisher receives sync lifecycle notifications.
type EventPublisher interface {
	RunStarted(run models.SyncRun)
	RunFinished(run models.SyncRun)
	PropertySyncFailed(runID string, result models.PropertySyncResult)
}

// SyncOptions tunes a SyncService.
type SyncOptions struct {
	DefaultGuestName string
	// LeaseTTL bounds how long a crashed run can block a property.
	LeaseTTL  time.Duration
	Metrics   *metrics.Registry
	Publisher EventPublisher
}

// SyncService runs Fetch, Parse, Map and Reconcile over properties one at a
// time and aggregates the outcome. A failing property never stops the
// others.
type SyncService struct {
	properties PropertyStore
	fetcher    FeedFetcher
	mapper     *Mapper
	reconciler *Reconciler
	locker     lease.Locker
	leaseTTL   time.Duration
	metrics    *metrics.Registry
	publisher  EventPublisher
	logger     *zap.Logger
	now        func() time.Time
}

// NewSyncService creates the orchestrator. locker may be nil to run without
// per-property leases.
func NewSyncService(
	properties PropertyStore,
	reservations ReservationStore,
	fetcher FeedFetcher,
	locker lease.Locker,
	opts SyncOptions,
	logger *zap.Logger,
) *SyncService {
	if opts.LeaseTTL <= 0 {
		opts.LeaseTTL = 5 * time.Minute
	}
	return &SyncService{
		properties: properties,
		fetcher:    fetcher,
		mapper:     NewMapper(opts.DefaultGuestName),
		reconciler: NewReconciler(reservations, logger),
		locker:     locker,
		leaseTTL:   opts.LeaseTTL,
		metrics:    opts.Metrics,
		publisher:  opts.Publisher,
		logger:     logger,
		now:        time.Now,
	}
}

// LookupProperty loads a property for a per-property sync, rejecting unknown
// properties and properties without a feed.
func (s *SyncService) LookupProperty(ctx context.Context, propertyID string) (*models.Property, error) {
	prop, err := s.properties.GetByID(ctx, propertyID)
	if err != nil {
		return nil, fmt.Errorf("getting property: %w", err)
	}
	if prop == nil {
		return nil, fmt.Errorf("%w: %s", ErrPropertyNotFound, propertyID)
	}
	if !prop.HasFeed() {
		return nil, fmt.Errorf("%w: %s", ErrNoFeedURL, propertyID)
	}
	return prop, nil
}

// SyncProperty syncs one property regardless of its sync_enabled flag.
func (s *SyncService) SyncProperty(ctx context.Context, runID string, prop models.Property) *models.BatchSyncResult {
	result := s.syncOne(ctx, runID, prop)
	return &models.BatchSyncResult{
		Success: true,
		Synced:  1,
		Results: []models.PropertySyncResult{result},
	}
}

// SyncAllEnabled syncs every sync-enabled property with a feed URL. Only a
// failure to list the properties is returned as an error.
func (s *SyncService) SyncAllEnabled(ctx context.Context, runID string) (*models.BatchSyncResult, error) {
	properties, err := s.properties.ListSyncEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing sync-enabled properties: %w", err)
	}

	batch := &models.BatchSyncResult{
		Success: true,
		Results: make([]models.PropertySyncResult, 0, len(properties)),
	}
	if len(properties) == 0 {
		batch.Message = "no properties to synchronise"
		return batch, nil
	}

	for _, prop := range properties {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("sync interrupted: %w", err)
		}
		batch.Results = append(batch.Results, s.syncOne(ctx, runID, prop))
	}
	batch.Synced = len(batch.Results)

	return batch, nil
}

// syncOne never returns an error: failures land in the result.
func (s *SyncService) syncOne(ctx context.Context, runID string, prop models.Property) models.PropertySyncResult {
	log := s.logger.With(zap.String("property_id", prop.ID), zap.String("property_name", prop.Name))
	result := models.PropertySyncResult{
		PropertyID:   prop.ID,
		PropertyName: prop.Name,
	}

	counts, err := s.process(ctx, prop)
	result.Imported = counts.Created
	result.Updated = counts.Updated
	result.Skipped = counts.Skipped
	result.Total = counts.Total

	if err != nil {
		result.Error = err.Error()
		if errors.Is(err, lease.ErrLeaseHeld) {
			s.metrics.LeaseHeld()
		}
		s.metrics.ObserveProperty(false, counts.Created, counts.Updated, counts.Skipped)
		log.Warn("property sync failed", zap.Error(err))
		if s.publisher != nil {
			s.publisher.PropertySyncFailed(runID, result)
		}
		return result
	}

	result.Success = true
	s.metrics.ObserveProperty(true, counts.Created, counts.Updated, counts.Skipped)

	if err := s.properties.MarkSynced(ctx, prop.ID, s.now().UTC()); err != nil {
		log.Warn("failed to record last sync time", zap.Error(err))
	}

	log.Info("property synced",
		zap.Int("imported", counts.Created),
		zap.Int("updated", counts.Updated),
		zap.Int("skipped", counts.Skipped),
		zap.Int("total", counts.Total),
	)
	return result
}

func (s *SyncService) process(ctx context.Context, prop models.Property) (ReconcileResult, error) {
	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, lease.PropertyKey(prop.ID), s.leaseTTL)
		if err != nil {
			return ReconcileResult{}, err
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warn("failed to release property lease", zap.String("property_id", prop.ID), zap.Error(err))
			}
		}()
	}

	raw, err := s.fetcher.Fetch(ctx, prop.FeedURL)
	if err != nil {
		return ReconcileResult{}, err
	}

	events := Parse(raw)
	candidates := s.mapper.ToCandidates(events, prop.ID)

	return s.reconciler.Reconcile(ctx, prop.ID, candidates)
}
