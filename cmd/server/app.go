package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rental-sync/backend/internal/calendar"
	"github.com/rental-sync/backend/internal/config"
	"github.com/rental-sync/backend/internal/lease"
	"github.com/rental-sync/backend/internal/logging"
	"github.com/rental-sync/backend/internal/metrics"
	"github.com/rental-sync/backend/internal/storage"
	"github.com/rental-sync/backend/internal/websocket"
)

// app holds everything the commands share.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *storage.DB
	redis  *redis.Client

	properties   *storage.PropertyRepository
	reservations *storage.ReservationRepository
	runs         *storage.SyncRunRepository

	registry *prometheus.Registry
	metrics  *metrics.Registry
	hub      *websocket.Hub
	triggers *calendar.Triggers
}

// loadConfig loads configuration and builds the logger.
func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configDir)
	if err != nil {
		return nil, nil, fmt.Errorf("loading configuration: %w", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing logger: %w", err)
	}
	zap.ReplaceGlobals(logger)
	return cfg, logger, nil
}

// openDB opens the configured store and applies pending migrations.
func openDB(cfg *config.Config, logger *zap.Logger) (*storage.DB, error) {
	db, err := storage.NewDB(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := storage.RunMigrations(db, logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("database ready", zap.String("driver", db.Driver()))
	return db, nil
}

// newApp wires the sync pipeline. The hub is created but not started.
func newApp(ctx context.Context) (*app, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}

	db, err := openDB(cfg, logger)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:          cfg,
		logger:       logger,
		db:           db,
		properties:   storage.NewPropertyRepository(db),
		reservations: storage.NewReservationRepository(db),
		runs:         storage.NewSyncRunRepository(db),
		registry:     prometheus.NewRegistry(),
		hub:          websocket.NewHub(logger.Named("websocket")),
	}
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = metrics.NewRegistry(a.registry)

	locker, err := a.newLocker(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	events := websocket.NewEventBroadcaster(a.hub, logger)
	fetcher := calendar.NewFetcher(cfg.Sync.FetchTimeout(), cfg.Sync.FeedCacheTTL(), a.metrics, logger.Named("fetcher"))
	syncSvc := calendar.NewSyncService(a.properties, a.reservations, fetcher, locker, calendar.SyncOptions{
		DefaultGuestName: cfg.Sync.DefaultGuestName,
		LeaseTTL:         cfg.Sync.LeaseTTL(),
		Metrics:          a.metrics,
		Publisher:        events,
	}, logger.Named("sync"))
	runLog := calendar.NewRunLogger(a.runs, a.metrics, events, logger.Named("runs"))
	a.triggers = calendar.NewTriggers(syncSvc, runLog)

	return a, nil
}

// newLocker uses Redis leases when redis.addr is set and the store's lease
// table otherwise.
func (a *app) newLocker(ctx context.Context) (lease.Locker, error) {
	if a.cfg.Redis.Addr == "" {
		return lease.NewSQLLocker(storage.NewLeaseRepository(a.db)), nil
	}

	client, err := lease.NewRedisClient(ctx, a.cfg.Redis.Addr, a.cfg.Redis.Password, a.cfg.Redis.DB)
	if err != nil {
		return nil, err
	}
	a.redis = client
	a.logger.Info("using redis sync leases", zap.String("addr", a.cfg.Redis.Addr))
	return lease.NewRedisLocker(client, "rental-sync:lease:"), nil
}

// Close releases the store, the Redis client and flushes the logger.
func (a *app) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("closing redis client", zap.Error(err))
		}
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn("closing database", zap.Error(err))
	}
	_ = a.logger.Sync()
}
