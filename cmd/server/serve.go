package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rental-sync/backend/internal/api"
	"github.com/rental-sync/backend/internal/calendar"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and the sync scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func serve(ctx context.Context) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	logger := a.logger
	logger.Info("starting rental-sync", zap.String("version", version))

	var scheduler *calendar.Scheduler
	if a.cfg.Sync.SchedulerEnabled {
		scheduler, err = calendar.NewScheduler(a.triggers, a.cfg.Sync.Cron, logger.Named("scheduler"))
		if err != nil {
			return err
		}
	}

	schedulerToken := a.cfg.Server.SchedulerToken
	if schedulerToken == "" {
		schedulerToken = a.cfg.Server.APIKey
	}

	router := api.NewRouter(api.Dependencies{
		DB:                   a.db,
		Properties:           a.properties,
		Reservations:         a.reservations,
		Runs:                 a.runs,
		Triggers:             a.triggers,
		Scheduler:            scheduler,
		Hub:                  a.hub,
		Metrics:              a.metrics,
		Gatherer:             a.registry,
		Logger:               logger.Named("http"),
		APIKey:               a.cfg.Server.APIKey,
		SchedulerToken:       schedulerToken,
		TriggerRatePerMinute: a.cfg.Server.TriggerRatePerMinute,
	})

	// Sync requests run a whole batch synchronously, so the write timeout
	// has to cover the slowest feeds.
	server := &http.Server{
		Addr:         a.cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.hub.Run(gctx)
	})

	if scheduler != nil {
		g.Go(func() error {
			return scheduler.Run(gctx)
		})
	}

	g.Go(func() error {
		logger.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
