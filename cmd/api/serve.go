package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"care-connect/internal/platform/metrics"
	"care-connect/internal/scheduler"

	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the dose scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

func runServer(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	rt, err := bootstrap(ctx, m)
	if err != nil {
		return err
	}
	defer rt.Close()

	cfg := rt.cfg
	var sched *scheduler.Scheduler
	if cfg.Doses.SchedulerEnabled {
		sched, err = scheduler.New(scheduler.Config{
			GenerationSpec: cfg.Doses.GenerationCron,
			SweepSpec:      cfg.Doses.SweepCron,
			MissGrace:      cfg.Doses.MissGrace,
			Location:       cfg.Clock.Location(),
		}, rt.app.Generator, rt.app.Lifecycle, rt.log, m)
		if err != nil {
			return err
		}
		sched.Start()
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      rt.app.Handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		rt.log.Info("starting server", map[string]any{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	rt.log.Info("shutting down", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if sched != nil {
		if err := sched.Stop(shutdownCtx); err != nil {
			rt.log.Warn("scheduler stop timed out", map[string]any{"err": err})
		}
	}
	return srv.Shutdown(shutdownCtx)
}
