// Package scheduler corre los jobs periódicos: materializar dosis futuras y,
// si hay gracia configurada, marcar como missed las dosis vencidas.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"care-connect/internal/platform/logger"
	"care-connect/internal/platform/metrics"

	"github.com/robfig/cron/v3"
)

const (
	JobGenerate = "generate_doses"
	JobSweep    = "sweep_overdue"

	DefaultGenerationSpec = "5 0 * * *"
	DefaultSweepSpec      = "*/15 * * * *"
)

type DoseGenerator interface {
	GenerateAllActive(ctx context.Context) (int, error)
}

type OverdueSweeper interface {
	SweepOverdue(ctx context.Context, grace time.Duration) (int, error)
}

type Config struct {
	GenerationSpec string
	SweepSpec      string
	// MissGrace <= 0 deja el sweep apagado.
	MissGrace time.Duration
	// JobTimeout acota cada ejecución.
	JobTimeout time.Duration
	Location   *time.Location
}

type Scheduler struct {
	cron      *cron.Cron
	generator DoseGenerator
	sweeper   OverdueSweeper
	cfg       Config
	log       logger.Logger
	metrics   *metrics.Metrics
}

func New(cfg Config, gen DoseGenerator, sweeper OverdueSweeper, log logger.Logger, m *metrics.Metrics) (*Scheduler, error) {
	if gen == nil {
		return nil, errors.New("scheduler: dose generator is required")
	}
	if log == nil {
		log = logger.Nop()
	}
	if strings.TrimSpace(cfg.GenerationSpec) == "" {
		cfg.GenerationSpec = DefaultGenerationSpec
	}
	if strings.TrimSpace(cfg.SweepSpec) == "" {
		cfg.SweepSpec = DefaultSweepSpec
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 5 * time.Minute
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	s := &Scheduler{
		cron:      cron.New(cron.WithLocation(cfg.Location)),
		generator: gen,
		sweeper:   sweeper,
		cfg:       cfg,
		log:       log.With(map[string]any{"component": "scheduler"}),
		metrics:   m,
	}

	if _, err := s.cron.AddFunc(cfg.GenerationSpec, func() { s.runJob(JobGenerate, s.RunGeneration) }); err != nil {
		return nil, fmt.Errorf("scheduler: generation spec %q: %w", cfg.GenerationSpec, err)
	}
	if s.sweepEnabled() {
		if _, err := s.cron.AddFunc(cfg.SweepSpec, func() { s.runJob(JobSweep, s.RunSweep) }); err != nil {
			return nil, fmt.Errorf("scheduler: sweep spec %q: %w", cfg.SweepSpec, err)
		}
	}
	return s, nil
}

func (s *Scheduler) sweepEnabled() bool {
	return s.sweeper != nil && s.cfg.MissGrace > 0
}

// Jobs devuelve los nombres de los jobs registrados.
func (s *Scheduler) Jobs() []string {
	jobs := []string{JobGenerate}
	if s.sweepEnabled() {
		jobs = append(jobs, JobSweep)
	}
	return jobs
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started", map[string]any{
		"generation_spec": s.cfg.GenerationSpec,
		"sweep_enabled":   s.sweepEnabled(),
	})
}

// Stop espera a que terminen los jobs en curso o a que venza ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) RunGeneration(ctx context.Context) (int, error) {
	return s.generator.GenerateAllActive(ctx)
}

func (s *Scheduler) RunSweep(ctx context.Context) (int, error) {
	if !s.sweepEnabled() {
		return 0, nil
	}
	return s.sweeper.SweepOverdue(ctx, s.cfg.MissGrace)
}

func (s *Scheduler) runJob(name string, fn func(context.Context) (int, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.JobTimeout)
	defer cancel()

	start := time.Now()
	n, err := fn(ctx)
	s.metrics.SchedulerRun(name, err)

	fields := map[string]any{
		"job":         name,
		"affected":    n,
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if err != nil {
		fields["err"] = err
		s.log.Error("scheduler job failed", fields)
		return
	}
	s.log.Info("scheduler job finished", fields)
}
