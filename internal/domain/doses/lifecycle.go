package doses

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"care-connect/internal/domain/apperr"
	"care-connect/internal/platform/clock"
	"care-connect/internal/platform/logger"
	"care-connect/internal/platform/metrics"
)

const (
	defaultHistoryDays  = 7
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
	sweepBatchSize      = 500
)

// Lifecycle aplica las transiciones pending -> taken|missed. No recalcula
// adherencia: eso es una operación aparte.
type Lifecycle struct {
	repo    Repository
	meds    MedicationSource
	clock   clock.Clock
	log     logger.Logger
	metrics *metrics.Metrics

	sweepBatch int
}

func NewLifecycle(repo Repository, meds MedicationSource, clk clock.Clock, log logger.Logger, m *metrics.Metrics) *Lifecycle {
	if log == nil {
		log = logger.Nop()
	}
	return &Lifecycle{
		repo:    repo,
		meds:    meds,
		clock:   clk,
		log:     log.With(map[string]any{"component": "dose_lifecycle"}),
		metrics: m,

		sweepBatch: sweepBatchSize,
	}
}

func (l *Lifecycle) MarkTaken(ctx context.Context, doseID, callerID string) (Dose, error) {
	return l.transition(ctx, doseID, callerID, StatusTaken)
}

func (l *Lifecycle) MarkMissed(ctx context.Context, doseID, callerID string) (Dose, error) {
	return l.transition(ctx, doseID, callerID, StatusMissed)
}

func (l *Lifecycle) transition(ctx context.Context, doseID, callerID string, to Status) (Dose, error) {
	d, err := l.get(ctx, doseID)
	if err != nil {
		return Dose{}, err
	}

	owner, err := l.ownerOf(ctx, d)
	if err != nil {
		return Dose{}, err
	}
	if owner != strings.TrimSpace(callerID) {
		l.metrics.TransitionRejected("forbidden")
		return Dose{}, apperr.Forbidden("not your dose")
	}

	if d.Status.Terminal() {
		l.metrics.TransitionRejected("terminal")
		return Dose{}, apperr.InvalidState("dose already recorded")
	}

	now := l.clock.Now()
	var takenAt *time.Time
	if to == StatusTaken {
		takenAt = &now
	}

	// El repo hace el update condicional; si otro request ganó la carrera
	// acá vuelve ErrInvalidState.
	updated, err := l.repo.TransitionFromPending(ctx, d.ID, to, takenAt, now)
	if err != nil {
		if errors.Is(err, apperr.ErrInvalidState) {
			l.metrics.TransitionRejected("race")
			return Dose{}, apperr.InvalidState("dose already recorded")
		}
		return Dose{}, err
	}

	l.metrics.Transition(string(to))
	return updated, nil
}

// ownerOf resuelve el dueño por la medicación, que le gana al PatientID
// desnormalizado de la dosis.
func (l *Lifecycle) ownerOf(ctx context.Context, d Dose) (string, error) {
	m, err := l.meds.GetByID(ctx, d.MedicationID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			l.log.Warn("dose without resolvable medication", map[string]any{"dose_id": d.ID, "medication_id": d.MedicationID})
			return "", apperr.Forbidden("not your dose")
		}
		return "", err
	}
	if m.PatientID != d.PatientID {
		l.log.Warn("dose patient differs from medication patient", map[string]any{"dose_id": d.ID, "medication_id": m.ID})
	}
	return m.PatientID, nil
}

func (l *Lifecycle) GetByID(ctx context.Context, doseID string) (Dose, error) {
	return l.get(ctx, doseID)
}

func (l *Lifecycle) get(ctx context.Context, doseID string) (Dose, error) {
	doseID = strings.TrimSpace(doseID)
	if doseID == "" {
		return Dose{}, apperr.NotFound("dose not found")
	}
	d, err := l.repo.GetByID(ctx, doseID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return Dose{}, apperr.NotFound("dose not found")
		}
		return Dose{}, err
	}
	return d, nil
}

// Today devuelve las dosis del día calendario actual del paciente.
func (l *Lifecycle) Today(ctx context.Context, patientID string) ([]Dose, error) {
	loc := l.clock.Location()
	start := clock.StartOfDay(l.clock.Now(), loc)
	return l.repo.ListByPatientBetween(ctx, patientID, start, start.AddDate(0, 0, 1))
}

type HistoryPage struct {
	Items []Dose
	Page  int
	Limit int
	Total int
}

func (p HistoryPage) Pages() int {
	if p.Limit <= 0 {
		return 0
	}
	return (p.Total + p.Limit - 1) / p.Limit
}

// History lista las dosis de los últimos `days` días hasta ahora, más
// recientes primero.
func (l *Lifecycle) History(ctx context.Context, patientID string, days, page, limit int) (HistoryPage, error) {
	if days <= 0 {
		days = defaultHistoryDays
	}
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	now := l.clock.Now()
	from := now.AddDate(0, 0, -days)

	items, total, err := l.repo.ListHistory(ctx, patientID, from, now, limit, (page-1)*limit)
	if err != nil {
		return HistoryPage{}, err
	}
	return HistoryPage{Items: items, Page: page, Limit: limit, Total: total}, nil
}

// SweepOverdue marca missed las dosis pending cuyo horario pasó hace más de
// grace. Con grace <= 0 no hace nada. Recorre lotes hasta que uno venga
// incompleto o se cancele ctx.
func (l *Lifecycle) SweepOverdue(ctx context.Context, grace time.Duration) (int, error) {
	if grace <= 0 {
		return 0, nil
	}

	now := l.clock.Now()
	swept := 0
	for {
		if err := ctx.Err(); err != nil {
			return swept, err
		}
		overdue, err := l.repo.ListOverduePending(ctx, now.Add(-grace), l.sweepBatch)
		if err != nil {
			return swept, fmt.Errorf("list overdue doses: %w", err)
		}

		n, err := l.sweepBatchOf(ctx, overdue, now)
		swept += n
		if err != nil {
			return swept, err
		}
		// sin avance el siguiente lote sería el mismo
		if len(overdue) < l.sweepBatch || n == 0 {
			break
		}
	}
	if swept > 0 {
		l.log.Info("overdue doses marked missed", map[string]any{"count": swept, "grace": grace.String()})
	}
	return swept, nil
}

func (l *Lifecycle) sweepBatchOf(ctx context.Context, overdue []Dose, now time.Time) (int, error) {
	swept := 0
	for _, d := range overdue {
		if err := ctx.Err(); err != nil {
			return swept, err
		}
		if _, err := l.repo.TransitionFromPending(ctx, d.ID, StatusMissed, nil, now); err != nil {
			// El paciente la marcó mientras barríamos.
			if errors.Is(err, apperr.ErrInvalidState) {
				continue
			}
			return swept, fmt.Errorf("sweep dose %s: %w", d.ID, err)
		}
		l.metrics.Transition(string(StatusMissed))
		swept++
	}
	return swept, nil
}
