package doses

import (
	"context"
	"errors"
	"fmt"

	"care-connect/internal/domain/medications"
	"care-connect/internal/platform/clock"
	"care-connect/internal/platform/logger"
	"care-connect/internal/platform/metrics"

	"github.com/google/uuid"
)

// MedicationSource evita depender del servicio concreto (y de su repo).
type MedicationSource interface {
	GetByID(ctx context.Context, id string) (medications.Medication, error)
	ListActive(ctx context.Context) ([]medications.Medication, error)
}

type Generator struct {
	repo      Repository
	meds      MedicationSource
	clock     clock.Clock
	aheadDays int
	log       logger.Logger
	metrics   *metrics.Metrics
}

func NewGenerator(repo Repository, meds MedicationSource, clk clock.Clock, aheadDays int, log logger.Logger, m *metrics.Metrics) *Generator {
	if log == nil {
		log = logger.Nop()
	}
	if aheadDays < 0 {
		aheadDays = 0
	}
	return &Generator{
		repo:      repo,
		meds:      meds,
		clock:     clk,
		aheadDays: aheadDays,
		log:       log.With(map[string]any{"component": "dose_generator"}),
		metrics:   m,
	}
}

// Generate materializa una dosis pending por slot y día dentro de
// [max(start, from), min(end, to)]. Es idempotente: las dosis que ya existen
// no se duplican. Devuelve todas las dosis de la medicación en ese rango.
func (g *Generator) Generate(ctx context.Context, medicationID string, r DateRange) ([]Dose, error) {
	out, _, err := g.generate(ctx, medicationID, r)
	return out, err
}

// GenerateAhead cubre hoy .. hoy+aheadDays.
func (g *Generator) GenerateAhead(ctx context.Context, medicationID string) ([]Dose, error) {
	return g.Generate(ctx, medicationID, g.aheadRange())
}

// ScheduleAhead es GenerateAhead devolviendo solo cuántas dosis nuevas se crearon.
func (g *Generator) ScheduleAhead(ctx context.Context, medicationID string) (int, error) {
	_, created, err := g.generate(ctx, medicationID, g.aheadRange())
	return created, err
}

// GenerateAllActive corre GenerateAhead para cada medicación activa. Un error
// en una medicación no frena a las demás.
func (g *Generator) GenerateAllActive(ctx context.Context) (int, error) {
	meds, err := g.meds.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("list active medications: %w", err)
	}

	r := g.aheadRange()
	total := 0
	var errs []error
	for _, m := range meds {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		_, created, err := g.generate(ctx, m.ID, r)
		if err != nil {
			g.log.Error("dose generation failed", map[string]any{"medication_id": m.ID, "err": err})
			errs = append(errs, fmt.Errorf("medication %s: %w", m.ID, err))
			continue
		}
		total += created
	}
	return total, errors.Join(errs...)
}

func (g *Generator) aheadRange() DateRange {
	loc := g.clock.Location()
	today := clock.StartOfDay(g.clock.Now(), loc)
	return DateRange{From: today, To: today.AddDate(0, 0, g.aheadDays)}
}

func (g *Generator) generate(ctx context.Context, medicationID string, r DateRange) ([]Dose, int, error) {
	m, err := g.meds.GetByID(ctx, medicationID)
	if err != nil {
		return nil, 0, err
	}
	if !m.Active() {
		return []Dose{}, 0, nil
	}

	slots, err := medications.ParseTiming(m.Timing)
	if err != nil {
		return nil, 0, fmt.Errorf("medication %s: %w", m.ID, err)
	}

	loc := g.clock.Location()
	from := clock.StartOfDay(r.From, loc)
	if start := clock.CalendarDay(m.StartDate, loc); start.After(from) {
		from = start
	}
	to := clock.StartOfDay(r.To, loc)
	if m.EndDate != nil {
		if end := clock.CalendarDay(*m.EndDate, loc); end.Before(to) {
			to = end
		}
	}
	if from.After(to) {
		return []Dose{}, 0, nil
	}

	now := g.clock.Now()
	created := 0
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		for _, slot := range slots {
			d := Dose{
				ID:            uuid.NewString(),
				MedicationID:  m.ID,
				PatientID:     m.PatientID,
				ScheduledTime: slot.On(day, loc),
				Status:        StatusPending,
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			inserted, err := g.repo.InsertIfAbsent(ctx, d)
			if err != nil {
				return nil, created, fmt.Errorf("insert dose: %w", err)
			}
			if inserted {
				created++
			}
		}
	}
	g.metrics.AddDosesGenerated(created)

	out, err := g.repo.ListByMedicationBetween(ctx, m.ID, from, to.AddDate(0, 0, 1))
	if err != nil {
		return nil, created, err
	}
	if created > 0 {
		g.log.Debug("doses generated", map[string]any{"medication_id": m.ID, "created": created})
	}
	return out, created, nil
}
