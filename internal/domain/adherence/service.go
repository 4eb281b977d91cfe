package adherence

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"

	"care-connect/internal/domain/apperr"
	"care-connect/internal/domain/doses"
	"care-connect/internal/domain/medications"
	"care-connect/internal/domain/notifications"
	"care-connect/internal/domain/users"
	"care-connect/internal/platform/clock"
	"care-connect/internal/platform/logger"
	"care-connect/internal/platform/metrics"
)

const DefaultDays = 30

// Patients: lectura del paciente y escritura del rate cacheado.
type Patients interface {
	GetPatient(ctx context.Context, id string) (users.User, error)
	UpdateAdherenceRate(ctx context.Context, patientID string, rate int) error
}

type DoseReader interface {
	ListByPatientSince(ctx context.Context, patientID string, since time.Time) ([]doses.Dose, error)
}

type MedicationLookup interface {
	GetByID(ctx context.Context, id string) (medications.Medication, error)
}

type CaretakerLookup interface {
	CaretakersOf(ctx context.Context, patientID string) ([]string, error)
}

type Thresholds struct {
	Alert   int // por debajo se avisa a los caretakers
	Success int // a partir de acá se felicita
}

func DefaultThresholds() Thresholds {
	return Thresholds{Alert: 70, Success: 90}
}

type Deps struct {
	Patients    Patients
	Doses       DoseReader
	Medications MedicationLookup
	Caretakers  CaretakerLookup        // opcional
	Notifier    notifications.Notifier // opcional
	Clock       clock.Clock
	Thresholds  Thresholds
	Log         logger.Logger
	Metrics     *metrics.Metrics
}

type Service struct {
	d Deps
}

func NewService(d Deps) *Service {
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	if d.Thresholds == (Thresholds{}) {
		d.Thresholds = DefaultThresholds()
	}
	d.Log = d.Log.With(map[string]any{"component": "adherence"})
	return &Service{d: d}
}

// Report calcula la adherencia de los últimos `days` días. La autorización
// del caller ya viene resuelta por el handler.
func (s *Service) Report(ctx context.Context, patientID string, days int) (Snapshot, error) {
	if days <= 0 {
		return Snapshot{}, apperr.InvalidInput("days must be a positive integer")
	}

	patient, err := s.d.Patients.GetPatient(ctx, strings.TrimSpace(patientID))
	if err != nil {
		return Snapshot{}, err
	}

	loc := s.d.Clock.Location()
	since := s.d.Clock.Now().In(loc).AddDate(0, 0, -days)

	// Sin cota superior: entran las dosis futuras ya generadas.
	items, err := s.d.Doses.ListByPatientSince(ctx, patient.ID, since)
	if err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{
		PatientID:   patient.ID,
		PatientName: patient.Name,
		Period:      days,
	}

	type bucket struct {
		taken, missed, total int
	}
	daily := map[string]*bucket{}
	perMed := map[string]*bucket{}

	for _, d := range items {
		snap.TotalDoses++
		taken := d.Status == doses.StatusTaken
		missed := d.Status == doses.StatusMissed
		if taken {
			snap.TakenDoses++
		}
		if missed {
			snap.MissedDoses++
		}

		key := clock.DateKey(d.ScheduledTime, loc)
		b := daily[key]
		if b == nil {
			b = &bucket{}
			daily[key] = b
		}
		mb := perMed[d.MedicationID]
		if mb == nil {
			mb = &bucket{}
			perMed[d.MedicationID] = mb
		}
		for _, x := range []*bucket{b, mb} {
			x.total++
			if taken {
				x.taken++
			}
			if missed {
				x.missed++
			}
		}
	}
	snap.OverallAdherence = Percent(snap.TakenDoses, snap.TotalDoses)

	snap.DailyData = make([]DailyStat, 0, len(daily))
	for date, b := range daily {
		snap.DailyData = append(snap.DailyData, DailyStat{
			Date:   date,
			Counts: Counts{Taken: b.taken, Missed: b.missed, Total: b.total, Adherence: Percent(b.taken, b.total)},
		})
	}
	// YYYY-MM-DD ordena bien como string.
	sort.Slice(snap.DailyData, func(i, j int) bool { return snap.DailyData[i].Date < snap.DailyData[j].Date })

	snap.MedicationWise = make([]MedicationStat, 0, len(perMed))
	for medID, b := range perMed {
		m, err := s.d.Medications.GetByID(ctx, medID)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				// Solo se excluye del desglose, no de los totales.
				continue
			}
			return Snapshot{}, err
		}
		snap.MedicationWise = append(snap.MedicationWise, MedicationStat{
			MedicationID: m.ID,
			Name:         m.Name,
			Counts:       Counts{Taken: b.taken, Missed: b.missed, Total: b.total, Adherence: Percent(b.taken, b.total)},
		})
	}
	sort.Slice(snap.MedicationWise, func(i, j int) bool {
		a, b := snap.MedicationWise[i], snap.MedicationWise[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.MedicationID < b.MedicationID
	})

	s.d.Metrics.Report()
	s.cache(ctx, patient, snap)
	return snap, nil
}

// cache escribe el rate en el paciente. Es best-effort: si falla se loguea
// y el reporte se devuelve igual.
func (s *Service) cache(ctx context.Context, patient users.User, snap Snapshot) {
	if err := s.d.Patients.UpdateAdherenceRate(ctx, patient.ID, snap.OverallAdherence); err != nil {
		s.d.Metrics.CacheWriteFailed()
		s.d.Log.Warn("adherence cache write failed", map[string]any{"patient_id": patient.ID, "err": err})
		return
	}
	if snap.TotalDoses == 0 {
		return
	}
	s.notifyCrossing(ctx, patient, patient.AdherenceRate, snap.OverallAdherence)
}

func (s *Service) notifyCrossing(ctx context.Context, patient users.User, prev, next int) {
	if s.d.Notifier == nil || s.d.Caretakers == nil {
		return
	}

	var (
		typ notifications.Type
		msg string
	)
	th := s.d.Thresholds
	switch {
	case next < th.Alert && prev >= th.Alert:
		typ = notifications.TypeAdherenceAlert
		msg = patient.Name + "'s adherence dropped to " + strconv.Itoa(next) + "%"
	case next >= th.Success && prev < th.Success:
		typ = notifications.TypeAdherenceSuccess
		msg = patient.Name + " reached " + strconv.Itoa(next) + "% adherence"
	default:
		return
	}

	caretakers, err := s.d.Caretakers.CaretakersOf(ctx, patient.ID)
	if err != nil {
		s.d.Log.Warn("list caretakers failed", map[string]any{"patient_id": patient.ID, "err": err})
		return
	}
	for _, id := range caretakers {
		_, err := s.d.Notifier.Notify(ctx, notifications.Input{
			UserID:  id,
			Type:    typ,
			Message: msg,
			Metadata: map[string]string{
				"patient_id": patient.ID,
				"adherence":  strconv.Itoa(next),
			},
		})
		if err != nil {
			s.d.Log.Warn("adherence notification failed", map[string]any{"caretaker_id": id, "err": err})
		}
	}
}
