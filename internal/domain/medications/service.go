package medications

import (
	"context"
	"errors"
	"strings"
	"time"

	"care-connect/internal/domain/apperr"
	"care-connect/internal/domain/notifications"
	"care-connect/internal/platform/clock"
	"care-connect/internal/platform/logger"

	"github.com/google/uuid"
)

// LinkChecker evita importar links (rompe ciclos).
type LinkChecker interface {
	IsAccepted(ctx context.Context, caretakerID, patientID string) (bool, error)
}

type Service struct {
	repo     Repository
	links    LinkChecker
	notifier notifications.Notifier
	clock    clock.Clock
	log      logger.Logger
}

func NewService(repo Repository, links LinkChecker, notifier notifications.Notifier, clk clock.Clock, log logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		repo:     repo,
		links:    links,
		notifier: notifier,
		clock:    clk,
		log:      log.With(map[string]any{"component": "medications"}),
	}
}

type CreateInput struct {
	PatientID    string
	Name         string
	Dosage       string
	Frequency    string
	Timing       []string
	Instructions string
	StartDate    *time.Time // nil = hoy
	EndDate      *time.Time
}

func (s *Service) Create(ctx context.Context, caretakerID string, in CreateInput) (Medication, error) {
	caretakerID = strings.TrimSpace(caretakerID)
	patientID := strings.TrimSpace(in.PatientID)
	if caretakerID == "" || patientID == "" {
		return Medication{}, apperr.InvalidInput("caretaker and patient are required")
	}
	name := strings.TrimSpace(in.Name)
	dosage := strings.TrimSpace(in.Dosage)
	frequency := strings.TrimSpace(in.Frequency)
	if name == "" || dosage == "" || frequency == "" {
		return Medication{}, apperr.InvalidInput("name, dosage and frequency are required")
	}

	timing, err := normalizeTiming(in.Timing)
	if err != nil {
		return Medication{}, err
	}

	ok, err := s.links.IsAccepted(ctx, caretakerID, patientID)
	if err != nil {
		return Medication{}, err
	}
	if !ok {
		return Medication{}, apperr.Forbidden("no accepted link with this patient")
	}

	now := s.clock.Now()
	loc := s.clock.Location()

	start := clock.StartOfDay(now, loc)
	if in.StartDate != nil {
		start = clock.CalendarDay(*in.StartDate, loc)
	}
	end, err := normalizeEnd(start, in.EndDate, loc)
	if err != nil {
		return Medication{}, err
	}

	m := Medication{
		ID:           uuid.NewString(),
		PatientID:    patientID,
		CaretakerID:  caretakerID,
		Name:         name,
		Dosage:       dosage,
		Frequency:    frequency,
		Timing:       timing,
		Instructions: strings.TrimSpace(in.Instructions),
		StartDate:    start,
		EndDate:      end,
		Lifecycle:    LifecycleActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return Medication{}, err
	}

	s.notify(ctx, notifications.Input{
		UserID:   m.PatientID,
		Type:     notifications.TypeMedicationAdded,
		Message:  "New medication added: " + m.Name,
		Metadata: map[string]string{"medication_id": m.ID},
	})
	return m, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Medication, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Medication{}, apperr.NotFound("medication not found")
	}
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return Medication{}, apperr.NotFound("medication not found")
		}
		return Medication{}, err
	}
	return m, nil
}

// OwnerOf resuelve el paciente dueño de la medicación.
func (s *Service) OwnerOf(ctx context.Context, id string) (string, error) {
	m, err := s.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return m.PatientID, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID string) ([]Medication, error) {
	return s.repo.ListByPatient(ctx, strings.TrimSpace(patientID))
}

func (s *Service) ListActive(ctx context.Context) ([]Medication, error) {
	return s.repo.ListActive(ctx)
}

// UpdateInput: campos nil no se tocan.
type UpdateInput struct {
	Name         *string
	Dosage       *string
	Frequency    *string
	Timing       []string
	Instructions *string
	EndDate      *time.Time
	ClearEndDate bool
}

// Update solo lo puede hacer el caretaker que prescribió. Las dosis ya
// generadas no se tocan; los nuevos horarios aplican a la próxima generación.
func (s *Service) Update(ctx context.Context, id, callerID string, in UpdateInput) (Medication, error) {
	m, err := s.getForPrescriber(ctx, id, callerID)
	if err != nil {
		return Medication{}, err
	}
	if !m.Active() {
		return Medication{}, apperr.InvalidState("medication is retired")
	}

	if in.Name != nil {
		v := strings.TrimSpace(*in.Name)
		if v == "" {
			return Medication{}, apperr.InvalidInput("name cannot be empty")
		}
		m.Name = v
	}
	if in.Dosage != nil {
		v := strings.TrimSpace(*in.Dosage)
		if v == "" {
			return Medication{}, apperr.InvalidInput("dosage cannot be empty")
		}
		m.Dosage = v
	}
	if in.Frequency != nil {
		v := strings.TrimSpace(*in.Frequency)
		if v == "" {
			return Medication{}, apperr.InvalidInput("frequency cannot be empty")
		}
		m.Frequency = v
	}
	if in.Timing != nil {
		timing, err := normalizeTiming(in.Timing)
		if err != nil {
			return Medication{}, err
		}
		m.Timing = timing
	}
	if in.Instructions != nil {
		m.Instructions = strings.TrimSpace(*in.Instructions)
	}
	switch {
	case in.ClearEndDate:
		m.EndDate = nil
	case in.EndDate != nil:
		end, err := normalizeEnd(m.StartDate, in.EndDate, s.clock.Location())
		if err != nil {
			return Medication{}, err
		}
		m.EndDate = end
	}

	m.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, m); err != nil {
		return Medication{}, err
	}

	s.notify(ctx, notifications.Input{
		UserID:   m.PatientID,
		Type:     notifications.TypeMedicationUpdated,
		Message:  "Medication updated: " + m.Name,
		Metadata: map[string]string{"medication_id": m.ID},
	})
	return m, nil
}

// Retire es el "delete": soft delete, idempotente.
func (s *Service) Retire(ctx context.Context, id, callerID string) (Medication, error) {
	m, err := s.getForPrescriber(ctx, id, callerID)
	if err != nil {
		return Medication{}, err
	}
	if !m.Active() {
		return m, nil
	}

	m.Lifecycle = LifecycleRetired
	m.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, m); err != nil {
		return Medication{}, err
	}
	return m, nil
}

func (s *Service) getForPrescriber(ctx context.Context, id, callerID string) (Medication, error) {
	m, err := s.GetByID(ctx, id)
	if err != nil {
		return Medication{}, err
	}
	if m.CaretakerID != strings.TrimSpace(callerID) {
		return Medication{}, apperr.Forbidden("only the prescribing caretaker can change this medication")
	}
	return m, nil
}

func (s *Service) notify(ctx context.Context, in notifications.Input) {
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.Notify(ctx, in); err != nil {
		s.log.Warn("medication notification failed", map[string]any{"user_id": in.UserID, "type": in.Type, "err": err})
	}
}

func normalizeEnd(start time.Time, end *time.Time, loc *time.Location) (*time.Time, error) {
	if end == nil {
		return nil, nil
	}
	e := clock.CalendarDay(*end, loc)
	if e.Before(clock.CalendarDay(start, loc)) {
		return nil, apperr.InvalidInput("endDate cannot be before startDate")
	}
	return &e, nil
}

// ParseDate interpreta "2006-01-02" como día calendario en la zona de referencia.
func (s *Service) ParseDate(v string) (*time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(clock.DateLayout, v, s.clock.Location())
	if err != nil {
		return nil, apperr.Newf(apperr.ErrInvalidInput, "invalid date %q: expected YYYY-MM-DD", v)
	}
	return &t, nil
}
