package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"care-connect/internal/domain/apperr"
	"care-connect/internal/domain/medications"
)

type medicationsRepo struct {
	mu   sync.RWMutex
	byID map[string]medications.Medication
}

func NewMedicationsRepo() medications.Repository {
	return &medicationsRepo{
		byID: make(map[string]medications.Medication),
	}
}

func (r *medicationsRepo) Create(ctx context.Context, m medications.Medication) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m.ID == "" {
		return errors.New("medication id required")
	}
	if _, exists := r.byID[m.ID]; exists {
		return apperr.ErrAlreadyExists
	}
	r.byID[m.ID] = cloneMedication(m)
	return nil
}

func (r *medicationsRepo) Update(ctx context.Context, m medications.Medication) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[m.ID]; !exists {
		return apperr.ErrNotFound
	}
	r.byID[m.ID] = cloneMedication(m)
	return nil
}

func (r *medicationsRepo) GetByID(ctx context.Context, id string) (medications.Medication, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.byID[id]
	if !ok {
		return medications.Medication{}, apperr.ErrNotFound
	}
	return cloneMedication(m), nil
}

func (r *medicationsRepo) ListByPatient(ctx context.Context, patientID string) ([]medications.Medication, error) {
	return r.listActive(func(m medications.Medication) bool { return m.PatientID == patientID }), nil
}

func (r *medicationsRepo) ListActive(ctx context.Context) ([]medications.Medication, error) {
	return r.listActive(func(medications.Medication) bool { return true }), nil
}

func (r *medicationsRepo) listActive(keep func(medications.Medication) bool) []medications.Medication {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]medications.Medication, 0)
	for _, m := range r.byID {
		if m.Active() && keep(m) {
			out = append(out, cloneMedication(m))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// El slice de timing no se comparte con el caller.
func cloneMedication(m medications.Medication) medications.Medication {
	m.Timing = append([]string(nil), m.Timing...)
	return m
}
