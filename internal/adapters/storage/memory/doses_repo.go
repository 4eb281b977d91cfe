package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"care-connect/internal/domain/apperr"
	"care-connect/internal/domain/doses"
)

// dosesRepo emula la constraint UNIQUE (medication_id, scheduled_time) con
// un índice por slot. El mutex hace atómico el update condicional.
type dosesRepo struct {
	mu     sync.RWMutex
	byID   map[string]doses.Dose
	bySlot map[string]string
}

func NewDosesRepo() doses.Repository {
	return &dosesRepo{
		byID:   make(map[string]doses.Dose),
		bySlot: make(map[string]string),
	}
}

func doseSlot(medicationID string, at time.Time) string {
	return medicationID + "|" + at.UTC().Format(time.RFC3339Nano)
}

func (r *dosesRepo) InsertIfAbsent(ctx context.Context, d doses.Dose) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if d.ID == "" {
		return false, errors.New("dose id required")
	}
	key := doseSlot(d.MedicationID, d.ScheduledTime)
	if _, exists := r.bySlot[key]; exists {
		return false, nil
	}
	r.bySlot[key] = d.ID
	r.byID[d.ID] = d
	return true, nil
}

func (r *dosesRepo) GetByID(ctx context.Context, id string) (doses.Dose, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.byID[id]
	if !ok {
		return doses.Dose{}, apperr.ErrNotFound
	}
	return d, nil
}

func (r *dosesRepo) TransitionFromPending(ctx context.Context, id string, to doses.Status, takenAt *time.Time, at time.Time) (doses.Dose, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.byID[id]
	if !ok {
		return doses.Dose{}, apperr.ErrNotFound
	}
	if d.Status != doses.StatusPending {
		return doses.Dose{}, apperr.ErrInvalidState
	}
	d.Status = to
	d.TakenAt = takenAt
	d.UpdatedAt = at
	r.byID[id] = d
	return d, nil
}

func (r *dosesRepo) ListByMedicationBetween(ctx context.Context, medicationID string, from, to time.Time) ([]doses.Dose, error) {
	return r.list(func(d doses.Dose) bool {
		return d.MedicationID == medicationID && inRange(d.ScheduledTime, from, to)
	}), nil
}

func (r *dosesRepo) ListByPatientBetween(ctx context.Context, patientID string, from, to time.Time) ([]doses.Dose, error) {
	return r.list(func(d doses.Dose) bool {
		return d.PatientID == patientID && inRange(d.ScheduledTime, from, to)
	}), nil
}

func (r *dosesRepo) ListByPatientSince(ctx context.Context, patientID string, since time.Time) ([]doses.Dose, error) {
	return r.list(func(d doses.Dose) bool {
		return d.PatientID == patientID && !d.ScheduledTime.Before(since)
	}), nil
}

func (r *dosesRepo) ListHistory(ctx context.Context, patientID string, from, to time.Time, limit, offset int) ([]doses.Dose, int, error) {
	all := r.list(func(d doses.Dose) bool {
		return d.PatientID == patientID && inRange(d.ScheduledTime, from, to)
	})
	// más recientes primero
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}

	total := len(all)
	if offset >= total {
		return []doses.Dose{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (r *dosesRepo) ListOverduePending(ctx context.Context, before time.Time, limit int) ([]doses.Dose, error) {
	out := r.list(func(d doses.Dose) bool {
		return d.Status == doses.StatusPending && d.ScheduledTime.Before(before)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *dosesRepo) list(keep func(doses.Dose) bool) []doses.Dose {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]doses.Dose, 0)
	for _, d := range r.byID {
		if keep(d) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScheduledTime.Equal(out[j].ScheduledTime) {
			return out[i].ScheduledTime.Before(out[j].ScheduledTime)
		}
		return out[i].MedicationID < out[j].MedicationID
	})
	return out
}

func inRange(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}
