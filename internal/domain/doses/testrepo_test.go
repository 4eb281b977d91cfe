package doses

import (
	"context"
	"sort"
	"sync"
	"time"

	"care-connect/internal/domain/apperr"
	"care-connect/internal/domain/medications"
)

// -------------------------
// Test repos (in-memory)
// -------------------------

type testRepo struct {
	mu     sync.Mutex
	byID   map[string]Dose
	bySlot map[string]string
}

func newTestRepo() *testRepo {
	return &testRepo{byID: map[string]Dose{}, bySlot: map[string]string{}}
}

func slotKey(medicationID string, at time.Time) string {
	return medicationID + "|" + at.UTC().Format(time.RFC3339)
}

func (r *testRepo) InsertIfAbsent(ctx context.Context, d Dose) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := slotKey(d.MedicationID, d.ScheduledTime)
	if _, ok := r.bySlot[key]; ok {
		return false, nil
	}
	r.bySlot[key] = d.ID
	r.byID[d.ID] = d
	return true, nil
}

func (r *testRepo) GetByID(ctx context.Context, id string) (Dose, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.byID[id]
	if !ok {
		return Dose{}, apperr.ErrNotFound
	}
	return d, nil
}

func (r *testRepo) TransitionFromPending(ctx context.Context, id string, to Status, takenAt *time.Time, at time.Time) (Dose, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.byID[id]
	if !ok {
		return Dose{}, apperr.ErrNotFound
	}
	if d.Status != StatusPending {
		return Dose{}, apperr.ErrInvalidState
	}
	d.Status = to
	d.TakenAt = takenAt
	d.UpdatedAt = at
	r.byID[id] = d
	return d, nil
}

func (r *testRepo) filter(keep func(Dose) bool) []Dose {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Dose, 0)
	for _, d := range r.byID {
		if keep(d) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledTime.Before(out[j].ScheduledTime) })
	return out
}

func within(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}

func (r *testRepo) ListByMedicationBetween(ctx context.Context, medicationID string, from, to time.Time) ([]Dose, error) {
	return r.filter(func(d Dose) bool { return d.MedicationID == medicationID && within(d.ScheduledTime, from, to) }), nil
}

func (r *testRepo) ListByPatientBetween(ctx context.Context, patientID string, from, to time.Time) ([]Dose, error) {
	return r.filter(func(d Dose) bool { return d.PatientID == patientID && within(d.ScheduledTime, from, to) }), nil
}

func (r *testRepo) ListByPatientSince(ctx context.Context, patientID string, since time.Time) ([]Dose, error) {
	return r.filter(func(d Dose) bool { return d.PatientID == patientID && !d.ScheduledTime.Before(since) }), nil
}

func (r *testRepo) ListHistory(ctx context.Context, patientID string, from, to time.Time, limit, offset int) ([]Dose, int, error) {
	all := r.filter(func(d Dose) bool { return d.PatientID == patientID && within(d.ScheduledTime, from, to) })
	sort.SliceStable(all, func(i, j int) bool { return all[i].ScheduledTime.After(all[j].ScheduledTime) })
	total := len(all)
	if offset >= total {
		return []Dose{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (r *testRepo) ListOverduePending(ctx context.Context, before time.Time, limit int) ([]Dose, error) {
	out := r.filter(func(d Dose) bool { return d.Status == StatusPending && d.ScheduledTime.Before(before) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type testMeds struct {
	byID map[string]medications.Medication
}

func (m *testMeds) GetByID(ctx context.Context, id string) (medications.Medication, error) {
	med, ok := m.byID[id]
	if !ok {
		return medications.Medication{}, apperr.NotFound("medication not found")
	}
	return med, nil
}

func (m *testMeds) ListActive(ctx context.Context) ([]medications.Medication, error) {
	out := make([]medications.Medication, 0)
	for _, med := range m.byID {
		if med.Active() {
			out = append(out, med)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
