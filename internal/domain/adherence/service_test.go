package adherence

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"care-connect/internal/domain/apperr"
	"care-connect/internal/domain/doses"
	"care-connect/internal/domain/medications"
	"care-connect/internal/domain/notifications"
	"care-connect/internal/domain/users"
	"care-connect/internal/platform/clock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var loc = time.FixedZone("ART", -3*3600)

type fakePatients struct {
	byID     map[string]users.User
	cacheErr error
	writes   []int
}

func (f *fakePatients) GetPatient(ctx context.Context, id string) (users.User, error) {
	u, ok := f.byID[id]
	if !ok || u.Role != users.RolePatient {
		return users.User{}, apperr.NotFound("patient not found")
	}
	return u, nil
}

func (f *fakePatients) UpdateAdherenceRate(ctx context.Context, id string, rate int) error {
	if f.cacheErr != nil {
		return f.cacheErr
	}
	f.writes = append(f.writes, rate)
	u := f.byID[id]
	u.AdherenceRate = rate
	f.byID[id] = u
	return nil
}

type fakeDoses struct {
	items []doses.Dose
	since time.Time
}

func (f *fakeDoses) ListByPatientSince(ctx context.Context, patientID string, since time.Time) ([]doses.Dose, error) {
	f.since = since
	out := make([]doses.Dose, 0)
	for _, d := range f.items {
		if d.PatientID == patientID && !d.ScheduledTime.Before(since) {
			out = append(out, d)
		}
	}
	return out, nil
}

type fakeMeds map[string]medications.Medication

func (f fakeMeds) GetByID(ctx context.Context, id string) (medications.Medication, error) {
	m, ok := f[id]
	if !ok {
		return medications.Medication{}, apperr.NotFound("medication not found")
	}
	return m, nil
}

type fakeCaretakers []string

func (f fakeCaretakers) CaretakersOf(ctx context.Context, patientID string) ([]string, error) {
	return f, nil
}

type recordingNotifier struct {
	sent []notifications.Input
}

func (n *recordingNotifier) Notify(ctx context.Context, in notifications.Input) (notifications.Notification, error) {
	n.sent = append(n.sent, in)
	return notifications.Notification{}, nil
}

type fixture struct {
	svc      *Service
	patients *fakePatients
	doses    *fakeDoses
	notifier *recordingNotifier
	now      time.Time
	seq      int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	now := time.Date(2026, 3, 31, 12, 0, 0, 0, loc)
	f := &fixture{
		patients: &fakePatients{byID: map[string]users.User{
			"pat-1":  {ID: "pat-1", Name: "Ana", Role: users.RolePatient},
			"care-1": {ID: "care-1", Name: "Luis", Role: users.RoleCaretaker},
		}},
		doses:    &fakeDoses{},
		notifier: &recordingNotifier{},
		now:      now,
	}
	f.svc = NewService(Deps{
		Patients: f.patients,
		Doses:    f.doses,
		Medications: fakeMeds{
			"med-a": {ID: "med-a", Name: "Aspirin"},
			"med-b": {ID: "med-b", Name: "Metformin"},
		},
		Caretakers: fakeCaretakers{"care-1"},
		Notifier:   f.notifier,
		Clock:      clock.NewFixed(now),
	})
	return f
}

func (f *fixture) add(medID string, at time.Time, st doses.Status) {
	f.seq++
	f.doses.items = append(f.doses.items, doses.Dose{
		ID:            fmt.Sprintf("d-%d", f.seq),
		MedicationID:  medID,
		PatientID:     "pat-1",
		ScheduledTime: at,
		Status:        st,
	})
}

func TestPercent_RoundsHalfUp(t *testing.T) {
	assert.Equal(t, 0, Percent(0, 0))
	assert.Equal(t, 33, Percent(1, 3))
	assert.Equal(t, 67, Percent(2, 3))
	assert.Equal(t, 50, Percent(1, 2))
	assert.Equal(t, 80, Percent(8, 10))
	assert.Equal(t, 100, Percent(7, 7))
	assert.Equal(t, 13, Percent(1, 8)) // 12.5
}

func TestReport_EightOfTen(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 10; i++ {
		st := doses.StatusTaken
		if i >= 8 {
			st = doses.StatusMissed
		}
		f.add("med-a", f.now.AddDate(0, 0, -i-1), st)
	}

	snap, err := f.svc.Report(context.Background(), "pat-1", 30)
	require.NoError(t, err)

	assert.Equal(t, 80, snap.OverallAdherence)
	assert.Equal(t, 8, snap.TakenDoses)
	assert.Equal(t, 2, snap.MissedDoses)
	assert.Equal(t, 10, snap.TotalDoses)
	assert.Equal(t, "Ana", snap.PatientName)
	assert.Equal(t, 30, snap.Period)
	assert.Equal(t, []int{80}, f.patients.writes)
}

func TestReport_ZeroDoses(t *testing.T) {
	f := newFixture(t)

	snap, err := f.svc.Report(context.Background(), "pat-1", 30)
	require.NoError(t, err)
	assert.Equal(t, 0, snap.OverallAdherence)
	assert.Equal(t, 0, snap.TotalDoses)
	assert.Empty(t, snap.DailyData)
	assert.Empty(t, snap.MedicationWise)
	assert.Empty(t, f.notifier.sent)
}

func TestReport_PendingCountsOnlyInTotalAndFutureIncluded(t *testing.T) {
	f := newFixture(t)
	f.add("med-a", f.now.Add(-2*time.Hour), doses.StatusTaken)
	f.add("med-a", f.now.Add(6*time.Hour), doses.StatusPending) // futura, ya generada
	f.add("med-a", f.now.AddDate(0, 0, -31), doses.StatusTaken) // fuera de ventana

	snap, err := f.svc.Report(context.Background(), "pat-1", 30)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.TotalDoses)
	assert.Equal(t, 1, snap.TakenDoses)
	assert.Equal(t, 0, snap.MissedDoses)
	assert.Equal(t, 50, snap.OverallAdherence)
	assert.LessOrEqual(t, snap.TakenDoses+snap.MissedDoses, snap.TotalDoses)
	assert.Equal(t, f.now.AddDate(0, 0, -30), f.doses.since)
}

func TestReport_DailySortedByReferenceDate(t *testing.T) {
	f := newFixture(t)
	// 01:30 UTC del 30/03 es 29/03 22:30 en ART.
	f.add("med-a", time.Date(2026, 3, 30, 1, 30, 0, 0, time.UTC), doses.StatusTaken)
	f.add("med-a", time.Date(2026, 3, 28, 8, 0, 0, 0, loc), doses.StatusMissed)
	f.add("med-a", time.Date(2026, 3, 29, 8, 0, 0, 0, loc), doses.StatusMissed)
	f.add("med-a", time.Date(2026, 3, 29, 20, 0, 0, 0, loc), doses.StatusTaken)

	snap, err := f.svc.Report(context.Background(), "pat-1", 30)
	require.NoError(t, err)

	require.Len(t, snap.DailyData, 2)
	assert.Equal(t, "2026-03-28", snap.DailyData[0].Date)
	assert.Equal(t, Counts{Taken: 0, Missed: 1, Total: 1, Adherence: 0}, snap.DailyData[0].Counts)
	assert.Equal(t, "2026-03-29", snap.DailyData[1].Date)
	assert.Equal(t, Counts{Taken: 2, Missed: 1, Total: 3, Adherence: 67}, snap.DailyData[1].Counts)
}

func TestReport_MedicationWiseSkipsUnresolved(t *testing.T) {
	f := newFixture(t)
	f.add("med-b", f.now.Add(-time.Hour), doses.StatusTaken)
	f.add("med-a", f.now.Add(-2*time.Hour), doses.StatusMissed)
	f.add("med-gone", f.now.Add(-3*time.Hour), doses.StatusTaken)

	snap, err := f.svc.Report(context.Background(), "pat-1", 30)
	require.NoError(t, err)

	assert.Equal(t, 3, snap.TotalDoses)
	assert.Equal(t, 67, snap.OverallAdherence)
	require.Len(t, snap.MedicationWise, 2)
	assert.Equal(t, "Aspirin", snap.MedicationWise[0].Name)
	assert.Equal(t, 0, snap.MedicationWise[0].Adherence)
	assert.Equal(t, "Metformin", snap.MedicationWise[1].Name)
	assert.Equal(t, 100, snap.MedicationWise[1].Adherence)
}

func TestReport_CacheFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.patients.cacheErr = errors.New("db down")
	f.add("med-a", f.now.Add(-time.Hour), doses.StatusTaken)

	snap, err := f.svc.Report(context.Background(), "pat-1", 30)
	require.NoError(t, err)
	assert.Equal(t, 100, snap.OverallAdherence)
	assert.Empty(t, f.notifier.sent)
}

func TestReport_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Report(ctx, "pat-1", 0)
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))

	_, err = f.svc.Report(ctx, "nobody", 30)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	_, err = f.svc.Report(ctx, "care-1", 30)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestReport_NotifiesOnlyOnThresholdCrossing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p := f.patients.byID["pat-1"]
	p.AdherenceRate = 75
	f.patients.byID["pat-1"] = p

	// 1/2 = 50: cruza hacia abajo el 70.
	f.add("med-a", f.now.Add(-time.Hour), doses.StatusTaken)
	f.add("med-a", f.now.Add(-2*time.Hour), doses.StatusMissed)

	_, err := f.svc.Report(ctx, "pat-1", 30)
	require.NoError(t, err)
	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, notifications.TypeAdherenceAlert, f.notifier.sent[0].Type)
	assert.Equal(t, "care-1", f.notifier.sent[0].UserID)

	// Sigue en 50: no se repite.
	_, err = f.svc.Report(ctx, "pat-1", 30)
	require.NoError(t, err)
	assert.Len(t, f.notifier.sent, 1)

	// Sube a 10/11 = 91.
	for i := 0; i < 9; i++ {
		f.add("med-a", f.now.Add(-time.Duration(3+i)*time.Hour), doses.StatusTaken)
	}
	_, err = f.svc.Report(ctx, "pat-1", 30)
	require.NoError(t, err)
	require.Len(t, f.notifier.sent, 2)
	assert.Equal(t, notifications.TypeAdherenceSuccess, f.notifier.sent[1].Type)
}
