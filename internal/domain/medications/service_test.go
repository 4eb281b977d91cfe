package medications

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"care-connect/internal/domain/apperr"
	"care-connect/internal/domain/notifications"
	"care-connect/internal/platform/clock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRepo struct {
	byID map[string]Medication
}

func newTestRepo() *testRepo {
	return &testRepo{byID: map[string]Medication{}}
}

func (r *testRepo) Create(ctx context.Context, m Medication) error {
	r.byID[m.ID] = m
	return nil
}

func (r *testRepo) Update(ctx context.Context, m Medication) error {
	if _, ok := r.byID[m.ID]; !ok {
		return apperr.ErrNotFound
	}
	r.byID[m.ID] = m
	return nil
}

func (r *testRepo) GetByID(ctx context.Context, id string) (Medication, error) {
	m, ok := r.byID[id]
	if !ok {
		return Medication{}, apperr.ErrNotFound
	}
	return m, nil
}

func (r *testRepo) ListByPatient(ctx context.Context, patientID string) ([]Medication, error) {
	out := make([]Medication, 0)
	for _, m := range r.byID {
		if m.PatientID == patientID && m.Active() {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *testRepo) ListActive(ctx context.Context) ([]Medication, error) {
	out := make([]Medication, 0)
	for _, m := range r.byID {
		if m.Active() {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeLinks map[string]bool

func (f fakeLinks) IsAccepted(ctx context.Context, caretakerID, patientID string) (bool, error) {
	return f[caretakerID+"|"+patientID], nil
}

type recordingNotifier struct {
	sent []notifications.Input
}

func (n *recordingNotifier) Notify(ctx context.Context, in notifications.Input) (notifications.Notification, error) {
	n.sent = append(n.sent, in)
	return notifications.Notification{}, nil
}

var loc = time.FixedZone("ART", -3*3600)

func newTestService() (*Service, *testRepo, *recordingNotifier, *clock.Fixed) {
	repo := newTestRepo()
	notifier := &recordingNotifier{}
	clk := clock.NewFixed(time.Date(2026, 3, 10, 9, 30, 0, 0, loc))
	links := fakeLinks{"care-1|pat-1": true}
	return NewService(repo, links, notifier, clk, nil), repo, notifier, clk
}

func validInput() CreateInput {
	return CreateInput{
		PatientID: "pat-1",
		Name:      "Metformin",
		Dosage:    "500mg",
		Frequency: "twice daily",
		Timing:    []string{"08:00", "20:00"},
	}
}

func TestCreate_DefaultsAndNotifies(t *testing.T) {
	svc, repo, notifier, _ := newTestService()

	m, err := svc.Create(context.Background(), "care-1", validInput())
	require.NoError(t, err)

	assert.True(t, m.Active())
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, loc), m.StartDate)
	assert.Nil(t, m.EndDate)
	assert.Contains(t, repo.byID, m.ID)

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, notifications.TypeMedicationAdded, notifier.sent[0].Type)
	assert.Equal(t, "pat-1", notifier.sent[0].UserID)
}

func TestCreate_RequiresAcceptedLink(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.Create(context.Background(), "care-2", validInput())
	assert.True(t, errors.Is(err, apperr.ErrForbidden))
}

func TestCreate_MalformedTimingIsConfigurationError(t *testing.T) {
	svc, repo, _, _ := newTestService()

	in := validInput()
	in.Timing = []string{"08:00", "25:99"}
	_, err := svc.Create(context.Background(), "care-1", in)
	assert.True(t, errors.Is(err, apperr.ErrConfiguration))

	in.Timing = nil
	_, err = svc.Create(context.Background(), "care-1", in)
	assert.True(t, errors.Is(err, apperr.ErrConfiguration))
	assert.Empty(t, repo.byID)
}

func TestCreate_EndBeforeStart(t *testing.T) {
	svc, _, _, _ := newTestService()

	in := validInput()
	start, _ := svc.ParseDate("2026-03-10")
	end, _ := svc.ParseDate("2026-03-09")
	in.StartDate, in.EndDate = start, end

	_, err := svc.Create(context.Background(), "care-1", in)
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))
}

func TestCreate_DatesKeepCalendarDay(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	// medianoche UTC del 10/03 sigue siendo el 10/03, no el 09/03 en ART
	in := validInput()
	start, _ := svc.ParseDate("2026-03-10")
	end := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	in.StartDate, in.EndDate = start, &end

	m, err := svc.Create(ctx, "care-1", in)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, loc), m.StartDate)
	require.NotNil(t, m.EndDate)
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, loc), *m.EndDate)

	updated, err := svc.Update(ctx, m.ID, "care-1", UpdateInput{EndDate: &end})
	require.NoError(t, err)
	require.NotNil(t, updated.EndDate)
	assert.Equal(t, "2026-03-10", updated.EndDate.Format(clock.DateLayout))
}

func TestUpdate_OnlyPrescriberAndNotRetired(t *testing.T) {
	svc, _, notifier, _ := newTestService()
	ctx := context.Background()

	m, err := svc.Create(ctx, "care-1", validInput())
	require.NoError(t, err)

	dosage := "850mg"
	_, err = svc.Update(ctx, m.ID, "pat-1", UpdateInput{Dosage: &dosage})
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	updated, err := svc.Update(ctx, m.ID, "care-1", UpdateInput{Dosage: &dosage, Timing: []string{"9:00"}})
	require.NoError(t, err)
	assert.Equal(t, "850mg", updated.Dosage)
	assert.Equal(t, []string{"09:00"}, updated.Timing)
	assert.Equal(t, notifications.TypeMedicationUpdated, notifier.sent[len(notifier.sent)-1].Type)

	_, err = svc.Update(ctx, m.ID, "care-1", UpdateInput{Timing: []string{"nope"}})
	assert.True(t, errors.Is(err, apperr.ErrConfiguration))

	_, err = svc.Retire(ctx, m.ID, "care-1")
	require.NoError(t, err)

	_, err = svc.Update(ctx, m.ID, "care-1", UpdateInput{Dosage: &dosage})
	assert.True(t, errors.Is(err, apperr.ErrInvalidState))
}

func TestRetire_SoftDeleteIsIdempotent(t *testing.T) {
	svc, repo, _, _ := newTestService()
	ctx := context.Background()

	m, err := svc.Create(ctx, "care-1", validInput())
	require.NoError(t, err)

	retired, err := svc.Retire(ctx, m.ID, "care-1")
	require.NoError(t, err)
	assert.Equal(t, LifecycleRetired, retired.Lifecycle)

	again, err := svc.Retire(ctx, m.ID, "care-1")
	require.NoError(t, err)
	assert.Equal(t, LifecycleRetired, again.Lifecycle)

	// sigue existiendo, solo deja de listarse
	assert.Contains(t, repo.byID, m.ID)
	items, err := svc.ListByPatient(ctx, "pat-1")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestGetByID_NotFound(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.GetByID(context.Background(), "missing")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	assert.Equal(t, "medication not found", apperr.MessageOf(err))
}
