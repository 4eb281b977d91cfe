package links

import (
	"context"
	"errors"
	"testing"
	"time"

	"care-connect/internal/domain/apperr"
	"care-connect/internal/domain/notifications"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -------------------------
// Test repo (in-memory)
// -------------------------

type testRepo struct {
	byID map[string]Link
}

func newTestRepo() *testRepo {
	return &testRepo{byID: map[string]Link{}}
}

func (r *testRepo) Create(ctx context.Context, l Link) error {
	if _, ok := r.byID[l.ID]; ok {
		return apperr.ErrAlreadyExists
	}
	r.byID[l.ID] = l
	return nil
}

func (r *testRepo) Update(ctx context.Context, l Link) error {
	if _, ok := r.byID[l.ID]; !ok {
		return apperr.ErrNotFound
	}
	r.byID[l.ID] = l
	return nil
}

func (r *testRepo) GetByID(ctx context.Context, id string) (Link, error) {
	l, ok := r.byID[id]
	if !ok {
		return Link{}, apperr.ErrNotFound
	}
	return l, nil
}

func (r *testRepo) ListByPair(ctx context.Context, caretakerID, patientID string) ([]Link, error) {
	return r.filter(func(l Link) bool { return l.CaretakerID == caretakerID && l.PatientID == patientID }), nil
}

func (r *testRepo) ListByCaretaker(ctx context.Context, caretakerID string) ([]Link, error) {
	return r.filter(func(l Link) bool { return l.CaretakerID == caretakerID }), nil
}

func (r *testRepo) ListByPatient(ctx context.Context, patientID string) ([]Link, error) {
	return r.filter(func(l Link) bool { return l.PatientID == patientID }), nil
}

func (r *testRepo) filter(keep func(Link) bool) []Link {
	out := make([]Link, 0)
	for _, l := range r.byID {
		if keep(l) {
			out = append(out, l)
		}
	}
	return out
}

type recordingNotifier struct {
	sent []notifications.Input
}

func (n *recordingNotifier) Notify(ctx context.Context, in notifications.Input) (notifications.Notification, error) {
	n.sent = append(n.sent, in)
	return notifications.Notification{UserID: in.UserID, Type: in.Type}, nil
}

func newTestService(t *testing.T) (*Service, *testRepo, *recordingNotifier) {
	t.Helper()
	repo := newTestRepo()
	notifier := &recordingNotifier{}
	svc := NewService(repo, notifier, nil)

	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	tick := 0
	svc.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return svc, repo, notifier
}

func TestRequest_CreatesPendingAndNotifiesPatient(t *testing.T) {
	svc, _, notifier := newTestService(t)

	l, err := svc.Request(context.Background(), "care-1", "pat-1")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, l.Status)
	assert.NotEmpty(t, l.ID)

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "pat-1", notifier.sent[0].UserID)
	assert.Equal(t, notifications.TypeLinkRequest, notifier.sent[0].Type)
}

func TestRequest_RejectsSelfLink(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Request(context.Background(), "u-1", "u-1")
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))
}

func TestRequest_ReusesOpenLink(t *testing.T) {
	svc, repo, notifier := newTestService(t)
	ctx := context.Background()

	first, err := svc.Request(ctx, "care-1", "pat-1")
	require.NoError(t, err)
	second, err := svc.Request(ctx, "care-1", "pat-1")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, repo.byID, 1)
	assert.Len(t, notifier.sent, 1)
}

func TestRequest_DedupesDirtyData(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	old := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	repo.byID["a"] = Link{ID: "a", CaretakerID: "care-1", PatientID: "pat-1", Status: StatusPending, UpdatedAt: old}
	repo.byID["b"] = Link{ID: "b", CaretakerID: "care-1", PatientID: "pat-1", Status: StatusAccepted, UpdatedAt: old}

	l, err := svc.Request(ctx, "care-1", "pat-1")
	require.NoError(t, err)
	assert.Equal(t, "b", l.ID)
	assert.Equal(t, StatusRevoked, repo.byID["a"].Status)
}

func TestAccept_OnlyPatientAndOnlyPending(t *testing.T) {
	svc, _, notifier := newTestService(t)
	ctx := context.Background()

	l, err := svc.Request(ctx, "care-1", "pat-1")
	require.NoError(t, err)

	_, err = svc.Accept(ctx, l.ID, "care-1")
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	accepted, err := svc.Accept(ctx, l.ID, "pat-1")
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, accepted.Status)
	require.NotNil(t, accepted.RespondedAt)

	// idempotente
	again, err := svc.Accept(ctx, l.ID, "pat-1")
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, again.Status)

	last := notifier.sent[len(notifier.sent)-1]
	assert.Equal(t, "care-1", last.UserID)
	assert.Equal(t, notifications.TypePatientLinked, last.Type)

	_, err = svc.Reject(ctx, l.ID, "pat-1")
	assert.True(t, errors.Is(err, apperr.ErrInvalidState))
}

func TestAccept_UnknownLink(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Accept(context.Background(), "missing", "pat-1")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestReject_ThenAcceptIsInvalidState(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	l, err := svc.Request(ctx, "care-1", "pat-1")
	require.NoError(t, err)

	rejected, err := svc.Reject(ctx, l.ID, "pat-1")
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, rejected.Status)

	_, err = svc.Accept(ctx, l.ID, "pat-1")
	assert.True(t, errors.Is(err, apperr.ErrInvalidState))
}

func TestRevoke_EitherPartyButNotStrangers(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	l, err := svc.Request(ctx, "care-1", "pat-1")
	require.NoError(t, err)
	_, err = svc.Accept(ctx, l.ID, "pat-1")
	require.NoError(t, err)

	_, err = svc.Revoke(ctx, l.ID, "stranger")
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	revoked, err := svc.Revoke(ctx, l.ID, "care-1")
	require.NoError(t, err)
	assert.Equal(t, StatusRevoked, revoked.Status)

	ok, err := svc.CanView(ctx, "care-1", "pat-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCanView_SelfAndAcceptedCaretaker(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	ok, err := svc.CanView(ctx, "pat-1", "pat-1")
	require.NoError(t, err)
	assert.True(t, ok)

	l, err := svc.Request(ctx, "care-1", "pat-1")
	require.NoError(t, err)

	ok, err = svc.CanView(ctx, "care-1", "pat-1")
	require.NoError(t, err)
	assert.False(t, ok, "pending link does not grant access")

	_, err = svc.Accept(ctx, l.ID, "pat-1")
	require.NoError(t, err)

	ok, err = svc.CanView(ctx, "care-1", "pat-1")
	require.NoError(t, err)
	assert.True(t, ok)

	patients, err := svc.PatientsOf(ctx, "care-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"pat-1"}, patients)

	caretakers, err := svc.CaretakersOf(ctx, "pat-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"care-1"}, caretakers)
}

func TestListByUser_BothSides(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Request(ctx, "care-1", "pat-1")
	require.NoError(t, err)
	_, err = svc.Request(ctx, "care-2", "pat-1")
	require.NoError(t, err)

	asPatient, err := svc.ListByUser(ctx, "pat-1")
	require.NoError(t, err)
	assert.Len(t, asPatient, 2)

	asCaretaker, err := svc.ListByUser(ctx, "care-2")
	require.NoError(t, err)
	assert.Len(t, asCaretaker, 1)
}
