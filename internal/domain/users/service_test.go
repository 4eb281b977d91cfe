package users_test

import (
	"context"
	"testing"

	"care-connect/internal/adapters/storage/memory"
	"care-connect/internal/domain/apperr"
	"care-connect/internal/domain/users"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) *users.Service {
	t.Helper()
	return users.NewService(memory.NewUsersRepo())
}

func registerPatient(t *testing.T, svc *users.Service, id, email string) users.User {
	t.Helper()
	u, err := svc.Register(context.Background(), id, users.RegisterInput{
		Name:  "Ana",
		Email: email,
		Role:  users.RolePatient,
	})
	require.NoError(t, err)
	return u
}

func TestRegister_NormalizesAndDefaults(t *testing.T) {
	svc := newService(t)

	u, err := svc.Register(context.Background(), "u-1", users.RegisterInput{
		Name:        "  Ana  ",
		Email:       " Ana@Example.COM ",
		Role:        users.RolePatient,
		PushoverKey: " ukey ",
	})
	require.NoError(t, err)

	assert.Equal(t, "Ana", u.Name)
	assert.Equal(t, "ana@example.com", u.Email)
	assert.Equal(t, users.StatusActive, u.Status)
	assert.Equal(t, "ukey", u.PushoverKey)
	assert.Zero(t, u.AdherenceRate)
}

func TestRegister_Validation(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	badAge := 200

	tests := []struct {
		name string
		id   string
		in   users.RegisterInput
	}{
		{"missing id", "", users.RegisterInput{Name: "A", Email: "a@x.com", Role: users.RolePatient}},
		{"missing name", "u", users.RegisterInput{Email: "a@x.com", Role: users.RolePatient}},
		{"bad email", "u", users.RegisterInput{Name: "A", Email: "nope", Role: users.RolePatient}},
		{"bad role", "u", users.RegisterInput{Name: "A", Email: "a@x.com", Role: "doctor"}},
		{"bad age", "u", users.RegisterInput{Name: "A", Email: "a@x.com", Role: users.RolePatient, Age: &badAge}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tc.id, tc.in)
			assert.ErrorIs(t, err, apperr.ErrInvalidInput)
		})
	}
}

func TestRegister_DuplicateProfile(t *testing.T) {
	svc := newService(t)
	registerPatient(t, svc, "u-1", "ana@example.com")

	_, err := svc.Register(context.Background(), "u-1", users.RegisterInput{Name: "Ana", Email: "other@example.com", Role: users.RolePatient})
	assert.ErrorIs(t, err, apperr.ErrAlreadyExists)

	_, err = svc.Register(context.Background(), "u-2", users.RegisterInput{Name: "Ana", Email: "ana@example.com", Role: users.RolePatient})
	assert.ErrorIs(t, err, apperr.ErrAlreadyExists)
}

func TestGetPatient_RequiresPatientRole(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	registerPatient(t, svc, "p-1", "p@example.com")
	_, err := svc.Register(ctx, "c-1", users.RegisterInput{Name: "Luis", Email: "c@example.com", Role: users.RoleCaretaker})
	require.NoError(t, err)

	p, err := svc.GetPatient(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, "p-1", p.ID)

	_, err = svc.GetPatient(ctx, "c-1")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = svc.GetPatient(ctx, "ghost")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRequireRole(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	registerPatient(t, svc, "p-1", "p@example.com")

	_, err := svc.RequireRole(ctx, "p-1", users.RolePatient)
	assert.NoError(t, err)

	_, err = svc.RequireRole(ctx, "p-1", users.RoleCaretaker)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = svc.RequireRole(ctx, "ghost", users.RoleCaretaker)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestUpdateAdherenceRate(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	registerPatient(t, svc, "p-1", "p@example.com")

	require.NoError(t, svc.UpdateAdherenceRate(ctx, "p-1", 83))
	p, err := svc.GetByID(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, 83, p.AdherenceRate)

	assert.ErrorIs(t, svc.UpdateAdherenceRate(ctx, "p-1", 101), apperr.ErrInvalidInput)
	assert.ErrorIs(t, svc.UpdateAdherenceRate(ctx, "ghost", 50), apperr.ErrNotFound)
}

func TestPushoverKeyAndListByIDs(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	registerPatient(t, svc, "p-1", "p@example.com")
	registerPatient(t, svc, "p-2", "q@example.com")

	key, err := svc.PushoverKey(ctx, "p-1")
	require.NoError(t, err)
	assert.Empty(t, key)

	list, err := svc.ListByIDs(ctx, []string{"p-2", "ghost", "p-1"})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "p-2", list[0].ID)

	empty, err := svc.ListByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
