package users

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"care-connect/internal/domain/apperr"
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

type RegisterInput struct {
	Name   string
	Email  string
	Role   Role
	Phone  string
	Age    *int
	Gender string

	PushoverKey string
}

// Register crea el perfil del sujeto autenticado.
func (s *Service) Register(ctx context.Context, userID string, in RegisterInput) (User, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return User{}, apperr.InvalidInput("user id required")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return User{}, apperr.InvalidInput("name is required")
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return User{}, apperr.InvalidInput("please provide a valid email")
	}
	if !in.Role.Valid() {
		return User{}, apperr.InvalidInput("role must be patient, caretaker or donor")
	}
	if in.Age != nil && (*in.Age < 0 || *in.Age > 150) {
		return User{}, apperr.InvalidInput("age out of range")
	}

	now := s.now()
	u := User{
		ID:          userID,
		Name:        name,
		Email:       email,
		Role:        in.Role,
		Phone:       strings.TrimSpace(in.Phone),
		Age:         in.Age,
		Gender:      strings.TrimSpace(in.Gender),
		PushoverKey: strings.TrimSpace(in.PushoverKey),
		Status:      StatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, apperr.ErrAlreadyExists) {
			return User{}, apperr.New(apperr.ErrAlreadyExists, "profile already registered")
		}
		return User{}, err
	}
	return u, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return User{}, apperr.NotFound("user not found")
	}
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return User{}, apperr.NotFound("user not found")
		}
		return User{}, err
	}
	return u, nil
}

// PushoverKey resuelve el destinatario de push del usuario ("" si no tiene).
func (s *Service) PushoverKey(ctx context.Context, userID string) (string, error) {
	u, err := s.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return u.PushoverKey, nil
}

// GetPatient devuelve el usuario solo si existe y tiene rol patient.
func (s *Service) GetPatient(ctx context.Context, id string) (User, error) {
	u, err := s.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return User{}, apperr.NotFound("patient not found")
		}
		return User{}, err
	}
	if u.Role != RolePatient {
		return User{}, apperr.NotFound("patient not found")
	}
	return u, nil
}

// RequireRole valida que el usuario exista y tenga el rol pedido.
func (s *Service) RequireRole(ctx context.Context, id string, role Role) (User, error) {
	u, err := s.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return User{}, apperr.Forbidden("profile not registered")
		}
		return User{}, err
	}
	if u.Role != role {
		return User{}, apperr.Newf(apperr.ErrForbidden, "only %ss can do this", role)
	}
	return u, nil
}

func (s *Service) ListByIDs(ctx context.Context, ids []string) ([]User, error) {
	if len(ids) == 0 {
		return []User{}, nil
	}
	return s.repo.ListByIDs(ctx, ids)
}

// UpdateAdherenceRate sobrescribe el cache de adherencia del paciente.
func (s *Service) UpdateAdherenceRate(ctx context.Context, patientID string, rate int) error {
	if rate < 0 || rate > 100 {
		return apperr.Newf(apperr.ErrInvalidInput, "adherence rate %d out of range", rate)
	}
	if err := s.repo.UpdateAdherenceRate(ctx, patientID, rate); err != nil {
		return fmt.Errorf("update adherence rate for %s: %w", patientID, err)
	}
	return nil
}
