package links

import (
	"context"
	"errors"
	"strings"
	"time"

	"care-connect/internal/domain/apperr"
	"care-connect/internal/domain/notifications"
	"care-connect/internal/platform/logger"

	"github.com/google/uuid"
)

type Service struct {
	repo     Repository
	notifier notifications.Notifier
	log      logger.Logger
	now      func() time.Time
}

// NewService: notifier puede ser nil (sin avisos).
func NewService(repo Repository, notifier notifications.Notifier, log logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		repo:     repo,
		notifier: notifier,
		log:      log.With(map[string]any{"component": "links"}),
		now:      time.Now,
	}
}

// Request crea (o reutiliza) un link pending del caretaker hacia el paciente.
func (s *Service) Request(ctx context.Context, caretakerID, patientID string) (Link, error) {
	caretakerID = strings.TrimSpace(caretakerID)
	patientID = strings.TrimSpace(patientID)
	if caretakerID == "" || patientID == "" {
		return Link{}, apperr.InvalidInput("caretaker and patient are required")
	}
	if caretakerID == patientID {
		return Link{}, apperr.InvalidInput("cannot link a user with themselves")
	}

	now := s.now()

	existing, err := s.repo.ListByPair(ctx, caretakerID, patientID)
	if err != nil {
		return Link{}, err
	}
	if winner, ok := latestOpen(existing); ok {
		// Dedup: si hay más de un link abierto (data sucia), queda solo el más nuevo.
		s.revokeOthers(ctx, winner.ID, existing, now)
		return winner, nil
	}

	l := Link{
		ID:          uuid.NewString(),
		CaretakerID: caretakerID,
		PatientID:   patientID,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, l); err != nil {
		return Link{}, err
	}

	s.notify(ctx, notifications.Input{
		UserID:   patientID,
		Type:     notifications.TypeLinkRequest,
		Message:  "A caretaker wants to follow your medication plan",
		Metadata: map[string]string{"link_id": l.ID, "caretaker_id": caretakerID},
	})
	return l, nil
}

func (s *Service) Accept(ctx context.Context, linkID, patientID string) (Link, error) {
	l, err := s.getForPatient(ctx, linkID, patientID)
	if err != nil {
		return Link{}, err
	}

	// Idempotente
	if l.Status == StatusAccepted {
		return l, nil
	}
	if l.Status != StatusPending {
		return Link{}, apperr.Newf(apperr.ErrInvalidState, "link is %s", l.Status)
	}

	now := s.now()
	l.Status = StatusAccepted
	l.UpdatedAt = now
	l.RespondedAt = &now
	if err := s.repo.Update(ctx, l); err != nil {
		return Link{}, err
	}

	if all, err := s.repo.ListByPair(ctx, l.CaretakerID, l.PatientID); err == nil {
		s.revokeOthers(ctx, l.ID, all, now)
	}

	s.notify(ctx, notifications.Input{
		UserID:   l.CaretakerID,
		Type:     notifications.TypePatientLinked,
		Message:  "Your link request was accepted",
		Metadata: map[string]string{"link_id": l.ID, "patient_id": l.PatientID},
	})
	return l, nil
}

func (s *Service) Reject(ctx context.Context, linkID, patientID string) (Link, error) {
	l, err := s.getForPatient(ctx, linkID, patientID)
	if err != nil {
		return Link{}, err
	}
	if l.Status == StatusRejected {
		return l, nil
	}
	if l.Status != StatusPending {
		return Link{}, apperr.Newf(apperr.ErrInvalidState, "link is %s", l.Status)
	}

	now := s.now()
	l.Status = StatusRejected
	l.UpdatedAt = now
	l.RespondedAt = &now
	if err := s.repo.Update(ctx, l); err != nil {
		return Link{}, err
	}
	return l, nil
}

// Revoke puede hacerlo cualquiera de las dos partes.
func (s *Service) Revoke(ctx context.Context, linkID, callerID string) (Link, error) {
	l, err := s.get(ctx, linkID)
	if err != nil {
		return Link{}, err
	}
	if callerID != l.CaretakerID && callerID != l.PatientID {
		return Link{}, apperr.Forbidden("not a party of this link")
	}

	// Idempotente
	if l.Status == StatusRevoked {
		return l, nil
	}

	l.Status = StatusRevoked
	l.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, l); err != nil {
		return Link{}, err
	}
	return l, nil
}

// ListByUser devuelve los links donde el usuario es caretaker o paciente.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]Link, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperr.InvalidInput("user id required")
	}
	asCaretaker, err := s.repo.ListByCaretaker(ctx, userID)
	if err != nil {
		return nil, err
	}
	asPatient, err := s.repo.ListByPatient(ctx, userID)
	if err != nil {
		return nil, err
	}
	return append(asCaretaker, asPatient...), nil
}

func (s *Service) IsAccepted(ctx context.Context, caretakerID, patientID string) (bool, error) {
	items, err := s.repo.ListByPair(ctx, caretakerID, patientID)
	if err != nil {
		return false, err
	}
	for _, l := range items {
		if l.Status == StatusAccepted {
			return true, nil
		}
	}
	return false, nil
}

// CanView: el propio paciente o un caretaker con link aceptado.
func (s *Service) CanView(ctx context.Context, callerID, patientID string) (bool, error) {
	callerID = strings.TrimSpace(callerID)
	if callerID == "" || patientID == "" {
		return false, nil
	}
	if callerID == patientID {
		return true, nil
	}
	return s.IsAccepted(ctx, callerID, patientID)
}

func (s *Service) PatientsOf(ctx context.Context, caretakerID string) ([]string, error) {
	items, err := s.repo.ListByCaretaker(ctx, caretakerID)
	if err != nil {
		return nil, err
	}
	return acceptedIDs(items, func(l Link) string { return l.PatientID }), nil
}

func (s *Service) CaretakersOf(ctx context.Context, patientID string) ([]string, error) {
	items, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	return acceptedIDs(items, func(l Link) string { return l.CaretakerID }), nil
}

func (s *Service) get(ctx context.Context, linkID string) (Link, error) {
	linkID = strings.TrimSpace(linkID)
	if linkID == "" {
		return Link{}, apperr.NotFound("link not found")
	}
	l, err := s.repo.GetByID(ctx, linkID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return Link{}, apperr.NotFound("link not found")
		}
		return Link{}, err
	}
	return l, nil
}

func (s *Service) getForPatient(ctx context.Context, linkID, patientID string) (Link, error) {
	l, err := s.get(ctx, linkID)
	if err != nil {
		return Link{}, err
	}
	if l.PatientID != patientID {
		return Link{}, apperr.Forbidden("only the invited patient can answer this link")
	}
	return l, nil
}

func (s *Service) revokeOthers(ctx context.Context, winnerID string, items []Link, now time.Time) {
	for _, l := range items {
		if l.ID == winnerID || !l.Status.Open() {
			continue
		}
		l.Status = StatusRevoked
		l.UpdatedAt = now
		if err := s.repo.Update(ctx, l); err != nil {
			s.log.Warn("revoke duplicate link failed", map[string]any{"link_id": l.ID, "err": err})
		}
	}
}

func (s *Service) notify(ctx context.Context, in notifications.Input) {
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.Notify(ctx, in); err != nil {
		s.log.Warn("link notification failed", map[string]any{"user_id": in.UserID, "type": in.Type, "err": err})
	}
}

func latestOpen(items []Link) (Link, bool) {
	var winner Link
	found := false
	for _, l := range items {
		if !l.Status.Open() {
			continue
		}
		// accepted le gana a pending; a igual estado, el más reciente.
		switch {
		case !found:
			winner, found = l, true
		case l.Status == StatusAccepted && winner.Status != StatusAccepted:
			winner = l
		case l.Status == winner.Status && l.UpdatedAt.After(winner.UpdatedAt):
			winner = l
		}
	}
	return winner, found
}

func acceptedIDs(items []Link, pick func(Link) string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(items))
	for _, l := range items {
		if l.Status != StatusAccepted {
			continue
		}
		id := pick(l)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
