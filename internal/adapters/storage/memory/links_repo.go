package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"care-connect/internal/domain/apperr"
	"care-connect/internal/domain/links"
)

type linksRepo struct {
	mu   sync.RWMutex
	byID map[string]links.Link
}

func NewLinksRepo() links.Repository {
	return &linksRepo{
		byID: make(map[string]links.Link),
	}
}

func (r *linksRepo) Create(ctx context.Context, l links.Link) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if l.ID == "" {
		return errors.New("link id required")
	}
	if _, exists := r.byID[l.ID]; exists {
		return apperr.ErrAlreadyExists
	}
	r.byID[l.ID] = l
	return nil
}

func (r *linksRepo) Update(ctx context.Context, l links.Link) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[l.ID]; !exists {
		return apperr.ErrNotFound
	}
	r.byID[l.ID] = l
	return nil
}

func (r *linksRepo) GetByID(ctx context.Context, id string) (links.Link, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.byID[id]
	if !ok {
		return links.Link{}, apperr.ErrNotFound
	}
	return l, nil
}

func (r *linksRepo) ListByPair(ctx context.Context, caretakerID, patientID string) ([]links.Link, error) {
	return r.list(func(l links.Link) bool { return l.CaretakerID == caretakerID && l.PatientID == patientID }), nil
}

func (r *linksRepo) ListByCaretaker(ctx context.Context, caretakerID string) ([]links.Link, error) {
	return r.list(func(l links.Link) bool { return l.CaretakerID == caretakerID }), nil
}

func (r *linksRepo) ListByPatient(ctx context.Context, patientID string) ([]links.Link, error) {
	return r.list(func(l links.Link) bool { return l.PatientID == patientID }), nil
}

func (r *linksRepo) list(keep func(links.Link) bool) []links.Link {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]links.Link, 0)
	for _, l := range r.byID {
		if keep(l) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}
