package notifications

import (
	"context"
	"errors"
	"strings"
	"time"

	"care-connect/internal/domain/apperr"
	"care-connect/internal/platform/logger"
	"care-connect/internal/platform/metrics"

	"github.com/google/uuid"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type Service struct {
	repo    Repository
	senders []Sender
	log     logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewService(repo Repository, log logger.Logger, m *metrics.Metrics, senders ...Sender) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		repo:    repo,
		senders: senders,
		log:     log.With(map[string]any{"component": "notifications"}),
		metrics: m,
		now:     time.Now,
	}
}

type Input struct {
	UserID   string
	Type     Type
	Message  string
	Metadata map[string]string
}

// Notify persiste la notificación y la reenvía a los senders configurados.
// Un fallo de entrega no invalida la notificación guardada.
func (s *Service) Notify(ctx context.Context, in Input) (Notification, error) {
	userID := strings.TrimSpace(in.UserID)
	msg := strings.TrimSpace(in.Message)
	if userID == "" || msg == "" {
		return Notification{}, apperr.InvalidInput("notification needs user and message")
	}
	if !in.Type.Valid() {
		return Notification{}, apperr.Newf(apperr.ErrInvalidInput, "unknown notification type %q", in.Type)
	}

	n := Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      in.Type,
		Message:   msg,
		Metadata:  in.Metadata,
		CreatedAt: s.now(),
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return Notification{}, err
	}
	s.metrics.Notification(string(n.Type))

	for _, snd := range s.senders {
		if err := snd.Send(ctx, n); err != nil {
			s.log.Warn("notification delivery failed", map[string]any{
				"sender":          snd.Name(),
				"notification_id": n.ID,
				"user_id":         n.UserID,
				"err":             err,
			})
		}
	}
	return n, nil
}

type Page struct {
	Items []Notification
	Page  int
	Limit int
	Total int
}

func (p Page) Pages() int {
	if p.Limit <= 0 {
		return 0
	}
	return (p.Total + p.Limit - 1) / p.Limit
}

func (s *Service) List(ctx context.Context, userID string, page, limit int) (Page, error) {
	if strings.TrimSpace(userID) == "" {
		return Page{}, apperr.InvalidInput("user id required")
	}
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	items, total, err := s.repo.ListByUser(ctx, userID, limit, (page-1)*limit)
	if err != nil {
		return Page{}, err
	}
	return Page{Items: items, Page: page, Limit: limit, Total: total}, nil
}

func (s *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *Service) MarkRead(ctx context.Context, id, userID string) (Notification, error) {
	n, err := s.repo.MarkRead(ctx, strings.TrimSpace(id), userID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return Notification{}, apperr.NotFound("notification not found")
		}
		return Notification{}, err
	}
	return n, nil
}

func (s *Service) MarkAllRead(ctx context.Context, userID string) (int, error) {
	return s.repo.MarkAllRead(ctx, userID)
}
