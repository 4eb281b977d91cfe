package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"care-connect/internal/domain/apperr"
	"care-connect/internal/domain/notifications"
)

type notificationsRepo struct {
	mu   sync.RWMutex
	byID map[string]notifications.Notification
}

func NewNotificationsRepo() notifications.Repository {
	return &notificationsRepo{
		byID: make(map[string]notifications.Notification),
	}
}

func (r *notificationsRepo) Create(ctx context.Context, n notifications.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n.ID == "" {
		return errors.New("notification id required")
	}
	if _, exists := r.byID[n.ID]; exists {
		return apperr.ErrAlreadyExists
	}
	r.byID[n.ID] = n
	return nil
}

func (r *notificationsRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]notifications.Notification, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]notifications.Notification, 0)
	for _, n := range r.byID {
		if n.UserID == userID {
			all = append(all, n)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})

	total := len(all)
	if offset >= total {
		return []notifications.Notification{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (r *notificationsRepo) CountUnread(ctx context.Context, userID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, item := range r.byID {
		if item.UserID == userID && !item.IsRead {
			n++
		}
	}
	return n, nil
}

func (r *notificationsRepo) MarkRead(ctx context.Context, id, userID string) (notifications.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.byID[id]
	if !ok || n.UserID != userID {
		return notifications.Notification{}, apperr.ErrNotFound
	}
	n.IsRead = true
	r.byID[id] = n
	return n, nil
}

func (r *notificationsRepo) MarkAllRead(ctx context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	changed := 0
	for id, n := range r.byID {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			r.byID[id] = n
			changed++
		}
	}
	return changed, nil
}
