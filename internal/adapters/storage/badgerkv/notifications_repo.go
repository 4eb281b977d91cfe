package badgerkv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"care-connect/internal/domain/apperr"
	"care-connect/internal/domain/notifications"

	"github.com/dgraph-io/badger"
)

// Claves:
//
//	notification:<user>:<created_at unix nano, 20 dígitos>:<id> -> JSON
//	notification_id:<id>                                        -> clave primaria
//
// El timestamp con padding hace que el orden lexicográfico sea cronológico.
type NotificationsRepo struct {
	db *DB
}

func NewNotificationsRepo(db *DB) *NotificationsRepo {
	return &NotificationsRepo{db: db}
}

func userPrefix(userID string) []byte {
	return []byte("notification:" + userID + ":")
}

func primaryKey(n notifications.Notification) []byte {
	return []byte(fmt.Sprintf("notification:%s:%020d:%s", n.UserID, n.CreatedAt.UnixNano(), n.ID))
}

func indexKey(id string) []byte {
	return []byte("notification_id:" + id)
}

func (r *NotificationsRepo) Create(ctx context.Context, n notifications.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	return r.db.db.Update(func(tx *badger.Txn) error {
		if _, err := tx.Get(indexKey(n.ID)); err == nil {
			return apperr.ErrAlreadyExists
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		key := primaryKey(n)
		if err := tx.Set(key, data); err != nil {
			return err
		}
		return tx.Set(indexKey(n.ID), key)
	})
}

func (r *NotificationsRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]notifications.Notification, int, error) {
	out := make([]notifications.Notification, 0)
	total := 0

	err := r.db.db.View(func(tx *badger.Txn) error {
		prefix := userPrefix(userID)

		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := tx.NewIterator(opts)
		defer it.Close()

		// En reversa hay que arrancar después del último key con el prefijo.
		for it.Seek(append(append([]byte{}, prefix...), 0xFF)); it.ValidForPrefix(prefix); it.Next() {
			total++
			if total <= offset || len(out) >= limit {
				continue
			}
			n, err := decode(it.Item())
			if err != nil {
				return err
			}
			out = append(out, n)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *NotificationsRepo) CountUnread(ctx context.Context, userID string) (int, error) {
	count := 0
	err := r.db.db.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = userPrefix(userID)
		it := tx.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			n, err := decode(it.Item())
			if err != nil {
				return err
			}
			if !n.IsRead {
				count++
			}
		}
		return nil
	})
	return count, err
}

func (r *NotificationsRepo) MarkRead(ctx context.Context, id, userID string) (notifications.Notification, error) {
	var out notifications.Notification

	err := r.db.db.Update(func(tx *badger.Txn) error {
		idx, err := tx.Get(indexKey(id))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return apperr.ErrNotFound
			}
			return err
		}
		key, err := idx.ValueCopy(nil)
		if err != nil {
			return err
		}

		item, err := tx.Get(key)
		if err != nil {
			return err
		}
		n, err := decode(item)
		if err != nil {
			return err
		}
		if n.UserID != userID {
			return apperr.ErrNotFound
		}

		n.IsRead = true
		data, err := json.Marshal(n)
		if err != nil {
			return err
		}
		out = n
		return tx.Set(key, data)
	})
	if err != nil {
		return notifications.Notification{}, err
	}
	return out, nil
}

func (r *NotificationsRepo) MarkAllRead(ctx context.Context, userID string) (int, error) {
	changed := 0

	err := r.db.db.Update(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = userPrefix(userID)
		it := tx.NewIterator(opts)
		defer it.Close()

		type pending struct {
			key  []byte
			data []byte
		}
		var updates []pending

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			n, err := decode(item)
			if err != nil {
				return err
			}
			if n.IsRead {
				continue
			}
			n.IsRead = true
			data, err := json.Marshal(n)
			if err != nil {
				return err
			}
			updates = append(updates, pending{key: item.KeyCopy(nil), data: data})
		}

		for _, u := range updates {
			if err := tx.Set(u.key, u.data); err != nil {
				return err
			}
		}
		changed = len(updates)
		return nil
	})
	return changed, err
}

func decode(item *badger.Item) (notifications.Notification, error) {
	var n notifications.Notification
	err := item.Value(func(val []byte) error {
		if err := json.Unmarshal(val, &n); err != nil {
			return fmt.Errorf("unmarshal notification %s: %w", string(item.Key()), err)
		}
		return nil
	})
	return n, err
}
