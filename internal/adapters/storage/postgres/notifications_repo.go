package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"care-connect/internal/domain/notifications"
)

type NotificationsRepo struct {
	db *sql.DB
}

func NewNotificationsRepo(db *sql.DB) *NotificationsRepo {
	return &NotificationsRepo{db: db}
}

const notificationColumns = `id, user_id, type, message, is_read, metadata, created_at`

func (r *NotificationsRepo) Create(ctx context.Context, n notifications.Notification) error {
	meta, err := json.Marshal(metadataOrEmpty(n.Metadata))
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO notifications (`+notificationColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`,
		n.ID,
		n.UserID,
		string(n.Type),
		n.Message,
		n.IsRead,
		meta,
		n.CreatedAt,
	)
	return mapError(err)
}

func (r *NotificationsRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]notifications.Notification, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM notifications WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]notifications.Notification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, n)
	}
	return out, total, rows.Err()
}

func (r *NotificationsRepo) CountUnread(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT count(*) FROM notifications WHERE user_id = $1 AND NOT is_read
	`, userID).Scan(&n)
	return n, err
}

func (r *NotificationsRepo) MarkRead(ctx context.Context, id, userID string) (notifications.Notification, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE notifications
		SET is_read = TRUE
		WHERE id = $1 AND user_id = $2
		RETURNING `+notificationColumns, id, userID)

	n, err := scanNotification(row)
	if err != nil {
		return notifications.Notification{}, mapError(err)
	}
	return n, nil
}

func (r *NotificationsRepo) MarkAllRead(ctx context.Context, userID string) (int, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND NOT is_read
	`, userID)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func scanNotification(s scanner) (notifications.Notification, error) {
	var (
		n    notifications.Notification
		typ  string
		meta []byte
	)
	if err := s.Scan(
		&n.ID,
		&n.UserID,
		&typ,
		&n.Message,
		&n.IsRead,
		&meta,
		&n.CreatedAt,
	); err != nil {
		return notifications.Notification{}, err
	}
	n.Type = notifications.Type(typ)
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &n.Metadata); err != nil {
			return notifications.Notification{}, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return n, nil
}

func metadataOrEmpty(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
