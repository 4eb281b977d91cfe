package postgres

import (
	"context"
	"database/sql"
	"strings"

	"care-connect/internal/domain/apperr"
	"care-connect/internal/domain/users"
)

type UsersRepo struct {
	db *sql.DB
}

func NewUsersRepo(db *sql.DB) *UsersRepo {
	return &UsersRepo{db: db}
}

const userColumns = `id, name, email, role, phone, age, gender, status, pushover_key, adherence_rate, created_at, updated_at`

func (r *UsersRepo) Create(ctx context.Context, u users.User) error {
	var age sql.NullInt64
	if u.Age != nil {
		age = sql.NullInt64{Int64: int64(*u.Age), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`,
		u.ID,
		u.Name,
		u.Email,
		string(u.Role),
		u.Phone,
		age,
		u.Gender,
		string(u.Status),
		u.PushoverKey,
		u.AdherenceRate,
		u.CreatedAt,
		u.UpdatedAt,
	)
	return mapError(err)
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (users.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return users.User{}, apperr.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if err != nil {
		return users.User{}, mapError(err)
	}
	return u, nil
}

func (r *UsersRepo) ListByIDs(ctx context.Context, ids []string) ([]users.User, error) {
	if len(ids) == 0 {
		return []users.User{}, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = ANY($1)
		ORDER BY name ASC
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]users.User, 0, len(ids))
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *UsersRepo) UpdateAdherenceRate(ctx context.Context, id string, rate int) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET adherence_rate = $2, updated_at = now()
		WHERE id = $1
	`, id, rate)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (users.User, error) {
	var (
		u      users.User
		role   string
		status string
		age    sql.NullInt64
	)
	if err := s.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&role,
		&u.Phone,
		&age,
		&u.Gender,
		&status,
		&u.PushoverKey,
		&u.AdherenceRate,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		return users.User{}, err
	}
	u.Role = users.Role(role)
	u.Status = users.Status(status)
	if age.Valid {
		v := int(age.Int64)
		u.Age = &v
	}
	return u, nil
}
