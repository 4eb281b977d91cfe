package postgres

import (
	"context"
	"database/sql"
	"strings"

	"care-connect/internal/domain/apperr"
	"care-connect/internal/domain/links"
)

type LinksRepo struct {
	db *sql.DB
}

func NewLinksRepo(db *sql.DB) *LinksRepo {
	return &LinksRepo{db: db}
}

const linkColumns = `id, caretaker_id, patient_id, status, created_at, updated_at, responded_at`

func (r *LinksRepo) Create(ctx context.Context, l links.Link) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO caretaker_links (`+linkColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`,
		l.ID,
		l.CaretakerID,
		l.PatientID,
		string(l.Status),
		l.CreatedAt,
		l.UpdatedAt,
		toNullTime(l.RespondedAt),
	)
	return mapError(err)
}

func (r *LinksRepo) Update(ctx context.Context, l links.Link) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE caretaker_links
		SET
			status = $2,
			updated_at = $3,
			responded_at = $4
		WHERE id = $1
	`,
		l.ID,
		string(l.Status),
		l.UpdatedAt,
		toNullTime(l.RespondedAt),
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (r *LinksRepo) GetByID(ctx context.Context, id string) (links.Link, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return links.Link{}, apperr.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `SELECT `+linkColumns+` FROM caretaker_links WHERE id = $1`, id)
	l, err := scanLink(row)
	if err != nil {
		return links.Link{}, mapError(err)
	}
	return l, nil
}

func (r *LinksRepo) ListByPair(ctx context.Context, caretakerID, patientID string) ([]links.Link, error) {
	return r.list(ctx, `caretaker_id = $1 AND patient_id = $2`, caretakerID, patientID)
}

func (r *LinksRepo) ListByCaretaker(ctx context.Context, caretakerID string) ([]links.Link, error) {
	return r.list(ctx, `caretaker_id = $1`, caretakerID)
}

func (r *LinksRepo) ListByPatient(ctx context.Context, patientID string) ([]links.Link, error) {
	return r.list(ctx, `patient_id = $1`, patientID)
}

func (r *LinksRepo) list(ctx context.Context, where string, args ...any) ([]links.Link, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+linkColumns+`
		FROM caretaker_links
		WHERE `+where+`
		ORDER BY created_at ASC
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]links.Link, 0)
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func scanLink(s scanner) (links.Link, error) {
	var (
		l           links.Link
		status      string
		respondedAt sql.NullTime
	)
	if err := s.Scan(
		&l.ID,
		&l.CaretakerID,
		&l.PatientID,
		&status,
		&l.CreatedAt,
		&l.UpdatedAt,
		&respondedAt,
	); err != nil {
		return links.Link{}, err
	}
	l.Status = links.Status(status)
	l.RespondedAt = fromNullTime(respondedAt)
	return l, nil
}
