package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"care-connect/internal/domain/apperr"
	"care-connect/internal/domain/doses"

	sq "github.com/Masterminds/squirrel"
)

// DosesRepo arma las consultas con squirrel: los listados comparten
// columnas y solo cambian filtros y orden.
type DosesRepo struct {
	db *sql.DB
	qb sq.StatementBuilderType
}

func NewDosesRepo(db *sql.DB) *DosesRepo {
	return &DosesRepo{
		db: db,
		qb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

var doseColumns = []string{
	"id", "medication_id", "patient_id", "scheduled_time", "status", "taken_at", "created_at", "updated_at",
}

// InsertIfAbsent se apoya en UNIQUE (medication_id, scheduled_time): un
// duplicado no es error, simplemente no inserta.
func (r *DosesRepo) InsertIfAbsent(ctx context.Context, d doses.Dose) (bool, error) {
	query, args, err := r.qb.
		Insert("doses").
		Columns(doseColumns...).
		Values(
			d.ID,
			d.MedicationID,
			d.PatientID,
			d.ScheduledTime,
			string(d.Status),
			toNullTime(d.TakenAt),
			d.CreatedAt,
			d.UpdatedAt,
		).
		Suffix("ON CONFLICT (medication_id, scheduled_time) DO NOTHING").
		ToSql()
	if err != nil {
		return false, err
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, mapError(err)
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

func (r *DosesRepo) GetByID(ctx context.Context, id string) (doses.Dose, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return doses.Dose{}, apperr.ErrNotFound
	}

	query, args, err := r.qb.Select(doseColumns...).From("doses").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return doses.Dose{}, err
	}
	d, err := scanDose(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return doses.Dose{}, mapError(err)
	}
	return d, nil
}

// TransitionFromPending es el update condicional: de varios requests
// concurrentes solo uno encuentra la fila en pending.
func (r *DosesRepo) TransitionFromPending(ctx context.Context, id string, to doses.Status, takenAt *time.Time, at time.Time) (doses.Dose, error) {
	query, args, err := r.qb.
		Update("doses").
		Set("status", string(to)).
		Set("taken_at", toNullTime(takenAt)).
		Set("updated_at", at).
		Where(sq.Eq{"id": id, "status": string(doses.StatusPending)}).
		Suffix("RETURNING " + strings.Join(doseColumns, ", ")).
		ToSql()
	if err != nil {
		return doses.Dose{}, err
	}

	d, err := scanDose(r.db.QueryRowContext(ctx, query, args...))
	if err == nil {
		return d, nil
	}
	if err != sql.ErrNoRows {
		return doses.Dose{}, err
	}

	// Sin filas: o no existe o ya no estaba pending.
	if _, getErr := r.GetByID(ctx, id); getErr != nil {
		return doses.Dose{}, getErr
	}
	return doses.Dose{}, apperr.ErrInvalidState
}

func (r *DosesRepo) ListByMedicationBetween(ctx context.Context, medicationID string, from, to time.Time) ([]doses.Dose, error) {
	return r.list(ctx, r.selectDoses().
		Where(sq.Eq{"medication_id": medicationID}).
		Where(sq.GtOrEq{"scheduled_time": from}).
		Where(sq.Lt{"scheduled_time": to}).
		OrderBy("scheduled_time ASC"))
}

func (r *DosesRepo) ListByPatientBetween(ctx context.Context, patientID string, from, to time.Time) ([]doses.Dose, error) {
	return r.list(ctx, r.selectDoses().
		Where(sq.Eq{"patient_id": patientID}).
		Where(sq.GtOrEq{"scheduled_time": from}).
		Where(sq.Lt{"scheduled_time": to}).
		OrderBy("scheduled_time ASC", "medication_id ASC"))
}

func (r *DosesRepo) ListByPatientSince(ctx context.Context, patientID string, since time.Time) ([]doses.Dose, error) {
	return r.list(ctx, r.selectDoses().
		Where(sq.Eq{"patient_id": patientID}).
		Where(sq.GtOrEq{"scheduled_time": since}).
		OrderBy("scheduled_time ASC"))
}

func (r *DosesRepo) ListHistory(ctx context.Context, patientID string, from, to time.Time, limit, offset int) ([]doses.Dose, int, error) {
	filter := sq.And{
		sq.Eq{"patient_id": patientID},
		sq.GtOrEq{"scheduled_time": from},
		sq.Lt{"scheduled_time": to},
	}

	countQuery, countArgs, err := r.qb.Select("count(*)").From("doses").Where(filter).ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	items, err := r.list(ctx, r.selectDoses().
		Where(filter).
		OrderBy("scheduled_time DESC", "medication_id ASC").
		Limit(uint64(limit)).
		Offset(uint64(offset)))
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *DosesRepo) ListOverduePending(ctx context.Context, before time.Time, limit int) ([]doses.Dose, error) {
	b := r.selectDoses().
		Where(sq.Eq{"status": string(doses.StatusPending)}).
		Where(sq.Lt{"scheduled_time": before}).
		OrderBy("scheduled_time ASC")
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}
	return r.list(ctx, b)
}

func (r *DosesRepo) selectDoses() sq.SelectBuilder {
	return r.qb.Select(doseColumns...).From("doses")
}

func (r *DosesRepo) list(ctx context.Context, b sq.SelectBuilder) ([]doses.Dose, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]doses.Dose, 0)
	for rows.Next() {
		d, err := scanDose(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func scanDose(s scanner) (doses.Dose, error) {
	var (
		d       doses.Dose
		status  string
		takenAt sql.NullTime
	)
	if err := s.Scan(
		&d.ID,
		&d.MedicationID,
		&d.PatientID,
		&d.ScheduledTime,
		&status,
		&takenAt,
		&d.CreatedAt,
		&d.UpdatedAt,
	); err != nil {
		return doses.Dose{}, err
	}
	d.Status = doses.Status(status)
	d.TakenAt = fromNullTime(takenAt)
	return d, nil
}
