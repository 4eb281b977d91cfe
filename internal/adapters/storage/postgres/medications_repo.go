package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"care-connect/internal/domain/apperr"
	"care-connect/internal/domain/medications"
	"care-connect/internal/platform/clock"
)

// MedicationsRepo guarda start_date/end_date como DATE. Las fechas se
// escriben y se reconstruyen como días calendario en loc, la zona de
// referencia del servicio.
type MedicationsRepo struct {
	db  *sql.DB
	loc *time.Location
}

func NewMedicationsRepo(db *sql.DB, loc *time.Location) *MedicationsRepo {
	if loc == nil {
		loc = time.UTC
	}
	return &MedicationsRepo{db: db, loc: loc}
}

const medicationColumns = `id, patient_id, caretaker_id, name, dosage, frequency, timing, instructions,
	start_date, end_date, is_active, created_at, updated_at`

func (r *MedicationsRepo) Create(ctx context.Context, m medications.Medication) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO medications (`+medicationColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`,
		m.ID,
		m.PatientID,
		m.CaretakerID,
		m.Name,
		m.Dosage,
		m.Frequency,
		m.Timing,
		m.Instructions,
		r.dateParam(m.StartDate),
		r.nullDateParam(m.EndDate),
		m.Active(),
		m.CreatedAt,
		m.UpdatedAt,
	)
	return mapError(err)
}

func (r *MedicationsRepo) Update(ctx context.Context, m medications.Medication) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE medications
		SET
			name = $2,
			dosage = $3,
			frequency = $4,
			timing = $5,
			instructions = $6,
			end_date = $7,
			is_active = $8,
			updated_at = $9
		WHERE id = $1
	`,
		m.ID,
		m.Name,
		m.Dosage,
		m.Frequency,
		m.Timing,
		m.Instructions,
		r.nullDateParam(m.EndDate),
		m.Active(),
		m.UpdatedAt,
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

func (r *MedicationsRepo) GetByID(ctx context.Context, id string) (medications.Medication, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return medications.Medication{}, apperr.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `SELECT `+medicationColumns+` FROM medications WHERE id = $1`, id)
	m, err := r.scanMedication(row)
	if err != nil {
		return medications.Medication{}, mapError(err)
	}
	return m, nil
}

func (r *MedicationsRepo) ListByPatient(ctx context.Context, patientID string) ([]medications.Medication, error) {
	return r.list(ctx, `is_active AND patient_id = $1`, patientID)
}

func (r *MedicationsRepo) ListActive(ctx context.Context) ([]medications.Medication, error) {
	return r.list(ctx, `is_active`)
}

func (r *MedicationsRepo) list(ctx context.Context, where string, args ...any) ([]medications.Medication, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+medicationColumns+`
		FROM medications
		WHERE `+where+`
		ORDER BY name ASC, id ASC
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]medications.Medication, 0)
	for rows.Next() {
		m, err := r.scanMedication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// dateParam envía el día calendario de t en loc como texto para la columna
// DATE, así el driver no lo pasa a UTC antes de truncar.
func (r *MedicationsRepo) dateParam(t time.Time) string {
	return clock.DateKey(t, r.loc)
}

func (r *MedicationsRepo) nullDateParam(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: r.dateParam(*t), Valid: true}
}

func (r *MedicationsRepo) scanMedication(s scanner) (medications.Medication, error) {
	var (
		m         medications.Medication
		timing    []string
		startDate time.Time
		endDate   sql.NullTime
		active    bool
	)
	if err := s.Scan(
		&m.ID,
		&m.PatientID,
		&m.CaretakerID,
		&m.Name,
		&m.Dosage,
		&m.Frequency,
		pgtypes.SQLScanner(&timing),
		&m.Instructions,
		&startDate,
		&endDate,
		&active,
		&m.CreatedAt,
		&m.UpdatedAt,
	); err != nil {
		return medications.Medication{}, err
	}
	m.Timing = timing
	m.StartDate = clock.CalendarDay(startDate, r.loc)
	if endDate.Valid {
		end := clock.CalendarDay(endDate.Time, r.loc)
		m.EndDate = &end
	}
	m.Lifecycle = medications.LifecycleRetired
	if active {
		m.Lifecycle = medications.LifecycleActive
	}
	return m, nil
}
