package doses

import (
	"context"
	"time"
)

type Repository interface {
	// InsertIfAbsent inserta la dosis salvo que ya exista una para
	// (medication_id, scheduled_time). Devuelve true si insertó.
	InsertIfAbsent(ctx context.Context, d Dose) (bool, error)
	GetByID(ctx context.Context, id string) (Dose, error)

	// TransitionFromPending cambia el estado solo si sigue en pending.
	// Si no, devuelve apperr.ErrInvalidState sin tocar nada.
	TransitionFromPending(ctx context.Context, id string, to Status, takenAt *time.Time, at time.Time) (Dose, error)

	// Rangos semiabiertos [from, to) sobre scheduled_time, orden ascendente.
	ListByMedicationBetween(ctx context.Context, medicationID string, from, to time.Time) ([]Dose, error)
	ListByPatientBetween(ctx context.Context, patientID string, from, to time.Time) ([]Dose, error)
	// ListByPatientSince no tiene cota superior: incluye dosis futuras ya generadas.
	ListByPatientSince(ctx context.Context, patientID string, since time.Time) ([]Dose, error)
	// ListHistory pagina en orden descendente y devuelve el total.
	ListHistory(ctx context.Context, patientID string, from, to time.Time, limit, offset int) ([]Dose, int, error)

	ListOverduePending(ctx context.Context, before time.Time, limit int) ([]Dose, error)
}
