package medications

import "context"

type Repository interface {
	Create(ctx context.Context, m Medication) error
	Update(ctx context.Context, m Medication) error
	GetByID(ctx context.Context, id string) (Medication, error)
	// ListByPatient devuelve solo las activas, ordenadas por nombre.
	ListByPatient(ctx context.Context, patientID string) ([]Medication, error)
	ListActive(ctx context.Context) ([]Medication, error)
}
