package medications

import "time"

// Lifecycle reemplaza el flag is_active: una medicación nunca se borra,
// solo se retira para no romper el historial de dosis.
// @Enum active, retired
type Lifecycle string

const (
	LifecycleActive  Lifecycle = "active"
	LifecycleRetired Lifecycle = "retired"
)

// Medication es la prescripción que un caretaker define para un paciente.
type Medication struct {
	ID          string
	PatientID   string
	CaretakerID string

	Name         string
	Dosage       string // texto libre: "500mg", "2 gotas"
	Frequency    string
	Timing       []string // "HH:MM" en la zona horaria de referencia
	Instructions string

	StartDate time.Time
	EndDate   *time.Time

	Lifecycle Lifecycle

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (m Medication) Active() bool {
	return m.Lifecycle == LifecycleActive
}
