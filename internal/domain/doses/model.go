package doses

import "time"

// Status de una dosis. pending es el único estado no terminal.
// @Enum pending, taken, missed, skipped
type Status string

const (
	StatusPending Status = "pending"
	StatusTaken   Status = "taken"
	StatusMissed  Status = "missed"
	// StatusSkipped es terminal y válido, pero ninguna transición llega hoy a él.
	StatusSkipped Status = "skipped"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusTaken, StatusMissed, StatusSkipped:
		return true
	default:
		return false
	}
}

func (s Status) Terminal() bool {
	return s == StatusTaken || s == StatusMissed || s == StatusSkipped
}

// Dose es una toma concreta. PatientID está desnormalizado para consultas;
// el dueño real es el de la medicación.
type Dose struct {
	ID           string
	MedicationID string
	PatientID    string

	ScheduledTime time.Time
	Status        Status
	TakenAt       *time.Time // solo con status taken

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DateRange son días calendario inclusivos [From, To] en la zona de referencia.
type DateRange struct {
	From time.Time
	To   time.Time
}
