package links

import "time"

type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
	StatusRevoked  Status = "revoked"
)

// Open indica si el link todavía cuenta para deduplicar invitaciones.
func (s Status) Open() bool {
	return s == StatusPending || s == StatusAccepted
}

// Link vincula un caretaker con un paciente. Solo los links accepted dan
// acceso a medicaciones, dosis y reportes del paciente.
type Link struct {
	ID string

	CaretakerID string
	PatientID   string

	Status Status

	CreatedAt   time.Time
	UpdatedAt   time.Time
	RespondedAt *time.Time
}
