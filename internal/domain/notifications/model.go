package notifications

import "time"

type Type string

const (
	TypeDoseReminder      Type = "dose_reminder"
	TypeMedicationAdded   Type = "medication_added"
	TypeMedicationUpdated Type = "medication_updated"
	TypeAdherenceAlert    Type = "adherence_alert"
	TypeAdherenceSuccess  Type = "adherence_success"
	TypePatientLinked     Type = "patient_linked"
	TypeLinkRequest       Type = "link_request"
	TypeSystem            Type = "system"
)

func (t Type) Valid() bool {
	switch t {
	case TypeDoseReminder, TypeMedicationAdded, TypeMedicationUpdated,
		TypeAdherenceAlert, TypeAdherenceSuccess, TypePatientLinked,
		TypeLinkRequest, TypeSystem:
		return true
	}
	return false
}

type Notification struct {
	ID     string
	UserID string

	Type    Type
	Message string
	IsRead  bool

	Metadata map[string]string

	CreatedAt time.Time
}
