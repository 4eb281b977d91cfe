package users

import "time"

// Role define qué puede hacer un usuario dentro del sistema.
type Role string

const (
	RolePatient   Role = "patient"
	RoleCaretaker Role = "caretaker"
	RoleDonor     Role = "donor"
)

func (r Role) Valid() bool {
	switch r {
	case RolePatient, RoleCaretaker, RoleDonor:
		return true
	}
	return false
}

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// User es el perfil local. La identidad (ID) la emite el proveedor de auth.
type User struct {
	ID    string
	Name  string
	Email string
	Role  Role
	Phone string

	Age    *int
	Gender string

	Status Status

	// PushoverKey es el user key de Pushover; vacío = sin push.
	PushoverKey string

	// AdherenceRate es un cache (0-100) que escribe el agregador de adherencia.
	AdherenceRate int

	CreatedAt time.Time
	UpdatedAt time.Time
}
