package identity

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RolePatient      Role = "patient"
	RoleProfessional Role = "professional"
)

func (r Role) Valid() bool {
	return r == RolePatient || r == RoleProfessional
}

// Identity is the authenticated caller, threaded explicitly through every
// service call. Never ambient state.
type Identity struct {
	ID   uuid.UUID
	Role Role
}

type Account struct {
	ID            uuid.UUID
	Name          string
	Email         string
	PasswordHash  string
	Role          Role
	Specialty     *string // professionals only
	LicenseNumber *string // professionals only
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (a *Account) Identity() Identity {
	return Identity{ID: a.ID, Role: a.Role}
}
