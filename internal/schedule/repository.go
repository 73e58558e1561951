package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrProfessionalNotFound = errors.New("professional not found")
	ErrAppointmentNotFound  = errors.New("appointment not found")
	ErrRuleNotFound         = errors.New("availability rule not found")
	ErrRuleOverlap          = errors.New("rule overlaps an existing active rule")
	ErrAppointmentOverlap   = errors.New("appointment overlaps an existing booking")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	ProfessionalExists(ctx context.Context, id uuid.UUID) error

	// Availability rules
	ActiveRulesForDay(ctx context.Context, professionalID uuid.UUID, dayOfWeek int) ([]AvailabilityRule, error)
	ListActiveRules(ctx context.Context, professionalID uuid.UUID) ([]AvailabilityRule, error)

	// InsertRule commits the rule only if no active rule for the same
	// professional and day overlaps its minute range; the loser of a
	// concurrent race gets ErrRuleOverlap.
	InsertRule(ctx context.Context, rule AvailabilityRule) (*AvailabilityRule, error)
	DeactivateRule(ctx context.Context, professionalID, ruleID uuid.UUID) error

	// Appointments
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	AppointmentsInRange(ctx context.Context, professionalID uuid.UUID, from, to time.Time) ([]Appointment, error)
	ListAppointmentsForAccount(ctx context.Context, accountID uuid.UUID, from time.Time) ([]Appointment, error)

	// CreateAppointment commits the appointment only if no non-cancelled
	// appointment for the same professional overlaps its interval. Two
	// concurrent callers racing for overlapping intervals must see exactly
	// one success; the loser gets ErrAppointmentOverlap.
	CreateAppointment(ctx context.Context, appt Appointment) (*Appointment, error)

	// UpdateAppointmentStatus is a compare-and-swap on status.
	// Returns ErrAppointmentNotFound when no row matches id+from.
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error)

	// Session worker
	FindDueScheduled(ctx context.Context, now time.Time) ([]Appointment, error)

	// Event logging
	InsertEvent(ctx context.Context, ev EventLog) error
}
