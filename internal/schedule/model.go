package schedule

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	StatusScheduled  AppointmentStatus = "scheduled"
	StatusInProgress AppointmentStatus = "in_progress"
	StatusCompleted  AppointmentStatus = "completed"
	StatusCancelled  AppointmentStatus = "cancelled"
)

// Terminal reports whether no further transition is allowed out of the status.
func (s AppointmentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// canTransition encodes the monotonic status machine:
// scheduled -> in_progress -> completed, or scheduled -> cancelled.
func canTransition(from, to AppointmentStatus) bool {
	switch from {
	case StatusScheduled:
		return to == StatusInProgress || to == StatusCancelled
	case StatusInProgress:
		return to == StatusCompleted
	default:
		return false
	}
}

// AvailabilityRule is a recurring weekly window during which a professional
// accepts bookings. Rules are soft-deactivated, never deleted, so past
// appointments stay explainable.
type AvailabilityRule struct {
	ID             uuid.UUID
	ProfessionalID uuid.UUID
	DayOfWeek      int // 0 = Sunday .. 6 = Saturday
	StartMinute    int // minutes since midnight
	EndMinute      int
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

const minutesPerDay = 24 * 60

func (r AvailabilityRule) validBounds() bool {
	return r.DayOfWeek >= 0 && r.DayOfWeek <= 6 &&
		r.StartMinute >= 0 && r.EndMinute <= minutesPerDay &&
		r.StartMinute < r.EndMinute
}

type Appointment struct {
	ID              uuid.UUID
	ProfessionalID  uuid.UUID
	PatientID       uuid.UUID
	StartAt         time.Time
	DurationMinutes int
	Status          AppointmentStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (a Appointment) EndAt() time.Time {
	return a.StartAt.Add(time.Duration(a.DurationMinutes) * time.Minute)
}

// Blocking reports whether the appointment occupies its interval. Cancelled
// appointments free their slot.
func (a Appointment) Blocking() bool {
	return a.Status != StatusCancelled
}

// Slot is a derived candidate interval. Never persisted; always regenerated
// from the current rules and appointments so it cannot go stale.
type Slot struct {
	ProfessionalID uuid.UUID `json:"professional_id"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
}

// overlaps is the half-open interval test: [aStart,aEnd) and [bStart,bEnd)
// intersect iff aStart < bEnd and bStart < aEnd.
func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// EventLog is the durable audit copy of a domain event.
type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}
