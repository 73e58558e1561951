package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/vidacall/telehealth-scheduling/internal/config"
	"github.com/vidacall/telehealth-scheduling/internal/events"
	"github.com/vidacall/telehealth-scheduling/internal/identity"
	"github.com/vidacall/telehealth-scheduling/internal/metrics"
	redisclient "github.com/vidacall/telehealth-scheduling/internal/redis"
)

var (
	ErrSlotUnavailable          = errors.New("requested slot is not bookable")
	ErrBookingConflict          = errors.New("slot lost to a concurrent booking")
	ErrBookingContended         = errors.New("professional is being booked, please retry")
	ErrInvalidTransition        = errors.New("invalid appointment status transition")
	ErrNotParticipant           = errors.New("caller is not a party of this appointment")
	ErrPatientRoleRequired      = errors.New("only patients can book appointments")
	ErrProfessionalRoleRequired = errors.New("only professionals can manage availability")
	ErrInvalidRule              = errors.New("invalid availability rule")
	ErrCancelDeadline           = errors.New("appointment can only be cancelled before it starts")
)

type Service struct {
	repo    Repository
	locker  redisclient.Locker
	pub     events.Publisher
	metrics *metrics.BookingMetrics
	cfg     config.Config
	now     func() time.Time
}

func NewService(repo Repository, locker redisclient.Locker, pub events.Publisher, m *metrics.BookingMetrics, cfg config.Config) *Service {
	if cfg.SlotGranularity <= 0 {
		cfg.SlotGranularity = DefaultGranularity
	}
	return &Service{
		repo:    repo,
		locker:  locker,
		pub:     pub,
		metrics: m,
		cfg:     cfg,
		now:     time.Now,
	}
}

// BookableSlots derives the offerable slots for a professional on one
// calendar day: generate from active rules, then reconcile against the day's
// non-cancelled appointments, elapsed time and the booking horizon.
func (s *Service) BookableSlots(ctx context.Context, professionalID uuid.UUID, day time.Time) ([]Slot, error) {
	if err := s.repo.ProfessionalExists(ctx, professionalID); err != nil {
		return nil, err
	}
	s.metrics.ObserveSlotQuery()
	return s.bookableSlots(ctx, professionalID, day)
}

func (s *Service) bookableSlots(ctx context.Context, professionalID uuid.UUID, day time.Time) ([]Slot, error) {
	midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())

	rules, err := s.repo.ActiveRulesForDay(ctx, professionalID, int(midnight.Weekday()))
	if err != nil {
		return nil, fmt.Errorf("load availability rules: %w", err)
	}

	candidates := GenerateSlots(rules, midnight, s.cfg.SlotGranularity)
	if len(candidates) == 0 {
		return nil, nil
	}

	appointments, err := s.repo.AppointmentsInRange(ctx, professionalID, midnight, midnight.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("load appointments: %w", err)
	}

	return Reconcile(candidates, appointments, s.now(), s.cfg.BookingHorizon), nil
}

// Reserve converts a bookable slot into a scheduled appointment. The bookable
// set is re-derived inside the per-professional lock so a slot computed
// earlier by the caller is never trusted; the store's conditional insert is
// the final arbiter against racing writers.
func (s *Service) Reserve(ctx context.Context, caller identity.Identity, professionalID uuid.UUID, startAt time.Time) (*Appointment, error) {
	begin := time.Now()
	appt, err := s.reserve(ctx, caller, professionalID, startAt)
	s.metrics.ObserveReserveLatency(time.Since(begin).Seconds())
	s.metrics.ObserveReservation(reserveOutcome(err))
	return appt, err
}

func (s *Service) reserve(ctx context.Context, caller identity.Identity, professionalID uuid.UUID, startAt time.Time) (*Appointment, error) {
	if caller.Role != identity.RolePatient {
		return nil, ErrPatientRoleRequired
	}

	// Rule windows are evaluated on the UTC calendar day, same as the slot
	// listing. A caller-supplied offset must not shift the weekly window.
	startAt = startAt.UTC()

	if err := s.repo.ProfessionalExists(ctx, professionalID); err != nil {
		return nil, err
	}

	var created *Appointment

	err := s.locker.WithBookingLock(ctx, professionalID, func(lockCtx context.Context) error {
		bookable, err := s.bookableSlots(lockCtx, professionalID, startAt)
		if err != nil {
			return err
		}
		if !slotListed(bookable, startAt) {
			return ErrSlotUnavailable
		}

		appt := Appointment{
			ID:              uuid.New(),
			ProfessionalID:  professionalID,
			PatientID:       caller.ID,
			StartAt:         startAt,
			DurationMinutes: int(s.cfg.SlotGranularity / time.Minute),
			Status:          StatusScheduled,
		}

		created, err = s.repo.CreateAppointment(lockCtx, appt)
		if err != nil {
			if errors.Is(err, ErrAppointmentOverlap) {
				return ErrBookingConflict
			}
			return fmt.Errorf("create appointment: %w", err)
		}

		s.emit(lockCtx, events.TypeAppointmentCreated, created, map[string]any{
			"start_at":         created.StartAt,
			"duration_minutes": created.DurationMinutes,
		})

		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrBookingContended
		}
		return nil, err
	}

	return created, nil
}

func slotListed(slots []Slot, startAt time.Time) bool {
	for _, s := range slots {
		if s.Start.Equal(startAt) {
			return true
		}
	}
	return false
}

func reserveOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrSlotUnavailable):
		return "unavailable"
	case errors.Is(err, ErrBookingConflict):
		return "conflict"
	case errors.Is(err, ErrBookingContended):
		return "contended"
	default:
		return "error"
	}
}

// Cancel transitions scheduled -> cancelled. Either party may cancel, only
// before the start time. The CAS update guards against a concurrent start or
// completion.
func (s *Service) Cancel(ctx context.Context, caller identity.Identity, appointmentID uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if !isParty(caller, appt) {
		return nil, ErrNotParticipant
	}
	if !canTransition(appt.Status, StatusCancelled) {
		return nil, ErrInvalidTransition
	}
	if !s.now().Before(appt.StartAt) {
		return nil, ErrCancelDeadline
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, appt.ID, StatusScheduled, StatusCancelled)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// status moved underneath us
			return nil, ErrInvalidTransition
		}
		return nil, fmt.Errorf("cancel appointment: %w", err)
	}

	s.emit(ctx, events.TypeAppointmentCancelled, updated, map[string]any{
		"cancelled_by": caller.ID.String(),
	})

	return updated, nil
}

// Complete transitions in_progress -> completed when either party ends the
// session.
func (s *Service) Complete(ctx context.Context, caller identity.Identity, appointmentID uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if !isParty(caller, appt) {
		return nil, ErrNotParticipant
	}
	if !canTransition(appt.Status, StatusCompleted) {
		return nil, ErrInvalidTransition
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, appt.ID, StatusInProgress, StatusCompleted)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, ErrInvalidTransition
		}
		return nil, fmt.Errorf("complete appointment: %w", err)
	}

	s.emit(ctx, events.TypeAppointmentCompleted, updated, map[string]any{
		"completed_by": caller.ID.String(),
	})

	return updated, nil
}

// StartDueAppointments promotes scheduled appointments whose start time has
// been reached. Called periodically by the session worker.
func (s *Service) StartDueAppointments(ctx context.Context) error {
	due, err := s.repo.FindDueScheduled(ctx, s.now())
	if err != nil {
		return fmt.Errorf("find due appointments: %w", err)
	}

	for _, appt := range due {
		updated, err := s.repo.UpdateAppointmentStatus(ctx, appt.ID, StatusScheduled, StatusInProgress)
		if err != nil {
			if !errors.Is(err, ErrAppointmentNotFound) {
				log.Printf("failed to start appointment %s: %v", appt.ID, err)
			}
			continue
		}
		s.emit(ctx, events.TypeAppointmentStarted, updated, map[string]any{
			"reason": "worker",
		})
	}

	return nil
}

func (s *Service) GetAppointment(ctx context.Context, caller identity.Identity, appointmentID uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if !isParty(caller, appt) {
		return nil, ErrNotParticipant
	}
	return appt, nil
}

// ListAppointments returns the caller's appointments starting at or after from.
func (s *Service) ListAppointments(ctx context.Context, caller identity.Identity, from time.Time) ([]Appointment, error) {
	return s.repo.ListAppointmentsForAccount(ctx, caller.ID, from)
}

// AddAvailabilityRule creates an active weekly window for the calling
// professional. Overlapping active windows on the same day are rejected.
func (s *Service) AddAvailabilityRule(ctx context.Context, caller identity.Identity, dayOfWeek, startMinute, endMinute int) (*AvailabilityRule, error) {
	if caller.Role != identity.RoleProfessional {
		return nil, ErrProfessionalRoleRequired
	}

	rule := AvailabilityRule{
		ID:             uuid.New(),
		ProfessionalID: caller.ID,
		DayOfWeek:      dayOfWeek,
		StartMinute:    startMinute,
		EndMinute:      endMinute,
		Active:         true,
	}
	if !rule.validBounds() {
		return nil, fmt.Errorf("%w: day %d, minutes %d-%d", ErrInvalidRule, dayOfWeek, startMinute, endMinute)
	}

	existing, err := s.repo.ActiveRulesForDay(ctx, caller.ID, dayOfWeek)
	if err != nil {
		return nil, fmt.Errorf("load availability rules: %w", err)
	}
	for _, other := range existing {
		if startMinute < other.EndMinute && other.StartMinute < endMinute {
			return nil, ErrRuleOverlap
		}
	}

	created, err := s.repo.InsertRule(ctx, rule)
	if err != nil {
		if errors.Is(err, ErrRuleOverlap) {
			// a concurrent create slipped past the pre-check
			return nil, ErrRuleOverlap
		}
		return nil, fmt.Errorf("insert availability rule: %w", err)
	}

	return created, nil
}

// DeactivateAvailabilityRule soft-removes one of the caller's windows.
func (s *Service) DeactivateAvailabilityRule(ctx context.Context, caller identity.Identity, ruleID uuid.UUID) error {
	if caller.Role != identity.RoleProfessional {
		return ErrProfessionalRoleRequired
	}
	return s.repo.DeactivateRule(ctx, caller.ID, ruleID)
}

func (s *Service) ListAvailability(ctx context.Context, professionalID uuid.UUID) ([]AvailabilityRule, error) {
	if err := s.repo.ProfessionalExists(ctx, professionalID); err != nil {
		return nil, err
	}
	return s.repo.ListActiveRules(ctx, professionalID)
}

func isParty(caller identity.Identity, appt *Appointment) bool {
	return caller.ID == appt.PatientID || caller.ID == appt.ProfessionalID
}

// emit writes the durable audit row and publishes the realtime event. Both
// are best effort; a booking never fails because telemetry did.
func (s *Service) emit(ctx context.Context, eventType string, appt *Appointment, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("failed to marshal event payload for %s: %v", eventType, err)
		data = nil
	}

	apptID := appt.ID
	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     s.now(),
	}
	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		log.Printf("failed to insert event log %s for appointment %s: %v", eventType, appt.ID, err)
	}

	if s.pub == nil {
		return
	}
	err = s.pub.Publish(ctx, events.Event{
		Type:           eventType,
		AppointmentID:  appt.ID,
		ProfessionalID: appt.ProfessionalID,
		PatientID:      appt.PatientID,
		OccurredAt:     s.now(),
		Payload:        data,
	})
	if err != nil {
		log.Printf("failed to publish event %s for appointment %s: %v", eventType, appt.ID, err)
	}
}
