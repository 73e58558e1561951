package schedule

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is a mutex-guarded Repository used by tests and local
// tooling. CreateAppointment gives the same conditional-insert guarantee as
// the Postgres exclusion constraint: the overlap check and the insert happen
// under one lock.
type MemoryRepository struct {
	mu            sync.Mutex
	professionals map[uuid.UUID]struct{}
	rules         map[uuid.UUID]AvailabilityRule
	appointments  map[uuid.UUID]Appointment
	events        []EventLog
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		professionals: make(map[uuid.UUID]struct{}),
		rules:         make(map[uuid.UUID]AvailabilityRule),
		appointments:  make(map[uuid.UUID]Appointment),
	}
}

// AddProfessional registers an id so ProfessionalExists accepts it.
func (m *MemoryRepository) AddProfessional(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.professionals[id] = struct{}{}
}

func (m *MemoryRepository) ProfessionalExists(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.professionals[id]; !ok {
		return ErrProfessionalNotFound
	}
	return nil
}

func (m *MemoryRepository) ActiveRulesForDay(ctx context.Context, professionalID uuid.UUID, dayOfWeek int) ([]AvailabilityRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []AvailabilityRule
	for _, r := range m.rules {
		if r.ProfessionalID == professionalID && r.DayOfWeek == dayOfWeek && r.Active {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartMinute < out[j].StartMinute })
	return out, nil
}

func (m *MemoryRepository) ListActiveRules(ctx context.Context, professionalID uuid.UUID) ([]AvailabilityRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []AvailabilityRule
	for _, r := range m.rules {
		if r.ProfessionalID == professionalID && r.Active {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DayOfWeek != out[j].DayOfWeek {
			return out[i].DayOfWeek < out[j].DayOfWeek
		}
		return out[i].StartMinute < out[j].StartMinute
	})
	return out, nil
}

func (m *MemoryRepository) InsertRule(ctx context.Context, rule AvailabilityRule) (*AvailabilityRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, other := range m.rules {
		if other.ProfessionalID != rule.ProfessionalID || other.DayOfWeek != rule.DayOfWeek || !other.Active {
			continue
		}
		if rule.StartMinute < other.EndMinute && other.StartMinute < rule.EndMinute {
			return nil, ErrRuleOverlap
		}
	}

	now := time.Now()
	rule.Active = true
	rule.CreatedAt = now
	rule.UpdatedAt = now
	m.rules[rule.ID] = rule

	stored := rule
	return &stored, nil
}

func (m *MemoryRepository) DeactivateRule(ctx context.Context, professionalID, ruleID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rules[ruleID]
	if !ok || r.ProfessionalID != professionalID || !r.Active {
		return ErrRuleNotFound
	}
	r.Active = false
	r.UpdatedAt = time.Now()
	m.rules[ruleID] = r
	return nil
}

func (m *MemoryRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return &a, nil
}

func (m *MemoryRepository) AppointmentsInRange(ctx context.Context, professionalID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Appointment
	for _, a := range m.appointments {
		if a.ProfessionalID != professionalID {
			continue
		}
		if a.StartAt.Before(to) && a.EndAt().After(from) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartAt.Before(out[j].StartAt) })
	return out, nil
}

func (m *MemoryRepository) ListAppointmentsForAccount(ctx context.Context, accountID uuid.UUID, from time.Time) ([]Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Appointment
	for _, a := range m.appointments {
		if a.ProfessionalID != accountID && a.PatientID != accountID {
			continue
		}
		if a.StartAt.Before(from) {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartAt.Before(out[j].StartAt) })
	return out, nil
}

func (m *MemoryRepository) CreateAppointment(ctx context.Context, appt Appointment) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.appointments {
		if existing.ProfessionalID != appt.ProfessionalID || !existing.Blocking() {
			continue
		}
		if overlaps(appt.StartAt, appt.EndAt(), existing.StartAt, existing.EndAt()) {
			return nil, ErrAppointmentOverlap
		}
	}

	now := time.Now()
	appt.CreatedAt = now
	appt.UpdatedAt = now
	m.appointments[appt.ID] = appt

	stored := appt
	return &stored, nil
}

func (m *MemoryRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.appointments[id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}
	a.Status = to
	a.UpdatedAt = time.Now()
	m.appointments[id] = a

	updated := a
	return &updated, nil
}

func (m *MemoryRepository) FindDueScheduled(ctx context.Context, now time.Time) ([]Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Appointment
	for _, a := range m.appointments {
		if a.Status == StatusScheduled && !a.StartAt.After(now) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *MemoryRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ev.ID = int64(len(m.events) + 1)
	m.events = append(m.events, ev)
	return nil
}

// Events returns a copy of the audit log, oldest first.
func (m *MemoryRepository) Events() []EventLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]EventLog(nil), m.events...)
}
