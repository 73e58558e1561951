package schedule

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func gridFor(t *testing.T, professionalID uuid.UUID, day time.Time) []Slot {
	t.Helper()
	rules := []AvailabilityRule{{
		ProfessionalID: professionalID,
		DayOfWeek:      int(day.Weekday()),
		StartMinute:    8 * 60,
		EndMinute:      12 * 60,
		Active:         true,
	}}
	slots := GenerateSlots(rules, day, 30*time.Minute)
	if len(slots) != 8 {
		t.Fatalf("fixture grid: expected 8 slots, got %d", len(slots))
	}
	return slots
}

func TestReconcileExcludesBookedSlot(t *testing.T) {
	professionalID := uuid.New()
	day := nextWeekday(time.Now().UTC().AddDate(0, 0, 1), time.Monday)
	slots := gridFor(t, professionalID, day)

	appointments := []Appointment{{
		ID:              uuid.New(),
		ProfessionalID:  professionalID,
		PatientID:       uuid.New(),
		StartAt:         day.Add(9 * time.Hour),
		DurationMinutes: 30,
		Status:          StatusScheduled,
	}}

	now := day.Add(-24 * time.Hour)
	bookable := Reconcile(slots, appointments, now, 0)

	if len(bookable) != 7 {
		t.Fatalf("expected 7 bookable slots, got %d", len(bookable))
	}
	booked := day.Add(9 * time.Hour)
	for _, s := range bookable {
		if s.Start.Equal(booked) {
			t.Fatalf("09:00 slot should have been excluded")
		}
	}
}

func TestReconcileCancelledDoesNotBlock(t *testing.T) {
	professionalID := uuid.New()
	day := nextWeekday(time.Now().UTC().AddDate(0, 0, 1), time.Monday)
	slots := gridFor(t, professionalID, day)

	appointments := []Appointment{{
		ProfessionalID:  professionalID,
		StartAt:         day.Add(9 * time.Hour),
		DurationMinutes: 30,
		Status:          StatusCancelled,
	}}

	bookable := Reconcile(slots, appointments, day.Add(-24*time.Hour), 0)
	if len(bookable) != 8 {
		t.Fatalf("cancelled appointment blocked a slot: got %d bookable", len(bookable))
	}
}

func TestReconcileNowBoundary(t *testing.T) {
	professionalID := uuid.New()
	day := nextWeekday(time.Now().UTC().AddDate(0, 0, 1), time.Monday)
	slots := gridFor(t, professionalID, day)

	// now lands exactly on the 09:00 slot start: 08:00, 08:30 and 09:00 are
	// out, 09:30 onward stays.
	now := day.Add(9 * time.Hour)
	bookable := Reconcile(slots, nil, now, 0)

	if len(bookable) != 5 {
		t.Fatalf("expected 5 bookable slots, got %d", len(bookable))
	}
	if !bookable[0].Start.Equal(day.Add(9*time.Hour + 30*time.Minute)) {
		t.Fatalf("first bookable slot = %s, want 09:30", bookable[0].Start)
	}
}

func TestReconcileHorizon(t *testing.T) {
	professionalID := uuid.New()
	day := nextWeekday(time.Now().UTC().AddDate(0, 0, 1), time.Monday)
	slots := gridFor(t, professionalID, day)

	// horizon ends exactly at 10:00; slots starting at or before the limit
	// survive, later ones do not.
	now := day.Add(8 * time.Hour)
	bookable := Reconcile(slots, nil, now, 2*time.Hour)

	if len(bookable) != 4 {
		t.Fatalf("expected 4 bookable slots within horizon, got %d", len(bookable))
	}
	last := bookable[len(bookable)-1]
	if !last.Start.Equal(day.Add(10 * time.Hour)) {
		t.Fatalf("last bookable slot = %s, want 10:00", last.Start)
	}
}

func TestReconcileIdempotent(t *testing.T) {
	professionalID := uuid.New()
	day := nextWeekday(time.Now().UTC().AddDate(0, 0, 1), time.Monday)
	slots := gridFor(t, professionalID, day)

	appointments := []Appointment{{
		ProfessionalID:  professionalID,
		StartAt:         day.Add(10 * time.Hour),
		DurationMinutes: 30,
		Status:          StatusScheduled,
	}}

	now := day.Add(-time.Hour)
	once := Reconcile(slots, appointments, now, 0)
	twice := Reconcile(once, appointments, now, 0)

	if len(once) != len(twice) {
		t.Fatalf("reconcile not idempotent: %d then %d", len(once), len(twice))
	}
	for i := range once {
		if !once[i].Start.Equal(twice[i].Start) {
			t.Fatalf("slot %d changed between passes", i)
		}
	}
}
