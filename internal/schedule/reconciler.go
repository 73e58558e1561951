package schedule

import "time"

// Reconcile subtracts booked intervals from the candidate grid and applies the
// time boundaries: a slot whose start has already elapsed (start <= now) is
// out, and so is a slot past the booking horizon. Idempotent for unchanged
// inputs.
func Reconcile(slots []Slot, appointments []Appointment, now time.Time, horizon time.Duration) []Slot {
	bookable := make([]Slot, 0, len(slots))
	limit := now.Add(horizon)

	for _, s := range slots {
		if !s.Start.After(now) {
			continue
		}
		if horizon > 0 && s.Start.After(limit) {
			continue
		}
		if blocked(s, appointments) {
			continue
		}
		bookable = append(bookable, s)
	}

	return bookable
}

func blocked(s Slot, appointments []Appointment) bool {
	for _, a := range appointments {
		if !a.Blocking() {
			continue
		}
		if overlaps(s.Start, s.End, a.StartAt, a.EndAt()) {
			return true
		}
	}
	return false
}
