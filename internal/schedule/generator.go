package schedule

import (
	"sort"
	"time"
)

const DefaultGranularity = 30 * time.Minute

// GenerateSlots derives the candidate slot grid for one calendar day from the
// given availability rules. Pure function: rules whose day-of-week does not
// match the day, or which are inactive, contribute nothing. Output is sorted
// ascending by start time with no duplicate intervals. A trailing window
// shorter than one granularity is dropped.
func GenerateSlots(rules []AvailabilityRule, day time.Time, granularity time.Duration) []Slot {
	if granularity <= 0 {
		granularity = DefaultGranularity
	}

	midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	weekday := int(midnight.Weekday())

	var slots []Slot
	for _, r := range rules {
		if !r.Active || r.DayOfWeek != weekday || !r.validBounds() {
			continue
		}

		windowStart := midnight.Add(time.Duration(r.StartMinute) * time.Minute)
		windowEnd := midnight.Add(time.Duration(r.EndMinute) * time.Minute)

		for t := windowStart; !t.Add(granularity).After(windowEnd); t = t.Add(granularity) {
			slots = append(slots, Slot{
				ProfessionalID: r.ProfessionalID,
				Start:          t,
				End:            t.Add(granularity),
			})
		}
	}

	sort.Slice(slots, func(i, j int) bool {
		return slots[i].Start.Before(slots[j].Start)
	})

	// Misconfigured overlapping rules could emit the same interval twice.
	deduped := slots[:0]
	for i, s := range slots {
		if i > 0 && s.Start.Equal(slots[i-1].Start) {
			continue
		}
		deduped = append(deduped, s)
	}

	return deduped
}
