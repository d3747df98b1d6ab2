package schedule

import (
	"sort"
	"time"
)

// BookedRange is an occupied minute-of-day interval on the requested date.
type BookedRange struct {
	StartMin int
	EndMin   int
}

// AvailableSlots walks each window in slotMinutes increments and returns the
// open start times for date, as sorted deduplicated "HH:MM" strings.
//
// A candidate start s is emitted when s+slotMinutes still fits the window,
// s is after "now" when date is today, and [s, s+slotMinutes) does not
// overlap any booked range. The function is pure: same inputs, same output.
func AvailableSlots(windows []WorkingWindow, slotMinutes int, booked []BookedRange, date, now time.Time) []string {
	if slotMinutes <= 0 || len(windows) == 0 {
		return []string{}
	}

	isToday := sameDate(date, now)
	nowMin := now.Hour()*60 + now.Minute()

	seen := make(map[int]struct{})
	var mins []int

	for _, w := range windows {
		for s := w.StartMin; s+slotMinutes <= w.EndMin; s += slotMinutes {
			if isToday && s <= nowMin {
				continue
			}
			e := s + slotMinutes
			conflict := false
			for _, r := range booked {
				if Overlaps(s, e, r.StartMin, r.EndMin) {
					conflict = true
					break
				}
			}
			if conflict {
				continue
			}
			if _, dup := seen[s]; dup {
				continue
			}
			seen[s] = struct{}{}
			mins = append(mins, s)
		}
	}

	sort.Ints(mins)

	out := make([]string, 0, len(mins))
	for _, m := range mins {
		out = append(out, FormatHHMM(m))
	}
	return out
}

func sameDate(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
