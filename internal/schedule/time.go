package schedule

import (
	"fmt"
)

// ParseHHMM converts a 24-hour "HH:MM" string to minutes after midnight.
func ParseHHMM(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid time %q: out of range", s)
	}
	return h*60 + m, nil
}

// FormatHHMM renders minutes after midnight as zero-padded "HH:MM".
func FormatHHMM(min int) string {
	return fmt.Sprintf("%02d:%02d", min/60, min%60)
}

// Overlaps reports whether the half-open minute ranges [aStart, aEnd) and
// [bStart, bEnd) intersect.
func Overlaps(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && bStart < aEnd
}
