package sickday

import "time"

// ISODate is the calendar-date layout used everywhere in this system.
// Zero-padded, so lexicographic comparison matches chronological order.
const ISODate = "2006-01-02"

const (
	MinDurationDays = 1
	MaxDurationDays = 365
)

// ClampDays bounds a requested day count to [MinDurationDays, MaxDurationDays].
func ClampDays(n int) int {
	if n < MinDurationDays {
		return MinDurationDays
	}
	if n > MaxDurationDays {
		return MaxDurationDays
	}
	return n
}

// EndDateFor computes the end date for a sick day lasting n days from now.
func EndDateFor(now time.Time, days int) string {
	return now.AddDate(0, 0, ClampDays(days)).Format(ISODate)
}
