// Package workday buckets wall-clock time into workout days. A workout day
// runs from the reset hour to the next day's reset hour, so a session logged
// at 01:30 still counts toward the previous evening. All arithmetic is done
// on the local wall clock of the supplied time; chat timestamps use the
// plain calendar day instead and must not go through Adjust.
package workday

import (
	"fmt"
	"time"
)

// DefaultResetHour is when a new workout day begins.
const DefaultResetHour = 3

// Adjust shifts t back one calendar day when its hour-of-day is before
// resetHour. The boundary is inclusive of the new day: at exactly the reset
// hour no shift happens. Time-of-day is preserved.
func Adjust(t time.Time, resetHour int) time.Time {
	if t.Hour() < resetHour {
		return t.AddDate(0, 0, -1)
	}
	return t
}

// Key derives the zero-padded YYYYMMDD partition key from t's local date
// components. Every day-scoped query is keyed by this string, never by the
// raw date.
func Key(t time.Time) string {
	return fmt.Sprintf("%04d%02d%02d", t.Year(), int(t.Month()), t.Day())
}

// ParseKey is the inverse of Key. The result is midnight local time, so
// Key(ParseKey(k)) == k for any valid 8-digit key.
func ParseKey(key string) (time.Time, error) {
	t, err := time.ParseInLocation("20060102", key, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day key %q: %w", key, err)
	}
	return t, nil
}

// SameCalendarDay reports whether a and b fall on the same local calendar
// day. Chat day separators use this, not the reset-hour bucketing.
func SameCalendarDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
