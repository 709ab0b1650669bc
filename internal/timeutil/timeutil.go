// Package timeutil holds the pure time arithmetic the scheduling engine
// compares with: wall-clock time-of-day as minutes since midnight, calendar
// dates normalized to UTC midnight, and the half-open interval overlap test.
package timeutil

import (
	"fmt"
	"time"

	"github.com/lessonlab/tutor_scheduler/internal/model"
)

// MinutesPerDay is the exclusive upper bound for a minutes-since-midnight value.
const MinutesPerDay = 1440

// ToMinutes converts a wall-clock time of day into minutes since midnight.
func ToMinutes(hour, minute int) (int, error) {
	if hour < 0 || hour > 23 {
		return 0, &model.ValidationError{Field: "hour", Reason: fmt.Sprintf("must be 0-23, got %d", hour)}
	}
	if minute < 0 || minute > 59 {
		return 0, &model.ValidationError{Field: "minute", Reason: fmt.Sprintf("must be 0-59, got %d", minute)}
	}
	return hour*60 + minute, nil
}

// FromMinutes is the inverse of ToMinutes.
func FromMinutes(m int) (hour, minute int, err error) {
	if m < 0 || m >= MinutesPerDay {
		return 0, 0, &model.ValidationError{Field: "minutes", Reason: fmt.Sprintf("must be 0-1439, got %d", m)}
	}
	return m / 60, m % 60, nil
}

// IntervalsOverlap reports whether two half-open intervals [startA, endA) and
// [startB, endB) intersect. Back-to-back windows, e.g. 09:00-10:00 and
// 10:00-11:00, do not overlap; this tie-break is what makes adjacent
// availability windows legal.
func IntervalsOverlap(startA, endA, startB, endB int) bool {
	return startA < endB && startB < endA
}

// DateOnly strips the time component, normalizing to UTC midnight.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AtMinutes resolves a minutes-since-midnight offset against a calendar date.
func AtMinutes(date time.Time, m int) time.Time {
	return DateOnly(date).Add(time.Duration(m) * time.Minute)
}

// FormatClock renders a minutes-since-midnight value as HH:MM.
func FormatClock(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}
