package model

import (
	"fmt"
	"time"
)

// Slot duration bounds in minutes.
const (
	MinSlotDuration = 30
	MaxSlotDuration = 480
)

// AvailabilityRule is a tutor's recurring weekly declaration of a bookable
// window. Times are stored as minutes since midnight in a single normalized
// clock; dates carry no time component.
type AvailabilityRule struct {
	ID            int64      `json:"id"`
	TutorID       int64      `json:"tutor_id"`
	Weekday       int        `json:"weekday"`   // 0 = Sunday, 6 = Saturday
	StartMin      int        `json:"start_min"` // 0-1439
	EndMin        int        `json:"end_min"`   // 0-1439, exclusive
	RecurrenceEnd *time.Time `json:"recurrence_end"` // inclusive last date, nil = no end
	Enabled       bool       `json:"enabled"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Validate checks the field invariants against the creation date. The window
// and weekday are immutable after creation, so this runs exactly once.
func (r *AvailabilityRule) Validate(today time.Time) error {
	if r.Weekday < 0 || r.Weekday > 6 {
		return &ValidationError{Field: "weekday", Reason: fmt.Sprintf("must be 0-6, got %d", r.Weekday)}
	}
	if r.StartMin < 0 || r.StartMin > 1439 {
		return &ValidationError{Field: "start_min", Reason: fmt.Sprintf("must be 0-1439, got %d", r.StartMin)}
	}
	if r.EndMin < 0 || r.EndMin > 1439 {
		return &ValidationError{Field: "end_min", Reason: fmt.Sprintf("must be 0-1439, got %d", r.EndMin)}
	}
	if r.StartMin >= r.EndMin {
		return &ValidationError{Field: "end_min", Reason: "must be after start_min"}
	}
	duration := r.EndMin - r.StartMin
	if duration < MinSlotDuration || duration > MaxSlotDuration {
		return &ValidationError{
			Field:  "end_min",
			Reason: fmt.Sprintf("duration must be %d-%d minutes, got %d", MinSlotDuration, MaxSlotDuration, duration),
		}
	}
	if r.RecurrenceEnd != nil && r.RecurrenceEnd.Before(today) {
		return &ValidationError{Field: "recurrence_end", Reason: "must not be before the creation date"}
	}
	return nil
}

// AppliesOn reports whether the rule produces an instance on the given
// calendar date: enabled, matching weekday, not in the past, and within the
// recurrence validity.
func (r *AvailabilityRule) AppliesOn(date, today time.Time) bool {
	if !r.Enabled {
		return false
	}
	if int(date.Weekday()) != r.Weekday {
		return false
	}
	if date.Before(today) {
		return false
	}
	if r.RecurrenceEnd != nil && date.After(*r.RecurrenceEnd) {
		return false
	}
	return true
}
