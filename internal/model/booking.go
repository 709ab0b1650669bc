package model

import "time"

type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// Booking is a student's exclusive claim on one slot instance, identified by
// the (tutor, rule, date) triple. At most one booking per triple may be
// confirmed at any time; bookings are never deleted, only cancelled.
type Booking struct {
	ID          int64         `json:"id"`
	TutorID     int64         `json:"tutor_id"`
	StudentID   int64         `json:"student_id"`
	RuleID      int64         `json:"rule_id"`
	SlotDate    time.Time     `json:"slot_date"` // calendar date of the instance
	Status      BookingStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	CancelledAt *time.Time    `json:"cancelled_at"`
	CancelledBy *int64        `json:"cancelled_by"`
}

// IsConfirmed reports whether the booking still occupies its slot.
func (b *Booking) IsConfirmed() bool {
	return b.Status == BookingStatusConfirmed
}
