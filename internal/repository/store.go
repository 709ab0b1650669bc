// Package repository defines the storage contracts for the scheduling engine.
// Implementations must provide the atomicity the booking ledger relies on:
// Create on the BookingStore is insert-if-absent for the confirmed
// (tutor, rule, date) key, and Create on the RuleStore serializes the overlap
// check per tutor and weekday.
package repository

import (
	"context"
	"time"

	"github.com/lessonlab/tutor_scheduler/internal/model"
)

// RuleStore owns the recurring weekly declarations.
//
// Get methods return (nil, nil) when the row does not exist.
type RuleStore interface {
	// Create validates nothing; it atomically checks the window against every
	// enabled rule of the same tutor on the same weekday and inserts. Overlap
	// yields *model.ConflictError naming the conflicting rule.
	Create(ctx context.Context, rule *model.AvailabilityRule) error
	GetByID(ctx context.Context, id int64) (*model.AvailabilityRule, error)
	// ListByTutor returns all rules ordered by weekday then start.
	ListByTutor(ctx context.Context, tutorID int64) ([]*model.AvailabilityRule, error)
	ListEnabledByTutor(ctx context.Context, tutorID int64) ([]*model.AvailabilityRule, error)
	SetEnabled(ctx context.Context, id int64, enabled bool) (*model.AvailabilityRule, error)
	// DeleteCascade cancels every confirmed booking of the rule dated on or
	// after `from` and removes the rule, as one transaction. It returns the
	// bookings it cancelled. A cancellation failure aborts the whole delete
	// with *model.CascadeFailedError.
	DeleteCascade(ctx context.Context, id int64, from time.Time, cancelledBy int64) ([]*model.Booking, error)
}

// BookingStore is the exclusive-assignment ledger.
type BookingStore interface {
	// Create inserts the booking iff no confirmed booking holds the
	// (tutor, rule, date) key; otherwise *model.ConflictError. The existence
	// check and insert are a single indivisible operation.
	Create(ctx context.Context, booking *model.Booking) error
	GetByID(ctx context.Context, id int64) (*model.Booking, error)
	HasConfirmed(ctx context.Context, tutorID, ruleID int64, date time.Time) (bool, error)
	// Cancel transitions confirmed -> cancelled. A booking in any other state
	// yields *model.InvalidStateError; an unknown id returns (nil, nil).
	Cancel(ctx context.Context, id, cancelledBy int64, at time.Time) (*model.Booking, error)
	ListByTutor(ctx context.Context, tutorID int64, from, to time.Time, includeCancelled bool) ([]*model.Booking, error)
	ListByStudent(ctx context.Context, studentID int64, from, to time.Time, includeCancelled bool) ([]*model.Booking, error)
}
