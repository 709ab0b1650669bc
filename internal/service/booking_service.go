package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/lessonlab/tutor_scheduler/internal/model"
	"github.com/lessonlab/tutor_scheduler/internal/repository"
	"github.com/lessonlab/tutor_scheduler/internal/timeutil"
)

// BookingService is the exclusive-assignment authority over slot instances.
// The create-if-absent on the (tutor, rule, date) key is delegated to the
// store as one indivisible operation; this service never does a separate
// openness read followed by a write.
type BookingService struct {
	rules    repository.RuleStore
	bookings repository.BookingStore
	logger   *zap.Logger
	now      func() time.Time
}

func NewBookingService(rules repository.RuleStore, bookings repository.BookingStore, logger *zap.Logger) *BookingService {
	return &BookingService{rules: rules, bookings: bookings, logger: logger, now: time.Now}
}

// WithClock overrides the time source for tests.
func (s *BookingService) WithClock(now func() time.Time) *BookingService {
	s.now = now
	return s
}

// Book claims the slot instance for the student. The instance must be one the
// expansion rules would produce (enabled rule, matching weekday, not in the
// past, within recurrence validity); otherwise the call is NotFound. A
// confirmed booking already holding the key is a Conflict.
func (s *BookingService) Book(ctx context.Context, tutorID, studentID, ruleID int64, date time.Time) (*model.Booking, error) {
	rule, err := s.rules.GetByID(ctx, ruleID)
	if err != nil {
		return nil, err
	}
	if rule == nil || rule.TutorID != tutorID {
		return nil, &model.NotFoundError{Resource: "availability_rule", ID: ruleID}
	}

	day := timeutil.DateOnly(date)
	if !rule.AppliesOn(day, timeutil.DateOnly(s.now())) {
		return nil, &model.NotFoundError{Resource: "slot_instance", ID: ruleID}
	}

	booking := &model.Booking{
		TutorID:   tutorID,
		StudentID: studentID,
		RuleID:    ruleID,
		SlotDate:  day,
	}
	if err := s.bookings.Create(ctx, booking); err != nil {
		return nil, err
	}

	s.logger.Info("Slot booked",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("tutor_id", tutorID),
		zap.Int64("student_id", studentID),
		zap.Int64("rule_id", ruleID),
		zap.String("slot_date", day.Format("2006-01-02")),
	)
	return booking, nil
}

// Cancel transitions a confirmed booking to cancelled. Cancelling an already
// cancelled booking is an InvalidState error, not a silent no-op: callers
// driving refunds need to tell the difference.
func (s *BookingService) Cancel(ctx context.Context, bookingID, cancelledBy int64) (*model.Booking, error) {
	booking, err := s.bookings.Cancel(ctx, bookingID, cancelledBy, s.now())
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, &model.NotFoundError{Resource: "booking", ID: bookingID}
	}

	s.logger.Info("Booking cancelled",
		zap.Int64("booking_id", bookingID),
		zap.Int64("cancelled_by", cancelledBy),
	)
	return booking, nil
}

// ListForTutor returns the tutor's bookings in the date range; cancelled ones
// only when asked for.
func (s *BookingService) ListForTutor(ctx context.Context, tutorID int64, from, to time.Time, includeCancelled bool) ([]*model.Booking, error) {
	return s.bookings.ListByTutor(ctx, tutorID, timeutil.DateOnly(from), timeutil.DateOnly(to), includeCancelled)
}

// ListForStudent is ListForTutor keyed on the student.
func (s *BookingService) ListForStudent(ctx context.Context, studentID int64, from, to time.Time, includeCancelled bool) ([]*model.Booking, error) {
	return s.bookings.ListByStudent(ctx, studentID, timeutil.DateOnly(from), timeutil.DateOnly(to), includeCancelled)
}
