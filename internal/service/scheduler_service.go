package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/lessonlab/tutor_scheduler/internal/identity"
	"github.com/lessonlab/tutor_scheduler/internal/model"
	"github.com/lessonlab/tutor_scheduler/internal/notify"
)

// SchedulerService is the single surface other subsystems call. It composes
// the availability, expansion and booking services, resolves account ids
// through the identity collaborator, and fires notifications after successful
// mutations. It adds no scheduling logic of its own.
type SchedulerService struct {
	availability *AvailabilityService
	expander     *ExpanderService
	bookings     *BookingService
	users        identity.Resolver
	notifier     notify.Notifier
	logger       *zap.Logger
}

func NewSchedulerService(
	availability *AvailabilityService,
	expander *ExpanderService,
	bookings *BookingService,
	users identity.Resolver,
	notifier notify.Notifier,
	logger *zap.Logger,
) *SchedulerService {
	return &SchedulerService{
		availability: availability,
		expander:     expander,
		bookings:     bookings,
		users:        users,
		notifier:     notifier,
		logger:       logger,
	}
}

func (s *SchedulerService) AddRule(ctx context.Context, tutorID int64, weekday, startMin, endMin int, recurrenceEnd *time.Time) (*model.AvailabilityRule, error) {
	return s.availability.AddRule(ctx, tutorID, weekday, startMin, endMin, recurrenceEnd)
}

func (s *SchedulerService) ToggleRule(ctx context.Context, ruleID int64, enabled bool) (*model.AvailabilityRule, error) {
	return s.availability.ToggleRule(ctx, ruleID, enabled)
}

// DeleteRule deletes the rule with its cascade and notifies about the rule
// removal and every booking the cascade cancelled.
func (s *SchedulerService) DeleteRule(ctx context.Context, ruleID int64) error {
	rule, cancelled, err := s.availability.DeleteRule(ctx, ruleID)
	if err != nil {
		return err
	}

	for _, booking := range cancelled {
		event := notify.NewEvent(notify.EventBookingCancelled)
		event.TutorID = booking.TutorID
		event.StudentID = booking.StudentID
		event.RuleID = booking.RuleID
		event.BookingID = booking.ID
		event.SlotDate = booking.SlotDate.Format("2006-01-02")
		s.notifier.Notify(ctx, event)
	}

	event := notify.NewEvent(notify.EventRuleDeleted)
	event.TutorID = rule.TutorID
	event.RuleID = rule.ID
	s.notifier.Notify(ctx, event)
	return nil
}

func (s *SchedulerService) ListRules(ctx context.Context, tutorID int64) ([]*model.AvailabilityRule, error) {
	return s.availability.ListRules(ctx, tutorID)
}

func (s *SchedulerService) GetRule(ctx context.Context, ruleID int64) (*model.AvailabilityRule, error) {
	return s.availability.GetRule(ctx, ruleID)
}

// OpenSlots expands the tutor's rules over the range and drops the instances
// a confirmed booking already occupies.
func (s *SchedulerService) OpenSlots(ctx context.Context, tutorID int64, from, to time.Time) ([]model.SlotInstance, error) {
	instances, err := s.expander.Expand(ctx, tutorID, from, to)
	if err != nil {
		return nil, err
	}
	if len(instances) == 0 {
		return instances, nil
	}

	booked, err := s.bookings.ListForTutor(ctx, tutorID, from, to, false)
	if err != nil {
		return nil, err
	}
	taken := make(map[[2]int64]map[string]bool)
	for _, booking := range booked {
		key := [2]int64{booking.TutorID, booking.RuleID}
		if taken[key] == nil {
			taken[key] = make(map[string]bool)
		}
		taken[key][booking.SlotDate.Format("2006-01-02")] = true
	}

	open := instances[:0]
	for _, instance := range instances {
		key := [2]int64{instance.TutorID, instance.RuleID}
		if taken[key][instance.Date.Format("2006-01-02")] {
			continue
		}
		open = append(open, instance)
	}
	return open, nil
}

// IsOpen answers whether one instance is currently bookable.
func (s *SchedulerService) IsOpen(ctx context.Context, tutorID, ruleID int64, date time.Time) (bool, error) {
	return s.expander.IsOpen(ctx, tutorID, ruleID, date)
}

// Book resolves both accounts, claims the slot and notifies.
func (s *SchedulerService) Book(ctx context.Context, tutorID, studentID, ruleID int64, date time.Time) (*model.Booking, error) {
	if err := s.resolveUser(ctx, tutorID); err != nil {
		return nil, err
	}
	if err := s.resolveUser(ctx, studentID); err != nil {
		return nil, err
	}

	booking, err := s.bookings.Book(ctx, tutorID, studentID, ruleID, date)
	if err != nil {
		return nil, err
	}

	event := notify.NewEvent(notify.EventBookingConfirmed)
	event.TutorID = booking.TutorID
	event.StudentID = booking.StudentID
	event.RuleID = booking.RuleID
	event.BookingID = booking.ID
	event.SlotDate = booking.SlotDate.Format("2006-01-02")
	s.notifier.Notify(ctx, event)
	return booking, nil
}

// Cancel cancels a booking and notifies.
func (s *SchedulerService) Cancel(ctx context.Context, bookingID, cancelledBy int64) (*model.Booking, error) {
	booking, err := s.bookings.Cancel(ctx, bookingID, cancelledBy)
	if err != nil {
		return nil, err
	}

	event := notify.NewEvent(notify.EventBookingCancelled)
	event.TutorID = booking.TutorID
	event.StudentID = booking.StudentID
	event.RuleID = booking.RuleID
	event.BookingID = booking.ID
	event.SlotDate = booking.SlotDate.Format("2006-01-02")
	s.notifier.Notify(ctx, event)
	return booking, nil
}

func (s *SchedulerService) BookingsForTutor(ctx context.Context, tutorID int64, from, to time.Time, includeCancelled bool) ([]*model.Booking, error) {
	return s.bookings.ListForTutor(ctx, tutorID, from, to, includeCancelled)
}

func (s *SchedulerService) BookingsForStudent(ctx context.Context, studentID int64, from, to time.Time, includeCancelled bool) ([]*model.Booking, error) {
	return s.bookings.ListForStudent(ctx, studentID, from, to, includeCancelled)
}

func (s *SchedulerService) resolveUser(ctx context.Context, id int64) error {
	user, err := s.users.Resolve(ctx, id)
	if err != nil {
		return err
	}
	if user == nil {
		return &model.NotFoundError{Resource: "user", ID: id}
	}
	return nil
}
