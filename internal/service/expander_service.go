package service

import (
	"context"
	"fmt"
	"time"

	"github.com/lessonlab/tutor_scheduler/internal/model"
	"github.com/lessonlab/tutor_scheduler/internal/repository"
	"github.com/lessonlab/tutor_scheduler/internal/timeutil"
)

// MaxExpandDays bounds the expansion range so the O(rules x days) walk stays
// cheap.
const MaxExpandDays = 90

// ExpanderService turns recurring rules into concrete slot instances on
// demand. Nothing here is ever cached or persisted: instances are recomputed
// on every query, so they cannot go stale independently of their rule.
type ExpanderService struct {
	rules    repository.RuleStore
	bookings repository.BookingStore
	now      func() time.Time
}

func NewExpanderService(rules repository.RuleStore, bookings repository.BookingStore) *ExpanderService {
	return &ExpanderService{rules: rules, bookings: bookings, now: time.Now}
}

// WithClock overrides the time source for tests.
func (s *ExpanderService) WithClock(now func() time.Time) *ExpanderService {
	s.now = now
	return s
}

// Expand produces every instance of the tutor's enabled rules inside
// [from, to]: matching weekday, not before today, not past the rule's
// recurrence end. The range is capped at MaxExpandDays.
func (s *ExpanderService) Expand(ctx context.Context, tutorID int64, from, to time.Time) ([]model.SlotInstance, error) {
	fromDate := timeutil.DateOnly(from)
	toDate := timeutil.DateOnly(to)
	if toDate.Before(fromDate) {
		return nil, &model.ValidationError{Field: "to_date", Reason: "must not be before from_date"}
	}
	days := int(toDate.Sub(fromDate).Hours()/24) + 1
	if days > MaxExpandDays {
		return nil, &model.ValidationError{Field: "to_date", Reason: fmt.Sprintf("range is capped at %d days, got %d", MaxExpandDays, days)}
	}

	rules, err := s.rules.ListEnabledByTutor(ctx, tutorID)
	if err != nil {
		return nil, err
	}

	today := timeutil.DateOnly(s.now())
	var instances []model.SlotInstance
	for date := fromDate; !date.After(toDate); date = date.AddDate(0, 0, 1) {
		for _, rule := range rules {
			if !rule.AppliesOn(date, today) {
				continue
			}
			instances = append(instances, model.SlotInstance{
				RuleID:  rule.ID,
				TutorID: rule.TutorID,
				Date:    date,
				Start:   timeutil.AtMinutes(date, rule.StartMin),
				End:     timeutil.AtMinutes(date, rule.EndMin),
			})
		}
	}
	return instances, nil
}

// IsOpen reports whether the (rule, date) instance is currently bookable:
// the rule produces it on that date and no confirmed booking holds it. This is
// a read-side answer only; the atomicity that prevents double booking lives in
// the ledger's insert, not here.
func (s *ExpanderService) IsOpen(ctx context.Context, tutorID, ruleID int64, date time.Time) (bool, error) {
	rule, err := s.rules.GetByID(ctx, ruleID)
	if err != nil {
		return false, err
	}
	if rule == nil || rule.TutorID != tutorID {
		return false, nil
	}

	day := timeutil.DateOnly(date)
	if !rule.AppliesOn(day, timeutil.DateOnly(s.now())) {
		return false, nil
	}

	booked, err := s.bookings.HasConfirmed(ctx, tutorID, ruleID, day)
	if err != nil {
		return false, err
	}
	return !booked, nil
}
