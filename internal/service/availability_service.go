package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/lessonlab/tutor_scheduler/internal/model"
	"github.com/lessonlab/tutor_scheduler/internal/repository"
	"github.com/lessonlab/tutor_scheduler/internal/timeutil"
)

// AvailabilityService manages a tutor's recurring weekly availability rules.
// A rule's window and weekday are immutable after creation; reshaping a window
// means delete and recreate, so already-booked instances can never be silently
// redefined.
type AvailabilityService struct {
	rules  repository.RuleStore
	logger *zap.Logger
	now    func() time.Time
}

func NewAvailabilityService(rules repository.RuleStore, logger *zap.Logger) *AvailabilityService {
	return &AvailabilityService{rules: rules, logger: logger, now: time.Now}
}

// WithClock overrides the time source for tests.
func (s *AvailabilityService) WithClock(now func() time.Time) *AvailabilityService {
	s.now = now
	return s
}

// AddRule validates the declaration and stores it. Field validation runs
// first; the overlap check against the tutor's enabled rules on the same
// weekday happens atomically inside the store.
func (s *AvailabilityService) AddRule(ctx context.Context, tutorID int64, weekday, startMin, endMin int, recurrenceEnd *time.Time) (*model.AvailabilityRule, error) {
	today := timeutil.DateOnly(s.now())

	if recurrenceEnd != nil {
		end := timeutil.DateOnly(*recurrenceEnd)
		recurrenceEnd = &end
	}

	rule := &model.AvailabilityRule{
		TutorID:       tutorID,
		Weekday:       weekday,
		StartMin:      startMin,
		EndMin:        endMin,
		RecurrenceEnd: recurrenceEnd,
		Enabled:       true,
	}
	if err := rule.Validate(today); err != nil {
		return nil, err
	}

	if err := s.rules.Create(ctx, rule); err != nil {
		return nil, err
	}

	s.logger.Info("Availability rule added",
		zap.Int64("rule_id", rule.ID),
		zap.Int64("tutor_id", tutorID),
		zap.Int("weekday", weekday),
		zap.String("window", timeutil.FormatClock(startMin)+"-"+timeutil.FormatClock(endMin)),
	)
	return rule, nil
}

// ToggleRule flips the enabled flag. Disabling stops new instances from being
// offered; it does not touch existing confirmed bookings.
func (s *AvailabilityService) ToggleRule(ctx context.Context, ruleID int64, enabled bool) (*model.AvailabilityRule, error) {
	rule, err := s.rules.SetEnabled(ctx, ruleID, enabled)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, &model.NotFoundError{Resource: "availability_rule", ID: ruleID}
	}

	s.logger.Info("Availability rule toggled",
		zap.Int64("rule_id", ruleID),
		zap.Bool("enabled", enabled),
	)
	return rule, nil
}

// DeleteRule removes the rule, cancelling every future confirmed booking tied
// to it first. The cascade and the delete are one transaction; it returns the
// deleted rule and the bookings that were cancelled so the caller can notify.
func (s *AvailabilityService) DeleteRule(ctx context.Context, ruleID int64) (*model.AvailabilityRule, []*model.Booking, error) {
	rule, err := s.rules.GetByID(ctx, ruleID)
	if err != nil {
		return nil, nil, err
	}
	if rule == nil {
		return nil, nil, &model.NotFoundError{Resource: "availability_rule", ID: ruleID}
	}

	today := timeutil.DateOnly(s.now())
	cancelled, err := s.rules.DeleteCascade(ctx, ruleID, today, rule.TutorID)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("Availability rule deleted",
		zap.Int64("rule_id", ruleID),
		zap.Int64("tutor_id", rule.TutorID),
		zap.Int("cancelled_bookings", len(cancelled)),
	)
	return rule, cancelled, nil
}

// ListRules returns the tutor's rules ordered by weekday then start time.
func (s *AvailabilityService) ListRules(ctx context.Context, tutorID int64) ([]*model.AvailabilityRule, error) {
	return s.rules.ListByTutor(ctx, tutorID)
}

// GetRule returns one rule.
func (s *AvailabilityService) GetRule(ctx context.Context, ruleID int64) (*model.AvailabilityRule, error) {
	rule, err := s.rules.GetByID(ctx, ruleID)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, &model.NotFoundError{Resource: "availability_rule", ID: ruleID}
	}
	return rule, nil
}
