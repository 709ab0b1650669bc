// Package memory implements the repository contracts on in-process maps. It
// backs the service tests and the dev mode of the server; atomicity comes from
// a single mutex held across every check-and-mutate pair.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/lessonlab/tutor_scheduler/internal/model"
	"github.com/lessonlab/tutor_scheduler/internal/timeutil"
)

type slotKey struct {
	tutorID int64
	ruleID  int64
	date    string
}

func keyFor(tutorID, ruleID int64, date time.Time) slotKey {
	return slotKey{tutorID: tutorID, ruleID: ruleID, date: timeutil.DateOnly(date).Format("2006-01-02")}
}

// Store holds rules and bookings behind one mutex. The RuleStore and
// BookingStore contracts are exposed through the Rules and Bookings views so
// the cascade delete can touch both sides in a single critical section.
type Store struct {
	mu            sync.RWMutex
	nextRuleID    int64
	nextBookingID int64
	rules         map[int64]*model.AvailabilityRule
	bookings      map[int64]*model.Booking
	confirmed     map[slotKey]int64 // booking id currently holding the slot

	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		rules:     make(map[int64]*model.AvailabilityRule),
		bookings:  make(map[int64]*model.Booking),
		confirmed: make(map[slotKey]int64),
		now:       time.Now,
	}
}

// WithClock overrides the time source; tests use it to pin timestamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Rules returns the repository.RuleStore view of the store.
func (s *Store) Rules() *RuleStore {
	return &RuleStore{s: s}
}

// Bookings returns the repository.BookingStore view of the store.
func (s *Store) Bookings() *BookingStore {
	return &BookingStore{s: s}
}

func cloneRule(r *model.AvailabilityRule) *model.AvailabilityRule {
	c := *r
	if r.RecurrenceEnd != nil {
		end := *r.RecurrenceEnd
		c.RecurrenceEnd = &end
	}
	return &c
}

func cloneBooking(b *model.Booking) *model.Booking {
	c := *b
	if b.CancelledAt != nil {
		at := *b.CancelledAt
		c.CancelledAt = &at
	}
	if b.CancelledBy != nil {
		by := *b.CancelledBy
		c.CancelledBy = &by
	}
	return &c
}

// RuleStore is the rule side of the in-memory store.
type RuleStore struct {
	s *Store
}

func (r *RuleStore) Create(ctx context.Context, rule *model.AvailabilityRule) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.rules {
		if existing.TutorID != rule.TutorID || existing.Weekday != rule.Weekday || !existing.Enabled {
			continue
		}
		if timeutil.IntervalsOverlap(rule.StartMin, rule.EndMin, existing.StartMin, existing.EndMin) {
			return &model.ConflictError{
				Resource:      "availability_rule",
				ConflictingID: existing.ID,
				Reason:        "window overlaps existing rule",
			}
		}
	}

	s.nextRuleID++
	rule.ID = s.nextRuleID
	rule.CreatedAt = s.now()
	rule.UpdatedAt = rule.CreatedAt
	s.rules[rule.ID] = cloneRule(rule)
	return nil
}

func (r *RuleStore) GetByID(ctx context.Context, id int64) (*model.AvailabilityRule, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()
	rule, ok := s.rules[id]
	if !ok {
		return nil, nil
	}
	return cloneRule(rule), nil
}

func (r *RuleStore) ListByTutor(ctx context.Context, tutorID int64) ([]*model.AvailabilityRule, error) {
	return r.list(tutorID, false)
}

func (r *RuleStore) ListEnabledByTutor(ctx context.Context, tutorID int64) ([]*model.AvailabilityRule, error) {
	return r.list(tutorID, true)
}

func (r *RuleStore) list(tutorID int64, enabledOnly bool) ([]*model.AvailabilityRule, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rules []*model.AvailabilityRule
	for _, rule := range s.rules {
		if rule.TutorID != tutorID {
			continue
		}
		if enabledOnly && !rule.Enabled {
			continue
		}
		rules = append(rules, cloneRule(rule))
	}
	sort.Slice(rules, func(i, j int) bool {
		if rules[i].Weekday != rules[j].Weekday {
			return rules[i].Weekday < rules[j].Weekday
		}
		return rules[i].StartMin < rules[j].StartMin
	})
	return rules, nil
}

func (r *RuleStore) SetEnabled(ctx context.Context, id int64, enabled bool) (*model.AvailabilityRule, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	rule, ok := s.rules[id]
	if !ok {
		return nil, nil
	}
	rule.Enabled = enabled
	rule.UpdatedAt = s.now()
	return cloneRule(rule), nil
}

func (r *RuleStore) DeleteCascade(ctx context.Context, id int64, from time.Time, cancelledBy int64) ([]*model.Booking, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rules[id]; !ok {
		return nil, &model.NotFoundError{Resource: "availability_rule", ID: id}
	}

	fromDate := timeutil.DateOnly(from)
	var cancelled []*model.Booking
	for _, booking := range s.bookings {
		if booking.RuleID != id || booking.Status != model.BookingStatusConfirmed {
			continue
		}
		if booking.SlotDate.Before(fromDate) {
			continue
		}
		at := s.now()
		by := cancelledBy
		booking.Status = model.BookingStatusCancelled
		booking.CancelledAt = &at
		booking.CancelledBy = &by
		delete(s.confirmed, keyFor(booking.TutorID, booking.RuleID, booking.SlotDate))
		cancelled = append(cancelled, cloneBooking(booking))
	}

	delete(s.rules, id)
	sort.Slice(cancelled, func(i, j int) bool { return cancelled[i].ID < cancelled[j].ID })
	return cancelled, nil
}

// BookingStore is the ledger side of the in-memory store.
type BookingStore struct {
	s *Store
}

func (b *BookingStore) Create(ctx context.Context, booking *model.Booking) error {
	s := b.s
	s.mu.Lock()
	defer s.mu.Unlock()

	key := keyFor(booking.TutorID, booking.RuleID, booking.SlotDate)
	if holder, taken := s.confirmed[key]; taken {
		return &model.ConflictError{
			Resource:      "booking",
			ConflictingID: holder,
			Reason:        "slot is already booked",
		}
	}

	s.nextBookingID++
	booking.ID = s.nextBookingID
	booking.Status = model.BookingStatusConfirmed
	booking.CreatedAt = s.now()
	s.bookings[booking.ID] = cloneBooking(booking)
	s.confirmed[key] = booking.ID
	return nil
}

func (b *BookingStore) GetByID(ctx context.Context, id int64) (*model.Booking, error) {
	s := b.s
	s.mu.RLock()
	defer s.mu.RUnlock()
	booking, ok := s.bookings[id]
	if !ok {
		return nil, nil
	}
	return cloneBooking(booking), nil
}

func (b *BookingStore) HasConfirmed(ctx context.Context, tutorID, ruleID int64, date time.Time) (bool, error) {
	s := b.s
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, taken := s.confirmed[keyFor(tutorID, ruleID, date)]
	return taken, nil
}

func (b *BookingStore) Cancel(ctx context.Context, id, cancelledBy int64, at time.Time) (*model.Booking, error) {
	s := b.s
	s.mu.Lock()
	defer s.mu.Unlock()

	booking, ok := s.bookings[id]
	if !ok {
		return nil, nil
	}
	if booking.Status != model.BookingStatusConfirmed {
		return nil, &model.InvalidStateError{Resource: "booking", ID: id, State: string(booking.Status)}
	}

	booking.Status = model.BookingStatusCancelled
	booking.CancelledAt = &at
	booking.CancelledBy = &cancelledBy
	delete(s.confirmed, keyFor(booking.TutorID, booking.RuleID, booking.SlotDate))
	return cloneBooking(booking), nil
}

func (b *BookingStore) ListByTutor(ctx context.Context, tutorID int64, from, to time.Time, includeCancelled bool) ([]*model.Booking, error) {
	return b.list(func(bk *model.Booking) bool { return bk.TutorID == tutorID }, from, to, includeCancelled)
}

func (b *BookingStore) ListByStudent(ctx context.Context, studentID int64, from, to time.Time, includeCancelled bool) ([]*model.Booking, error) {
	return b.list(func(bk *model.Booking) bool { return bk.StudentID == studentID }, from, to, includeCancelled)
}

func (b *BookingStore) list(match func(*model.Booking) bool, from, to time.Time, includeCancelled bool) ([]*model.Booking, error) {
	s := b.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	fromDate := timeutil.DateOnly(from)
	toDate := timeutil.DateOnly(to)
	var bookings []*model.Booking
	for _, booking := range s.bookings {
		if !match(booking) {
			continue
		}
		if booking.SlotDate.Before(fromDate) || booking.SlotDate.After(toDate) {
			continue
		}
		if !includeCancelled && booking.Status == model.BookingStatusCancelled {
			continue
		}
		bookings = append(bookings, cloneBooking(booking))
	}
	sort.Slice(bookings, func(i, j int) bool {
		if !bookings[i].SlotDate.Equal(bookings[j].SlotDate) {
			return bookings[i].SlotDate.Before(bookings[j].SlotDate)
		}
		return bookings[i].RuleID < bookings[j].RuleID
	})
	return bookings, nil
}
