package memory

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/lessonlab/tutor_scheduler/internal/model"
)

var (
	base   = time.Date(2025, time.March, 3, 12, 0, 0, 0, time.UTC) // Monday noon
	monday = time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
)

func newTestStore() *Store {
	return NewStore().WithClock(func() time.Time { return base })
}

func mondayRule(tutorID int64, startMin, endMin int) *model.AvailabilityRule {
	return &model.AvailabilityRule{
		TutorID:  tutorID,
		Weekday:  1,
		StartMin: startMin,
		EndMin:   endMin,
		Enabled:  true,
	}
}

func TestRuleCreateOverlap(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	rules := store.Rules()

	first := mondayRule(1, 540, 600)
	require.NoError(t, rules.Create(ctx, first))
	require.NotZero(t, first.ID)

	t.Run("overlapping window rejected", func(t *testing.T) {
		err := rules.Create(ctx, mondayRule(1, 570, 630))
		var conflict *model.ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, first.ID, conflict.ConflictingID)
	})

	t.Run("back-to-back window accepted", func(t *testing.T) {
		require.NoError(t, rules.Create(ctx, mondayRule(1, 600, 660)))
	})

	t.Run("same window other weekday accepted", func(t *testing.T) {
		rule := mondayRule(1, 540, 600)
		rule.Weekday = 2
		require.NoError(t, rules.Create(ctx, rule))
	})

	t.Run("same window other tutor accepted", func(t *testing.T) {
		require.NoError(t, rules.Create(ctx, mondayRule(2, 540, 600)))
	})

	t.Run("disabled rules do not conflict", func(t *testing.T) {
		blocked := mondayRule(3, 540, 600)
		require.NoError(t, rules.Create(ctx, blocked))
		_, err := rules.SetEnabled(ctx, blocked.ID, false)
		require.NoError(t, err)
		require.NoError(t, rules.Create(ctx, mondayRule(3, 540, 600)))
	})
}

func TestRuleListOrdering(t *testing.T) {
	ctx := context.Background()
	rules := newTestStore().Rules()

	tuesday := mondayRule(1, 540, 600)
	tuesday.Weekday = 2
	require.NoError(t, rules.Create(ctx, tuesday))
	require.NoError(t, rules.Create(ctx, mondayRule(1, 840, 900)))
	require.NoError(t, rules.Create(ctx, mondayRule(1, 540, 600)))

	listed, err := rules.ListByTutor(ctx, 1)
	require.NoError(t, err)
	require.Len(t, listed, 3)
	assert.Equal(t, []int{1, 1, 2}, []int{listed[0].Weekday, listed[1].Weekday, listed[2].Weekday})
	assert.Less(t, listed[0].StartMin, listed[1].StartMin)
}

func TestBookingExclusivity(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	bookings := store.Bookings()

	first := &model.Booking{TutorID: 1, StudentID: 10, RuleID: 5, SlotDate: monday}
	require.NoError(t, bookings.Create(ctx, first))
	assert.Equal(t, model.BookingStatusConfirmed, first.Status)

	second := &model.Booking{TutorID: 1, StudentID: 11, RuleID: 5, SlotDate: monday}
	err := bookings.Create(ctx, second)
	var conflict *model.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, first.ID, conflict.ConflictingID)

	// Same rule, different date is free.
	require.NoError(t, bookings.Create(ctx, &model.Booking{
		TutorID: 1, StudentID: 11, RuleID: 5, SlotDate: monday.AddDate(0, 0, 7),
	}))
}

func TestBookingCancelFreesSlot(t *testing.T) {
	ctx := context.Background()
	bookings := newTestStore().Bookings()

	booking := &model.Booking{TutorID: 1, StudentID: 10, RuleID: 5, SlotDate: monday}
	require.NoError(t, bookings.Create(ctx, booking))

	cancelled, err := bookings.Cancel(ctx, booking.ID, 10, base)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)
	require.NotNil(t, cancelled.CancelledBy)
	assert.Equal(t, int64(10), *cancelled.CancelledBy)

	// Cancelling again is an invalid state, not a no-op.
	_, err = bookings.Cancel(ctx, booking.ID, 10, base)
	var stateErr *model.InvalidStateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, "cancelled", stateErr.State)

	// The slot is free for rebooking.
	require.NoError(t, bookings.Create(ctx, &model.Booking{
		TutorID: 1, StudentID: 11, RuleID: 5, SlotDate: monday,
	}))
}

func TestCancelUnknownBooking(t *testing.T) {
	bookings := newTestStore().Bookings()
	booking, err := bookings.Cancel(context.Background(), 999, 1, base)
	require.NoError(t, err)
	assert.Nil(t, booking)
}

func TestConcurrentBookingSingleWinner(t *testing.T) {
	ctx := context.Background()
	bookings := newTestStore().Bookings()

	const attempts = 32
	var winners atomic.Int64
	var conflicts atomic.Int64

	var group errgroup.Group
	for i := 0; i < attempts; i++ {
		studentID := int64(100 + i)
		group.Go(func() error {
			err := bookings.Create(ctx, &model.Booking{
				TutorID: 1, StudentID: studentID, RuleID: 5, SlotDate: monday,
			})
			if err == nil {
				winners.Add(1)
				return nil
			}
			var conflict *model.ConflictError
			if !assert.ErrorAs(t, err, &conflict) {
				return err
			}
			conflicts.Add(1)
			return nil
		})
	}
	require.NoError(t, group.Wait())

	assert.Equal(t, int64(1), winners.Load())
	assert.Equal(t, int64(attempts-1), conflicts.Load())
}

func TestDeleteCascade(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	rules := store.Rules()
	bookings := store.Bookings()

	rule := mondayRule(1, 540, 600)
	require.NoError(t, rules.Create(ctx, rule))

	past := &model.Booking{TutorID: 1, StudentID: 10, RuleID: rule.ID, SlotDate: monday.AddDate(0, 0, -14)}
	future := &model.Booking{TutorID: 1, StudentID: 11, RuleID: rule.ID, SlotDate: monday}
	require.NoError(t, bookings.Create(ctx, past))
	require.NoError(t, bookings.Create(ctx, future))

	cancelled, err := rules.DeleteCascade(ctx, rule.ID, base, rule.TutorID)
	require.NoError(t, err)
	require.Len(t, cancelled, 1, "only the future booking is cancelled")
	assert.Equal(t, future.ID, cancelled[0].ID)
	assert.Equal(t, model.BookingStatusCancelled, cancelled[0].Status)

	gone, err := rules.GetByID(ctx, rule.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	// The past booking keeps its confirmed status for the record.
	kept, err := bookings.GetByID(ctx, past.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusConfirmed, kept.Status)
}

func TestDeleteCascadeUnknownRule(t *testing.T) {
	rules := newTestStore().Rules()
	_, err := rules.DeleteCascade(context.Background(), 42, base, 1)
	var notFound *model.NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestListBookingsFiltering(t *testing.T) {
	ctx := context.Background()
	bookings := newTestStore().Bookings()

	confirmed := &model.Booking{TutorID: 1, StudentID: 10, RuleID: 5, SlotDate: monday}
	toCancel := &model.Booking{TutorID: 1, StudentID: 10, RuleID: 6, SlotDate: monday}
	require.NoError(t, bookings.Create(ctx, confirmed))
	require.NoError(t, bookings.Create(ctx, toCancel))
	_, err := bookings.Cancel(ctx, toCancel.ID, 1, base)
	require.NoError(t, err)

	from := monday.AddDate(0, 0, -7)
	to := monday.AddDate(0, 0, 7)

	active, err := bookings.ListByTutor(ctx, 1, from, to, false)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, confirmed.ID, active[0].ID)

	all, err := bookings.ListByTutor(ctx, 1, from, to, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	byStudent, err := bookings.ListByStudent(ctx, 10, from, to, false)
	require.NoError(t, err)
	assert.Len(t, byStudent, 1)
}
