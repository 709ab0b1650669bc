// Package notify dispatches scheduling events to the notification
// collaborator. Dispatch is fire-and-forget: the engine does not await
// delivery and does not retry, that is the collaborator's job.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event kinds emitted by the scheduling facade.
const (
	EventBookingConfirmed = "booking.confirmed"
	EventBookingCancelled = "booking.cancelled"
	EventRuleDeleted      = "rule.deleted"
)

// Event is the payload handed to the notification collaborator.
type Event struct {
	ID         uuid.UUID `json:"id"`
	Kind       string    `json:"kind"`
	OccurredAt time.Time `json:"occurred_at"`
	TutorID    int64     `json:"tutor_id"`
	StudentID  int64     `json:"student_id,omitempty"`
	RuleID     int64     `json:"rule_id,omitempty"`
	BookingID  int64     `json:"booking_id,omitempty"`
	SlotDate   string    `json:"slot_date,omitempty"` // YYYY-MM-DD
}

// NewEvent stamps a fresh event with id and time.
func NewEvent(kind string) Event {
	return Event{ID: uuid.New(), Kind: kind, OccurredAt: time.Now()}
}

// Notifier delivers events. Implementations must not block the caller beyond
// handing the event off.
type Notifier interface {
	Notify(ctx context.Context, event Event)
}

// LogNotifier writes events to the log. It is the default sink when no
// external channel is configured.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, event Event) {
	n.logger.Info("Notification event",
		zap.String("event_id", event.ID.String()),
		zap.String("kind", event.Kind),
		zap.Int64("tutor_id", event.TutorID),
		zap.Int64("student_id", event.StudentID),
		zap.Int64("rule_id", event.RuleID),
		zap.Int64("booking_id", event.BookingID),
		zap.String("slot_date", event.SlotDate),
	)
}
