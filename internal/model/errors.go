package model

import "fmt"

// ValidationError means the input itself is malformed. It is always detected
// before any state is touched and is never worth an automatic retry.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ConflictError signals a legitimate concurrent-use conflict: an overlapping
// availability rule, or a second booking contending for the same slot.
// ConflictingID names the rule or booking already holding the resource when it
// is known (0 when the storage layer only reports the collision).
type ConflictError struct {
	Resource      string
	ConflictingID int64
	Reason        string
}

func (e *ConflictError) Error() string {
	if e.ConflictingID != 0 {
		return fmt.Sprintf("%s conflict with #%d: %s", e.Resource, e.ConflictingID, e.Reason)
	}
	return fmt.Sprintf("%s conflict: %s", e.Resource, e.Reason)
}

// NotFoundError is terminal for the call: the rule, booking or user does not
// exist, or the requested slot instance does not currently qualify as bookable.
type NotFoundError struct {
	Resource string
	ID       int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s #%d not found", e.Resource, e.ID)
}

// InvalidStateError signals a caller-side logic error distinct from NotFound,
// e.g. cancelling a booking that is already cancelled. Callers driving refunds
// or notifications need to tell "nothing happened" apart from "already handled".
type InvalidStateError struct {
	Resource string
	ID       int64
	State    string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s #%d is %s", e.Resource, e.ID, e.State)
}

// CascadeFailedError means a rule delete was aborted because one of its
// bookings could not be cancelled. The rule still exists; the tutor has to
// resolve the outstanding booking manually.
type CascadeFailedError struct {
	RuleID    int64
	BookingID int64
	Err       error
}

func (e *CascadeFailedError) Error() string {
	return fmt.Sprintf("delete rule #%d: cancel booking #%d: %v", e.RuleID, e.BookingID, e.Err)
}

func (e *CascadeFailedError) Unwrap() error {
	return e.Err
}
