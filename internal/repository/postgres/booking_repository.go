package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/lessonlab/tutor_scheduler/internal/model"
)

const bookingColumns = "id, tutor_id, student_id, rule_id, slot_date, status, created_at, cancelled_at, cancelled_by"

// BookingRepository stores bookings in PostgreSQL. Mutual exclusion on a slot
// is enforced by the partial unique index on (tutor_id, rule_id, slot_date)
// over confirmed rows, so the insert itself is the existence check.
type BookingRepository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewBookingRepository(pool *pgxpool.Pool, logger *zap.Logger) *BookingRepository {
	return &BookingRepository{pool: pool, logger: logger}
}

func scanBooking(row pgx.Row) (*model.Booking, error) {
	booking := &model.Booking{}
	err := row.Scan(
		&booking.ID,
		&booking.TutorID,
		&booking.StudentID,
		&booking.RuleID,
		&booking.SlotDate,
		&booking.Status,
		&booking.CreatedAt,
		&booking.CancelledAt,
		&booking.CancelledBy,
	)
	if err != nil {
		return nil, err
	}
	return booking, nil
}

// Create inserts a confirmed booking. A unique-index violation means another
// confirmed booking already holds the (tutor, rule, date) key and is reported
// as a conflict, with the holder's id when it can still be read.
func (r *BookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO bookings (tutor_id, student_id, rule_id, slot_date, status)
		VALUES ($1, $2, $3, $4, 'confirmed')
		RETURNING id, created_at
	`, booking.TutorID, booking.StudentID, booking.RuleID, booking.SlotDate).
		Scan(&booking.ID, &booking.CreatedAt)

	if IsUniqueViolation(err) {
		conflict := &model.ConflictError{Resource: "booking", Reason: "slot is already booked"}
		var holderID int64
		lookupErr := r.pool.QueryRow(ctx, `
			SELECT id FROM bookings
			WHERE tutor_id = $1 AND rule_id = $2 AND slot_date = $3 AND status = 'confirmed'
		`, booking.TutorID, booking.RuleID, booking.SlotDate).Scan(&holderID)
		if lookupErr == nil {
			conflict.ConflictingID = holderID
		}
		return conflict
	}
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}

	booking.Status = model.BookingStatusConfirmed
	return nil
}

// GetByID returns the booking or (nil, nil) when it does not exist.
func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*model.Booking, error) {
	booking, err := scanBooking(r.pool.QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get booking by id: %w", err)
	}
	return booking, nil
}

// HasConfirmed reports whether a confirmed booking holds the key.
func (r *BookingRepository) HasConfirmed(ctx context.Context, tutorID, ruleID int64, date time.Time) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM bookings
			WHERE tutor_id = $1 AND rule_id = $2 AND slot_date = $3 AND status = 'confirmed'
		)
	`, tutorID, ruleID, date).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check confirmed booking: %w", err)
	}
	return exists, nil
}

// Cancel transitions a confirmed booking to cancelled. The status predicate in
// the UPDATE makes the transition conditional; when zero rows match, the row's
// actual state decides between not-found and invalid-state.
func (r *BookingRepository) Cancel(ctx context.Context, id, cancelledBy int64, at time.Time) (*model.Booking, error) {
	booking, err := scanBooking(r.pool.QueryRow(ctx, `
		UPDATE bookings
		SET status = 'cancelled', cancelled_at = $2, cancelled_by = $3
		WHERE id = $1 AND status = 'confirmed'
		RETURNING `+bookingColumns+`
	`, id, at, cancelledBy))
	if err == pgx.ErrNoRows {
		var status string
		stateErr := r.pool.QueryRow(ctx, `SELECT status FROM bookings WHERE id = $1`, id).Scan(&status)
		if stateErr == pgx.ErrNoRows {
			return nil, nil
		}
		if stateErr != nil {
			return nil, fmt.Errorf("get booking status: %w", stateErr)
		}
		return nil, &model.InvalidStateError{Resource: "booking", ID: id, State: status}
	}
	if err != nil {
		return nil, fmt.Errorf("cancel booking: %w", err)
	}
	return booking, nil
}

// ListByTutor returns the tutor's bookings with slot dates inside [from, to],
// excluding cancelled ones unless asked for.
func (r *BookingRepository) ListByTutor(ctx context.Context, tutorID int64, from, to time.Time, includeCancelled bool) ([]*model.Booking, error) {
	return r.list(ctx, "tutor_id", tutorID, from, to, includeCancelled)
}

// ListByStudent is ListByTutor keyed on the student.
func (r *BookingRepository) ListByStudent(ctx context.Context, studentID int64, from, to time.Time, includeCancelled bool) ([]*model.Booking, error) {
	return r.list(ctx, "student_id", studentID, from, to, includeCancelled)
}

func (r *BookingRepository) list(ctx context.Context, column string, id int64, from, to time.Time, includeCancelled bool) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE ` + column + ` = $1 AND slot_date >= $2 AND slot_date <= $3
	`
	if !includeCancelled {
		query += ` AND status != 'cancelled'`
	}
	query += ` ORDER BY slot_date, rule_id`

	rows, err := r.pool.Query(ctx, query, id, from, to)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*model.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, booking)
	}
	return bookings, rows.Err()
}
