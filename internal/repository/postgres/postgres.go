// Package postgres implements the repository contracts on a pgx connection
// pool. Booking exclusivity rests on a partial unique index over the confirmed
// (tutor_id, rule_id, slot_date) key; rule-overlap checks serialize on a
// per-tutor-per-weekday advisory transaction lock.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// uniqueViolation is the SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

// IsUniqueViolation reports whether err is a unique constraint failure.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// Connect opens a pool and verifies the connection.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// ruleLockKey derives the advisory lock key serializing rule creation for one
// tutor on one weekday. Rules on different weekdays never conflict, so they
// never contend.
func ruleLockKey(tutorID int64, weekday int) int64 {
	return tutorID*7 + int64(weekday)
}
