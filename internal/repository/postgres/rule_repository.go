package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/lessonlab/tutor_scheduler/internal/model"
	"github.com/lessonlab/tutor_scheduler/internal/timeutil"
)

const ruleColumns = "id, tutor_id, weekday, start_min, end_min, recurrence_end, enabled, created_at, updated_at"

// RuleRepository stores availability rules in PostgreSQL.
type RuleRepository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewRuleRepository(pool *pgxpool.Pool, logger *zap.Logger) *RuleRepository {
	return &RuleRepository{pool: pool, logger: logger}
}

func scanRule(row pgx.Row) (*model.AvailabilityRule, error) {
	rule := &model.AvailabilityRule{}
	err := row.Scan(
		&rule.ID,
		&rule.TutorID,
		&rule.Weekday,
		&rule.StartMin,
		&rule.EndMin,
		&rule.RecurrenceEnd,
		&rule.Enabled,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return rule, nil
}

// Create inserts the rule after checking its window against every enabled rule
// of the same tutor on the same weekday. Check and insert run in one
// transaction under an advisory lock, so two concurrent creations for the same
// tutor/weekday cannot both pass the check against a stale snapshot.
func (r *RuleRepository) Create(ctx context.Context, rule *model.AvailabilityRule) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, ruleLockKey(rule.TutorID, rule.Weekday)); err != nil {
		return fmt.Errorf("acquire rule lock: %w", err)
	}

	rows, err := tx.Query(ctx, `
		SELECT id, start_min, end_min
		FROM availability_rules
		WHERE tutor_id = $1 AND weekday = $2 AND enabled = true
	`, rule.TutorID, rule.Weekday)
	if err != nil {
		return fmt.Errorf("load rules for overlap check: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var start, end int
		if err := rows.Scan(&id, &start, &end); err != nil {
			return fmt.Errorf("scan rule window: %w", err)
		}
		if timeutil.IntervalsOverlap(rule.StartMin, rule.EndMin, start, end) {
			return &model.ConflictError{
				Resource:      "availability_rule",
				ConflictingID: id,
				Reason: fmt.Sprintf("window %s-%s overlaps existing rule",
					timeutil.FormatClock(rule.StartMin), timeutil.FormatClock(rule.EndMin)),
			}
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate rules: %w", err)
	}
	rows.Close()

	err = tx.QueryRow(ctx, `
		INSERT INTO availability_rules (tutor_id, weekday, start_min, end_min, recurrence_end, enabled)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`, rule.TutorID, rule.Weekday, rule.StartMin, rule.EndMin, rule.RecurrenceEnd, rule.Enabled).
		Scan(&rule.ID, &rule.CreatedAt, &rule.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert availability rule: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetByID returns the rule or (nil, nil) when it does not exist.
func (r *RuleRepository) GetByID(ctx context.Context, id int64) (*model.AvailabilityRule, error) {
	rule, err := scanRule(r.pool.QueryRow(ctx,
		`SELECT `+ruleColumns+` FROM availability_rules WHERE id = $1`, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get rule by id: %w", err)
	}
	return rule, nil
}

// ListByTutor returns all rules of the tutor ordered by weekday then start.
func (r *RuleRepository) ListByTutor(ctx context.Context, tutorID int64) ([]*model.AvailabilityRule, error) {
	return r.list(ctx, `
		SELECT `+ruleColumns+`
		FROM availability_rules
		WHERE tutor_id = $1
		ORDER BY weekday, start_min
	`, tutorID)
}

// ListEnabledByTutor returns the enabled rules of the tutor ordered by weekday then start.
func (r *RuleRepository) ListEnabledByTutor(ctx context.Context, tutorID int64) ([]*model.AvailabilityRule, error) {
	return r.list(ctx, `
		SELECT `+ruleColumns+`
		FROM availability_rules
		WHERE tutor_id = $1 AND enabled = true
		ORDER BY weekday, start_min
	`, tutorID)
}

func (r *RuleRepository) list(ctx context.Context, query string, args ...any) ([]*model.AvailabilityRule, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list availability rules: %w", err)
	}
	defer rows.Close()

	var rules []*model.AvailabilityRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan availability rule: %w", err)
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// SetEnabled flips the enabled flag and returns the updated rule, or
// (nil, nil) when the rule does not exist.
func (r *RuleRepository) SetEnabled(ctx context.Context, id int64, enabled bool) (*model.AvailabilityRule, error) {
	rule, err := scanRule(r.pool.QueryRow(ctx, `
		UPDATE availability_rules
		SET enabled = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+ruleColumns+`
	`, id, enabled))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("set rule enabled: %w", err)
	}
	return rule, nil
}

// DeleteCascade cancels every confirmed booking of the rule dated on or after
// `from`, then deletes the rule, all in one transaction. Either everything
// happens or nothing does; a booking that cannot be cancelled keeps the rule
// alive.
func (r *RuleRepository) DeleteCascade(ctx context.Context, id int64, from time.Time, cancelledBy int64) ([]*model.Booking, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		UPDATE bookings
		SET status = 'cancelled', cancelled_at = now(), cancelled_by = $3
		WHERE rule_id = $1 AND status = 'confirmed' AND slot_date >= $2
		RETURNING `+bookingColumns+`
	`, id, from, cancelledBy)
	if err != nil {
		return nil, &model.CascadeFailedError{RuleID: id, Err: err}
	}
	var cancelled []*model.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			rows.Close()
			return nil, &model.CascadeFailedError{RuleID: id, Err: err}
		}
		cancelled = append(cancelled, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, &model.CascadeFailedError{RuleID: id, Err: err}
	}
	rows.Close()

	tag, err := tx.Exec(ctx, `DELETE FROM availability_rules WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("delete availability rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, &model.NotFoundError{Resource: "availability_rule", ID: id}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	r.logger.Info("Availability rule deleted",
		zap.Int64("rule_id", id),
		zap.Int("cancelled_bookings", len(cancelled)),
	)
	return cancelled, nil
}
