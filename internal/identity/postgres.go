package identity

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresResolver reads the users table owned by the identity service. The
// scheduling engine never writes it.
type PostgresResolver struct {
	pool *pgxpool.Pool
}

func NewPostgresResolver(pool *pgxpool.Pool) *PostgresResolver {
	return &PostgresResolver{pool: pool}
}

func (r *PostgresResolver) Resolve(ctx context.Context, id int64) (*User, error) {
	user := &User{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, display_name, role FROM users WHERE id = $1`, id).
		Scan(&user.ID, &user.DisplayName, &user.Role)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve user: %w", err)
	}
	return user, nil
}
