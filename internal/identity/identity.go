// Package identity is the narrow client for the external user service. The
// scheduling engine only needs to know that a tutor or student id refers to a
// real account; role enforcement happens upstream.
package identity

import "context"

type Role string

const (
	RoleTutor   Role = "tutor"
	RoleStudent Role = "student"
)

// User is the resolved account record.
type User struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"display_name"`
	Role        Role   `json:"role"`
}

// Resolver looks up an account by id. Unknown ids resolve to (nil, nil).
type Resolver interface {
	Resolve(ctx context.Context, id int64) (*User, error)
}
