package identity

import (
	"context"
	"sync"
)

// StaticResolver serves a fixed set of accounts. Tests and the in-memory dev
// mode use it in place of the user service.
type StaticResolver struct {
	mu    sync.RWMutex
	users map[int64]User
}

func NewStaticResolver(users ...User) *StaticResolver {
	r := &StaticResolver{users: make(map[int64]User, len(users))}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

// Add registers another account.
func (r *StaticResolver) Add(user User) {
	r.mu.Lock()
	r.users[user.ID] = user
	r.mu.Unlock()
}

func (r *StaticResolver) Resolve(ctx context.Context, id int64) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return &user, nil
}
