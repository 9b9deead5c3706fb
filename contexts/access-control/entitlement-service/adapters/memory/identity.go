package memory

import (
	"context"
	"sync"

	domainerrors "gatehouse/contexts/access-control/entitlement-service/domain/errors"
	"gatehouse/contexts/access-control/entitlement-service/ports"
)

// IdentityDirectory is a seeded in-memory identity provider for development
// and tests.
type IdentityDirectory struct {
	mu    sync.RWMutex
	users map[string]ports.User
}

func NewIdentityDirectory() *IdentityDirectory {
	return &IdentityDirectory{users: make(map[string]ports.User)}
}

// Put seeds or replaces a user entry.
func (d *IdentityDirectory) Put(user ports.User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[user.ID] = user
}

func (d *IdentityDirectory) ResolveUser(_ context.Context, userID string) (ports.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	user, ok := d.users[userID]
	if !ok {
		return ports.User{}, domainerrors.ErrUserNotFound
	}
	return user, nil
}

var _ ports.IdentityProvider = (*IdentityDirectory)(nil)
