// Package identity resolves opaque user ids against the external identity
// provider.
package identity

import (
	"context"
	"errors"
	"sync"

	"github.com/shinyyama/swap-backend/internal/model"
)

var ErrUserNotFound = errors.New("user not found")

type Directory interface {
	Exists(ctx context.Context, uid string) (bool, error)
	// PublicProfile returns ErrUserNotFound for unknown users.
	PublicProfile(ctx context.Context, uid string) (*model.PublicProfile, error)
}

// StaticDirectory is an in-memory Directory for local development and tests.
type StaticDirectory struct {
	mu    sync.RWMutex
	users map[string]model.PublicProfile
}

func NewStaticDirectory(profiles ...model.PublicProfile) *StaticDirectory {
	d := &StaticDirectory{users: make(map[string]model.PublicProfile, len(profiles))}
	for _, p := range profiles {
		d.users[p.UID] = p
	}
	return d
}

func (d *StaticDirectory) Put(p model.PublicProfile) {
	d.mu.Lock()
	d.users[p.UID] = p
	d.mu.Unlock()
}

func (d *StaticDirectory) Exists(_ context.Context, uid string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.users[uid]
	return ok, nil
}

func (d *StaticDirectory) PublicProfile(_ context.Context, uid string) (*model.PublicProfile, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.users[uid]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &p, nil
}

// OpenDirectory treats every non-empty id as an existing user with no
// profile data. It backs the header auth mode when no user list is seeded.
type OpenDirectory struct{}

func (OpenDirectory) Exists(_ context.Context, uid string) (bool, error) {
	return uid != "", nil
}

func (OpenDirectory) PublicProfile(_ context.Context, uid string) (*model.PublicProfile, error) {
	if uid == "" {
		return nil, ErrUserNotFound
	}
	return &model.PublicProfile{UID: uid, DisplayName: uid}, nil
}
