// Package memory is an in-process contentauth.UserStore for development
// servers, load tests and examples.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrEthical07/contentauth"
)

// Store keeps accounts in a map keyed by username.
type Store struct {
	mu    sync.RWMutex
	users map[string]*contentauth.User
	now   func() time.Time
}

var _ contentauth.UserStore = (*Store)(nil)

func New() *Store {
	return &Store{
		users: make(map[string]*contentauth.User),
		now:   time.Now,
	}
}

// Create adds u. Usernames are unique.
func (s *Store) Create(_ context.Context, u *contentauth.User) error {
	if u == nil || u.Username == "" {
		return fmt.Errorf("memory: username is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[u.Username]; exists {
		return fmt.Errorf("memory: username %q already exists", u.Username)
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := s.now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now

	cp := *u
	s.users[u.Username] = &cp
	return nil
}

// GetByUsername returns a copy of the stored account.
func (s *Store) GetByUsername(_ context.Context, username string) (*contentauth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[username]
	if !ok {
		return nil, fmt.Errorf("%w: %s", contentauth.ErrUserNotFound, username)
	}
	cp := *u
	return &cp, nil
}

func (s *Store) UpdatePasswordHash(_ context.Context, userID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.ID == userID && !u.IsDeleted {
			u.PasswordHash = passwordHash
			u.UpdatedAt = s.now().UTC()
			return nil
		}
	}
	return fmt.Errorf("%w: id %s", contentauth.ErrUserNotFound, userID)
}

// SoftDelete flags the account as deleted without removing it.
func (s *Store) SoftDelete(_ context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[username]
	if !ok {
		return fmt.Errorf("%w: %s", contentauth.ErrUserNotFound, username)
	}
	u.IsDeleted = true
	u.UpdatedAt = s.now().UTC()
	return nil
}
