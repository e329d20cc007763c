package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/ju-ns/management-microsservices/internal/user"
	"github.com/ju-ns/management-microsservices/pkg/models"
)

// UserStore is a map-backed user.Store. InTx serializes transactions and
// rolls the map back when fn fails.
type UserStore struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	rows map[string]models.User

	// CreateHook, when set, rewrites the row returned by Create.
	CreateHook func(models.User) models.User
}

// NewUserStore creates an empty UserStore.
func NewUserStore() *UserStore {
	return &UserStore{rows: make(map[string]models.User)}
}

func (s *UserStore) ExistsByEmail(_ context.Context, email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.rows {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (s *UserStore) ExistsByEmailExcept(_ context.Context, email, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.rows {
		if u.Email == email && u.ID != id {
			return true, nil
		}
	}
	return false, nil
}

func (s *UserStore) Create(_ context.Context, u models.User) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.rows {
		if existing.Email == u.Email {
			return models.User{}, user.ErrConflict
		}
	}
	s.rows[u.ID] = u
	if s.CreateHook != nil {
		return s.CreateHook(u), nil
	}
	return u, nil
}

func (s *UserStore) FindByID(_ context.Context, id string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.rows[id]
	if !ok {
		return models.User{}, errors.Wrapf(user.ErrNotFound, "id %s", id)
	}
	return u, nil
}

func (s *UserStore) List(_ context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]models.User, 0, len(s.rows))
	for _, u := range s.rows {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].ID < users[j].ID
		}
		return users[i].CreatedAt.After(users[j].CreatedAt)
	})
	return users, nil
}

func (s *UserStore) Update(_ context.Context, u models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[u.ID]; !ok {
		return errors.Wrapf(user.ErrNotFound, "id %s", u.ID)
	}
	for _, existing := range s.rows {
		if existing.Email == u.Email && existing.ID != u.ID {
			return user.ErrConflict
		}
	}
	s.rows[u.ID] = u
	return nil
}

func (s *UserStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return errors.Wrapf(user.ErrNotFound, "id %s", id)
	}
	delete(s.rows, id)
	return nil
}

func (s *UserStore) InTx(_ context.Context, fn func(user.Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snapshot := s.snapshot()
	if err := fn(s); err != nil {
		s.mu.Lock()
		s.rows = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// Count returns the number of stored users with email.
func (s *UserStore) Count(email string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, u := range s.rows {
		if u.Email == email {
			n++
		}
	}
	return n
}

// Len returns the number of stored users.
func (s *UserStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

func (s *UserStore) snapshot() map[string]models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp := make(map[string]models.User, len(s.rows))
	for k, v := range s.rows {
		cp[k] = v
	}
	return cp
}
