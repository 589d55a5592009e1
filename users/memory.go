package users

import (
	"context"
	"errors"
	"sync"
)

var _ Adapter = (*MemoryAdapter)(nil)

// MemoryAdapter keeps users in process memory.
type MemoryAdapter struct {
	users map[string]*User
	lock  sync.RWMutex
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{
		users: make(map[string]*User),
	}
}

func (m *MemoryAdapter) GetUser(_ context.Context, id string) (*User, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	return u.Clone(), nil
}

func (m *MemoryAdapter) SetUser(_ context.Context, user *User) error {
	if user == nil || user.ID == "" {
		return errors.New("[MemoryAdapter.SetUser] user id is required")
	}
	m.lock.Lock()
	defer m.lock.Unlock()

	m.users[user.ID] = user.Clone()
	return nil
}

func (m *MemoryAdapter) DeleteUser(_ context.Context, id string) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	delete(m.users, id)
	return nil
}
