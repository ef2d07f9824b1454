package directory

import (
	"context"
	"fmt"
	"sync"
)

// Memory is an in-process Directory. Group membership keeps insertion order.
type Memory struct {
	mu      sync.RWMutex
	users   map[string]User
	members map[string][]string // group -> usernames
	groups  map[string][]string // username -> groups
}

// NewMemory creates an empty in-memory directory
func NewMemory() *Memory {
	return &Memory{
		users:   make(map[string]User),
		members: make(map[string][]string),
		groups:  make(map[string][]string),
	}
}

// AddUser stores a user and appends it to the given groups
func (m *Memory) AddUser(username string, attributes map[string]string, groups ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	attrs := make(map[string]string, len(attributes))
	for k, v := range attributes {
		attrs[k] = v
	}
	m.users[username] = User{Username: username, Attributes: attrs}

	for _, g := range groups {
		if contains(m.groups[username], g) {
			continue
		}
		m.groups[username] = append(m.groups[username], g)
		m.members[g] = append(m.members[g], username)
	}
}

// GetUser returns a copy of the stored user
func (m *Memory) GetUser(_ context.Context, username string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[username]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, username)
	}
	return copyUser(u), nil
}

// ListGroupsForUser returns the user's groups
func (m *Memory) ListGroupsForUser(_ context.Context, username string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.users[username]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, username)
	}
	return append([]string{}, m.groups[username]...), nil
}

// ListUsersInGroup returns the group's members. An unknown group has no members.
func (m *Memory) ListUsersInGroup(_ context.Context, group string) ([]User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := make([]User, 0, len(m.members[group]))
	for _, username := range m.members[group] {
		users = append(users, *copyUser(m.users[username]))
	}
	return users, nil
}

func copyUser(u User) *User {
	attrs := make(map[string]string, len(u.Attributes))
	for k, v := range u.Attributes {
		attrs[k] = v
	}
	return &User{Username: u.Username, Attributes: attrs}
}

func contains(items []string, item string) bool {
	for _, s := range items {
		if s == item {
			return true
		}
	}
	return false
}
