package store

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/DoyleJ11/housie-backend/internal/engine"
)

// Memory is an in-process store for tests and for running without a database.
type Memory struct {
	mu    sync.Mutex
	order []string
	rooms map[string]*Room
	users map[string]User
}

func NewMemory() *Memory {
	return &Memory{
		rooms: make(map[string]*Room),
		users: make(map[string]User),
	}
}

func (m *Memory) SaveRoom(_ context.Context, s engine.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rooms[s.Code]; ok {
		return fmt.Errorf("%w: %s", engine.ErrCodeConflict, s.Code)
	}
	m.rooms[s.Code] = &Room{Initial: s.Clone(), Events: []engine.Event{}}
	m.order = append(m.order, s.Code)
	return nil
}

func (m *Memory) AppendEvents(_ context.Context, room string, fromVersion int, events []engine.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rooms[room]
	if !ok {
		return fmt.Errorf("%w: room %s", engine.ErrNotFound, room)
	}
	for _, e := range events {
		e.Marks = slices.Clone(e.Marks)
		r.Events = append(r.Events, e)
	}
	r.Version = fromVersion + 1
	return nil
}

func (m *Memory) LoadRooms(context.Context) ([]Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Room, 0, len(m.order))
	for _, code := range m.order {
		r := m.rooms[code]
		out = append(out, Room{
			Initial: r.Initial.Clone(),
			Events:  slices.Clone(r.Events),
			Version: r.Version,
		})
	}
	return out, nil
}

func (m *Memory) SaveUser(_ context.Context, u User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[u.Username]; ok {
		return ErrUserExists
	}
	m.users[u.Username] = u
	return nil
}

func (m *Memory) FindUser(_ context.Context, username string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[username]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}
