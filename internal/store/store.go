package store

import (
	"fmt"
	"time"

	"github.com/DoyleJ11/housie-backend/internal/engine"
)

var (
	ErrUserExists   = fmt.Errorf("%w: username taken", engine.ErrAlreadyExists)
	ErrUserNotFound = fmt.Errorf("%w: no such user", engine.ErrNotFound)
)

// Room is a persisted room: the state it was created with plus every event
// committed since, in order.
type Room struct {
	Initial engine.State
	Events  []engine.Event
	Version int // version after the last journaled command
}

// State replays the journal on top of the initial state.
func (r Room) State() engine.State {
	return engine.Reduce(r.Initial, r.Events)
}

type User struct {
	Username     string
	PasswordHash []byte
	CreatedAt    time.Time
}
