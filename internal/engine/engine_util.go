package engine

import (
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/DoyleJ11/housie-backend/internal/catalog"
	"github.com/DoyleJ11/housie-backend/internal/ticket"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NewState returns a freshly created room: the whole catalog in the pool and
// nothing called yet.
func NewState(cat *catalog.Catalog, code, host string, passwordHash []byte, rules Rules, createdAt time.Time) State {
	return State{
		Code:         Normalize(code),
		Host:         Normalize(host),
		PasswordHash: passwordHash,
		Phase:        PhaseCreated,
		Called:       []catalog.Code{},
		Pool:         cat.Codes(),
		Players:      []string{},
		Tickets:      map[string]ticket.Ticket{},
		Leaderboard:  []LeaderboardEntry{},
		Rules:        rules,
		CreatedAt:    createdAt,
	}
}

// Normalize trims and uppercases identifiers so room codes, player names and
// symbol codes compare the same way the client sends them.
func Normalize(s string) string {
	// Casers are stateful, so one per call.
	return cases.Upper(language.Und).String(strings.TrimSpace(s))
}

func normalizeMarks(in []catalog.Code, limit int) []catalog.Code {
	out := make([]catalog.Code, 0, len(in))
	for _, m := range in {
		code := catalog.Code(Normalize(string(m)))
		if code == "" || slices.Contains(out, code) {
			continue
		}
		out = append(out, code)
		if len(out) == limit {
			break
		}
	}
	return out
}

// Clone deep-copies s so the copy can be handed to another goroutine.
func (s State) Clone() State {
	c := s
	c.PasswordHash = slices.Clone(s.PasswordHash)
	c.Called = slices.Clone(s.Called)
	c.Pool = slices.Clone(s.Pool)
	c.Players = slices.Clone(s.Players)
	c.Leaderboard = slices.Clone(s.Leaderboard)
	c.Rules.ClaimTypes = slices.Clone(s.Rules.ClaimTypes)
	c.Tickets = maps.Clone(s.Tickets)
	if c.Tickets == nil {
		c.Tickets = map[string]ticket.Ticket{}
	}
	for k, t := range c.Tickets {
		t.Marked = slices.Clone(t.Marked)
		c.Tickets[k] = t
	}
	return c
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}
