package engine

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/DoyleJ11/housie-backend/internal/catalog"
	"github.com/DoyleJ11/housie-backend/internal/claim"
	"github.com/DoyleJ11/housie-backend/internal/ticket"
	"golang.org/x/crypto/bcrypt"
)

// Error kinds. Every error returned by Apply wraps one of these.
var (
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrCodeConflict      = errors.New("room code already in use")
	ErrAlreadyExists     = errors.New("already exists")
	ErrPoolExhausted     = errors.New("no codes left to call")
	ErrNotFound          = errors.New("not found")
	ErrRoomClosed        = errors.New("room is closed")
	ErrInvalidInput      = errors.New("invalid input")
)

var (
	ErrNotHost            = fmt.Errorf("%w: only the host can do that", ErrForbidden)
	ErrWrongPassword      = fmt.Errorf("%w: wrong room password", ErrForbidden)
	ErrNotTicketOwner     = fmt.Errorf("%w: ticket belongs to another player", ErrForbidden)
	ErrNotStarted         = fmt.Errorf("%w: game has not started", ErrInvalidTransition)
	ErrAlreadyStarted     = fmt.Errorf("%w: game already started", ErrInvalidTransition)
	ErrGameOver           = fmt.Errorf("%w: %w", ErrInvalidTransition, ErrRoomClosed)
	ErrTicketExists       = fmt.Errorf("%w: ticket already generated", ErrAlreadyExists)
	ErrPlayerNotFound     = fmt.Errorf("%w: player is not in this room", ErrNotFound)
	ErrTicketNotFound     = fmt.Errorf("%w: no ticket for this player", ErrNotFound)
	ErrMissingName        = fmt.Errorf("%w: name is required", ErrInvalidInput)
	ErrUnsupportedCommand = fmt.Errorf("%w: unsupported command", ErrInvalidInput)
)

type Phase string

const (
	PhaseCreated Phase = "created"
	PhaseActive  Phase = "active"
	PhaseClosed  Phase = "closed"
)

// LeaderboardEntry is one accepted claim. Rank follows acceptance order.
type LeaderboardEntry struct {
	Rank      int        `json:"rank"`
	Player    string     `json:"player"`
	ClaimType claim.Type `json:"claim_type"`
	ClaimedAt time.Time  `json:"claimed_at"`
}

type State struct {
	Code         string
	Host         string
	PasswordHash []byte
	Phase        Phase
	Called       []catalog.Code
	Pool         []catalog.Code
	Players      []string
	Tickets      map[string]ticket.Ticket // keyed by player
	Leaderboard  []LeaderboardEntry
	Rules        Rules
	CreatedAt    time.Time
}

type CommandType string

const (
	CmdJoin           CommandType = "Join"
	CmdStart          CommandType = "Start"
	CmdCallNext       CommandType = "CallNext"
	CmdClose          CommandType = "Close"
	CmdRemovePlayer   CommandType = "RemovePlayer"
	CmdGenerateTicket CommandType = "GenerateTicket"
	CmdSetMarks       CommandType = "SetMarks"
	CmdToggleMark     CommandType = "ToggleMark"
	CmdClaim          CommandType = "Claim"
)

/*
	CmdJoin           -> EvtPlayerJoined (nothing when already joined)
	CmdStart          -> EvtGameStarted
	CmdCallNext       -> EvtCodeCalled
	CmdClose          -> EvtGameClosed (nothing when already closed)
	CmdRemovePlayer   -> EvtPlayerRemoved
	CmdGenerateTicket -> EvtTicketIssued
	CmdSetMarks       -> EvtMarksUpdated
	CmdToggleMark     -> EvtMarksUpdated
	CmdClaim          -> EvtClaimAccepted | EvtClaimRejected
*/

// Command is a request against one room. Actor is the verified identity
// making the request; Player is the subject when it differs (RemovePlayer).
type Command struct {
	Type      CommandType
	Actor     string
	Player    string
	Password  string
	TicketID  string
	Symbol    catalog.Code
	Marks     []catalog.Code
	ClaimType claim.Type
}

type EventType string

const (
	EvtPlayerJoined  EventType = "PlayerJoined"
	EvtGameStarted   EventType = "GameStarted"
	EvtCodeCalled    EventType = "CodeCalled"
	EvtGameClosed    EventType = "GameClosed"
	EvtPlayerRemoved EventType = "PlayerRemoved"
	EvtTicketIssued  EventType = "TicketIssued"
	EvtMarksUpdated  EventType = "MarksUpdated"
	EvtClaimAccepted EventType = "ClaimAccepted"
	EvtClaimRejected EventType = "ClaimRejected"
)

type Event struct {
	Type      EventType
	Player    string
	Code      catalog.Code
	Meaning   string
	TicketID  string
	Grid      ticket.Grid
	Marks     []catalog.Code
	ClaimType claim.Type
	Message   string
	At        time.Time
}

// Env carries everything Apply needs from the outside world.
type Env struct {
	Catalog *catalog.Catalog
	Rand    *rand.Rand
	Now     func() time.Time
}

func (e Env) now() time.Time {
	if e.Now == nil {
		return time.Now().UTC()
	}
	return e.Now()
}

// Apply validates cmd against s and returns the resulting events and state.
// On error s is returned untouched.
func Apply(s State, cmd Command, env Env) ([]Event, State, error) {
	events, err := decide(s, cmd, env)
	if err != nil {
		return nil, s, err
	}
	if len(events) == 0 {
		return nil, s, nil
	}

	newState := s.Clone()
	for _, e := range events {
		newState.evolve(e)
	}
	return events, newState, nil
}

func decide(s State, cmd Command, env Env) ([]Event, error) {
	actor := Normalize(cmd.Actor)
	at := env.now()

	switch cmd.Type {
	case CmdJoin:
		if actor == "" {
			return nil, ErrMissingName
		}
		if s.Phase == PhaseClosed {
			return nil, ErrRoomClosed
		}
		if s.HasPlayer(actor) {
			return nil, nil
		}
		if len(s.PasswordHash) > 0 {
			if bcrypt.CompareHashAndPassword(s.PasswordHash, []byte(Normalize(cmd.Password))) != nil {
				return nil, ErrWrongPassword
			}
		}
		return []Event{{Type: EvtPlayerJoined, Player: actor, At: at}}, nil

	case CmdStart:
		if actor != s.Host {
			return nil, ErrNotHost
		}
		switch s.Phase {
		case PhaseActive:
			return nil, ErrAlreadyStarted
		case PhaseClosed:
			return nil, ErrGameOver
		}
		return []Event{{Type: EvtGameStarted, At: at}}, nil

	case CmdCallNext:
		if actor != s.Host {
			return nil, ErrNotHost
		}
		switch s.Phase {
		case PhaseCreated:
			return nil, ErrNotStarted
		case PhaseClosed:
			return nil, ErrGameOver
		}
		if len(s.Pool) == 0 {
			return nil, ErrPoolExhausted
		}
		code := s.Pool[env.Rand.IntN(len(s.Pool))]
		meaning, _ := env.Catalog.Meaning(code)
		return []Event{{Type: EvtCodeCalled, Code: code, Meaning: meaning, At: at}}, nil

	case CmdClose:
		if actor != s.Host {
			return nil, ErrNotHost
		}
		if s.Phase == PhaseClosed {
			return nil, nil
		}
		return []Event{{Type: EvtGameClosed, At: at}}, nil

	case CmdRemovePlayer:
		if actor != s.Host {
			return nil, ErrNotHost
		}
		if s.Phase == PhaseClosed {
			return nil, ErrRoomClosed
		}
		player := Normalize(cmd.Player)
		if !s.HasPlayer(player) {
			return nil, ErrPlayerNotFound
		}
		return []Event{{Type: EvtPlayerRemoved, Player: player, At: at}}, nil

	case CmdGenerateTicket:
		if err := s.canAct(actor); err != nil {
			return nil, err
		}
		if _, ok := s.Tickets[actor]; ok {
			return nil, ErrTicketExists
		}
		id := cmd.TicketID
		if id == "" {
			id = ticket.NewID()
		}
		grid := ticket.Generate(env.Catalog, env.Rand)
		return []Event{{Type: EvtTicketIssued, Player: actor, TicketID: id, Grid: grid, At: at}}, nil

	case CmdSetMarks, CmdToggleMark:
		if err := s.canAct(actor); err != nil {
			return nil, err
		}
		t, ok := s.Tickets[actor]
		if cmd.TicketID != "" {
			t, ok = s.TicketByID(cmd.TicketID)
			if ok && t.Player != actor {
				return nil, ErrNotTicketOwner
			}
		}
		if !ok {
			return nil, ErrTicketNotFound
		}

		var marks []catalog.Code
		if cmd.Type == CmdSetMarks {
			marks = normalizeMarks(cmd.Marks, env.Catalog.Len())
		} else {
			symbol := catalog.Code(Normalize(string(cmd.Symbol)))
			if symbol == "" {
				return nil, fmt.Errorf("%w: symbol is required", ErrInvalidInput)
			}
			marks = slices.Clone(t.Marked)
			if i := slices.Index(marks, symbol); i >= 0 {
				marks = slices.Delete(marks, i, i+1)
			} else {
				marks = normalizeMarks(append(marks, symbol), env.Catalog.Len())
			}
		}
		return []Event{{Type: EvtMarksUpdated, Player: actor, TicketID: t.ID, Marks: marks, At: at}}, nil

	case CmdClaim:
		if actor == "" {
			return nil, ErrMissingName
		}
		switch s.Phase {
		case PhaseCreated:
			return nil, ErrNotStarted
		case PhaseClosed:
			return nil, ErrRoomClosed
		}
		if !s.HasPlayer(actor) {
			return nil, ErrPlayerNotFound
		}
		t, ok := s.Tickets[actor]
		if !ok {
			return nil, ErrTicketNotFound
		}

		verdict := s.judge(actor, t, cmd.ClaimType)
		evt := Event{Player: actor, TicketID: t.ID, ClaimType: cmd.ClaimType, Message: verdict.Message, At: at}
		if verdict.Accepted {
			evt.Type = EvtClaimAccepted
		} else {
			evt.Type = EvtClaimRejected
		}
		return []Event{evt}, nil

	default:
		return nil, ErrUnsupportedCommand
	}
}

// judge applies the room's claim policy before checking the ticket itself.
func (s State) judge(player string, t ticket.Ticket, typ claim.Type) claim.Verdict {
	if !s.Rules.Offers(typ) {
		return claim.Verdict{Message: fmt.Sprintf("%q is not a claim in this room", typ)}
	}
	for _, e := range s.Leaderboard {
		if e.ClaimType != typ {
			continue
		}
		if e.Player == player {
			return claim.Verdict{Message: fmt.Sprintf("you already claimed %s", typ)}
		}
		if !s.Rules.MultipleWinners {
			return claim.Verdict{Message: fmt.Sprintf("%s was already won by %s", typ, e.Player)}
		}
	}
	return claim.Verify(t.Grid, t.Marked, s.Called, typ)
}

func (s State) canAct(player string) error {
	if player == "" {
		return ErrMissingName
	}
	if s.Phase == PhaseClosed {
		return ErrRoomClosed
	}
	if !s.HasPlayer(player) {
		return ErrPlayerNotFound
	}
	return nil
}

// evolve folds one event into s. It never fails: events are facts.
func (s *State) evolve(e Event) {
	switch e.Type {
	case EvtPlayerJoined:
		if !slices.Contains(s.Players, e.Player) {
			s.Players = append(s.Players, e.Player)
		}
	case EvtGameStarted:
		s.Phase = PhaseActive
	case EvtCodeCalled:
		if i := slices.Index(s.Pool, e.Code); i >= 0 {
			s.Pool = slices.Delete(s.Pool, i, i+1)
			s.Called = append(s.Called, e.Code)
		}
	case EvtGameClosed:
		s.Phase = PhaseClosed
	case EvtPlayerRemoved:
		if i := slices.Index(s.Players, e.Player); i >= 0 {
			s.Players = slices.Delete(s.Players, i, i+1)
		}
	case EvtTicketIssued:
		s.Tickets[e.Player] = ticket.Ticket{
			ID:        e.TicketID,
			Room:      s.Code,
			Player:    e.Player,
			Grid:      e.Grid,
			Marked:    []catalog.Code{},
			CreatedAt: e.At,
		}
	case EvtMarksUpdated:
		if t, ok := s.Tickets[e.Player]; ok {
			t.Marked = slices.Clone(e.Marks)
			s.Tickets[e.Player] = t
		}
	case EvtClaimAccepted:
		s.Leaderboard = append(s.Leaderboard, LeaderboardEntry{
			Rank:      len(s.Leaderboard) + 1,
			Player:    e.Player,
			ClaimType: e.ClaimType,
			ClaimedAt: e.At,
		})
	case EvtClaimRejected:
		// audit only
	}
}

// Reduce rebuilds a room by replaying its events on top of initial.
func Reduce(initial State, events []Event) State {
	s := initial.Clone()
	for _, e := range events {
		s.evolve(e)
	}
	return s
}

func (s State) HasPlayer(player string) bool {
	return player != "" && slices.Contains(s.Players, player)
}

// TicketByID finds a ticket by id regardless of owner.
func (s State) TicketByID(id string) (ticket.Ticket, bool) {
	for _, t := range s.Tickets {
		if t.ID == id {
			return t, true
		}
	}
	return ticket.Ticket{}, false
}
