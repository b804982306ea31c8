package types

import (
	"time"

	"github.com/DoyleJ11/housie-backend/internal/catalog"
	"github.com/DoyleJ11/housie-backend/internal/claim"
	"github.com/DoyleJ11/housie-backend/internal/engine"
	"github.com/DoyleJ11/housie-backend/internal/ticket"
)

// Realtime event names.
const (
	MsgState         = "state"
	MsgError         = "error"
	MsgPlayerJoined  = "player-joined"
	MsgGameStarted   = "game-started"
	MsgCodeCalled    = "code-called"
	MsgClaimReceived = "claim-received"
	MsgClaimRejected = "claim-rejected"
	MsgGameClosed    = "game-closed"
	MsgPlayerRemoved = "player-removed"
	MsgTicketIssued  = "ticket-issued"
	MsgMarksUpdated  = "marks-updated"
)

type ClientMessage struct {
	Type        string   `json:"type"` // "start" | "call" | "close" | "ticket" | "toggle-mark" | "set-marks" | "claim"
	Symbol      string   `json:"symbol,omitempty"`
	MarkedItems []string `json:"markedItems,omitempty"`
	ClaimType   string   `json:"claimType,omitempty"`
}

type ServerMessage struct {
	Type      string      `json:"type"`
	Version   int         `json:"version,omitempty"`
	Item      string      `json:"item,omitempty"`
	Meaning   string      `json:"meaning,omitempty"`
	Player    string      `json:"player,omitempty"`
	ClaimType string      `json:"claimType,omitempty"`
	Message   string      `json:"message,omitempty"`
	Room      *RoomView   `json:"room,omitempty"`
	Ticket    *TicketView `json:"ticket,omitempty"`
	Error     string      `json:"error,omitempty"`
	At        *time.Time  `json:"at,omitempty"`
}

// EventMessage renders a committed room event for the realtime channel.
func EventMessage(version int, e engine.Event) ServerMessage {
	at := e.At
	m := ServerMessage{
		Version:   version,
		Player:    e.Player,
		ClaimType: string(e.ClaimType),
		Message:   e.Message,
		At:        &at,
	}
	switch e.Type {
	case engine.EvtPlayerJoined:
		m.Type = MsgPlayerJoined
	case engine.EvtGameStarted:
		m.Type = MsgGameStarted
	case engine.EvtCodeCalled:
		m.Type = MsgCodeCalled
		m.Item = string(e.Code)
		m.Meaning = e.Meaning
	case engine.EvtClaimAccepted:
		m.Type = MsgClaimReceived
	case engine.EvtClaimRejected:
		m.Type = MsgClaimRejected
	case engine.EvtGameClosed:
		m.Type = MsgGameClosed
	case engine.EvtPlayerRemoved:
		m.Type = MsgPlayerRemoved
	case engine.EvtTicketIssued:
		m.Type = MsgTicketIssued
	case engine.EvtMarksUpdated:
		m.Type = MsgMarksUpdated
	}
	return m
}

// RoomView is what anyone in a room may see. Password hashes and tickets stay
// out of it.
type RoomView struct {
	Code            string             `json:"code"`
	Host            string             `json:"host"`
	Status          engine.Phase       `json:"status"`
	CalledCodes     []string           `json:"calledCodes"`
	Remaining       int                `json:"remaining"`
	Players         []string           `json:"players"`
	Leaderboard     []LeaderboardEntry `json:"leaderboard"`
	ClaimTypes      []claim.Type       `json:"claimTypes"`
	MultipleWinners bool               `json:"multipleWinners"`
	HasPassword     bool               `json:"hasPassword"`
	CreatedAt       time.Time          `json:"createdAt"`
}

func NewRoomView(s engine.State) RoomView {
	claimTypes := s.Rules.ClaimTypes
	if len(claimTypes) == 0 {
		claimTypes = claim.DefaultTypes
	}
	players := s.Players
	if players == nil {
		players = []string{}
	}
	return RoomView{
		Code:            s.Code,
		Host:            s.Host,
		Status:          s.Phase,
		CalledCodes:     Codes(s.Called),
		Remaining:       len(s.Pool),
		Players:         players,
		Leaderboard:     NewLeaderboard(s.Leaderboard),
		ClaimTypes:      claimTypes,
		MultipleWinners: s.Rules.MultipleWinners,
		HasPassword:     len(s.PasswordHash) > 0,
		CreatedAt:       s.CreatedAt,
	}
}

type LeaderboardEntry struct {
	Rank      int        `json:"rank"`
	Username  string     `json:"username"`
	ClaimType claim.Type `json:"claimType"`
	ClaimedAt time.Time  `json:"claimedAt"`
}

func NewLeaderboard(entries []engine.LeaderboardEntry) []LeaderboardEntry {
	out := make([]LeaderboardEntry, len(entries))
	for i, e := range entries {
		out[i] = LeaderboardEntry{Rank: e.Rank, Username: e.Player, ClaimType: e.ClaimType, ClaimedAt: e.ClaimedAt}
	}
	return out
}

type TicketView struct {
	ID           string     `json:"_id"`
	Code         string     `json:"code"`
	Username     string     `json:"username"`
	TicketString string     `json:"ticketString"`
	Grid         [][]string `json:"grid"`
	MarkedItems  []string   `json:"markedItems"`
	CreatedAt    time.Time  `json:"createdAt"`
}

func NewTicketView(t ticket.Ticket) TicketView {
	grid := make([][]string, ticket.Rows)
	for r := range t.Grid {
		grid[r] = Codes(t.Grid[r][:])
	}
	return TicketView{
		ID:           t.ID,
		Code:         t.Room,
		Username:     t.Player,
		TicketString: t.Grid.Encode(),
		Grid:         grid,
		MarkedItems:  Codes(t.Marked),
		CreatedAt:    t.CreatedAt,
	}
}

func Codes(in []catalog.Code) []string {
	out := make([]string, len(in))
	for i, c := range in {
		out[i] = string(c)
	}
	return out
}

func ToCodes(in []string) []catalog.Code {
	out := make([]catalog.Code, len(in))
	for i, s := range in {
		out[i] = catalog.Code(s)
	}
	return out
}
