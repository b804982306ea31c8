package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/DoyleJ11/housie-backend/internal/catalog"
	"github.com/DoyleJ11/housie-backend/internal/claim"
	"github.com/DoyleJ11/housie-backend/internal/engine"
	"github.com/DoyleJ11/housie-backend/internal/ticket"
)

const listSep = ","

type roomRecord struct {
	Code            string `gorm:"primaryKey;size:16"`
	Host            string `gorm:"not null;index"`
	PasswordHash    []byte
	MultipleWinners bool   `gorm:"not null;default:false"`
	ClaimTypes      string `gorm:"not null"`
	CreatedAt       time.Time
}

func (roomRecord) TableName() string { return "rooms" }

type eventRecord struct {
	ID        uint   `gorm:"primaryKey"`
	RoomCode  string `gorm:"size:16;not null;index"`
	Version   int    `gorm:"not null"`
	Type      string `gorm:"size:32;not null"`
	Player    string
	Code      string `gorm:"size:8"`
	Meaning   string
	TicketID  string `gorm:"size:36"`
	Grid      string
	Marks     string
	ClaimType string `gorm:"size:32"`
	Message   string
	At        time.Time `gorm:"not null"`
}

func (eventRecord) TableName() string { return "room_events" }

type userRecord struct {
	Username     string `gorm:"primaryKey"`
	PasswordHash []byte `gorm:"not null"`
	CreatedAt    time.Time
}

func (userRecord) TableName() string { return "users" }

func toRoomRecord(s engine.State) roomRecord {
	types := make([]string, 0, len(s.Rules.ClaimTypes))
	for _, t := range s.Rules.ClaimTypes {
		types = append(types, string(t))
	}
	return roomRecord{
		Code:            s.Code,
		Host:            s.Host,
		PasswordHash:    s.PasswordHash,
		MultipleWinners: s.Rules.MultipleWinners,
		ClaimTypes:      strings.Join(types, listSep),
		CreatedAt:       s.CreatedAt,
	}
}

func (r roomRecord) initial(cat *catalog.Catalog) engine.State {
	rules := engine.Rules{MultipleWinners: r.MultipleWinners}
	for _, name := range splitList(r.ClaimTypes) {
		rules.ClaimTypes = append(rules.ClaimTypes, claim.Type(name))
	}
	return engine.NewState(cat, r.Code, r.Host, r.PasswordHash, rules, r.CreatedAt)
}

func toEventRecord(room string, version int, e engine.Event) eventRecord {
	rec := eventRecord{
		RoomCode:  room,
		Version:   version,
		Type:      string(e.Type),
		Player:    e.Player,
		Code:      string(e.Code),
		Meaning:   e.Meaning,
		TicketID:  e.TicketID,
		ClaimType: string(e.ClaimType),
		Message:   e.Message,
		At:        e.At,
	}
	if e.Type == engine.EvtTicketIssued {
		rec.Grid = e.Grid.Encode()
	}
	if e.Type == engine.EvtMarksUpdated {
		marks := make([]string, len(e.Marks))
		for i, m := range e.Marks {
			marks[i] = string(m)
		}
		rec.Marks = strings.Join(marks, listSep)
	}
	return rec
}

func (r eventRecord) event() (engine.Event, error) {
	e := engine.Event{
		Type:      engine.EventType(r.Type),
		Player:    r.Player,
		Code:      catalog.Code(r.Code),
		Meaning:   r.Meaning,
		TicketID:  r.TicketID,
		ClaimType: claim.Type(r.ClaimType),
		Message:   r.Message,
		At:        r.At,
	}
	if r.Grid != "" {
		g, err := ticket.Decode(r.Grid)
		if err != nil {
			return engine.Event{}, fmt.Errorf("event %d: %w", r.ID, err)
		}
		e.Grid = g
	}
	if e.Type == engine.EvtMarksUpdated {
		e.Marks = []catalog.Code{}
		for _, m := range splitList(r.Marks) {
			e.Marks = append(e.Marks, catalog.Code(m))
		}
	}
	return e, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, listSep)
}
