package claim

import (
	"fmt"
	"slices"
	"strings"

	"github.com/DoyleJ11/housie-backend/internal/catalog"
	"github.com/DoyleJ11/housie-backend/internal/ticket"
)

// Type names a winning pattern. Values are the names players see.
type Type string

const (
	FirstFive    Type = "First Five"
	FirstColumn  Type = "First Column"
	SecondColumn Type = "Second Column"
	ThirdColumn  Type = "Third Column"
	FullHouse    Type = "Full House"
)

// Pattern describes which cells a claim covers. AnyOf > 0 means "at least
// AnyOf distinct cells"; otherwise every filled cell in [FromCol, ToCol].
type Pattern struct {
	AnyOf   int
	FromCol int
	ToCol   int
}

var Patterns = map[Type]Pattern{
	FirstFive:    {AnyOf: 5, FromCol: 0, ToCol: catalog.Columns - 1},
	FirstColumn:  {FromCol: 0, ToCol: 2},
	SecondColumn: {FromCol: 3, ToCol: 5},
	ThirdColumn:  {FromCol: 6, ToCol: 8},
	FullHouse:    {FromCol: 0, ToCol: catalog.Columns - 1},
}

// DefaultTypes is the taxonomy offered to rooms unless configured otherwise.
var DefaultTypes = []Type{FirstFive, FirstColumn, SecondColumn, ThirdColumn, FullHouse}

// Parse accepts the display names as well as compact spellings such as
// "FirstFive" or "FULL_HOUSE".
func Parse(s string) (Type, bool) {
	key := compact(s)
	for t := range Patterns {
		if compact(string(t)) == key {
			return t, true
		}
	}
	return "", false
}

func compact(s string) string {
	s = strings.ToLower(s)
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(s)
}

type Verdict struct {
	Accepted bool   `json:"accepted"`
	Message  string `json:"message"`
}

// Verify checks a claim against the authoritative call history. A cell only
// counts when its symbol is both marked by the player and already called.
func Verify(g ticket.Grid, marked, called []catalog.Code, t Type) Verdict {
	p, ok := Patterns[t]
	if !ok {
		return reject("unknown claim type %q", t)
	}

	cells := g.SymbolsInColumns(p.FromCol, p.ToCol)
	if len(cells) == 0 {
		return reject("%s covers no cells on this ticket", t)
	}

	var good, unmarked, uncalled int
	for _, code := range cells {
		isMarked := slices.Contains(marked, code)
		isCalled := slices.Contains(called, code)
		switch {
		case isMarked && isCalled:
			good++
		case !isMarked:
			unmarked++
		default:
			uncalled++
		}
	}

	if p.AnyOf > 0 {
		if good >= p.AnyOf {
			return accept(t)
		}
		return reject("%s needs %d marked and called symbols, found %d", t, p.AnyOf, good)
	}

	switch {
	case uncalled > 0:
		return reject("%s rejected: %d marked symbol(s) were never called", t, uncalled)
	case unmarked > 0:
		return reject("%s rejected: %d symbol(s) still unmarked", t, unmarked)
	}
	return accept(t)
}

func accept(t Type) Verdict {
	return Verdict{Accepted: true, Message: fmt.Sprintf("%s verified!", t)}
}

func reject(format string, args ...any) Verdict {
	return Verdict{Message: fmt.Sprintf(format, args...)}
}
