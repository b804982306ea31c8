package ticket

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"github.com/DoyleJ11/housie-backend/internal/catalog"
	"github.com/google/uuid"
)

const (
	Rows        = 3
	PerRow      = 5
	Filled      = Rows * PerRow
	RowSep      = `\`
	CellSep     = ","
	coverPerRow = catalog.Columns / Rows
)

var (
	ErrMalformed = errors.New("ticket: malformed encoding")
	ErrInvalid   = errors.New("ticket: invalid layout")
)

// Grid is a 3x9 ticket layout. Blank cells hold the empty code.
type Grid [Rows][catalog.Columns]catalog.Code

type Ticket struct {
	ID        string         `json:"id"`
	Room      string         `json:"room"`
	Player    string         `json:"player"`
	Grid      Grid           `json:"grid"`
	Marked    []catalog.Code `json:"marked"`
	CreatedAt time.Time      `json:"created_at"`
}

func NewID() string { return uuid.NewString() }

// Generate deals a fresh grid. Every row gets exactly five symbols and every
// column at least one; each column draws from its own catalog band so the
// same symbol can never appear twice on one ticket.
func Generate(cat *catalog.Catalog, rng *rand.Rand) Grid {
	var used [Rows][catalog.Columns]bool

	// Deal the nine columns three per row so none is left empty.
	perm := rng.Perm(catalog.Columns)
	for r := range Rows {
		for _, col := range perm[r*coverPerRow : (r+1)*coverPerRow] {
			used[r][col] = true
		}
	}

	// Top each row up to five with random columns it does not hold yet.
	for r := range Rows {
		free := make([]int, 0, catalog.Columns-coverPerRow)
		for col := range catalog.Columns {
			if !used[r][col] {
				free = append(free, col)
			}
		}
		rng.Shuffle(len(free), func(i, j int) { free[i], free[j] = free[j], free[i] })
		for _, col := range free[:PerRow-coverPerRow] {
			used[r][col] = true
		}
	}

	var g Grid
	for col := range catalog.Columns {
		var rows []int
		for r := range Rows {
			if used[r][col] {
				rows = append(rows, r)
			}
		}

		band := cat.Band(col)
		picks := rng.Perm(len(band))[:len(rows)]
		// Keep catalog order top to bottom within a column.
		slices.Sort(picks)
		for i, r := range rows {
			g[r][col] = band[picks[i]]
		}
	}
	return g
}

// Encode renders the grid row-major: rows separated by a backslash, cells by
// commas, blanks as empty strings.
func (g Grid) Encode() string {
	var b strings.Builder
	for r := range Rows {
		if r > 0 {
			b.WriteString(RowSep)
		}
		for col := range catalog.Columns {
			if col > 0 {
				b.WriteString(CellSep)
			}
			b.WriteString(string(g[r][col]))
		}
	}
	return b.String()
}

func Decode(s string) (Grid, error) {
	var g Grid
	rows := strings.Split(s, RowSep)
	if len(rows) != Rows {
		return g, fmt.Errorf("%w: want %d rows, got %d", ErrMalformed, Rows, len(rows))
	}
	for r, row := range rows {
		cells := strings.Split(row, CellSep)
		if len(cells) != catalog.Columns {
			return g, fmt.Errorf("%w: row %d has %d cells", ErrMalformed, r, len(cells))
		}
		for col, cell := range cells {
			g[r][col] = catalog.Code(strings.TrimSpace(cell))
		}
	}
	return g, nil
}

// Symbols lists the filled cells in row-major order.
func (g Grid) Symbols() []catalog.Code {
	out := make([]catalog.Code, 0, Filled)
	for r := range Rows {
		for col := range catalog.Columns {
			if g[r][col] != "" {
				out = append(out, g[r][col])
			}
		}
	}
	return out
}

// SymbolsInColumns lists filled cells whose column lies in [lo, hi].
func (g Grid) SymbolsInColumns(lo, hi int) []catalog.Code {
	var out []catalog.Code
	for r := range Rows {
		for col := max(lo, 0); col <= hi && col < catalog.Columns; col++ {
			if g[r][col] != "" {
				out = append(out, g[r][col])
			}
		}
	}
	return out
}

func (g Grid) Has(code catalog.Code) bool {
	if code == "" {
		return false
	}
	for r := range Rows {
		if slices.Contains(g[r][:], code) {
			return true
		}
	}
	return false
}

// Validate checks the layout rules against cat.
func (g Grid) Validate(cat *catalog.Catalog) error {
	seen := make(map[catalog.Code]bool, Filled)
	var colCount [catalog.Columns]int

	for r := range Rows {
		n := 0
		for col, code := range g[r] {
			if code == "" {
				continue
			}
			n++
			colCount[col]++
			if seen[code] {
				return fmt.Errorf("%w: %s appears twice", ErrInvalid, code)
			}
			seen[code] = true
			if band, ok := cat.ColumnOf(code); !ok || band != col {
				return fmt.Errorf("%w: %s is not in column %d's band", ErrInvalid, code, col)
			}
		}
		if n != PerRow {
			return fmt.Errorf("%w: row %d has %d symbols", ErrInvalid, r, n)
		}
	}
	for col, n := range colCount {
		if n == 0 {
			return fmt.Errorf("%w: column %d is empty", ErrInvalid, col)
		}
	}
	return nil
}
