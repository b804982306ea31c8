package catalog

import (
	"errors"
	"fmt"
)

// Columns is the number of column bands on a ticket.
const Columns = 9

// MinSize is the smallest catalog that can fill a ticket: every band must be
// able to supply one symbol per row.
const MinSize = Columns * 3

var (
	ErrEmptyCode     = errors.New("catalog: empty symbol code")
	ErrDuplicateCode = errors.New("catalog: duplicate symbol code")
	ErrTooSmall      = errors.New("catalog: too few symbols")
)

type Code string

type Symbol struct {
	Code    Code   `json:"code"`
	Meaning string `json:"meaning"`
}

// Catalog is the read-only universe of callable symbols. It is safe for
// concurrent use once built.
type Catalog struct {
	symbols []Symbol
	index   map[Code]int
	bands   [Columns][]Code
	column  map[Code]int
}

var festive = mustNew(diwali)

// Diwali returns the process-wide festive catalog.
func Diwali() *Catalog { return festive }

func New(symbols []Symbol) (*Catalog, error) {
	if len(symbols) < MinSize {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrTooSmall, len(symbols), MinSize)
	}

	c := &Catalog{
		symbols: make([]Symbol, len(symbols)),
		index:   make(map[Code]int, len(symbols)),
		column:  make(map[Code]int, len(symbols)),
	}
	copy(c.symbols, symbols)

	for i, s := range c.symbols {
		if s.Code == "" {
			return nil, fmt.Errorf("%w at position %d", ErrEmptyCode, i)
		}
		if _, dup := c.index[s.Code]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateCode, s.Code)
		}
		c.index[s.Code] = i
	}

	// Contiguous bands in declared order; the first len%Columns bands get one extra.
	base, extra := len(c.symbols)/Columns, len(c.symbols)%Columns
	start := 0
	for col := range Columns {
		size := base
		if col < extra {
			size++
		}
		band := make([]Code, 0, size)
		for _, s := range c.symbols[start : start+size] {
			band = append(band, s.Code)
			c.column[s.Code] = col
		}
		c.bands[col] = band
		start += size
	}

	return c, nil
}

func mustNew(symbols []Symbol) *Catalog {
	c, err := New(symbols)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Catalog) Len() int { return len(c.symbols) }

// Codes returns every code in declared order. The slice is a copy.
func (c *Catalog) Codes() []Code {
	out := make([]Code, len(c.symbols))
	for i, s := range c.symbols {
		out[i] = s.Code
	}
	return out
}

func (c *Catalog) Meaning(code Code) (string, bool) {
	i, ok := c.index[code]
	if !ok {
		return "", false
	}
	return c.symbols[i].Meaning, true
}

// Band returns the codes assigned to ticket column col.
func (c *Catalog) Band(col int) []Code {
	if col < 0 || col >= Columns {
		return nil
	}
	out := make([]Code, len(c.bands[col]))
	copy(out, c.bands[col])
	return out
}

// ColumnOf reports which column band code belongs to.
func (c *Catalog) ColumnOf(code Code) (int, bool) {
	col, ok := c.column[code]
	return col, ok
}
