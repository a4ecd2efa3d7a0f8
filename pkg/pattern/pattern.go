package pattern

import (
	"encoding/json"
	"fmt"
)

// DotPattern is a row-major grid of cells. Data[y][x] is true when the cell
// at column x, row y is solid.
type DotPattern struct {
	Width  int      `json:"width"`
	Height int      `json:"height"`
	Data   [][]bool `json:"data"`
}

// New returns an all-false pattern of the given size.
func New(width, height int) *DotPattern {
	data := make([][]bool, height)
	for y := range data {
		data[y] = make([]bool, width)
	}
	return &DotPattern{Width: width, Height: height, Data: data}
}

// FromRows builds a pattern from strings where '#', 'X', 'x' and '1' mark a
// solid cell and anything else an empty one. Rows must have equal length.
func FromRows(rows ...string) *DotPattern {
	width := 0
	if len(rows) > 0 {
		width = len(rows[0])
	}
	p := &DotPattern{Width: width, Height: len(rows), Data: make([][]bool, len(rows))}
	for y, row := range rows {
		p.Data[y] = make([]bool, len(row))
		for x, c := range row {
			switch c {
			case '#', 'X', 'x', '1':
				p.Data[y][x] = true
			}
		}
	}
	return p
}

// ParseJSON decodes and validates a pattern.
func ParseJSON(data []byte) (*DotPattern, error) {
	var p DotPattern
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("pattern: decode: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// At reports whether the cell at (x, y) is solid. Out-of-range cells are
// empty.
func (p *DotPattern) At(x, y int) bool {
	if y < 0 || y >= len(p.Data) || x < 0 || x >= len(p.Data[y]) {
		return false
	}
	return p.Data[y][x]
}

// Set marks the cell at (x, y).
func (p *DotPattern) Set(x, y int, on bool) {
	p.Data[y][x] = on
}

// ActiveCount returns the number of solid cells.
func (p *DotPattern) ActiveCount() int {
	n := 0
	for _, row := range p.Data {
		for _, on := range row {
			if on {
				n++
			}
		}
	}
	return n
}

// IsEmpty reports whether no cell is solid. An empty pattern is valid input.
func (p *DotPattern) IsEmpty() bool {
	return p.ActiveCount() == 0
}

// Validate checks the dimension invariants: positive width and height,
// exactly Height rows and exactly Width cells per row.
func (p *DotPattern) Validate() error {
	if p == nil {
		return Errors{{Field: "pattern", Message: "pattern is missing"}}
	}

	var errs Errors
	if p.Width <= 0 {
		errs = append(errs, ValidationError{Field: "width", Message: fmt.Sprintf("width is %d, must be positive", p.Width)})
	}
	if p.Height <= 0 {
		errs = append(errs, ValidationError{Field: "height", Message: fmt.Sprintf("height is %d, must be positive", p.Height)})
	}
	if len(p.Data) != p.Height {
		errs = append(errs, ValidationError{
			Field:   "data",
			Message: fmt.Sprintf("data has %d rows, height is %d", len(p.Data), p.Height),
		})
	}
	for y, row := range p.Data {
		if len(row) != p.Width {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("data[%d]", y),
				Message: fmt.Sprintf("row has %d cells, width is %d", len(row), p.Width),
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
