package display

import (
	"fmt"
	"strings"
	"sync"
)

const (
	// Cols and Rows are the geometry of the character display.
	Cols = 16
	Rows = 2
)

// Display is an addressable character grid.
type Display interface {
	Locate(col, row int)
	Putc(c byte)
	Printf(format string, args ...any)
	Cls()
}

var _ Display = (*Grid)(nil)

// Grid is an in-memory Display. Writes past the last column are clipped and
// the cursor stays on its row, like a character LCD showing only its visible
// window.
type Grid struct {
	mu       sync.RWMutex
	cells    [Rows][Cols]byte
	col, row int
	onChange func(lines [Rows]string)
}

// NewGrid creates a blank grid.
func NewGrid() *Grid {
	g := &Grid{}
	g.clear()
	return g
}

// OnChange registers a callback invoked with the full contents after every
// write.
func (g *Grid) OnChange(fn func(lines [Rows]string)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onChange = fn
}

func (g *Grid) Locate(col, row int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.col, g.row = clamp(col, 0, Cols), clamp(row, 0, Rows-1)
}

func (g *Grid) Putc(c byte) {
	g.mu.Lock()
	g.put(c)
	g.mu.Unlock()
	g.notify()
}

func (g *Grid) Printf(format string, args ...any) {
	s := fmt.Sprintf(format, args...)
	g.mu.Lock()
	for i := 0; i < len(s); i++ {
		g.put(s[i])
	}
	g.mu.Unlock()
	g.notify()
}

func (g *Grid) Cls() {
	g.mu.Lock()
	g.clear()
	g.mu.Unlock()
	g.notify()
}

// Line returns the contents of row, trailing blanks included.
func (g *Grid) Line(row int) string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if row < 0 || row >= Rows {
		return ""
	}
	return string(g.cells[row][:])
}

// Text returns both rows with trailing blanks trimmed, joined by a newline.
func (g *Grid) Text() string {
	lines := g.Lines()
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	return strings.Join(lines[:], "\n")
}

// Lines returns a snapshot of both rows.
func (g *Grid) Lines() [Rows]string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out [Rows]string
	for r := range Rows {
		out[r] = string(g.cells[r][:])
	}
	return out
}

// Cursor returns the current write position.
func (g *Grid) Cursor() (col, row int) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.col, g.row
}

func (g *Grid) put(c byte) {
	if c == '\n' {
		g.col = 0
		g.row = (g.row + 1) % Rows
		return
	}
	if g.col < Cols {
		g.cells[g.row][g.col] = c
		g.col++
	}
}

func (g *Grid) clear() {
	for r := range Rows {
		for c := range Cols {
			g.cells[r][c] = ' '
		}
	}
	g.col, g.row = 0, 0
}

func (g *Grid) notify() {
	g.mu.RLock()
	fn := g.onChange
	g.mu.RUnlock()
	if fn != nil {
		fn(g.Lines())
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Tee fans every call out to several displays, for mirroring the panel.
type Tee []Display

func (t Tee) Locate(col, row int) {
	for _, d := range t {
		d.Locate(col, row)
	}
}

func (t Tee) Putc(c byte) {
	for _, d := range t {
		d.Putc(c)
	}
}

func (t Tee) Printf(format string, args ...any) {
	for _, d := range t {
		d.Printf(format, args...)
	}
}

func (t Tee) Cls() {
	for _, d := range t {
		d.Cls()
	}
}
