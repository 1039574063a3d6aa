package keypad

import (
	"time"
)

// Scanner resolves the state of a Matrix into keys. It never blocks beyond
// the settle delay; callers poll it.
type Scanner struct {
	m      Matrix
	settle time.Duration
}

// NewScanner creates a Scanner. A zero settle uses DefaultSettle.
func NewScanner(m Matrix, settle time.Duration) *Scanner {
	if settle == 0 {
		settle = DefaultSettle
	}
	return &Scanner{m: m, settle: settle}
}

// Pressed is the fast check: all rows low, any column low.
func (s *Scanner) Pressed() bool {
	s.driveAll(false)
	time.Sleep(s.settle)
	for c := range Columns {
		if !s.m.ReadColumn(c) {
			return true
		}
	}
	return false
}

// Scan drives one row at a time and returns the first (row, column) that
// reads low, in row-major order. Several keys held at once resolve to the
// first of them in that order.
func (s *Scanner) Scan() Key {
	if !s.Pressed() {
		return None
	}

	s.driveAll(true)
	time.Sleep(s.settle)

	for r := range Rows {
		s.m.SetRow(r, false)
		for c := range Columns {
			if !s.m.ReadColumn(c) {
				return layout[r][c]
			}
		}
		s.m.SetRow(r, true)
	}

	// Released between the fast check and the row walk.
	return None
}

func (s *Scanner) driveAll(level bool) {
	for r := range Rows {
		s.m.SetRow(r, level)
	}
}
