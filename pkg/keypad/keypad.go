package keypad

import (
	"time"
)

const (
	// Rows is the number of driven matrix rows.
	Rows = 4
	// Columns is the number of sensed matrix columns.
	Columns = 4

	// DefaultSettle is the delay between driving rows and sampling columns.
	DefaultSettle = time.Millisecond
)

// Key is the symbol of a keypad button. None means no key resolved.
type Key byte

const (
	None Key = 0

	// Submit, Backspace, Clear and the second Submit key of the field editor.
	KeyA Key = 'A'
	KeyB Key = 'B'
	KeyC Key = 'C'
	KeyD Key = 'D'

	KeyStar  Key = '*'
	KeyPound Key = '#'
)

// layout maps (row, column) to the printed symbol, row-major.
var layout = [Rows][Columns]Key{
	{'1', '2', '3', 'A'},
	{'4', '5', '6', 'B'},
	{'7', '8', '9', 'C'},
	{'*', '0', '#', 'D'},
}

// At returns the symbol printed at (row, column).
func At(row, col int) Key {
	if row < 0 || row >= Rows || col < 0 || col >= Columns {
		return None
	}
	return layout[row][col]
}

// Position returns the (row, column) of k.
func Position(k Key) (row, col int, ok bool) {
	for r := range Rows {
		for c := range Columns {
			if layout[r][c] == k {
				return r, c, true
			}
		}
	}
	return 0, 0, false
}

// IsDigit reports whether k is one of 0-9.
func (k Key) IsDigit() bool {
	return k >= '0' && k <= '9'
}

// IsLetter reports whether k is one of A-D.
func (k Key) IsLetter() bool {
	return k >= 'A' && k <= 'D'
}

func (k Key) String() string {
	if k == None {
		return "none"
	}
	return string(rune(k))
}

// Matrix is the pin-level contract of a 4x4 keypad. Columns are pulled up,
// so a pressed key reads low on its column while its row is driven low.
type Matrix interface {
	SetRow(row int, level bool)
	ReadColumn(col int) bool
}
