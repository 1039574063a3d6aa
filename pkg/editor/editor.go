package editor

import (
	"context"

	"github.com/itohio/thermoctl/pkg/display"
	"github.com/itohio/thermoctl/pkg/keypad"
)

const (
	// Placeholder marks an empty slot of the field.
	Placeholder = '_'

	// Field editing keys.
	Submit    = keypad.KeyA
	SubmitAlt = keypad.KeyD
	Backspace = keypad.KeyB
	Clear     = keypad.KeyC
)

// State is the digit buffer of a field being edited. Len counts the filled
// slots; Cursor is the slot under edit and stays in [0, capacity).
type State struct {
	buf []byte
	n   int
}

// NewState creates an empty field of the given capacity.
func NewState(capacity int) *State {
	if capacity < 0 {
		capacity = 0
	}
	return &State{buf: make([]byte, capacity)}
}

// Cursor returns the slot under edit: the next free one, or the last slot
// once the field is full. It is 0 for a zero-width field.
func (s *State) Cursor() int {
	return max(0, min(s.n, len(s.buf)-1))
}

// Len returns how many slots are filled.
func (s *State) Len() int {
	return s.n
}

// Capacity returns the field width.
func (s *State) Capacity() int {
	return len(s.buf)
}

// Value parses what has been entered so far.
func (s *State) Value() int {
	return ParseDigits(string(s.buf[:s.n]))
}

// Put stores k at the cursor and advances. It reports false when the field
// is already full.
func (s *State) Put(k keypad.Key) bool {
	if s.n >= len(s.buf) {
		return false
	}
	s.buf[s.n] = byte(k)
	s.n++
	return true
}

// Back drops the last filled slot, if any.
func (s *State) Back() {
	if s.n > 0 {
		s.n--
	}
}

// Reset empties the field.
func (s *State) Reset() {
	s.n = 0
}

// LineEditor is a fixed-width numeric field editor driven by the keypad and
// rendered on the display.
type LineEditor struct {
	keys keypad.Source
	disp display.Display
}

// New creates a LineEditor.
func New(keys keypad.Source, disp display.Display) *LineEditor {
	return &LineEditor{keys: keys, disp: disp}
}

// Edit renders size placeholders at (col, row) and collects keystrokes until
// Submit. Digits fill the field left to right and are dropped once it is
// full; Backspace blanks the previous slot; Clear empties the whole field.
// Any non-digit left in the buffer (* or #) stops the parse, and an empty
// field yields 0.
func (e *LineEditor) Edit(ctx context.Context, col, row, size int) (int, error) {
	st := NewState(size)
	e.blank(col, row, size)

	for {
		k, err := e.keys.WaitKey(ctx)
		if err != nil {
			return 0, err
		}

		switch k {
		case Submit, SubmitAlt:
			return st.Value(), nil
		case Backspace:
			st.Back()
			e.disp.Locate(col+st.Len(), row)
			e.disp.Putc(Placeholder)
		case Clear:
			st.Reset()
			e.blank(col, row, size)
		default:
			at := st.Len()
			if st.Put(k) {
				e.disp.Locate(col+at, row)
				e.disp.Putc(byte(k))
			}
		}
	}
}

func (e *LineEditor) blank(col, row, size int) {
	e.disp.Locate(col, row)
	for range size {
		e.disp.Putc(Placeholder)
	}
	e.disp.Locate(col, row)
}
