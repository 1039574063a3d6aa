package board

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/itohio/thermoctl/pkg/display"
)

// LCDBus sets the six lines of an HD44780 4-bit bus at once, in the order
// RS, E, D4, D5, D6, D7.
type LCDBus interface {
	SetValues(values []int) error
}

const (
	lcdClear       = 0x01
	lcdEntryMode   = 0x06 // increment, no shift
	lcdDisplayOn   = 0x0C // display on, cursor off
	lcdFunction4x2 = 0x28 // 4-bit, 2 lines, 5x8
	lcdSetDDRAM    = 0x80

	lcdRow1Offset = 0x40
)

var _ display.Display = (*LCD)(nil)

// LCD drives a 16x2 HD44780 character module in 4-bit mode. Writes past the
// last column are dropped.
type LCD struct {
	bus   LCDBus
	delay func(time.Duration)

	mu       sync.Mutex
	col, row int
}

// NewLCD initializes the module and clears it.
func NewLCD(bus LCDBus) (*LCD, error) {
	l := &LCD{bus: bus, delay: time.Sleep}
	if err := l.init(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *LCD) init() error {
	l.delay(50 * time.Millisecond)
	// Three 8-bit function sets then the switch to 4-bit.
	for _, n := range []byte{0x03, 0x03, 0x03, 0x02} {
		if err := l.nibble(false, n); err != nil {
			return fmt.Errorf("lcd init: %w", err)
		}
		l.delay(5 * time.Millisecond)
	}
	for _, c := range []byte{lcdFunction4x2, lcdDisplayOn, lcdEntryMode, lcdClear} {
		if err := l.write(false, c); err != nil {
			return fmt.Errorf("lcd init: %w", err)
		}
	}
	l.delay(2 * time.Millisecond)
	return nil
}

func (l *LCD) Locate(col, row int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.locate(col, row)
}

func (l *LCD) Putc(c byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.put(c)
}

func (l *LCD) Printf(format string, args ...any) {
	s := fmt.Sprintf(format, args...)
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := 0; i < len(s); i++ {
		l.put(s[i])
	}
}

func (l *LCD) Cls() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.command(lcdClear)
	l.delay(2 * time.Millisecond)
	l.col, l.row = 0, 0
}

func (l *LCD) locate(col, row int) {
	l.col = max(0, min(col, display.Cols))
	l.row = max(0, min(row, display.Rows-1))
	l.command(lcdSetDDRAM | byte(l.row*lcdRow1Offset+min(l.col, display.Cols-1)))
}

func (l *LCD) put(c byte) {
	if c == '\n' {
		l.locate(0, (l.row+1)%display.Rows)
		return
	}
	if l.col >= display.Cols {
		return
	}
	if err := l.write(true, c); err != nil {
		log.Printf("lcd: %v", err)
	}
	l.col++
}

func (l *LCD) command(c byte) {
	if err := l.write(false, c); err != nil {
		log.Printf("lcd: %v", err)
	}
}

func (l *LCD) write(rs bool, b byte) error {
	if err := l.nibble(rs, b>>4); err != nil {
		return err
	}
	return l.nibble(rs, b&0x0F)
}

// nibble latches the low four bits of n on the falling edge of E.
func (l *LCD) nibble(rs bool, n byte) error {
	v := []int{0, 1, int(n & 1), int(n >> 1 & 1), int(n >> 2 & 1), int(n >> 3 & 1)}
	if rs {
		v[0] = 1
	}
	if err := l.bus.SetValues(v); err != nil {
		return err
	}
	v[1] = 0
	return l.bus.SetValues(v)
}
