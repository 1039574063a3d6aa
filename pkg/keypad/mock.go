package keypad

import (
	"context"
	"sync"
	"time"
)

var _ Matrix = (*Mock)(nil)

// Mock simulates the electrical behaviour of a 4x4 matrix: a held key pulls
// its column low only while its row is driven low.
type Mock struct {
	mu      sync.RWMutex
	held    [Rows][Columns]bool
	rows    [Rows]bool
	onPress func(Key, bool)
}

// NewMock creates a matrix with all rows high and nothing held.
func NewMock() *Mock {
	m := &Mock{}
	for r := range Rows {
		m.rows[r] = true
	}
	return m
}

// OnChange registers a callback invoked on every press and release.
func (m *Mock) OnChange(fn func(k Key, pressed bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onPress = fn
}

func (m *Mock) SetRow(row int, level bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if row >= 0 && row < Rows {
		m.rows[row] = level
	}
}

func (m *Mock) ReadColumn(col int) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if col < 0 || col >= Columns {
		return true
	}
	for r := range Rows {
		if m.held[r][col] && !m.rows[r] {
			return false
		}
	}
	return true
}

// Press holds k down.
func (m *Mock) Press(k Key) {
	m.set(k, true)
}

// Release lets go of k.
func (m *Mock) Release(k Key) {
	m.set(k, false)
}

// ReleaseAll lets go of every key.
func (m *Mock) ReleaseAll() {
	m.mu.Lock()
	m.held = [Rows][Columns]bool{}
	m.mu.Unlock()
}

// Tap presses k and releases it after hold.
func (m *Mock) Tap(k Key, hold time.Duration) {
	m.Press(k)
	time.AfterFunc(hold, func() { m.Release(k) })
}

func (m *Mock) set(k Key, pressed bool) {
	r, c, ok := Position(k)
	if !ok {
		return
	}
	m.mu.Lock()
	m.held[r][c] = pressed
	cb := m.onPress
	m.mu.Unlock()
	if cb != nil {
		cb(k, pressed)
	}
}

var _ Source = (*Script)(nil)

// Script is a Source that replays typed keys without any timing, for
// driving the interactive flows deterministically.
type Script struct {
	keys chan Key
}

// NewScript creates a Script preloaded with keys.
func NewScript(keys ...Key) *Script {
	s := &Script{keys: make(chan Key, 256)}
	s.Type(keys...)
	return s
}

// Type queues more keystrokes.
func (s *Script) Type(keys ...Key) {
	for _, k := range keys {
		s.keys <- k
	}
}

// TypeString queues one keystroke per byte of str.
func (s *Script) TypeString(str string) {
	for i := 0; i < len(str); i++ {
		s.keys <- Key(str[i])
	}
}

// Pending returns how many queued keystrokes have not been consumed.
func (s *Script) Pending() int {
	return len(s.keys)
}

func (s *Script) WaitKey(ctx context.Context) (Key, error) {
	select {
	case k := <-s.keys:
		return k, nil
	case <-ctx.Done():
		return None, ctx.Err()
	}
}

func (s *Script) TryKey(ctx context.Context) (Key, error) {
	return s.Poll(), ctx.Err()
}

func (s *Script) Poll() Key {
	select {
	case k := <-s.keys:
		return k
	default:
		return None
	}
}

func (s *Script) WaitRelease(ctx context.Context) error {
	return ctx.Err()
}

func (s *Script) WaitLetter(ctx context.Context, disabled ...Key) (Key, error) {
	for {
		k, err := s.WaitKey(ctx)
		if err != nil {
			return None, err
		}
		if acceptLetter(k, disabled) {
			return k, nil
		}
	}
}
