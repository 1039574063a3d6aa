package keypad

import (
	"context"
	"time"
)

// DefaultPoll is how often a Reader re-polls the scanner while waiting.
const DefaultPoll = 5 * time.Millisecond

// Source delivers debounced keystrokes to the interactive flows.
type Source interface {
	// WaitKey waits for the current key (if any) to be released, then
	// blocks until a new key resolves.
	WaitKey(ctx context.Context) (Key, error)
	// TryKey returns None at once if nothing is held; otherwise it resolves
	// the key and waits for its release.
	TryKey(ctx context.Context) (Key, error)
	// Poll is a single raw scan without any release handling.
	Poll() Key
	// WaitRelease blocks while any key is held.
	WaitRelease(ctx context.Context) error
	// WaitLetter waits for release, then for one of A-D that is not in
	// disabled.
	WaitLetter(ctx context.Context, disabled ...Key) (Key, error)
}

var _ Source = (*Reader)(nil)

// Reader turns Scanner polls into debounced keystrokes. Waits are ticker
// polls rather than busy loops; a full release is still required between
// two accepted presses.
type Reader struct {
	s    *Scanner
	poll time.Duration
}

// NewReader creates a Reader. A zero poll uses DefaultPoll.
func NewReader(s *Scanner, poll time.Duration) *Reader {
	if poll == 0 {
		poll = DefaultPoll
	}
	return &Reader{s: s, poll: poll}
}

func (r *Reader) WaitRelease(ctx context.Context) error {
	for r.s.Pressed() {
		if err := r.pause(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reader) WaitKey(ctx context.Context) (Key, error) {
	if err := r.WaitRelease(ctx); err != nil {
		return None, err
	}
	for {
		if k := r.s.Scan(); k != None {
			return k, nil
		}
		if err := r.pause(ctx); err != nil {
			return None, err
		}
	}
}

func (r *Reader) TryKey(ctx context.Context) (Key, error) {
	if !r.s.Pressed() {
		return None, nil
	}
	k := r.s.Scan()
	if err := r.WaitRelease(ctx); err != nil {
		return None, err
	}
	return k, nil
}

func (r *Reader) Poll() Key {
	return r.s.Scan()
}

func (r *Reader) WaitLetter(ctx context.Context, disabled ...Key) (Key, error) {
	if err := r.WaitRelease(ctx); err != nil {
		return None, err
	}
	for {
		if k := r.s.Scan(); acceptLetter(k, disabled) {
			return k, nil
		}
		if err := r.pause(ctx); err != nil {
			return None, err
		}
	}
}

func (r *Reader) pause(ctx context.Context) error {
	t := time.NewTimer(r.poll)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func acceptLetter(k Key, disabled []Key) bool {
	if !k.IsLetter() {
		return false
	}
	for _, d := range disabled {
		if k == d {
			return false
		}
	}
	return true
}
