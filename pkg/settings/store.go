package settings

import (
	"fmt"
	"log"
	"sync"
)

// Compiled-in defaults. Every boot starts from these; nothing is persisted.
const (
	DefaultMin      = 10
	DefaultMid      = 50
	DefaultMax      = 100
	DefaultTimeout  = 3
	DefaultPassword = 1313

	// PasswordDigits is the longest accepted password.
	PasswordDigits = 8
)

// Field names one editable value of the Store.
type Field int

const (
	Min Field = iota
	Mid
	Max
	Timeout
	Password
)

func (f Field) String() string {
	switch f {
	case Min:
		return "min"
	case Mid:
		return "mid"
	case Max:
		return "max"
	case Timeout:
		return "timeout"
	case Password:
		return "password"
	default:
		return fmt.Sprintf("field(%d)", int(f))
	}
}

// Thresholds split the temperature range into the four actuation buckets.
// min < mid < max is expected but not enforced.
type Thresholds struct {
	Min, Mid, Max int
}

// Ordered reports whether Min < Mid < Max.
func (t Thresholds) Ordered() bool {
	return t.Min < t.Mid && t.Mid < t.Max
}

// Snapshot is a consistent copy of every field.
type Snapshot struct {
	Thresholds
	TimeoutSeconds int
	Password       int
}

// Store holds the shared runtime configuration. Reads are safe from any task;
// a field is written only by the editing flow that currently owns it.
type Store struct {
	mu   sync.RWMutex
	vals [5]int
}

// NewStore creates a Store holding the compiled-in defaults.
func NewStore() *Store {
	s := &Store{}
	s.Reset()
	return s
}

// Reset restores the compiled-in defaults.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vals = [5]int{DefaultMin, DefaultMid, DefaultMax, DefaultTimeout, DefaultPassword}
}

// Get returns one field.
func (s *Store) Get(f Field) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !valid(f) {
		return 0
	}
	return s.vals[f]
}

// Set writes one field and returns the previous value.
func (s *Store) Set(f Field, v int) (old int) {
	if !valid(f) {
		return 0
	}
	s.mu.Lock()
	old = s.vals[f]
	s.vals[f] = v
	t := Thresholds{Min: s.vals[Min], Mid: s.vals[Mid], Max: s.vals[Max]}
	s.mu.Unlock()

	log.Printf("settings: %s changed from %d to %d", f, old, v)
	if isThreshold(f) && !t.Ordered() {
		log.Printf("settings: thresholds out of order (min=%d mid=%d max=%d)", t.Min, t.Mid, t.Max)
	}
	return old
}

// Thresholds returns the current thresholds as one consistent read.
func (s *Store) Thresholds() Thresholds {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Thresholds{Min: s.vals[Min], Mid: s.vals[Mid], Max: s.vals[Max]}
}

// TimeoutSeconds returns the emergency countdown length.
func (s *Store) TimeoutSeconds() int {
	return s.Get(Timeout)
}

// Password returns the access password.
func (s *Store) Password() int {
	return s.Get(Password)
}

// Snapshot returns every field as one consistent read.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Thresholds:     Thresholds{Min: s.vals[Min], Mid: s.vals[Mid], Max: s.vals[Max]},
		TimeoutSeconds: s.vals[Timeout],
		Password:       s.vals[Password],
	}
}

func valid(f Field) bool {
	return f >= Min && f <= Password
}

func isThreshold(f Field) bool {
	return f == Min || f == Mid || f == Max
}
