// Package serialport provides the byte-level console link used by the
// remote console and the key dispatcher.
package serialport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
)

// DefaultBufferSize is how many received bytes are held before the reader
// stops draining the port.
const DefaultBufferSize = 256

// ErrClosed is returned by Getc once the link is closed and every buffered
// byte has been read.
var ErrClosed = errors.New("serialport: link closed")

// Link is a byte link with a non-blocking Readable check. A reader
// goroutine drains the underlying port into a buffer so Readable never
// touches the port.
type Link struct {
	rwc io.ReadWriteCloser
	in  chan byte

	wmu sync.Mutex

	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// NewLink wraps rwc and starts draining it.
func NewLink(rwc io.ReadWriteCloser) *Link {
	l := &Link{
		rwc:  rwc,
		in:   make(chan byte, DefaultBufferSize),
		done: make(chan struct{}),
	}
	go l.readLoop()
	return l
}

func (l *Link) readLoop() {
	buf := make([]byte, 64)
	for {
		n, err := l.rwc.Read(buf)
		for _, c := range buf[:n] {
			select {
			case l.in <- c:
			case <-l.done:
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				select {
				case <-l.done:
				default:
					log.Printf("serialport: read: %v", err)
				}
			}
			l.shutdown()
			return
		}
	}
}

// Readable reports whether Getc would return without blocking.
func (l *Link) Readable() bool {
	return len(l.in) > 0
}

// Getc blocks until a byte is available.
func (l *Link) Getc(ctx context.Context) (byte, error) {
	select {
	case c := <-l.in:
		return c, nil
	default:
	}
	select {
	case c := <-l.in:
		return c, nil
	case <-l.done:
		select {
		case c := <-l.in:
			return c, nil
		default:
			return 0, ErrClosed
		}
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Putc writes one byte.
func (l *Link) Putc(c byte) error {
	_, err := l.Write([]byte{c})
	return err
}

// Write writes p as one unit; concurrent writers do not interleave.
func (l *Link) Write(p []byte) (int, error) {
	l.wmu.Lock()
	defer l.wmu.Unlock()
	n, err := l.rwc.Write(p)
	if err != nil {
		return n, fmt.Errorf("serialport: write: %w", err)
	}
	return n, nil
}

// Printf writes a formatted message. Errors are logged.
func (l *Link) Printf(format string, args ...any) {
	if _, err := fmt.Fprintf(l, format, args...); err != nil {
		log.Print(err)
	}
}

// Close closes the underlying port.
func (l *Link) Close() error {
	l.shutdown()
	return l.closeErr
}

func (l *Link) shutdown() {
	l.closeOnce.Do(func() {
		close(l.done)
		l.closeErr = l.rwc.Close()
	})
}
