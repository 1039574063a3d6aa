// Package console implements the remote configuration session on the serial
// link and the dispatcher that routes single keystrokes from that link.
package console

import (
	"context"
	"io"

	"github.com/itohio/thermoctl/pkg/editor"
)

// Conn is the byte link the console runs on.
type Conn interface {
	io.Writer
	Getc(ctx context.Context) (byte, error)
	Putc(c byte) error
	Readable() bool
}

// Line editing bytes.
const (
	backspace = '\b'
	del       = 0x7f
)

func isTerminator(c byte) bool {
	return c == '\n' || c == '\r' || c == ' '
}

// ReadNumber collects up to limit digits from conn, echoing each accepted
// one, until a newline, carriage return or space. Backspace (or DEL) erases
// the last digit and rubs it out on the terminal. Other bytes are dropped.
// An empty entry yields 0.
func ReadNumber(ctx context.Context, conn Conn, limit int) (int, error) {
	buf := make([]byte, 0, limit)
	for {
		c, err := conn.Getc(ctx)
		if err != nil {
			return 0, err
		}
		switch {
		case isTerminator(c):
			return editor.ParseDigits(string(buf)), nil
		case c == backspace || c == del:
			if len(buf) > 0 {
				buf = buf[:len(buf)-1]
				if _, err := io.WriteString(conn, "\b \b"); err != nil {
					return 0, err
				}
			}
		case c >= '0' && c <= '9' && len(buf) < limit:
			buf = append(buf, c)
			if err := conn.Putc(c); err != nil {
				return 0, err
			}
		}
	}
}
