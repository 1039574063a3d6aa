package serialport

import (
	"log"
	"os"
)

type stdio struct {
	in      *os.File
	out     *os.File
	restore func() error
}

func (s *stdio) Read(p []byte) (int, error)  { return s.in.Read(p) }
func (s *stdio) Write(p []byte) (int, error) { return s.out.Write(p) }

func (s *stdio) Close() error {
	if s.restore != nil {
		return s.restore()
	}
	return nil
}

// Stdio uses the process terminal as the console link. When stdin is a
// terminal it is switched to raw mode so every key is delivered at once;
// Close restores the previous mode.
func Stdio() *Link {
	s := &stdio{in: os.Stdin, out: os.Stdout}
	restore, err := makeRaw(int(os.Stdin.Fd()))
	if err != nil {
		log.Printf("serialport: stdin stays in line mode: %v", err)
	} else {
		s.restore = restore
	}
	return NewLink(s)
}
