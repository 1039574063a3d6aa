//go:build linux || darwin

package serialport

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// makeRaw disables line buffering and echo on fd. Signal keys keep working.
func makeRaw(fd int) (func() error, error) {
	old, err := unix.IoctlGetTermios(fd, ioctlGetTermios)
	if err != nil {
		return nil, fmt.Errorf("get termios: %w", err)
	}

	raw := *old
	raw.Iflag &^= unix.ICRNL | unix.IXON
	raw.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.IEXTEN
	raw.Cc[unix.VMIN] = 1
	raw.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(fd, ioctlSetTermios, &raw); err != nil {
		return nil, fmt.Errorf("set termios: %w", err)
	}
	return func() error {
		return unix.IoctlSetTermios(fd, ioctlSetTermios, old)
	}, nil
}
