//go:build !linux && !darwin

package serialport

import "errors"

func makeRaw(int) (func() error, error) {
	return nil, errors.New("raw terminal mode not supported on this platform")
}
