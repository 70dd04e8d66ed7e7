//go:build !linux && !darwin

package process

import "fmt"

// setRawMode is unsupported on this platform; the session still works,
// just with the terminal's default line discipline.
func setRawMode(fd int) (func(), error) {
	return nil, fmt.Errorf("raw mode not supported on this platform")
}
