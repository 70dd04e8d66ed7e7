//go:build !linux && !darwin
// +build !linux,!darwin

package main

// isatty reports false on platforms without terminal ioctl support.
func isatty(fd uintptr) bool {
	return false
}
