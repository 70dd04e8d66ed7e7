//go:build darwin

package process

import (
	"syscall"
	"unsafe"
)

// setRawMode puts the terminal on fd into raw mode and returns a
// function restoring the previous settings.
func setRawMode(fd int) (func(), error) {
	var old syscall.Termios
	if _, _, errno := syscall.Syscall6(syscall.SYS_IOCTL, uintptr(fd), syscall.TIOCGETA,
		uintptr(unsafe.Pointer(&old)), 0, 0, 0); errno != 0 { // #nosec G103 -- Required for terminal control
		return nil, errno
	}

	raw := old
	raw.Iflag &^= syscall.IGNBRK | syscall.BRKINT | syscall.PARMRK | syscall.ISTRIP |
		syscall.INLCR | syscall.IGNCR | syscall.ICRNL | syscall.IXON
	raw.Lflag &^= syscall.ECHO | syscall.ECHONL | syscall.ICANON | syscall.ISIG | syscall.IEXTEN
	raw.Cflag &^= syscall.CSIZE | syscall.PARENB
	raw.Cflag |= syscall.CS8
	raw.Cc[syscall.VMIN] = 1
	raw.Cc[syscall.VTIME] = 0

	if _, _, errno := syscall.Syscall6(syscall.SYS_IOCTL, uintptr(fd), syscall.TIOCSETA,
		uintptr(unsafe.Pointer(&raw)), 0, 0, 0); errno != 0 { // #nosec G103 -- Required for terminal control
		return nil, errno
	}

	return func() {
		_, _, _ = syscall.Syscall6(syscall.SYS_IOCTL, uintptr(fd), syscall.TIOCSETA,
			uintptr(unsafe.Pointer(&old)), 0, 0, 0) // #nosec G103 -- Required for terminal control
	}, nil
}
