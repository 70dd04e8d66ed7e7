package process

import (
	"io"
	"os"

	"github.com/idlewatch/idlewatch/pkg/interfaces"
)

// PTY defines the interface for PTY operations
type PTY interface {
	Start(command string, args []string, env []string) error
	Wait() error
	ProcessState() *os.ProcessState
	Process() *os.Process
	CopyIO(stdin io.Reader, stdout io.Writer, session interfaces.SessionHandler, enableFocus bool) error
	Stop() error
}
