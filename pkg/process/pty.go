package process

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"sync"
	"syscall"

	"github.com/creack/pty"

	"github.com/idlewatch/idlewatch/pkg/interfaces"
	"github.com/idlewatch/idlewatch/pkg/monitor"
)

// PTYManager handles PTY-based execution of the wrapped command.
type PTYManager struct {
	cmd         *exec.Cmd
	pty         *os.File
	mu          sync.Mutex
	stopChan    chan struct{}
	wg          sync.WaitGroup
	restoreFunc func()
}

// Ensure PTYManager implements PTY
var _ PTY = (*PTYManager)(nil)

// NewPTYManager creates a new PTY manager
func NewPTYManager() *PTYManager {
	return &PTYManager{
		stopChan: make(chan struct{}),
	}
}

// Start starts a process with PTY
func (p *PTYManager) Start(command string, args []string, env []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cmd != nil {
		return fmt.Errorf("process already started")
	}

	p.cmd = exec.Command(command, args...)
	p.cmd.Env = env

	var err error
	p.pty, err = pty.Start(p.cmd)
	if err != nil {
		return fmt.Errorf("failed to start PTY: %w", err)
	}

	// Copy terminal size
	if err := p.copyTerminalSize(); err != nil {
		// Log but don't fail - some environments don't have a terminal
		fmt.Fprintf(os.Stderr, "idlewatch: failed to copy terminal size: %v\n", err)
	}

	// Start monitoring for terminal size changes
	p.wg.Add(1)
	go p.monitorTerminalSize()

	return nil
}

// Wait waits for the process to complete
func (p *PTYManager) Wait() error {
	if p.cmd == nil {
		return fmt.Errorf("process not started")
	}

	err := p.cmd.Wait()

	// Signal stop to goroutines
	close(p.stopChan)
	p.wg.Wait()

	p.mu.Lock()
	if p.pty != nil {
		_ = p.pty.Close()
	}
	p.mu.Unlock()

	return err
}

// ProcessState returns the process state
func (p *PTYManager) ProcessState() *os.ProcessState {
	if p.cmd == nil {
		return nil
	}
	return p.cmd.ProcessState
}

// Process returns the underlying process
func (p *PTYManager) Process() *os.Process {
	if p.cmd == nil {
		return nil
	}
	return p.cmd.Process
}

// Stop restores terminal state. Safe to call more than once.
func (p *PTYManager) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.restoreFunc != nil {
		p.restoreFunc()
		p.restoreFunc = nil
	}

	return nil
}

// copyTerminalSize copies the terminal size from stdin to the PTY
func (p *PTYManager) copyTerminalSize() error {
	size, err := pty.GetsizeFull(os.Stdin)
	if err != nil {
		return err
	}

	return pty.Setsize(p.pty, size)
}

// monitorTerminalSize monitors for terminal size changes
func (p *PTYManager) monitorTerminalSize() {
	defer p.wg.Done()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGWINCH)
	defer signal.Stop(sigChan)

	for {
		select {
		case <-sigChan:
			p.mu.Lock()
			if p.pty != nil {
				if err := p.copyTerminalSize(); err != nil {
					fmt.Fprintf(os.Stderr, "idlewatch: failed to resize PTY: %v\n", err)
				}
			}
			p.mu.Unlock()
		case <-p.stopChan:
			return
		}
	}
}

// CopyIO pumps bytes between the real terminal and the PTY, teeing
// both directions through the session handler. With enableFocus the
// real terminal is asked to emit focus reports for the session's
// lifetime.
func (p *PTYManager) CopyIO(stdin io.Reader, stdout io.Writer, session interfaces.SessionHandler, enableFocus bool) error {
	p.mu.Lock()
	if p.pty == nil {
		p.mu.Unlock()
		return fmt.Errorf("PTY not initialized")
	}
	ptyFile := p.pty
	p.mu.Unlock()

	// Put the controlling terminal into raw mode so keystrokes reach
	// the child unmodified. Store the restore function so Stop() can
	// also undo it on abnormal shutdown.
	if file, ok := stdin.(*os.File); ok {
		if restore, err := setRawMode(int(file.Fd())); err == nil {
			p.mu.Lock()
			p.restoreFunc = restore
			p.mu.Unlock()
			defer func() { _ = p.Stop() }()
		}
	}

	// Focus reporting is negotiated with the real terminal, which is
	// reached through stdout.
	if enableFocus {
		if _, err := stdout.Write(monitor.EnableFocusReporting()); err == nil {
			defer func() { _, _ = stdout.Write(monitor.DisableFocusReporting()) }()
		}
	}

	var wg sync.WaitGroup
	errChan := make(chan error, 2)

	// Copy from stdin to PTY, teeing keystrokes and focus reports to
	// the session handler. The session sees the raw stream; the child
	// must not, since the wrapper requested the focus reports and the
	// child would read them as typed input.
	wg.Add(1)
	go func() {
		defer wg.Done()
		reader := stdin
		if session != nil {
			reader = &teeReader{reader: reader, handler: session.HandleInput}
		}
		if enableFocus {
			reader = &focusStripReader{reader: reader, filter: monitor.NewFocusFilter()}
		}
		if _, err := io.Copy(ptyFile, reader); err != nil {
			errChan <- fmt.Errorf("stdin copy error: %w", err)
		}
	}()

	// Copy from PTY to stdout, teeing command output.
	wg.Add(1)
	go func() {
		defer wg.Done()
		reader := io.Reader(ptyFile)
		if session != nil {
			reader = &teeReader{reader: ptyFile, handler: session.HandleOutput}
		}
		if _, err := io.Copy(stdout, reader); err != nil {
			errChan <- fmt.Errorf("stdout copy error: %w", err)
		}
	}()

	wg.Wait()

	select {
	case err := <-errChan:
		return err
	default:
		return nil
	}
}

// teeReader passes every chunk it reads to a handler.
type teeReader struct {
	reader  io.Reader
	handler func([]byte)
}

func (r *teeReader) Read(p []byte) (n int, err error) {
	n, err = r.reader.Read(p)
	if n > 0 && r.handler != nil {
		r.handler(p[:n])
	}
	return n, err
}

// focusStripReader removes focus report sequences from the stream.
// Filtered output is never longer than the input, so it fits the
// caller's buffer. A read may legitimately return (0, nil) when a
// chunk was entirely focus reports.
type focusStripReader struct {
	reader io.Reader
	filter *monitor.FocusFilter
}

func (r *focusStripReader) Read(p []byte) (n int, err error) {
	n, err = r.reader.Read(p)
	if n > 0 {
		out := r.filter.Filter(p[:n])
		n = copy(p, out)
	}
	return n, err
}
