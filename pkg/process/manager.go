package process

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/idlewatch/idlewatch/pkg/config"
	"github.com/idlewatch/idlewatch/pkg/interfaces"
)

// Manager manages the wrapped command's process.
type Manager struct {
	config     *config.Config
	ptyManager PTY
	session    interfaces.SessionHandler
	exitCode   int
	mu         sync.Mutex
	sigChan    chan os.Signal
	done       chan struct{}
}

// NewManager creates a new process manager
func NewManager(cfg *config.Config, session interfaces.SessionHandler) *Manager {
	return &Manager{
		config:     cfg,
		ptyManager: NewPTYManager(),
		session:    session,
		done:       make(chan struct{}),
	}
}

// Start starts the wrapped command
func (m *Manager) Start(command string, args []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Check for self-wrap
	if os.Getenv("IDLEWATCH_WRAPPED") == "1" {
		return fmt.Errorf("already wrapped by idlewatch")
	}

	// Set environment to prevent self-wrap
	env := append(os.Environ(), "IDLEWATCH_WRAPPED=1")

	if err := m.ptyManager.Start(command, args, env); err != nil {
		return fmt.Errorf("failed to start process: %w", err)
	}

	// Start I/O copying with session teeing
	enableFocus := m.config.ActivitySources.Focus
	go func() {
		if err := m.ptyManager.CopyIO(os.Stdin, os.Stdout, m.session, enableFocus); err != nil {
			fmt.Fprintf(os.Stderr, "idlewatch: I/O error: %v\n", err)
		}
	}()

	m.setupSignalForwarding()

	return nil
}

// Wait waits for the process to exit
func (m *Manager) Wait() error {
	if m.ptyManager == nil {
		return fmt.Errorf("process not started")
	}

	err := m.ptyManager.Wait()

	m.mu.Lock()
	if m.ptyManager.ProcessState() != nil {
		m.exitCode = m.ptyManager.ProcessState().ExitCode()
	}
	m.mu.Unlock()

	// Ensure terminal is restored
	_ = m.ptyManager.Stop()

	close(m.done)
	m.cleanupSignals()

	return err
}

// ExitCode returns the exit code of the process
func (m *Manager) ExitCode() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.exitCode
}

// setupSignalForwarding sets up signal forwarding to the child
// process. SIGTSTP and SIGCONT are deliberately absent: those belong
// to the lifecycle watcher, which pauses the engine before the whole
// process group actually stops.
func (m *Manager) setupSignalForwarding() {
	m.sigChan = make(chan os.Signal, 1)
	signal.Notify(m.sigChan,
		syscall.SIGTERM,
		syscall.SIGINT,
		syscall.SIGHUP,
		syscall.SIGQUIT,
		syscall.SIGUSR1,
		syscall.SIGUSR2,
	)

	go m.forwardSignals()
}

// forwardSignals forwards signals to the child process
func (m *Manager) forwardSignals() {
	for {
		select {
		case sig := <-m.sigChan:
			if m.ptyManager != nil && m.ptyManager.Process() != nil {
				if err := m.ptyManager.Process().Signal(sig); err != nil {
					// Process might have already exited
					if err != os.ErrProcessDone {
						fmt.Fprintf(os.Stderr, "idlewatch: signal forward error: %v\n", err)
					}
				}
			}
		case <-m.done:
			return
		}
	}
}

// cleanupSignals stops signal forwarding
func (m *Manager) cleanupSignals() {
	if m.sigChan != nil {
		signal.Stop(m.sigChan)
		close(m.sigChan)
	}
}

// Stop gracefully stops the manager and cleans up resources
func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ptyManager != nil {
		// Ensure terminal is restored
		_ = m.ptyManager.Stop()

		if m.ptyManager.Process() != nil {
			// Send SIGTERM first for graceful shutdown
			if err := m.ptyManager.Process().Signal(syscall.SIGTERM); err != nil {
				// If SIGTERM fails, force kill
				if err != os.ErrProcessDone {
					return m.ptyManager.Process().Kill()
				}
			}
		}
	}

	return nil
}
