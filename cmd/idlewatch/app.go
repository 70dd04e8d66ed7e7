package main

import (
	"fmt"
	"os"
	"time"

	"github.com/idlewatch/idlewatch/pkg/config"
	"github.com/idlewatch/idlewatch/pkg/idle"
	"github.com/idlewatch/idlewatch/pkg/interfaces"
	"github.com/idlewatch/idlewatch/pkg/lifecycle"
	"github.com/idlewatch/idlewatch/pkg/monitor"
	"github.com/idlewatch/idlewatch/pkg/notification"
	"github.com/idlewatch/idlewatch/pkg/process"
	"github.com/idlewatch/idlewatch/pkg/status"
)

// Dependencies holds all the dependencies for the application
type Dependencies struct {
	Config          *config.Config
	Engine          *idle.Engine
	SessionMonitor  *monitor.SessionMonitor
	Notifier        notification.Notifier
	RateLimiter     interfaces.RateLimiter
	Dispatcher      *notification.Dispatcher
	ProcessManager  *process.Manager
	StatusIndicator *status.Indicator
	SignalWatcher   *lifecycle.SignalWatcher
	stopChan        chan struct{}
}

// NewDependencies creates all dependencies with the given configuration
func NewDependencies(cfg *config.Config) (*Dependencies, error) {
	deps := &Dependencies{
		Config:   cfg,
		stopChan: make(chan struct{}),
	}

	// Notification components first; the engine callbacks close over
	// them.
	if cfg.NtfyTopic != "" {
		deps.Notifier = notification.NewNtfyClient(cfg.NtfyServer, cfg.NtfyTopic)
	}
	deps.RateLimiter = notification.NewTokenBucketRateLimiter(cfg.RateLimit.MaxMessages, cfg.RateLimit.Window)
	deps.Dispatcher = notification.NewDispatcher(cfg, deps.Notifier, deps.RateLimiter)

	engine, err := idle.New(idle.Config{
		Timeout:      cfg.Timeout,
		PromptBefore: cfg.PromptBefore,
		Autostart:    cfg.StartOnLaunch,
		StartPaused:  cfg.StartPaused,
		OnPrompt:     deps.onPrompt,
		OnIdle:       deps.onIdle,
		OnActive:     deps.onActive,
		Debug:        cfg.Debug,
		DebugWriter:  os.Stderr,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create idle engine: %w", err)
	}
	deps.Engine = engine

	// Status indicator on stderr, reading phase and countdown from
	// the engine. Only enabled on a real terminal.
	statusEnabled := isatty(os.Stderr.Fd()) && !cfg.Quiet
	deps.StatusIndicator = status.NewIndicator(os.Stderr, statusEnabled, engine)
	deps.StatusIndicator.StartAutoRefresh(deps.stopChan)

	// Activity plumbing: terminal I/O feeds the monitor, the monitor
	// pulses the engine.
	deps.SessionMonitor = monitor.NewSessionMonitor(cfg, engine)
	deps.ProcessManager = process.NewManager(cfg, deps.SessionMonitor)

	// Job-control signals pause and resume the countdown.
	deps.SignalWatcher = lifecycle.NewSignalWatcher(engine)

	return deps, nil
}

// onPrompt fires when the engine enters the warning window.
func (d *Dependencies) onPrompt() {
	if d.StatusIndicator != nil {
		d.StatusIndicator.Refresh()
	}
	if d.Dispatcher != nil {
		_ = d.Dispatcher.Send(notification.Notification{
			Title:   "idlewatch",
			Message: fmt.Sprintf("Session going idle in %ds", d.Engine.RemainingSeconds()),
			Time:    time.Now(),
			Event:   notification.EventPrompt,
		})
	}
}

// onIdle fires when the countdown expires.
func (d *Dependencies) onIdle() {
	if d.StatusIndicator != nil {
		d.StatusIndicator.Refresh()
	}
	if d.Dispatcher != nil {
		_ = d.Dispatcher.Send(notification.Notification{
			Title:   "idlewatch",
			Message: "Session is idle",
			Time:    time.Now(),
			Event:   notification.EventIdle,
		})
	}
}

// onActive fires on recovery from Idle or Prompting.
func (d *Dependencies) onActive() {
	if d.StatusIndicator != nil {
		d.StatusIndicator.Refresh()
	}
	if d.Dispatcher != nil {
		_ = d.Dispatcher.Send(notification.Notification{
			Title:   "idlewatch",
			Message: "Session active again",
			Time:    time.Now(),
			Event:   notification.EventActive,
		})
	}
}

// Close cleans up all dependencies
func (d *Dependencies) Close() {
	// Stop status indicator refresh
	if d.stopChan != nil {
		select {
		case <-d.stopChan:
			// Already closed
		default:
			close(d.stopChan)
		}
		d.stopChan = nil
	}

	if d.SignalWatcher != nil {
		d.SignalWatcher.Stop()
	}

	if d.StatusIndicator != nil {
		_ = d.StatusIndicator.Clear() // Best effort
	}

	if d.Engine != nil {
		d.Engine.Stop()
	}
}

// Application represents the main application
type Application struct {
	deps *Dependencies
}

// NewApplication creates a new application with the given dependencies
func NewApplication(deps *Dependencies) *Application {
	return &Application{
		deps: deps,
	}
}

// Run starts the wrapped command and blocks until it exits.
func (a *Application) Run(command string, args []string) error {
	a.deps.SignalWatcher.Start()

	if err := a.deps.ProcessManager.Start(command, args); err != nil {
		return err
	}

	return a.deps.ProcessManager.Wait()
}

// Stop gracefully stops the application
func (a *Application) Stop() error {
	return a.deps.ProcessManager.Stop()
}

// ExitCode returns the exit code of the wrapped process
func (a *Application) ExitCode() int {
	return a.deps.ProcessManager.ExitCode()
}
