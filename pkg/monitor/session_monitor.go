// Package monitor turns the raw byte streams of a wrapped terminal
// session into activity pulses for the idle engine.
package monitor

import (
	"bytes"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/idlewatch/idlewatch/pkg/config"
	"github.com/idlewatch/idlewatch/pkg/interfaces"
)

// SessionMonitor watches session input and output and forwards
// activity pulses according to the configured activity sources. It is
// the only component that decides what counts as "the user did
// something"; the engine just receives pulses.
type SessionMonitor struct {
	sources  config.ActivitySources
	activity interfaces.ActivityHandler
	detector interfaces.FocusSequenceDetector
	debug    bool

	mu           sync.Mutex
	lastInputAt  time.Time
	lastOutputAt time.Time
	focused      bool
}

// NewSessionMonitor creates a monitor forwarding pulses to activity.
func NewSessionMonitor(cfg *config.Config, activity interfaces.ActivityHandler) *SessionMonitor {
	return &SessionMonitor{
		sources:  cfg.ActivitySources,
		activity: activity,
		detector: NewFocusDetector(),
		debug:    cfg.Debug,
		focused:  true, // Assume focused until the terminal says otherwise
	}
}

// HandleInput processes bytes arriving from the user's terminal. Focus
// reports ride this stream (the terminal sends them to the
// application), so they are picked out here; everything else is
// treated as keystrokes.
func (m *SessionMonitor) HandleInput(data []byte) {
	if len(data) == 0 {
		return
	}

	if m.sources.Focus {
		m.detector.DetectSequences(data, m)
	}

	if !containsKeystrokes(data) {
		return
	}

	m.mu.Lock()
	m.lastInputAt = time.Now()
	m.mu.Unlock()

	if m.sources.Input {
		m.pulse("input")
	}
}

// HandleOutput processes output produced by the wrapped command.
func (m *SessionMonitor) HandleOutput(data []byte) {
	if len(data) == 0 {
		return
	}

	m.mu.Lock()
	m.lastOutputAt = time.Now()
	m.mu.Unlock()

	if m.sources.Output {
		m.pulse("output")
	}
}

// HandleFocusIn implements interfaces.FocusEventHandler.
func (m *SessionMonitor) HandleFocusIn() {
	m.mu.Lock()
	m.focused = true
	m.mu.Unlock()

	if m.sources.Focus && m.sources.FocusPolicy == config.FocusPolicyBoth {
		m.pulse("focus-in")
	}
}

// HandleFocusOut implements interfaces.FocusEventHandler.
func (m *SessionMonitor) HandleFocusOut() {
	m.mu.Lock()
	m.focused = false
	m.mu.Unlock()

	// Focus-out counts under both policies.
	if m.sources.Focus {
		m.pulse("focus-out")
	}
}

// IsFocused reports the last known terminal focus state.
func (m *SessionMonitor) IsFocused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.focused
}

// LastInputAt returns the time of the most recent user keystroke.
func (m *SessionMonitor) LastInputAt() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastInputAt
}

// LastOutputAt returns the time of the most recent command output.
func (m *SessionMonitor) LastOutputAt() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastOutputAt
}

func (m *SessionMonitor) pulse(source string) {
	if m.debug {
		fmt.Fprintf(os.Stderr, "idlewatch: activity pulse from %s\n", source)
	}
	if m.activity != nil {
		m.activity.ActivityPulse()
	}
}

// containsKeystrokes reports whether data holds anything besides focus
// report sequences. A chunk that is purely focus reports must not
// count as typing.
func containsKeystrokes(data []byte) bool {
	rest := bytes.ReplaceAll(data, focusInSequence, nil)
	rest = bytes.ReplaceAll(rest, focusOutSequence, nil)
	return len(rest) > 0
}
