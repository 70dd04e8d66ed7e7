// Package status renders a one-line phase and countdown indicator at
// the bottom of the terminal.
package status

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/idlewatch/idlewatch/pkg/idle"
)

// PhaseSource is the engine-side query surface the indicator reads.
type PhaseSource interface {
	Phase() idle.Phase
	RemainingSeconds() int
}

// Indicator manages the countdown display in the terminal
type Indicator struct {
	mu      sync.Mutex
	writer  io.Writer
	enabled bool
	source  PhaseSource

	refreshChan chan struct{}
}

// NewIndicator creates a new status indicator reading from source.
func NewIndicator(writer io.Writer, enabled bool, source PhaseSource) *Indicator {
	return &Indicator{
		writer:      writer,
		enabled:     enabled,
		source:      source,
		refreshChan: make(chan struct{}, 1),
	}
}

// Refresh requests an immediate redraw, typically from a phase
// transition callback.
func (i *Indicator) Refresh() {
	i.mu.Lock()
	_ = i.draw() // Best effort
	i.mu.Unlock()

	select {
	case i.refreshChan <- struct{}{}:
	default:
		// Refresh already pending
	}
}

// draw renders the status indicator
func (i *Indicator) draw() error {
	if !i.enabled || i.writer == nil {
		return nil
	}

	statusText := i.getStatusText()
	if statusText == "" {
		return nil
	}

	// Use DEC save/restore cursor (\0337/\0338) instead of standard
	// (\033[s/\033[u) because it's more widely supported across
	// terminals. Line 999 is clamped to the actual last line.
	//
	// \0337 - DECSC: Save cursor position and attributes
	// \033[r - Reset scroll region to full screen
	// \033[999;1H - Move to last line, column 1
	// \033[2K - Clear entire line
	// %s - Our status text
	// \0338 - DECRC: Restore cursor position and attributes
	sequence := fmt.Sprintf("\0337\033[r\033[999;1H\033[2K%s\0338", statusText)

	if _, err := fmt.Fprint(i.writer, sequence); err != nil {
		return err
	}

	return nil
}

// getStatusText returns the phase glyph and countdown with color
func (i *Indicator) getStatusText() string {
	if i.source == nil {
		return ""
	}

	switch i.source.Phase() {
	case idle.PhaseActive:
		return fmt.Sprintf("\033[32m▶\033[0m %ds", i.source.RemainingSeconds())
	case idle.PhasePrompting:
		return fmt.Sprintf("\033[33m⚠ idle in %ds\033[0m", i.source.RemainingSeconds())
	case idle.PhaseIdle:
		return "\033[31mⓏ idle\033[0m"
	case idle.PhasePaused:
		return "\033[90m⏸ paused\033[0m"
	default:
		return ""
	}
}

// Clear removes the status indicator
func (i *Indicator) Clear() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if !i.enabled || i.writer == nil {
		return nil
	}

	sequence := "\0337\033[999;1H\033[2K\0338"
	if _, err := fmt.Fprint(i.writer, sequence); err != nil {
		return err
	}

	return nil
}

// StartAutoRefresh starts a goroutine that redraws the countdown every
// second until stopChan closes.
func (i *Indicator) StartAutoRefresh(stopChan <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				i.mu.Lock()
				_ = i.draw() // Best effort
				i.mu.Unlock()
			case <-i.refreshChan:
				i.mu.Lock()
				_ = i.draw()
				i.mu.Unlock()
			case <-stopChan:
				_ = i.Clear() // Best effort
				return
			}
		}
	}()
}
