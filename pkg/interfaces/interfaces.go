// Package interfaces defines the core interfaces used throughout the application.
package interfaces

// InputHandler processes raw user input data.
type InputHandler interface {
	HandleInput(data []byte)
}

// OutputHandler processes raw output data from the wrapped command.
type OutputHandler interface {
	HandleOutput(data []byte)
}

// SessionHandler processes both sides of a terminal session.
type SessionHandler interface {
	InputHandler
	OutputHandler
}

// FocusEventHandler reacts to terminal focus reporting events.
type FocusEventHandler interface {
	HandleFocusIn()
	HandleFocusOut()
}

// FocusSequenceDetector scans output data for focus reporting
// escape sequences.
type FocusSequenceDetector interface {
	DetectSequences(data []byte, handler FocusEventHandler)
}

// LifecycleHandler receives host-lifecycle signals.
type LifecycleHandler interface {
	OnBackground()
	OnForeground()
}

// ActivityHandler receives user-activity pulses.
type ActivityHandler interface {
	ActivityPulse()
}

// RateLimiter limits notification frequency.
type RateLimiter interface {
	Allow() bool
	Reset()
}
