package idle

// Phase is the engine's current position in the idle lifecycle.
type Phase int

const (
	// PhaseActive means the user was recently active and the countdown
	// toward Idle is running.
	PhaseActive Phase = iota
	// PhasePrompting means the countdown has passed the warning point
	// but not the idle deadline; a warning should be on screen.
	PhasePrompting
	// PhaseIdle means the countdown is fully exhausted.
	PhaseIdle
	// PhasePaused means the countdown is frozen.
	PhasePaused
)

// String returns a human-readable name for the phase.
func (p Phase) String() string {
	switch p {
	case PhaseActive:
		return "active"
	case PhasePrompting:
		return "prompting"
	case PhaseIdle:
		return "idle"
	case PhasePaused:
		return "paused"
	default:
		return "unknown"
	}
}
