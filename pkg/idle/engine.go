// Package idle implements the idle-detection timing engine: a small
// state machine that counts down from the last user activity, can warn
// before declaring the session idle, and freezes the countdown while
// the host application is backgrounded.
package idle

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/idlewatch/idlewatch/pkg/clock"
)

// ErrInvalidConfig is returned by New for any invalid option
// combination. It is the only error the package produces.
var ErrInvalidConfig = errors.New("invalid idle engine configuration")

// Config holds the immutable options for an Engine.
type Config struct {
	// Timeout is the total countdown from last activity to Idle.
	// Must be positive.
	Timeout time.Duration

	// PromptBefore is how long before the idle deadline the engine
	// enters Prompting. Zero disables the Prompting phase. Must be
	// non-negative and less than Timeout.
	PromptBefore time.Duration

	// Autostart starts the countdown immediately on construction.
	// Combined with StartPaused it determines the initial phase: the
	// engine starts Active iff Autostart && !StartPaused, else Paused.
	Autostart   bool
	StartPaused bool

	// OnIdle, OnActive, and OnPrompt fire synchronously on the
	// corresponding transition, after the engine's state is fully
	// updated, so a handler may call back into the engine.
	OnIdle   func()
	OnActive func()
	OnPrompt func()

	// Debug logs every transition to DebugWriter (stderr when nil).
	// It has no effect on behavior.
	Debug       bool
	DebugWriter io.Writer

	// Clock is the time source. Nil means the system clock.
	Clock clock.Clock
}

func (c Config) validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive, got %v", ErrInvalidConfig, c.Timeout)
	}
	if c.PromptBefore < 0 {
		return fmt.Errorf("%w: prompt_before must be non-negative, got %v", ErrInvalidConfig, c.PromptBefore)
	}
	if c.PromptBefore >= c.Timeout {
		return fmt.Errorf("%w: prompt_before (%v) must be less than timeout (%v)", ErrInvalidConfig, c.PromptBefore, c.Timeout)
	}
	return nil
}

// Engine owns the idle countdown state and transition logic. All
// operations are safe for concurrent use; after construction the only
// failure mode is already ruled out, so every operation is total.
type Engine struct {
	cfg    Config
	clock  clock.Clock
	sched  *Scheduler
	debugW io.Writer

	mu               sync.Mutex
	phase            Phase
	phaseBeforePause Phase
	deadlineAt       time.Time
	promptAt         time.Time
	remainingOnPause time.Duration
	lastActiveAt     time.Time
	lastIdleAt       time.Time
	seq              uint64
	stopped          bool
}

// New creates an Engine. The returned engine is already running (or
// paused) according to Autostart/StartPaused.
func New(cfg Config) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	c := cfg.Clock
	if c == nil {
		c = clock.System
	}
	w := cfg.DebugWriter
	if w == nil {
		w = os.Stderr
	}

	e := &Engine{
		cfg:    cfg,
		clock:  c,
		sched:  NewScheduler(c),
		debugW: w,
	}

	if cfg.Autostart && !cfg.StartPaused {
		e.mu.Lock()
		notify := e.resetLocked(e.clock.Now())
		e.mu.Unlock()
		e.fire(notify...)
	} else {
		e.phase = PhasePaused
		e.phaseBeforePause = PhaseActive
		e.remainingOnPause = cfg.Timeout
		e.debugf("start paused, %v banked", cfg.Timeout)
	}

	return e, nil
}

// Reset restarts the full countdown from now and transitions to
// Active, regardless of the current phase. OnActive fires only when
// the prior phase was Idle or Prompting.
func (e *Engine) Reset() {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	notify := e.resetLocked(e.clock.Now())
	e.mu.Unlock()
	e.fire(notify...)
}

// ActivityPulse reports that the user did something. It behaves
// exactly like Reset, except it is ignored while Paused. Duplicate or
// spurious pulses are harmless.
func (e *Engine) ActivityPulse() {
	e.mu.Lock()
	if e.stopped || e.phase == PhasePaused {
		e.mu.Unlock()
		return
	}
	notify := e.resetLocked(e.clock.Now())
	e.mu.Unlock()
	e.fire(notify...)
}

// Pause freezes the countdown, remembering how long until Idle was
// left. No-op if already Paused.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped || e.phase == PhasePaused {
		return
	}

	// The frozen quantity is always time-until-Idle, never the prompt
	// lead. From Idle the stale deadline clamps to zero.
	now := e.clock.Now()
	remaining := e.deadlineAt.Sub(now)
	if remaining < 0 {
		remaining = 0
	}

	e.sched.Cancel()
	e.seq++
	e.phaseBeforePause = e.phase
	e.remainingOnPause = remaining
	e.phase = PhasePaused
	e.debugf("paused in %s with %v remaining", e.phaseBeforePause, remaining)
}

// Resume unfreezes the countdown with exactly the remaining time that
// was banked at Pause. No-op if not Paused.
func (e *Engine) Resume() {
	e.mu.Lock()
	if e.stopped || e.phase != PhasePaused {
		e.mu.Unlock()
		return
	}

	now := e.clock.Now()
	r := e.remainingOnPause
	before := e.phaseBeforePause
	var notify []func()

	switch {
	case r <= 0:
		// Countdown was already spent; no timer to arm.
		notify = append(notify, e.idleLocked(now, before != PhaseIdle))
	case e.cfg.PromptBefore > 0 && r <= e.cfg.PromptBefore && before != PhaseIdle:
		// Already inside the prompt window: a single final timer
		// covers the rest of the countdown.
		e.deadlineAt = now.Add(r)
		e.promptAt = e.deadlineAt.Add(-e.cfg.PromptBefore)
		e.phase = PhasePrompting
		e.lastActiveAt = now
		e.scheduleExpiryLocked(r)
		if before != PhasePrompting {
			// The warning was never surfaced before the pause.
			notify = append(notify, e.cfg.OnPrompt)
		}
		e.debugf("resumed into prompting, idle in %v", r)
	default:
		e.deadlineAt = now.Add(r)
		e.promptAt = e.deadlineAt.Add(-e.cfg.PromptBefore)
		e.phase = PhaseActive
		e.lastActiveAt = now
		notify = append(notify, e.armLocked(now)...)
		e.debugf("resumed into active, idle in %v", r)
	}

	e.mu.Unlock()
	e.fire(notify...)
}

// OnBackground reports that the host application left the foreground.
func (e *Engine) OnBackground() { e.Pause() }

// OnForeground reports that the host application returned to the
// foreground.
func (e *Engine) OnForeground() { e.Resume() }

// Remaining returns the time left until Idle: the banked remainder
// while Paused, zero while Idle, and the live countdown otherwise.
func (e *Engine) Remaining() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.remainingLocked()
}

// RemainingSeconds returns Remaining rounded to whole seconds. Rounding
// happens only here; internal state keeps full precision.
func (e *Engine) RemainingSeconds() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return int(e.remainingLocked().Round(time.Second) / time.Second)
}

// Phase returns the current phase.
func (e *Engine) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

// LastActiveAt returns the time of the most recent transition to
// Active, and false if it never happened.
func (e *Engine) LastActiveAt() (time.Time, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastActiveAt, !e.lastActiveAt.IsZero()
}

// LastIdleAt returns the time of the most recent transition to Idle,
// and false if it never happened.
func (e *Engine) LastIdleAt() (time.Time, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastIdleAt, !e.lastIdleAt.IsZero()
}

// Stop tears the engine down, cancelling any pending callback. Every
// operation on a stopped engine is a no-op.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped {
		return
	}
	e.stopped = true
	e.seq++
	e.sched.Cancel()
	e.debugf("stopped")
}

// resetLocked restarts the countdown from now; the caller fires the
// returned notifications after unlocking.
func (e *Engine) resetLocked(now time.Time) []func() {
	prior := e.phase
	e.deadlineAt = now.Add(e.cfg.Timeout)
	e.promptAt = e.deadlineAt.Add(-e.cfg.PromptBefore)
	e.lastActiveAt = now
	e.phase = PhaseActive
	e.debugf("reset from %s, idle in %v", prior, e.cfg.Timeout)

	notify := e.armLocked(now)
	if prior == PhaseIdle || prior == PhasePrompting {
		notify = append([]func(){e.cfg.OnActive}, notify...)
	}
	return notify
}

// armLocked arms the scheduler for the next relevant deadline from the
// Active phase. A non-positive delay transitions immediately instead
// of scheduling.
func (e *Engine) armLocked(now time.Time) []func() {
	if e.cfg.PromptBefore > 0 {
		if d := e.promptAt.Sub(now); d > 0 {
			e.scheduleExpiryLocked(d)
			return nil
		}
		return e.promptLocked(now)
	}
	if d := e.deadlineAt.Sub(now); d > 0 {
		e.scheduleExpiryLocked(d)
		return nil
	}
	return []func(){e.idleLocked(now, true)}
}

// promptLocked enters Prompting and arms the final countdown segment.
func (e *Engine) promptLocked(now time.Time) []func() {
	e.phase = PhasePrompting
	e.debugf("prompting, idle in %v", e.deadlineAt.Sub(now))

	notify := []func(){e.cfg.OnPrompt}
	if d := e.deadlineAt.Sub(now); d > 0 {
		e.scheduleExpiryLocked(d)
	} else {
		notify = append(notify, e.idleLocked(now, true))
	}
	return notify
}

// idleLocked enters Idle with no timer pending. The emit flag
// suppresses OnIdle when resuming a pause that was taken in Idle.
func (e *Engine) idleLocked(now time.Time, emit bool) func() {
	e.sched.Cancel()
	e.seq++
	e.phase = PhaseIdle
	e.lastIdleAt = now
	e.debugf("idle")
	if emit {
		return e.cfg.OnIdle
	}
	return nil
}

// scheduleExpiryLocked arms the scheduler, tagging the callback with
// the current sequence number so that any later state change makes it
// a no-op even if it slips past the scheduler's own cancel.
func (e *Engine) scheduleExpiryLocked(d time.Duration) {
	e.seq++
	seq := e.seq
	e.sched.Schedule(d, func() { e.expire(seq) })
}

// expire advances the phase when the armed deadline is reached.
func (e *Engine) expire(seq uint64) {
	e.mu.Lock()
	if e.stopped || seq != e.seq {
		e.mu.Unlock()
		return
	}

	now := e.clock.Now()
	var notify []func()
	switch e.phase {
	case PhaseActive:
		if e.cfg.PromptBefore > 0 {
			notify = e.promptLocked(now)
		} else {
			notify = append(notify, e.idleLocked(now, true))
		}
	case PhasePrompting:
		notify = append(notify, e.idleLocked(now, true))
	}
	e.mu.Unlock()
	e.fire(notify...)
}

func (e *Engine) remainingLocked() time.Duration {
	switch e.phase {
	case PhasePaused:
		return e.remainingOnPause
	case PhaseIdle:
		return 0
	default:
		r := e.deadlineAt.Sub(e.clock.Now())
		if r < 0 {
			r = 0
		}
		return r
	}
}

// fire invokes transition callbacks outside the engine lock.
func (e *Engine) fire(notify ...func()) {
	for _, fn := range notify {
		if fn != nil {
			fn()
		}
	}
}

func (e *Engine) debugf(format string, args ...interface{}) {
	if !e.cfg.Debug {
		return
	}
	fmt.Fprintf(e.debugW, "idlewatch: engine: "+format+"\n", args...)
}
