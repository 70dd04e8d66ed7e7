package idle

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/idlewatch/idlewatch/pkg/clock"
)

// counters tracks transition callback invocations for a test engine.
type counters struct {
	active, prompt, idle int
}

func newTestEngine(t *testing.T, fc *clock.Fake, cfg Config) (*Engine, *counters) {
	t.Helper()

	c := &counters{}
	cfg.Clock = fc
	cfg.OnActive = func() { c.active++ }
	cfg.OnPrompt = func() { c.prompt++ }
	cfg.OnIdle = func() { c.idle++ }

	e, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(e.Stop)
	return e, c
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name:    "valid without prompt",
			cfg:     Config{Timeout: 10 * time.Second},
			wantErr: false,
		},
		{
			name:    "valid with prompt",
			cfg:     Config{Timeout: 10 * time.Second, PromptBefore: 3 * time.Second},
			wantErr: false,
		},
		{
			name:    "zero timeout",
			cfg:     Config{Timeout: 0},
			wantErr: true,
		},
		{
			name:    "negative timeout",
			cfg:     Config{Timeout: -time.Second},
			wantErr: true,
		},
		{
			name:    "negative prompt lead",
			cfg:     Config{Timeout: 10 * time.Second, PromptBefore: -time.Second},
			wantErr: true,
		},
		{
			name:    "prompt lead equals timeout",
			cfg:     Config{Timeout: 10 * time.Second, PromptBefore: 10 * time.Second},
			wantErr: true,
		},
		{
			name:    "prompt lead exceeds timeout",
			cfg:     Config{Timeout: 10 * time.Second, PromptBefore: 11 * time.Second},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.Clock = clock.NewFake()
			e, err := New(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("New() expected error, got nil")
				}
				if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("New() error = %v, want ErrInvalidConfig", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("New() unexpected error: %v", err)
			}
			e.Stop()
		})
	}
}

func TestInitialPhase(t *testing.T) {
	tests := []struct {
		name        string
		autostart   bool
		startPaused bool
		want        Phase
	}{
		{"autostart", true, false, PhaseActive},
		{"autostart but paused", true, true, PhasePaused},
		{"no autostart", false, false, PhasePaused},
		{"no autostart and paused", false, true, PhasePaused},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestEngine(t, clock.NewFake(), Config{
				Timeout:     10 * time.Second,
				Autostart:   tt.autostart,
				StartPaused: tt.startPaused,
			})
			if got := e.Phase(); got != tt.want {
				t.Errorf("Phase() = %v, want %v", got, tt.want)
			}
			if got := e.Remaining(); got != 10*time.Second {
				t.Errorf("Remaining() = %v, want 10s", got)
			}
		})
	}
}

func TestCountdownWithoutPrompt(t *testing.T) {
	fc := clock.NewFake()
	e, c := newTestEngine(t, fc, Config{Timeout: 10 * time.Second, Autostart: true})

	if got := e.Remaining(); got != 10*time.Second {
		t.Fatalf("Remaining() = %v, want 10s", got)
	}

	fc.Advance(9 * time.Second)
	if got := e.Phase(); got != PhaseActive {
		t.Fatalf("Phase() after 9s = %v, want active", got)
	}
	if got := e.Remaining(); got != time.Second {
		t.Errorf("Remaining() after 9s = %v, want 1s", got)
	}

	fc.Advance(time.Second)
	if got := e.Phase(); got != PhaseIdle {
		t.Fatalf("Phase() after 10s = %v, want idle", got)
	}
	if got := e.Remaining(); got != 0 {
		t.Errorf("Remaining() while idle = %v, want 0", got)
	}
	if c.idle != 1 {
		t.Errorf("OnIdle fired %d times, want 1", c.idle)
	}
	if c.prompt != 0 {
		t.Errorf("OnPrompt fired %d times, want 0", c.prompt)
	}
	if _, ok := e.LastIdleAt(); !ok {
		t.Error("LastIdleAt() not recorded after idle transition")
	}
	if e.sched.Pending() {
		t.Error("scheduler still pending after idle transition")
	}

	// Idle is sticky until a pulse arrives.
	fc.Advance(time.Minute)
	if got := e.Phase(); got != PhaseIdle {
		t.Errorf("Phase() = %v, want idle to persist", got)
	}
}

func TestCountdownWithPrompt(t *testing.T) {
	fc := clock.NewFake()
	e, c := newTestEngine(t, fc, Config{
		Timeout:      10 * time.Second,
		PromptBefore: 3 * time.Second,
		Autostart:    true,
	})

	fc.Advance(7 * time.Second)
	if got := e.Phase(); got != PhasePrompting {
		t.Fatalf("Phase() after 7s = %v, want prompting", got)
	}
	if c.prompt != 1 {
		t.Errorf("OnPrompt fired %d times, want 1", c.prompt)
	}
	if got := e.Remaining(); got != 3*time.Second {
		t.Errorf("Remaining() while prompting = %v, want 3s", got)
	}

	fc.Advance(3 * time.Second)
	if got := e.Phase(); got != PhaseIdle {
		t.Fatalf("Phase() after 10s = %v, want idle", got)
	}
	if c.idle != 1 {
		t.Errorf("OnIdle fired %d times, want 1", c.idle)
	}
}

func TestResetRestartsCountdown(t *testing.T) {
	fc := clock.NewFake()
	e, c := newTestEngine(t, fc, Config{
		Timeout:      10 * time.Second,
		PromptBefore: 3 * time.Second,
		Autostart:    true,
	})

	fc.Advance(2 * time.Second)
	e.Reset()

	if got := e.Phase(); got != PhaseActive {
		t.Fatalf("Phase() after reset = %v, want active", got)
	}
	if got := e.Remaining(); got != 10*time.Second {
		t.Errorf("Remaining() after reset = %v, want 10s", got)
	}
	if c.active != 0 {
		t.Errorf("OnActive fired %d times on active-to-active reset, want 0", c.active)
	}

	// The restarted countdown runs on the new deadlines.
	fc.Advance(7 * time.Second)
	if got := e.Phase(); got != PhasePrompting {
		t.Errorf("Phase() 7s after reset = %v, want prompting", got)
	}
}

func TestResetFromPromptingFiresOnActive(t *testing.T) {
	fc := clock.NewFake()
	e, c := newTestEngine(t, fc, Config{
		Timeout:      10 * time.Second,
		PromptBefore: 3 * time.Second,
		Autostart:    true,
	})

	fc.Advance(8 * time.Second)
	if got := e.Phase(); got != PhasePrompting {
		t.Fatalf("Phase() = %v, want prompting", got)
	}

	e.Reset()
	if c.active != 1 {
		t.Errorf("OnActive fired %d times on prompting-to-active reset, want 1", c.active)
	}
}

func TestActivityPulseFromIdle(t *testing.T) {
	fc := clock.NewFake()
	e, c := newTestEngine(t, fc, Config{Timeout: 10 * time.Second, Autostart: true})

	fc.Advance(10 * time.Second)
	if got := e.Phase(); got != PhaseIdle {
		t.Fatalf("Phase() = %v, want idle", got)
	}

	e.ActivityPulse()
	if got := e.Phase(); got != PhaseActive {
		t.Fatalf("Phase() after pulse = %v, want active", got)
	}
	if c.active != 1 {
		t.Errorf("OnActive fired %d times on idle-to-active pulse, want 1", c.active)
	}
	if got := e.Remaining(); got != 10*time.Second {
		t.Errorf("Remaining() after pulse = %v, want 10s", got)
	}
}

func TestPauseFreezesRemaining(t *testing.T) {
	fc := clock.NewFake()
	e, _ := newTestEngine(t, fc, Config{Timeout: 10 * time.Second, Autostart: true})

	fc.Advance(3 * time.Second)
	e.Pause()

	if got := e.Phase(); got != PhasePaused {
		t.Fatalf("Phase() = %v, want paused", got)
	}
	if e.sched.Pending() {
		t.Error("scheduler still pending while paused")
	}

	// Wall clock moves; the banked remainder does not.
	fc.Advance(5 * time.Second)
	if got := e.Remaining(); got != 7*time.Second {
		t.Errorf("Remaining() while paused = %v, want 7s", got)
	}

	e.Resume()
	if got := e.Remaining(); got != 7*time.Second {
		t.Errorf("Remaining() right after resume = %v, want 7s", got)
	}

	fc.Advance(time.Second)
	if got := e.Remaining(); got != 6*time.Second {
		t.Errorf("Remaining() 1s after resume = %v, want 6s", got)
	}

	fc.Advance(6 * time.Second)
	if got := e.Phase(); got != PhaseIdle {
		t.Errorf("Phase() = %v, want idle after the banked time elapses", got)
	}
}

func TestPauseIdempotent(t *testing.T) {
	fc := clock.NewFake()
	e, _ := newTestEngine(t, fc, Config{Timeout: 10 * time.Second, Autostart: true})

	fc.Advance(4 * time.Second)
	e.Pause()
	before := e.Remaining()

	fc.Advance(2 * time.Second)
	e.Pause()

	if got := e.Remaining(); got != before {
		t.Errorf("Remaining() after second Pause = %v, want %v", got, before)
	}
	if got := e.Phase(); got != PhasePaused {
		t.Errorf("Phase() = %v, want paused", got)
	}
}

func TestResumeWithoutPauseNoOp(t *testing.T) {
	fc := clock.NewFake()
	e, c := newTestEngine(t, fc, Config{Timeout: 10 * time.Second, Autostart: true})

	fc.Advance(3 * time.Second)
	e.Resume()

	if got := e.Phase(); got != PhaseActive {
		t.Errorf("Phase() = %v, want active", got)
	}
	if got := e.Remaining(); got != 7*time.Second {
		t.Errorf("Remaining() = %v, want 7s untouched by stray Resume", got)
	}
	if c.active != 0 {
		t.Errorf("OnActive fired %d times, want 0", c.active)
	}
}

func TestPauseResumeRoundTrip(t *testing.T) {
	fc := clock.NewFake()
	e, _ := newTestEngine(t, fc, Config{Timeout: 10 * time.Second, Autostart: true})

	fc.Advance(3500 * time.Millisecond)
	before := e.Remaining()

	e.Pause()
	e.Resume()

	if got := e.Remaining(); got != before {
		t.Errorf("Remaining() after pause/resume round trip = %v, want %v", got, before)
	}
}

func TestResumeInsidePromptWindow(t *testing.T) {
	fc := clock.NewFake()
	e, c := newTestEngine(t, fc, Config{
		Timeout:      10 * time.Second,
		PromptBefore: 3 * time.Second,
		Autostart:    true,
	})

	// Pause with 2s left, inside the 3s prompt window.
	fc.Advance(8 * time.Second)
	e.Pause()
	if got := e.Remaining(); got != 2*time.Second {
		t.Fatalf("Remaining() at pause = %v, want 2s", got)
	}

	fc.Advance(time.Minute)
	e.Resume()

	if got := e.Phase(); got != PhasePrompting {
		t.Fatalf("Phase() after resume = %v, want prompting immediately", got)
	}

	fc.Advance(2*time.Second - time.Millisecond)
	if got := e.Phase(); got != PhasePrompting {
		t.Errorf("Phase() = %v, want still prompting just before deadline", got)
	}

	fc.Advance(time.Millisecond)
	if got := e.Phase(); got != PhaseIdle {
		t.Errorf("Phase() = %v, want idle exactly 2s after resume", got)
	}
	if c.idle != 1 {
		t.Errorf("OnIdle fired %d times, want 1", c.idle)
	}
}

func TestResumeWhilePromptingDoesNotRefirePrompt(t *testing.T) {
	fc := clock.NewFake()
	e, c := newTestEngine(t, fc, Config{
		Timeout:      10 * time.Second,
		PromptBefore: 3 * time.Second,
		Autostart:    true,
	})

	// The warning fired at 7s; pausing and resuming inside the window
	// must not surface it a second time.
	fc.Advance(8 * time.Second)
	prompts := c.prompt
	e.Pause()
	e.Resume()

	if got := e.Phase(); got != PhasePrompting {
		t.Fatalf("Phase() = %v, want prompting", got)
	}
	if c.prompt != prompts {
		t.Errorf("OnPrompt fired %d times, want %d", c.prompt, prompts)
	}
}

func TestResumeAfterPauseInIdle(t *testing.T) {
	fc := clock.NewFake()
	e, c := newTestEngine(t, fc, Config{Timeout: 10 * time.Second, Autostart: true})

	fc.Advance(10 * time.Second)
	if c.idle != 1 {
		t.Fatalf("OnIdle fired %d times, want 1", c.idle)
	}

	e.Pause()
	if got := e.Remaining(); got != 0 {
		t.Errorf("Remaining() paused from idle = %v, want 0", got)
	}

	fc.Advance(30 * time.Second)
	e.Resume()

	if got := e.Phase(); got != PhaseIdle {
		t.Errorf("Phase() after resume = %v, want idle", got)
	}
	if c.idle != 1 {
		t.Errorf("OnIdle fired %d times after resume, want still 1", c.idle)
	}
	if e.sched.Pending() {
		t.Error("scheduler pending after resume into idle")
	}
}

func TestStartPausedThenResume(t *testing.T) {
	fc := clock.NewFake()
	e, _ := newTestEngine(t, fc, Config{Timeout: 10 * time.Second})

	if got := e.Phase(); got != PhasePaused {
		t.Fatalf("Phase() = %v, want paused", got)
	}

	fc.Advance(time.Hour)
	e.Resume()

	if got := e.Phase(); got != PhaseActive {
		t.Fatalf("Phase() = %v, want active", got)
	}
	if got := e.Remaining(); got != 10*time.Second {
		t.Errorf("Remaining() = %v, want the full 10s", got)
	}
}

func TestActivityPulseIgnoredWhilePaused(t *testing.T) {
	fc := clock.NewFake()
	e, _ := newTestEngine(t, fc, Config{Timeout: 10 * time.Second, Autostart: true})

	fc.Advance(4 * time.Second)
	e.Pause()
	e.ActivityPulse()

	if got := e.Phase(); got != PhasePaused {
		t.Errorf("Phase() = %v, want paused despite pulse", got)
	}
	if got := e.Remaining(); got != 6*time.Second {
		t.Errorf("Remaining() = %v, want the banked 6s", got)
	}
}

func TestBackgroundForegroundAliases(t *testing.T) {
	fc := clock.NewFake()
	e, _ := newTestEngine(t, fc, Config{Timeout: 10 * time.Second, Autostart: true})

	fc.Advance(2 * time.Second)
	e.OnBackground()
	if got := e.Phase(); got != PhasePaused {
		t.Fatalf("Phase() after OnBackground = %v, want paused", got)
	}

	// Redundant lifecycle signals are no-ops.
	e.OnBackground()
	e.OnForeground()
	e.OnForeground()

	if got := e.Phase(); got != PhaseActive {
		t.Fatalf("Phase() after OnForeground = %v, want active", got)
	}
	if got := e.Remaining(); got != 8*time.Second {
		t.Errorf("Remaining() = %v, want 8s", got)
	}
}

func TestRemainingNeverNegative(t *testing.T) {
	fc := clock.NewFake()
	e, _ := newTestEngine(t, fc, Config{Timeout: 10 * time.Second, Autostart: true})

	for i := 0; i < 30; i++ {
		if got := e.Remaining(); got < 0 {
			t.Fatalf("Remaining() = %v at step %d, want >= 0", got, i)
		}
		fc.Advance(700 * time.Millisecond)
	}
}

func TestRemainingSecondsRounds(t *testing.T) {
	fc := clock.NewFake()
	e, _ := newTestEngine(t, fc, Config{Timeout: 10 * time.Second, Autostart: true})

	fc.Advance(2600 * time.Millisecond) // 7.4s remaining
	if got := e.RemainingSeconds(); got != 7 {
		t.Errorf("RemainingSeconds() = %d, want 7", got)
	}

	fc.Advance(800 * time.Millisecond) // 6.6s remaining
	if got := e.RemainingSeconds(); got != 7 {
		t.Errorf("RemainingSeconds() = %d, want 7 (rounded up)", got)
	}
}

func TestStopCancelsPendingCallback(t *testing.T) {
	fc := clock.NewFake()
	e, c := newTestEngine(t, fc, Config{Timeout: 10 * time.Second, Autostart: true})

	e.Stop()
	if e.sched.Pending() {
		t.Error("scheduler pending after Stop")
	}

	fc.Advance(time.Minute)
	if c.idle != 0 {
		t.Errorf("OnIdle fired %d times after Stop, want 0", c.idle)
	}

	// Operations on a stopped engine are inert.
	e.Reset()
	e.Resume()
	if got := e.Phase(); got != PhaseActive {
		t.Errorf("Phase() = %v, want the pre-Stop phase to stick", got)
	}
}

func TestCallbackMayReenterEngine(t *testing.T) {
	fc := clock.NewFake()

	var e *Engine
	var err error
	e, err = New(Config{
		Timeout:      10 * time.Second,
		PromptBefore: 3 * time.Second,
		Autostart:    true,
		Clock:        fc,
		// A presentation layer dismissing the warning by simulating
		// activity must not deadlock or corrupt state.
		OnPrompt: func() { e.Reset() },
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer e.Stop()

	fc.Advance(7 * time.Second)

	if got := e.Phase(); got != PhaseActive {
		t.Fatalf("Phase() = %v, want active after re-entrant reset", got)
	}
	if got := e.Remaining(); got != 10*time.Second {
		t.Errorf("Remaining() = %v, want a fresh 10s", got)
	}
}

func TestLastActiveAtTracking(t *testing.T) {
	fc := clock.NewFake()
	e, _ := newTestEngine(t, fc, Config{Timeout: 10 * time.Second})

	if _, ok := e.LastActiveAt(); ok {
		t.Error("LastActiveAt() set before any activity")
	}

	e.Resume()
	at, ok := e.LastActiveAt()
	if !ok {
		t.Fatal("LastActiveAt() not recorded on resume")
	}
	if !at.Equal(fc.Now()) {
		t.Errorf("LastActiveAt() = %v, want %v", at, fc.Now())
	}

	// Once set, the timestamp survives later transitions.
	fc.Advance(10 * time.Second)
	if _, ok := e.LastActiveAt(); !ok {
		t.Error("LastActiveAt() lost after idle transition")
	}
}

func TestDebugLogging(t *testing.T) {
	fc := clock.NewFake()
	var buf bytes.Buffer

	e, err := New(Config{
		Timeout:     10 * time.Second,
		Autostart:   true,
		Debug:       true,
		DebugWriter: &buf,
		Clock:       fc,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer e.Stop()

	fc.Advance(10 * time.Second)

	out := buf.String()
	if !strings.Contains(out, "reset") || !strings.Contains(out, "idle") {
		t.Errorf("debug output missing transitions: %q", out)
	}
}
