package idle

import (
	"sync"
	"time"

	"github.com/idlewatch/idlewatch/pkg/clock"
)

// Scheduler is a cancellable single-shot deferred callback. At most one
// callback is pending at a time: Schedule replaces any pending callback,
// and a callback never fires after a matching Cancel. The scheduler has
// no idle semantics of its own.
type Scheduler struct {
	mu    sync.Mutex
	clock clock.Clock
	timer clock.Timer
	seq   uint64
}

// NewScheduler creates a Scheduler on the given clock. A nil clock
// means the system clock.
func NewScheduler(c clock.Clock) *Scheduler {
	if c == nil {
		c = clock.System
	}
	return &Scheduler{clock: c}
}

// Schedule cancels any pending callback and arms fn to fire no earlier
// than d from now.
func (s *Scheduler) Schedule(d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	seq := s.seq
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = s.clock.AfterFunc(d, func() {
		// The underlying timer may fire concurrently with Schedule or
		// Cancel; the sequence check ensures a superseded callback
		// never runs.
		s.mu.Lock()
		if s.seq != seq {
			s.mu.Unlock()
			return
		}
		s.timer = nil
		s.mu.Unlock()
		fn()
	})
}

// Cancel disarms any pending callback. Safe to call repeatedly.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// Pending reports whether a callback is armed and not yet fired.
func (s *Scheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}
