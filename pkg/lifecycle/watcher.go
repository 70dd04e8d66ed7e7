// Package lifecycle translates job-control signals into background and
// foreground transitions on the idle engine.
package lifecycle

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/idlewatch/idlewatch/pkg/interfaces"
)

// SignalWatcher listens for SIGTSTP and SIGCONT and forwards them as
// lifecycle transitions. On SIGTSTP it pauses the handler first, then
// stops the process for real, so no countdown time elapses while the
// session is suspended.
type SignalWatcher struct {
	handler interfaces.LifecycleHandler
	sigChan chan os.Signal
	done    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool

	// suspend is replaceable in tests; the default sends SIGSTOP to
	// our own process group.
	suspend func() error
}

// NewSignalWatcher creates a watcher delivering transitions to handler.
func NewSignalWatcher(handler interfaces.LifecycleHandler) *SignalWatcher {
	return &SignalWatcher{
		handler: handler,
		done:    make(chan struct{}),
		suspend: func() error {
			return syscall.Kill(0, syscall.SIGSTOP)
		},
	}
}

// Start begins listening for job-control signals.
func (w *SignalWatcher) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return
	}
	w.started = true

	w.sigChan = make(chan os.Signal, 2)
	signal.Notify(w.sigChan, syscall.SIGTSTP, syscall.SIGCONT)

	w.wg.Add(1)
	go w.watch()
}

// Stop stops listening and waits for the watcher goroutine to exit.
func (w *SignalWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.started {
		return
	}
	w.started = false

	signal.Stop(w.sigChan)
	close(w.done)
	w.wg.Wait()
}

func (w *SignalWatcher) watch() {
	defer w.wg.Done()

	for {
		select {
		case sig := <-w.sigChan:
			switch sig {
			case syscall.SIGTSTP:
				// Pause the countdown before the process group
				// actually stops. SIGCONT wakes us back up and
				// arrives on the same channel.
				w.handler.OnBackground()
				if err := w.suspend(); err != nil {
					// Could not stop; undo the pause so the
					// countdown keeps running.
					w.handler.OnForeground()
				}
			case syscall.SIGCONT:
				w.handler.OnForeground()
			}
		case <-w.done:
			return
		}
	}
}
