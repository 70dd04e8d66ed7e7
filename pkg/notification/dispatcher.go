package notification

import (
	"sync"

	"github.com/idlewatch/idlewatch/pkg/config"
	"github.com/idlewatch/idlewatch/pkg/interfaces"
)

// Dispatcher sends notifications through a Notifier with quiet-mode
// and rate-limit handling.
type Dispatcher struct {
	config      *config.Config
	notifier    Notifier
	rateLimiter interfaces.RateLimiter

	mu sync.Mutex
}

// NewDispatcher creates a new dispatcher.
func NewDispatcher(cfg *config.Config, notifier Notifier, rateLimiter interfaces.RateLimiter) *Dispatcher {
	return &Dispatcher{
		config:      cfg,
		notifier:    notifier,
		rateLimiter: rateLimiter,
	}
}

// Send delivers a notification. Quiet mode and rate-limited sends are
// silently dropped; notifications are best effort. The actual send
// happens outside the dispatcher lock so a slow notifier cannot stall
// other transition callbacks.
func (d *Dispatcher) Send(notification Notification) error {
	d.mu.Lock()
	if d.config.Quiet || d.notifier == nil {
		d.mu.Unlock()
		return nil
	}
	if d.rateLimiter != nil && !d.rateLimiter.Allow() {
		// Silently drop notification due to rate limit
		d.mu.Unlock()
		return nil
	}
	notifier := d.notifier
	d.mu.Unlock()

	return notifier.Send(notification)
}
