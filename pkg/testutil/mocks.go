package testutil

import (
	"sync"
	"time"

	"github.com/idlewatch/idlewatch/pkg/notification"
)

// MockNotifier is a thread-safe mock implementation of notification.Notifier for testing
type MockNotifier struct {
	mu            sync.Mutex
	notifications []notification.Notification
	attempts      []notification.Notification // Track all send attempts
	sendErr       error
	sendDelay     time.Duration
}

// NewMockNotifier creates a new mock notifier
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{
		notifications: []notification.Notification{},
		attempts:      []notification.Notification{},
	}
}

// Send implements the Notifier interface
func (m *MockNotifier) Send(n notification.Notification) error {
	if m.sendDelay > 0 {
		time.Sleep(m.sendDelay)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Always track the attempt
	m.attempts = append(m.attempts, n)

	if m.sendErr != nil {
		return m.sendErr
	}

	m.notifications = append(m.notifications, n)
	return nil
}

// GetNotifications returns a copy of successfully sent notifications
func (m *MockNotifier) GetNotifications() []notification.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]notification.Notification, len(m.notifications))
	copy(result, m.notifications)
	return result
}

// GetAttempts returns a copy of all send attempts, including failures
func (m *MockNotifier) GetAttempts() []notification.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]notification.Notification, len(m.attempts))
	copy(result, m.attempts)
	return result
}

// SetError makes subsequent Send calls fail with err
func (m *MockNotifier) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendErr = err
}

// SetDelay makes Send sleep before recording the attempt
func (m *MockNotifier) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendDelay = d
}

// Reset clears recorded notifications and attempts
func (m *MockNotifier) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = m.notifications[:0]
	m.attempts = m.attempts[:0]
}

// MockRateLimiter is a mock implementation of interfaces.RateLimiter
// with a fixed allow decision.
type MockRateLimiter struct {
	mu         sync.Mutex
	allow      bool
	allowCalls int
	resetCalls int
}

// NewMockRateLimiter creates a rate limiter that always answers allow
func NewMockRateLimiter(allow bool) *MockRateLimiter {
	return &MockRateLimiter{allow: allow}
}

// Allow implements the RateLimiter interface
func (m *MockRateLimiter) Allow() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.allowCalls++
	return m.allow
}

// Reset implements the RateLimiter interface
func (m *MockRateLimiter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetCalls++
}

// SetAllow changes the fixed decision
func (m *MockRateLimiter) SetAllow(allow bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.allow = allow
}

// AllowCalls returns how many times Allow was called
func (m *MockRateLimiter) AllowCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.allowCalls
}

// ResetCalls returns how many times Reset was called
func (m *MockRateLimiter) ResetCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resetCalls
}

// MockActivityHandler counts activity pulses for monitor tests
type MockActivityHandler struct {
	mu     sync.Mutex
	pulses int
}

// NewMockActivityHandler creates a new mock activity handler
func NewMockActivityHandler() *MockActivityHandler {
	return &MockActivityHandler{}
}

// ActivityPulse implements the ActivityHandler interface
func (m *MockActivityHandler) ActivityPulse() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pulses++
}

// Pulses returns the number of pulses received
func (m *MockActivityHandler) Pulses() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pulses
}

// MockLifecycleHandler records background and foreground transitions
type MockLifecycleHandler struct {
	mu          sync.Mutex
	backgrounds int
	foregrounds int
}

// NewMockLifecycleHandler creates a new mock lifecycle handler
func NewMockLifecycleHandler() *MockLifecycleHandler {
	return &MockLifecycleHandler{}
}

// OnBackground implements the LifecycleHandler interface
func (m *MockLifecycleHandler) OnBackground() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.backgrounds++
}

// OnForeground implements the LifecycleHandler interface
func (m *MockLifecycleHandler) OnForeground() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.foregrounds++
}

// Backgrounds returns the number of OnBackground calls
func (m *MockLifecycleHandler) Backgrounds() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.backgrounds
}

// Foregrounds returns the number of OnForeground calls
func (m *MockLifecycleHandler) Foregrounds() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.foregrounds
}
