// Package notification provides notification functionality.
package notification

import "time"

// Events a notification can describe.
const (
	EventPrompt = "prompt"
	EventIdle   = "idle"
	EventActive = "active"
)

// Notification represents a notification to be sent.
type Notification struct {
	Title   string
	Message string
	Time    time.Time
	Event   string
}

// Notifier sends notifications.
type Notifier interface {
	Send(notification Notification) error
}
