package notification

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// NtfyClient sends notifications to an ntfy server.
type NtfyClient struct {
	server string
	topic  string
	client *http.Client
}

// NewNtfyClient creates a client for the given server and topic.
func NewNtfyClient(server, topic string) *NtfyClient {
	return &NtfyClient{
		server: server,
		topic:  topic,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// ntfyMessage is the JSON publish payload ntfy accepts at the server
// root.
type ntfyMessage struct {
	Topic   string   `json:"topic"`
	Title   string   `json:"title,omitempty"`
	Message string   `json:"message,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}

// Send implements the Notifier interface.
func (c *NtfyClient) Send(notification Notification) error {
	msg := ntfyMessage{
		Topic:   c.topic,
		Title:   notification.Title,
		Message: notification.Message,
	}
	if notification.Event != "" {
		msg.Tags = []string{notification.Event}
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	resp, err := c.client.Post(c.server, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ntfy returned status %d", resp.StatusCode)
	}

	return nil
}
