package interfaces

import "context"

// Notification is an outbound message for external channels
type Notification struct {
	Title    string                 `json:"title"`
	Message  string                 `json:"message"`
	Severity string                 `json:"severity,omitempty"`
	Data     map[string]interface{} `json:"data,omitempty"`
}

// Notifier delivers notifications to external channels (webhook, log).
// Delivery is best-effort; failures are swallowed by callers.
type Notifier interface {
	Notify(ctx context.Context, projectID string, notification Notification) error
}
