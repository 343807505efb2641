package interfaces

import "context"

// EventType represents different event types in the system
type EventType string

const (
	EventJobStatus        EventType = "job_status"
	EventJobOutput        EventType = "job_output"
	EventProjectUpdate    EventType = "project_update"
	EventWorkflowStatus   EventType = "workflow_status"
	EventWorkflowNode     EventType = "workflow_node_status"
	EventWorkflowNotify   EventType = "workflow_notification"
	EventWorkflowApproval EventType = "workflow_approval_required"
	EventReportGenerated  EventType = "report_generated"
)

// JobTopic returns the per-job topic name
func JobTopic(jobID string) string {
	return "job:" + jobID
}

// ProjectTopic returns the per-project topic name
func ProjectTopic(projectID string) string {
	return "project:" + projectID
}

// Event represents a system event. Topic scopes delivery for external
// session layers (job:{id}, project:{id}); handlers subscribed by type
// receive every event of that type regardless of topic.
type Event struct {
	Type    EventType
	Topic   string
	Payload interface{}
}

// EventHandler is a function that handles events
type EventHandler func(ctx context.Context, event Event) error

// EventService manages the pub/sub event bus
type EventService interface {
	// Subscribe to an event type
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for every event type
	SubscribeAll(handler EventHandler) error

	// Publish an event to all subscribers asynchronously (best-effort,
	// never blocks the publisher)
	Publish(ctx context.Context, event Event) error

	// PublishSync publishes an event and waits for all handlers to complete
	PublishSync(ctx context.Context, event Event) error

	// Close shuts down the event service
	Close() error
}
