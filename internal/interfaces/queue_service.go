package interfaces

import (
	"context"
	"time"
)

// TaskStatus represents the state of a queued task
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusCancelled TaskStatus = "cancelled"
)

// TaskFunc is the unit of work submitted to the queue
type TaskFunc func(ctx context.Context) error

// TaskRecord tracks one submitted task
type TaskRecord struct {
	ID          string
	Name        string
	Status      TaskStatus
	Error       string
	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// QueueService is a process-local asynchronous task executor with a bounded
// worker pool and a recurring scheduler.
type QueueService interface {
	// Enqueue submits a task for execution; returns the task ID immediately
	Enqueue(name string, fn TaskFunc) (string, error)

	// Get returns the record for a task, or nil when unknown
	Get(taskID string) *TaskRecord

	// Schedule registers a recurring task invoked every interval. Invocations
	// of the same schedule never overlap.
	Schedule(name string, interval time.Duration, fn TaskFunc) error

	// Start and Stop are idempotent
	Start() error
	Stop() error
}
