package models

import "time"

// JobStatus represents the execution state of a job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
	JobStatusTimeout   JobStatus = "timeout"
)

// IsTerminal reports whether the status admits no further transitions
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled, JobStatusTimeout:
		return true
	}
	return false
}

// Job is one external tool execution.
//
// Lifecycle:
//
//	pending -> queued -> running -> {completed, failed, timeout, cancelled}
//
// Jobs never return to an earlier state. A retry creates a new job.
type Job struct {
	ID             string                 `json:"id" badgerhold:"key"`
	ProjectID      string                 `json:"project_id" badgerhold:"index"`
	ToolName       string                 `json:"tool_name" badgerhold:"index"`
	Parameters     map[string]interface{} `json:"parameters"`
	Command        string                 `json:"command,omitempty"`
	Status         JobStatus              `json:"status" badgerhold:"index"`
	Priority       int                    `json:"priority"`
	ExitCode       *int                   `json:"exit_code,omitempty"`
	ErrorMessage   string                 `json:"error_message,omitempty"`
	TimeoutSeconds int                    `json:"timeout_seconds"`
	StartedAt      *time.Time             `json:"started_at,omitempty"`
	CompletedAt    *time.Time             `json:"completed_at,omitempty"`
	ScheduledAt    *time.Time             `json:"scheduled_at,omitempty"`
	CronExpression string                 `json:"cron_expression,omitempty"`
	CreatedBy      string                 `json:"created_by,omitempty"`
	WorkflowRunID  string                 `json:"workflow_run_id,omitempty" badgerhold:"index"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

// NewJob creates a pending job
func NewJob(id, projectID, toolName string, parameters map[string]interface{}) *Job {
	now := time.Now()
	if parameters == nil {
		parameters = make(map[string]interface{})
	}
	return &Job{
		ID:             id,
		ProjectID:      projectID,
		ToolName:       toolName,
		Parameters:     parameters,
		Status:         JobStatusPending,
		Priority:       5,
		TimeoutSeconds: 3600,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// MarkQueued transitions the job to queued
func (j *Job) MarkQueued() {
	j.Status = JobStatusQueued
	j.UpdatedAt = time.Now()
}

// MarkRunning transitions the job to running and records the start time
func (j *Job) MarkRunning() {
	now := time.Now()
	j.Status = JobStatusRunning
	j.StartedAt = &now
	j.UpdatedAt = now
}

// MarkCompleted transitions the job to completed with the given exit code
func (j *Job) MarkCompleted(exitCode int) {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.ExitCode = &exitCode
	j.CompletedAt = &now
	j.UpdatedAt = now
}

// MarkFailed transitions the job to failed with an error message
func (j *Job) MarkFailed(message string) {
	now := time.Now()
	j.Status = JobStatusFailed
	j.ErrorMessage = message
	j.CompletedAt = &now
	j.UpdatedAt = now
}

// MarkTimeout transitions the job to timeout, preserving execution history
func (j *Job) MarkTimeout() {
	now := time.Now()
	j.Status = JobStatusTimeout
	j.ErrorMessage = "Job exceeded timeout"
	j.CompletedAt = &now
	j.UpdatedAt = now
}

// MarkCancelled transitions the job to cancelled
func (j *Job) MarkCancelled() {
	now := time.Now()
	j.Status = JobStatusCancelled
	j.CompletedAt = &now
	j.UpdatedAt = now
}

// JobTarget links a job to an asset it was aimed at
type JobTarget struct {
	ID      string `json:"id" badgerhold:"key"`
	JobID   string `json:"job_id" badgerhold:"index"`
	AssetID string `json:"asset_id" badgerhold:"index"`
}

// OutputType distinguishes the stream a job output line came from
type OutputType string

const (
	OutputTypeStdout OutputType = "stdout"
	OutputTypeStderr OutputType = "stderr"
)

// JobOutput is one captured line of a job's stream output. Sequence numbers
// per job form a contiguous range starting at 0.
type JobOutput struct {
	ID         string     `json:"id" badgerhold:"key"`
	JobID      string     `json:"job_id" badgerhold:"index"`
	Sequence   int        `json:"sequence"`
	OutputType OutputType `json:"output_type"`
	Content    string     `json:"content"`
	Timestamp  time.Time  `json:"timestamp"`
}
