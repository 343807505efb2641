package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/common"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
	"github.com/ternarybob/venator/internal/services/parsers"
	"github.com/ternarybob/venator/internal/services/runner"
)

// CreateOptions carries the optional fields of a job creation request
type CreateOptions struct {
	Priority       int
	TimeoutSeconds int
	ScheduledAt    *time.Time
	CronExpression string
	CreatedBy      string
	WorkflowRunID  string
	TargetAssetIDs []string
}

// Service owns the job lifecycle: creation, queueing, execution, cancellation
// and retry. Execution runs on the task queue; Cancel reaches a running job
// through the cancellation registry.
type Service struct {
	storage  interfaces.StorageManager
	queue    interfaces.QueueService
	events   interfaces.EventService
	runner   *runner.Service
	registry interfaces.ToolRegistry
	upserter *parsers.Upserter
	logger   arbor.ILogger

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// NewService creates the job service
func NewService(
	storage interfaces.StorageManager,
	queue interfaces.QueueService,
	events interfaces.EventService,
	runnerSvc *runner.Service,
	registry interfaces.ToolRegistry,
	upserter *parsers.Upserter,
	logger arbor.ILogger,
) *Service {
	return &Service{
		storage:  storage,
		queue:    queue,
		events:   events,
		runner:   runnerSvc,
		registry: registry,
		upserter: upserter,
		logger:   logger,
		cancels:  make(map[string]context.CancelFunc),
	}
}

// Create validates the request, renders the tool command and persists a new
// job. Jobs without a future schedule are enqueued immediately; scheduled
// jobs stay pending until the sweeper promotes them.
func (s *Service) Create(ctx context.Context, projectID, toolName string, parameters map[string]interface{}, opts *CreateOptions) (*models.Job, error) {
	if projectID == "" {
		return nil, fmt.Errorf("project_id is required")
	}
	project, err := s.storage.ProjectStorage().GetProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load project %s: %w", projectID, err)
	}
	if project == nil {
		return nil, fmt.Errorf("project %s not found", projectID)
	}

	tool, ok := s.registry.Get(toolName)
	if !ok {
		return nil, fmt.Errorf("unknown tool: %s", toolName)
	}
	command, err := s.registry.RenderCommand(toolName, parameters)
	if err != nil {
		return nil, fmt.Errorf("failed to render command for %s: %w", toolName, err)
	}

	job := models.NewJob(common.NewID(), projectID, toolName, parameters)
	job.Command = command
	if tool.DefaultTimeout > 0 {
		job.TimeoutSeconds = tool.DefaultTimeout
	}

	if opts != nil {
		if opts.Priority > 0 {
			job.Priority = opts.Priority
		}
		if opts.TimeoutSeconds > 0 {
			job.TimeoutSeconds = opts.TimeoutSeconds
		}
		job.ScheduledAt = opts.ScheduledAt
		job.CronExpression = opts.CronExpression
		job.CreatedBy = opts.CreatedBy
		job.WorkflowRunID = opts.WorkflowRunID
	}

	if err := s.storage.JobStorage().SaveJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}

	if opts != nil {
		for _, assetID := range opts.TargetAssetIDs {
			target := &models.JobTarget{ID: common.NewID(), JobID: job.ID, AssetID: assetID}
			if err := s.storage.JobStorage().SaveTarget(ctx, target); err != nil {
				return nil, fmt.Errorf("failed to save job target: %w", err)
			}
		}
	}

	s.logger.Info().
		Str("job_id", job.ID).
		Str("project_id", projectID).
		Str("tool", toolName).
		Msg("Job created")

	if s.isDue(job) {
		if err := s.Enqueue(ctx, job); err != nil {
			return nil, err
		}
	}
	return job, nil
}

// isDue reports whether the job should run now rather than wait for the
// scheduler
func (s *Service) isDue(job *models.Job) bool {
	if job.CronExpression != "" {
		return false
	}
	if job.ScheduledAt != nil && job.ScheduledAt.After(time.Now()) {
		return false
	}
	return true
}

// Enqueue transitions the job to queued and submits it to the task queue
func (s *Service) Enqueue(ctx context.Context, job *models.Job) error {
	job.MarkQueued()
	if err := s.storage.JobStorage().SaveJob(ctx, job); err != nil {
		return fmt.Errorf("failed to save job %s: %w", job.ID, err)
	}
	s.publishStatus(ctx, job)

	jobID := job.ID
	if _, err := s.queue.Enqueue("job:"+jobID, func(taskCtx context.Context) error {
		return s.Execute(taskCtx, jobID)
	}); err != nil {
		job.MarkFailed(fmt.Sprintf("failed to enqueue: %v", err))
		if saveErr := s.storage.JobStorage().SaveJob(ctx, job); saveErr != nil {
			s.logger.Warn().Err(saveErr).Str("job_id", job.ID).Msg("Failed to persist enqueue failure")
		}
		s.publishStatus(ctx, job)
		return fmt.Errorf("failed to enqueue job %s: %w", job.ID, err)
	}
	return nil
}

// Get returns a job by id
func (s *Service) Get(ctx context.Context, jobID string) (*models.Job, error) {
	return s.storage.JobStorage().GetJob(ctx, jobID)
}

// List returns jobs matching the filter options
func (s *Service) List(ctx context.Context, opts *interfaces.JobListOptions) ([]*models.Job, error) {
	return s.storage.JobStorage().ListJobs(ctx, opts)
}

// Cancel marks the job cancelled and signals its process when it is running
// in this instance. Queued jobs are dropped when the worker dequeues them.
func (s *Service) Cancel(ctx context.Context, jobID string) (*models.Job, error) {
	job, err := s.storage.JobStorage().GetJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to load job %s: %w", jobID, err)
	}
	if job == nil {
		return nil, fmt.Errorf("job %s not found", jobID)
	}
	if job.Status.IsTerminal() {
		return nil, fmt.Errorf("job %s is already %s", jobID, job.Status)
	}

	job.MarkCancelled()
	if err := s.storage.JobStorage().SaveJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to save job %s: %w", jobID, err)
	}

	s.mu.Lock()
	cancel := s.cancels[jobID]
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	s.publishStatus(ctx, job)
	s.logger.Info().Str("job_id", jobID).Msg("Job cancelled")
	return job, nil
}

// Retry creates a new queued job with the same fields as the given one.
// The original job is untouched.
func (s *Service) Retry(ctx context.Context, jobID string) (*models.Job, error) {
	original, err := s.storage.JobStorage().GetJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to load job %s: %w", jobID, err)
	}
	if original == nil {
		return nil, fmt.Errorf("job %s not found", jobID)
	}

	job := models.NewJob(common.NewID(), original.ProjectID, original.ToolName, original.Parameters)
	job.Command = original.Command
	job.Priority = original.Priority
	job.TimeoutSeconds = original.TimeoutSeconds
	job.CreatedBy = original.CreatedBy

	if err := s.storage.JobStorage().SaveJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to save retry job: %w", err)
	}
	if err := s.Enqueue(ctx, job); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("job_id", job.ID).
		Str("retried_from", original.ID).
		Msg("Job retried")
	return job, nil
}

func (s *Service) registerCancel(jobID string, cancel context.CancelFunc) {
	s.mu.Lock()
	s.cancels[jobID] = cancel
	s.mu.Unlock()
}

func (s *Service) unregisterCancel(jobID string) {
	s.mu.Lock()
	delete(s.cancels, jobID)
	s.mu.Unlock()
}

func (s *Service) publishStatus(ctx context.Context, job *models.Job) {
	payload := map[string]interface{}{
		"job_id":     job.ID,
		"project_id": job.ProjectID,
		"tool_name":  job.ToolName,
		"status":     string(job.Status),
	}
	if job.ExitCode != nil {
		payload["exit_code"] = *job.ExitCode
	}
	if job.ErrorMessage != "" {
		payload["error_message"] = job.ErrorMessage
	}
	if err := s.events.Publish(ctx, interfaces.Event{
		Type:    interfaces.EventJobStatus,
		Topic:   interfaces.JobTopic(job.ID),
		Payload: payload,
	}); err != nil {
		s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to publish job status")
	}
}
