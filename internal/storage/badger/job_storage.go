package badger

import (
	"context"
	"fmt"
	"sort"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// JobStorage implements the JobStorage interface for Badger
type JobStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewJobStorage creates a new JobStorage instance
func NewJobStorage(db *BadgerDB, logger arbor.ILogger) interfaces.JobStorage {
	return &JobStorage{
		db:     db,
		logger: logger,
	}
}

func (s *JobStorage) SaveJob(ctx context.Context, job *models.Job) error {
	if job.ID == "" {
		return fmt.Errorf("job ID is required")
	}
	if err := s.db.Store().Upsert(job.ID, job); err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	return nil
}

func (s *JobStorage) GetJob(ctx context.Context, id string) (*models.Job, error) {
	var job models.Job
	if err := s.db.Store().Get(id, &job); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

func (s *JobStorage) ListJobs(ctx context.Context, opts *interfaces.JobListOptions) ([]*models.Job, error) {
	if opts == nil {
		opts = &interfaces.JobListOptions{}
	}

	var query *badgerhold.Query
	and := func(field string, value interface{}) {
		if query == nil {
			query = badgerhold.Where(field).Eq(value)
		} else {
			query = query.And(field).Eq(value)
		}
	}
	if opts.ProjectID != "" {
		and("ProjectID", opts.ProjectID)
	}
	if opts.Status != "" {
		and("Status", opts.Status)
	}
	if opts.ToolName != "" {
		and("ToolName", opts.ToolName)
	}
	if opts.WorkflowRunID != "" {
		and("WorkflowRunID", opts.WorkflowRunID)
	}
	if query == nil {
		query = badgerhold.Where("ID").Ne("")
	}
	query = query.SortBy("CreatedAt").Reverse()
	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		query = query.Skip(opts.Offset)
	}

	var jobs []models.Job
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	result := make([]*models.Job, len(jobs))
	for i := range jobs {
		result[i] = &jobs[i]
	}
	return result, nil
}

func (s *JobStorage) GetJobsByStatus(ctx context.Context, status models.JobStatus) ([]*models.Job, error) {
	var jobs []models.Job
	if err := s.db.Store().Find(&jobs, badgerhold.Where("Status").Eq(status).SortBy("CreatedAt")); err != nil {
		return nil, fmt.Errorf("failed to get jobs by status: %w", err)
	}

	result := make([]*models.Job, len(jobs))
	for i := range jobs {
		result[i] = &jobs[i]
	}
	return result, nil
}

func (s *JobStorage) DeleteJobsByProject(ctx context.Context, projectID string) error {
	var jobs []models.Job
	if err := s.db.Store().Find(&jobs, badgerhold.Where("ProjectID").Eq(projectID)); err != nil {
		return fmt.Errorf("failed to find jobs for delete: %w", err)
	}
	for i := range jobs {
		if err := s.db.Store().DeleteMatching(&models.JobOutput{}, badgerhold.Where("JobID").Eq(jobs[i].ID)); err != nil {
			return fmt.Errorf("failed to delete job outputs: %w", err)
		}
		if err := s.db.Store().DeleteMatching(&models.JobTarget{}, badgerhold.Where("JobID").Eq(jobs[i].ID)); err != nil {
			return fmt.Errorf("failed to delete job targets: %w", err)
		}
	}
	if err := s.db.Store().DeleteMatching(&models.Job{}, badgerhold.Where("ProjectID").Eq(projectID)); err != nil {
		return fmt.Errorf("failed to delete jobs by project: %w", err)
	}
	return nil
}

func (s *JobStorage) SaveOutput(ctx context.Context, output *models.JobOutput) error {
	if output.ID == "" {
		return fmt.Errorf("output ID is required")
	}
	if err := s.db.Store().Upsert(output.ID, output); err != nil {
		return fmt.Errorf("failed to save job output: %w", err)
	}
	return nil
}

// GetOutputs returns a job's output lines ordered by sequence number
func (s *JobStorage) GetOutputs(ctx context.Context, jobID string) ([]*models.JobOutput, error) {
	var outputs []models.JobOutput
	if err := s.db.Store().Find(&outputs, badgerhold.Where("JobID").Eq(jobID)); err != nil {
		return nil, fmt.Errorf("failed to get job outputs: %w", err)
	}

	sort.Slice(outputs, func(i, j int) bool {
		return outputs[i].Sequence < outputs[j].Sequence
	})

	result := make([]*models.JobOutput, len(outputs))
	for i := range outputs {
		result[i] = &outputs[i]
	}
	return result, nil
}

func (s *JobStorage) CountOutputs(ctx context.Context, jobID string) (int, error) {
	count, err := s.db.Store().Count(&models.JobOutput{}, badgerhold.Where("JobID").Eq(jobID))
	if err != nil {
		return 0, fmt.Errorf("failed to count job outputs: %w", err)
	}
	return int(count), nil
}

func (s *JobStorage) SaveTarget(ctx context.Context, target *models.JobTarget) error {
	if target.ID == "" {
		return fmt.Errorf("target ID is required")
	}
	if err := s.db.Store().Upsert(target.ID, target); err != nil {
		return fmt.Errorf("failed to save job target: %w", err)
	}
	return nil
}

func (s *JobStorage) GetTargets(ctx context.Context, jobID string) ([]*models.JobTarget, error) {
	var targets []models.JobTarget
	if err := s.db.Store().Find(&targets, badgerhold.Where("JobID").Eq(jobID)); err != nil {
		return nil, fmt.Errorf("failed to get job targets: %w", err)
	}

	result := make([]*models.JobTarget, len(targets))
	for i := range targets {
		result[i] = &targets[i]
	}
	return result, nil
}
