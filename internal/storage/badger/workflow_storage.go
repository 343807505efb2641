package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// WorkflowStorage implements the WorkflowStorage interface for Badger
type WorkflowStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewWorkflowStorage creates a new WorkflowStorage instance
func NewWorkflowStorage(db *BadgerDB, logger arbor.ILogger) interfaces.WorkflowStorage {
	return &WorkflowStorage{
		db:     db,
		logger: logger,
	}
}

func (s *WorkflowStorage) SaveWorkflow(ctx context.Context, workflow *models.Workflow) error {
	if workflow.ID == "" {
		return fmt.Errorf("workflow ID is required")
	}
	if err := s.db.Store().Upsert(workflow.ID, workflow); err != nil {
		return fmt.Errorf("failed to save workflow: %w", err)
	}
	return nil
}

func (s *WorkflowStorage) GetWorkflow(ctx context.Context, id string) (*models.Workflow, error) {
	var workflow models.Workflow
	if err := s.db.Store().Get(id, &workflow); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get workflow: %w", err)
	}
	return &workflow, nil
}

func (s *WorkflowStorage) ListWorkflows(ctx context.Context, projectID string) ([]*models.Workflow, error) {
	query := badgerhold.Where("ProjectID").Eq(projectID).SortBy("CreatedAt").Reverse()

	var workflows []models.Workflow
	if err := s.db.Store().Find(&workflows, query); err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	result := make([]*models.Workflow, len(workflows))
	for i := range workflows {
		result[i] = &workflows[i]
	}
	return result, nil
}

func (s *WorkflowStorage) DeleteWorkflow(ctx context.Context, id string) error {
	if err := s.db.Store().DeleteMatching(&models.WorkflowRun{}, badgerhold.Where("WorkflowID").Eq(id)); err != nil {
		return fmt.Errorf("failed to delete workflow runs: %w", err)
	}
	if err := s.db.Store().Delete(id, &models.Workflow{}); err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}
	return nil
}

func (s *WorkflowStorage) DeleteWorkflowsByProject(ctx context.Context, projectID string) error {
	if err := s.db.Store().DeleteMatching(&models.Workflow{}, badgerhold.Where("ProjectID").Eq(projectID)); err != nil {
		return fmt.Errorf("failed to delete workflows by project: %w", err)
	}
	return nil
}

func (s *WorkflowStorage) SaveRun(ctx context.Context, run *models.WorkflowRun) error {
	if run.ID == "" {
		return fmt.Errorf("run ID is required")
	}
	if err := s.db.Store().Upsert(run.ID, run); err != nil {
		return fmt.Errorf("failed to save workflow run: %w", err)
	}
	return nil
}

func (s *WorkflowStorage) GetRun(ctx context.Context, id string) (*models.WorkflowRun, error) {
	var run models.WorkflowRun
	if err := s.db.Store().Get(id, &run); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get workflow run: %w", err)
	}
	return &run, nil
}

func (s *WorkflowStorage) ListRuns(ctx context.Context, workflowID string, limit, offset int) ([]*models.WorkflowRun, error) {
	query := badgerhold.Where("WorkflowID").Eq(workflowID).SortBy("CreatedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Skip(offset)
	}

	var runs []models.WorkflowRun
	if err := s.db.Store().Find(&runs, query); err != nil {
		return nil, fmt.Errorf("failed to list workflow runs: %w", err)
	}

	result := make([]*models.WorkflowRun, len(runs))
	for i := range runs {
		result[i] = &runs[i]
	}
	return result, nil
}

func (s *WorkflowStorage) GetRunsByStatus(ctx context.Context, status models.WorkflowStatus) ([]*models.WorkflowRun, error) {
	var runs []models.WorkflowRun
	if err := s.db.Store().Find(&runs, badgerhold.Where("Status").Eq(status).SortBy("CreatedAt")); err != nil {
		return nil, fmt.Errorf("failed to get runs by status: %w", err)
	}

	result := make([]*models.WorkflowRun, len(runs))
	for i := range runs {
		result[i] = &runs[i]
	}
	return result, nil
}

func (s *WorkflowStorage) DeleteRunsByProject(ctx context.Context, projectID string) error {
	if err := s.db.Store().DeleteMatching(&models.WorkflowRun{}, badgerhold.Where("ProjectID").Eq(projectID)); err != nil {
		return fmt.Errorf("failed to delete runs by project: %w", err)
	}
	return nil
}
