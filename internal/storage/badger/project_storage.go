package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// ProjectStorage implements the ProjectStorage interface for Badger
type ProjectStorage struct {
	db      *BadgerDB
	logger  arbor.ILogger
	manager *Manager // for cascade deletes across sibling stores
}

// NewProjectStorage creates a new ProjectStorage instance
func NewProjectStorage(db *BadgerDB, logger arbor.ILogger, manager *Manager) interfaces.ProjectStorage {
	return &ProjectStorage{
		db:      db,
		logger:  logger,
		manager: manager,
	}
}

func (s *ProjectStorage) SaveProject(ctx context.Context, project *models.Project) error {
	if project.ID == "" {
		return fmt.Errorf("project ID is required")
	}
	if err := s.db.Store().Upsert(project.ID, project); err != nil {
		return fmt.Errorf("failed to save project: %w", err)
	}
	return nil
}

func (s *ProjectStorage) GetProject(ctx context.Context, id string) (*models.Project, error) {
	var project models.Project
	if err := s.db.Store().Get(id, &project); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return &project, nil
}

func (s *ProjectStorage) ListProjects(ctx context.Context) ([]*models.Project, error) {
	var projects []models.Project
	if err := s.db.Store().Find(&projects, badgerhold.Where("ID").Ne("").SortBy("CreatedAt").Reverse()); err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	result := make([]*models.Project, len(projects))
	for i := range projects {
		result[i] = &projects[i]
	}
	return result, nil
}

// DeleteProject removes the project and cascades to all child entities
func (s *ProjectStorage) DeleteProject(ctx context.Context, id string) error {
	project, err := s.GetProject(ctx, id)
	if err != nil {
		return err
	}
	if project == nil {
		return nil
	}

	if err := s.manager.asset.DeleteAssetsByProject(ctx, id); err != nil {
		return fmt.Errorf("failed to cascade asset delete: %w", err)
	}
	if err := s.manager.asset.DeleteRelationsByProject(ctx, id); err != nil {
		return fmt.Errorf("failed to cascade relation delete: %w", err)
	}
	if err := s.manager.vuln.DeleteVulnerabilitiesByProject(ctx, id); err != nil {
		return fmt.Errorf("failed to cascade vulnerability delete: %w", err)
	}
	if err := s.manager.credential.DeleteCredentialsByProject(ctx, id); err != nil {
		return fmt.Errorf("failed to cascade credential delete: %w", err)
	}

	// Results hang off jobs; delete them before the jobs go
	jobs, err := s.manager.job.ListJobs(ctx, &interfaces.JobListOptions{ProjectID: id})
	if err != nil {
		return fmt.Errorf("failed to list jobs for cascade: %w", err)
	}
	for _, job := range jobs {
		if err := s.manager.result.DeleteResultsByJob(ctx, job.ID); err != nil {
			return fmt.Errorf("failed to cascade result delete: %w", err)
		}
	}
	if err := s.manager.job.DeleteJobsByProject(ctx, id); err != nil {
		return fmt.Errorf("failed to cascade job delete: %w", err)
	}
	if err := s.manager.workflow.DeleteRunsByProject(ctx, id); err != nil {
		return fmt.Errorf("failed to cascade run delete: %w", err)
	}
	if err := s.manager.workflow.DeleteWorkflowsByProject(ctx, id); err != nil {
		return fmt.Errorf("failed to cascade workflow delete: %w", err)
	}

	if err := s.db.Store().Delete(id, &models.Project{}); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	s.logger.Info().Str("project_id", id).Msg("Project deleted with all children")
	return nil
}
