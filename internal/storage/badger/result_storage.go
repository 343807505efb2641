package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// ResultStorage implements the ResultStorage interface for Badger
type ResultStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewResultStorage creates a new ResultStorage instance
func NewResultStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ResultStorage {
	return &ResultStorage{
		db:     db,
		logger: logger,
	}
}

func (s *ResultStorage) SaveResult(ctx context.Context, result *models.Result) error {
	if result.ID == "" {
		return fmt.Errorf("result ID is required")
	}
	if err := s.db.Store().Upsert(result.ID, result); err != nil {
		return fmt.Errorf("failed to save result: %w", err)
	}
	return nil
}

func (s *ResultStorage) GetResultsByJob(ctx context.Context, jobID string) ([]*models.Result, error) {
	var results []models.Result
	if err := s.db.Store().Find(&results, badgerhold.Where("JobID").Eq(jobID).SortBy("CreatedAt")); err != nil {
		return nil, fmt.Errorf("failed to get results by job: %w", err)
	}

	out := make([]*models.Result, len(results))
	for i := range results {
		out[i] = &results[i]
	}
	return out, nil
}

func (s *ResultStorage) ListResults(ctx context.Context, jobID string, resultType models.ResultType, limit, offset int) ([]*models.Result, error) {
	query := badgerhold.Where("JobID").Eq(jobID)
	if resultType != "" {
		query = query.And("ResultType").Eq(resultType)
	}
	query = query.SortBy("CreatedAt")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Skip(offset)
	}

	var results []models.Result
	if err := s.db.Store().Find(&results, query); err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}

	out := make([]*models.Result, len(results))
	for i := range results {
		out[i] = &results[i]
	}
	return out, nil
}

func (s *ResultStorage) DeleteResultsByJob(ctx context.Context, jobID string) error {
	if err := s.db.Store().DeleteMatching(&models.Result{}, badgerhold.Where("JobID").Eq(jobID)); err != nil {
		return fmt.Errorf("failed to delete results by job: %w", err)
	}
	return nil
}
