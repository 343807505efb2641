package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// AssetStorage implements the AssetStorage interface for Badger
type AssetStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewAssetStorage creates a new AssetStorage instance
func NewAssetStorage(db *BadgerDB, logger arbor.ILogger) interfaces.AssetStorage {
	return &AssetStorage{
		db:     db,
		logger: logger,
	}
}

func (s *AssetStorage) SaveAsset(ctx context.Context, asset *models.Asset) error {
	if asset.ID == "" {
		return fmt.Errorf("asset ID is required")
	}
	if err := s.db.Store().Upsert(asset.ID, asset); err != nil {
		return fmt.Errorf("failed to save asset: %w", err)
	}
	return nil
}

func (s *AssetStorage) GetAsset(ctx context.Context, id string) (*models.Asset, error) {
	var asset models.Asset
	if err := s.db.Store().Get(id, &asset); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}
	return &asset, nil
}

func (s *AssetStorage) GetAssetByValue(ctx context.Context, projectID string, assetType models.AssetType, value string) (*models.Asset, error) {
	var assets []models.Asset
	query := badgerhold.Where("ProjectID").Eq(projectID).
		And("Type").Eq(assetType).
		And("Value").Eq(value).
		Limit(1)
	if err := s.db.Store().Find(&assets, query); err != nil {
		return nil, fmt.Errorf("failed to query asset: %w", err)
	}
	if len(assets) == 0 {
		return nil, nil
	}
	return &assets[0], nil
}

func (s *AssetStorage) FindAssetByProjectValue(ctx context.Context, projectID, value string) (*models.Asset, error) {
	var assets []models.Asset
	query := badgerhold.Where("ProjectID").Eq(projectID).And("Value").Eq(value).Limit(1)
	if err := s.db.Store().Find(&assets, query); err != nil {
		return nil, fmt.Errorf("failed to query asset: %w", err)
	}
	if len(assets) == 0 {
		return nil, nil
	}
	return &assets[0], nil
}

func (s *AssetStorage) ListAssets(ctx context.Context, projectID string, assetType models.AssetType, limit, offset int) ([]*models.Asset, error) {
	query := badgerhold.Where("ProjectID").Eq(projectID)
	if assetType != "" {
		query = query.And("Type").Eq(assetType)
	}
	query = query.SortBy("CreatedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Skip(offset)
	}

	var assets []models.Asset
	if err := s.db.Store().Find(&assets, query); err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}

	result := make([]*models.Asset, len(assets))
	for i := range assets {
		result[i] = &assets[i]
	}
	return result, nil
}

func (s *AssetStorage) DeleteAsset(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, &models.Asset{}); err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete asset: %w", err)
	}
	return nil
}

func (s *AssetStorage) DeleteAssetsByProject(ctx context.Context, projectID string) error {
	if err := s.db.Store().DeleteMatching(&models.Asset{}, badgerhold.Where("ProjectID").Eq(projectID)); err != nil {
		return fmt.Errorf("failed to delete assets by project: %w", err)
	}
	return nil
}

func (s *AssetStorage) CountAssets(ctx context.Context, projectID string) (int, error) {
	count, err := s.db.Store().Count(&models.Asset{}, badgerhold.Where("ProjectID").Eq(projectID))
	if err != nil {
		return 0, fmt.Errorf("failed to count assets: %w", err)
	}
	return int(count), nil
}

func (s *AssetStorage) SaveRelation(ctx context.Context, relation *models.AssetRelation) error {
	if relation.ID == "" {
		return fmt.Errorf("relation ID is required")
	}
	if err := s.db.Store().Upsert(relation.ID, relation); err != nil {
		return fmt.Errorf("failed to save relation: %w", err)
	}
	return nil
}

func (s *AssetStorage) GetRelations(ctx context.Context, assetID string) ([]*models.AssetRelation, error) {
	var relations []models.AssetRelation
	query := badgerhold.Where("ParentID").Eq(assetID).Or(badgerhold.Where("ChildID").Eq(assetID))
	if err := s.db.Store().Find(&relations, query); err != nil {
		return nil, fmt.Errorf("failed to get relations: %w", err)
	}

	result := make([]*models.AssetRelation, len(relations))
	for i := range relations {
		result[i] = &relations[i]
	}
	return result, nil
}

func (s *AssetStorage) DeleteRelationsByProject(ctx context.Context, projectID string) error {
	if err := s.db.Store().DeleteMatching(&models.AssetRelation{}, badgerhold.Where("ProjectID").Eq(projectID)); err != nil {
		return fmt.Errorf("failed to delete relations by project: %w", err)
	}
	return nil
}
