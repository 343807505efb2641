package models

import "time"

// AssetType classifies a discovered network or resource atom
type AssetType string

const (
	AssetTypeHost        AssetType = "host"
	AssetTypeDomain      AssetType = "domain"
	AssetTypeSubdomain   AssetType = "subdomain"
	AssetTypeURL         AssetType = "url"
	AssetTypeService     AssetType = "service"
	AssetTypeNetwork     AssetType = "network"
	AssetTypeEndpoint    AssetType = "endpoint"
	AssetTypeCertificate AssetType = "certificate"
	AssetTypeTechnology  AssetType = "technology"
)

// AssetStatus represents the tracking state of an asset
type AssetStatus string

const (
	AssetStatusActive   AssetStatus = "active"
	AssetStatusInactive AssetStatus = "inactive"
	AssetStatusArchived AssetStatus = "archived"
)

// RelationType classifies a directed edge between two assets
type RelationType string

const (
	RelationHasService  RelationType = "has_service"
	RelationResolvesTo  RelationType = "resolves_to"
	RelationBelongsTo   RelationType = "belongs_to"
	RelationHosts       RelationType = "hosts"
	RelationUses        RelationType = "uses"
	RelationRedirectsTo RelationType = "redirects_to"
)

// Asset is a discovered target or resource tracked within a project.
// The tuple (ProjectID, Type, Value) is unique; inserting a duplicate
// merges into the existing row (see the upsert layer).
type Asset struct {
	ID           string                 `json:"id" badgerhold:"key"`
	ProjectID    string                 `json:"project_id" badgerhold:"index"`
	Type         AssetType              `json:"type" badgerhold:"index"`
	Value        string                 `json:"value"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	Tags         []string               `json:"tags,omitempty"`
	RiskScore    int                    `json:"risk_score"`
	Status       AssetStatus            `json:"status"`
	DiscoveredBy string                 `json:"discovered_by,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

// NewAsset creates an active asset
func NewAsset(id, projectID string, assetType AssetType, value string) *Asset {
	now := time.Now()
	return &Asset{
		ID:        id,
		ProjectID: projectID,
		Type:      assetType,
		Value:     value,
		Metadata:  make(map[string]interface{}),
		Status:    AssetStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// HasTag reports whether the asset carries the given tag
func (a *Asset) HasTag(tag string) bool {
	for _, t := range a.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// AddTags unions the given tags into the asset's tag set
func (a *Asset) AddTags(tags []string) {
	for _, tag := range tags {
		if tag != "" && !a.HasTag(tag) {
			a.Tags = append(a.Tags, tag)
		}
	}
}

// AssetRelation is a directed, typed edge between two assets in the same project
type AssetRelation struct {
	ID           string                 `json:"id" badgerhold:"key"`
	ProjectID    string                 `json:"project_id" badgerhold:"index"`
	ParentID     string                 `json:"parent_id" badgerhold:"index"`
	ChildID      string                 `json:"child_id" badgerhold:"index"`
	RelationType RelationType           `json:"relation_type"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
}
