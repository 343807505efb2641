package models

import "time"

// ProjectStatus represents the lifecycle state of a project
type ProjectStatus string

const (
	ProjectStatusActive    ProjectStatus = "active"
	ProjectStatusCompleted ProjectStatus = "completed"
	ProjectStatusArchived  ProjectStatus = "archived"
	ProjectStatusOnHold    ProjectStatus = "on_hold"
)

// Project is the top-level scope container. Every asset, job, vulnerability,
// credential and workflow belongs to exactly one project; deleting a project
// cascades to all of its children.
type Project struct {
	ID          string                 `json:"id" badgerhold:"key"`
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Status      ProjectStatus          `json:"status"`
	Scope       map[string]interface{} `json:"scope,omitempty"`
	Settings    map[string]interface{} `json:"settings,omitempty"`
	CreatedBy   string                 `json:"created_by,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// NewProject creates an active project with a fresh ID
func NewProject(id, name string) *Project {
	now := time.Now()
	return &Project{
		ID:        id,
		Name:      name,
		Status:    ProjectStatusActive,
		Settings:  make(map[string]interface{}),
		CreatedAt: now,
		UpdatedAt: now,
	}
}
