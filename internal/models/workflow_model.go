package models

import "time"

// WorkflowStatus represents the state of a workflow run
type WorkflowStatus string

const (
	WorkflowStatusPending         WorkflowStatus = "pending"
	WorkflowStatusRunning         WorkflowStatus = "running"
	WorkflowStatusPaused          WorkflowStatus = "paused"
	WorkflowStatusWaitingApproval WorkflowStatus = "waiting_approval"
	WorkflowStatusCompleted       WorkflowStatus = "completed"
	WorkflowStatusFailed          WorkflowStatus = "failed"
	WorkflowStatusCancelled       WorkflowStatus = "cancelled"
)

// IsTerminal reports whether the run status admits no further transitions
func (s WorkflowStatus) IsTerminal() bool {
	switch s {
	case WorkflowStatusCompleted, WorkflowStatusFailed, WorkflowStatusCancelled:
		return true
	}
	return false
}

// NodeType classifies a workflow node
type NodeType string

const (
	NodeTypeTool         NodeType = "tool"
	NodeTypeCondition    NodeType = "condition"
	NodeTypeDelay        NodeType = "delay"
	NodeTypeNotification NodeType = "notification"
	NodeTypeParallel     NodeType = "parallel"
	NodeTypeLoop         NodeType = "loop"
	NodeTypeManual       NodeType = "manual"
)

// WorkflowNode is one node of a workflow graph. Data carries node-type
// specific options (tool name and params, condition string, delay seconds...).
type WorkflowNode struct {
	ID   string                 `json:"id" yaml:"id"`
	Type NodeType               `json:"type" yaml:"type"`
	Data map[string]interface{} `json:"data" yaml:"data"`
}

// WorkflowEdge is a directed, optionally labelled edge between two nodes
type WorkflowEdge struct {
	ID        string `json:"id" yaml:"id"`
	Source    string `json:"source" yaml:"source"`
	Target    string `json:"target" yaml:"target"`
	Label     string `json:"label,omitempty" yaml:"label,omitempty"`
	Condition string `json:"condition,omitempty" yaml:"condition,omitempty"`
}

// WorkflowDefinition is the graph a workflow executes
type WorkflowDefinition struct {
	Nodes []WorkflowNode `json:"nodes" yaml:"nodes"`
	Edges []WorkflowEdge `json:"edges" yaml:"edges"`
}

// Workflow is a named automation pipeline definition
type Workflow struct {
	ID          string                 `json:"id" badgerhold:"key"`
	ProjectID   string                 `json:"project_id,omitempty" badgerhold:"index"`
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Definition  WorkflowDefinition     `json:"definition"`
	IsTemplate  bool                   `json:"is_template"`
	Category    string                 `json:"category,omitempty"`
	Tags        []string               `json:"tags,omitempty"`
	Settings    map[string]interface{} `json:"settings,omitempty"`
	CreatedBy   string                 `json:"created_by,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// ExecutionLogEntry is one append-only record of a node visit. Entries are
// never rewritten once a later entry has been appended.
type ExecutionLogEntry struct {
	NodeID      string                 `json:"node_id"`
	NodeType    NodeType               `json:"node_type"`
	Status      string                 `json:"status"`
	StartedAt   time.Time              `json:"started_at"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	Result      map[string]interface{} `json:"result,omitempty"`
	Error       string                 `json:"error,omitempty"`
}

// WorkflowRun is one execution of a workflow
type WorkflowRun struct {
	ID            string                 `json:"id" badgerhold:"key"`
	WorkflowID    string                 `json:"workflow_id" badgerhold:"index"`
	ProjectID     string                 `json:"project_id" badgerhold:"index"`
	Status        WorkflowStatus         `json:"status" badgerhold:"index"`
	CurrentNodeID string                 `json:"current_node_id,omitempty"`
	CurrentStep   int                    `json:"current_step"`
	Context       map[string]interface{} `json:"context"`
	InputParams   map[string]interface{} `json:"input_params,omitempty"`
	ExecutionLog  []ExecutionLogEntry    `json:"execution_log"`
	ErrorMessage  string                 `json:"error_message,omitempty"`
	ErrorNodeID   string                 `json:"error_node_id,omitempty"`
	StartedAt     *time.Time             `json:"started_at,omitempty"`
	CompletedAt   *time.Time             `json:"completed_at,omitempty"`
	CreatedBy     string                 `json:"created_by,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

// NewWorkflowRun creates a pending run
func NewWorkflowRun(id string, workflow *Workflow, projectID string, inputParams map[string]interface{}) *WorkflowRun {
	now := time.Now()
	if inputParams == nil {
		inputParams = make(map[string]interface{})
	}
	return &WorkflowRun{
		ID:          id,
		WorkflowID:  workflow.ID,
		ProjectID:   projectID,
		Status:      WorkflowStatusPending,
		Context:     make(map[string]interface{}),
		InputParams: inputParams,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// NodeResult is the return value of a workflow node execution
type NodeResult struct {
	Success bool                   `json:"success"`
	Data    map[string]interface{} `json:"data,omitempty"`
	Error   string                 `json:"error,omitempty"`
	Branch  string                 `json:"branch,omitempty"`
}

// ApprovalRequired reports whether the node suspended on a manual gate
func (r *NodeResult) ApprovalRequired() bool {
	if r == nil || r.Data == nil {
		return false
	}
	required, _ := r.Data["approval_required"].(bool)
	return required
}
