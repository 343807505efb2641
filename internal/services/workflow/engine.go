package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/common"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
	"github.com/ternarybob/venator/internal/services/jobs"
)

// Engine executes workflow runs: graph traversal with an executed set,
// append-only execution log, suspension on manual approval and resume across
// process restarts via the persisted run context.
type Engine struct {
	storage  interfaces.StorageManager
	events   interfaces.EventService
	queue    interfaces.QueueService
	jobs     *jobs.Service
	notifier interfaces.Notifier
	config   *common.WorkflowConfig
	logger   arbor.ILogger
}

// NewEngine creates the workflow engine
func NewEngine(
	storage interfaces.StorageManager,
	events interfaces.EventService,
	queue interfaces.QueueService,
	jobService *jobs.Service,
	notifier interfaces.Notifier,
	config *common.WorkflowConfig,
	logger arbor.ILogger,
) *Engine {
	return &Engine{
		storage:  storage,
		events:   events,
		queue:    queue,
		jobs:     jobService,
		notifier: notifier,
		config:   config,
		logger:   logger,
	}
}

// execState is the ephemeral traversal state of one run. The mutex guards
// the executed set, the context and run persistence against a parallel
// node's concurrent branches.
type execState struct {
	workflow *models.Workflow
	run      *models.WorkflowRun
	wctx     *Context

	nodes    map[string]*models.WorkflowNode
	outgoing map[string][]models.WorkflowEdge
	incoming map[string]int

	mu       sync.Mutex
	executed map[string]bool
}

func (st *execState) setErrorNode(nodeID string) {
	st.mu.Lock()
	st.run.ErrorNodeID = nodeID
	st.mu.Unlock()
}

// StartRun validates the workflow, creates a run and dispatches execution to
// the task queue. The returned run is in pending state; callers observe
// progress via events or run queries.
func (e *Engine) StartRun(ctx context.Context, workflowID, projectID string, inputParams map[string]interface{}, createdBy string) (*models.WorkflowRun, error) {
	wf, err := e.storage.WorkflowStorage().GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow %s: %w", workflowID, err)
	}
	if wf == nil {
		return nil, fmt.Errorf("workflow %s not found", workflowID)
	}
	if err := ValidateDefinition(&wf.Definition); err != nil {
		return nil, fmt.Errorf("invalid workflow definition: %w", err)
	}
	if projectID == "" {
		projectID = wf.ProjectID
	}

	run := models.NewWorkflowRun(common.NewID(), wf, projectID, inputParams)
	run.CreatedBy = createdBy
	if err := e.storage.WorkflowStorage().SaveRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to save workflow run: %w", err)
	}

	runID := run.ID
	if _, err := e.queue.Enqueue("workflow:"+runID, func(taskCtx context.Context) error {
		return e.ExecuteRun(taskCtx, runID)
	}); err != nil {
		return nil, fmt.Errorf("failed to enqueue workflow run %s: %w", runID, err)
	}

	e.logger.Info().
		Str("run_id", run.ID).
		Str("workflow_id", workflowID).
		Str("project_id", projectID).
		Msg("Workflow run started")
	return run, nil
}

// ExecuteRun drives a pending run to a terminal or waiting_approval state
func (e *Engine) ExecuteRun(ctx context.Context, runID string) error {
	run, err := e.storage.WorkflowStorage().GetRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to load run %s: %w", runID, err)
	}
	if run == nil {
		return fmt.Errorf("run %s not found", runID)
	}
	if run.Status != models.WorkflowStatusPending {
		e.logger.Debug().
			Str("run_id", runID).
			Str("status", string(run.Status)).
			Msg("Skipping run not in pending state")
		return nil
	}

	wf, err := e.storage.WorkflowStorage().GetWorkflow(ctx, run.WorkflowID)
	if err != nil {
		return fmt.Errorf("failed to load workflow %s: %w", run.WorkflowID, err)
	}
	if wf == nil {
		return fmt.Errorf("workflow %s not found", run.WorkflowID)
	}

	st := e.newExecState(wf, run)

	now := time.Now()
	run.Status = models.WorkflowStatusRunning
	run.StartedAt = &now
	if err := e.saveRun(ctx, st); err != nil {
		return err
	}
	e.publishRunStatus(ctx, run)

	suspended := false
	var execErr error
	for _, nodeID := range startNodes(&wf.Definition, st.incoming) {
		suspended, execErr = e.executeFrom(ctx, st, nodeID)
		if execErr != nil || suspended {
			break
		}
	}

	return e.finishTraversal(ctx, st, suspended, execErr)
}

// Resume continues a run waiting on the given approval node
func (e *Engine) Resume(ctx context.Context, runID, nodeID string, approvalData map[string]interface{}) (*models.WorkflowRun, error) {
	run, err := e.storage.WorkflowStorage().GetRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", runID, err)
	}
	if run == nil {
		return nil, fmt.Errorf("run %s not found", runID)
	}
	if run.Status != models.WorkflowStatusWaitingApproval {
		return nil, fmt.Errorf("run %s is %s, not waiting for approval", runID, run.Status)
	}

	wf, err := e.storage.WorkflowStorage().GetWorkflow(ctx, run.WorkflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow %s: %w", run.WorkflowID, err)
	}
	if wf == nil {
		return nil, fmt.Errorf("workflow %s not found", run.WorkflowID)
	}

	st := e.newExecState(wf, run)
	if _, ok := st.nodes[nodeID]; !ok {
		return nil, fmt.Errorf("node %s not found in workflow %s", nodeID, wf.ID)
	}

	st.wctx.Set("node_"+nodeID+"_result", map[string]interface{}{
		"approved":      true,
		"approval_data": approvalData,
	})
	st.wctx.Set("node_"+nodeID+"_approval", approvalData)
	st.executed[nodeID] = true

	run.Status = models.WorkflowStatusRunning
	if err := e.saveRun(ctx, st); err != nil {
		return nil, err
	}
	e.publishRunStatus(ctx, run)

	e.logger.Info().
		Str("run_id", runID).
		Str("node_id", nodeID).
		Msg("Workflow run resumed")

	suspended := false
	var execErr error
	for _, edge := range st.outgoing[nodeID] {
		suspended, execErr = e.executeFrom(ctx, st, edge.Target)
		if execErr != nil || suspended {
			break
		}
	}

	if err := e.finishTraversal(ctx, st, suspended, execErr); err != nil {
		return nil, err
	}
	return run, nil
}

// Cancel marks a run cancelled. Idempotent on terminal runs. Jobs already
// spawned by the run finish on their own; their results are ignored because
// traversal stops.
func (e *Engine) Cancel(ctx context.Context, runID string) (*models.WorkflowRun, error) {
	run, err := e.storage.WorkflowStorage().GetRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", runID, err)
	}
	if run == nil {
		return nil, fmt.Errorf("run %s not found", runID)
	}
	if run.Status.IsTerminal() {
		return run, nil
	}

	now := time.Now()
	run.Status = models.WorkflowStatusCancelled
	run.CompletedAt = &now
	run.UpdatedAt = now
	if err := e.storage.WorkflowStorage().SaveRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to save run %s: %w", runID, err)
	}
	e.publishRunStatus(ctx, run)

	e.logger.Info().Str("run_id", runID).Msg("Workflow run cancelled")
	return run, nil
}

func (e *Engine) newExecState(wf *models.Workflow, run *models.WorkflowRun) *execState {
	st := &execState{
		workflow: wf,
		run:      run,
		nodes:    make(map[string]*models.WorkflowNode),
		outgoing: make(map[string][]models.WorkflowEdge),
		incoming: make(map[string]int),
		executed: make(map[string]bool),
	}
	for i := range wf.Definition.Nodes {
		node := &wf.Definition.Nodes[i]
		st.nodes[node.ID] = node
	}
	for _, edge := range wf.Definition.Edges {
		st.outgoing[edge.Source] = append(st.outgoing[edge.Source], edge)
		st.incoming[edge.Target]++
	}

	seed := map[string]interface{}{
		"project_id":      run.ProjectID,
		"workflow_id":     wf.ID,
		"workflow_run_id": run.ID,
		"workflow_name":   wf.Name,
		"input_params":    run.InputParams,
	}
	for k, v := range run.InputParams {
		seed[k] = v
	}
	// Persisted context wins so resume sees everything the first pass wrote
	for k, v := range run.Context {
		seed[k] = v
	}
	st.wctx = NewContext(seed)

	// Completed log entries mark nodes already visited in an earlier pass
	for _, entry := range run.ExecutionLog {
		if entry.Status == "completed" {
			st.executed[entry.NodeID] = true
		}
	}
	return st
}

// startNodes returns every node with no incoming edge, falling back to the
// first defined node
func startNodes(def *models.WorkflowDefinition, incoming map[string]int) []string {
	var starts []string
	for _, node := range def.Nodes {
		if incoming[node.ID] == 0 {
			starts = append(starts, node.ID)
		}
	}
	if len(starts) == 0 && len(def.Nodes) > 0 {
		starts = append(starts, def.Nodes[0].ID)
	}
	return starts
}

// executeFrom runs the node and recurses into its successors. Returns
// suspended=true when a manual gate fired somewhere below.
func (e *Engine) executeFrom(ctx context.Context, st *execState, nodeID string) (bool, error) {
	st.mu.Lock()
	done := st.executed[nodeID]
	st.mu.Unlock()
	if done {
		return false, nil
	}

	// External cancel stops traversal without marking failure
	current, err := e.storage.WorkflowStorage().GetRun(ctx, st.run.ID)
	if err == nil && current != nil && current.Status == models.WorkflowStatusCancelled {
		return false, nil
	}

	node, ok := st.nodes[nodeID]
	if !ok {
		return false, fmt.Errorf("node %s not found", nodeID)
	}

	switch node.Type {
	case models.NodeTypeParallel:
		return e.executeParallelNode(ctx, st, node)
	case models.NodeTypeLoop:
		return e.executeLoopNode(ctx, st, node)
	}

	result, err := e.runNode(ctx, st, node)
	if err != nil {
		return false, err
	}
	if !result.Success {
		st.setErrorNode(node.ID)
		return false, fmt.Errorf("node %s failed: %s", node.ID, result.Error)
	}

	if result.ApprovalRequired() {
		return true, nil
	}

	for _, edge := range successorEdges(st, node, result) {
		suspended, err := e.executeFrom(ctx, st, edge.Target)
		if err != nil || suspended {
			return suspended, err
		}
	}
	return false, nil
}

// runNode executes one non-composite node with full log bookkeeping
func (e *Engine) runNode(ctx context.Context, st *execState, node *models.WorkflowNode) (*models.NodeResult, error) {
	st.mu.Lock()
	entry := models.ExecutionLogEntry{
		NodeID:    node.ID,
		NodeType:  node.Type,
		Status:    "running",
		StartedAt: time.Now(),
	}
	st.run.ExecutionLog = append(st.run.ExecutionLog, entry)
	entryIdx := len(st.run.ExecutionLog) - 1
	st.run.CurrentNodeID = node.ID
	st.run.CurrentStep++
	st.mu.Unlock()

	if err := e.saveRun(ctx, st); err != nil {
		return nil, err
	}
	e.publishNodeStatus(ctx, st.run, node, "running")

	result := e.dispatchNode(ctx, st, node)

	now := time.Now()
	st.mu.Lock()
	logEntry := &st.run.ExecutionLog[entryIdx]
	logEntry.CompletedAt = &now
	logEntry.Result = result.Data
	if result.Success {
		logEntry.Status = "completed"
	} else {
		logEntry.Status = "failed"
		logEntry.Error = result.Error
	}
	status := logEntry.Status
	st.mu.Unlock()

	if err := e.saveRun(ctx, st); err != nil {
		return nil, err
	}
	e.publishNodeStatus(ctx, st.run, node, status)

	if result.Success && !result.ApprovalRequired() {
		st.wctx.Set("node_"+node.ID+"_result", result.Data)
		st.mu.Lock()
		st.executed[node.ID] = true
		st.mu.Unlock()
	}
	return result, nil
}

func (e *Engine) dispatchNode(ctx context.Context, st *execState, node *models.WorkflowNode) *models.NodeResult {
	switch node.Type {
	case models.NodeTypeTool:
		return e.executeToolNode(ctx, st, node)
	case models.NodeTypeCondition:
		return e.executeConditionNode(st, node)
	case models.NodeTypeDelay:
		return e.executeDelayNode(ctx, st, node)
	case models.NodeTypeNotification:
		return e.executeNotificationNode(ctx, st, node)
	case models.NodeTypeManual:
		return e.executeManualNode(ctx, st, node)
	}
	return &models.NodeResult{Success: false, Error: fmt.Sprintf("unknown node type: %s", node.Type)}
}

// successorEdges applies the branch filter for condition nodes; every other
// node follows all outgoing edges
func successorEdges(st *execState, node *models.WorkflowNode, result *models.NodeResult) []models.WorkflowEdge {
	edges := st.outgoing[node.ID]
	if node.Type != models.NodeTypeCondition {
		return edges
	}

	var matched, unlabelled []models.WorkflowEdge
	for _, edge := range edges {
		switch edge.Label {
		case result.Branch:
			matched = append(matched, edge)
		case "":
			unlabelled = append(unlabelled, edge)
		}
	}
	if len(matched) > 0 {
		return matched
	}
	return unlabelled
}

// finishTraversal transitions the run to its final state for this pass
func (e *Engine) finishTraversal(ctx context.Context, st *execState, suspended bool, execErr error) error {
	now := time.Now()

	// A cancelled run keeps its status
	current, err := e.storage.WorkflowStorage().GetRun(ctx, st.run.ID)
	if err == nil && current != nil && current.Status == models.WorkflowStatusCancelled {
		return nil
	}

	switch {
	case execErr != nil:
		st.run.Status = models.WorkflowStatusFailed
		st.run.ErrorMessage = execErr.Error()
		st.run.CompletedAt = &now
	case suspended:
		st.run.Status = models.WorkflowStatusWaitingApproval
	default:
		st.run.Status = models.WorkflowStatusCompleted
		st.run.CompletedAt = &now
	}

	if err := e.saveRun(ctx, st); err != nil {
		return err
	}
	e.publishRunStatus(ctx, st.run)

	e.logger.Info().
		Str("run_id", st.run.ID).
		Str("status", string(st.run.Status)).
		Err(execErr).
		Msg("Workflow traversal finished")
	return execErr
}

// saveRun persists the run with the current context snapshot. Encoding reads
// every field of the run, so a copy is taken under the state mutex and the
// copy is persisted: concurrent branches keep appending to the live log while
// the save is in flight.
func (e *Engine) saveRun(ctx context.Context, st *execState) error {
	st.mu.Lock()
	st.run.Context = st.wctx.Snapshot()
	st.run.UpdatedAt = time.Now()
	snapshot := *st.run
	snapshot.ExecutionLog = make([]models.ExecutionLogEntry, len(st.run.ExecutionLog))
	copy(snapshot.ExecutionLog, st.run.ExecutionLog)
	st.mu.Unlock()
	if err := e.storage.WorkflowStorage().SaveRun(ctx, &snapshot); err != nil {
		return fmt.Errorf("failed to save run %s: %w", st.run.ID, err)
	}
	return nil
}

func (e *Engine) publishRunStatus(ctx context.Context, run *models.WorkflowRun) {
	if err := e.events.Publish(ctx, interfaces.Event{
		Type:  interfaces.EventWorkflowStatus,
		Topic: interfaces.ProjectTopic(run.ProjectID),
		Payload: map[string]interface{}{
			"run_id":      run.ID,
			"workflow_id": run.WorkflowID,
			"project_id":  run.ProjectID,
			"status":      string(run.Status),
			"error":       run.ErrorMessage,
		},
	}); err != nil {
		e.logger.Warn().Err(err).Str("run_id", run.ID).Msg("Failed to publish run status")
	}
}

func (e *Engine) publishNodeStatus(ctx context.Context, run *models.WorkflowRun, node *models.WorkflowNode, status string) {
	if err := e.events.Publish(ctx, interfaces.Event{
		Type:  interfaces.EventWorkflowNode,
		Topic: interfaces.ProjectTopic(run.ProjectID),
		Payload: map[string]interface{}{
			"run_id":    run.ID,
			"node_id":   node.ID,
			"node_type": string(node.Type),
			"status":    status,
		},
	}); err != nil {
		e.logger.Warn().Err(err).Str("run_id", run.ID).Msg("Failed to publish node status")
	}
}
