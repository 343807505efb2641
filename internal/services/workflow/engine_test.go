package workflow

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/common"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
	"github.com/ternarybob/venator/internal/services/events"
	"github.com/ternarybob/venator/internal/services/notify"
	"github.com/ternarybob/venator/internal/services/queue"
	"github.com/ternarybob/venator/internal/storage/badger"
)

func newTestEngine(t *testing.T) (*Engine, interfaces.StorageManager) {
	t.Helper()
	logger := arbor.NewLogger()

	storage, err := badger.NewManager(logger, &common.BadgerConfig{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { storage.Close() })

	eventService := events.NewService(logger)
	t.Cleanup(func() { eventService.Close() })

	// Zero workers: StartRun can enqueue but nothing runs in the background,
	// so the tests drive ExecuteRun directly
	queueService := queue.NewService(&common.QueueConfig{MaxWorkers: 0, QueueSize: 16}, logger)
	require.NoError(t, queueService.Start())
	t.Cleanup(func() { queueService.Stop() })
	notifier := notify.NewService(&common.NotifyConfig{}, eventService, logger)

	engine := NewEngine(storage, eventService, queueService, nil, notifier, &common.WorkflowConfig{MaxParallel: 2, PollInterval: 1}, logger)
	return engine, storage
}

func saveTestWorkflow(t *testing.T, storage interfaces.StorageManager, def models.WorkflowDefinition) *models.Workflow {
	t.Helper()
	wf := &models.Workflow{
		ID:         common.NewID(),
		ProjectID:  "proj-1",
		Name:       "test workflow",
		Definition: def,
	}
	require.NoError(t, storage.WorkflowStorage().SaveWorkflow(context.Background(), wf))
	return wf
}

func notificationNode(id, title string) models.WorkflowNode {
	return models.WorkflowNode{
		ID:   id,
		Type: models.NodeTypeNotification,
		Data: map[string]interface{}{"title": title, "message": "msg"},
	}
}

func TestEngine_SuspendAndResume(t *testing.T) {
	engine, storage := newTestEngine(t)
	ctx := context.Background()

	wf := saveTestWorkflow(t, storage, models.WorkflowDefinition{
		Nodes: []models.WorkflowNode{
			notificationNode("notify-start", "scan starting"),
			{ID: "gate", Type: models.NodeTypeManual, Data: map[string]interface{}{"title": "confirm exploit phase"}},
			notificationNode("notify-done", "scan finished"),
		},
		Edges: []models.WorkflowEdge{
			{ID: "e1", Source: "notify-start", Target: "gate"},
			{ID: "e2", Source: "gate", Target: "notify-done"},
		},
	})

	run, err := engine.StartRun(ctx, wf.ID, "proj-1", map[string]interface{}{"target": "example.com"}, "tester")
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusPending, run.Status)

	require.NoError(t, engine.ExecuteRun(ctx, run.ID))

	run, err = storage.WorkflowStorage().GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusWaitingApproval, run.Status)
	assert.Equal(t, "gate", run.CurrentNodeID)
	require.Len(t, run.ExecutionLog, 2)
	assert.Equal(t, "notify-start", run.ExecutionLog[0].NodeID)
	assert.Equal(t, "completed", run.ExecutionLog[0].Status)
	assert.Equal(t, "gate", run.ExecutionLog[1].NodeID)
	assert.NotNil(t, run.StartedAt)
	assert.Nil(t, run.CompletedAt)

	resumed, err := engine.Resume(ctx, run.ID, "gate", map[string]interface{}{"approved_by": "operator"})
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusCompleted, resumed.Status)
	assert.NotNil(t, resumed.CompletedAt)

	gateResult, ok := resumed.Context["node_gate_result"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, gateResult["approved"])

	var doneVisited bool
	for _, entry := range resumed.ExecutionLog {
		if entry.NodeID == "notify-done" && entry.Status == "completed" {
			doneVisited = true
		}
	}
	assert.True(t, doneVisited)
}

func TestEngine_ResumeRequiresWaitingApproval(t *testing.T) {
	engine, storage := newTestEngine(t)
	ctx := context.Background()

	wf := saveTestWorkflow(t, storage, models.WorkflowDefinition{
		Nodes: []models.WorkflowNode{notificationNode("only", "hello")},
	})

	run, err := engine.StartRun(ctx, wf.ID, "proj-1", nil, "tester")
	require.NoError(t, err)
	require.NoError(t, engine.ExecuteRun(ctx, run.ID))

	_, err = engine.Resume(ctx, run.ID, "only", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not waiting for approval")
}

func TestEngine_ConditionBranch(t *testing.T) {
	engine, storage := newTestEngine(t)
	ctx := context.Background()

	wf := saveTestWorkflow(t, storage, models.WorkflowDefinition{
		Nodes: []models.WorkflowNode{
			{ID: "check", Type: models.NodeTypeCondition, Data: map[string]interface{}{"condition": "severity == high"}},
			notificationNode("alert", "high severity finding"),
			notificationNode("log-only", "low severity finding"),
		},
		Edges: []models.WorkflowEdge{
			{ID: "e1", Source: "check", Target: "alert", Label: "true"},
			{ID: "e2", Source: "check", Target: "log-only", Label: "false"},
		},
	})

	run, err := engine.StartRun(ctx, wf.ID, "proj-1", map[string]interface{}{"severity": "high"}, "tester")
	require.NoError(t, err)
	require.NoError(t, engine.ExecuteRun(ctx, run.ID))

	run, err = storage.WorkflowStorage().GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusCompleted, run.Status)

	visited := make(map[string]bool)
	for _, entry := range run.ExecutionLog {
		visited[entry.NodeID] = true
	}
	assert.True(t, visited["check"])
	assert.True(t, visited["alert"])
	assert.False(t, visited["log-only"])

	checkResult, ok := run.Context["node_check_result"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "true", checkResult["branch"])
}

func TestEngine_FailedNodeMarksRunFailed(t *testing.T) {
	engine, storage := newTestEngine(t)
	ctx := context.Background()

	wf := saveTestWorkflow(t, storage, models.WorkflowDefinition{
		Nodes: []models.WorkflowNode{
			{ID: "broken", Type: models.NodeTypeTool, Data: map[string]interface{}{}},
			notificationNode("never", "unreachable"),
		},
		Edges: []models.WorkflowEdge{
			{ID: "e1", Source: "broken", Target: "never"},
		},
	})

	run, err := engine.StartRun(ctx, wf.ID, "proj-1", nil, "tester")
	require.NoError(t, err)
	require.Error(t, engine.ExecuteRun(ctx, run.ID))

	run, err = storage.WorkflowStorage().GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusFailed, run.Status)
	assert.Equal(t, "broken", run.ErrorNodeID)
	assert.NotEmpty(t, run.ErrorMessage)

	visited := make(map[string]bool)
	for _, entry := range run.ExecutionLog {
		visited[entry.NodeID] = true
	}
	assert.False(t, visited["never"])
}

func TestEngine_CancelIsIdempotent(t *testing.T) {
	engine, storage := newTestEngine(t)
	ctx := context.Background()

	wf := saveTestWorkflow(t, storage, models.WorkflowDefinition{
		Nodes: []models.WorkflowNode{notificationNode("only", "hello")},
	})

	run, err := engine.StartRun(ctx, wf.ID, "proj-1", nil, "tester")
	require.NoError(t, err)

	cancelled, err := engine.Cancel(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.CompletedAt)

	again, err := engine.Cancel(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusCancelled, again.Status)

	// The pending run was cancelled before execution; ExecuteRun skips it
	require.NoError(t, engine.ExecuteRun(ctx, run.ID))
	run, err = storage.WorkflowStorage().GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusCancelled, run.Status)
	assert.Empty(t, run.ExecutionLog)
}

func TestEngine_ParallelFanOut(t *testing.T) {
	engine, storage := newTestEngine(t)
	ctx := context.Background()

	nodes := []models.WorkflowNode{{ID: "fan", Type: models.NodeTypeParallel}}
	var edges []models.WorkflowEdge
	for i := 0; i < 8; i++ {
		id := fmt.Sprintf("branch-%d", i)
		nodes = append(nodes, notificationNode(id, "branch update"))
		edges = append(edges, models.WorkflowEdge{ID: "e-" + id, Source: "fan", Target: id})
	}
	wf := saveTestWorkflow(t, storage, models.WorkflowDefinition{Nodes: nodes, Edges: edges})

	run, err := engine.StartRun(ctx, wf.ID, "proj-1", nil, "tester")
	require.NoError(t, err)
	require.NoError(t, engine.ExecuteRun(ctx, run.ID))

	run, err = storage.WorkflowStorage().GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusCompleted, run.Status)

	// Every branch node ran exactly once and landed in the persisted log
	require.Len(t, run.ExecutionLog, 8)
	completed := make(map[string]bool)
	for _, entry := range run.ExecutionLog {
		assert.Equal(t, "completed", entry.Status)
		completed[entry.NodeID] = true
	}
	for i := 0; i < 8; i++ {
		assert.True(t, completed[fmt.Sprintf("branch-%d", i)])
	}
}

func TestValidateDefinition(t *testing.T) {
	cases := []struct {
		name    string
		def     *models.WorkflowDefinition
		wantErr string
	}{
		{
			name:    "nil definition",
			def:     nil,
			wantErr: "no nodes",
		},
		{
			name:    "empty definition",
			def:     &models.WorkflowDefinition{},
			wantErr: "no nodes",
		},
		{
			name: "node without id",
			def: &models.WorkflowDefinition{
				Nodes: []models.WorkflowNode{{Type: models.NodeTypeDelay}},
			},
			wantErr: "has no id",
		},
		{
			name: "duplicate node id",
			def: &models.WorkflowDefinition{
				Nodes: []models.WorkflowNode{
					{ID: "a", Type: models.NodeTypeDelay},
					{ID: "a", Type: models.NodeTypeDelay},
				},
			},
			wantErr: "duplicate node id",
		},
		{
			name: "unknown node type",
			def: &models.WorkflowDefinition{
				Nodes: []models.WorkflowNode{{ID: "a", Type: "teleport"}},
			},
			wantErr: "unknown type",
		},
		{
			name: "edge to missing node",
			def: &models.WorkflowDefinition{
				Nodes: []models.WorkflowNode{{ID: "a", Type: models.NodeTypeDelay}},
				Edges: []models.WorkflowEdge{{ID: "e1", Source: "a", Target: "ghost"}},
			},
			wantErr: "unknown target",
		},
		{
			name: "edge from missing node",
			def: &models.WorkflowDefinition{
				Nodes: []models.WorkflowNode{{ID: "a", Type: models.NodeTypeDelay}},
				Edges: []models.WorkflowEdge{{ID: "e1", Source: "ghost", Target: "a"}},
			},
			wantErr: "unknown source",
		},
		{
			name: "manual node inside loop body",
			def: &models.WorkflowDefinition{
				Nodes: []models.WorkflowNode{
					{ID: "loop", Type: models.NodeTypeLoop, Data: map[string]interface{}{"iterations": 3}},
					{ID: "gate", Type: models.NodeTypeManual},
				},
				Edges: []models.WorkflowEdge{
					{ID: "e1", Source: "loop", Target: "gate", Label: "body"},
				},
			},
			wantErr: "inside loop",
		},
		{
			name: "manual node after loop is allowed",
			def: &models.WorkflowDefinition{
				Nodes: []models.WorkflowNode{
					{ID: "loop", Type: models.NodeTypeLoop, Data: map[string]interface{}{"iterations": 3}},
					{ID: "body", Type: models.NodeTypeDelay},
					{ID: "gate", Type: models.NodeTypeManual},
				},
				Edges: []models.WorkflowEdge{
					{ID: "e1", Source: "loop", Target: "body", Label: "body"},
					{ID: "e2", Source: "loop", Target: "gate", Label: "done"},
				},
			},
		},
		{
			name: "self edge",
			def: &models.WorkflowDefinition{
				Nodes: []models.WorkflowNode{{ID: "a", Type: models.NodeTypeDelay}},
				Edges: []models.WorkflowEdge{{ID: "e1", Source: "a", Target: "a"}},
			},
			wantErr: "to itself",
		},
		{
			name: "cycle outside a loop",
			def: &models.WorkflowDefinition{
				Nodes: []models.WorkflowNode{
					{ID: "a", Type: models.NodeTypeDelay},
					{ID: "b", Type: models.NodeTypeDelay},
					{ID: "c", Type: models.NodeTypeDelay},
				},
				Edges: []models.WorkflowEdge{
					{ID: "e1", Source: "a", Target: "b"},
					{ID: "e2", Source: "b", Target: "c"},
					{ID: "e3", Source: "c", Target: "a"},
				},
			},
			wantErr: "cycle",
		},
		{
			name: "back edge into a loop node is allowed",
			def: &models.WorkflowDefinition{
				Nodes: []models.WorkflowNode{
					{ID: "loop", Type: models.NodeTypeLoop, Data: map[string]interface{}{"iterations": 2}},
					{ID: "step", Type: models.NodeTypeDelay},
				},
				Edges: []models.WorkflowEdge{
					{ID: "e1", Source: "loop", Target: "step", Label: "body"},
					{ID: "e2", Source: "step", Target: "loop"},
				},
			},
		},
		{
			name: "valid graph",
			def: &models.WorkflowDefinition{
				Nodes: []models.WorkflowNode{
					{ID: "a", Type: models.NodeTypeNotification},
					{ID: "b", Type: models.NodeTypeCondition},
				},
				Edges: []models.WorkflowEdge{{ID: "e1", Source: "a", Target: "b"}},
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateDefinition(tc.def)
			if tc.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
			}
		})
	}
}
