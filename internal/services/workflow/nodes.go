package workflow

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
	"github.com/ternarybob/venator/internal/services/jobs"
)

// executeToolNode creates a job attached to the run, then polls its status
// until terminal. The poll budget is the job timeout plus 60 seconds so the
// job's own timeout always fires first.
func (e *Engine) executeToolNode(ctx context.Context, st *execState, node *models.WorkflowNode) *models.NodeResult {
	toolName, _ := node.Data["tool"].(string)
	if toolName == "" {
		toolName, _ = node.Data["tool_name"].(string)
	}
	if toolName == "" {
		return &models.NodeResult{Success: false, Error: "tool node has no tool name"}
	}

	parameters := make(map[string]interface{})
	if raw, ok := node.Data["parameters"].(map[string]interface{}); ok {
		for k, v := range raw {
			parameters[k] = st.wctx.Resolve(v)
		}
	}

	job, err := e.jobs.Create(ctx, st.run.ProjectID, toolName, parameters, &jobs.CreateOptions{
		WorkflowRunID: st.run.ID,
		CreatedBy:     "workflow:" + st.workflow.ID,
	})
	if err != nil {
		return &models.NodeResult{Success: false, Error: fmt.Sprintf("failed to create job: %v", err)}
	}

	pollInterval := time.Duration(e.config.PollInterval) * time.Second
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	budget := time.Duration(job.TimeoutSeconds+60) * time.Second
	deadline := time.Now().Add(budget)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return &models.NodeResult{Success: false, Error: "workflow cancelled while waiting for job"}
		case <-ticker.C:
		}

		current, err := e.storage.JobStorage().GetJob(ctx, job.ID)
		if err != nil {
			return &models.NodeResult{Success: false, Error: fmt.Sprintf("failed to poll job %s: %v", job.ID, err)}
		}
		if current == nil {
			return &models.NodeResult{Success: false, Error: fmt.Sprintf("job %s disappeared", job.ID)}
		}

		if current.Status.IsTerminal() {
			data := map[string]interface{}{
				"job_id": current.ID,
				"status": string(current.Status),
			}
			if current.ExitCode != nil {
				data["exit_code"] = *current.ExitCode
			}
			if current.Status == models.JobStatusCompleted {
				return &models.NodeResult{Success: true, Data: data}
			}
			errMsg := current.ErrorMessage
			if errMsg == "" {
				errMsg = fmt.Sprintf("job ended %s", current.Status)
			}
			return &models.NodeResult{Success: false, Data: data, Error: errMsg}
		}

		if time.Now().After(deadline) {
			return &models.NodeResult{
				Success: false,
				Data:    map[string]interface{}{"job_id": current.ID, "status": string(current.Status)},
				Error:   fmt.Sprintf("job %s did not finish within the poll budget", job.ID),
			}
		}
	}
}

// executeConditionNode evaluates the node's condition and selects a branch
func (e *Engine) executeConditionNode(st *execState, node *models.WorkflowNode) *models.NodeResult {
	condition, _ := node.Data["condition"].(string)
	outcome := st.wctx.EvaluateCondition(condition)

	trueLabel, _ := node.Data["true_label"].(string)
	if trueLabel == "" {
		trueLabel = "true"
	}
	falseLabel, _ := node.Data["false_label"].(string)
	if falseLabel == "" {
		falseLabel = "false"
	}

	branch := falseLabel
	if outcome {
		branch = trueLabel
	}
	return &models.NodeResult{
		Success: true,
		Branch:  branch,
		Data: map[string]interface{}{
			"condition": condition,
			"result":    outcome,
			"branch":    branch,
		},
	}
}

// executeDelayNode sleeps for delay_seconds; non-parseable values delay 0
func (e *Engine) executeDelayNode(ctx context.Context, st *execState, node *models.WorkflowNode) *models.NodeResult {
	seconds := intValue(st.wctx.Resolve(node.Data["delay_seconds"]))
	if seconds > 0 {
		timer := time.NewTimer(time.Duration(seconds) * time.Second)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return &models.NodeResult{Success: false, Error: "workflow cancelled during delay"}
		case <-timer.C:
		}
	}
	return &models.NodeResult{
		Success: true,
		Data:    map[string]interface{}{"delay_seconds": seconds},
	}
}

// executeNotificationNode resolves title/message and publishes; delivery
// failure never fails the workflow
func (e *Engine) executeNotificationNode(ctx context.Context, st *execState, node *models.WorkflowNode) *models.NodeResult {
	title := st.wctx.ResolveString(stringValue(node.Data["title"]))
	message := st.wctx.ResolveString(stringValue(node.Data["message"]))
	severity := stringValue(node.Data["severity"])

	payload := map[string]interface{}{
		"run_id":   st.run.ID,
		"node_id":  node.ID,
		"title":    title,
		"message":  message,
		"severity": severity,
	}
	if err := e.events.Publish(ctx, interfaces.Event{
		Type:    interfaces.EventWorkflowNotify,
		Topic:   interfaces.ProjectTopic(st.run.ProjectID),
		Payload: payload,
	}); err != nil {
		e.logger.Warn().Err(err).Str("run_id", st.run.ID).Msg("Failed to publish workflow notification")
	}

	if e.notifier != nil {
		if err := e.notifier.Notify(ctx, st.run.ProjectID, interfaces.Notification{
			Title:    title,
			Message:  message,
			Severity: severity,
			Data:     payload,
		}); err != nil {
			e.logger.Warn().Err(err).Str("run_id", st.run.ID).Msg("Notification delivery failed")
		}
	}

	return &models.NodeResult{
		Success: true,
		Data:    map[string]interface{}{"title": title, "message": message},
	}
}

// executeManualNode emits an approval request and suspends the run
func (e *Engine) executeManualNode(ctx context.Context, st *execState, node *models.WorkflowNode) *models.NodeResult {
	title := st.wctx.ResolveString(stringValue(node.Data["title"]))
	message := st.wctx.ResolveString(stringValue(node.Data["message"]))
	options := node.Data["options"]

	if err := e.events.Publish(ctx, interfaces.Event{
		Type:  interfaces.EventWorkflowApproval,
		Topic: interfaces.ProjectTopic(st.run.ProjectID),
		Payload: map[string]interface{}{
			"run_id":  st.run.ID,
			"node_id": node.ID,
			"title":   title,
			"message": message,
			"options": options,
		},
	}); err != nil {
		e.logger.Warn().Err(err).Str("run_id", st.run.ID).Msg("Failed to publish approval request")
	}

	return &models.NodeResult{
		Success: true,
		Data: map[string]interface{}{
			"approval_required": true,
			"title":             title,
			"message":           message,
		},
	}
}

// executeParallelNode runs each direct successor's sub-graph concurrently
// under a bounded semaphore. The node succeeds when every branch succeeded
// and none suspended on approval.
func (e *Engine) executeParallelNode(ctx context.Context, st *execState, node *models.WorkflowNode) (bool, error) {
	st.mu.Lock()
	st.executed[node.ID] = true
	st.mu.Unlock()

	maxParallel := intValue(node.Data["max_parallel"])
	if maxParallel <= 0 {
		maxParallel = e.config.MaxParallel
	}
	if maxParallel <= 0 {
		maxParallel = 5
	}

	edges := st.outgoing[node.ID]
	if len(edges) == 0 {
		return false, nil
	}

	sem := make(chan struct{}, maxParallel)
	var wg sync.WaitGroup
	var resultMu sync.Mutex
	suspended := false
	var firstErr error

	for _, edge := range edges {
		wg.Add(1)
		target := edge.Target
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			branchSuspended, err := e.executeFrom(ctx, st, target)

			resultMu.Lock()
			defer resultMu.Unlock()
			if err != nil && firstErr == nil {
				firstErr = err
			}
			if branchSuspended {
				suspended = true
			}
		}()
	}
	wg.Wait()

	if firstErr != nil {
		st.setErrorNode(node.ID)
		return false, firstErr
	}
	return suspended, nil
}

// executeLoopNode iterates its body sub-graph. Body children hang off edges
// labelled "body" (or unlabelled); post-loop successors off "done" or
// "complete". The executed set for the body is reset every iteration.
func (e *Engine) executeLoopNode(ctx context.Context, st *execState, node *models.WorkflowNode) (bool, error) {
	st.mu.Lock()
	st.executed[node.ID] = true
	st.mu.Unlock()

	var bodyTargets, doneTargets []string
	for _, edge := range st.outgoing[node.ID] {
		switch edge.Label {
		case "done", "complete":
			doneTargets = append(doneTargets, edge.Target)
		case "body", "":
			bodyTargets = append(bodyTargets, edge.Target)
		}
	}

	items, err := e.loopItems(st, node)
	if err != nil {
		st.setErrorNode(node.ID)
		return false, err
	}

	continueOnError := false
	if v, ok := node.Data["continue_on_error"].(bool); ok {
		continueOnError = v
	}

	loopID := node.ID
	bodyNodes := reachableFrom(st, bodyTargets)

	var loopErr error
	for idx, item := range items {
		st.mu.Lock()
		for id := range bodyNodes {
			delete(st.executed, id)
		}
		st.mu.Unlock()

		st.wctx.Set("loop_index", idx)
		st.wctx.Set("loop_item", item)
		st.wctx.Set("loop_total", len(items))
		st.wctx.Set("loop_"+loopID+"_index", idx)
		st.wctx.Set("loop_"+loopID+"_item", item)

		iterationFailed := false
		for _, target := range bodyTargets {
			suspended, err := e.executeFrom(ctx, st, target)
			if suspended {
				// Approval gates cannot suspend a loop iteration; the
				// per-iteration reset would replay completed work on resume
				loopErr = fmt.Errorf("manual approval inside loop %s is not supported", loopID)
				iterationFailed = true
				break
			}
			if err != nil {
				loopErr = err
				iterationFailed = true
				break
			}
		}

		if iterationFailed && !continueOnError {
			break
		}
		if iterationFailed && continueOnError {
			loopErr = nil
		}
	}

	st.wctx.Delete("loop_index")
	st.wctx.Delete("loop_item")
	st.wctx.Delete("loop_total")
	st.wctx.Delete("loop_" + loopID + "_index")
	st.wctx.Delete("loop_" + loopID + "_item")

	if loopErr != nil {
		st.setErrorNode(node.ID)
		return false, loopErr
	}

	for _, target := range doneTargets {
		suspended, err := e.executeFrom(ctx, st, target)
		if err != nil || suspended {
			return suspended, err
		}
	}
	return false, nil
}

// loopItems materializes the iteration sequence for a loop node
func (e *Engine) loopItems(st *execState, node *models.WorkflowNode) ([]interface{}, error) {
	loopType, _ := node.Data["loop_type"].(string)

	switch loopType {
	case "", "count":
		count := intValue(st.wctx.Resolve(node.Data["iterations"]))
		if count < 0 {
			count = 0
		}
		items := make([]interface{}, count)
		for i := range items {
			items[i] = i
		}
		return items, nil
	case "items":
		var source interface{}
		if path, ok := node.Data["items_source"].(string); ok && path != "" {
			source = st.wctx.Resolve("${" + path + "}")
		} else {
			source = st.wctx.Resolve(node.Data["items"])
		}
		if list, ok := source.([]interface{}); ok {
			return list, nil
		}
		return nil, fmt.Errorf("loop %s items did not resolve to a list", node.ID)
	}
	return nil, fmt.Errorf("unknown loop type %q on node %s", loopType, node.ID)
}

// reachableFrom collects every node reachable from the given targets
func reachableFrom(st *execState, targets []string) map[string]bool {
	reached := make(map[string]bool)
	var visit func(id string)
	visit = func(id string) {
		if reached[id] {
			return
		}
		reached[id] = true
		for _, edge := range st.outgoing[id] {
			visit(edge.Target)
		}
	}
	for _, target := range targets {
		visit(target)
	}
	return reached
}

func stringValue(v interface{}) string {
	s, _ := v.(string)
	return s
}

func intValue(v interface{}) int {
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	case string:
		if n, err := strconv.Atoi(t); err == nil {
			return n
		}
	}
	return 0
}
