package workflow

import (
	"fmt"

	"github.com/ternarybob/venator/internal/models"
)

var knownNodeTypes = map[models.NodeType]bool{
	models.NodeTypeTool:         true,
	models.NodeTypeCondition:    true,
	models.NodeTypeDelay:        true,
	models.NodeTypeNotification: true,
	models.NodeTypeParallel:     true,
	models.NodeTypeLoop:         true,
	models.NodeTypeManual:       true,
}

// ValidateDefinition checks a workflow graph before execution: node ids are
// unique, node types are known, edges reference existing nodes and no manual
// node is reachable inside a loop body.
func ValidateDefinition(def *models.WorkflowDefinition) error {
	if def == nil || len(def.Nodes) == 0 {
		return fmt.Errorf("workflow has no nodes")
	}

	nodes := make(map[string]*models.WorkflowNode, len(def.Nodes))
	for i := range def.Nodes {
		node := &def.Nodes[i]
		if node.ID == "" {
			return fmt.Errorf("workflow node %d has no id", i)
		}
		if _, dup := nodes[node.ID]; dup {
			return fmt.Errorf("duplicate node id %q", node.ID)
		}
		if !knownNodeTypes[node.Type] {
			return fmt.Errorf("node %q has unknown type %q", node.ID, node.Type)
		}
		nodes[node.ID] = node
	}

	outgoing := make(map[string][]models.WorkflowEdge)
	for _, edge := range def.Edges {
		if _, ok := nodes[edge.Source]; !ok {
			return fmt.Errorf("edge %q references unknown source node %q", edge.ID, edge.Source)
		}
		if _, ok := nodes[edge.Target]; !ok {
			return fmt.Errorf("edge %q references unknown target node %q", edge.ID, edge.Target)
		}
		if edge.Source == edge.Target {
			return fmt.Errorf("edge %q connects node %q to itself", edge.ID, edge.Source)
		}
		outgoing[edge.Source] = append(outgoing[edge.Source], edge)
	}

	// Cycles are only legal through a loop node's body edges; anywhere else
	// the traversal would never terminate
	forward := make(map[string][]string)
	for _, edge := range def.Edges {
		if nodes[edge.Source].Type == models.NodeTypeLoop && (edge.Label == "body" || edge.Label == "") {
			continue
		}
		forward[edge.Source] = append(forward[edge.Source], edge.Target)
	}
	state := make(map[string]int)
	var walk func(id string) error
	walk = func(id string) error {
		state[id] = 1
		for _, next := range forward[id] {
			switch state[next] {
			case 1:
				return fmt.Errorf("workflow contains a cycle through node %q", next)
			case 0:
				if err := walk(next); err != nil {
					return err
				}
			}
		}
		state[id] = 2
		return nil
	}
	for i := range def.Nodes {
		if state[def.Nodes[i].ID] == 0 {
			if err := walk(def.Nodes[i].ID); err != nil {
				return err
			}
		}
	}

	// Manual gates inside a loop body cannot resume correctly: the loop's
	// per-iteration reset would replay completed nodes
	for id, node := range nodes {
		if node.Type != models.NodeTypeLoop {
			continue
		}
		var bodyTargets []string
		for _, edge := range outgoing[id] {
			if edge.Label == "body" || edge.Label == "" {
				bodyTargets = append(bodyTargets, edge.Target)
			}
		}
		for bodyNode := range reachableSet(outgoing, bodyTargets) {
			if nodes[bodyNode] != nil && nodes[bodyNode].Type == models.NodeTypeManual {
				return fmt.Errorf("manual node %q inside loop %q body is not allowed", bodyNode, id)
			}
		}
	}
	return nil
}

func reachableSet(outgoing map[string][]models.WorkflowEdge, targets []string) map[string]bool {
	reached := make(map[string]bool)
	var visit func(id string)
	visit = func(id string) {
		if reached[id] {
			return
		}
		reached[id] = true
		for _, edge := range outgoing[id] {
			visit(edge.Target)
		}
	}
	for _, target := range targets {
		visit(target)
	}
	return reached
}
