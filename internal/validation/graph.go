package validation

import (
	"fmt"

	"github.com/zyztek/suna-sub010/pkg/schema"
)

// PlaceholderStepName is the name given to freshly inserted steps. A step
// still carrying it is treated as unnamed.
const PlaceholderStepName = "New Step"

// Validate checks the structural integrity of a graph. It never mutates its
// input. All checks run independently; errors block saving, warnings are
// advisory.
func Validate(nodes []schema.GraphNode, edges []schema.GraphEdge) *schema.ValidationResult {
	result := &schema.ValidationResult{}
	if len(nodes) == 0 {
		result.AddWarning("", schema.IssueEmptyWorkflow, "Workflow is empty")
		return result
	}

	result.Merge(checkNodes(nodes))
	result.Merge(checkConnectivity(nodes, edges))
	result.Merge(checkCycles(nodes, edges))
	result.Merge(checkConditionGroups(nodes, edges))
	result.Merge(checkParents(nodes, edges))
	return result
}

// ValidateGraph is Validate for a Graph value.
func ValidateGraph(g schema.Graph) *schema.ValidationResult {
	return Validate(g.Nodes, g.Edges)
}

func checkNodes(nodes []schema.GraphNode) *schema.ValidationResult {
	result := &schema.ValidationResult{}
	for _, n := range nodes {
		if n.Data == nil {
			result.AddError(n.ID, schema.IssueMissingData, fmt.Sprintf("Node %s is missing data", n.ID))
			continue
		}
		if n.IsCondition() {
			checkCondition(result, n)
			continue
		}
		if n.Data.Name == "" || n.Data.Name == PlaceholderStepName {
			result.AddError(n.ID, schema.IssueMissingName, fmt.Sprintf("Step %s needs a name", nodeLabel(n)))
		}
		if n.Data.Description == "" {
			result.AddWarning(n.ID, schema.IssueMissingDescription, fmt.Sprintf("Step %s has no description", nodeLabel(n)))
		}
	}
	return result
}

func checkCondition(result *schema.ValidationResult, n schema.GraphNode) {
	ct := n.Data.ConditionType
	switch {
	case ct == "":
		result.AddError(n.ID, schema.IssueMissingConditionType,
			fmt.Sprintf("Condition %s is missing a condition type", nodeLabel(n)))
		return
	case !ct.Valid():
		result.AddError(n.ID, schema.IssueInvalidConditionType,
			fmt.Sprintf("Condition %s has unknown condition type %q", nodeLabel(n), ct))
		return
	}
	if ct.NeedsExpression() && n.Data.Expression == "" {
		result.AddError(n.ID, schema.IssueMissingExpression,
			fmt.Sprintf("Condition %s (%s) requires an expression", nodeLabel(n), ct.Label()))
	}
}

// checkConnectivity warns about nodes no edge touches.
func checkConnectivity(nodes []schema.GraphNode, edges []schema.GraphEdge) *schema.ValidationResult {
	result := &schema.ValidationResult{}
	if len(nodes) < 2 {
		return result
	}
	touched := make(map[string]bool, len(nodes))
	for _, e := range edges {
		touched[e.Source] = true
		touched[e.Target] = true
	}
	count := 0
	for _, n := range nodes {
		if !touched[n.ID] {
			count++
		}
	}
	if count > 0 {
		result.AddWarning("", schema.IssueDisconnectedNodes, fmt.Sprintf("%d disconnected node(s) found", count))
	}
	return result
}

// checkCycles runs a white/gray/black depth-first search over all edges and
// reports a single error on the first back edge found.
func checkCycles(nodes []schema.GraphNode, edges []schema.GraphEdge) *schema.ValidationResult {
	result := &schema.ValidationResult{}
	adj := adjacency(nodes, edges)

	const (
		white = iota
		gray
		black
	)
	color := make(map[string]int, len(nodes))

	var visit func(id string) bool
	visit = func(id string) bool {
		color[id] = gray
		for _, next := range adj[id] {
			switch color[next] {
			case gray:
				return true
			case white:
				if visit(next) {
					return true
				}
			}
		}
		color[id] = black
		return false
	}

	for _, n := range nodes {
		if color[n.ID] == white && visit(n.ID) {
			result.AddError(n.ID, schema.IssueCycleDetected, "Workflow contains circular dependencies")
			break
		}
	}
	return result
}

// checkConditionGroups groups condition nodes by the source of their
// incoming edge and enforces if, elseif*, else? ordering inside each group.
func checkConditionGroups(nodes []schema.GraphNode, edges []schema.GraphEdge) *schema.ValidationResult {
	result := &schema.ValidationResult{}
	byID := indexNodes(nodes)

	type member struct {
		id    string
		ctype schema.ConditionType
	}
	groups := make(map[string][]member)
	var parents []string
	seen := make(map[string]bool)

	for _, e := range edges {
		n, ok := byID[e.Target]
		if !ok || !n.IsCondition() {
			continue
		}
		if _, ok := byID[e.Source]; !ok {
			continue
		}
		key := schema.EdgeID(e.Source, e.Target)
		if seen[key] {
			continue
		}
		seen[key] = true
		if _, exists := groups[e.Source]; !exists {
			parents = append(parents, e.Source)
		}
		groups[e.Source] = append(groups[e.Source], member{id: n.ID, ctype: memberType(n, e.Label)})
	}

	for _, parent := range parents {
		members := groups[parent]
		where := nodeLabel(byID[parent])
		ifs, elses := 0, 0
		misplacedElse := false
		for i, m := range members {
			if elses > 0 && m.ctype != schema.ConditionElse && !misplacedElse {
				misplacedElse = true
				result.AddError(m.id, schema.IssueConditionGroup,
					fmt.Sprintf("Condition group under %s: \"else\" must be the last condition", where))
			}
			switch m.ctype {
			case schema.ConditionIf:
				ifs++
				if ifs == 1 && i != 0 {
					result.AddError(m.id, schema.IssueConditionGroup,
						fmt.Sprintf("Condition group under %s: \"if\" must be the first condition", where))
				}
			case schema.ConditionElse:
				elses++
			}
		}
		if ifs == 0 {
			result.AddError(parent, schema.IssueConditionGroup,
				fmt.Sprintf("Condition group under %s has no \"if\" condition", where))
		}
		if ifs > 1 {
			result.AddError(parent, schema.IssueConditionGroup,
				fmt.Sprintf("Condition group under %s can only have one \"if\" condition", where))
		}
		if elses > 1 {
			result.AddError(parent, schema.IssueConditionGroup,
				fmt.Sprintf("Condition group under %s can only have one \"else\" condition", where))
		}
	}
	return result
}

// memberType prefers the declared condition type and falls back to the
// label on the incoming edge.
func memberType(n schema.GraphNode, label string) schema.ConditionType {
	if n.Data != nil && n.Data.ConditionType.Valid() {
		return n.Data.ConditionType
	}
	ct, _ := schema.ParseConditionLabel(label)
	return ct
}

// checkParents flags nodes joined by more than one unlabeled edge. The tree
// form has no way to express a merge.
func checkParents(nodes []schema.GraphNode, edges []schema.GraphEdge) *schema.ValidationResult {
	result := &schema.ValidationResult{}
	byID := indexNodes(nodes)
	sources := make(map[string]map[string]bool)
	for _, e := range edges {
		if e.Label != "" {
			continue
		}
		if _, ok := byID[e.Source]; !ok {
			continue
		}
		if _, ok := byID[e.Target]; !ok {
			continue
		}
		if sources[e.Target] == nil {
			sources[e.Target] = make(map[string]bool)
		}
		sources[e.Target][e.Source] = true
	}
	for _, n := range nodes {
		if k := len(sources[n.ID]); k > 1 {
			result.AddError(n.ID, schema.IssueMultipleParents,
				fmt.Sprintf("Node %s has %d incoming connections; merging branches is not supported", nodeLabel(n), k))
		}
	}
	return result
}

func adjacency(nodes []schema.GraphNode, edges []schema.GraphEdge) map[string][]string {
	byID := indexNodes(nodes)
	adj := make(map[string][]string, len(nodes))
	for _, e := range edges {
		if _, ok := byID[e.Source]; !ok {
			continue
		}
		if _, ok := byID[e.Target]; !ok {
			continue
		}
		adj[e.Source] = append(adj[e.Source], e.Target)
	}
	return adj
}

func indexNodes(nodes []schema.GraphNode) map[string]schema.GraphNode {
	byID := make(map[string]schema.GraphNode, len(nodes))
	for _, n := range nodes {
		if _, dup := byID[n.ID]; !dup {
			byID[n.ID] = n
		}
	}
	return byID
}

// nodeLabel names a node in messages: its quoted name when set, else its id.
func nodeLabel(n schema.GraphNode) string {
	if n.Data != nil && n.Data.Name != "" {
		return fmt.Sprintf("%q", n.Data.Name)
	}
	if n.ID == "" {
		return "(unnamed)"
	}
	return n.ID
}
