package validation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zyztek/suna-sub010/pkg/schema"
)

func TestCanDelete(t *testing.T) {
	nodes := []schema.GraphNode{stepNode("a", "A"), stepNode("b", "B"), stepNode("c", "C")}

	tests := []struct {
		name   string
		nodes  []schema.GraphNode
		edges  []schema.GraphEdge
		target string
		want   bool
	}{
		{"only node", nodes[:1], nil, "a", false},
		{"unknown node", nodes, nil, "zzz", false},
		{"middle of chain", nodes, []schema.GraphEdge{edge("a", "b"), edge("b", "c")}, "b", true},
		{"leaf", nodes, []schema.GraphEdge{edge("a", "b"), edge("b", "c")}, "c", true},
		{"root strands child", nodes, []schema.GraphEdge{edge("a", "b"), edge("b", "c")}, "a", false},
		{"root with shared child", nodes, []schema.GraphEdge{edge("a", "c"), edge("b", "c")}, "a", true},
		{"isolated node", nodes, []schema.GraphEdge{edge("a", "b")}, "c", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CanDelete(tt.target, tt.nodes, tt.edges)
			assert.Equal(t, tt.want, got.CanDelete, got.Reason)
			if !tt.want {
				assert.NotEmpty(t, got.Reason)
			}
		})
	}
}

func TestValidPosition(t *testing.T) {
	assert.True(t, ValidPosition(schema.Position{X: 0, Y: 0}))
	assert.True(t, ValidPosition(schema.Position{X: -MaxCoordinate, Y: MaxCoordinate}))
	assert.False(t, ValidPosition(schema.Position{X: MaxCoordinate + 1}))
	assert.False(t, ValidPosition(schema.Position{Y: math.NaN()}))
	assert.False(t, ValidPosition(schema.Position{X: math.Inf(-1)}))
}

func TestAutoFix_DuplicateEdges(t *testing.T) {
	nodes := []schema.GraphNode{stepNode("a", "A"), stepNode("b", "B")}
	first := schema.NewEdge("a", "b", "")
	second := schema.NewEdge("a", "b", "")
	second.Type = "other"

	res := AutoFix(nodes, []schema.GraphEdge{first, second})
	require.Len(t, res.Edges, 1)
	assert.Equal(t, first, res.Edges[0])
	require.Len(t, res.Fixes, 1)
	assert.Contains(t, res.Fixes[0], "duplicate")
	assert.Len(t, res.Nodes, 2)
}

func TestAutoFix_ResetsPositions(t *testing.T) {
	bad := stepNode("a", "A")
	bad.Position = schema.Position{X: math.NaN(), Y: 5}
	far := stepNode("b", "B")
	far.Position = schema.Position{X: 20000, Y: 0}
	ok := stepNode("c", "C")
	ok.Position = schema.Position{X: 10, Y: 20}

	input := []schema.GraphNode{bad, far, ok}
	res := AutoFix(input, nil)

	assert.Equal(t, schema.Position{}, res.Nodes[0].Position)
	assert.Equal(t, schema.Position{}, res.Nodes[1].Position)
	assert.Equal(t, schema.Position{X: 10, Y: 20}, res.Nodes[2].Position)
	assert.Len(t, res.Fixes, 2)
	assert.Empty(t, res.Edges)

	// Input untouched.
	assert.Equal(t, 20000.0, input[1].Position.X)
}

func TestAutoFix_NothingToFix(t *testing.T) {
	res := AutoFix([]schema.GraphNode{stepNode("a", "A")}, nil)
	assert.NotNil(t, res.Fixes)
	assert.Empty(t, res.Fixes)
}
