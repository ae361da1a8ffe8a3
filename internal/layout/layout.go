// Package layout assigns layered positions to workflow graph nodes.
package layout

import (
	"math"
	"sort"

	"github.com/zyztek/suna-sub010/pkg/schema"
)

// Pitch between siblings on a level and between levels.
const (
	HorizontalSpacing = 200.0
	LevelSpacing      = 120.0
)

// Layout returns a copy of nodes with positions recomputed from the edge
// structure. Each node sits on its longest-path level from a root; every
// level is centered at x = 0. Edges with unknown endpoints are ignored.
// Layout never fails, including on cyclic input.
func Layout(nodes []schema.GraphNode, edges []schema.GraphEdge) []schema.GraphNode {
	out := make([]schema.GraphNode, len(nodes))
	for i, n := range nodes {
		out[i] = n.Clone()
	}
	if len(out) == 0 {
		return out
	}

	idx := make(map[string]int, len(out))
	for i, n := range out {
		if _, dup := idx[n.ID]; !dup {
			idx[n.ID] = i
		}
	}

	children := make([][]int, len(out))
	parents := make([][]int, len(out))
	for _, e := range edges {
		s, okS := idx[e.Source]
		t, okT := idx[e.Target]
		if !okS || !okT {
			continue
		}
		children[s] = append(children[s], t)
		parents[t] = append(parents[t], s)
	}

	levels := computeLevels(children, parents)
	place(out, levels, parents)
	return out
}

// Apply lays out g in place of its node positions.
func Apply(g schema.Graph) schema.Graph {
	return schema.Graph{Nodes: Layout(g.Nodes, g.Edges), Edges: g.Edges}
}

// computeLevels relaxes levels breadth-first from the roots, keeping the
// maximum of the current level and parent level + 1. Levels are capped at
// n-1 so that cycles terminate.
func computeLevels(children, parents [][]int) []int {
	n := len(children)
	level := make([]int, n)
	reached := make([]bool, n)

	relax := func(seeds []int) {
		queue := append([]int(nil), seeds...)
		for _, s := range seeds {
			reached[s] = true
		}
		for len(queue) > 0 {
			u := queue[0]
			queue = queue[1:]
			next := level[u] + 1
			if next > n-1 {
				continue
			}
			for _, v := range children[u] {
				if !reached[v] || level[v] < next {
					reached[v] = true
					level[v] = next
					queue = append(queue, v)
				}
			}
		}
	}

	var roots []int
	for i := range parents {
		if len(parents[i]) == 0 {
			roots = append(roots, i)
		}
	}
	if len(roots) == 0 {
		roots = []int{0}
	}
	relax(roots)

	// Nodes only reachable through a cycle that no root leads into.
	for i := 0; i < n; i++ {
		if !reached[i] {
			relax([]int{i})
		}
	}
	return level
}

// place assigns coordinates level by level. Within a level nodes follow
// the x of their first already placed parent, then original order.
func place(nodes []schema.GraphNode, level []int, parents [][]int) {
	maxLevel := 0
	for _, l := range level {
		if l > maxLevel {
			maxLevel = l
		}
	}
	rows := make([][]int, maxLevel+1)
	for i, l := range level {
		rows[l] = append(rows[l], i)
	}

	placed := make([]bool, len(nodes))
	for l, row := range rows {
		key := make(map[int]float64, len(row))
		for _, i := range row {
			key[i] = math.Inf(1)
			for _, p := range parents[i] {
				if placed[p] && level[p] < l {
					key[i] = nodes[p].Position.X
					break
				}
			}
		}
		sort.SliceStable(row, func(a, b int) bool {
			ka, kb := key[row[a]], key[row[b]]
			if ka != kb {
				return ka < kb
			}
			return row[a] < row[b]
		})

		k := len(row)
		for pos, i := range row {
			nodes[i].Position = schema.Position{
				X: (float64(pos) - float64(k-1)/2) * HorizontalSpacing,
				Y: float64(l) * LevelSpacing,
			}
			placed[i] = true
		}
	}
}
