// Package depgraph implements the dependency-graph engine: cycle detection
// over BLOCKS/IS_BLOCKED_BY edges, effective-unblock-role resolution, and
// ready/blocked classification. It operates on plain edge slices so it can be
// exercised without a database — the storage layer is responsible for
// loading the existing edge set and running these algorithms inside a
// transaction.
package depgraph

import (
	"strings"

	"github.com/workgraph/core/internal/types"
)

// normalizedEdge is a BLOCKS-shaped edge used for cycle detection: an
// IS_BLOCKED_BY(A->B) edge is equivalent, for cycle purposes, to a reversed
// BLOCKS(B->A) edge, since both mean "B must reach a role before A can
// proceed."
type normalizedEdge struct {
	from, to string
}

func normalize(deps []types.Dependency) []normalizedEdge {
	edges := make([]normalizedEdge, 0, len(deps))
	for _, d := range deps {
		switch d.Type {
		case types.DepBlocks:
			edges = append(edges, normalizedEdge{from: d.FromItemID, to: d.ToItemID})
		case types.DepIsBlockedBy:
			edges = append(edges, normalizedEdge{from: d.ToItemID, to: d.FromItemID})
		case types.DepRelatesTo:
			// excluded from cycle computation
		}
	}
	return edges
}

// color used for three-colour DFS marking.
type color int

const (
	white color = iota
	gray
	black
)

// DetectCycle reports whether adding proposed to the existing BLOCKS/
// IS_BLOCKED_BY edge set would create a cycle. RELATES_TO edges in either
// slice are ignored. Returns a *types.ValidationError naming the cycle on
// failure.
func DetectCycle(existing, proposed []types.Dependency) error {
	adjacency := make(map[string][]string)
	for _, e := range normalize(existing) {
		adjacency[e.from] = append(adjacency[e.from], e.to)
	}
	for _, e := range normalize(proposed) {
		adjacency[e.from] = append(adjacency[e.from], e.to)
	}

	colors := make(map[string]color)
	var path []string

	var visit func(node string) error
	visit = func(node string) error {
		colors[node] = gray
		path = append(path, node)
		for _, next := range adjacency[node] {
			switch colors[next] {
			case white:
				if err := visit(next); err != nil {
					return err
				}
			case gray:
				cycleStart := 0
				for i, n := range path {
					if n == next {
						cycleStart = i
						break
					}
				}
				cycle := append(append([]string{}, path[cycleStart:]...), next)
				return types.NewValidationError("circular dependency: %s", strings.Join(cycle, " -> "))
			case black:
				// already fully explored, no cycle through here
			}
		}
		path = path[:len(path)-1]
		colors[node] = black
		return nil
	}

	// Collect start nodes in edge order (existing, then proposed) for a
	// deterministic traversal order (map iteration is not).
	nodes := make([]string, 0, len(adjacency))
	seen := make(map[string]bool)
	for _, e := range normalize(existing) {
		if !seen[e.from] {
			seen[e.from] = true
			nodes = append(nodes, e.from)
		}
	}
	for _, e := range normalize(proposed) {
		if !seen[e.from] {
			seen[e.from] = true
			nodes = append(nodes, e.from)
		}
	}

	for _, n := range nodes {
		if colors[n] == white {
			if err := visit(n); err != nil {
				return err
			}
		}
	}
	return nil
}

// ValidateBatch structurally validates a batch of proposed edges before
// cycle detection: per-edge shape (self-reference, RELATES_TO/unblockAt
// rule), and duplicate rejection against both the existing edge set and the
// rest of the batch (identified by fromItemId, toItemId, type).
func ValidateBatch(existing, proposed []types.Dependency) error {
	type key struct {
		from, to string
		typ      types.DependencyType
	}
	seen := make(map[key]bool, len(existing))
	for _, d := range existing {
		seen[key{d.FromItemID, d.ToItemID, d.Type}] = true
	}

	for i, d := range proposed {
		if err := d.Validate(); err != nil {
			return types.NewValidationError("edge %d: %s", i, err.Error())
		}
		k := key{d.FromItemID, d.ToItemID, d.Type}
		if seen[k] {
			return types.NewValidationError(
				"duplicate dependency (%s, %s, %s)", d.FromItemID, d.ToItemID, d.Type)
		}
		seen[k] = true
	}
	return nil
}
