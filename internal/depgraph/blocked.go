package depgraph

import "github.com/workgraph/core/internal/types"

// Blocker describes one unsatisfied gating edge on an item.
type Blocker struct {
	FromItemID   string
	CurrentRole  types.Role
	RequiredRole types.Role
}

// BlockType distinguishes an item explicitly parked in BLOCKED from one that
// is merely gated by an unsatisfied dependency.
type BlockType string

const (
	BlockTypeExplicit   BlockType = "explicit"
	BlockTypeDependency BlockType = "dependency"
)

// Deref converts a slice of dependency pointers, as returned by the
// repository facade, into the value slice the graph functions operate on.
func Deref(deps []*types.Dependency) []types.Dependency {
	out := make([]types.Dependency, len(deps))
	for i, d := range deps {
		out[i] = *d
	}
	return out
}

// gatingEdge is one edge that gates itemID: an incoming BLOCKS edge
// (X -> itemID) or an outgoing IS_BLOCKED_BY edge (itemID -> Y). The
// "blocker" is the other endpoint (X, or Y respectively).
type gatingEdge struct {
	blockerID string
	effective types.Role
}

func gatingEdges(itemID string, incoming, outgoing []types.Dependency) []gatingEdge {
	var edges []gatingEdge
	for _, d := range incoming {
		if d.Type != types.DepBlocks || d.ToItemID != itemID {
			continue
		}
		eff := d.EffectiveUnblockRole()
		if eff == nil {
			continue
		}
		edges = append(edges, gatingEdge{blockerID: d.FromItemID, effective: *eff})
	}
	for _, d := range outgoing {
		if d.Type != types.DepIsBlockedBy || d.FromItemID != itemID {
			continue
		}
		eff := d.EffectiveUnblockRole()
		if eff == nil {
			continue
		}
		edges = append(edges, gatingEdge{blockerID: d.ToItemID, effective: *eff})
	}
	return edges
}

// Blockers returns the unsatisfied gating edges on itemID, given its
// incoming and outgoing dependency edges and a lookup of blocker roles by
// item id. A blocker whose role is BLOCKED is always unsatisfied, regardless
// of threshold.
func Blockers(itemID string, incoming, outgoing []types.Dependency, roleOf func(id string) (types.Role, bool)) []Blocker {
	var blockers []Blocker
	for _, e := range gatingEdges(itemID, incoming, outgoing) {
		role, ok := roleOf(e.blockerID)
		if !ok {
			continue
		}
		if role == types.RoleBlocked || !types.IsAtOrBeyond(role, e.effective) {
			blockers = append(blockers, Blocker{
				FromItemID:   e.blockerID,
				CurrentRole:  role,
				RequiredRole: e.effective,
			})
		}
	}
	return blockers
}

// IsBlocked reports whether itemID is blocked by dependency, and if so its
// unsatisfied blockers. It does not consider explicit BLOCKED status — see
// BlockType for how callers combine the two.
func IsBlocked(itemID string, incoming, outgoing []types.Dependency, roleOf func(id string) (types.Role, bool)) (bool, []Blocker) {
	blockers := Blockers(itemID, incoming, outgoing, roleOf)
	return len(blockers) > 0, blockers
}
