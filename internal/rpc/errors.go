package rpc

import (
	"github.com/workgraph/core/internal/depgraph"
	"github.com/workgraph/core/internal/storage"
	"github.com/workgraph/core/internal/types"
	"github.com/workgraph/core/internal/workflow"
)

func codeFor(err error) Code {
	switch {
	case storage.IsNotFound(err):
		return CodeNotFound
	case storage.IsConflict(err):
		return CodeConflict
	case storage.IsDatabase(err):
		return CodeDatabase
	}

	switch err.(type) {
	case *types.ValidationError:
		return CodeValidation
	case *workflow.TransitionError:
		return CodeOperation
	case *workflow.GateError:
		return CodeOperation
	}
	return CodeInternal
}

func detailsFor(err error) any {
	if te, ok := err.(*workflow.TransitionError); ok && len(te.Blockers) > 0 {
		return blockerDetails(te.Blockers)
	}
	if ge, ok := err.(*workflow.GateError); ok {
		return map[string]any{"missing": ge.Missing}
	}
	return nil
}

func blockerDetails(blockers []depgraph.Blocker) []map[string]any {
	out := make([]map[string]any, len(blockers))
	for i, b := range blockers {
		out[i] = map[string]any{
			"itemId":       b.FromItemID,
			"currentRole":  b.CurrentRole,
			"requiredRole": b.RequiredRole,
		}
	}
	return out
}
