// Package workflow implements the role state machine: trigger resolution,
// dependency-constraint validation, transactional apply, cascade
// propagation up the parent chain, and advisory unblock detection across
// the dependency graph.
package workflow

import (
	"fmt"
	"strings"

	"github.com/workgraph/core/internal/depgraph"
	"github.com/workgraph/core/internal/types"
)

// TransitionError reports a failed resolve or validate phase. Blockers is
// populated only for validation failures.
type TransitionError struct {
	Trigger  types.Trigger
	Msg      string
	Blockers []depgraph.Blocker
}

func (e *TransitionError) Error() string {
	if len(e.Blockers) == 0 {
		return e.Msg
	}
	names := make([]string, len(e.Blockers))
	for i, b := range e.Blockers {
		names[i] = fmt.Sprintf("%s(role=%s,needs=%s)", b.FromItemID, b.CurrentRole, b.RequiredRole)
	}
	return fmt.Sprintf("%s: blocked by %s", e.Msg, strings.Join(names, ", "))
}

func failf(trigger types.Trigger, format string, args ...any) *TransitionError {
	return &TransitionError{Trigger: trigger, Msg: fmt.Sprintf(format, args...)}
}

// GateError reports a failed note-schema gate check.
type GateError struct {
	Gate    string // "start" or "complete"
	Missing []string
}

func (e *GateError) Error() string {
	return fmt.Sprintf("%s gate failed: missing %s", e.Gate, strings.Join(e.Missing, ", "))
}
