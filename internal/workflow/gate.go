package workflow

import (
	"github.com/workgraph/core/internal/types"
)

// EvaluateStartGate checks the start gate: every required
// note whose role equals the item's current role must have a non-empty
// body. A nil schema (no match) passes vacuously.
func EvaluateStartGate(schema *types.NoteSchema, current types.Role, notes []*types.Note) error {
	return evaluateGate("start", schema.RequiredForRole(types.NoteRole(current)), notes)
}

// EvaluateCompleteGate checks the complete gate: every required note across
// all roles must have a non-empty body.
func EvaluateCompleteGate(schema *types.NoteSchema, notes []*types.Note) error {
	return evaluateGate("complete", schema.RequiredAll(), notes)
}

func evaluateGate(name string, required []string, notes []*types.Note) error {
	if len(required) == 0 {
		return nil
	}
	bodies := make(map[string]string, len(notes))
	for _, n := range notes {
		bodies[n.Key] = n.Body
	}

	var missing []string
	for _, key := range required {
		if bodies[key] == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return &GateError{Gate: name, Missing: missing}
	}
	return nil
}

// ExpectedNote describes one note slot the item's schema expects for its new
// role, alongside whether the item already has it (an advance_item response
// field).
type ExpectedNote struct {
	Key    string
	Role   types.NoteRole
	Exists bool
}

// ExpectedNotesForRole lists the schema entries that target newRole,
// annotated with whether the item already carries that note key.
func ExpectedNotesForRole(schema *types.NoteSchema, newRole types.Role, notes []*types.Note) []ExpectedNote {
	if schema == nil {
		return nil
	}
	have := make(map[string]struct{}, len(notes))
	for _, n := range notes {
		have[n.Key] = struct{}{}
	}

	var expected []ExpectedNote
	for _, e := range schema.Entries {
		if e.Role != types.NoteRole(newRole) {
			continue
		}
		_, exists := have[e.Key]
		expected = append(expected, ExpectedNote{Key: e.Key, Role: e.Role, Exists: exists})
	}
	return expected
}
