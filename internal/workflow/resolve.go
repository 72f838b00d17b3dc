package workflow

import "github.com/workgraph/core/internal/types"

var cancelledLabel = types.StatusCancelled

// resolveTransition maps (item.Role, trigger, hasReviewPhase) to a target
// role and optional statusLabel. It never touches storage. previousRole
// bookkeeping (set on entering BLOCKED, cleared on leaving it) is the apply
// phase's responsibility; resume reads item.PreviousRole directly since it
// is the only trigger that needs it.
func resolveTransition(item *types.WorkItem, trigger types.Trigger, hasReviewPhase bool) (types.Role, *string, error) {
	current := item.Role

	switch current {
	case types.RoleQueue:
		switch trigger {
		case types.TriggerStart:
			return types.RoleWork, nil, nil
		case types.TriggerComplete:
			return types.RoleTerminal, nil, nil
		case types.TriggerBlock, types.TriggerHold:
			return types.RoleBlocked, nil, nil
		case types.TriggerCancel:
			return types.RoleTerminal, &cancelledLabel, nil
		}

	case types.RoleWork:
		switch trigger {
		case types.TriggerStart:
			if hasReviewPhase {
				return types.RoleReview, nil, nil
			}
			return types.RoleTerminal, nil, nil
		case types.TriggerComplete:
			return types.RoleTerminal, nil, nil
		case types.TriggerBlock, types.TriggerHold:
			return types.RoleBlocked, nil, nil
		case types.TriggerCancel:
			return types.RoleTerminal, &cancelledLabel, nil
		}

	case types.RoleReview:
		switch trigger {
		case types.TriggerStart, types.TriggerComplete:
			return types.RoleTerminal, nil, nil
		case types.TriggerBlock, types.TriggerHold:
			return types.RoleBlocked, nil, nil
		case types.TriggerCancel:
			return types.RoleTerminal, &cancelledLabel, nil
		}

	case types.RoleTerminal:
		return "", nil, failf(trigger, "item is already terminal")

	case types.RoleBlocked:
		switch trigger {
		case types.TriggerComplete:
			return types.RoleTerminal, nil, nil
		case types.TriggerCancel:
			return types.RoleTerminal, &cancelledLabel, nil
		case types.TriggerResume:
			if item.PreviousRole == nil {
				return "", nil, failf(trigger, "item has no previous role to resume")
			}
			return *item.PreviousRole, nil, nil
		}
	}

	return "", nil, failf(trigger, "trigger %q not valid from role %q", trigger, current)
}
