package types

import "time"

// SchemaEntry is one required-or-optional note slot in a note schema, as
// returned by the external note-schema service.
type SchemaEntry struct {
	Key         string
	Role        NoteRole
	Required    bool
	Description string
	Guidance    string
}

// NoteSchema is the set of note entries that apply to a given tag set.
type NoteSchema struct {
	Entries []SchemaEntry
}

// HasReviewPhase reports whether any entry of the schema targets the review
// role — the workflow engine uses this to decide whether WORK's "start"
// target is REVIEW or TERMINAL.
func (s *NoteSchema) HasReviewPhase() bool {
	if s == nil {
		return false
	}
	for _, e := range s.Entries {
		if e.Role == NoteRoleReview {
			return true
		}
	}
	return false
}

// RequiredForRole returns the keys of entries required for the given note
// role.
func (s *NoteSchema) RequiredForRole(role NoteRole) []string {
	if s == nil {
		return nil
	}
	var keys []string
	for _, e := range s.Entries {
		if e.Required && e.Role == role {
			keys = append(keys, e.Key)
		}
	}
	return keys
}

// RequiredAll returns the keys of every required entry across all roles.
func (s *NoteSchema) RequiredAll() []string {
	if s == nil {
		return nil
	}
	var keys []string
	for _, e := range s.Entries {
		if e.Required {
			keys = append(keys, e.Key)
		}
	}
	return keys
}

// SortField selects the field findByFilters/search results are ordered by.
type SortField string

const (
	SortByCreated  SortField = "created"
	SortByModified SortField = "modified"
	SortByPriority SortField = "priority"
)

// NormalizeSortField maps an unrecognized sort field to the default
// (createdAt).
func NormalizeSortField(s string) SortField {
	switch SortField(s) {
	case SortByModified:
		return SortByModified
	case SortByPriority:
		return SortByPriority
	default:
		return SortByCreated
	}
}

// SortOrder is ascending or descending.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// ItemFilter is the conjunctive filter surface shared by findByFilters and
// countByFilters.
type ItemFilter struct {
	ParentID          *string
	Depth             *int
	Role              *Role
	Priority          *Priority
	Tags              []string
	Query             string
	CreatedAfter      *time.Time
	CreatedBefore     *time.Time
	ModifiedAfter     *time.Time
	ModifiedBefore    *time.Time
	RoleChangedAfter  *time.Time
	RoleChangedBefore *time.Time
	SortBy            SortField
	SortOrder         SortOrder
	Limit             int
	Offset            int
}
