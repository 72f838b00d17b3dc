package types

import (
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	// MaxTitleLen is the maximum length of a WorkItem.Title.
	MaxTitleLen = 500
	// MaxSummaryLen is the maximum length of a WorkItem.Summary.
	MaxSummaryLen = 2000
	// MinComplexity and MaxComplexity bound WorkItem.Complexity.
	MinComplexity = 1
	MaxComplexity = 10
)

var tagPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// WorkItem is a node of the planning/implementation tree and a vertex in the
// dependency graph.
type WorkItem struct {
	ID                   string
	ParentID             *string
	Title                string
	Description          *string
	Summary              string
	Role                 Role
	PreviousRole         *Role
	StatusLabel          *string
	Priority             Priority
	Complexity           *int
	RequiresVerification bool
	Depth                int
	Metadata             string
	Tags                 string // comma-separated, normalized lowercase
	CreatedAt            time.Time
	ModifiedAt           time.Time
	RoleChangedAt        time.Time
	Version              int
}

// NewItemID mints a fresh globally-unique work item identifier.
func NewItemID() string { return uuid.NewString() }

// TagList splits the stored comma-joined tags into a slice. Returns nil for
// an empty tag string.
func TagList(tags string) []string {
	if strings.TrimSpace(tags) == "" {
		return nil
	}
	return strings.Split(tags, ",")
}

// NormalizeTags lowercases, trims, dedupes, sorts, and validates a set of
// tags, returning the canonical comma-joined storage form.
func NormalizeTags(tags []string) (string, error) {
	seen := make(map[string]bool, len(tags))
	var out []string
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if !tagPattern.MatchString(t) {
			return "", NewValidationError("invalid tag %q: must match [a-z0-9][a-z0-9-]*", t)
		}
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Strings(out)
	return strings.Join(out, ","), nil
}

// HasTag reports whether the comma-joined storage form contains tag t,
// matching a whole tag segment rather than a substring — "bug" matches
// "bug", "bug,feature", "alpha,bug", and "alpha,bug,beta" but not "debug" or
// "bugs".
func HasTag(stored, t string) bool {
	if stored == "" || t == "" {
		return false
	}
	if stored == t {
		return true
	}
	if strings.HasPrefix(stored, t+",") {
		return true
	}
	if strings.HasSuffix(stored, ","+t) {
		return true
	}
	if strings.Contains(stored, ","+t+",") {
		return true
	}
	return false
}

// Validate checks the structural invariants of an item that do not depend on
// repository state (parent existence, depth derivation are checked by the
// caller, which has access to the repository).
func (w *WorkItem) Validate() error {
	title := strings.TrimSpace(w.Title)
	if title == "" {
		return NewValidationError("title must not be blank")
	}
	if utf8.RuneCountInString(w.Title) > MaxTitleLen {
		return NewValidationError("title exceeds %d characters", MaxTitleLen)
	}
	if w.Description != nil && strings.TrimSpace(*w.Description) == "" {
		return NewValidationError("description must not be blank when present")
	}
	if utf8.RuneCountInString(w.Summary) > MaxSummaryLen {
		return NewValidationError("summary exceeds %d characters", MaxSummaryLen)
	}
	if !w.Role.IsValid() {
		return NewValidationError("invalid role %q", w.Role)
	}
	if !w.Priority.IsValid() {
		return NewValidationError("invalid priority %q", w.Priority)
	}
	if w.Complexity != nil && (*w.Complexity < MinComplexity || *w.Complexity > MaxComplexity) {
		return NewValidationError("complexity must be between %d and %d", MinComplexity, MaxComplexity)
	}
	if w.Depth < 0 {
		return NewValidationError("depth must be non-negative")
	}
	if (w.ParentID == nil) != (w.Depth == 0) {
		return NewValidationError("parentId is nil iff depth is 0")
	}
	for _, t := range TagList(w.Tags) {
		if !tagPattern.MatchString(t) {
			return NewValidationError("invalid tag %q in stored tags", t)
		}
	}
	return nil
}
