package types

import (
	"strings"
	"testing"
)

func TestValidateTitleBoundary(t *testing.T) {
	w := &WorkItem{Title: strings.Repeat("a", MaxTitleLen), Role: RoleQueue, Priority: PriorityMedium}
	if err := w.Validate(); err != nil {
		t.Fatalf("title of %d chars should be accepted: %v", MaxTitleLen, err)
	}
	w.Title = strings.Repeat("a", MaxTitleLen+1)
	if err := w.Validate(); err == nil {
		t.Fatalf("title of %d chars should be rejected", MaxTitleLen+1)
	}
}

func TestValidateComplexityBoundary(t *testing.T) {
	base := func(c int) *WorkItem {
		return &WorkItem{Title: "t", Role: RoleQueue, Priority: PriorityMedium, Complexity: &c}
	}
	if err := base(MinComplexity).Validate(); err != nil {
		t.Fatalf("complexity %d should be accepted: %v", MinComplexity, err)
	}
	if err := base(MaxComplexity).Validate(); err != nil {
		t.Fatalf("complexity %d should be accepted: %v", MaxComplexity, err)
	}
	if err := base(MinComplexity - 1).Validate(); err == nil {
		t.Fatalf("complexity %d should be rejected", MinComplexity-1)
	}
	if err := base(MaxComplexity + 1).Validate(); err == nil {
		t.Fatalf("complexity %d should be rejected", MaxComplexity+1)
	}
}

func TestValidateSummaryBoundary(t *testing.T) {
	w := &WorkItem{Title: "t", Role: RoleQueue, Priority: PriorityMedium, Summary: strings.Repeat("s", MaxSummaryLen)}
	if err := w.Validate(); err != nil {
		t.Fatalf("summary of %d chars should be accepted: %v", MaxSummaryLen, err)
	}
	w.Summary = strings.Repeat("s", MaxSummaryLen+1)
	if err := w.Validate(); err == nil {
		t.Fatalf("summary of %d chars should be rejected", MaxSummaryLen+1)
	}
}

func TestValidateDepthParentInvariant(t *testing.T) {
	parent := "parent-id"
	w := &WorkItem{Title: "t", Role: RoleQueue, Priority: PriorityMedium, Depth: 1, ParentID: &parent}
	if err := w.Validate(); err != nil {
		t.Fatalf("depth=1 with parent should be valid: %v", err)
	}
	w.ParentID = nil
	if err := w.Validate(); err == nil {
		t.Fatalf("depth=1 without parent should be invalid")
	}
	w.Depth = 0
	if err := w.Validate(); err != nil {
		t.Fatalf("depth=0 without parent should be valid: %v", err)
	}
}

func TestHasTag(t *testing.T) {
	cases := []struct {
		stored, tag string
		want        bool
	}{
		{"bug", "bug", true},
		{"bug,feature", "bug", true},
		{"alpha,bug", "bug", true},
		{"alpha,bug,beta", "bug", true},
		{"debug", "bug", false},
		{"bugs", "bug", false},
	}
	for _, c := range cases {
		if got := HasTag(c.stored, c.tag); got != c.want {
			t.Errorf("HasTag(%q, %q) = %v, want %v", c.stored, c.tag, got, c.want)
		}
	}
}

func TestNormalizeTags(t *testing.T) {
	got, err := NormalizeTags([]string{"Bug", " feature ", "bug"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "bug,feature" {
		t.Fatalf("got %q, want %q", got, "bug,feature")
	}

	if _, err := NormalizeTags([]string{"Has Space"}); err == nil {
		t.Fatalf("expected validation error for invalid tag")
	}
}
