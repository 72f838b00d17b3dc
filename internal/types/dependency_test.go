package types

import "testing"

func TestDependencyValidateSelfReference(t *testing.T) {
	d := &Dependency{FromItemID: "a", ToItemID: "a", Type: DepBlocks}
	if err := d.Validate(); err == nil {
		t.Fatalf("expected error for self-referencing dependency")
	}
}

func TestDependencyValidateRelatesToUnblockAt(t *testing.T) {
	work := RoleWork
	d := &Dependency{FromItemID: "a", ToItemID: "b", Type: DepRelatesTo, UnblockAt: &work}
	if err := d.Validate(); err == nil {
		t.Fatalf("expected error: RELATES_TO must not set unblockAt")
	}
}

func TestEffectiveUnblockRole(t *testing.T) {
	d := &Dependency{FromItemID: "a", ToItemID: "b", Type: DepBlocks}
	if got := d.EffectiveUnblockRole(); got == nil || *got != RoleTerminal {
		t.Fatalf("nil unblockAt should default to terminal, got %v", got)
	}

	work := RoleWork
	d.UnblockAt = &work
	if got := d.EffectiveUnblockRole(); got == nil || *got != RoleWork {
		t.Fatalf("expected work, got %v", got)
	}

	rel := &Dependency{FromItemID: "a", ToItemID: "b", Type: DepRelatesTo}
	if got := rel.EffectiveUnblockRole(); got != nil {
		t.Fatalf("RELATES_TO should have nil effective unblock role, got %v", got)
	}
}
