package perr

import (
	"errors"
	"fmt"
	"testing"
)

func TestNewTruncatesKeysToFive(t *testing.T) {
	e := New(KindInfeasibleInput, "too many keys", "a", "b", "c", "d", "e", "f", "g")
	if len(e.Keys) != maxKeys {
		t.Fatalf("len(Keys) = %d, want %d", len(e.Keys), maxKeys)
	}
	want := []string{"a", "b", "c", "d", "e"}
	for i, k := range want {
		if e.Keys[i] != k {
			t.Errorf("Keys[%d] = %q, want %q", i, e.Keys[i], k)
		}
	}
}

func TestErrorMessageFormatting(t *testing.T) {
	noKeys := New(KindShelfLifeViolation, "thaw outside window")
	if got := noKeys.Error(); got != "shelf_life_violation: thaw outside window" {
		t.Errorf("Error() = %q", got)
	}

	withKeys := New(KindInvalidInventory, "negative quantity", "loc1", "productA")
	want := "invalid_inventory: negative quantity (keys: [loc1 productA])"
	if got := withKeys.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("underlying failure")
	wrapped := Wrap(KindSolverInfeasible, cause, "solve failed")

	if !errors.Is(wrapped, cause) {
		t.Error("errors.Is should unwrap to the original cause")
	}
	if wrapped.Unwrap() != cause {
		t.Errorf("Unwrap() = %v, want %v", wrapped.Unwrap(), cause)
	}
}

func TestIsMatchesOnKindAlone(t *testing.T) {
	err := New(KindTimeLimit, "solve stopped by the configured time limit", "job-123")

	if !errors.Is(err, &Error{Kind: KindTimeLimit}) {
		t.Error("errors.Is should match a bare *Error with the same Kind")
	}
	if errors.Is(err, &Error{Kind: KindSolverInfeasible}) {
		t.Error("errors.Is should not match a *Error with a different Kind")
	}
	if errors.Is(err, errors.New("plain error")) {
		t.Error("errors.Is should not match a non-*Error target")
	}
}
