// Package perr defines the core's error taxonomy (spec §7). Fatal vs.
// recoverable is carried as a Kind field rather than a distinct Go type, per
// the redesign note in spec §9 ("Exception-for-control-flow during
// preprocessing -> a Result/sum-type return; fatal vs. recoverable is a
// field, not a type").
package perr

import "fmt"

// Kind classifies an Error.
type Kind string

const (
	// KindInfeasibleInput covers pre-solve checks that detect uncoverable
	// demand, missing critical weekday labor, or an empty route set left
	// after shelf-life filtering.
	KindInfeasibleInput Kind = "infeasible_input"

	// KindShelfLifeViolation covers a thaw requested for a cohort outside
	// [0, 120] days old.
	KindShelfLifeViolation Kind = "shelf_life_violation"

	// KindInvalidInventory covers negative quantities or unknown locations
	// in an inventory snapshot.
	KindInvalidInventory Kind = "invalid_inventory"

	// KindSolverInfeasible covers a solver that terminates infeasible
	// despite passing pre-solve checks — indicative of a modelling bug.
	KindSolverInfeasible Kind = "solver_returned_infeasible"

	// KindTimeLimit covers a solve stopped by the configured time limit.
	KindTimeLimit Kind = "time_limit"
)

// Error is the core's single error type. It always carries a machine
// readable Kind and up to 5 of the offending keys (§7: "each carrying the
// offending keys (first 3-5)").
type Error struct {
	Kind    Kind
	Message string
	Keys    []string
	Cause   error
}

const maxKeys = 5

// New constructs an Error, truncating keys to the first 5.
func New(kind Kind, message string, keys ...string) *Error {
	if len(keys) > maxKeys {
		keys = keys[:maxKeys]
	}
	return &Error{Kind: kind, Message: message, Keys: keys}
}

// Wrap constructs an Error that records an underlying cause.
func Wrap(kind Kind, cause error, message string, keys ...string) *Error {
	e := New(kind, message, keys...)
	e.Cause = cause
	return e
}

func (e *Error) Error() string {
	if len(e.Keys) == 0 {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s (keys: %v)", e.Kind, e.Message, e.Keys)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is lets errors.Is match on Kind alone when compared against a bare
// *Error{Kind: k}.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}
