package sqltypes

import "github.com/cockroachdb/errors"

// Compile-time error kinds shared across the binder, planner, memo and
// executor, per spec.md §7. Each is a sentinel created with errors.New and
// tested with errors.Is so that callers can dispatch on kind without string
// matching.
var (
	ErrAmbiguousColumn     = errors.New("AmbiguousColumn")
	ErrUnknownColumn       = errors.New("UnknownColumn")
	ErrUnknownTable        = errors.New("UnknownTable")
	ErrMissingGroupBy      = errors.New("MissingGroupBy")
	ErrSubqueryShape       = errors.New("SubqueryShape")
	ErrSubqueryMultipleRow = errors.New("SubqueryMultipleRows")
	ErrNoPhysicalPlan      = errors.New("NoPhysicalPlan")
	ErrTableAliasConflict  = errors.New("TableAliasConflict")
)
