// Package exec implements the pull-model physical operators of spec.md
// §4.G: each Op exposes Exec(ctx, cb), driving its children and calling cb
// zero or many times per input row. Unlike expr.Expr, operators are not a
// single tagged struct — the teacher's executor plumbing (petermattis/opttoy
// v3 executor.go) keeps each operator's exec behavior as its own function
// rather than a switch, and the per-operator Exec/Cost contracts differ
// enough in shape (build/probe state, buffering, counters) that one
// interface per operator reads more clearly than a Private-payload union.
package exec

import (
	"github.com/cockroachdb/errors"

	"github.com/bigwa/qpmodel/expr"
	"github.com/bigwa/qpmodel/sqltypes"
)

// RowFunc is the pull-model callback: return a non-nil error to abort the
// producing operator's iteration (used by Limit and single-row subquery
// capture to stop early without a cancellation token, per spec.md §5 "no
// timers, no cancellation tokens").
type RowFunc func(sqltypes.Row) error

// Op is implemented by every physical operator.
type Op interface {
	Exec(ctx *expr.ExecContext, cb RowFunc) error
	Cost() float64
	Children() []Op
}

// errStop is a sentinel used internally by operators (Limit, semi/anti NLJoin)
// that need to unwind their child's iteration without it being reported as
// a real failure to the caller.
var errStop = errors.New("exec: stop")

func isStop(err error) bool { return errors.Is(err, errStop) }

func runChild(child Op, ctx *expr.ExecContext, cb RowFunc) error {
	err := child.Exec(ctx, cb)
	if isStop(err) {
		return nil
	}
	return err
}
