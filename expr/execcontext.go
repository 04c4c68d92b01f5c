package expr

import "github.com/bigwa/qpmodel/sqltypes"

// ExecContext is the single per-execution piece of mutable shared state
// (spec.md §5): a map from TableRef to the current driving row, used to pass
// a correlated outer row into a nested plan. The owning operator publishes
// the row it is about to probe with via Publish; the inner plan's ColExpr
// eval reads it back via GetParam. Per spec.md §5 "Ordering guarantee": an
// outer-ref column always observes the row written by the most recent
// enclosing Publish on that TableRef — a plain map overwrite gives exactly
// that, since execution is single-threaded and cooperative (no suspension).
type ExecContext struct {
	params map[*TableRef]sqltypes.Row
}

func NewExecContext() *ExecContext {
	return &ExecContext{params: make(map[*TableRef]sqltypes.Row)}
}

func (c *ExecContext) Publish(ref *TableRef, row sqltypes.Row) {
	c.params[ref] = row
}

func (c *ExecContext) GetParam(ref *TableRef, ordinal int) sqltypes.Value {
	row, ok := c.params[ref]
	if !ok || ordinal >= len(row) {
		return sqltypes.Value{Null: true}
	}
	return row[ordinal]
}
