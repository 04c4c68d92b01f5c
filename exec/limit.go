package exec

import (
	"github.com/bigwa/qpmodel/expr"
	"github.com/bigwa/qpmodel/sqltypes"
)

// Limit counts emitted rows and stops calling the child once Count rows have
// been produced (spec.md §4.G), using errStop rather than a cancellation
// token per spec.md §5.
type Limit struct {
	Child Op
	Count int64
}

func (l *Limit) Children() []Op { return []Op{l.Child} }

func (l *Limit) Cost() float64 { return l.Child.Cost() }

func (l *Limit) Exec(ctx *expr.ExecContext, cb RowFunc) error {
	var n int64
	err := l.Child.Exec(ctx, func(row sqltypes.Row) error {
		if n >= l.Count {
			return errStop
		}
		n++
		if err := cb(row); err != nil {
			return err
		}
		if n >= l.Count {
			return errStop
		}
		return nil
	})
	if isStop(err) {
		return nil
	}
	return err
}

// FromQuery runs its child and, if QueryRef has outer references, publishes
// each row into ctx before projecting (spec.md §4.G).
type FromQuery struct {
	Child    Op
	QueryRef *expr.TableRef
	Output   []*expr.Expr
}

func (f *FromQuery) Children() []Op { return []Op{f.Child} }

func (f *FromQuery) Cost() float64 { return f.Child.Cost() }

func (f *FromQuery) Exec(ctx *expr.ExecContext, cb RowFunc) error {
	return f.Child.Exec(ctx, func(row sqltypes.Row) error {
		if len(f.QueryRef.OuterRefs) > 0 {
			ctx.Publish(f.QueryRef, row)
		}
		out, err := projectRow(ctx, f.Output, row)
		if err != nil {
			return err
		}
		return cb(out)
	})
}

// Profiling wraps any operator to count rows produced and, when invoked
// repeatedly by an outer NLJoin, the number of such invocations ("loops"),
// per spec.md §4.G. Exposed via Options.Profile (spec.md §6).
type Profiling struct {
	Child     Op
	Rows      int64
	Loops     int64
}

func (p *Profiling) Children() []Op { return []Op{p.Child} }

func (p *Profiling) Cost() float64 { return p.Child.Cost() }

func (p *Profiling) Exec(ctx *expr.ExecContext, cb RowFunc) error {
	p.Loops++
	return p.Child.Exec(ctx, func(row sqltypes.Row) error {
		p.Rows++
		return cb(row)
	})
}

// Collect is the terminal operator: it trims invisible columns (outer-ref
// columns requested purely for binding, never user-visible) and accumulates
// the final result rows (spec.md §4.G).
type Collect struct {
	Child   Op
	Output  []*expr.Expr
	Visible []bool
	Rows    []sqltypes.Row
}

func (c *Collect) Children() []Op { return []Op{c.Child} }

func (c *Collect) Cost() float64 { return c.Child.Cost() }

func (c *Collect) Exec(ctx *expr.ExecContext, cb RowFunc) error {
	return c.Child.Exec(ctx, func(row sqltypes.Row) error {
		trimmed := make(sqltypes.Row, 0, len(row))
		for i, v := range row {
			if i >= len(c.Visible) || c.Visible[i] {
				trimmed = append(trimmed, v)
			}
		}
		c.Rows = append(c.Rows, trimmed)
		if cb != nil {
			return cb(trimmed)
		}
		return nil
	})
}
