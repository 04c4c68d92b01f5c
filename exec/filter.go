package exec

import (
	"github.com/bigwa/qpmodel/expr"
	"github.com/bigwa/qpmodel/sqltypes"
)

// Filter evaluates Predicate per row and gates the callback (spec.md §4.G).
type Filter struct {
	Child     Op
	Predicate *expr.Expr
	Output    []*expr.Expr
}

func (f *Filter) Children() []Op { return []Op{f.Child} }

func (f *Filter) Cost() float64 { return f.Child.Cost() }

func (f *Filter) Exec(ctx *expr.ExecContext, cb RowFunc) error {
	return f.Child.Exec(ctx, func(row sqltypes.Row) error {
		v, err := f.Predicate.Eval(ctx, row)
		if err != nil {
			return err
		}
		if v.Null || !v.Bool() {
			return nil
		}
		out, err := projectRow(ctx, f.Output, row)
		if err != nil {
			return err
		}
		return cb(out)
	})
}
