package exec

import (
	"sort"

	"github.com/bigwa/qpmodel/expr"
	"github.com/bigwa/qpmodel/sqltypes"
)

// Order buffers all rows from its child and sorts them by the comparator
// composed from (Exprs, Descend), per spec.md §4.G.
type Order struct {
	Child   Op
	Exprs   []*expr.Expr
	Descend []bool
	Output  []*expr.Expr
}

func (o *Order) Children() []Op { return []Op{o.Child} }

func (o *Order) Cost() float64 { return o.Child.Cost() * 1.5 }

func (o *Order) Exec(ctx *expr.ExecContext, cb RowFunc) error {
	var rows []sqltypes.Row
	if err := o.Child.Exec(ctx, func(row sqltypes.Row) error {
		rows = append(rows, row.Clone())
		return nil
	}); err != nil {
		return err
	}

	var sortErr error
	sort.SliceStable(rows, func(i, j int) bool {
		if sortErr != nil {
			return false
		}
		for k, e := range o.Exprs {
			vi, err := e.Eval(ctx, rows[i])
			if err != nil {
				sortErr = err
				return false
			}
			vj, err := e.Eval(ctx, rows[j])
			if err != nil {
				sortErr = err
				return false
			}
			if vi.Null || vj.Null {
				if vi.Null == vj.Null {
					continue
				}
				return vj.Null
			}
			cmp, err := vi.Compare(vj)
			if err != nil {
				sortErr = err
				return false
			}
			if cmp == 0 {
				continue
			}
			if o.Descend[k] {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
	if sortErr != nil {
		return sortErr
	}

	for _, row := range rows {
		out, err := projectRow(ctx, o.Output, row)
		if err != nil {
			return err
		}
		if err := cb(out); err != nil {
			return err
		}
	}
	return nil
}
