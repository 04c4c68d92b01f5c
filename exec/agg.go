package exec

import (
	"github.com/cockroachdb/errors"

	"github.com/bigwa/qpmodel/expr"
	"github.com/bigwa/qpmodel/sqltypes"
)

// aggState accumulates one aggregate's running value across the rows of a
// single group.
type aggState struct {
	name     string
	distinct bool
	count    int64
	sum      float64
	haveSum  bool
	min, max sqltypes.Value
	haveMM   bool
	seen     map[string]bool
}

func newAggState(name string, distinct bool) *aggState {
	s := &aggState{name: name, distinct: distinct}
	if distinct {
		s.seen = make(map[string]bool)
	}
	return s
}

func (s *aggState) accumulate(arg sqltypes.Value, hasArg bool) error {
	if s.distinct && hasArg {
		k := arg.String()
		if s.seen[k] {
			return nil
		}
		s.seen[k] = true
	}
	switch s.name {
	case "count_rows":
		s.count++
	case "count":
		if hasArg && !arg.Null {
			s.count++
		}
	case "sum", "avg":
		if hasArg && !arg.Null {
			s.sum += arg.AsFloat()
			s.count++
			s.haveSum = true
		}
	case "min":
		if hasArg && !arg.Null {
			if !s.haveMM {
				s.min = arg
				s.haveMM = true
			} else if cmp, err := arg.Compare(s.min); err == nil && cmp < 0 {
				s.min = arg
			}
		}
	case "max":
		if hasArg && !arg.Null {
			if !s.haveMM {
				s.max = arg
				s.haveMM = true
			} else if cmp, err := arg.Compare(s.max); err == nil && cmp > 0 {
				s.max = arg
			}
		}
	default:
		return errors.Newf("unknown aggregate %q", s.name)
	}
	return nil
}

func (s *aggState) result(t sqltypes.ColumnType) sqltypes.Value {
	switch s.name {
	case "count", "count_rows":
		return sqltypes.IntValue(s.count)
	case "sum":
		if !s.haveSum {
			return sqltypes.NullValue(t.Kind)
		}
		if t.Kind == sqltypes.Int {
			return sqltypes.IntValue(int64(s.sum))
		}
		return sqltypes.DoubleValue(s.sum)
	case "avg":
		if !s.haveSum || s.count == 0 {
			return sqltypes.NullValue(sqltypes.Double)
		}
		return sqltypes.DoubleValue(s.sum / float64(s.count))
	case "min":
		if !s.haveMM {
			return sqltypes.NullValue(t.Kind)
		}
		return s.min
	case "max":
		if !s.haveMM {
			return sqltypes.NullValue(t.Kind)
		}
		return s.max
	default:
		return sqltypes.NullValue(t.Kind)
	}
}

// HashAgg implements spec.md §4.G's group-by aggregate: hash by the key list,
// init each aggregate on the first row for a key, accumulate on subsequent
// rows, and at the end project Row(keys, aggregateState) through the output
// list (filtering by Having, when present).
type HashAgg struct {
	Child  Op
	Keys   []*expr.Expr
	Aggs   []*expr.Expr
	Having *expr.Expr
	Output []*expr.Expr
}

func (a *HashAgg) Children() []Op { return []Op{a.Child} }

func (a *HashAgg) Cost() float64 { return a.Child.Cost() * 1.2 }

type aggGroup struct {
	keys  sqltypes.Row
	states []*aggState
}

func (a *HashAgg) Exec(ctx *expr.ExecContext, cb RowFunc) error {
	groups := make(map[string]*aggGroup)
	var order []string

	err := a.Child.Exec(ctx, func(row sqltypes.Row) error {
		keyVals := make(sqltypes.Row, len(a.Keys))
		for i, k := range a.Keys {
			v, err := k.Eval(ctx, row)
			if err != nil {
				return err
			}
			keyVals[i] = v
		}
		gk := keyVals.String()
		g, ok := groups[gk]
		if !ok {
			g = &aggGroup{keys: keyVals}
			for _, agg := range a.Aggs {
				p := agg.Private.(*expr.AggPrivate)
				g.states = append(g.states, newAggState(p.Name, p.Distinct))
			}
			groups[gk] = g
			order = append(order, gk)
		}
		for i, agg := range a.Aggs {
			var v sqltypes.Value
			hasArg := len(agg.Children) > 0
			if hasArg {
				var err error
				v, err = agg.Children[0].Eval(ctx, row)
				if err != nil {
					return err
				}
			}
			if err := g.states[i].accumulate(v, hasArg); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, gk := range order {
		g := groups[gk]
		aggVals := make(sqltypes.Row, len(a.Aggs))
		for i, agg := range a.Aggs {
			aggVals[i] = g.states[i].result(agg.Type)
		}
		combined := g.keys.Concat(aggVals)
		if a.Having != nil {
			v, err := a.Having.Eval(ctx, combined)
			if err != nil {
				return err
			}
			if v.Null || !v.Bool() {
				continue
			}
		}
		out, err := projectRow(ctx, a.Output, combined)
		if err != nil {
			return err
		}
		if err := cb(out); err != nil {
			return err
		}
	}
	return nil
}
