package plan

import (
	"github.com/cockroachdb/errors"

	"github.com/bigwa/qpmodel/exec"
	"github.com/bigwa/qpmodel/expr"
)

// WireSubqueries finds every scalar/exists/in subquery expression reachable
// from root's scalar-expression slots, lowers its already-bound inner plan
// (stashed at bind time in SubqueryPrivate.Plan) to a physical exec.Op, and
// assigns the result as the expression's SubPlanRunner (spec.md §4.C,
// §4.G "subquery execution"). A subquery's inner plan never goes through the
// memo, regardless of the outer statement's use_memo setting — qpmodel does
// not cost-based optimize correlated subplans, only the outer relational
// tree, so this always lowers directly.
func WireSubqueries(root *Node, prof Profile) error {
	return walkScalarSlots(root, func(e *expr.Expr) error {
		return wireOne(e, prof)
	})
}

func wireOne(e *expr.Expr, prof Profile) error {
	switch e.Kind {
	case expr.KSubqueryScalar, expr.KSubqueryExists, expr.KSubqueryIn:
	default:
		return nil
	}
	p := e.SubqueryPrivate()
	if p.Runner != nil {
		return nil
	}
	inner, ok := p.Plan.(*Node)
	if !ok || inner == nil {
		return errors.AssertionFailedf("subquery %d has no bound inner plan", p.ID)
	}
	if err := WireSubqueries(inner, prof); err != nil {
		return err
	}
	op, err := inner.DirectToPhysical(prof)
	if err != nil {
		return errors.Wrapf(err, "lowering subquery %d", p.ID)
	}
	p.Runner = &exec.SubPlan{Root: op}
	return nil
}

// walkScalarSlots visits every scalar expression hanging directly off n
// (Filter, JoinFilter, Having, Output, Keys, Aggs, OrderBy, InsertRows) via
// VisitEach, then recurses into n's non-MemoRef children.
func walkScalarSlots(n *Node, f func(*expr.Expr) error) error {
	slots := make([]*expr.Expr, 0, 4+len(n.Output)+len(n.Keys)+len(n.Aggs)+len(n.OrderBy))
	slots = append(slots, n.Filter, n.JoinFilter, n.Having)
	slots = append(slots, n.Output...)
	slots = append(slots, n.Keys...)
	slots = append(slots, n.Aggs...)
	slots = append(slots, n.OrderBy...)
	for _, row := range n.InsertRows {
		slots = append(slots, row...)
	}
	for _, s := range slots {
		if s == nil {
			continue
		}
		var err error
		s.VisitEach(nil, func(x *expr.Expr) bool {
			if e := f(x); e != nil {
				err = e
				return false
			}
			return true
		})
		if err != nil {
			return err
		}
	}
	for _, c := range n.Children {
		if c.Kind == KMemoRef {
			continue
		}
		if err := walkScalarSlots(c, f); err != nil {
			return err
		}
	}
	return nil
}
