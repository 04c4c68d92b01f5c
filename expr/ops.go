package expr

import (
	"fmt"
	"hash"
	"hash/fnv"

	"github.com/bigwa/qpmodel/sqltypes"
)

// Clone deep-copies e. The clone is a structurally-equal, independently
// mutable expression tree: mutating a searchReplace on the clone must never
// perturb the original (spec.md §8 "clone equality"). ExprRef clones the
// expression it wraps rather than sharing the pointer, per spec.md §9's note
// that ExprRef ownership follows its wrapping node.
func (e *Expr) Clone() *Expr {
	if e == nil {
		return nil
	}
	out := &Expr{
		Kind:    e.Kind,
		Alias:   e.Alias,
		Visible: e.Visible,
		Type:    e.Type,
		Bounded: e.Bounded,
	}
	if e.TableRefs != nil {
		out.TableRefs = e.TableRefs.Union(nil)
	}
	if len(e.Children) > 0 {
		out.Children = make([]*Expr, len(e.Children))
		for i, c := range e.Children {
			out.Children[i] = c.Clone()
		}
	}
	out.Private = clonePrivate(e.Private)
	return out
}

func clonePrivate(p interface{}) interface{} {
	switch v := p.(type) {
	case *ColPrivate:
		cp := *v
		return &cp
	case *BinPrivate:
		cp := *v
		return &cp
	case *CasePrivate:
		cp := *v
		return &cp
	case *SubqueryPrivate:
		cp := *v
		return &cp
	case *FuncPrivate:
		cp := *v
		return &cp
	case *AggPrivate:
		cp := *v
		return &cp
	case *ExprRefPrivate:
		cp := *v
		return &cp
	case *SelStarPrivate:
		cp := *v
		return &cp
	case *OrderPrivate:
		cp := *v
		return &cp
	case sqltypes.Value:
		return v
	default:
		return p
	}
}

// Equals reports structural equality: same operator and equal children,
// after unwrapping ExprRef on both sides (spec.md §9 "equals ... strips
// ExprRef wrappers before comparing"). ColExpr compares by (table, name),
// tolerating an empty table on either side so an unqualified reference can
// match its qualified counterpart once both are bound to the same column.
func (e *Expr) Equals(o *Expr) bool {
	e = unwrapExprRef(e)
	o = unwrapExprRef(o)
	if e == nil || o == nil {
		return e == o
	}
	if e.Kind != o.Kind {
		return false
	}
	switch e.Kind {
	case KLiteral:
		lv, _ := e.Private.(sqltypes.Value)
		rv, _ := o.Private.(sqltypes.Value)
		return sqltypes.Equal(lv, rv)
	case KCol:
		lp, rp := e.Private.(*ColPrivate), o.Private.(*ColPrivate)
		if lp.Name != rp.Name {
			return false
		}
		return lp.Table == "" || rp.Table == "" || lp.Table == rp.Table
	case KBin:
		if e.Private.(*BinPrivate).Op != o.Private.(*BinPrivate).Op {
			return false
		}
	case KFunc:
		if e.Private.(*FuncPrivate).Name != o.Private.(*FuncPrivate).Name {
			return false
		}
	case KAggFunc:
		lp, rp := e.Private.(*AggPrivate), o.Private.(*AggPrivate)
		if lp.Name != rp.Name || lp.Distinct != rp.Distinct {
			return false
		}
	case KOrder:
		if e.OrderDesc() != o.OrderDesc() {
			return false
		}
	case KSubqueryScalar, KSubqueryExists, KSubqueryIn:
		return e == o
	}
	if len(e.Children) != len(o.Children) {
		return false
	}
	for i := range e.Children {
		if !e.Children[i].Equals(o.Children[i]) {
			return false
		}
	}
	if e.Alias != "" && o.Alias != "" && e.Alias != o.Alias {
		return false
	}
	return true
}

func unwrapExprRef(e *Expr) *Expr {
	for e != nil && e.Kind == KExprRef {
		e = e.Children[0]
	}
	return e
}

// Hash computes a structural hash of the expression with ExprRef wrappers
// stripped; clones hash equal. A column's hash includes its table qualifier,
// so an unqualified column and a qualified one that Equals accepts as equal
// hash differently. Used by memo signature computation (spec.md §5.F).
func (e *Expr) Hash() uint64 {
	h := fnv.New64a()
	e.writeHash(h)
	return h.Sum64()
}

func (e *Expr) writeHash(h hash.Hash64) {
	e = unwrapExprRef(e)
	if e == nil {
		h.Write([]byte{0})
		return
	}
	fmt.Fprintf(h, "k%d", e.Kind)
	switch e.Kind {
	case KLiteral:
		v, _ := e.Private.(sqltypes.Value)
		fmt.Fprintf(h, "|%s", v.String())
	case KCol:
		p := e.Private.(*ColPrivate)
		fmt.Fprintf(h, "|%s.%s", p.Table, p.Name)
	case KBin:
		fmt.Fprintf(h, "|%s", e.Private.(*BinPrivate).Op)
	case KFunc:
		fmt.Fprintf(h, "|%s", e.Private.(*FuncPrivate).Name)
	case KAggFunc:
		p := e.Private.(*AggPrivate)
		fmt.Fprintf(h, "|%s|%v", p.Name, p.Distinct)
	case KOrder:
		fmt.Fprintf(h, "|%v", e.OrderDesc())
	}
	for _, c := range e.Children {
		c.writeHash(h)
	}
}

// ColOrdinal reports the ordinal a bound ColExpr carries, if e is one.
func ColOrdinal(e *Expr) (int, bool) {
	e = unwrapExprRef(e)
	if e == nil || e.Kind != KCol {
		return 0, false
	}
	p := e.Private.(*ColPrivate)
	return p.Ordinal, true
}

// SearchReplace walks e pre-order and returns a new tree with every
// subexpression structurally Equal to from replaced by to (spec.md §9
// "search_replace"). It does not descend into a node it just replaced, so a
// replacement containing occurrences of from is not itself rewritten.
func (e *Expr) SearchReplace(from, to *Expr) *Expr {
	if e == nil {
		return nil
	}
	if e.Equals(from) {
		return to
	}
	out := e.shallowCopy()
	for i, c := range e.Children {
		out.Children[i] = c.SearchReplace(from, to)
	}
	return out
}

// ReplaceByAlias is kept distinct from SearchReplace (spec.md §9 design
// note): it matches on Alias rather than structural equality, used to
// substitute an outer projection's aliased expression back into a HAVING or
// ORDER BY clause that referenced it by name.
func (e *Expr) ReplaceByAlias(alias string, to *Expr) *Expr {
	if e == nil {
		return nil
	}
	if e.Alias == alias && alias != "" {
		return to
	}
	out := e.shallowCopy()
	for i, c := range e.Children {
		out.Children[i] = c.ReplaceByAlias(alias, to)
	}
	return out
}

func (e *Expr) shallowCopy() *Expr {
	out := *e
	if len(e.Children) > 0 {
		out.Children = make([]*Expr, len(e.Children))
		copy(out.Children, e.Children)
	}
	return &out
}

// VisitEach walks e pre-order, calling f on every node not in exclude, and
// stops early the first time f returns false.
func (e *Expr) VisitEach(exclude []Kind, f func(*Expr) bool) bool {
	if e == nil {
		return true
	}
	for _, k := range exclude {
		if e.Kind == k {
			return true
		}
	}
	if !f(e) {
		return false
	}
	for _, c := range e.Children {
		if !c.VisitEach(exclude, f) {
			return false
		}
	}
	return true
}

// VisitEachExists reports whether any node satisfies pred, short-circuiting
// on the first match.
func (e *Expr) VisitEachExists(pred func(*Expr) bool) bool {
	found := false
	e.VisitEach(nil, func(n *Expr) bool {
		if pred(n) {
			found = true
			return false
		}
		return true
	})
	return found
}
