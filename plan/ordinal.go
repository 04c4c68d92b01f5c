package plan

import (
	"github.com/cockroachdb/errors"

	"github.com/bigwa/qpmodel/expr"
	"github.com/bigwa/qpmodel/sqltypes"
)

// ResolveColumnOrdinal implements spec.md §4.E's per-node contract: top-down
// request propagation that fixes each descendant's Output, then rewrites
// this node's own expressions into ExprRef(expr, index-in-child-output).
// After this returns, no Expr inside n (beyond a base scan's leaves)
// references a column by name — only by child ordinal.
func (n *Node) ResolveColumnOrdinal(requested []*expr.Expr, removeRedundant bool) error {
	switch n.Kind {
	case KGetBaseTable, KGetExternalTable:
		return n.resolveGet(requested)
	case KFromQuery:
		return n.resolveFromQuery(requested)
	case KJoin, KMark, KSemi, KAntiSemi, KSingleJoin:
		return n.resolveJoin(requested)
	case KFilter:
		return n.resolveFilter(requested)
	case KAgg:
		return n.resolveAgg(requested, removeRedundant)
	case KOrder:
		return n.resolvePassthrough(requested)
	case KLimit:
		return n.resolvePassthrough(requested)
	case KResult, KInsert:
		return n.resolveResult(requested)
	default:
		return errors.AssertionFailedf("ResolveColumnOrdinal: unhandled kind %s", n.Kind)
	}
}

// resolveGet validates every requested expression references this TableRef
// (or is a constant/subquery, which carries no table membership), replaces
// each with a positional ExprRef into the base table's column list. Output
// is exactly the requested list: outer-ref columns are not added to it.
func (n *Node) resolveGet(requested []*expr.Expr) error {
	out := make([]*expr.Expr, 0, len(requested))
	for _, e := range requested {
		if e.TableRefs.Len() > 0 && !e.TableRefs.Contains(n.TableRef) {
			return errors.AssertionFailedf("Get(%s) received request outside its table", n.TableRef)
		}
		ref := asExprRef(e, n.TableRef)
		out = append(out, ref)
	}
	n.Output = out
	return nil
}

// asExprRef converts e into an ExprRef positioned at its ordinal within
// ref's column list when e is a plain column reference on ref; otherwise e
// passes through unchanged (constants, subqueries, computed expressions
// already reduced to a single scan-local leaf keep their own shape at a Get
// node, since there is no child output to index into yet).
func asExprRef(e *expr.Expr, ref *expr.TableRef) *expr.Expr {
	if e.Kind == expr.KExprRef {
		return e
	}
	if ord, ok := expr.ColOrdinal(e); ok {
		return expr.NewExprRef(e, ord)
	}
	// Constants, funcs of constants, or subqueries carry no natural ordinal
	// at a Get node: they are evaluated standalone, so leave them unwrapped.
	return e
}

func (n *Node) resolveFromQuery(requested []*expr.Expr) error {
	child := n.Children[0]
	innerOutput := child.Output
	if innerOutput == nil {
		// Inner plan not yet resolved (e.g. built directly from a bound
		// SELECT list) — request its own full projection list.
		if err := child.ResolveColumnOrdinal(child.Output, false); err != nil {
			return err
		}
		innerOutput = child.Output
	}
	out := make([]*expr.Expr, len(requested))
	for i, e := range requested {
		out[i] = rewriteAgainst(e, innerOutput)
	}
	n.Output = out
	return nil
}

// resolveJoin partitions requested ∪ {filter} by left/right table
// membership; a predicate straddling both sides is decomposed into per-column
// requests fanned out to whichever side owns each column, and the node's own
// filter/output are rewritten against the concatenation leftOut||rightOut.
func (n *Node) resolveJoin(requested []*expr.Expr) error {
	left, right := n.Children[0], n.Children[1]
	leftReq, rightReq := partitionByTables(requested, left)
	if n.JoinFilter != nil {
		lr, rr := partitionByTables([]*expr.Expr{n.JoinFilter}, left)
		leftReq = append(leftReq, lr...)
		rightReq = append(rightReq, rr...)
	}
	if err := left.ResolveColumnOrdinal(dedupExprs(leftReq), true); err != nil {
		return err
	}
	if err := right.ResolveColumnOrdinal(dedupExprs(rightReq), true); err != nil {
		return err
	}
	combined := append(append([]*expr.Expr{}, left.Output...), right.Output...)
	if n.JoinFilter != nil {
		n.JoinFilter = rewriteAgainst(n.JoinFilter, combined)
	}
	out := make([]*expr.Expr, len(requested))
	for i, e := range requested {
		out[i] = rewriteAgainst(e, combined)
	}
	n.Output = out
	return nil
}

// partitionByTables splits exprs by whether their TableRefs subset is
// entirely contained in left's subtree TableRefSet or not; a straddling
// expression is decomposed column-by-column and each leaf routed to its
// owning side, per spec.md §4.E "decompose into per-column requests".
func partitionByTables(exprs []*expr.Expr, left *Node) (leftOut, rightOut []*expr.Expr) {
	leftTables := subtreeTables(left)
	for _, e := range exprs {
		if isSubsetOf(e.TableRefs, leftTables) {
			leftOut = append(leftOut, e)
			continue
		}
		if e.TableRefs.Len() == 0 {
			// Constant or aggregate-free expression with no table
			// membership: harmless to request from either side, request
			// from neither and let it be rebuilt from literals alone during
			// rewrite.
			continue
		}
		disjointFromLeft := true
		for t := range e.TableRefs {
			if leftTables.Contains(t) {
				disjointFromLeft = false
				break
			}
		}
		if disjointFromLeft {
			rightOut = append(rightOut, e)
			continue
		}
		// Straddles both sides: decompose into leaf column requests.
		e.VisitEach([]expr.Kind{}, func(n *expr.Expr) bool {
			if n.Kind != expr.KCol {
				return true
			}
			if n.TableRefs.Len() == 0 {
				return true
			}
			if isSubsetOf(n.TableRefs, leftTables) {
				leftOut = append(leftOut, n)
			} else {
				rightOut = append(rightOut, n)
			}
			return true
		})
	}
	return leftOut, rightOut
}

func subtreeTables(n *Node) expr.TableRefSet {
	var out expr.TableRefSet
	if n.TableRef != nil {
		out = out.Add(n.TableRef)
	}
	if n.QueryRef != nil {
		out = out.Add(n.QueryRef)
	}
	for _, c := range n.Children {
		out = out.Union(subtreeTables(c))
	}
	return out
}

func isSubsetOf(s, superset expr.TableRefSet) bool {
	for t := range s {
		if !superset.Contains(t) {
			return false
		}
	}
	return true
}

func dedupExprs(in []*expr.Expr) []*expr.Expr {
	var out []*expr.Expr
	for _, e := range in {
		dup := false
		for _, o := range out {
			if e.Equals(o) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, e)
		}
	}
	return out
}

func (n *Node) resolveFilter(requested []*expr.Expr) error {
	child := n.Children[0]
	req := append([]*expr.Expr{}, requested...)
	n.Filter.VisitEach([]expr.Kind{}, func(x *expr.Expr) bool {
		if x.Kind == expr.KCol && x.TableRefs.Len() > 0 {
			req = append(req, x)
		}
		return true
	})
	req = dedupExprs(req)
	if err := child.ResolveColumnOrdinal(req, true); err != nil {
		return err
	}
	n.Filter = rewriteAgainst(n.Filter, child.Output)
	out := make([]*expr.Expr, len(requested))
	for i, e := range requested {
		out[i] = rewriteAgainst(e, child.Output)
	}
	n.Output = out
	return nil
}

// resolveAgg pushes only key and aggregate-argument expressions to the
// child, then rewrites the output so every AggFunc becomes
// ExprRef(agg, nkeys+index(agg)) and every whole-key expression becomes
// ExprRef(key, index(key)). Any surviving raw ColExpr after that rewrite is
// MissingGroupBy.
func (n *Node) resolveAgg(requested []*expr.Expr, removeRedundant bool) error {
	child := n.Children[0]
	var req []*expr.Expr
	req = append(req, n.Keys...)
	for _, a := range n.Aggs {
		req = append(req, a.Children...)
	}
	if err := child.ResolveColumnOrdinal(dedupExprs(req), removeRedundant); err != nil {
		return err
	}
	n.Keys = rewriteAllAgainst(n.Keys, child.Output)
	for _, a := range n.Aggs {
		for i, c := range a.Children {
			a.Children[i] = rewriteAgainst(c, child.Output)
		}
	}
	out := make([]*expr.Expr, len(requested))
	for i, e := range requested {
		out[i] = n.rewriteAggOutput(e)
	}
	if n.Having != nil {
		n.Having = n.rewriteAggOutput(n.Having)
	}
	for _, e := range out {
		if !e.VisitEach([]expr.Kind{expr.KExprRef}, func(x *expr.Expr) bool { return x.Kind != expr.KCol }) {
			return errors.Wrapf(sqltypes.ErrMissingGroupBy, "")
		}
	}
	n.Output = out
	return nil
}

func (n *Node) rewriteAggOutput(e *expr.Expr) *expr.Expr {
	for i, k := range n.Keys {
		if e.Equals(k) {
			if k.Kind == expr.KExprRef {
				k = k.ExprRefWrapped()
			}
			return expr.NewExprRef(k, i)
		}
	}
	for i, a := range n.Aggs {
		if e.Equals(a) {
			return expr.NewExprRef(a, len(n.Keys)+i)
		}
	}
	if len(e.Children) == 0 {
		return e
	}
	out := e.Clone()
	for i, c := range e.Children {
		out.Children[i] = n.rewriteAggOutput(c)
	}
	return out
}

func (n *Node) resolvePassthrough(requested []*expr.Expr) error {
	child := n.Children[0]
	var extra []*expr.Expr
	if n.Kind == KOrder {
		extra = n.OrderBy
	}
	req := dedupExprs(append(append([]*expr.Expr{}, requested...), extra...))
	if err := child.ResolveColumnOrdinal(req, false); err != nil {
		return err
	}
	for i, o := range n.OrderBy {
		n.OrderBy[i] = rewriteAgainst(o, child.Output)
	}
	out := make([]*expr.Expr, len(requested))
	for i, e := range requested {
		out[i] = rewriteAgainst(e, child.Output)
	}
	n.Output = out
	return nil
}

func (n *Node) resolveResult(requested []*expr.Expr) error {
	child := n.Children[0]
	if err := child.ResolveColumnOrdinal(n.Output, true); err != nil {
		return err
	}
	n.Output = child.Output
	return nil
}

// rewriteAgainst replaces every leaf of e that structurally matches an
// element of childOutput with an ExprRef positioned at that element's index.
func rewriteAgainst(e *expr.Expr, childOutput []*expr.Expr) *expr.Expr {
	for i, c := range childOutput {
		if e.Equals(c) {
			if c.Kind == expr.KExprRef {
				c = c.ExprRefWrapped()
			}
			return expr.NewExprRef(c, i)
		}
	}
	if len(e.Children) == 0 {
		return e
	}
	out := e.Clone()
	for i, c := range e.Children {
		out.Children[i] = rewriteAgainst(c, childOutput)
	}
	return out
}

func rewriteAllAgainst(exprs []*expr.Expr, childOutput []*expr.Expr) []*expr.Expr {
	out := make([]*expr.Expr, len(exprs))
	for i, e := range exprs {
		out[i] = rewriteAgainst(e, childOutput)
	}
	return out
}
