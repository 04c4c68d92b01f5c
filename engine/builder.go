package engine

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/cockroach/pkg/sql/sem/tree"
	"github.com/cockroachdb/errors"

	"github.com/bigwa/qpmodel/catalog"
	"github.com/bigwa/qpmodel/expr"
	"github.com/bigwa/qpmodel/plan"
	"github.com/bigwa/qpmodel/sqltypes"
)

// builder turns a parsed tree.Statement into a logical plan.Node, the one
// piece spec.md leaves to its caller (spec.md §1: "parsing itself is out of
// scope") but that a runnable engine still needs end to end. It follows the
// teacher's v3/build.go dispatch shape (build -> buildSelect -> buildFrom /
// buildTable / buildScalar / buildGroupBy / buildProjections / buildOrderBy)
// while binding directly against expr.BindContext/expr.TableRef and
// constructing plan.Node instead of the teacher's own expression types.
type builder struct {
	cat *catalog.Catalog
}

func newBuilder(cat *catalog.Catalog) *builder {
	return &builder{cat: cat}
}

func (b *builder) buildStatement(stmt tree.Statement) (*plan.Node, error) {
	switch s := stmt.(type) {
	case *tree.Select:
		root, _, err := b.buildSelect(s, nil)
		return root, err
	case *tree.Insert:
		return b.buildInsert(s)
	default:
		return nil, errors.Newf("unsupported statement type %T", stmt)
	}
}

// buildSelect binds s in a fresh child scope of parent, returning both the
// resulting plan and the scope it was bound in. Subquery cacheability is
// decided separately, by hasOuterRef over the bound inner plan.
func (b *builder) buildSelect(s *tree.Select, parent *expr.BindContext) (*plan.Node, *expr.BindContext, error) {
	ctx := expr.NewBindContext(parent)
	node, err := b.buildSelectInto(s, ctx)
	return node, ctx, err
}

func (b *builder) buildSelectInto(s *tree.Select, ctx *expr.BindContext) (*plan.Node, error) {
	if s.With != nil {
		if err := b.buildWith(s.With, ctx); err != nil {
			return nil, err
		}
	}
	clause, ok := s.Select.(*tree.SelectClause)
	if !ok {
		if ps, ok := s.Select.(*tree.ParenSelect); ok {
			return b.buildSelectInto(ps.Select, ctx)
		}
		return nil, errors.Newf("unsupported SELECT form %T", s.Select)
	}
	node, projExprs, err := b.buildSelectClause(clause, ctx)
	if err != nil {
		return nil, err
	}
	if len(s.OrderBy) > 0 {
		orderExprs, err := b.buildOrderBy(s.OrderBy, ctx, projExprs)
		if err != nil {
			return nil, err
		}
		node = plan.NewOrder(orderExprs, node)
	}
	if s.Limit != nil && s.Limit.Count != nil {
		n, err := b.evalConstInt(s.Limit.Count)
		if err != nil {
			return nil, err
		}
		node = plan.NewLimit(n, node)
	}
	return plan.NewResult(projExprs, node), nil
}

func (b *builder) buildWith(w *tree.With, ctx *expr.BindContext) error {
	if w.Recursive {
		return errors.Newf("recursive WITH is not supported")
	}
	for _, cte := range w.CTEList {
		inner, err := b.buildCTEPlan(cte.Stmt, ctx)
		if err != nil {
			return err
		}
		alias := cteAlias(cte)
		ref := expr.NewCTERef(alias, inner, columnInfosOf(inner.Output))
		if err := ctx.RegisterTable(ref); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) buildCTEPlan(stmt tree.Statement, ctx *expr.BindContext) (*plan.Node, error) {
	s, ok := stmt.(*tree.Select)
	if !ok {
		return nil, errors.Newf("unsupported CTE body %T", stmt)
	}
	inner, _, err := b.buildSelect(s, ctx)
	if err != nil {
		return nil, err
	}
	if err := inner.ResolveColumnOrdinal(inner.Output, false); err != nil {
		return nil, err
	}
	return inner, nil
}

func cteAlias(cte *tree.CTE) string {
	return string(cte.Name.Alias)
}

// buildSelectClause builds the FROM/WHERE/GROUP BY/HAVING core of a SELECT,
// returning the relational node and the bound (not yet ordinal-resolved)
// projection list destined for the enclosing Result node's Output.
func (b *builder) buildSelectClause(s *tree.SelectClause, ctx *expr.BindContext) (*plan.Node, []*expr.Expr, error) {
	if len(s.From.Tables) == 0 {
		return nil, nil, errors.Newf("SELECT without FROM is not supported")
	}
	node, err := b.buildFrom(s.From.Tables, ctx)
	if err != nil {
		return nil, nil, err
	}
	if s.Where != nil {
		pred, err := b.buildScalar(s.Where.Expr, ctx)
		if err != nil {
			return nil, nil, err
		}
		if err := pred.Bind(ctx); err != nil {
			return nil, nil, err
		}
		node = plan.NewFilter(pred, node)
	}

	projRaw, err := b.buildProjectionList(s.Exprs, ctx)
	if err != nil {
		return nil, nil, err
	}

	var having *expr.Expr
	if s.Having != nil {
		having, err = b.buildScalar(s.Having.Expr, ctx)
		if err != nil {
			return nil, nil, err
		}
		if err := having.Bind(ctx); err != nil {
			return nil, nil, err
		}
	}

	groupKeys, err := b.buildGroupBy(s.GroupBy, ctx)
	if err != nil {
		return nil, nil, err
	}

	needsAgg := len(groupKeys) > 0 || having != nil
	if !needsAgg {
		for _, e := range projRaw {
			if len(collectAggs(e, nil)) > 0 {
				needsAgg = true
				break
			}
		}
	}
	if needsAgg {
		var aggs []*expr.Expr
		for _, e := range projRaw {
			aggs = collectAggs(e, aggs)
		}
		aggs = collectAggs(having, aggs)
		node = plan.NewAgg(groupKeys, aggs, having, node)
	}

	projExprs, err := b.expandProjections(projRaw, ctx)
	if err != nil {
		return nil, nil, err
	}
	for _, e := range projExprs {
		if err := e.Bind(ctx); err != nil {
			return nil, nil, err
		}
		e.Visible = true
	}
	return node, projExprs, nil
}

// collectAggs gathers the distinct (by structural equality) KAggFunc nodes
// reachable from e, the set the enclosing Agg node costs and computes.
func collectAggs(e *expr.Expr, out []*expr.Expr) []*expr.Expr {
	if e == nil {
		return out
	}
	if e.Kind == expr.KAggFunc {
		for _, o := range out {
			if e.Equals(o) {
				return out
			}
		}
		return append(out, e)
	}
	for _, c := range e.Children {
		out = collectAggs(c, out)
	}
	return out
}

func (b *builder) buildGroupBy(g tree.GroupBy, ctx *expr.BindContext) ([]*expr.Expr, error) {
	keys := make([]*expr.Expr, 0, len(g))
	for _, raw := range g {
		k, err := b.buildScalar(raw, ctx)
		if err != nil {
			return nil, err
		}
		if err := k.Bind(ctx); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, nil
}

// buildFrom left-folds the comma list of FROM items into a Cross-join chain,
// matching the teacher's buildFrom: a plain comma join carries no predicate
// of its own, leaving WHERE to supply it, while an explicit JoinTableExpr
// carries ON/USING/NATURAL straight onto the plan.Node it produces.
func (b *builder) buildFrom(tables tree.TableExprs, ctx *expr.BindContext) (*plan.Node, error) {
	node, err := b.buildTableExpr(tables[0], ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range tables[1:] {
		rhs, err := b.buildTableExpr(t, ctx)
		if err != nil {
			return nil, err
		}
		node = plan.NewJoin(plan.Cross, nil, node, rhs)
	}
	return node, nil
}

func (b *builder) buildTableExpr(t tree.TableExpr, ctx *expr.BindContext) (*plan.Node, error) {
	switch e := t.(type) {
	case *tree.AliasedTableExpr:
		return b.buildAliasedTable(e, ctx)
	case *tree.JoinTableExpr:
		return b.buildJoin(e, ctx)
	case *tree.ParenTableExpr:
		return b.buildTableExpr(e.Expr, ctx)
	default:
		return nil, errors.Newf("unsupported FROM item %T", t)
	}
}

func (b *builder) buildAliasedTable(t *tree.AliasedTableExpr, ctx *expr.BindContext) (*plan.Node, error) {
	if sub, ok := t.Expr.(*tree.Subquery); ok {
		return b.buildFromSubquery(sub, t, ctx)
	}
	name := tableExprName(t.Expr)
	alias := string(t.As.Alias)
	if alias == "" {
		alias = name
	}
	if ref, ok := ctx.Table(alias); ok && (ref.Kind == expr.CTE) {
		// A bare reference to an already-registered CTE, re-aliased if
		// t.As.Alias differs from the CTE's own name.
		_ = ref
	}
	if cte, ok := lookupCTE(ctx, name); ok {
		ref := expr.NewCTERef(alias, cte.SubqueryPlan, cte.Columns)
		if err := ctx.RegisterTable(ref); err != nil {
			return nil, err
		}
		return plan.NewFromQuery(ref, cte.SubqueryPlan.(*plan.Node)), nil
	}
	table, err := b.cat.Table(name)
	if err != nil {
		return nil, err
	}
	ref := expr.NewBaseTableRef(alias, table)
	if err := ctx.RegisterTable(ref); err != nil {
		return nil, err
	}
	return plan.NewGetBaseTable(ref), nil
}

func lookupCTE(ctx *expr.BindContext, name string) (*expr.TableRef, bool) {
	ref, ok := ctx.Table(name)
	if !ok || ref.Kind != expr.CTE {
		return nil, false
	}
	return ref, true
}

func (b *builder) buildFromSubquery(sub *tree.Subquery, t *tree.AliasedTableExpr, ctx *expr.BindContext) (*plan.Node, error) {
	inner, err := b.buildSubqueryPlan(sub, ctx)
	if err != nil {
		return nil, err
	}
	alias := string(t.As.Alias)
	if alias == "" {
		alias = "subquery"
	}
	ref := expr.NewFromQueryRef(alias, inner, columnInfosOf(inner.Output))
	if err := ctx.RegisterTable(ref); err != nil {
		return nil, err
	}
	return plan.NewFromQuery(ref, inner), nil
}

func tableExprName(t tree.TableExpr) string {
	s := t.String()
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		s = s[i+1:]
	}
	return s
}

// buildJoin dispatches a JoinTableExpr's condition form into the equivalent
// predicate, following the teacher's buildNaturalJoin/buildUsingJoin pattern.
func (b *builder) buildJoin(j *tree.JoinTableExpr, ctx *expr.BindContext) (*plan.Node, error) {
	left, err := b.buildTableExpr(j.Left, ctx)
	if err != nil {
		return nil, err
	}
	right, err := b.buildTableExpr(j.Right, ctx)
	if err != nil {
		return nil, err
	}
	jt := joinTypeOf(j.JoinType)
	switch cond := j.Cond.(type) {
	case nil:
		return plan.NewJoin(jt, nil, left, right), nil
	case *tree.OnJoinCond:
		pred, err := b.buildScalar(cond.Expr, ctx)
		if err != nil {
			return nil, err
		}
		if err := pred.Bind(ctx); err != nil {
			return nil, err
		}
		return plan.NewJoin(jt, pred, left, right), nil
	case *tree.UsingJoinCond:
		names := make([]string, len(cond.Cols))
		for i, c := range cond.Cols {
			names[i] = string(c)
		}
		pred, err := b.equalityPredicate(names, ctx)
		if err != nil {
			return nil, err
		}
		return plan.NewJoin(jt, pred, left, right), nil
	case *tree.NaturalJoinCond:
		names := commonColumnNames(left, right, ctx)
		pred, err := b.equalityPredicate(names, ctx)
		if err != nil {
			return nil, err
		}
		return plan.NewJoin(jt, pred, left, right), nil
	default:
		return nil, errors.Newf("unsupported join condition %T", cond)
	}
}

func joinTypeOf(jt string) plan.JoinType {
	u := strings.ToUpper(jt)
	switch {
	case strings.Contains(u, "LEFT"):
		return plan.Left
	case strings.Contains(u, "RIGHT"):
		return plan.Right
	case strings.Contains(u, "FULL"):
		return plan.Full
	case strings.Contains(u, "CROSS"):
		return plan.Cross
	default:
		return plan.Inner
	}
}

// equalityPredicate builds name0=name0 AND name1=name1 AND ... against ctx,
// the shared shape of USING and NATURAL joins once the column list is known.
func (b *builder) equalityPredicate(names []string, ctx *expr.BindContext) (*expr.Expr, error) {
	var pred *expr.Expr
	for _, n := range names {
		eq := expr.NewBin("=", expr.NewUnboundCol("", n), expr.NewUnboundCol("", n))
		if err := eq.Bind(ctx); err != nil {
			return nil, err
		}
		if pred == nil {
			pred = eq
		} else {
			pred = expr.NewLogicAnd(pred, eq)
		}
	}
	return pred, nil
}

// commonColumnNames finds the column names left and right both expose,
// matching tree.NaturalJoinCond's "join on every identically named column"
// semantics. It inspects the TableRefs ctx just registered for left/right
// rather than walking the plan tree, since the builder registered exactly
// one TableRef per FROM item already.
func commonColumnNames(left, right *plan.Node, ctx *expr.BindContext) []string {
	leftCols := planColumnNames(left)
	rightCols := make(map[string]bool, len(planColumnNames(right)))
	for _, c := range planColumnNames(right) {
		rightCols[c] = true
	}
	var out []string
	for _, c := range leftCols {
		if rightCols[c] {
			out = append(out, c)
		}
	}
	return out
}

func planColumnNames(n *plan.Node) []string {
	switch n.Kind {
	case plan.KGetBaseTable, plan.KGetExternalTable:
		out := make([]string, len(n.TableRef.Columns))
		for i, c := range n.TableRef.Columns {
			out[i] = c.Name
		}
		return out
	case plan.KFromQuery:
		out := make([]string, len(n.QueryRef.Columns))
		for i, c := range n.QueryRef.Columns {
			out[i] = c.Name
		}
		return out
	case plan.KJoin, plan.KSemi, plan.KAntiSemi:
		return append(planColumnNames(n.Children[0]), planColumnNames(n.Children[1])...)
	default:
		return nil
	}
}

// buildProjectionList constructs the unbound/unexpanded SELECT-list
// expressions: a SelStar stays a SelStar (expandProjections resolves it
// afterward), column aliases go on every other item.
func (b *builder) buildProjectionList(exprs tree.SelectExprs, ctx *expr.BindContext) ([]*expr.Expr, error) {
	out := make([]*expr.Expr, 0, len(exprs))
	for i, se := range exprs {
		if star, ok := starTable(se.Expr); ok {
			out = append(out, expr.NewSelStar(star))
			continue
		}
		e, err := b.buildScalar(se.Expr, ctx)
		if err != nil {
			return nil, err
		}
		if as := string(se.As); as != "" {
			e.Alias = as
		} else if e.Alias == "" {
			if name, ok := plainColumnName(se.Expr); ok {
				e.Alias = name
			} else {
				e.Alias = "column" + strconv.Itoa(i+1)
			}
		}
		out = append(out, e)
	}
	return out, nil
}

func starTable(e tree.Expr) (string, bool) {
	switch t := e.(type) {
	case tree.UnqualifiedStar:
		return "", true
	case *tree.AllColumnsSelector:
		return t.TableName.String(), true
	default:
		return "", false
	}
}

func plainColumnName(e tree.Expr) (string, bool) {
	switch t := e.(type) {
	case *tree.ColumnItem:
		return string(t.ColumnName), true
	case *tree.UnresolvedName:
		s := t.String()
		if i := strings.LastIndexByte(s, '.'); i >= 0 {
			s = s[i+1:]
		}
		return s, true
	default:
		return "", false
	}
}

// expandProjections turns each SelStar in raw into the ColExpr list it
// denotes (spec.md §4.C: "SelStar must never survive into a bound plan").
func (b *builder) expandProjections(raw []*expr.Expr, ctx *expr.BindContext) ([]*expr.Expr, error) {
	out := make([]*expr.Expr, 0, len(raw))
	for _, e := range raw {
		if e.Kind == expr.KSelStar {
			cols, err := expr.ExpandSelStar(e, ctx)
			if err != nil {
				return nil, err
			}
			out = append(out, cols...)
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// buildOrderBy binds each ORDER BY item, substituting a bare name that
// matches a SELECT-list alias for the aliased expression itself — spec.md
// §9's "ReplaceByAlias ... substitute an outer projection's aliased
// expression back into a HAVING or ORDER BY clause that referenced it by
// name" design note.
func (b *builder) buildOrderBy(ob tree.OrderBy, ctx *expr.BindContext, proj []*expr.Expr) ([]*expr.Expr, error) {
	out := make([]*expr.Expr, 0, len(ob))
	for _, o := range ob {
		e, err := b.buildScalar(o.Expr, ctx)
		if err != nil {
			return nil, err
		}
		for _, pe := range proj {
			if pe.Alias == "" {
				continue
			}
			e = tagAliasLeaf(e, pe.Alias)
			e = e.ReplaceByAlias(pe.Alias, pe)
		}
		if err := e.Bind(ctx); err != nil {
			return nil, err
		}
		out = append(out, expr.NewOrder(e, strings.EqualFold(o.Direction.String(), "DESC")))
	}
	return out, nil
}

// tagAliasLeaf marks every unqualified column leaf in e named alias with
// that Alias, so a following ReplaceByAlias call can find and swap it.
func tagAliasLeaf(e *expr.Expr, alias string) *expr.Expr {
	if e == nil {
		return nil
	}
	if e.Kind == expr.KCol {
		if p, ok := e.Private.(*expr.ColPrivate); ok && p.Table == "" && p.Name == alias {
			tagged := *e
			tagged.Alias = alias
			return &tagged
		}
		return e
	}
	if len(e.Children) == 0 {
		return e
	}
	out := *e
	out.Children = make([]*expr.Expr, len(e.Children))
	for i, c := range e.Children {
		out.Children[i] = tagAliasLeaf(c, alias)
	}
	return &out
}

func (b *builder) evalConstInt(e tree.Expr) (int64, error) {
	v, err := b.buildScalar(e, nil)
	if err != nil {
		return 0, err
	}
	lit, ok := v.Private.(sqltypes.Value)
	if !ok {
		return 0, errors.Newf("LIMIT/OFFSET must be a constant")
	}
	return lit.Int(), nil
}

// buildScalar recursively translates a tree.Expr into expr.Expr, following
// the teacher's buildScalar switch (ParenExpr/AndExpr/OrExpr/NotExpr/
// ComparisonExpr/ColumnItem/NumVal/ExistsExpr/Subquery, here extended with
// BinaryExpr/CaseExpr/FuncExpr/Tuple). The result is unbound; callers Bind it
// once fully constructed.
func (b *builder) buildScalar(e tree.Expr, ctx *expr.BindContext) (*expr.Expr, error) {
	switch t := e.(type) {
	case *tree.ParenExpr:
		return b.buildScalar(t.Expr, ctx)
	case *tree.AndExpr:
		l, err := b.buildScalar(t.Left, ctx)
		if err != nil {
			return nil, err
		}
		r, err := b.buildScalar(t.Right, ctx)
		if err != nil {
			return nil, err
		}
		return expr.NewLogicAnd(l, r), nil
	case *tree.OrExpr:
		l, err := b.buildScalar(t.Left, ctx)
		if err != nil {
			return nil, err
		}
		r, err := b.buildScalar(t.Right, ctx)
		if err != nil {
			return nil, err
		}
		return expr.NewLogicOr(l, r), nil
	case *tree.NotExpr:
		inner, err := b.buildScalar(t.Expr, ctx)
		if err != nil {
			return nil, err
		}
		return expr.NewNot(inner), nil
	case *tree.ComparisonExpr:
		return b.buildComparison(t, ctx)
	case *tree.BinaryExpr:
		l, err := b.buildScalar(t.Left, ctx)
		if err != nil {
			return nil, err
		}
		r, err := b.buildScalar(t.Right, ctx)
		if err != nil {
			return nil, err
		}
		return expr.NewBin(t.Operator.String(), l, r), nil
	case *tree.ColumnItem:
		return expr.NewUnboundCol(colItemTable(t), string(t.ColumnName)), nil
	case *tree.UnresolvedName:
		table, col := splitUnresolvedName(t.String())
		return expr.NewUnboundCol(table, col), nil
	case *tree.NumVal:
		return numLiteral(t.String())
	case *tree.StrVal:
		return expr.NewLiteral(sqltypes.CharValue(strings.Trim(t.String(), "'"))), nil
	case *tree.DBool:
		return expr.NewLiteral(sqltypes.BoolValue(bool(*t))), nil
	case *tree.CaseExpr:
		return b.buildCase(t, ctx)
	case *tree.FuncExpr:
		return b.buildFunc(t, ctx)
	case *tree.ExistsExpr:
		sub, ok := t.Subquery.(*tree.Subquery)
		if !ok {
			return nil, errors.Newf("EXISTS requires a subquery")
		}
		inner, err := b.buildSubqueryPlan(sub, ctx)
		if err != nil {
			return nil, err
		}
		se := expr.NewSubqueryExists(false)
		p := se.SubqueryPrivate()
		p.Plan = inner
		p.Cacheable = !hasOuterRef(inner)
		return se, nil
	case *tree.Subquery:
		inner, err := b.buildSubqueryPlan(t, ctx)
		if err != nil {
			return nil, err
		}
		if err := expr.ValidateScalarShape(len(inner.Output)); err != nil {
			return nil, err
		}
		se := expr.NewSubqueryScalar()
		p := se.SubqueryPrivate()
		p.Plan = inner
		p.Cacheable = !hasOuterRef(inner)
		se.Type = inner.Output[0].Type
		return se, nil
	default:
		return nil, errors.Newf("unsupported scalar expression %T", e)
	}
}

func colItemTable(t *tree.ColumnItem) string {
	if t.TableName == nil {
		return ""
	}
	return t.TableName.String()
}

func splitUnresolvedName(s string) (table, col string) {
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		return s[:i], s[i+1:]
	}
	return "", s
}

func numLiteral(s string) (*expr.Expr, error) {
	if strings.ContainsAny(s, ".eE") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "numeric literal %q", s)
		}
		return expr.NewLiteral(sqltypes.DoubleValue(f)), nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, errors.Wrapf(err, "numeric literal %q", s)
	}
	return expr.NewLiteral(sqltypes.IntValue(n)), nil
}

func (b *builder) buildComparison(t *tree.ComparisonExpr, ctx *expr.BindContext) (*expr.Expr, error) {
	sym := strings.ToUpper(t.Operator.String())
	switch sym {
	case "IN", "NOT IN":
		probe, err := b.buildScalar(t.Left, ctx)
		if err != nil {
			return nil, err
		}
		if sub, ok := t.Right.(*tree.Subquery); ok {
			inner, err := b.buildSubqueryPlan(sub, ctx)
			if err != nil {
				return nil, err
			}
			if err := expr.ValidateScalarShape(len(inner.Output)); err != nil {
				return nil, err
			}
			se := expr.NewSubqueryIn(probe)
			p := se.SubqueryPrivate()
			p.Plan = inner
			p.Cacheable = !hasOuterRef(inner)
			if sym == "NOT IN" {
				return expr.NewNot(se), nil
			}
			return se, nil
		}
		tup, ok := t.Right.(*tree.Tuple)
		if !ok {
			return nil, errors.Newf("IN requires a subquery or a literal list")
		}
		list := make([]*expr.Expr, len(tup.Exprs))
		for i, le := range tup.Exprs {
			le2, err := b.buildScalar(le, ctx)
			if err != nil {
				return nil, err
			}
			list[i] = le2
		}
		in := expr.NewIn(probe, list)
		if sym == "NOT IN" {
			return expr.NewNot(in), nil
		}
		return in, nil
	default:
		l, err := b.buildScalar(t.Left, ctx)
		if err != nil {
			return nil, err
		}
		r, err := b.buildScalar(t.Right, ctx)
		if err != nil {
			return nil, err
		}
		return expr.NewBin(normalizeCompareOp(sym), l, r), nil
	}
}

func normalizeCompareOp(sym string) string {
	switch sym {
	case "NOT LIKE":
		return "NOT LIKE"
	case "LIKE":
		return "LIKE"
	case "!=", "<>":
		return "!="
	default:
		return sym
	}
}

func (b *builder) buildCase(t *tree.CaseExpr, ctx *expr.BindContext) (*expr.Expr, error) {
	var eval *expr.Expr
	var err error
	if t.Expr != nil {
		eval, err = b.buildScalar(t.Expr, ctx)
		if err != nil {
			return nil, err
		}
	}
	whens := make([]*expr.Expr, len(t.Whens))
	thens := make([]*expr.Expr, len(t.Whens))
	for i, w := range t.Whens {
		whens[i], err = b.buildScalar(w.Cond, ctx)
		if err != nil {
			return nil, err
		}
		thens[i], err = b.buildScalar(w.Val, ctx)
		if err != nil {
			return nil, err
		}
	}
	var els *expr.Expr
	if t.Else != nil {
		els, err = b.buildScalar(t.Else, ctx)
		if err != nil {
			return nil, err
		}
	}
	return expr.NewCase(eval, whens, thens, els), nil
}

// aggregateFuncs is the builtin set spec.md §4.A recognizes (see
// expr/bind.go's bindAggFunc); anything else dispatches as a scalar
// function, matching only upper/lower at eval time (expr/eval.go).
var aggregateFuncs = map[string]bool{
	"count": true, "count_rows": true, "sum": true, "avg": true, "min": true, "max": true,
}

func (b *builder) buildFunc(t *tree.FuncExpr, ctx *expr.BindContext) (*expr.Expr, error) {
	name := strings.ToLower(funcName(t))
	if name == "count" && len(t.Exprs) == 1 {
		if _, ok := t.Exprs[0].(tree.UnqualifiedStar); ok {
			name = "count_rows"
		}
	}
	if aggregateFuncs[name] {
		var arg *expr.Expr
		if len(t.Exprs) > 0 {
			var err error
			arg, err = b.buildScalar(t.Exprs[0], ctx)
			if err != nil {
				return nil, err
			}
		}
		return expr.NewAggFunc(name, t.Type == tree.DistinctFuncType, arg), nil
	}
	args := make([]*expr.Expr, len(t.Exprs))
	for i, a := range t.Exprs {
		ae, err := b.buildScalar(a, ctx)
		if err != nil {
			return nil, err
		}
		args[i] = ae
	}
	return expr.NewFunc(name, args...), nil
}

func funcName(t *tree.FuncExpr) string {
	s := t.Func.String()
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		s = s[i+1:]
	}
	return s
}

// buildSubqueryPlan builds and fully ordinal-resolves a nested SELECT's
// plan, the shape every subquery form (scalar/EXISTS/IN) shares before
// being wrapped in its own Subquery expression kind (spec.md §4.C).
func (b *builder) buildSubqueryPlan(sub *tree.Subquery, ctx *expr.BindContext) (*plan.Node, error) {
	s := asSelect(sub.Select)
	inner, _, err := b.buildSelect(s, ctx)
	if err != nil {
		return nil, err
	}
	if err := inner.ResolveColumnOrdinal(inner.Output, false); err != nil {
		return nil, err
	}
	return inner, nil
}

func asSelect(s tree.SelectStatement) *tree.Select {
	if sel, ok := s.(*tree.Select); ok {
		return sel
	}
	return &tree.Select{Select: s}
}

// hasOuterRef reports whether any scalar slot under n carries a ColExpr
// resolved as an outer reference (expr.ColPrivate.IsOuterRef), i.e. whether
// n is correlated to an enclosing scope, or contains a nested subquery that
// is. spec.md §4.C ties a subquery's cacheability to the absence of such a
// reference anywhere in it, transitively: a subquery is only cacheable if
// neither it nor any subquery nested inside it correlates outward. A nested
// subquery's bound inner plan lives opaquely in SubqueryPrivate.Plan off a
// KSubqueryScalar/Exists/In leaf (construct.go), which VisitEach never
// descends into on its own, so that case is handled explicitly below.
func hasOuterRef(n *plan.Node) bool {
	found := false
	check := func(e *expr.Expr) {
		if found || e == nil {
			return
		}
		e.VisitEach(nil, func(x *expr.Expr) bool {
			if x.Kind == expr.KCol {
				if p, ok := x.Private.(*expr.ColPrivate); ok && p.IsOuterRef {
					found = true
					return false
				}
			}
			switch x.Kind {
			case expr.KSubqueryScalar, expr.KSubqueryExists, expr.KSubqueryIn:
				if inner, ok := x.SubqueryPrivate().Plan.(*plan.Node); ok && inner != nil && hasOuterRef(inner) {
					found = true
					return false
				}
			}
			return true
		})
	}
	check(n.Filter)
	check(n.JoinFilter)
	check(n.Having)
	for _, e := range n.Output {
		check(e)
	}
	for _, e := range n.Keys {
		check(e)
	}
	for _, e := range n.Aggs {
		check(e)
	}
	for _, e := range n.OrderBy {
		check(e)
	}
	for _, row := range n.InsertRows {
		for _, e := range row {
			check(e)
		}
	}
	for _, c := range n.Children {
		if found {
			break
		}
		if hasOuterRef(c) {
			found = true
		}
	}
	return found
}

func columnInfosOf(output []*expr.Expr) []expr.ColumnInfo {
	out := make([]expr.ColumnInfo, len(output))
	for i, e := range output {
		name := e.Alias
		if name == "" {
			name = "column" + strconv.Itoa(i+1)
		}
		out[i] = expr.ColumnInfo{Name: name, Type: e.Type, Ordinal: i}
	}
	return out
}

func (b *builder) buildInsert(s *tree.Insert) (*plan.Node, error) {
	tn := s.Table.String()
	if i := strings.LastIndexByte(tn, '.'); i >= 0 {
		tn = tn[i+1:]
	}
	table, err := b.cat.Table(tn)
	if err != nil {
		return nil, err
	}
	ref := expr.NewBaseTableRef(tn, table)
	vc, ok := s.Rows.Select.(*tree.ValuesClause)
	if !ok {
		return nil, errors.Newf("only INSERT ... VALUES is supported")
	}
	insert := plan.NewInsert(ref, nil)
	insert.Children = nil
	for _, row := range vc.Rows {
		exprs := make([]*expr.Expr, len(row))
		for i, re := range row {
			e, err := b.buildScalar(re, nil)
			if err != nil {
				return nil, err
			}
			if err := e.Bind(expr.NewBindContext(nil)); err != nil {
				return nil, err
			}
			exprs[i] = e
		}
		insert.InsertRows = append(insert.InsertRows, exprs)
	}
	return insert, nil
}
