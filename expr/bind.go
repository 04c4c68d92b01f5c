package expr

import (
	"github.com/cockroachdb/errors"

	"github.com/bigwa/qpmodel/sqltypes"
)

// Bind resolves e against ctx, assigning types and TableRefs bottom-up.
// Bind is idempotent (spec.md §8 "bind idempotence"): calling it twice on an
// already-bound expression is a no-op, checked via the Bounded flag.
func (e *Expr) Bind(ctx *BindContext) error {
	if e == nil {
		return nil
	}
	if e.Bounded {
		return nil
	}
	for _, c := range e.Children {
		if err := c.Bind(ctx); err != nil {
			return err
		}
	}
	switch e.Kind {
	case KLiteral:
		// Type already set at construction.
	case KCol:
		if err := e.bindCol(ctx); err != nil {
			return err
		}
	case KBin:
		if err := e.bindBin(ctx); err != nil {
			return err
		}
	case KLogicAnd, KLogicOr, KNot:
		e.Type = sqltypes.ColumnType{Kind: sqltypes.Bool}
		e.gatherTableRefs()
	case KIn:
		e.Type = sqltypes.ColumnType{Kind: sqltypes.Bool}
		e.gatherTableRefs()
	case KCase:
		if err := e.bindCase(); err != nil {
			return err
		}
	case KSubqueryScalar, KSubqueryExists, KSubqueryIn:
		if err := e.bindSubquery(ctx); err != nil {
			return err
		}
	case KFunc:
		e.Type = sqltypes.ColumnType{Kind: sqltypes.Char}
		e.gatherTableRefs()
	case KAggFunc:
		if err := e.bindAggFunc(); err != nil {
			return err
		}
	case KExprRef:
		wrapped := e.Children[0]
		e.Type = wrapped.Type
		e.TableRefs = wrapped.TableRefs
	case KSelStar:
		return errors.AssertionFailedf("SelStar must be expanded before bind, not bound directly")
	case KOrder:
		e.Type = e.Children[0].Type
		e.TableRefs = e.Children[0].TableRefs
	}
	e.Bounded = true
	return nil
}

func (e *Expr) gatherTableRefs() {
	var refs TableRefSet
	for _, c := range e.Children {
		refs = refs.Union(c.TableRefs)
	}
	e.TableRefs = refs
}

// bindCol resolves an unbound ColExpr by walking ctx, then its ancestors.
// A match in ctx itself that is ambiguous (>=2 owning tables in the same
// scope) fails with AmbiguousColumn. A match found only in an ancestor scope
// is an outer reference (spec.md §4.D "outer reference"): it is registered
// into the owning TableRef's OuterRefs and its own TableRefs stays empty,
// since it does not participate in the local scope's table set.
func (e *Expr) bindCol(ctx *BindContext) error {
	p := e.Private.(*ColPrivate)
	if p.Table != "" {
		ref, ok := ctx.Table(p.Table)
		if ok {
			return e.resolveColAgainst(ref, p, false)
		}
	} else {
		owner, err := ctx.LocateByColumn(p.Name)
		if err != nil {
			return err
		}
		if owner != nil {
			return e.resolveColAgainst(owner, p, false)
		}
	}
	// Not found locally: walk ancestor scopes looking for an outer reference.
	for anc := ctx.Parent(); anc != nil; anc = anc.Parent() {
		if p.Table != "" {
			if ref, ok := anc.Table(p.Table); ok {
				return e.resolveColAgainst(ref, p, true)
			}
			continue
		}
		owner, err := anc.LocateByColumn(p.Name)
		if err != nil {
			return err
		}
		if owner != nil {
			return e.resolveColAgainst(owner, p, true)
		}
	}
	if p.Table != "" {
		return errors.Wrapf(sqltypes.ErrUnknownTable, "%s", p.Table)
	}
	return errors.Wrapf(sqltypes.ErrUnknownColumn, "%s", p.Name)
}

func (e *Expr) resolveColAgainst(ref *TableRef, p *ColPrivate, outer bool) error {
	col, ok := ref.LocateColumn(p.Name)
	if !ok {
		return errors.Wrapf(sqltypes.ErrUnknownColumn, "%s.%s", ref.Alias, p.Name)
	}
	colPriv := col.Private.(*ColPrivate)
	p.Ordinal = colPriv.Ordinal
	p.Ref = ref
	p.IsOuterRef = outer
	e.Type = col.Type
	if outer {
		e.TableRefs = nil
		ref.OuterRefs = append(ref.OuterRefs, e)
	} else {
		e.TableRefs = NewTableRefSet(ref)
	}
	return nil
}

// bindBin implements spec.md §4.A's type rules: arithmetic operators promote
// per ArithResult, comparison and LIKE operators always yield Bool, and any
// operand-type mismatch outside those rules is TypeMismatch.
func (e *Expr) bindBin(ctx *BindContext) error {
	p := e.Private.(*BinPrivate)
	l, r := e.Children[0], e.Children[1]
	e.gatherTableRefs()
	switch p.Op {
	case "+", "-", "*", "/", "%":
		rt, ok := sqltypes.ArithResult(l.Type, r.Type)
		if !ok {
			return errors.Wrapf(sqltypes.ErrTypeMismatch, "%s %s %s", l.Type.Kind, p.Op, r.Type.Kind)
		}
		e.Type = rt
	case "=", "<>", "!=", "<", ">", "<=", ">=":
		if !l.Type.CompatibleWith(r.Type) {
			return errors.Wrapf(sqltypes.ErrTypeMismatch, "%s %s %s", l.Type.Kind, p.Op, r.Type.Kind)
		}
		e.Type = sqltypes.ColumnType{Kind: sqltypes.Bool}
	case "LIKE", "NOT LIKE":
		if l.Type.Kind != sqltypes.Char || r.Type.Kind != sqltypes.Char {
			return errors.Wrapf(sqltypes.ErrTypeMismatch, "LIKE requires char operands, got %s/%s", l.Type.Kind, r.Type.Kind)
		}
		e.Type = sqltypes.ColumnType{Kind: sqltypes.Bool}
	default:
		return errors.Newf("unknown binary operator %q", p.Op)
	}
	_ = ctx
	return nil
}

func (e *Expr) bindCase() error {
	_, thens := e.CaseWhensThens()
	e.Type = thens[0].Type
	if els := e.CaseElse(); els != nil {
		e.Type = els.Type
	}
	e.gatherTableRefs()
	return nil
}

func (e *Expr) bindAggFunc() error {
	p := e.Private.(*AggPrivate)
	if p.Name == "count" || p.Name == "count_rows" {
		e.Type = sqltypes.ColumnType{Kind: sqltypes.Int}
	} else if len(e.Children) > 0 {
		e.Type = e.Children[0].Type
	}
	// Aggregate results have no table membership of their own.
	e.TableRefs = nil
	return nil
}

// bindSubquery assumes the subquery's inner statement is already bound by
// the caller (plan construction binds it before wrapping it in a
// SubqueryExpr). Here it only assigns the subquery ID, sets the result type
// for EXISTS and IN, and takes an IN probe's TableRefs; it does not check
// the inner plan's shape or decide cacheability.
func (e *Expr) bindSubquery(ctx *BindContext) error {
	p := e.SubqueryPrivate()
	p.ID = ctx.NextSubqueryID()
	switch p.Kind {
	case SubExists:
		e.Type = sqltypes.ColumnType{Kind: sqltypes.Bool}
	case SubIn:
		e.Type = sqltypes.ColumnType{Kind: sqltypes.Bool}
		e.TableRefs = e.Children[0].TableRefs
		return nil
	case SubScalar:
		// Type assigned by the caller once the inner plan's single output
		// column type is known (plan package fills this after binding the
		// inner statement, since expr cannot see plan.Node).
	}
	e.TableRefs = nil
	return nil
}

// ValidateScalarShape enforces spec.md §4.C's single-column projection
// requirement for scalar/IN subquery forms. Called by the plan package once
// the inner plan's column count is known (expr has no visibility into plan
// nodes).
func ValidateScalarShape(outputColumns int) error {
	if outputColumns != 1 {
		return errors.Wrapf(sqltypes.ErrSubqueryShape, "expected 1 column, got %d", outputColumns)
	}
	return nil
}

// DetermineCacheable reports whether a subquery is cacheable: it has no
// outer references at all, meaning its result is identical across every
// invocation for a given outer row and can be evaluated once (spec.md §4.C
// "cacheable — no correlation to anything outside its own scope").
func DetermineCacheable(outerRefsInInnerScope int) bool {
	return outerRefsInInnerScope == 0
}

// ExpandSelStar expands a SelStar into the ColExpr list it denotes: every
// column of the named table, or of every table in ctx if unqualified.
// SelStar must never survive into a bound plan (spec.md §4.C).
func ExpandSelStar(e *Expr, ctx *BindContext) ([]*Expr, error) {
	if e.Kind != KSelStar {
		return nil, errors.AssertionFailedf("ExpandSelStar called on non-SelStar %s", e.Kind)
	}
	p := e.Private.(*SelStarPrivate)
	if p.Table != "" {
		ref, ok := ctx.Table(p.Table)
		if !ok {
			return nil, errors.Wrapf(sqltypes.ErrUnknownTable, "%s", p.Table)
		}
		cols := ref.AllColumns()
		for _, c := range cols {
			c.Visible = true
			c.Bounded = true
		}
		return cols, nil
	}
	var out []*Expr
	for _, t := range ctx.Tables() {
		cols := t.AllColumns()
		for _, c := range cols {
			c.Visible = true
			c.Bounded = true
		}
		out = append(out, cols...)
	}
	return out, nil
}
