package expr

import "github.com/bigwa/qpmodel/sqltypes"

// ColPrivate is Expr.Private for KCol.
type ColPrivate struct {
	Table      string
	Name       string
	Ordinal    int
	Ref        *TableRef
	IsOuterRef bool
}

// BinPrivate is Expr.Private for KBin. Op is the operator symbol: one of the
// arithmetic ("+","-","*","/","%"), comparison ("=","<",">","<=",">=","!="),
// or pattern-match ("LIKE","NOT LIKE") operators of spec.md §4.A.
type BinPrivate struct {
	Op string
}

// CasePrivate is Expr.Private for KCase. Children are laid out as
// [evalExpr?, when1, then1, ..., whenN, thenN, elseExpr?], matching the
// variant's own {eval?, whens, thens, else?} shape (spec.md §3) without a
// separate aux-bitmap indirection.
type CasePrivate struct {
	HasEval bool
	HasElse bool
	NWhen   int
}

func (p *CasePrivate) evalIdx() int {
	if !p.HasEval {
		return -1
	}
	return 0
}

func (p *CasePrivate) whenThenStart() int {
	if p.HasEval {
		return 1
	}
	return 0
}

func (p *CasePrivate) elseIdx(totalChildren int) int {
	if !p.HasElse {
		return -1
	}
	return totalChildren - 1
}

// SubqueryKind distinguishes the three subquery forms of spec.md §3.
type SubqueryKind int8

const (
	SubScalar SubqueryKind = iota
	SubExists
	SubIn
)

// SubPlanRunner is implemented (structurally, no import needed) by the
// physical plan node that executes a subquery's inner statement. Expr never
// imports the exec package; plan/memo/exec assign a SubPlanRunner into
// SubqueryPrivate.Runner once the inner plan has been built and lowered.
type SubPlanRunner interface {
	Run(ctx *ExecContext, emit func(sqltypes.Row) error) error
}

// SubqueryPrivate is Expr.Private for KSubqueryScalar/KSubqueryExists/KSubqueryIn.
type SubqueryPrivate struct {
	Kind      SubqueryKind
	ID        int
	Negate    bool // NOT EXISTS
	Cacheable bool
	Runner    SubPlanRunner

	// Plan holds the bound, ordinal-resolved inner plan.Node, stashed here by
	// the builder under an interface{} the same way TableRef.SubqueryPlan is,
	// so expr does not need to import plan. The plan package's subquery-wiring
	// pass reads it back, lowers it, and fills in Runner.
	Plan interface{}

	cachedScalar *sqltypes.Value
	cachedSet    map[string]bool
	cachedExists *bool
}

// FuncPrivate is Expr.Private for KFunc.
type FuncPrivate struct {
	Name string
}

// AggPrivate is Expr.Private for KAggFunc. Builtins: count, count_rows, sum,
// avg, min, max.
type AggPrivate struct {
	Name     string
	Distinct bool
}

// ExprRefPrivate is Expr.Private for KExprRef: a positional reference into a
// child's output list, spec.md §3's ExprRef(expr, ordinal). Invariant:
// ExprRef never wraps another ExprRef (spec.md §3, §8 "ExprRef wrap-once").
type ExprRefPrivate struct {
	Ordinal int
}

// SelStarPrivate is Expr.Private for KSelStar: an optional table
// qualification for "tab.*" vs bare "*".
type SelStarPrivate struct {
	Table string
}

// OrderPrivate is Expr.Private for KOrder.
type OrderPrivate struct {
	Desc bool
}
