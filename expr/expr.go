// Package expr implements the expression algebra (spec.md §4.C) together
// with TableRef and BindContext (spec.md §4.D). The two are kept in one
// package deliberately: TableRef.OuterRefs is a back-reference collection
// into Expr, and Expr.TableRefs points back at TableRef, so splitting them
// into separate packages would require an import cycle (see spec.md §9,
// "Cycle risk"). Expr is a sum-type-with-explicit-children (spec.md §9,
// "Dynamic dispatch on expressions"): every variant is represented by the
// same struct tagged with a Kind, carrying its children in a plain slice and
// its variant-specific payload in Private. There is no reflection anywhere
// in this package.
package expr

import "github.com/bigwa/qpmodel/sqltypes"

// Kind tags the expression variants of spec.md §3.
type Kind int8

const (
	KLiteral Kind = iota
	KCol
	KBin
	KLogicAnd
	KLogicOr
	KNot
	KIn
	KCase
	KSubqueryScalar
	KSubqueryExists
	KSubqueryIn
	KFunc
	KAggFunc
	KExprRef
	KSelStar
	KOrder
)

func (k Kind) String() string {
	switch k {
	case KLiteral:
		return "literal"
	case KCol:
		return "col"
	case KBin:
		return "bin"
	case KLogicAnd:
		return "and"
	case KLogicOr:
		return "or"
	case KNot:
		return "not"
	case KIn:
		return "in"
	case KCase:
		return "case"
	case KSubqueryScalar:
		return "subquery(scalar)"
	case KSubqueryExists:
		return "subquery(exists)"
	case KSubqueryIn:
		return "subquery(in)"
	case KFunc:
		return "func"
	case KAggFunc:
		return "aggfunc"
	case KExprRef:
		return "exprref"
	case KSelStar:
		return "selstar"
	case KOrder:
		return "order"
	default:
		return "unknown"
	}
}

// Expr is the common envelope shared by every variant (spec.md §3): an
// optional alias, a visibility flag (used to hide outer-reference columns
// that were pulled into an output list purely for binding), the expression's
// type once bound, whether bind() has run, and the set of tables the
// expression's non-outer column references touch.
type Expr struct {
	Kind      Kind
	Alias     string
	Visible   bool
	Type      sqltypes.ColumnType
	Bounded   bool
	TableRefs TableRefSet
	Children  []*Expr
	Private   interface{}
}

func (e *Expr) Child(i int) *Expr {
	if i < 0 || i >= len(e.Children) {
		return nil
	}
	return e.Children[i]
}

// IsScalar reports whether this expression is part of the scalar algebra:
// false only for SelStar; an ExprRef counts as scalar.
func (e *Expr) IsScalar() bool {
	switch e.Kind {
	case KSelStar:
		return false
	default:
		return true
	}
}
