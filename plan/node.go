// Package plan implements the logical plan of spec.md §4.E: a tree of
// tagged operator nodes that resolves column ordinals top-down and lowers
// directly to a physical plan. Like expr.Expr, Node is a
// sum-type-with-explicit-children rather than one interface per operator,
// following the teacher's operator.go tagging convention.
package plan

import (
	"github.com/bigwa/qpmodel/expr"
)

// Kind tags the logical plan variants of spec.md §4.E.
type Kind int8

const (
	KGetBaseTable Kind = iota
	KGetExternalTable
	KFromQuery
	KJoin
	KFilter
	KAgg
	KOrder
	KLimit
	KResult
	KInsert
	KMemoRef
	KMark   // subquery-to-markjoin decorrelation specialisation
	KSemi
	KAntiSemi
	KSingleJoin
)

func (k Kind) String() string {
	switch k {
	case KGetBaseTable:
		return "get(base)"
	case KGetExternalTable:
		return "get(external)"
	case KFromQuery:
		return "fromquery"
	case KJoin:
		return "join"
	case KFilter:
		return "filter"
	case KAgg:
		return "agg"
	case KOrder:
		return "order"
	case KLimit:
		return "limit"
	case KResult:
		return "result"
	case KInsert:
		return "insert"
	case KMemoRef:
		return "memoref"
	case KMark:
		return "mark"
	case KSemi:
		return "semi"
	case KAntiSemi:
		return "antisemi"
	case KSingleJoin:
		return "single"
	default:
		return "unknown"
	}
}

// JoinType enumerates spec.md §4.E's join types.
type JoinType int8

const (
	Inner JoinType = iota
	Left
	Right
	Full
	Cross
	Semi
	AntiSemi
)

func (t JoinType) String() string {
	switch t {
	case Inner:
		return "inner"
	case Left:
		return "left"
	case Right:
		return "right"
	case Full:
		return "full"
	case Cross:
		return "cross"
	case Semi:
		return "semi"
	case AntiSemi:
		return "anti"
	default:
		return "?"
	}
}

// Node is the common envelope for every logical plan variant: a Filter
// expression (nil if none), an Output projection list, and operator-specific
// state hung off the Kind-specific fields below. Unlike expr.Expr, Node
// fields are not unioned behind a Private interface — plan nodes are fewer
// in number and the teacher's operatorInfo table shows field reuse only
// within closely related variants (Join/Semi/AntiSemi/SingleJoin, all of
// which share JoinType/JoinFilter), so explicit fields stay readable.
type Node struct {
	Kind     Kind
	Children []*Node
	Filter   *expr.Expr
	Output   []*expr.Expr

	// GetBaseTable / GetExternalTable
	TableRef *expr.TableRef

	// FromQuery
	QueryRef *expr.TableRef

	// Join / Semi / AntiSemi / SingleJoin / Mark
	JoinType   JoinType
	JoinFilter *expr.Expr

	// Agg
	Keys    []*expr.Expr
	Aggs    []*expr.Expr
	Having  *expr.Expr

	// Order
	OrderBy []*expr.Expr

	// Limit
	LimitCount int64

	// Insert: InsertRows holds one literal expression list per VALUES row
	// when the insert has no child query; Children[0] is set instead for
	// INSERT ... SELECT.
	InsertInto *expr.TableRef
	InsertRows [][]*expr.Expr

	// MemoRef: filled in by the memo package once a subtree has been
	// registered into a group; plan itself never constructs this, memo does
	// (avoids plan importing memo).
	MemoGroupID int

	// Mark: the alias under which the boolean markjoin result is exposed.
	MarkAlias string
}

func (n *Node) Child(i int) *Node {
	if i < 0 || i >= len(n.Children) {
		return nil
	}
	return n.Children[i]
}

func NewGetBaseTable(ref *expr.TableRef) *Node {
	return &Node{Kind: KGetBaseTable, TableRef: ref}
}

func NewGetExternalTable(ref *expr.TableRef) *Node {
	return &Node{Kind: KGetExternalTable, TableRef: ref}
}

func NewFromQuery(ref *expr.TableRef, inner *Node) *Node {
	return &Node{Kind: KFromQuery, QueryRef: ref, Children: []*Node{inner}}
}

func NewJoin(jt JoinType, filter *expr.Expr, left, right *Node) *Node {
	return &Node{Kind: KJoin, JoinType: jt, JoinFilter: filter, Children: []*Node{left, right}}
}

func NewFilter(pred *expr.Expr, child *Node) *Node {
	return &Node{Kind: KFilter, Filter: pred, Children: []*Node{child}}
}

func NewAgg(keys, aggs []*expr.Expr, having *expr.Expr, child *Node) *Node {
	return &Node{Kind: KAgg, Keys: keys, Aggs: aggs, Having: having, Children: []*Node{child}}
}

func NewOrder(orderBy []*expr.Expr, child *Node) *Node {
	return &Node{Kind: KOrder, OrderBy: orderBy, Children: []*Node{child}}
}

func NewLimit(n int64, child *Node) *Node {
	return &Node{Kind: KLimit, LimitCount: n, Children: []*Node{child}}
}

func NewResult(output []*expr.Expr, child *Node) *Node {
	return &Node{Kind: KResult, Output: output, Children: []*Node{child}}
}

func NewInsert(into *expr.TableRef, child *Node) *Node {
	return &Node{Kind: KInsert, InsertInto: into, Children: []*Node{child}}
}

func NewMark(alias string, filter *expr.Expr, left, right *Node) *Node {
	return &Node{Kind: KMark, MarkAlias: alias, JoinFilter: filter, Children: []*Node{left, right}}
}

func NewSemi(negate bool, filter *expr.Expr, left, right *Node) *Node {
	k := KSemi
	if negate {
		k = KAntiSemi
	}
	return &Node{Kind: k, JoinFilter: filter, Children: []*Node{left, right}}
}

func NewSingleJoin(filter *expr.Expr, left, right *Node) *Node {
	return &Node{Kind: KSingleJoin, JoinFilter: filter, Children: []*Node{left, right}}
}
