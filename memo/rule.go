package memo

import (
	"github.com/bigwa/qpmodel/expr"
	"github.com/bigwa/qpmodel/plan"
)

// Rule declares a rewrite the search loop may try against a group member:
// Applicable gates the check cheaply, Apply returns the rewritten node (or
// nil if, on closer inspection, the rule does not fire). Both are handed the
// owning Memo because a member's non-leaf children are always MemoRef nodes
// by the time it sits in a group (Memo.enqueueNode replaces them before
// registering the member) — a rule that needs to look inside a child has no
// way to do that other than asking the Memo for the referenced group's
// members.
type Rule interface {
	Applicable(m *GroupMember, memo *Memo) bool
	Apply(m *GroupMember, memo *Memo) (*plan.Node, error)
}

// JoinCommuteRule rewrites an Inner/Cross join A⋈B into B⋈A. Per spec.md
// §8's "memo signature law", this must not change the member's signature —
// Signature already treats a commutative join's children as an unordered
// multiset, so the rewritten node lands back in the same group.
type JoinCommuteRule struct{}

func (JoinCommuteRule) Applicable(m *GroupMember, memo *Memo) bool {
	return m.Logical != nil && isCommutativeJoin(m.Logical)
}

func (JoinCommuteRule) Apply(m *GroupMember, memo *Memo) (*plan.Node, error) {
	n := m.Logical
	swapped := plan.NewJoin(n.JoinType, n.JoinFilter, n.Children[1], n.Children[0])
	swapped.Output = n.Output
	return swapped, nil
}

// JoinAssociateRule rewrites (A⋈B)⋈C into A⋈(B⋈C), per spec.md §4.F's
// associative AND-list normal form ("(A⋈B)⋈C on p1∧p3" / "A⋈(B⋈C) on
// p1∧p3"). The left child is almost always a MemoRef by the time this runs,
// so firing requires looking inside the referenced group for an Inner-join
// member rather than inspecting left.Kind directly.
type JoinAssociateRule struct{}

func (JoinAssociateRule) Applicable(m *GroupMember, memo *Memo) bool {
	n := m.Logical
	if n == nil || n.Kind != plan.KJoin || n.JoinType != plan.Inner {
		return false
	}
	return findInnerJoinMember(n.Children[0], memo) != nil
}

func (JoinAssociateRule) Apply(m *GroupMember, memo *Memo) (*plan.Node, error) {
	n := m.Logical
	left := findInnerJoinMember(n.Children[0], memo)
	if left == nil {
		return nil, nil
	}
	// (A⋈B)⋈C, filter p1 on the inner join and p_top on the outer — p1
	// relates A and B, which are no longer both reachable until the new
	// outer join brings A together with (B⋈C), so the whole original
	// conjunct set (p1 AND p_top) moves up to the new outer join. The new
	// inner join carries no filter of its own, leaving the exact per-level
	// split to a later predicate-pushdown pass, which is out of this rule's
	// scope.
	a, b, c := left.Children[0], left.Children[1], n.Children[1]
	inner := plan.NewJoin(plan.Inner, nil, b, c)
	inner.Output = append(append([]*expr.Expr{}, nodeOutput(b, memo)...), nodeOutput(c, memo)...)
	outer := plan.NewJoin(plan.Inner, andFilters(left.JoinFilter, n.JoinFilter), a, inner)
	outer.Output = n.Output
	return outer, nil
}

// nodeOutput returns child's projected output columns: its own Output field
// if child is a raw node, or the first logical member's Output of child's
// referenced group if child is a MemoRef — MemoRef stubs carry no field data
// of their own.
func nodeOutput(child *plan.Node, memo *Memo) []*expr.Expr {
	if child.Kind != plan.KMemoRef {
		return child.Output
	}
	return memo.Group(child.MemoGroupID).Members[0].Logical.Output
}

// andFilters conjoins a and b, tolerating either (or both) being nil.
func andFilters(a, b *expr.Expr) *expr.Expr {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	default:
		return expr.NewLogicAnd(a, b)
	}
}

// findInnerJoinMember resolves child to an Inner-join logical node: child
// itself if it already is one, or the first Inner-join logical member of
// child's referenced group if child is a MemoRef. Returns nil if neither
// holds.
func findInnerJoinMember(child *plan.Node, memo *Memo) *plan.Node {
	if child.Kind == plan.KJoin && child.JoinType == plan.Inner {
		return child
	}
	if child.Kind != plan.KMemoRef {
		return nil
	}
	g := memo.Group(child.MemoGroupID)
	for _, mem := range g.Members {
		if mem.Logical != nil && mem.Logical.Kind == plan.KJoin && mem.Logical.JoinType == plan.Inner {
			return mem.Logical
		}
	}
	return nil
}
