package expr

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bigwa/qpmodel/sqltypes"
)

func TestCloneEquality(t *testing.T) {
	orig := NewBin("+", NewLiteral(sqltypes.IntValue(1)), NewUnboundCol("a", "x"))
	clone := orig.Clone()

	require.True(t, orig.Equals(clone))
	require.NotSame(t, orig, clone)
	require.NotSame(t, orig.Children[0], clone.Children[0])

	// Mutating the clone's private state must not perturb the original.
	clone.Private.(*BinPrivate).Op = "-"
	require.Equal(t, "+", orig.Private.(*BinPrivate).Op)
}

func TestExprRefWrapOnce(t *testing.T) {
	col := NewUnboundCol("a", "x")
	ref := NewExprRef(col, 3)
	require.Equal(t, 3, ref.ExprRefOrdinal())
	require.Same(t, col, ref.ExprRefWrapped())

	require.Panics(t, func() {
		NewExprRef(ref, 0)
	})
}

func TestEqualsUnwrapsExprRef(t *testing.T) {
	col := NewUnboundCol("a", "x")
	col.Bounded = true
	col.Type = sqltypes.MakeInt()
	ref := NewExprRef(col, 0)

	plain := NewUnboundCol("a", "x")
	require.True(t, ref.Equals(plain))
	require.True(t, plain.Equals(ref))
}

func TestSearchReplace(t *testing.T) {
	x := NewUnboundCol("a", "x")
	y := NewUnboundCol("a", "y")
	tree := NewBin("+", x, NewBin("*", x, y))

	replacement := NewLiteral(sqltypes.IntValue(7))
	out := tree.SearchReplace(x, replacement)

	require.Same(t, replacement, out.Children[0])
	require.Same(t, replacement, out.Children[1].Children[0])
	// Original tree is untouched.
	require.Same(t, x, tree.Children[0])
}

func TestReplaceByAlias(t *testing.T) {
	inner := NewUnboundCol("a", "x")
	inner.Alias = "total"
	wrapper := NewBin("+", inner, NewLiteral(sqltypes.IntValue(1)))

	replacement := NewLiteral(sqltypes.IntValue(42))
	out := wrapper.ReplaceByAlias("total", replacement)
	require.Same(t, replacement, out.Children[0])
}

func TestVisitEachExists(t *testing.T) {
	agg := NewAggFunc("count", false, nil)
	tree := NewLogicAnd(NewUnboundCol("a", "x"), agg)

	found := tree.VisitEachExists(func(e *Expr) bool { return e.Kind == KAggFunc })
	require.True(t, found)

	notFound := tree.VisitEachExists(func(e *Expr) bool { return e.Kind == KSubqueryExists })
	require.False(t, notFound)
}

func TestHashConsistentWithEquals(t *testing.T) {
	a := NewBin("=", NewUnboundCol("t", "x"), NewLiteral(sqltypes.IntValue(1)))
	b := NewBin("=", NewUnboundCol("t", "x"), NewLiteral(sqltypes.IntValue(1)))
	require.True(t, a.Equals(b))
	require.Equal(t, a.Hash(), b.Hash())
}
