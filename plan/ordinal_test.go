package plan

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bigwa/qpmodel/catalog"
	"github.com/bigwa/qpmodel/expr"
	"github.com/bigwa/qpmodel/sqltypes"
)

func fixtureTable(name string, cols ...string) *catalog.TableDef {
	defs := make([]catalog.ColumnDef, len(cols))
	for i, c := range cols {
		defs[i] = catalog.ColumnDef{Name: c, Type: sqltypes.MakeInt()}
	}
	return catalog.NewTableDef(name, defs)
}

func TestResolveColumnOrdinalFilter(t *testing.T) {
	ctx := expr.NewBindContext(nil)
	refA := expr.NewBaseTableRef("a", fixtureTable("a", "x", "y"))
	require.NoError(t, ctx.RegisterTable(refA))

	pred := expr.NewBin(">", expr.NewUnboundCol("a", "x"), expr.NewLiteral(sqltypes.IntValue(0)))
	require.NoError(t, pred.Bind(ctx))

	wantOut := expr.NewUnboundCol("a", "y")
	require.NoError(t, wantOut.Bind(ctx))

	scan := NewGetBaseTable(refA)
	filter := NewFilter(pred, scan)

	require.NoError(t, filter.ResolveColumnOrdinal([]*expr.Expr{wantOut}, false))
	require.Len(t, filter.Output, 1)
	require.Equal(t, 0, filter.Output[0].ExprRefOrdinal())

	// The predicate was rewritten into an ExprRef into the scan's own output.
	require.Equal(t, expr.KExprRef, filter.Filter.Children[0].Kind)
}

func TestResolveColumnOrdinalJoinStraddlingPredicate(t *testing.T) {
	ctx := expr.NewBindContext(nil)
	refA := expr.NewBaseTableRef("a", fixtureTable("a", "x"))
	refB := expr.NewBaseTableRef("b", fixtureTable("b", "x"))
	require.NoError(t, ctx.RegisterTable(refA))
	require.NoError(t, ctx.RegisterTable(refB))

	joinFilter := expr.NewBin("=", expr.NewUnboundCol("a", "x"), expr.NewUnboundCol("b", "x"))
	require.NoError(t, joinFilter.Bind(ctx))

	outA := expr.NewUnboundCol("a", "x")
	require.NoError(t, outA.Bind(ctx))
	outB := expr.NewUnboundCol("b", "x")
	require.NoError(t, outB.Bind(ctx))

	join := NewJoin(Inner, joinFilter, NewGetBaseTable(refA), NewGetBaseTable(refB))
	require.NoError(t, join.ResolveColumnOrdinal([]*expr.Expr{outA, outB}, false))

	require.Len(t, join.Children[0].Output, 1)
	require.Len(t, join.Children[1].Output, 1)
	require.Len(t, join.Output, 2)
	require.Equal(t, expr.KExprRef, join.JoinFilter.Children[0].Kind)
	require.Equal(t, expr.KExprRef, join.JoinFilter.Children[1].Kind)
}

func TestResolveColumnOrdinalAggMissingGroupBy(t *testing.T) {
	ctx := expr.NewBindContext(nil)
	refA := expr.NewBaseTableRef("a", fixtureTable("a", "x", "y"))
	require.NoError(t, ctx.RegisterTable(refA))

	y := expr.NewUnboundCol("a", "y")
	require.NoError(t, y.Bind(ctx))
	x := expr.NewUnboundCol("a", "x")
	require.NoError(t, x.Bind(ctx))
	countAgg := expr.NewAggFunc("count_rows", false, nil)

	agg := NewAgg([]*expr.Expr{x}, []*expr.Expr{countAgg}, nil, NewGetBaseTable(refA))
	require.NoError(t, agg.ResolveColumnOrdinal([]*expr.Expr{x, countAgg}, false))
	require.Len(t, agg.Output, 2)

	// Requesting a raw column that is not a group key must fail.
	agg2 := NewAgg([]*expr.Expr{x}, []*expr.Expr{countAgg}, nil, NewGetBaseTable(refA))
	err := agg2.ResolveColumnOrdinal([]*expr.Expr{y}, false)
	require.ErrorIs(t, err, sqltypes.ErrMissingGroupBy)
}

func TestResolveColumnOrdinalResult(t *testing.T) {
	ctx := expr.NewBindContext(nil)
	refA := expr.NewBaseTableRef("a", fixtureTable("a", "x"))
	require.NoError(t, ctx.RegisterTable(refA))

	x := expr.NewUnboundCol("a", "x")
	require.NoError(t, x.Bind(ctx))

	result := NewResult([]*expr.Expr{x}, NewGetBaseTable(refA))
	require.NoError(t, result.ResolveColumnOrdinal(result.Output, false))
	require.Len(t, result.Output, 1)
	require.Equal(t, 0, result.Output[0].ExprRefOrdinal())
}
