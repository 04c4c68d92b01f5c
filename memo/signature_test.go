package memo

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bigwa/qpmodel/catalog"
	"github.com/bigwa/qpmodel/expr"
	"github.com/bigwa/qpmodel/plan"
	"github.com/bigwa/qpmodel/sqltypes"
)

func sigFixtureTable(name string, cols ...string) *catalog.TableDef {
	defs := make([]catalog.ColumnDef, len(cols))
	for i, c := range cols {
		defs[i] = catalog.ColumnDef{Name: c, Type: sqltypes.MakeInt()}
	}
	return catalog.NewTableDef(name, defs)
}

func equiFilter(t *testing.T, ctx *expr.BindContext, leftTable, rightTable string) *expr.Expr {
	t.Helper()
	f := expr.NewBin("=", expr.NewUnboundCol(leftTable, "x"), expr.NewUnboundCol(rightTable, "x"))
	require.NoError(t, f.Bind(ctx))
	return f
}

func TestSignatureCommutativeJoinInvariant(t *testing.T) {
	ctx := expr.NewBindContext(nil)
	refA := expr.NewBaseTableRef("a", sigFixtureTable("a", "x"))
	refB := expr.NewBaseTableRef("b", sigFixtureTable("b", "x"))
	require.NoError(t, ctx.RegisterTable(refA))
	require.NoError(t, ctx.RegisterTable(refB))

	filter := equiFilter(t, ctx, "a", "b")
	ab := plan.NewJoin(plan.Inner, filter, plan.NewGetBaseTable(refA), plan.NewGetBaseTable(refB))
	ba := plan.NewJoin(plan.Inner, filter, plan.NewGetBaseTable(refB), plan.NewGetBaseTable(refA))

	require.Equal(t, Signature(ab, nil), Signature(ba, nil))
}

func TestSignatureNonCommutativeJoinDiffers(t *testing.T) {
	ctx := expr.NewBindContext(nil)
	refA := expr.NewBaseTableRef("a", sigFixtureTable("a", "x"))
	refB := expr.NewBaseTableRef("b", sigFixtureTable("b", "x"))
	require.NoError(t, ctx.RegisterTable(refA))
	require.NoError(t, ctx.RegisterTable(refB))

	filter := equiFilter(t, ctx, "a", "b")
	left := plan.NewJoin(plan.Left, filter, plan.NewGetBaseTable(refA), plan.NewGetBaseTable(refB))
	swapped := plan.NewJoin(plan.Left, filter, plan.NewGetBaseTable(refB), plan.NewGetBaseTable(refA))

	require.NotEqual(t, Signature(left, nil), Signature(swapped, nil))
}

func TestSignatureAssociativeJoinInvariant(t *testing.T) {
	ctx := expr.NewBindContext(nil)
	refA := expr.NewBaseTableRef("a", sigFixtureTable("a", "x"))
	refB := expr.NewBaseTableRef("b", sigFixtureTable("b", "x"))
	refC := expr.NewBaseTableRef("c", sigFixtureTable("c", "x"))
	require.NoError(t, ctx.RegisterTable(refA))
	require.NoError(t, ctx.RegisterTable(refB))
	require.NoError(t, ctx.RegisterTable(refC))

	p1 := equiFilter(t, ctx, "a", "b")
	p3 := equiFilter(t, ctx, "a", "c")

	// (A⋈B)⋈C on p1∧p3
	ab := plan.NewJoin(plan.Inner, p1, plan.NewGetBaseTable(refA), plan.NewGetBaseTable(refB))
	left := plan.NewJoin(plan.Inner, p3, ab, plan.NewGetBaseTable(refC))

	// A⋈(B⋈C) on p1∧p3, same conjuncts re-bracketed
	bc := plan.NewJoin(plan.Inner, p1, plan.NewGetBaseTable(refB), plan.NewGetBaseTable(refC))
	right := plan.NewJoin(plan.Inner, p3, plan.NewGetBaseTable(refA), bc)

	require.Equal(t, Signature(left, nil), Signature(right, nil))
}

func TestPredicateSignatureReorderInvariant(t *testing.T) {
	ctx := expr.NewBindContext(nil)
	refA := expr.NewBaseTableRef("a", sigFixtureTable("a", "x", "y", "z"))
	require.NoError(t, ctx.RegisterTable(refA))

	p1 := expr.NewBin(">", expr.NewUnboundCol("a", "x"), expr.NewLiteral(sqltypes.IntValue(1)))
	p2 := expr.NewBin(">", expr.NewUnboundCol("a", "y"), expr.NewLiteral(sqltypes.IntValue(2)))
	p3 := expr.NewBin(">", expr.NewUnboundCol("a", "z"), expr.NewLiteral(sqltypes.IntValue(3)))
	require.NoError(t, p1.Bind(ctx))
	require.NoError(t, p2.Bind(ctx))
	require.NoError(t, p3.Bind(ctx))

	forward := expr.NewLogicAnd(expr.NewLogicAnd(p1, p2), p3)
	reordered := expr.NewLogicAnd(p1, expr.NewLogicAnd(p3, p2))

	require.Equal(t, predicateSignature(forward), predicateSignature(reordered))
}
