package expr

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bigwa/qpmodel/catalog"
	"github.com/bigwa/qpmodel/sqltypes"
)

func newRefTable(name string, cols ...catalog.ColumnDef) *catalog.TableDef {
	return catalog.NewTableDef(name, cols)
}

func TestBindIdempotent(t *testing.T) {
	tab := newRefTable("a", catalog.ColumnDef{Name: "x", Type: sqltypes.MakeInt()})
	ctx := NewBindContext(nil)
	ref := NewBaseTableRef("a", tab)
	require.NoError(t, ctx.RegisterTable(ref))

	e := NewUnboundCol("a", "x")
	require.NoError(t, e.Bind(ctx))
	require.Equal(t, sqltypes.Int, e.Type.Kind)

	// Second Bind is a no-op (Bounded guards re-resolution); mutate Private
	// to detect whether bindCol ran again.
	priv := e.Private.(*ColPrivate)
	priv.Ordinal = -1
	require.NoError(t, e.Bind(ctx))
	require.Equal(t, -1, priv.Ordinal)
}

func TestBindUnknownColumn(t *testing.T) {
	tab := newRefTable("a", catalog.ColumnDef{Name: "x", Type: sqltypes.MakeInt()})
	ctx := NewBindContext(nil)
	require.NoError(t, ctx.RegisterTable(NewBaseTableRef("a", tab)))

	e := NewUnboundCol("", "missing")
	err := e.Bind(ctx)
	require.ErrorIs(t, err, sqltypes.ErrUnknownColumn)
}

func TestBindAmbiguousColumn(t *testing.T) {
	a := newRefTable("a", catalog.ColumnDef{Name: "x", Type: sqltypes.MakeInt()})
	b := newRefTable("b", catalog.ColumnDef{Name: "x", Type: sqltypes.MakeInt()})
	ctx := NewBindContext(nil)
	require.NoError(t, ctx.RegisterTable(NewBaseTableRef("a", a)))
	require.NoError(t, ctx.RegisterTable(NewBaseTableRef("b", b)))

	e := NewUnboundCol("", "x")
	err := e.Bind(ctx)
	require.ErrorIs(t, err, sqltypes.ErrAmbiguousColumn)
}

func TestBindOuterReference(t *testing.T) {
	outer := newRefTable("a", catalog.ColumnDef{Name: "x", Type: sqltypes.MakeInt()})
	inner := newRefTable("b", catalog.ColumnDef{Name: "y", Type: sqltypes.MakeInt()})

	parentCtx := NewBindContext(nil)
	outerRef := NewBaseTableRef("a", outer)
	require.NoError(t, parentCtx.RegisterTable(outerRef))

	childCtx := NewBindContext(parentCtx)
	require.NoError(t, childCtx.RegisterTable(NewBaseTableRef("b", inner)))

	e := NewUnboundCol("a", "x")
	require.NoError(t, e.Bind(childCtx))
	require.True(t, e.Private.(*ColPrivate).IsOuterRef)
	require.Len(t, outerRef.OuterRefs, 1)
	require.Equal(t, 0, e.TableRefs.Len())
}

func TestBindBinArithAndComparison(t *testing.T) {
	ctx := NewBindContext(nil)
	lit1 := NewLiteral(sqltypes.IntValue(1))
	lit2 := NewLiteral(sqltypes.DoubleValue(2))

	sum := NewBin("+", lit1, lit2)
	require.NoError(t, sum.Bind(ctx))
	require.Equal(t, sqltypes.Double, sum.Type.Kind)

	cmp := NewBin("=", lit1, lit2)
	require.NoError(t, cmp.Bind(ctx))
	require.Equal(t, sqltypes.Bool, cmp.Type.Kind)

	mismatch := NewBin("LIKE", lit1, lit2)
	require.ErrorIs(t, mismatch.Bind(ctx), sqltypes.ErrTypeMismatch)
}

func TestValidateScalarShape(t *testing.T) {
	require.NoError(t, ValidateScalarShape(1))
	require.ErrorIs(t, ValidateScalarShape(2), sqltypes.ErrSubqueryShape)
}

func TestDetermineCacheable(t *testing.T) {
	require.True(t, DetermineCacheable(0))
	require.False(t, DetermineCacheable(1))
}

func TestExpandSelStar(t *testing.T) {
	tab := newRefTable("a",
		catalog.ColumnDef{Name: "x", Type: sqltypes.MakeInt()},
		catalog.ColumnDef{Name: "y", Type: sqltypes.MakeInt()},
	)
	ctx := NewBindContext(nil)
	require.NoError(t, ctx.RegisterTable(NewBaseTableRef("a", tab)))

	cols, err := ExpandSelStar(NewSelStar(""), ctx)
	require.NoError(t, err)
	require.Len(t, cols, 2)
	for _, c := range cols {
		require.True(t, c.Visible)
	}
}
