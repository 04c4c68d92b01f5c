package plan

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bigwa/qpmodel/exec"
	"github.com/bigwa/qpmodel/expr"
	"github.com/bigwa/qpmodel/sqltypes"
)

type fakeCSVReader struct {
	rows [][]string
}

func (f *fakeCSVReader) ReadCSV(path string, delim byte, eachLine func(fields []string) error) error {
	for _, r := range f.rows {
		if err := eachLine(r); err != nil {
			return err
		}
	}
	return nil
}

func TestDirectToPhysicalScanAndFilter(t *testing.T) {
	ctx := expr.NewBindContext(nil)
	refA := expr.NewBaseTableRef("a", fixtureTable("a", "x"))
	require.NoError(t, ctx.RegisterTable(refA))

	pred := expr.NewBin(">", expr.NewUnboundCol("a", "x"), expr.NewLiteral(sqltypes.IntValue(0)))
	require.NoError(t, pred.Bind(ctx))
	out := expr.NewUnboundCol("a", "x")
	require.NoError(t, out.Bind(ctx))

	filter := NewFilter(pred, NewGetBaseTable(refA))
	require.NoError(t, filter.ResolveColumnOrdinal([]*expr.Expr{out}, false))

	op, err := filter.DirectToPhysical(DefaultProfile())
	require.NoError(t, err)
	f, ok := op.(*exec.Filter)
	require.True(t, ok)
	_, ok = f.Child.(*exec.ScanTable)
	require.True(t, ok)
}

func TestDirectToPhysicalPicksHashJoinForEquiFilter(t *testing.T) {
	ctx := expr.NewBindContext(nil)
	refA := expr.NewBaseTableRef("a", fixtureTable("a", "x"))
	refB := expr.NewBaseTableRef("b", fixtureTable("b", "x"))
	require.NoError(t, ctx.RegisterTable(refA))
	require.NoError(t, ctx.RegisterTable(refB))

	filter := expr.NewBin("=", expr.NewUnboundCol("a", "x"), expr.NewUnboundCol("b", "x"))
	require.NoError(t, filter.Bind(ctx))
	outA := expr.NewUnboundCol("a", "x")
	require.NoError(t, outA.Bind(ctx))

	join := NewJoin(Inner, filter, NewGetBaseTable(refA), NewGetBaseTable(refB))
	require.NoError(t, join.ResolveColumnOrdinal([]*expr.Expr{outA}, false))

	op, err := join.DirectToPhysical(DefaultProfile())
	require.NoError(t, err)
	_, isHash := op.(*exec.HashJoin)
	require.True(t, isHash)
}

func TestDirectToPhysicalFallsBackToNLJoinWithoutEquiFilter(t *testing.T) {
	ctx := expr.NewBindContext(nil)
	refA := expr.NewBaseTableRef("a", fixtureTable("a", "x"))
	refB := expr.NewBaseTableRef("b", fixtureTable("b", "x"))
	require.NoError(t, ctx.RegisterTable(refA))
	require.NoError(t, ctx.RegisterTable(refB))

	filter := expr.NewBin("<", expr.NewUnboundCol("a", "x"), expr.NewUnboundCol("b", "x"))
	require.NoError(t, filter.Bind(ctx))
	outA := expr.NewUnboundCol("a", "x")
	require.NoError(t, outA.Bind(ctx))

	join := NewJoin(Inner, filter, NewGetBaseTable(refA), NewGetBaseTable(refB))
	require.NoError(t, join.ResolveColumnOrdinal([]*expr.Expr{outA}, false))

	op, err := join.DirectToPhysical(DefaultProfile())
	require.NoError(t, err)
	_, isNL := op.(*exec.NLJoin)
	require.True(t, isNL)
}

func TestDirectToPhysicalExternalTableRequiresCSVReader(t *testing.T) {
	ref := expr.NewExternalTableRef("f", "data.csv", []expr.ColumnInfo{
		{Name: "x", Type: sqltypes.MakeInt()},
	})
	get := NewGetExternalTable(ref)
	get.Output = []*expr.Expr{{Kind: expr.KCol, Private: &expr.ColPrivate{Ordinal: 0}, Bounded: true, Type: sqltypes.MakeInt()}}

	_, err := get.DirectToPhysical(DefaultProfile())
	require.Error(t, err)

	prof := DefaultProfile()
	prof.CSVReader = &fakeCSVReader{rows: [][]string{{"1"}, {"2"}}}
	op, err := get.DirectToPhysical(prof)
	require.NoError(t, err)
	sf, ok := op.(*exec.ScanFile)
	require.True(t, ok)
	require.Equal(t, "data.csv", sf.Path)
	require.Equal(t, []sqltypes.ColumnType{sqltypes.MakeInt()}, sf.ColType)
}

func TestDirectToPhysicalMemoRefOutsideMemoFails(t *testing.T) {
	n := &Node{Kind: KMemoRef, MemoGroupID: 3}
	_, err := n.DirectToPhysical(DefaultProfile())
	require.Error(t, err)
}
