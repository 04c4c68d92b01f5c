package exec

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bigwa/qpmodel/catalog"
	"github.com/bigwa/qpmodel/expr"
	"github.com/bigwa/qpmodel/sqltypes"
)

func collectRows(t *testing.T, op Op) []sqltypes.Row {
	t.Helper()
	ctx := expr.NewExecContext()
	var rows []sqltypes.Row
	require.NoError(t, op.Exec(ctx, func(r sqltypes.Row) error {
		rows = append(rows, r)
		return nil
	}))
	return rows
}

func twoColTable(t *testing.T, name string, rows ...sqltypes.Row) (*catalog.TableDef, *expr.TableRef) {
	t.Helper()
	tab := catalog.NewTableDef(name, []catalog.ColumnDef{
		{Name: "x", Type: sqltypes.MakeInt()},
		{Name: "y", Type: sqltypes.MakeInt()},
	})
	for _, r := range rows {
		tab.Insert(r)
	}
	ref := expr.NewBaseTableRef(name, tab)
	return tab, ref
}

func boundCol(t *testing.T, ctx *expr.BindContext, table, name string) *expr.Expr {
	t.Helper()
	e := expr.NewUnboundCol(table, name)
	require.NoError(t, e.Bind(ctx))
	return e
}

func TestScanTableFilterAndProject(t *testing.T) {
	_, ref := twoColTable(t, "a",
		sqltypes.Row{sqltypes.IntValue(1), sqltypes.IntValue(10)},
		sqltypes.Row{sqltypes.IntValue(2), sqltypes.IntValue(20)},
		sqltypes.Row{sqltypes.IntValue(3), sqltypes.IntValue(30)},
	)
	ctx := expr.NewBindContext(nil)
	require.NoError(t, ctx.RegisterTable(ref))

	x := boundCol(t, ctx, "a", "x")
	y := boundCol(t, ctx, "a", "y")
	pred := expr.NewBin(">", boundCol(t, ctx, "a", "x"), expr.NewLiteral(sqltypes.IntValue(1)))
	require.NoError(t, pred.Bind(ctx))

	scan := &ScanTable{Table: ref.Table, Ref: ref, Filter: pred, Output: []*expr.Expr{y, x}}
	rows := collectRows(t, scan)

	require.Len(t, rows, 2)
	require.Equal(t, int64(20), rows[0][0].Int())
	require.Equal(t, int64(30), rows[1][0].Int())
}

func TestScanAndLimit(t *testing.T) {
	_, ref := twoColTable(t, "a",
		sqltypes.Row{sqltypes.IntValue(1), sqltypes.IntValue(10)},
		sqltypes.Row{sqltypes.IntValue(2), sqltypes.IntValue(20)},
		sqltypes.Row{sqltypes.IntValue(3), sqltypes.IntValue(30)},
	)
	ctx := expr.NewBindContext(nil)
	require.NoError(t, ctx.RegisterTable(ref))
	x := boundCol(t, ctx, "a", "x")

	scan := &ScanTable{Table: ref.Table, Ref: ref, Output: []*expr.Expr{x}}
	limit := &Limit{Child: scan, Count: 2}
	rows := collectRows(t, limit)
	require.Len(t, rows, 2)
	require.Equal(t, int64(1), rows[0][0].Int())
	require.Equal(t, int64(2), rows[1][0].Int())
}

func TestHashJoinEquiMatch(t *testing.T) {
	_, refA := twoColTable(t, "a",
		sqltypes.Row{sqltypes.IntValue(1), sqltypes.IntValue(100)},
		sqltypes.Row{sqltypes.IntValue(2), sqltypes.IntValue(200)},
	)
	_, refB := twoColTable(t, "b",
		sqltypes.Row{sqltypes.IntValue(1), sqltypes.IntValue(9)},
		sqltypes.Row{sqltypes.IntValue(3), sqltypes.IntValue(9)},
	)
	ctx := expr.NewBindContext(nil)
	require.NoError(t, ctx.RegisterTable(refA))
	require.NoError(t, ctx.RegisterTable(refB))

	ax := boundCol(t, ctx, "a", "x")
	ay := boundCol(t, ctx, "a", "y")
	bx := boundCol(t, ctx, "b", "x")

	scanA := &ScanTable{Table: refA.Table, Ref: refA, Output: []*expr.Expr{ax, ay}}
	scanB := &ScanTable{Table: refB.Table, Ref: refB, Output: []*expr.Expr{bx}}

	// Left row is (x,y) from scanA's output, right row is (x) from scanB's;
	// the combined probe row is (x,y,x_right).
	leftKeyCol := &expr.Expr{Kind: expr.KCol, Private: &expr.ColPrivate{Ordinal: 0}, Bounded: true, Type: sqltypes.MakeInt()}
	rightKeyCol := &expr.Expr{Kind: expr.KCol, Private: &expr.ColPrivate{Ordinal: 0}, Bounded: true, Type: sqltypes.MakeInt()}
	outLeftX := &expr.Expr{Kind: expr.KCol, Private: &expr.ColPrivate{Ordinal: 0}, Bounded: true, Type: sqltypes.MakeInt()}
	outLeftY := &expr.Expr{Kind: expr.KCol, Private: &expr.ColPrivate{Ordinal: 1}, Bounded: true, Type: sqltypes.MakeInt()}
	join := &HashJoin{
		Left: scanA, Right: scanB,
		LeftKeys:  []*expr.Expr{leftKeyCol},
		RightKeys: []*expr.Expr{rightKeyCol},
		Output:    []*expr.Expr{outLeftX, outLeftY},
	}

	rows := collectRows(t, join)
	require.Len(t, rows, 1)
	require.Equal(t, int64(1), rows[0][0].Int())
	require.Equal(t, int64(100), rows[0][1].Int())
}

func TestHashAggSumByKey(t *testing.T) {
	_, ref := twoColTable(t, "a",
		sqltypes.Row{sqltypes.IntValue(1), sqltypes.IntValue(10)},
		sqltypes.Row{sqltypes.IntValue(1), sqltypes.IntValue(20)},
		sqltypes.Row{sqltypes.IntValue(2), sqltypes.IntValue(5)},
	)
	ctx := expr.NewBindContext(nil)
	require.NoError(t, ctx.RegisterTable(ref))
	x := boundCol(t, ctx, "a", "x")
	y := boundCol(t, ctx, "a", "y")

	scan := &ScanTable{Table: ref.Table, Ref: ref, Output: []*expr.Expr{x, y}}

	groupKey := &expr.Expr{Kind: expr.KCol, Private: &expr.ColPrivate{Ordinal: 0}, Bounded: true, Type: sqltypes.MakeInt()}
	sumArg := &expr.Expr{Kind: expr.KCol, Private: &expr.ColPrivate{Ordinal: 1}, Bounded: true, Type: sqltypes.MakeInt()}
	sumAgg := expr.NewAggFunc("sum", false, sumArg)
	sumAgg.Type = sqltypes.MakeInt()

	outKey := &expr.Expr{Kind: expr.KCol, Private: &expr.ColPrivate{Ordinal: 0}, Bounded: true, Type: sqltypes.MakeInt()}
	outSum := &expr.Expr{Kind: expr.KCol, Private: &expr.ColPrivate{Ordinal: 1}, Bounded: true, Type: sqltypes.MakeInt()}

	agg := &HashAgg{
		Child:  scan,
		Keys:   []*expr.Expr{groupKey},
		Aggs:   []*expr.Expr{sumAgg},
		Output: []*expr.Expr{outKey, outSum},
	}
	rows := collectRows(t, agg)
	require.Len(t, rows, 2)

	byKey := map[int64]int64{}
	for _, r := range rows {
		byKey[r[0].Int()] = r[1].Int()
	}
	require.Equal(t, int64(30), byKey[1])
	require.Equal(t, int64(5), byKey[2])
}

func TestOrderByDescending(t *testing.T) {
	_, ref := twoColTable(t, "a",
		sqltypes.Row{sqltypes.IntValue(3), sqltypes.IntValue(0)},
		sqltypes.Row{sqltypes.IntValue(1), sqltypes.IntValue(0)},
		sqltypes.Row{sqltypes.IntValue(2), sqltypes.IntValue(0)},
	)
	ctx := expr.NewBindContext(nil)
	require.NoError(t, ctx.RegisterTable(ref))
	x := boundCol(t, ctx, "a", "x")

	scan := &ScanTable{Table: ref.Table, Ref: ref, Output: []*expr.Expr{x}}
	sortKey := &expr.Expr{Kind: expr.KCol, Private: &expr.ColPrivate{Ordinal: 0}, Bounded: true, Type: sqltypes.MakeInt()}
	order := &Order{Child: scan, Exprs: []*expr.Expr{sortKey}, Descend: []bool{true}, Output: []*expr.Expr{sortKey}}

	rows := collectRows(t, order)
	require.Len(t, rows, 3)
	require.Equal(t, int64(3), rows[0][0].Int())
	require.Equal(t, int64(2), rows[1][0].Int())
	require.Equal(t, int64(1), rows[2][0].Int())
}

func TestCollectTrimsInvisibleColumns(t *testing.T) {
	_, ref := twoColTable(t, "a", sqltypes.Row{sqltypes.IntValue(1), sqltypes.IntValue(2)})
	ctx := expr.NewBindContext(nil)
	require.NoError(t, ctx.RegisterTable(ref))
	x := boundCol(t, ctx, "a", "x")
	y := boundCol(t, ctx, "a", "y")

	scan := &ScanTable{Table: ref.Table, Ref: ref, Output: []*expr.Expr{x, y}}
	collect := &Collect{Child: scan, Output: []*expr.Expr{x, y}, Visible: []bool{true, false}}

	ctx2 := expr.NewExecContext()
	require.NoError(t, collect.Exec(ctx2, nil))
	require.Len(t, collect.Rows, 1)
	require.Len(t, collect.Rows[0], 1)
	require.Equal(t, int64(1), collect.Rows[0][0].Int())
}
