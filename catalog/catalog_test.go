package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bigwa/qpmodel/sqltypes"
)

func newTestTable() *TableDef {
	return NewTableDef("a", []ColumnDef{
		{Name: "x", Type: sqltypes.MakeInt()},
		{Name: "y", Type: sqltypes.MakeInt()},
	})
}

func TestTableDefColumn(t *testing.T) {
	tab := newTestTable()
	col, ok := tab.Column("y")
	require.True(t, ok)
	require.Equal(t, 1, col.Ordinal)

	_, ok = tab.Column("z")
	require.False(t, ok)
}

func TestCatalogCreateAndTable(t *testing.T) {
	cat := NewCatalog()
	tab := newTestTable()
	require.NoError(t, cat.Create(tab))

	got, err := cat.Table("a")
	require.NoError(t, err)
	require.Same(t, tab, got)

	require.Error(t, cat.Create(tab))

	_, err = cat.Table("nonexistent")
	require.ErrorIs(t, err, sqltypes.ErrUnknownTable)
}

func TestCatalogColumnOf(t *testing.T) {
	cat := NewCatalog()
	require.NoError(t, cat.Create(newTestTable()))

	col, err := cat.ColumnOf("a", "x")
	require.NoError(t, err)
	require.Equal(t, 0, col.Ordinal)

	_, err = cat.ColumnOf("a", "z")
	require.ErrorIs(t, err, sqltypes.ErrUnknownColumn)

	_, err = cat.ColumnOf("missing", "x")
	require.ErrorIs(t, err, sqltypes.ErrUnknownTable)
}

func TestTableDefHeapInsertAndRowCount(t *testing.T) {
	tab := newTestTable()
	tab.Insert(sqltypes.Row{sqltypes.IntValue(1), sqltypes.IntValue(2)})
	tab.Insert(sqltypes.Row{sqltypes.IntValue(3), sqltypes.IntValue(4)})

	require.EqualValues(t, 2, tab.RowCount())
	rows := tab.Heap()
	require.Len(t, rows, 2)

	// Heap returns a snapshot; mutating it must not affect the table.
	rows[0] = sqltypes.Row{sqltypes.IntValue(99)}
	require.EqualValues(t, 2, tab.RowCount())
	require.Equal(t, int64(1), tab.Heap()[0][0].Int())
}

func TestCatalogDrop(t *testing.T) {
	cat := NewCatalog()
	require.NoError(t, cat.Create(newTestTable()))
	require.NoError(t, cat.Drop("a"))

	_, ok := cat.TryTable("a")
	require.False(t, ok)

	require.ErrorIs(t, cat.Drop("a"), sqltypes.ErrUnknownTable)
}

func TestCatalogAnalyze(t *testing.T) {
	cat := NewCatalog()
	tab := newTestTable()
	require.NoError(t, cat.Create(tab))

	h := &Histogram{RowCount: 100, DistinctCount: 10}
	require.NoError(t, cat.Analyze("a", "x", h))

	col, _ := tab.Column("x")
	require.Same(t, h, col.Hist)

	require.Error(t, cat.Analyze("a", "nope", h))
}
