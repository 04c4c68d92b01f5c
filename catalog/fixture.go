package catalog

import "github.com/bigwa/qpmodel/sqltypes"

// NewFixtureCatalog builds the tiny catalog spec.md §8's end-to-end scenarios
// run against: four tables a, b, c, d, each with integer columns x1..x4 and
// the same 3-row fixture {(0,1,2,3),(1,2,3,4),(2,3,4,5)}.
func NewFixtureCatalog() *Catalog {
	cat := NewCatalog()
	for _, name := range []string{"a", "b", "c", "d"} {
		cols := make([]ColumnDef, 4)
		for i := 0; i < 4; i++ {
			cols[i] = ColumnDef{Name: name + "." + columnSuffix(i), Type: sqltypes.MakeInt(), NotNull: true}
		}
		// Column names are just x1..x4; the table alias qualifies them at
		// bind time, not at storage time.
		for i := range cols {
			cols[i].Name = columnSuffix(i)
		}
		t := NewTableDef(name, cols)
		t.AddKey(TableKey{Primary: true, Unique: true, NotNull: true, Columns: []int{0}})
		t.Insert(
			sqltypes.Row{sqltypes.IntValue(0), sqltypes.IntValue(1), sqltypes.IntValue(2), sqltypes.IntValue(3)},
			sqltypes.Row{sqltypes.IntValue(1), sqltypes.IntValue(2), sqltypes.IntValue(3), sqltypes.IntValue(4)},
			sqltypes.Row{sqltypes.IntValue(2), sqltypes.IntValue(3), sqltypes.IntValue(4), sqltypes.IntValue(5)},
		)
		_ = cat.Create(t)
	}
	return cat
}

func columnSuffix(i int) string {
	return "x" + string(rune('1'+i))
}
