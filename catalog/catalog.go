// Package catalog implements the external collaborator contract spec.md §6
// describes: table/column lookup and row heap iteration. qpmodel treats
// persistence, DDL concurrency and indexing as out of scope (spec.md §1); this
// package holds only the in-memory shape the compiler core binds against, in
// the manner of the teacher's table.go (petermattis/opttoy v3) and
// v4/cat/table.go.
package catalog

import (
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/bigwa/qpmodel/sqltypes"
)

// ColumnDef describes one column of a TableDef. Ordinal is the column's
// position within TableDef.Columns; TableDef's invariant is that ordinals
// form a 0..N-1 permutation.
type ColumnDef struct {
	Name    string
	Type    sqltypes.ColumnType
	Ordinal int
	NotNull bool
	Hist    *Histogram
}

// Histogram is a column statistics shape, attached to a ColumnDef by
// Catalog.Analyze — see SPEC_FULL.md "Supplemented features". No cost
// function reads it: operator costs do not depend on histograms.
type Histogram struct {
	RowCount      int64
	DistinctCount int64
	NullCount     int64
	Buckets       []HistogramBucket
}

type HistogramBucket struct {
	UpperBound sqltypes.Value
	NumRange   int64
}

// TableKey models a primary/unique/foreign key constraint, supplementing
// spec.md's catalog section (which only names {name, columns, indexes,
// heap}) with the key shape the teacher's relational_props.go/table.go
// already assume. Keys are added with AddKey; no plan or memo rule reads them.
type TableKey struct {
	Primary bool
	Unique  bool
	NotNull bool
	Columns []int
	ForeignKey *ForeignKey
}

type ForeignKey struct {
	Referenced *TableDef
	Columns    []int // column ordinals in the referenced table
}

// TableDef is a catalog entity: {name, columns: name->ColumnDef, indexes,
// heap: Row*} per spec.md §3.
type TableDef struct {
	Name    string
	colMap  map[string]int
	Columns []ColumnDef
	Keys    []TableKey

	mu   sync.RWMutex
	heap []sqltypes.Row
}

// NewTableDef builds a TableDef from an ordered column list, assigning
// ordinals 0..N-1 in list order.
func NewTableDef(name string, cols []ColumnDef) *TableDef {
	t := &TableDef{
		Name:   name,
		colMap: make(map[string]int, len(cols)),
	}
	for i, c := range cols {
		c.Ordinal = i
		t.colMap[c.Name] = i
		t.Columns = append(t.Columns, c)
	}
	return t
}

// Column looks up a column by name, returning its ColumnDef and ordinal.
func (t *TableDef) Column(name string) (ColumnDef, bool) {
	i, ok := t.colMap[name]
	if !ok {
		return ColumnDef{}, false
	}
	return t.Columns[i], true
}

func (t *TableDef) AddKey(k TableKey) {
	t.Keys = append(t.Keys, k)
}

// Heap returns a snapshot of the table's row heap. qpmodel's concurrency
// model (spec.md §5) assumes readers and writers don't overlap, so no lock
// is held across iteration — only the append/read of the slice header itself
// is guarded.
func (t *TableDef) Heap() []sqltypes.Row {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]sqltypes.Row, len(t.heap))
	copy(out, t.heap)
	return out
}

func (t *TableDef) Insert(rows ...sqltypes.Row) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.heap = append(t.heap, rows...)
}

func (t *TableDef) RowCount() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return int64(len(t.heap))
}

// Catalog is the process-wide table dictionary (spec.md §5: "mutated only by
// DDL/INSERT statements; readers and writers are not expected to overlap").
type Catalog struct {
	mu     sync.RWMutex
	tables map[string]*TableDef
}

func NewCatalog() *Catalog {
	return &Catalog{tables: make(map[string]*TableDef)}
}

// TryTable returns the table and true if it exists, or false otherwise —
// spec.md §6 "try_table(name) -> TableDef?".
func (c *Catalog) TryTable(name string) (*TableDef, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tables[name]
	return t, ok
}

// Table returns the table or an UnknownTable error — spec.md §6
// "table(name) -> TableDef".
func (c *Catalog) Table(name string) (*TableDef, error) {
	t, ok := c.TryTable(name)
	if !ok {
		return nil, errors.Wrapf(sqltypes.ErrUnknownTable, "%s", name)
	}
	return t, nil
}

// ColumnOf returns the ColumnDef for table.col — spec.md §6
// "column(table, col) -> ColumnDef".
func (c *Catalog) ColumnOf(table, col string) (ColumnDef, error) {
	t, err := c.Table(table)
	if err != nil {
		return ColumnDef{}, err
	}
	cd, ok := t.Column(col)
	if !ok {
		return ColumnDef{}, errors.Wrapf(sqltypes.ErrUnknownColumn, "%s.%s", table, col)
	}
	return cd, nil
}

func (c *Catalog) Create(t *TableDef) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.tables[t.Name]; ok {
		return errors.Newf("table %s already exists", t.Name)
	}
	c.tables[t.Name] = t
	return nil
}

func (c *Catalog) Drop(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.tables[name]; !ok {
		return errors.Wrapf(sqltypes.ErrUnknownTable, "%s", name)
	}
	delete(c.tables, name)
	return nil
}

func (c *Catalog) Analyze(tableName, colName string, h *Histogram) error {
	t, err := c.Table(tableName)
	if err != nil {
		return err
	}
	i, ok := t.colMap[colName]
	if !ok {
		return errors.Wrapf(sqltypes.ErrUnknownColumn, "%s.%s", tableName, colName)
	}
	t.Columns[i].Hist = h
	return nil
}
