package expr

import (
	"github.com/cockroachdb/errors"

	"github.com/bigwa/qpmodel/sqltypes"
)

// BindContext is the per-statement scope of spec.md §4.D: an ordered
// seq->TableRef mapping, a link to the enclosing context, and a
// statement-global subquery counter rooted at the parentless context.
type BindContext struct {
	parent      *BindContext
	tables      []*TableRef
	byAlias     map[string]int
	subqCounter *int
}

// NewBindContext creates a child scope, or a fresh root scope when parent is
// nil. A root context owns (and resets) the statement's subquery counter, per
// spec.md §4.D: "A global subquery counter is rooted at the parentless
// context ... reset when a root (parentless) context is created."
func NewBindContext(parent *BindContext) *BindContext {
	bc := &BindContext{parent: parent, byAlias: make(map[string]int)}
	if parent == nil {
		n := 0
		bc.subqCounter = &n
	} else {
		bc.subqCounter = parent.subqCounter
	}
	return bc
}

func (bc *BindContext) Parent() *BindContext { return bc.parent }

// RegisterTable adds ref to this scope under ref.Alias, failing with
// TableAliasConflict if the alias is already registered in this scope.
func (bc *BindContext) RegisterTable(ref *TableRef) error {
	if _, ok := bc.byAlias[ref.Alias]; ok {
		return newAliasConflictErr(ref.Alias)
	}
	bc.byAlias[ref.Alias] = len(bc.tables)
	bc.tables = append(bc.tables, ref)
	return nil
}

func (bc *BindContext) Table(alias string) (*TableRef, bool) {
	i, ok := bc.byAlias[alias]
	if !ok {
		return nil, false
	}
	return bc.tables[i], true
}

func (bc *BindContext) TableIndex(alias string) (int, bool) {
	i, ok := bc.byAlias[alias]
	return i, ok
}

func (bc *BindContext) Tables() []*TableRef {
	return bc.tables
}

// LocateByColumn finds the unique table in this scope (not walking parents)
// that owns column name, failing AmbiguousColumn if more than one does.
func (bc *BindContext) LocateByColumn(name string) (*TableRef, error) {
	var found *TableRef
	for _, t := range bc.tables {
		if _, ok := t.LocateColumn(name); ok {
			if found != nil {
				return nil, errors.Wrapf(sqltypes.ErrAmbiguousColumn, "%s", name)
			}
			found = t
		}
	}
	return found, nil
}

// ColumnOrdinal returns the ordinal and type of tab.col, per spec.md §4.D
// "column_ordinal(tab, col) -> (ordinal, type)".
func (bc *BindContext) ColumnOrdinal(tab, col string) (int, sqltypes.ColumnType, error) {
	t, ok := bc.Table(tab)
	if !ok {
		return 0, sqltypes.ColumnType{}, errors.Wrapf(sqltypes.ErrUnknownTable, "%s", tab)
	}
	for _, c := range t.Columns {
		if c.Name == col {
			return c.Ordinal, c.Type, nil
		}
	}
	return 0, sqltypes.ColumnType{}, errors.Wrapf(sqltypes.ErrUnknownColumn, "%s.%s", tab, col)
}

// NextSubqueryID increments and returns the statement-global subquery
// counter, numbering correlated subqueries per spec.md §4.D.
func (bc *BindContext) NextSubqueryID() int {
	*bc.subqCounter++
	return *bc.subqCounter
}
