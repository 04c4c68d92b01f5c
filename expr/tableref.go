package expr

import (
	"fmt"

	"github.com/cockroachdb/errors"

	"github.com/bigwa/qpmodel/catalog"
	"github.com/bigwa/qpmodel/sqltypes"
)

// TableRefKind tags the TableRef variants of spec.md §3.
type TableRefKind int8

const (
	BaseTable TableRefKind = iota
	ExternalTable
	FromQuery
	CTE
	JoinRef
)

// ColumnInfo describes one column exposed by a TableRef: its name, type and
// position within the TableRef's own output.
type ColumnInfo struct {
	Name    string
	Type    sqltypes.ColumnType
	Ordinal int
}

// TableRef is polymorphic over BaseTable, ExternalTable(file), FromQuery
// (subselect), CTE and Join(list, constraints) (spec.md §3). Like Expr, it
// is a sum-type-with-explicit-children: one struct, a Kind tag, and
// kind-specific fields rather than five separate interface implementations
// walked via reflection.
type TableRef struct {
	Kind  TableRefKind
	Alias string

	// BaseTable
	Table *catalog.TableDef

	// ExternalTable
	File string

	// FromQuery / CTE: the bound inner plan, stored opaquely (interface{})
	// to avoid an import cycle — it holds a *plan.Node, type asserted by the
	// engine's builder where it needs the inner plan. expr itself never
	// inspects this value.
	SubqueryPlan interface{}

	// JoinRef
	Inputs      []*TableRef
	Constraints []*Expr

	Columns []ColumnInfo

	// OuterRefs is a non-owning back-reference list of ColExpr that resolved
	// into this TableRef from a nested BindContext (spec.md §9: "Treat
	// outerrefs as a back-reference collection ... never as owning").
	OuterRefs []*Expr
}

func NewBaseTableRef(alias string, t *catalog.TableDef) *TableRef {
	r := &TableRef{Kind: BaseTable, Alias: alias, Table: t}
	for _, c := range t.Columns {
		r.Columns = append(r.Columns, ColumnInfo{Name: c.Name, Type: c.Type, Ordinal: c.Ordinal})
	}
	return r
}

func NewExternalTableRef(alias, file string, cols []ColumnInfo) *TableRef {
	return &TableRef{Kind: ExternalTable, Alias: alias, File: file, Columns: cols}
}

func NewFromQueryRef(alias string, plan interface{}, cols []ColumnInfo) *TableRef {
	return &TableRef{Kind: FromQuery, Alias: alias, SubqueryPlan: plan, Columns: cols}
}

func NewCTERef(alias string, plan interface{}, cols []ColumnInfo) *TableRef {
	return &TableRef{Kind: CTE, Alias: alias, SubqueryPlan: plan, Columns: cols}
}

func NewJoinRef(inputs []*TableRef, constraints []*Expr) *TableRef {
	r := &TableRef{Kind: JoinRef, Inputs: inputs, Constraints: constraints}
	offset := 0
	for _, in := range inputs {
		for _, c := range in.Columns {
			r.Columns = append(r.Columns, ColumnInfo{Name: c.Name, Type: c.Type, Ordinal: offset + c.Ordinal})
		}
		offset += len(in.Columns)
	}
	return r
}

// AllColumns returns every column of the TableRef as a bound ColExpr,
// per spec.md §3 "exposes all_columns() -> [ColExpr]".
func (r *TableRef) AllColumns() []*Expr {
	out := make([]*Expr, len(r.Columns))
	for i, c := range r.Columns {
		out[i] = r.newColExpr(c)
	}
	return out
}

// LocateColumn returns the ColExpr for name if r has such a column, per
// spec.md §3 "locate_column(name) -> ColExpr?".
func (r *TableRef) LocateColumn(name string) (*Expr, bool) {
	for _, c := range r.Columns {
		if c.Name == name {
			return r.newColExpr(c), true
		}
	}
	return nil, false
}

func (r *TableRef) newColExpr(c ColumnInfo) *Expr {
	e := &Expr{
		Kind:    KCol,
		Type:    c.Type,
		Bounded: true,
		Private: &ColPrivate{Table: r.Alias, Name: c.Name, Ordinal: c.Ordinal, Ref: r},
	}
	e.TableRefs = NewTableRefSet(r)
	return e
}

func (r *TableRef) String() string {
	if r.Alias != "" {
		return r.Alias
	}
	return fmt.Sprintf("tableref(%d)", r.Kind)
}

// TableRefSet is Expr.TableRefs: a set<TableRef> implemented over pointer
// identity, never owning (TableRef lifetime is governed by the BindContext
// that registered it).
type TableRefSet map[*TableRef]struct{}

func NewTableRefSet(refs ...*TableRef) TableRefSet {
	s := make(TableRefSet, len(refs))
	for _, r := range refs {
		s[r] = struct{}{}
	}
	return s
}

func (s TableRefSet) Add(r *TableRef) TableRefSet {
	if s == nil {
		s = make(TableRefSet, 1)
	}
	s[r] = struct{}{}
	return s
}

func (s TableRefSet) Contains(r *TableRef) bool {
	_, ok := s[r]
	return ok
}

func (s TableRefSet) Union(other TableRefSet) TableRefSet {
	out := make(TableRefSet, len(s)+len(other))
	for r := range s {
		out[r] = struct{}{}
	}
	for r := range other {
		out[r] = struct{}{}
	}
	return out
}

func (s TableRefSet) Minus(other TableRefSet) TableRefSet {
	out := make(TableRefSet, len(s))
	for r := range s {
		if !other.Contains(r) {
			out[r] = struct{}{}
		}
	}
	return out
}

func (s TableRefSet) Len() int { return len(s) }

var errTableAliasConflict = sqltypes.ErrTableAliasConflict

func newAliasConflictErr(alias string) error {
	return errors.Wrapf(errTableAliasConflict, "%s", alias)
}
