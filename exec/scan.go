package exec

import (
	"github.com/bigwa/qpmodel/catalog"
	"github.com/bigwa/qpmodel/expr"
	"github.com/bigwa/qpmodel/sqltypes"
)

// ScanTable iterates a base table's row heap (spec.md §4.G). If the owning
// TableRef has outer references, each row is published into ctx before
// filter/project so a correlated subquery's outer-ref ColExpr.eval can see
// it. Joins do not publish; FromQuery publishes the same way for derived
// tables.
type ScanTable struct {
	Table  *catalog.TableDef
	Ref    *expr.TableRef
	Filter *expr.Expr
	Output []*expr.Expr
}

func (s *ScanTable) Children() []Op { return nil }

func (s *ScanTable) Cost() float64 { return 1.0 }

func (s *ScanTable) Exec(ctx *expr.ExecContext, cb RowFunc) error {
	for _, row := range s.Table.Heap() {
		if len(s.Ref.OuterRefs) > 0 {
			ctx.Publish(s.Ref, row)
		}
		if s.Filter != nil {
			v, err := s.Filter.Eval(ctx, row)
			if err != nil {
				return err
			}
			if v.Null || !v.Bool() {
				continue
			}
		}
		out, err := projectRow(ctx, s.Output, row)
		if err != nil {
			return err
		}
		if err := cb(out); err != nil {
			return err
		}
	}
	return nil
}

// ScanFile reads rows from an external CSV source via the catalog.CSVReader
// contract (spec.md §4.G "ScanFile"), parsing each field by the type at the
// same position in ColType.
type ScanFile struct {
	Path    string
	Reader  catalog.CSVReader
	ColType []sqltypes.ColumnType
	Ref     *expr.TableRef
	Filter  *expr.Expr
	Output  []*expr.Expr
}

func (s *ScanFile) Children() []Op { return nil }

func (s *ScanFile) Cost() float64 { return 1.0 }

func (s *ScanFile) Exec(ctx *expr.ExecContext, cb RowFunc) error {
	return s.Reader.ReadCSV(s.Path, '|', func(fields []string) error {
		row, err := catalog.ParseFields(fields, s.ColType)
		if err != nil {
			return err
		}
		if len(s.Ref.OuterRefs) > 0 {
			ctx.Publish(s.Ref, row)
		}
		if s.Filter != nil {
			v, err := s.Filter.Eval(ctx, row)
			if err != nil {
				return err
			}
			if v.Null || !v.Bool() {
				return nil
			}
		}
		out, err := projectRow(ctx, s.Output, row)
		if err != nil {
			return err
		}
		return cb(out)
	})
}

func projectRow(ctx *expr.ExecContext, output []*expr.Expr, row sqltypes.Row) (sqltypes.Row, error) {
	out := make(sqltypes.Row, len(output))
	for i, e := range output {
		v, err := e.Eval(ctx, row)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
