// Package engine implements the statement pipeline of spec.md §6: bind the
// incoming AST, build a logical plan.Node, resolve column ordinals, pick
// direct or memo-based optimization, lower to a physical exec.Op, and run
// it. Engine accepts an already-parsed tree.Statement rather than raw SQL
// text, in the manner of the teacher's v4/exec/engine.go's
// Execute(stmt tree.Statement) entry point — qpmodel treats parsing itself
// as out of scope (spec.md §1).
package engine

import (
	"time"

	"github.com/cockroachdb/cockroach/pkg/sql/sem/tree"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/bigwa/qpmodel/catalog"
	"github.com/bigwa/qpmodel/exec"
	"github.com/bigwa/qpmodel/expr"
	"github.com/bigwa/qpmodel/memo"
	"github.com/bigwa/qpmodel/plan"
	"github.com/bigwa/qpmodel/sqltypes"
)

// Options mirrors spec.md §6's optimize option set. CSVReader supplies the
// external collaborator spec.md §6 names for scanning ExternalTable FROM
// sources; statements with no such source leave it nil.
type Options struct {
	UseMemo                  bool
	EnableHashJoin           bool
	EnableNLJoin             bool
	EnableSubqueryToMarkJoin bool
	DisableCrossJoin         bool
	RemoveFromClause         bool
	Profile                  bool
	CSVReader                catalog.CSVReader
}

// DefaultOptions matches spec.md §6's stated defaults: both join strategies
// available, subquery-to-markjoin decorrelation on, memo search on.
func DefaultOptions() Options {
	return Options{
		UseMemo:                  true,
		EnableHashJoin:           true,
		EnableNLJoin:             true,
		EnableSubqueryToMarkJoin: true,
	}
}

func (o Options) planProfile() plan.Profile {
	return plan.Profile{
		EnableHashJoin:     o.EnableHashJoin,
		EnableNLJoin:       o.EnableNLJoin,
		EnableSubqueryMark: o.EnableSubqueryToMarkJoin,
		Profile:            o.Profile,
		CSVReader:          o.CSVReader,
	}
}

func (o Options) rules() []memo.Rule {
	if o.DisableCrossJoin {
		return []memo.Rule{memo.JoinAssociateRule{}}
	}
	return []memo.Rule{memo.JoinCommuteRule{}, memo.JoinAssociateRule{}}
}

// ExplainOptions controls EXPLAIN's rendering, the feature SPEC_FULL.md
// supplements onto spec.md's bare six-scenario surface.
type ExplainOptions struct {
	ShowTableName bool
	ShowCost      bool
	ShowOutput    bool
}

// Engine is the process-wide compiler+executor, wrapping a catalog.Catalog
// the way the teacher's exec.Engine wraps a cat.Catalog.
type Engine struct {
	catalog *catalog.Catalog
	log     *zap.Logger
}

func New(cat *catalog.Catalog, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{catalog: cat, log: log}
}

func (e *Engine) Catalog() *catalog.Catalog { return e.catalog }

// Prepared is the output of Prepare: a physical plan together with the
// logical Node it was lowered from, the latter kept around for Explain.
type Prepared struct {
	Logical  *plan.Node
	Physical exec.Op
}

// Prepare runs bind -> resolve_column_ordinal -> optimize -> lower without
// executing, per spec.md §6. An INSERT stops after bind: its Prepared has no
// Physical plan, and Run applies it to the catalog.
func (e *Engine) Prepare(stmt tree.Statement, opts Options) (*Prepared, error) {
	start := time.Now()
	b := newBuilder(e.catalog)
	root, err := b.buildStatement(stmt)
	if err != nil {
		return nil, errors.Wrapf(err, "bind")
	}
	e.log.Debug("bound statement", zap.Duration("elapsed", time.Since(start)))
	if root.Kind == plan.KInsert {
		return &Prepared{Logical: root}, nil
	}

	if root.Kind != plan.KInsert {
		if err := root.ResolveColumnOrdinal(root.Output, opts.RemoveFromClause); err != nil {
			return nil, errors.Wrapf(err, "resolve_column_ordinal")
		}
	}
	e.log.Debug("resolved column ordinals", zap.Duration("elapsed", time.Since(start)))

	prof := opts.planProfile()
	if root.Kind != plan.KInsert {
		if err := plan.WireSubqueries(root, prof); err != nil {
			return nil, errors.Wrapf(err, "wire_subqueries")
		}
	}
	if !opts.UseMemo {
		op, err := root.DirectToPhysical(prof)
		if err != nil {
			return nil, errors.Wrapf(err, "direct_to_physical")
		}
		e.log.Debug("lowered plan (direct)", zap.Duration("total", time.Since(start)))
		return &Prepared{Logical: root, Physical: op}, nil
	}

	m := memo.New(opts.rules(), prof)
	if _, err := m.Enqueue(root); err != nil {
		return nil, errors.Wrapf(err, "memo enqueue")
	}
	if err := m.Search(); err != nil {
		return nil, errors.Wrapf(err, "memo search")
	}
	if err := m.LowerPhysicalMembers(); err != nil {
		return nil, errors.Wrapf(err, "memo lower_physical_members")
	}
	op, err := m.MinToPhysicalPlan(m.RootGroup().ID)
	if err != nil {
		return nil, errors.Wrapf(err, "memo min_to_physical_plan")
	}
	e.log.Debug("lowered plan (memo)", zap.Duration("total", time.Since(start)))
	return &Prepared{Logical: root, Physical: op}, nil
}

// Run executes a prepared statement end to end and collects its rows. Insert
// statements are driven directly against the catalog rather than through a
// pull-model Op, per plan.DirectToPhysical's documented Insert exception.
func (e *Engine) Run(p *Prepared) ([]sqltypes.Row, error) {
	start := time.Now()
	if p.Logical.Kind == plan.KInsert {
		n, err := e.runInsert(p.Logical)
		e.log.Debug("executed insert", zap.Int("rows", n), zap.Duration("elapsed", time.Since(start)))
		return nil, err
	}
	var rows []sqltypes.Row
	ctx := expr.NewExecContext()
	err := p.Physical.Exec(ctx, func(r sqltypes.Row) error {
		rows = append(rows, append(sqltypes.Row{}, r...))
		return nil
	})
	e.log.Debug("executed query", zap.Int("rows", len(rows)), zap.Duration("elapsed", time.Since(start)))
	return rows, err
}

// runInsert evaluates every VALUES row's literal expression list against an
// empty driving row (INSERT carries no input relation to read outer
// references from) and appends the result straight into the target table's
// heap. INSERT ... SELECT is out of scope (spec.md §1 treats DML as a thin
// catalog-mutation surface, not a second pull-model consumer).
func (e *Engine) runInsert(n *plan.Node) (int, error) {
	if len(n.Children) > 0 {
		return 0, errors.AssertionFailedf("INSERT ... SELECT is not supported")
	}
	table := n.InsertInto.Table
	ctx := expr.NewExecContext()
	for _, rowExprs := range n.InsertRows {
		row := make(sqltypes.Row, len(rowExprs))
		for i, re := range rowExprs {
			v, err := re.Eval(ctx, nil)
			if err != nil {
				return 0, err
			}
			row[i] = v
		}
		table.Insert(row)
	}
	return len(n.InsertRows), nil
}
