package plan

import (
	"github.com/cockroachdb/errors"

	"github.com/bigwa/qpmodel/catalog"
	"github.com/bigwa/qpmodel/exec"
	"github.com/bigwa/qpmodel/expr"
	"github.com/bigwa/qpmodel/sqltypes"
)

// Profile controls direct_to_physical's operator choices, mirroring
// spec.md §6's optimize option set. use_memo routes through the memo
// package instead of this direct lowering path. CSVReader is the external
// collaborator spec.md §6 names ("a CSV reader that yields string tuples")
// for lowering GetExternalTable — qpmodel never implements one itself
// (spec.md §1 puts "CSV bulk loading" out of scope), so it is supplied by
// the caller at lowering time rather than baked into the logical plan.
type Profile struct {
	EnableHashJoin     bool
	EnableNLJoin       bool
	EnableSubqueryMark bool
	Profile            bool
	CSVReader          catalog.CSVReader
}

func DefaultProfile() Profile {
	return Profile{EnableHashJoin: true, EnableNLJoin: true}
}

// ResolveMemoRef is called by DirectToPhysical whenever it encounters a
// MemoRef child. Direct (non-memo) lowering never produces a MemoRef, so
// callers outside the memo package pass nil.
type ResolveMemoRef func(groupID int) (exec.Op, error)

// DirectToPhysical is the honest one-to-one lowering of spec.md §4.E: scans,
// filter, project, from-query map directly; an Insert has no physical form
// and returns an error; for joins, HashJoin is
// picked iff the filter has an equi-join conjunct AND the left subtree has
// no outer references (outer refs require parameter-passing, which only NLJ
// supports).
func (n *Node) DirectToPhysical(prof Profile) (exec.Op, error) {
	return n.directToPhysical(prof, nil)
}

// DirectToPhysicalWithMemo is DirectToPhysical extended with a MemoRef
// resolver, used by the memo package to lower a rewritten member whose
// children have been replaced by MemoRef(group) nodes (spec.md §4.F).
func (n *Node) DirectToPhysicalWithMemo(prof Profile, resolve ResolveMemoRef) (exec.Op, error) {
	return n.directToPhysical(prof, resolve)
}

func (n *Node) directToPhysical(prof Profile, resolve ResolveMemoRef) (exec.Op, error) {
	if n.Kind == KMemoRef {
		if resolve == nil {
			return nil, errors.AssertionFailedf("MemoRef encountered outside memo extraction")
		}
		return resolve(n.MemoGroupID)
	}
	var op exec.Op
	var err error
	switch n.Kind {
	case KGetBaseTable:
		op = &exec.ScanTable{Table: n.TableRef.Table, Ref: n.TableRef, Filter: n.Filter, Output: n.Output}
	case KGetExternalTable:
		if prof.CSVReader == nil {
			return nil, errors.AssertionFailedf("external table %q requires a Profile.CSVReader", n.TableRef.File)
		}
		colTypes := make([]sqltypes.ColumnType, len(n.TableRef.Columns))
		for i, c := range n.TableRef.Columns {
			colTypes[i] = c.Type
		}
		op = &exec.ScanFile{
			Path:    n.TableRef.File,
			Reader:  prof.CSVReader,
			ColType: colTypes,
			Ref:     n.TableRef,
			Filter:  n.Filter,
			Output:  n.Output,
		}
	case KFromQuery:
		child, cerr := n.Children[0].directToPhysical(prof, resolve)
		if cerr != nil {
			return nil, cerr
		}
		op = &exec.FromQuery{Child: child, QueryRef: n.QueryRef, Output: n.Output}
	case KJoin:
		op, err = n.lowerJoin(prof, resolve)
	case KSemi, KAntiSemi:
		op, err = n.lowerSemi(prof, resolve)
	case KMark, KSingleJoin:
		// Mark and single joins lower exactly like an ordinary join. There is
		// no mark or single-row physical operator, and nothing here adds a
		// mark column or checks that the right side yields at most one row.
		op, err = n.lowerJoin(prof, resolve)
	case KFilter:
		child, cerr := n.Children[0].directToPhysical(prof, resolve)
		if cerr != nil {
			return nil, cerr
		}
		op = &exec.Filter{Child: child, Predicate: n.Filter, Output: n.Output}
	case KAgg:
		child, cerr := n.Children[0].directToPhysical(prof, resolve)
		if cerr != nil {
			return nil, cerr
		}
		op = &exec.HashAgg{Child: child, Keys: n.Keys, Aggs: n.Aggs, Having: n.Having, Output: n.Output}
	case KOrder:
		child, cerr := n.Children[0].directToPhysical(prof, resolve)
		if cerr != nil {
			return nil, cerr
		}
		descend := make([]bool, len(n.OrderBy))
		exprs := make([]*expr.Expr, len(n.OrderBy))
		for i, o := range n.OrderBy {
			exprs[i] = o
			descend[i] = o.OrderDesc()
		}
		op = &exec.Order{Child: child, Exprs: exprs, Descend: descend, Output: n.Output}
	case KLimit:
		child, cerr := n.Children[0].directToPhysical(prof, resolve)
		if cerr != nil {
			return nil, cerr
		}
		op = &exec.Limit{Child: child, Count: n.LimitCount}
	case KResult:
		child, cerr := n.Children[0].directToPhysical(prof, resolve)
		if cerr != nil {
			return nil, cerr
		}
		op = child
	case KInsert:
		return nil, errors.AssertionFailedf("Insert has no pull-model physical form; handled by engine directly")
	default:
		return nil, errors.AssertionFailedf("DirectToPhysical: unhandled kind %s", n.Kind)
	}
	if err != nil {
		return nil, err
	}
	if prof.Profile {
		op = &exec.Profiling{Child: op}
	}
	return op, nil
}

func (n *Node) lowerJoin(prof Profile, resolve ResolveMemoRef) (exec.Op, error) {
	left, err := n.Children[0].directToPhysical(prof, resolve)
	if err != nil {
		return nil, err
	}
	right, err := n.Children[1].directToPhysical(prof, resolve)
	if err != nil {
		return nil, err
	}
	if prof.EnableHashJoin && n.canHashJoin() {
		leftKeys, rightKeys, residual := equiJoinKeys(n.JoinFilter, subtreeTables(n.Children[0]))
		return &exec.HashJoin{
			Left: left, Right: right,
			LeftKeys: leftKeys, RightKeys: rightKeys,
			ResidualFilter: residual, Output: n.Output,
		}, nil
	}
	return &exec.NLJoin{Left: left, Right: right, Filter: n.JoinFilter, Output: n.Output}, nil
}

func (n *Node) lowerSemi(prof Profile, resolve ResolveMemoRef) (exec.Op, error) {
	left, err := n.Children[0].directToPhysical(prof, resolve)
	if err != nil {
		return nil, err
	}
	right, err := n.Children[1].directToPhysical(prof, resolve)
	if err != nil {
		return nil, err
	}
	anti := n.Kind == KAntiSemi
	if prof.EnableHashJoin && n.canHashJoin() {
		leftKeys, rightKeys, residual := equiJoinKeys(n.JoinFilter, subtreeTables(n.Children[0]))
		return &exec.HashJoin{
			Left: left, Right: right,
			LeftKeys: leftKeys, RightKeys: rightKeys,
			ResidualFilter: residual, Output: n.Output,
			Semi: !anti, Anti: anti,
		}, nil
	}
	return &exec.NLJoin{Left: left, Right: right, Filter: n.JoinFilter, Output: n.Output, Semi: !anti, Anti: anti}, nil
}

// canHashJoin implements spec.md §4.E's rule: HashJoin iff the filter has an
// equi-join conjunct AND the left subtree has no outer references.
func (n *Node) canHashJoin() bool {
	if n.JoinFilter == nil {
		return false
	}
	leftTables := subtreeTables(n.Children[0])
	for t := range leftTables {
		if len(t.OuterRefs) > 0 {
			return false
		}
	}
	leftKeys, rightKeys, _ := equiJoinKeys(n.JoinFilter, leftTables)
	return len(leftKeys) > 0 && len(leftKeys) == len(rightKeys)
}

// equiJoinKeys splits filter's top-level AND-list into equi-join conjuncts
// (one operand rooted in leftTables, the other not) versus a residual filter
// applied after the join.
func equiJoinKeys(filter *expr.Expr, leftTables expr.TableRefSet) (leftKeys, rightKeys []*expr.Expr, residual *expr.Expr) {
	conjuncts := flattenAnd(filter)
	var kept []*expr.Expr
	for _, c := range conjuncts {
		if c.Kind == expr.KBin && c.Private.(*expr.BinPrivate).Op == "=" {
			l, r := c.Child(0), c.Child(1)
			if isSubsetOf(l.TableRefs, leftTables) && !isSubsetOf(r.TableRefs, leftTables) {
				leftKeys = append(leftKeys, l)
				rightKeys = append(rightKeys, r)
				continue
			}
			if isSubsetOf(r.TableRefs, leftTables) && !isSubsetOf(l.TableRefs, leftTables) {
				leftKeys = append(leftKeys, r)
				rightKeys = append(rightKeys, l)
				continue
			}
		}
		kept = append(kept, c)
	}
	residual = rebuildAnd(kept)
	return leftKeys, rightKeys, residual
}

func flattenAnd(e *expr.Expr) []*expr.Expr {
	if e == nil {
		return nil
	}
	if e.Kind == expr.KLogicAnd {
		return append(flattenAnd(e.Child(0)), flattenAnd(e.Child(1))...)
	}
	return []*expr.Expr{e}
}

func rebuildAnd(exprs []*expr.Expr) *expr.Expr {
	if len(exprs) == 0 {
		return nil
	}
	out := exprs[0]
	for _, e := range exprs[1:] {
		out = expr.NewLogicAnd(out, e)
	}
	return out
}
