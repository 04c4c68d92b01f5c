package memo

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bigwa/qpmodel/catalog"
	"github.com/bigwa/qpmodel/exec"
	"github.com/bigwa/qpmodel/expr"
	"github.com/bigwa/qpmodel/plan"
	"github.com/bigwa/qpmodel/sqltypes"
)

func memoFixtureTable(name string, cols ...string) *catalog.TableDef {
	defs := make([]catalog.ColumnDef, len(cols))
	for i, c := range cols {
		defs[i] = catalog.ColumnDef{Name: c, Type: sqltypes.MakeInt()}
	}
	return catalog.NewTableDef(name, defs)
}

func twoTableJoin(t *testing.T) *plan.Node {
	t.Helper()
	ctx := expr.NewBindContext(nil)
	refA := expr.NewBaseTableRef("a", memoFixtureTable("a", "x"))
	refB := expr.NewBaseTableRef("b", memoFixtureTable("b", "x"))
	require.NoError(t, ctx.RegisterTable(refA))
	require.NoError(t, ctx.RegisterTable(refB))

	filter := expr.NewBin("=", expr.NewUnboundCol("a", "x"), expr.NewUnboundCol("b", "x"))
	require.NoError(t, filter.Bind(ctx))

	outA := expr.NewUnboundCol("a", "x")
	require.NoError(t, outA.Bind(ctx))
	outB := expr.NewUnboundCol("b", "x")
	require.NoError(t, outB.Bind(ctx))

	join := plan.NewJoin(plan.Inner, filter, plan.NewGetBaseTable(refA), plan.NewGetBaseTable(refB))
	require.NoError(t, join.ResolveColumnOrdinal([]*expr.Expr{outA, outB}, false))
	return join
}

func threeTableJoin(t *testing.T) *plan.Node {
	t.Helper()
	ctx := expr.NewBindContext(nil)
	refA := expr.NewBaseTableRef("a", memoFixtureTable("a", "x"))
	refB := expr.NewBaseTableRef("b", memoFixtureTable("b", "x"))
	refC := expr.NewBaseTableRef("c", memoFixtureTable("c", "x"))
	require.NoError(t, ctx.RegisterTable(refA))
	require.NoError(t, ctx.RegisterTable(refB))
	require.NoError(t, ctx.RegisterTable(refC))

	p1 := expr.NewBin("=", expr.NewUnboundCol("a", "x"), expr.NewUnboundCol("b", "x"))
	require.NoError(t, p1.Bind(ctx))
	p3 := expr.NewBin("=", expr.NewUnboundCol("a", "x"), expr.NewUnboundCol("c", "x"))
	require.NoError(t, p3.Bind(ctx))

	outA := expr.NewUnboundCol("a", "x")
	require.NoError(t, outA.Bind(ctx))
	outB := expr.NewUnboundCol("b", "x")
	require.NoError(t, outB.Bind(ctx))
	outC := expr.NewUnboundCol("c", "x")
	require.NoError(t, outC.Bind(ctx))

	ab := plan.NewJoin(plan.Inner, p1, plan.NewGetBaseTable(refA), plan.NewGetBaseTable(refB))
	root := plan.NewJoin(plan.Inner, p3, ab, plan.NewGetBaseTable(refC))
	require.NoError(t, root.ResolveColumnOrdinal([]*expr.Expr{outA, outB, outC}, false))
	return root
}

// TestMemoSearchAppliesJoinAssociate exercises JoinAssociateRule firing on a
// left-deep (A⋈B)⋈C member: the left child is a MemoRef by the time Search
// runs, so the rule must resolve it through the referenced group rather than
// inspecting its Kind directly.
func TestMemoSearchAppliesJoinAssociate(t *testing.T) {
	join := threeTableJoin(t)
	m := New([]Rule{JoinCommuteRule{}, JoinAssociateRule{}}, plan.DefaultProfile())
	root, err := m.Enqueue(join)
	require.NoError(t, err)

	require.NoError(t, m.Search())

	associated := false
	for _, mem := range root.Members {
		require.Equal(t, root.Signature, Signature(mem.Logical, m))
		left := mem.Logical.Children[0]
		if left.Kind != plan.KMemoRef {
			continue
		}
		g := m.Group(left.MemoGroupID)
		if g.Members[0].Logical != nil && g.Members[0].Logical.Kind == plan.KGetBaseTable {
			associated = true
		}
	}
	require.True(t, associated, "expected an A⋈(B⋈C) member produced by JoinAssociateRule")
}

func TestMemoEnqueueDedupsBySignature(t *testing.T) {
	join := twoTableJoin(t)
	m := New([]Rule{JoinCommuteRule{}}, plan.DefaultProfile())

	root, err := m.Enqueue(join)
	require.NoError(t, err)
	require.Equal(t, root.ID, m.RootGroup().ID)
	// Two base-table scans plus the join itself: three groups total.
	require.Len(t, m.groups, 3)
}

func TestMemoSearchAppliesJoinCommute(t *testing.T) {
	join := twoTableJoin(t)
	m := New([]Rule{JoinCommuteRule{}}, plan.DefaultProfile())
	root, err := m.Enqueue(join)
	require.NoError(t, err)

	require.NoError(t, m.Search())

	require.Len(t, root.Members, 2)
	for _, mem := range root.Members {
		require.Equal(t, root.Signature, Signature(mem.Logical, m))
	}
}

func TestMemoLowerAndExtractMinCost(t *testing.T) {
	join := twoTableJoin(t)
	m := New([]Rule{JoinCommuteRule{}}, plan.DefaultProfile())
	root, err := m.Enqueue(join)
	require.NoError(t, err)
	require.NoError(t, m.Search())
	require.NoError(t, m.LowerPhysicalMembers())

	op, err := m.MinToPhysicalPlan(root.ID)
	require.NoError(t, err)
	require.NotNil(t, op)

	// Both base-table groups and the join group should carry a physical
	// member after LowerPhysicalMembers.
	for _, g := range m.groups {
		require.NotNil(t, g.Members[0].Physical)
	}

	// The filter is a single equi-join conjunct, so lowerJoin picks HashJoin
	// for either commute orientation; both members cost the same and
	// MinToPhysicalPlan returns one of them.
	_, isHashJoin := op.(*exec.HashJoin)
	require.True(t, isHashJoin)
}

func TestMemoMissingPhysicalMemberFails(t *testing.T) {
	join := twoTableJoin(t)
	m := New(nil, plan.DefaultProfile())
	root, err := m.Enqueue(join)
	require.NoError(t, err)

	_, err = m.MinToPhysicalPlan(root.ID)
	require.ErrorIs(t, err, sqltypes.ErrNoPhysicalPlan)
}
