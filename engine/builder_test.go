package engine

import (
	"testing"

	"github.com/cockroachdb/cockroach/pkg/sql/parser"
	"github.com/stretchr/testify/require"

	"github.com/bigwa/qpmodel/catalog"
	"github.com/bigwa/qpmodel/expr"
	"github.com/bigwa/qpmodel/plan"
)

// TestHasOuterRefRecursesIntoNestedSubquery covers spec.md §4.C's transitive
// cacheability rule: an IN-subquery is only cacheable if neither it nor any
// subquery nested inside it correlates outward. Here the IN-subquery itself
// has no outer reference, but its nested EXISTS does (`c.x1 = a.x1` reaches
// past both the EXISTS's own scope and the IN-subquery's scope to the
// outermost table a), so the IN-subquery must be marked uncacheable too.
func TestHasOuterRefRecursesIntoNestedSubquery(t *testing.T) {
	cat := catalog.NewFixtureCatalog()

	parsed, err := parser.ParseOne(
		"SELECT x1 FROM a WHERE x1 IN (SELECT x1 FROM b WHERE EXISTS (SELECT 1 FROM c WHERE x1 = a.x1))")
	require.NoError(t, err)

	b := newBuilder(cat)
	root, err := b.buildStatement(parsed.AST)
	require.NoError(t, err)

	in := findSubqueryIn(t, root)
	require.False(t, in.SubqueryPrivate().Cacheable,
		"IN-subquery transitively correlates through its nested EXISTS and must not be marked cacheable")
}

func findSubqueryIn(t *testing.T, n *plan.Node) *expr.Expr {
	t.Helper()
	var found *expr.Expr
	var walk func(*plan.Node)
	walk = func(p *plan.Node) {
		if found != nil || p == nil {
			return
		}
		slots := append([]*expr.Expr{p.Filter, p.JoinFilter, p.Having}, p.Output...)
		for _, s := range slots {
			if s == nil {
				continue
			}
			s.VisitEach(nil, func(x *expr.Expr) bool {
				if x.Kind == expr.KSubqueryIn {
					found = x
					return false
				}
				return true
			})
			if found != nil {
				return
			}
		}
		for _, c := range p.Children {
			walk(c)
		}
	}
	walk(n)
	require.NotNil(t, found, "expected a KSubqueryIn expression in the bound plan")
	return found
}
