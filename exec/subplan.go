package exec

import (
	"github.com/bigwa/qpmodel/expr"
	"github.com/bigwa/qpmodel/sqltypes"
)

// SubPlan adapts a physical Op to expr.SubPlanRunner, letting a
// SubqueryExpr invoke its inner physical plan without expr importing exec.
type SubPlan struct {
	Root Op
}

func (s *SubPlan) Run(ctx *expr.ExecContext, emit func(sqltypes.Row) error) error {
	return runChild(s.Root, ctx, RowFunc(emit))
}

var _ expr.SubPlanRunner = (*SubPlan)(nil)
