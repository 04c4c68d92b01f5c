package engine

import (
	"bytes"
	"fmt"

	"github.com/cockroachdb/cockroach/pkg/util/treeprinter"

	"github.com/bigwa/qpmodel/exec"
	"github.com/bigwa/qpmodel/expr"
)

// Explain renders p's physical plan as a tree, the way the teacher's
// relationalProps/opt.Expr.format render onto a treeprinter.Node
// (v3/relational_props.go, v4/opt/expr.go) — SPEC_FULL.md's supplemented
// EXPLAIN surface over spec.md's bare six end-to-end scenarios.
func Explain(p *Prepared, opts ExplainOptions) string {
	tp := treeprinter.New()
	formatOp(tp, p.Physical, opts)
	return tp.String()
}

func formatOp(tp treeprinter.Node, op exec.Op, opts ExplainOptions) {
	child := tp.Child(opLabel(op, opts))
	for _, c := range op.Children() {
		formatOp(child, c, opts)
	}
}

func opLabel(op exec.Op, opts ExplainOptions) string {
	var buf bytes.Buffer
	switch o := op.(type) {
	case *exec.ScanTable:
		buf.WriteString("scan")
		if opts.ShowTableName {
			fmt.Fprintf(&buf, " %s", o.Table.Name)
			if o.Ref != nil && o.Ref.Alias != "" && o.Ref.Alias != o.Table.Name {
				fmt.Fprintf(&buf, " as %s", o.Ref.Alias)
			}
		}
		writeOutput(&buf, opts, o.Output)
	case *exec.ScanFile:
		buf.WriteString("scan(file)")
		if opts.ShowTableName {
			fmt.Fprintf(&buf, " %s", o.Path)
		}
		writeOutput(&buf, opts, o.Output)
	case *exec.NLJoin:
		buf.WriteString("nested-loop-join")
		if o.Semi {
			buf.WriteString("(semi)")
		}
		if o.Anti {
			buf.WriteString("(anti)")
		}
		writeOutput(&buf, opts, o.Output)
	case *exec.HashJoin:
		buf.WriteString("hash-join")
		if o.Semi {
			buf.WriteString("(semi)")
		}
		if o.Anti {
			buf.WriteString("(anti)")
		}
		writeOutput(&buf, opts, o.Output)
	case *exec.HashAgg:
		buf.WriteString("aggregate")
		writeOutput(&buf, opts, o.Output)
	case *exec.Order:
		buf.WriteString("order")
		writeOutput(&buf, opts, o.Output)
	case *exec.Filter:
		buf.WriteString("filter")
		writeOutput(&buf, opts, o.Output)
	case *exec.Limit:
		fmt.Fprintf(&buf, "limit %d", o.Count)
	case *exec.FromQuery:
		buf.WriteString("subquery-scan")
		if opts.ShowTableName && o.QueryRef != nil && o.QueryRef.Alias != "" {
			fmt.Fprintf(&buf, " %s", o.QueryRef.Alias)
		}
		writeOutput(&buf, opts, o.Output)
	case *exec.Profiling:
		buf.WriteString("profile")
	case *exec.Collect:
		buf.WriteString("collect")
		writeOutput(&buf, opts, o.Output)
	default:
		fmt.Fprintf(&buf, "%T", o)
	}
	if opts.ShowCost {
		fmt.Fprintf(&buf, "  cost=%.2f", op.Cost())
	}
	return buf.String()
}

// writeOutput appends a column-Kind summary when ExplainOptions.ShowOutput is
// set. Expr carries no String() method of its own (only Kind does), so the
// summary is Kind names rather than a reconstructed SQL expression.
func writeOutput(buf *bytes.Buffer, opts ExplainOptions, output []*expr.Expr) {
	if !opts.ShowOutput || len(output) == 0 {
		return
	}
	buf.WriteString(" output=[")
	for i, e := range output {
		if i > 0 {
			buf.WriteString(", ")
		}
		if e.Alias != "" {
			fmt.Fprintf(buf, "%s:%s", e.Alias, e.Kind)
		} else {
			buf.WriteString(e.Kind.String())
		}
	}
	buf.WriteString("]")
}
