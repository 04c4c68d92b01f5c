package expr

import (
	"github.com/cockroachdb/errors"

	"github.com/bigwa/qpmodel/sqltypes"
)

// Eval interprets e against row, the current driving row of whatever
// physical operator is calling in, and ctx, which carries the correlated
// outer rows published by enclosing operators (spec.md §4.C "eval").
func (e *Expr) Eval(ctx *ExecContext, row sqltypes.Row) (sqltypes.Value, error) {
	switch e.Kind {
	case KLiteral:
		return e.Private.(sqltypes.Value), nil
	case KCol:
		p := e.Private.(*ColPrivate)
		if p.IsOuterRef {
			return ctx.GetParam(p.Ref, p.Ordinal), nil
		}
		if p.Ordinal >= len(row) {
			return sqltypes.Value{}, errors.AssertionFailedf("column ordinal %d out of range for row of width %d", p.Ordinal, len(row))
		}
		return row[p.Ordinal], nil
	case KBin:
		return e.evalBin(ctx, row)
	case KLogicAnd:
		l, err := e.Children[0].Eval(ctx, row)
		if err != nil {
			return sqltypes.Value{}, err
		}
		if !l.Null && !l.Bool() {
			return sqltypes.BoolValue(false), nil
		}
		r, err := e.Children[1].Eval(ctx, row)
		if err != nil {
			return sqltypes.Value{}, err
		}
		if l.Null || r.Null {
			if !r.Null && !r.Bool() {
				return sqltypes.BoolValue(false), nil
			}
			return sqltypes.NullValue(sqltypes.Bool), nil
		}
		return sqltypes.BoolValue(l.Bool() && r.Bool()), nil
	case KLogicOr:
		l, err := e.Children[0].Eval(ctx, row)
		if err != nil {
			return sqltypes.Value{}, err
		}
		if !l.Null && l.Bool() {
			return sqltypes.BoolValue(true), nil
		}
		r, err := e.Children[1].Eval(ctx, row)
		if err != nil {
			return sqltypes.Value{}, err
		}
		if l.Null || r.Null {
			if !r.Null && r.Bool() {
				return sqltypes.BoolValue(true), nil
			}
			return sqltypes.NullValue(sqltypes.Bool), nil
		}
		return sqltypes.BoolValue(l.Bool() || r.Bool()), nil
	case KNot:
		v, err := e.Children[0].Eval(ctx, row)
		if err != nil {
			return sqltypes.Value{}, err
		}
		if v.Null {
			return sqltypes.NullValue(sqltypes.Bool), nil
		}
		return sqltypes.BoolValue(!v.Bool()), nil
	case KIn:
		return e.evalIn(ctx, row)
	case KCase:
		return e.evalCase(ctx, row)
	case KSubqueryScalar:
		return e.evalSubqueryScalar(ctx, row)
	case KSubqueryExists:
		return e.evalSubqueryExists(ctx, row)
	case KSubqueryIn:
		return e.evalSubqueryIn(ctx, row)
	case KFunc:
		return e.evalFunc(ctx, row)
	case KExprRef:
		return e.Children[0].Eval(ctx, row)
	default:
		return sqltypes.Value{}, errors.AssertionFailedf("kind %s is not evaluable", e.Kind)
	}
}

func (e *Expr) evalBin(ctx *ExecContext, row sqltypes.Row) (sqltypes.Value, error) {
	p := e.Private.(*BinPrivate)
	l, err := e.Children[0].Eval(ctx, row)
	if err != nil {
		return sqltypes.Value{}, err
	}
	r, err := e.Children[1].Eval(ctx, row)
	if err != nil {
		return sqltypes.Value{}, err
	}
	if l.Null || r.Null {
		return sqltypes.NullValue(e.Type.Kind), nil
	}
	switch p.Op {
	case "+", "-", "*", "/", "%":
		return sqltypes.Arith(p.Op, l, r)
	case "LIKE":
		return sqltypes.BoolValue(sqltypes.Like(l.Str(), r.Str())), nil
	case "NOT LIKE":
		return sqltypes.BoolValue(!sqltypes.Like(l.Str(), r.Str())), nil
	default:
		cmp, err := l.Compare(r)
		if err != nil {
			return sqltypes.Value{}, err
		}
		var b bool
		switch p.Op {
		case "=":
			b = cmp == 0
		case "<>", "!=":
			b = cmp != 0
		case "<":
			b = cmp < 0
		case ">":
			b = cmp > 0
		case "<=":
			b = cmp <= 0
		case ">=":
			b = cmp >= 0
		default:
			return sqltypes.Value{}, errors.Newf("unknown binary operator %q", p.Op)
		}
		return sqltypes.BoolValue(b), nil
	}
}

func (e *Expr) evalIn(ctx *ExecContext, row sqltypes.Row) (sqltypes.Value, error) {
	probe, err := e.InProbe().Eval(ctx, row)
	if err != nil {
		return sqltypes.Value{}, err
	}
	if probe.Null {
		return sqltypes.NullValue(sqltypes.Bool), nil
	}
	sawNull := false
	for _, item := range e.InList() {
		v, err := item.Eval(ctx, row)
		if err != nil {
			return sqltypes.Value{}, err
		}
		if v.Null {
			sawNull = true
			continue
		}
		cmp, err := probe.Compare(v)
		if err != nil {
			return sqltypes.Value{}, err
		}
		if cmp == 0 {
			return sqltypes.BoolValue(true), nil
		}
	}
	if sawNull {
		return sqltypes.NullValue(sqltypes.Bool), nil
	}
	return sqltypes.BoolValue(false), nil
}

func (e *Expr) evalCase(ctx *ExecContext, row sqltypes.Row) (sqltypes.Value, error) {
	whens, thens := e.CaseWhensThens()
	if evalExpr := e.CaseEval(); evalExpr != nil {
		base, err := evalExpr.Eval(ctx, row)
		if err != nil {
			return sqltypes.Value{}, err
		}
		for i, w := range whens {
			wv, err := w.Eval(ctx, row)
			if err != nil {
				return sqltypes.Value{}, err
			}
			if base.Null || wv.Null {
				continue
			}
			cmp, err := base.Compare(wv)
			if err != nil {
				return sqltypes.Value{}, err
			}
			if cmp == 0 {
				return thens[i].Eval(ctx, row)
			}
		}
	} else {
		for i, w := range whens {
			wv, err := w.Eval(ctx, row)
			if err != nil {
				return sqltypes.Value{}, err
			}
			if !wv.Null && wv.Bool() {
				return thens[i].Eval(ctx, row)
			}
		}
	}
	if els := e.CaseElse(); els != nil {
		return els.Eval(ctx, row)
	}
	return sqltypes.NullValue(e.Type.Kind), nil
}

func (e *Expr) evalFunc(ctx *ExecContext, row sqltypes.Row) (sqltypes.Value, error) {
	p := e.Private.(*FuncPrivate)
	args := make([]sqltypes.Value, len(e.Children))
	for i, c := range e.Children {
		v, err := c.Eval(ctx, row)
		if err != nil {
			return sqltypes.Value{}, err
		}
		args[i] = v
	}
	switch p.Name {
	case "upper":
		return sqltypes.CharValue(upperASCII(args[0].Str())), nil
	case "lower":
		return sqltypes.CharValue(lowerASCII(args[0].Str())), nil
	default:
		return sqltypes.Value{}, errors.Wrapf(sqltypes.ErrEval, "unknown function %q", p.Name)
	}
}

func upperASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 'a' + 'A'
		}
	}
	return string(b)
}

func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c - 'A' + 'a'
		}
	}
	return string(b)
}

// evalSubqueryScalar/Exists/In drive the inner SubPlanRunner; they publish
// nothing themselves, since the scans and FromQuery operators of the outer
// plan publish each row their TableRef has outer references to. Cacheable subqueries
// (no correlation) compute once and memoize on the Expr node itself, since a
// cacheable subquery's result cannot vary across outer rows.
func (e *Expr) evalSubqueryScalar(ctx *ExecContext, row sqltypes.Row) (sqltypes.Value, error) {
	p := e.SubqueryPrivate()
	if p.Cacheable && p.cachedScalar != nil {
		return *p.cachedScalar, nil
	}
	var result sqltypes.Value
	seen := false
	err := p.Runner.Run(ctx, func(r sqltypes.Row) error {
		if seen {
			return errors.Wrapf(sqltypes.ErrSubqueryMultipleRow, "subquery %d", p.ID)
		}
		seen = true
		if len(r) != 1 {
			return errors.Wrapf(sqltypes.ErrSubqueryShape, "subquery %d", p.ID)
		}
		result = r[0]
		return nil
	})
	if err != nil {
		return sqltypes.Value{}, err
	}
	if !seen {
		result = sqltypes.NullValue(e.Type.Kind)
	}
	if p.Cacheable {
		p.cachedScalar = &result
	}
	return result, nil
}

func (e *Expr) evalSubqueryExists(ctx *ExecContext, row sqltypes.Row) (sqltypes.Value, error) {
	p := e.SubqueryPrivate()
	if p.Cacheable && p.cachedExists != nil {
		return sqltypes.BoolValue(*p.cachedExists != p.Negate), nil
	}
	found := false
	err := p.Runner.Run(ctx, func(r sqltypes.Row) error {
		found = true
		return errStopIteration
	})
	if err != nil && !errors.Is(err, errStopIteration) {
		return sqltypes.Value{}, err
	}
	if p.Cacheable {
		p.cachedExists = &found
	}
	if p.Negate {
		return sqltypes.BoolValue(!found), nil
	}
	return sqltypes.BoolValue(found), nil
}

func (e *Expr) evalSubqueryIn(ctx *ExecContext, row sqltypes.Row) (sqltypes.Value, error) {
	probe, err := e.Children[0].Eval(ctx, row)
	if err != nil {
		return sqltypes.Value{}, err
	}
	if probe.Null {
		return sqltypes.NullValue(sqltypes.Bool), nil
	}
	p := e.SubqueryPrivate()
	var set map[string]bool
	if p.Cacheable && p.cachedSet != nil {
		set = p.cachedSet
	} else {
		set = make(map[string]bool)
		err := p.Runner.Run(ctx, func(r sqltypes.Row) error {
			if len(r) != 1 {
				return errors.Wrapf(sqltypes.ErrSubqueryShape, "subquery %d", p.ID)
			}
			set[r[0].String()] = true
			return nil
		})
		if err != nil {
			return sqltypes.Value{}, err
		}
		if p.Cacheable {
			p.cachedSet = set
		}
	}
	return sqltypes.BoolValue(set[probe.String()]), nil
}

var errStopIteration = errors.New("stop iteration")
