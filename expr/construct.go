package expr

import "github.com/bigwa/qpmodel/sqltypes"

func NewLiteral(v sqltypes.Value) *Expr {
	k := v.Kind
	return &Expr{Kind: KLiteral, Type: sqltypes.ColumnType{Kind: k}, Bounded: true, Private: v}
}

// NewUnboundCol creates an unbound column reference by name, optionally
// table-qualified. Bind resolves Table/Name against the BindContext.
func NewUnboundCol(table, name string) *Expr {
	return &Expr{Kind: KCol, Private: &ColPrivate{Table: table, Name: name}}
}

func NewBin(op string, l, r *Expr) *Expr {
	return &Expr{Kind: KBin, Children: []*Expr{l, r}, Private: &BinPrivate{Op: op}}
}

func NewLogicAnd(l, r *Expr) *Expr {
	return &Expr{Kind: KLogicAnd, Children: []*Expr{l, r}}
}

func NewLogicOr(l, r *Expr) *Expr {
	return &Expr{Kind: KLogicOr, Children: []*Expr{l, r}}
}

func NewNot(e *Expr) *Expr {
	return &Expr{Kind: KNot, Children: []*Expr{e}}
}

// NewIn builds the literal-list form In(expr, list) of spec.md §3.
func NewIn(probe *Expr, list []*Expr) *Expr {
	children := make([]*Expr, 0, 1+len(list))
	children = append(children, probe)
	children = append(children, list...)
	return &Expr{Kind: KIn, Children: children}
}

func (e *Expr) InProbe() *Expr  { return e.Children[0] }
func (e *Expr) InList() []*Expr { return e.Children[1:] }

// NewCase builds Case(eval?, whens, thens, else?).
func NewCase(eval *Expr, whens, thens []*Expr, els *Expr) *Expr {
	if len(whens) != len(thens) {
		panic("case whens/thens length mismatch")
	}
	p := &CasePrivate{HasEval: eval != nil, HasElse: els != nil, NWhen: len(whens)}
	var children []*Expr
	if eval != nil {
		children = append(children, eval)
	}
	for i := range whens {
		children = append(children, whens[i], thens[i])
	}
	if els != nil {
		children = append(children, els)
	}
	return &Expr{Kind: KCase, Children: children, Private: p}
}

func (e *Expr) CaseEval() *Expr {
	p := e.Private.(*CasePrivate)
	if !p.HasEval {
		return nil
	}
	return e.Children[0]
}

func (e *Expr) CaseWhensThens() (whens, thens []*Expr) {
	p := e.Private.(*CasePrivate)
	start := p.whenThenStart()
	for i := 0; i < p.NWhen; i++ {
		whens = append(whens, e.Children[start+2*i])
		thens = append(thens, e.Children[start+2*i+1])
	}
	return whens, thens
}

func (e *Expr) CaseElse() *Expr {
	p := e.Private.(*CasePrivate)
	idx := p.elseIdx(len(e.Children))
	if idx < 0 {
		return nil
	}
	return e.Children[idx]
}

func newSubquery(kind SubqueryKind) *Expr {
	k := KSubqueryScalar
	switch kind {
	case SubExists:
		k = KSubqueryExists
	case SubIn:
		k = KSubqueryIn
	}
	return &Expr{Kind: k, Private: &SubqueryPrivate{Kind: kind}}
}

// NewSubqueryScalar, NewSubqueryExists, NewSubqueryIn construct the three
// subquery forms of spec.md §3. probe is nil for Exists/Scalar and the
// left-hand probe expression for In.
func NewSubqueryScalar() *Expr { return newSubquery(SubScalar) }
func NewSubqueryExists(negate bool) *Expr {
	e := newSubquery(SubExists)
	e.Private.(*SubqueryPrivate).Negate = negate
	return e
}
func NewSubqueryIn(probe *Expr) *Expr {
	e := newSubquery(SubIn)
	e.Children = []*Expr{probe}
	return e
}

func (e *Expr) SubqueryPrivate() *SubqueryPrivate { return e.Private.(*SubqueryPrivate) }

func NewFunc(name string, args ...*Expr) *Expr {
	return &Expr{Kind: KFunc, Children: args, Private: &FuncPrivate{Name: name}}
}

func NewAggFunc(name string, distinct bool, arg *Expr) *Expr {
	var children []*Expr
	if arg != nil {
		children = []*Expr{arg}
	}
	return &Expr{Kind: KAggFunc, Children: children, Private: &AggPrivate{Name: name, Distinct: distinct}}
}

// NewExprRef wraps wrapped as a positional reference into a child's output.
// Per spec.md §3 invariant, wrapped must not itself be an ExprRef — bind-time
// callers should unwrap before wrapping again (resolve_column_ordinal never
// double-wraps by construction).
func NewExprRef(wrapped *Expr, ordinal int) *Expr {
	if wrapped.Kind == KExprRef {
		panic("ExprRef wrapping ExprRef")
	}
	e := &Expr{
		Kind:      KExprRef,
		Alias:     wrapped.Alias,
		Visible:   wrapped.Visible,
		Type:      wrapped.Type,
		Bounded:   wrapped.Bounded,
		TableRefs: wrapped.TableRefs,
		Children:  []*Expr{wrapped},
		Private:   &ExprRefPrivate{Ordinal: ordinal},
	}
	return e
}

func (e *Expr) ExprRefOrdinal() int { return e.Private.(*ExprRefPrivate).Ordinal }
func (e *Expr) ExprRefWrapped() *Expr { return e.Children[0] }

func NewSelStar(table string) *Expr {
	return &Expr{Kind: KSelStar, Private: &SelStarPrivate{Table: table}}
}

func NewOrder(child *Expr, desc bool) *Expr {
	return &Expr{Kind: KOrder, Children: []*Expr{child}, Private: &OrderPrivate{Desc: desc}}
}

func (e *Expr) OrderDesc() bool { return e.Private.(*OrderPrivate).Desc }
