package sqltypes

// Row is an ordered vector of values flowing between physical operators.
type Row []Value

// String renders a row as a delimited key, used by HashAgg to key its maps
// on value content rather than pointer identity.
func (r Row) String() string {
	s := ""
	for _, v := range r {
		s += v.String() + "\x00"
	}
	return s
}

// Concat returns a new row with left's values followed by right's.
func Concat(left, right Row) Row {
	out := make(Row, 0, len(left)+len(right))
	out = append(out, left...)
	out = append(out, right...)
	return out
}

// Concat is the method form, used where a fluent left.Concat(right) reads
// more naturally at join call sites.
func (r Row) Concat(other Row) Row { return Concat(r, other) }

// NullRow returns a row of the given width, every column NULL of
// UnknownKind. Used to pad the non-matching side of outer/semi/anti joins.
func NullRow(width int) Row {
	out := make(Row, width)
	for i := range out {
		out[i] = Value{Null: true}
	}
	return out
}

// Clone returns a shallow copy; Value is a plain struct so this is a deep
// enough copy for qpmodel's purposes.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	copy(out, r)
	return out
}
