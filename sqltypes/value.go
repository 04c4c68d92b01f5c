package sqltypes

import (
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// ErrTypeMismatch is returned by comparison and arithmetic when the operand
// types are not compatible.
var ErrTypeMismatch = errors.New("TypeMismatch")

// ErrEval marks runtime evaluation failures (division by zero, malformed
// literals encountered during eval rather than at bind time).
var ErrEval = errors.New("EvalError")

// Value is the dynamic scalar domain that rows and literals traffic in. Only
// one of the fields is meaningful, selected by Kind. A nil value is
// represented by Null=true regardless of Kind (the column's declared type).
type Value struct {
	Kind Kind
	Null bool

	i   int64
	f   float64
	s   string
	b   bool
	t   time.Time
	dur time.Duration // TimeSpan, normalized to days/months/years -> time.Duration via 30/365 day approximation
}

func NullValue(k Kind) Value { return Value{Kind: k, Null: true} }

func IntValue(v int64) Value      { return Value{Kind: Int, i: v} }
func DoubleValue(v float64) Value { return Value{Kind: Double, f: v} }
func CharValue(v string) Value    { return Value{Kind: Char, s: v} }
func BoolValue(v bool) Value      { return Value{Kind: Bool, b: v} }
func DateValue(v time.Time) Value { return Value{Kind: DateTime, t: v} }
func IntervalValue(v time.Duration) Value { return Value{Kind: TimeSpan, dur: v} }

func (v Value) Int() int64          { return v.i }
func (v Value) Double() float64     { return v.f }
func (v Value) Str() string         { return v.s }
func (v Value) Bool() bool          { return v.b }
func (v Value) Time() time.Time     { return v.t }
func (v Value) Duration() time.Duration { return v.dur }

func (v Value) IsNumeric() bool {
	return v.Kind == Int || v.Kind == Double
}

func (v Value) AsFloat() float64 {
	if v.Kind == Int {
		return float64(v.i)
	}
	return v.f
}

func (v Value) String() string {
	if v.Null {
		return "NULL"
	}
	switch v.Kind {
	case Int:
		return strconv.FormatInt(v.i, 10)
	case Double:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case Char:
		return v.s
	case Bool:
		return strconv.FormatBool(v.b)
	case DateTime:
		return v.t.Format("2006-01-02")
	case TimeSpan:
		return v.dur.String()
	default:
		return "?"
	}
}

// ParseDateLiteral parses the body of a date'...' literal into a calendar
// date. Only the YYYY-MM-DD form is accepted.
func ParseDateLiteral(s string) (Value, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Value{}, errors.Wrapf(ErrEval, "malformed date literal %q: %v", s, err)
	}
	return DateValue(t), nil
}

// ParseIntervalLiteral parses the body of an interval'...' literal of the
// form "N days", "N months", "N years" (optionally combined with spaces,
// e.g. "1 year 2 months 3 days") into a duration. Per spec.md §4.A this is a
// documented 30-day month / 365-day year approximation, not calendar-correct.
func ParseIntervalLiteral(s string) (Value, error) {
	fields := strings.Fields(s)
	if len(fields)%2 != 0 {
		return Value{}, errors.Wrapf(ErrEval, "malformed interval literal %q", s)
	}
	var days int64
	for i := 0; i < len(fields); i += 2 {
		n, err := strconv.ParseInt(fields[i], 10, 64)
		if err != nil {
			return Value{}, errors.Wrapf(ErrEval, "malformed interval literal %q: %v", s, err)
		}
		unit := strings.ToLower(strings.TrimSuffix(fields[i+1], "s"))
		switch unit {
		case "day":
			days += n
		case "month":
			days += n * 30
		case "year":
			days += n * 365
		default:
			return Value{}, errors.Wrapf(ErrEval, "unsupported interval unit %q in %q", fields[i+1], s)
		}
	}
	return IntervalValue(time.Duration(days) * 24 * time.Hour), nil
}

// Equal reports whether two values denote the same scalar, treating any two
// NULLs of the same kind as equal (unlike SQL three-valued Compare, this is
// used for structural expression comparison, not row-level semantics).
func Equal(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	if a.Null || b.Null {
		return a.Null == b.Null
	}
	return a.String() == b.String()
}

// Compare returns -1, 0, 1 for less/equal/greater. Comparing values of
// incompatible types returns ErrTypeMismatch. Compare does not look at Null:
// a NULL compares by its zero payload, so callers that need SQL NULL
// semantics check Null before calling Compare.
func (v Value) Compare(other Value) (int, error) {
	if v.Kind != other.Kind {
		if !(v.Kind == Int || v.Kind == Double) || !(other.Kind == Int || other.Kind == Double) {
			return 0, errors.Wrapf(ErrTypeMismatch, "cannot compare %s and %s", v.Kind, other.Kind)
		}
	}
	switch v.Kind {
	case Int, Double:
		a, b := v.AsFloat(), other.AsFloat()
		switch {
		case a < b:
			return -1, nil
		case a > b:
			return 1, nil
		default:
			return 0, nil
		}
	case Char:
		return strings.Compare(v.s, other.s), nil
	case Bool:
		if v.b == other.b {
			return 0, nil
		}
		if !v.b {
			return -1, nil
		}
		return 1, nil
	case DateTime:
		switch {
		case v.t.Before(other.t):
			return -1, nil
		case v.t.After(other.t):
			return 1, nil
		default:
			return 0, nil
		}
	case TimeSpan:
		switch {
		case v.dur < other.dur:
			return -1, nil
		case v.dur > other.dur:
			return 1, nil
		default:
			return 0, nil
		}
	default:
		return 0, errors.Wrapf(ErrTypeMismatch, "uncomparable kind %s", v.Kind)
	}
}

// Arith applies a binary arithmetic operator ("+", "-", "*", "/", "%") to
// two numeric values, promoting to Double per ArithResult.
func Arith(op string, left, right Value) (Value, error) {
	if !left.IsNumeric() || !right.IsNumeric() {
		return Value{}, errors.Wrapf(ErrTypeMismatch, "arithmetic on non-numeric %s/%s", left.Kind, right.Kind)
	}
	resultType, ok := ArithResult(ColumnType{Kind: left.Kind}, ColumnType{Kind: right.Kind})
	if !ok {
		return Value{}, errors.Wrapf(ErrTypeMismatch, "arithmetic on %s/%s", left.Kind, right.Kind)
	}
	a, b := left.AsFloat(), right.AsFloat()
	var r float64
	switch op {
	case "+":
		r = a + b
	case "-":
		r = a - b
	case "*":
		r = a * b
	case "/":
		if b == 0 {
			return Value{}, errors.Wrap(ErrEval, "division by zero")
		}
		r = a / b
	case "%":
		if b == 0 {
			return Value{}, errors.Wrap(ErrEval, "division by zero")
		}
		r = float64(int64(a) % int64(b))
	default:
		return Value{}, errors.Newf("unknown arithmetic operator %q", op)
	}
	if resultType.Kind == Int {
		return IntValue(int64(r)), nil
	}
	return DoubleValue(r), nil
}

// Like implements SQL wildcard matching: % matches any run of characters, _
// matches exactly one.
func Like(s, pattern string) bool {
	return likeMatch(s, pattern)
}

func likeMatch(s, pattern string) bool {
	// Translate the SQL pattern into a sequence of literal/any-char/any-run
	// tokens and match greedily with backtracking, mirroring the classic
	// glob-matching recursion.
	return likeMatchFrom(s, pattern, 0, 0)
}

func likeMatchFrom(s, p string, si, pi int) bool {
	for pi < len(p) {
		switch p[pi] {
		case '%':
			for pi < len(p) && p[pi] == '%' {
				pi++
			}
			if pi == len(p) {
				return true
			}
			for i := si; i <= len(s); i++ {
				if likeMatchFrom(s, p, i, pi) {
					return true
				}
			}
			return false
		case '_':
			if si >= len(s) {
				return false
			}
			si++
			pi++
		default:
			if si >= len(s) || s[si] != p[pi] {
				return false
			}
			si++
			pi++
		}
	}
	return si == len(s)
}
