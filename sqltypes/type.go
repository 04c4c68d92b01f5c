// Package sqltypes implements the column type and value domain shared by the
// binder, the expression evaluator and the physical operators.
package sqltypes

import "fmt"

// Kind tags the variants of ColumnType.
type Kind int8

const (
	UnknownKind Kind = iota
	Int
	Double
	Char
	Bool
	DateTime
	TimeSpan
)

func (k Kind) String() string {
	switch k {
	case Int:
		return "int"
	case Double:
		return "double"
	case Char:
		return "char"
	case Bool:
		return "bool"
	case DateTime:
		return "date"
	case TimeSpan:
		return "interval"
	default:
		return "unknown"
	}
}

// ColumnType is a tagged variant over the scalar types qpmodel understands.
// Char carries an explicit length; the remaining kinds are nullary.
type ColumnType struct {
	Kind Kind
	Len  int // only meaningful for Char
}

func MakeInt() ColumnType      { return ColumnType{Kind: Int} }
func MakeDouble() ColumnType   { return ColumnType{Kind: Double} }
func MakeBool() ColumnType     { return ColumnType{Kind: Bool} }
func MakeDateTime() ColumnType { return ColumnType{Kind: DateTime} }
func MakeTimeSpan() ColumnType { return ColumnType{Kind: TimeSpan} }
func MakeChar(length int) ColumnType {
	return ColumnType{Kind: Char, Len: length}
}

func (t ColumnType) String() string {
	if t.Kind == Char {
		return fmt.Sprintf("char(%d)", t.Len)
	}
	return t.Kind.String()
}

func (t ColumnType) IsNumeric() bool {
	return t.Kind == Int || t.Kind == Double
}

// CompatibleWith reports whether a value of type t can be compared or
// combined with a value of type other without an explicit cast. Numerics are
// mutually compatible (arithmetic promotes to Double); every other kind is
// only compatible with itself.
func (t ColumnType) CompatibleWith(other ColumnType) bool {
	if t.IsNumeric() && other.IsNumeric() {
		return true
	}
	return t.Kind == other.Kind
}

// ArithResult returns the result type of a binary arithmetic operation
// between two operand types, per spec: arithmetic on mixed numerics promotes
// to Double, same-numeric-kind stays in that kind (left operand's numeric
// type wins when both sides already agree).
func ArithResult(left, right ColumnType) (ColumnType, bool) {
	if !left.IsNumeric() || !right.IsNumeric() {
		return ColumnType{}, false
	}
	if left.Kind == Double || right.Kind == Double {
		return MakeDouble(), true
	}
	return left, true
}
