package sqltypes

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestValueCompare(t *testing.T) {
	cases := []struct {
		name string
		a, b Value
		want int
	}{
		{"int-less", IntValue(1), IntValue(2), -1},
		{"int-equal", IntValue(5), IntValue(5), 0},
		{"double-greater", DoubleValue(3.5), DoubleValue(1.5), 1},
		{"mixed-numeric", IntValue(2), DoubleValue(2.0), 0},
		{"char", CharValue("a"), CharValue("b"), -1},
		{"bool", BoolValue(false), BoolValue(true), -1},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := c.a.Compare(c.b)
			require.NoError(t, err)
			require.Equal(t, c.want, got)
		})
	}
}

func TestValueCompareTypeMismatch(t *testing.T) {
	_, err := CharValue("x").Compare(IntValue(1))
	require.ErrorIs(t, err, ErrTypeMismatch)
}

func TestArith(t *testing.T) {
	v, err := Arith("+", IntValue(2), IntValue(3))
	require.NoError(t, err)
	require.Equal(t, int64(5), v.Int())
	require.Equal(t, Int, v.Kind)

	v, err = Arith("/", IntValue(7), DoubleValue(2))
	require.NoError(t, err)
	require.Equal(t, Double, v.Kind)
	require.InDelta(t, 3.5, v.Double(), 1e-9)

	_, err = Arith("/", IntValue(1), IntValue(0))
	require.ErrorIs(t, err, ErrEval)
}

func TestParseIntervalLiteral(t *testing.T) {
	v, err := ParseIntervalLiteral("1 year 2 months 3 days")
	require.NoError(t, err)
	require.Equal(t, TimeSpan, v.Kind)
	require.Equal(t, time.Duration(365+60+3)*24*time.Hour, v.Duration())
}

func TestLike(t *testing.T) {
	require.True(t, Like("hello", "h%"))
	require.True(t, Like("hello", "h_llo"))
	require.False(t, Like("hello", "world"))
}

func TestRowConcatAndClone(t *testing.T) {
	left := Row{IntValue(1)}
	right := Row{IntValue(2)}
	combined := left.Concat(right)
	require.Len(t, combined, 2)

	clone := combined.Clone()
	clone[0] = IntValue(99)
	require.Equal(t, int64(1), combined[0].Int())
}

func TestColumnTypeCompatibleWith(t *testing.T) {
	require.True(t, MakeInt().CompatibleWith(MakeDouble()))
	require.False(t, MakeInt().CompatibleWith(MakeChar(10)))
}
