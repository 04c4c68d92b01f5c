package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bigwa/qpmodel/sqltypes"
)

func TestParseFields(t *testing.T) {
	colTypes := []sqltypes.ColumnType{sqltypes.MakeInt(), sqltypes.MakeChar(10), sqltypes.MakeBool()}

	row, err := ParseFields([]string{"1", "hello", "t"}, colTypes)
	require.NoError(t, err)
	require.Equal(t, int64(1), row[0].Int())
	require.Equal(t, "hello", row[1].Str())
	require.True(t, row[2].Bool())

	row, err = ParseFields([]string{"", "x", "f"}, colTypes)
	require.NoError(t, err)
	require.True(t, row[0].Null)

	_, err = ParseFields([]string{"only-one"}, colTypes)
	require.Error(t, err)

	_, err = ParseFields([]string{"not-a-number", "x", "t"}, colTypes)
	require.Error(t, err)
}

type fakeCSVReader struct {
	rows [][]string
}

func (f *fakeCSVReader) ReadCSV(path string, delim byte, eachLine func(fields []string) error) error {
	for _, r := range f.rows {
		if err := eachLine(r); err != nil {
			return err
		}
	}
	return nil
}

func TestCSVReaderContract(t *testing.T) {
	var _ CSVReader = &fakeCSVReader{}
	reader := &fakeCSVReader{rows: [][]string{{"1", "a"}, {"2", "b"}}}
	var seen [][]string
	err := reader.ReadCSV("ignored", '|', func(fields []string) error {
		seen = append(seen, fields)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, seen, 2)
}
