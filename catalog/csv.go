package catalog

import (
	"strconv"

	"github.com/cockroachdb/errors"

	"github.com/bigwa/qpmodel/sqltypes"
)

// CSVReader is the external collaborator contract spec.md §6 describes:
// "read_csv(path, delim='|', each_line: fields -> ())". The bulk CSV loader
// itself is out of scope (spec.md §1); qpmodel's exec.ScanFile only needs
// something that can stream delimited fields.
type CSVReader interface {
	ReadCSV(path string, delim byte, eachLine func(fields []string) error) error
}

// ParseFields converts a row of raw CSV fields into typed Values according to
// the column types of an ExternalTable, in field order.
func ParseFields(fields []string, colTypes []sqltypes.ColumnType) (sqltypes.Row, error) {
	if len(fields) != len(colTypes) {
		return nil, errors.Newf("csv row has %d fields, expected %d", len(fields), len(colTypes))
	}
	row := make(sqltypes.Row, len(fields))
	for i, f := range fields {
		v, err := parseField(f, colTypes[i])
		if err != nil {
			return nil, errors.Wrapf(err, "field %d", i)
		}
		row[i] = v
	}
	return row, nil
}

func parseField(f string, ct sqltypes.ColumnType) (sqltypes.Value, error) {
	if f == "" {
		return sqltypes.NullValue(ct.Kind), nil
	}
	switch ct.Kind {
	case sqltypes.Int:
		n, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return sqltypes.Value{}, errors.Wrapf(sqltypes.ErrEval, "parsing int %q: %v", f, err)
		}
		return sqltypes.IntValue(n), nil
	case sqltypes.Double:
		d, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return sqltypes.Value{}, errors.Wrapf(sqltypes.ErrEval, "parsing double %q: %v", f, err)
		}
		return sqltypes.DoubleValue(d), nil
	case sqltypes.Char:
		return sqltypes.CharValue(f), nil
	case sqltypes.Bool:
		return sqltypes.BoolValue(f == "t" || f == "true" || f == "1"), nil
	case sqltypes.DateTime:
		return sqltypes.ParseDateLiteral(f)
	case sqltypes.TimeSpan:
		return sqltypes.ParseIntervalLiteral(f)
	default:
		return sqltypes.Value{}, errors.Newf("unsupported column type %s", ct)
	}
}
