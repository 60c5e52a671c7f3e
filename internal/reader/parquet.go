package reader

import (
	"errors"
	"io"
	"os"
	"time"

	"github.com/parquet-go/parquet-go"

	"datapush/internal/table"
)

// readParquet loads a flat Parquet file. Unlike CSV/Excel, no inference is
// needed: column kinds come from the file's own schema. Nested fields are
// not supported; the push destination is a flat table.
func readParquet(path string) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ReadError{Path: path, Err: err}
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, &ReadError{Path: path, Err: err}
	}

	pf, err := parquet.OpenFile(f, st.Size())
	if err != nil {
		return nil, &ReadError{Path: path, Err: err}
	}

	fields := pf.Schema().Fields()
	if len(fields) == 0 {
		return nil, &ReadError{Path: path, Err: errors.New("parquet file has no columns")}
	}

	cols := make([]table.Column, len(fields))
	units := make([]timestampUnit, len(fields))
	for i, fld := range fields {
		if !fld.Leaf() {
			return nil, &ReadError{Path: path, Err: errors.New("nested parquet schemas are not supported")}
		}
		kind, unit := parquetColumnKind(fld)
		cols[i] = table.Column{Name: fld.Name(), Kind: kind}
		units[i] = unit
	}

	out := &table.Table{Columns: cols, Rows: make([][]any, 0, int(pf.NumRows()))}

	buf := make([]parquet.Row, 1024)
	for _, rg := range pf.RowGroups() {
		rows := rg.Rows()
		for {
			n, err := rows.ReadRows(buf)
			for _, prow := range buf[:n] {
				row := make([]any, len(fields))
				for _, v := range prow {
					ci := v.Column()
					if ci < 0 || ci >= len(fields) {
						continue
					}
					row[ci] = parquetCell(v, cols[ci].Kind, units[ci])
				}
				out.Rows = append(out.Rows, row)
			}
			if err != nil {
				if errors.Is(err, io.EOF) {
					break
				}
				rows.Close()
				return nil, &ReadError{Path: path, Err: err}
			}
		}
		if err := rows.Close(); err != nil {
			return nil, &ReadError{Path: path, Err: err}
		}
	}

	return out, nil
}

type timestampUnit int

const (
	unitNone timestampUnit = iota
	unitMillis
	unitMicros
	unitNanos
)

// parquetColumnKind maps a leaf field's physical+logical type to a table
// kind. Timestamps need the logical unit to decode their int64 value.
func parquetColumnKind(fld parquet.Field) (table.Kind, timestampUnit) {
	if lt := fld.Type().LogicalType(); lt != nil && lt.Timestamp != nil {
		switch {
		case lt.Timestamp.Unit.Millis != nil:
			return table.KindTime, unitMillis
		case lt.Timestamp.Unit.Micros != nil:
			return table.KindTime, unitMicros
		default:
			return table.KindTime, unitNanos
		}
	}

	switch fld.Type().Kind() {
	case parquet.Int32, parquet.Int64:
		return table.KindInt, unitNone
	case parquet.Float, parquet.Double:
		return table.KindFloat, unitNone
	default:
		return table.KindString, unitNone
	}
}

func parquetCell(v parquet.Value, kind table.Kind, unit timestampUnit) any {
	if v.IsNull() {
		return nil
	}

	switch kind {
	case table.KindInt:
		return v.Int64()
	case table.KindFloat:
		return v.Double()
	case table.KindTime:
		n := v.Int64()
		switch unit {
		case unitMillis:
			return time.UnixMilli(n).UTC()
		case unitMicros:
			return time.UnixMicro(n).UTC()
		default:
			return time.Unix(0, n).UTC()
		}
	default:
		return v.String()
	}
}
