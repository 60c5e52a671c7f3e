package reader

import (
	"strconv"
	"strings"
	"time"

	"datapush/internal/table"
)

// Kind inference for string-celled sources (CSV and Excel). Parquet carries
// its own schema and does not go through this path.
//
// A column's kind is the most specific kind that every non-empty value in
// the column satisfies, preferring integer over float over timestamp, with
// text as the universal fallback. Columns with no values at all stay text.

var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05.000Z07:00",
	"2006-01-02",
	"02.01.2006 15:04:05",
	"02.01.2006",
}

func parseTimestampLoose(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, lay := range timestampLayouts {
		if t, err := time.Parse(lay, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// inferKinds infers a coarse kind per column from string cells. Rows with a
// mismatched field count have already been dropped by the caller.
func inferKinds(columns int, rows [][]string) []table.Kind {
	out := make([]table.Kind, columns)

	for col := 0; col < columns; col++ {
		var seen bool
		allInt := true
		allFloat := true
		allTS := true

		for _, r := range rows {
			if col >= len(r) {
				continue
			}
			v := strings.TrimSpace(r[col])
			if v == "" {
				continue
			}
			seen = true

			if allInt {
				if _, err := strconv.ParseInt(v, 10, 64); err != nil {
					allInt = false
				}
			}
			if allFloat {
				if _, err := strconv.ParseFloat(v, 64); err != nil {
					allFloat = false
				}
			}
			if allTS {
				if _, ok := parseTimestampLoose(v); !ok {
					allTS = false
				}
			}
		}

		if !seen {
			out[col] = table.KindString
			continue
		}
		switch {
		case allInt:
			out[col] = table.KindInt
		case allFloat:
			out[col] = table.KindFloat
		case allTS:
			out[col] = table.KindTime
		default:
			out[col] = table.KindString
		}
	}

	return out
}

// convertCell converts a raw string cell to the typed value for kind.
// Empty cells become nil. Values that no longer parse (possible when a file
// lies about itself mid-column) degrade to the raw string rather than fail.
func convertCell(raw string, kind table.Kind) any {
	v := strings.TrimSpace(raw)
	if v == "" {
		return nil
	}

	switch kind {
	case table.KindInt:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	case table.KindFloat:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	case table.KindTime:
		if ts, ok := parseTimestampLoose(v); ok {
			return ts
		}
	}
	return v
}

// buildTable assembles a typed Table from a header row and string rows.
func buildTable(headers []string, rows [][]string) *table.Table {
	kinds := inferKinds(len(headers), rows)

	cols := make([]table.Column, len(headers))
	for i, h := range headers {
		cols[i] = table.Column{Name: strings.TrimSpace(h), Kind: kinds[i]}
	}

	out := &table.Table{Columns: cols, Rows: make([][]any, 0, len(rows))}
	for _, r := range rows {
		row := make([]any, len(headers))
		for i := range headers {
			if i < len(r) {
				row[i] = convertCell(r[i], kinds[i])
			}
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}
