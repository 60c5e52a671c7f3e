// Package schema derives the destination table schema from an in-memory
// table: one (name, SQL type) pair per column, with a fixed type-mapping
// policy and a safe VARCHAR fallback.
package schema

import (
	"fmt"
	"strings"

	"datapush/internal/table"
)

// SQL type tags understood by the destination platform's DDL.
const (
	TypeInt       = "INT"
	TypeFloat     = "FLOAT"
	TypeTimestamp = "TIMESTAMP"
	TypeVarchar   = "VARCHAR(2000)"
)

// ColumnSchema is one destination column: sanitized name plus SQL type tag.
// Derived once per file, never mutated afterwards.
type ColumnSchema struct {
	Name    string
	SQLType string
}

// CollisionError reports two or more source columns that collapse onto the
// same sanitized name. Silently overwriting one with the other would drop a
// whole column of data, so the file is rejected instead.
type CollisionError struct {
	Name    string
	Sources []string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("column name collision after sanitization: %q from columns %s",
		e.Name, strings.Join(e.Sources, ", "))
}

// SanitizeName rewrites embedded spaces to underscores. No other rewriting
// is applied; the destination accepts quoted identifiers.
func SanitizeName(name string) string {
	return strings.ReplaceAll(name, " ", "_")
}

// SQLType maps a column kind to its destination SQL type tag.
//
// Policy, in priority order: integer columns map to INT, floating-point to
// FLOAT, timestamp/datetime to TIMESTAMP, and everything else to
// VARCHAR(2000) as the universal fallback (chosen for safety over
// precision).
func SQLType(k table.Kind) string {
	switch k {
	case table.KindInt:
		return TypeInt
	case table.KindFloat:
		return TypeFloat
	case table.KindTime:
		return TypeTimestamp
	default:
		return TypeVarchar
	}
}

// Map derives the ordered destination schema for a table.
//
// Errors:
//   - *CollisionError when sanitization collapses two source columns onto
//     the same name. Callers treat this like a read failure and skip the
//     file.
func Map(t *table.Table) ([]ColumnSchema, error) {
	out := make([]ColumnSchema, 0, len(t.Columns))
	seen := make(map[string][]string, len(t.Columns))

	for _, c := range t.Columns {
		name := SanitizeName(c.Name)
		seen[name] = append(seen[name], c.Name)
		out = append(out, ColumnSchema{Name: name, SQLType: SQLType(c.Kind)})
	}

	for name, sources := range seen {
		if len(sources) > 1 {
			return nil, &CollisionError{Name: name, Sources: sources}
		}
	}

	return out, nil
}

// Names returns the column names of a derived schema, in order. This is the
// column order used for every upload payload.
func Names(cols []ColumnSchema) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Name
	}
	return out
}
