package schema

import (
	"errors"
	"testing"

	"datapush/internal/table"
)

// TestMapTypePolicy verifies the fixed kind → SQL type mapping, including
// the VARCHAR(2000) universal fallback.
func TestMapTypePolicy(t *testing.T) {
	t.Parallel()

	tbl := &table.Table{Columns: []table.Column{
		{Name: "id", Kind: table.KindInt},
		{Name: "amount", Kind: table.KindFloat},
		{Name: "ts", Kind: table.KindTime},
		{Name: "note", Kind: table.KindString},
	}}

	cols, err := Map(tbl)
	if err != nil {
		t.Fatalf("Map error = %v", err)
	}

	want := []ColumnSchema{
		{Name: "id", SQLType: "INT"},
		{Name: "amount", SQLType: "FLOAT"},
		{Name: "ts", SQLType: "TIMESTAMP"},
		{Name: "note", SQLType: "VARCHAR(2000)"},
	}
	if len(cols) != len(want) {
		t.Fatalf("got %d columns, want %d", len(cols), len(want))
	}
	for i := range want {
		if cols[i] != want[i] {
			t.Fatalf("column %d = %+v, want %+v", i, cols[i], want[i])
		}
	}
}

func TestSanitizeName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"order id", "order_id"},
		{"a b c", "a_b_c"},
		{"already_clean", "already_clean"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := SanitizeName(tt.in); got != tt.want {
			t.Fatalf("SanitizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// TestMapDetectsCollisions verifies that two source columns collapsing onto
// the same sanitized name reject the table instead of silently overwriting.
func TestMapDetectsCollisions(t *testing.T) {
	t.Parallel()

	tbl := &table.Table{Columns: []table.Column{
		{Name: "order id", Kind: table.KindInt},
		{Name: "order_id", Kind: table.KindString},
	}}

	_, err := Map(tbl)
	var ce *CollisionError
	if !errors.As(err, &ce) {
		t.Fatalf("Map error = %v, want CollisionError", err)
	}
	if ce.Name != "order_id" {
		t.Fatalf("CollisionError.Name = %q, want order_id", ce.Name)
	}
	if len(ce.Sources) != 2 {
		t.Fatalf("CollisionError.Sources = %v, want both offenders", ce.Sources)
	}
}

func TestMapPreservesOrder(t *testing.T) {
	t.Parallel()

	tbl := &table.Table{Columns: []table.Column{
		{Name: "z", Kind: table.KindString},
		{Name: "a", Kind: table.KindString},
		{Name: "m", Kind: table.KindString},
	}}

	cols, err := Map(tbl)
	if err != nil {
		t.Fatalf("Map error = %v", err)
	}
	got := Names(cols)
	want := []string{"z", "a", "m"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Names()[%d] = %q, want %q (order must match source)", i, got[i], want[i])
		}
	}
}
