package reader

import (
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"

	"datapush/internal/table"
)

type parquetRow struct {
	ID     int64   `parquet:"id"`
	Amount float64 `parquet:"amount"`
	Label  string  `parquet:"label"`
}

func TestReadParquetRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "orders.parquet")

	in := []parquetRow{
		{ID: 1, Amount: 9.5, Label: "first"},
		{ID: 2, Amount: 12.25, Label: "second"},
		{ID: 3, Amount: 0.75, Label: "third"},
	}
	if err := parquet.WriteFile(path, in); err != nil {
		t.Fatalf("write parquet: %v", err)
	}

	tbl, err := Read(path)
	if err != nil {
		t.Fatalf("Read error = %v", err)
	}

	if tbl.RowCount() != len(in) {
		t.Fatalf("RowCount = %d, want %d", tbl.RowCount(), len(in))
	}

	kinds := map[string]table.Kind{}
	idx := map[string]int{}
	for i, c := range tbl.Columns {
		kinds[c.Name] = c.Kind
		idx[c.Name] = i
	}
	if kinds["id"] != table.KindInt {
		t.Fatalf("id kind = %v, want integer", kinds["id"])
	}
	if kinds["amount"] != table.KindFloat {
		t.Fatalf("amount kind = %v, want float", kinds["amount"])
	}
	if kinds["label"] != table.KindString {
		t.Fatalf("label kind = %v, want text", kinds["label"])
	}

	if got := tbl.Rows[1][idx["id"]].(int64); got != 2 {
		t.Fatalf("row 1 id = %v, want 2", got)
	}
	if got := tbl.Rows[2][idx["amount"]].(float64); got != 0.75 {
		t.Fatalf("row 2 amount = %v, want 0.75", got)
	}
	if got := tbl.Rows[0][idx["label"]].(string); got != "first" {
		t.Fatalf("row 0 label = %q, want %q", got, "first")
	}
}
