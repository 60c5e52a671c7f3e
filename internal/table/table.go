// Package table defines the in-memory tabular model shared by the reader,
// schema mapper, and uploader, plus the chunk partitioning used to bound
// per-request payload size.
package table

// Kind is the coarse value type of a column. It drives the destination SQL
// type mapping and nothing else; cell values are stored as any.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindTime
)

// String returns the probe-style label for a kind.
func (k Kind) String() string {
	switch k {
	case KindInt:
		return "integer"
	case KindFloat:
		return "float"
	case KindTime:
		return "timestamp"
	default:
		return "text"
	}
}

// Column is a named, typed column.
type Column struct {
	Name string
	Kind Kind
}

// Table is an ordered sequence of columns and rows. Rows are positional and
// aligned with Columns; missing cells are nil.
//
// A Table is produced once by the reader and treated as read-only afterwards.
type Table struct {
	Columns []Column
	Rows    [][]any
}

// RowCount returns the number of data rows.
func (t *Table) RowCount() int {
	return len(t.Rows)
}

// ColumnNames returns the column names in order.
func (t *Table) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// Chunk is a contiguous row-range view of a Table. Rows aliases the parent
// table's backing array; chunks must not outlive the table.
type Chunk struct {
	// Start and End are the half-open row range [Start, End) in the parent.
	Start, End int
	Rows       [][]any
}

// Size returns the number of rows in the chunk.
func (c Chunk) Size() int {
	return len(c.Rows)
}

// Chunks partitions the table into contiguous, non-overlapping chunks of at
// most size rows, in original row order. The last chunk may be smaller.
//
// Invariants:
//   - number of chunks = ceil(RowCount/size)
//   - chunk sizes sum to RowCount
//   - every chunk except possibly the last has exactly size rows
//
// An empty table yields no chunks. size <= 0 returns nil; callers are
// expected to validate configuration before getting here.
func (t *Table) Chunks(size int) []Chunk {
	if size <= 0 || len(t.Rows) == 0 {
		return nil
	}

	n := len(t.Rows)
	out := make([]Chunk, 0, (n+size-1)/size)
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		out = append(out, Chunk{Start: start, End: end, Rows: t.Rows[start:end]})
	}
	return out
}
