package reader

import (
	"encoding/csv"
	"errors"
	"io"
	"os"

	"datapush/internal/table"
)

// readCSV parses a whole CSV file into a typed table. The first record is
// the header. Records whose field count differs from the header are skipped;
// push is best-effort per file, a handful of ragged rows must not sink it.
func readCSV(path string) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ReadError{Path: path, Err: err}
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // validated manually against the header
	r.LazyQuotes = true

	headers, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &ReadError{Path: path, Err: errors.New("empty file")}
		}
		return nil, &ReadError{Path: path, Err: err}
	}

	rows := make([][]string, 0, 1024)
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, &ReadError{Path: path, Err: err}
		}
		if len(rec) != len(headers) {
			continue
		}
		row := make([]string, len(rec))
		copy(row, rec)
		rows = append(rows, row)
	}

	return buildTable(headers, rows), nil
}
