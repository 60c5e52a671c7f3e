// Package reader loads a single tabular file into the in-memory table model.
//
// Dispatch is purely by file extension (case-insensitive): .csv, .parquet,
// .xls, .xlsx. Anything else is an UnsupportedFormatError. Parse failures are
// wrapped in a ReadError carrying the cause. Both are per-file conditions:
// callers skip the file and keep going, no partial data is ever returned.
package reader

import (
	"fmt"
	"path/filepath"
	"strings"

	"datapush/internal/table"
)

// UnsupportedFormatError reports a file whose extension is not one of the
// supported tabular formats.
type UnsupportedFormatError struct {
	Path string
	Ext  string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported file format %q for file %s", e.Ext, e.Path)
}

// ReadError reports a file that matched a supported format but could not be
// parsed into a table.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("failed to read file %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// Ext returns the lowercased extension of path, including the dot.
func Ext(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

// Supported reports whether the extension (as returned by Ext) maps to a
// known tabular format.
func Supported(ext string) bool {
	switch ext {
	case ".csv", ".parquet", ".xls", ".xlsx":
		return true
	default:
		return false
	}
}

// TableName derives the destination table name from a file path: the base
// name without its extension.
func TableName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Read loads the file at path into a Table, dispatching on extension.
func Read(path string) (*table.Table, error) {
	ext := Ext(path)
	switch ext {
	case ".csv":
		return readCSV(path)
	case ".parquet":
		return readParquet(path)
	case ".xls", ".xlsx":
		return readExcel(path)
	default:
		return nil, &UnsupportedFormatError{Path: path, Ext: ext}
	}
}
