package reader

import (
	"errors"

	"github.com/xuri/excelize/v2"

	"datapush/internal/table"
)

// readExcel parses the first sheet of an XLS/XLSX workbook. The first row is
// the header; remaining rows go through the same kind inference as CSV since
// excelize surfaces cells as strings.
func readExcel(path string) (*table.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &ReadError{Path: path, Err: err}
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, &ReadError{Path: path, Err: errors.New("workbook has no sheets")}
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, &ReadError{Path: path, Err: err}
	}
	if len(rows) == 0 {
		return nil, &ReadError{Path: path, Err: errors.New("empty sheet")}
	}

	headers := rows[0]
	body := make([][]string, 0, len(rows)-1)
	for _, r := range rows[1:] {
		if len(r) == 0 {
			continue
		}
		// excelize truncates trailing empty cells; pad to header width so
		// row alignment survives.
		if len(r) < len(headers) {
			padded := make([]string, len(headers))
			copy(padded, r)
			r = padded
		}
		if len(r) > len(headers) {
			r = r[:len(headers)]
		}
		body = append(body, r)
	}

	return buildTable(headers, body), nil
}
