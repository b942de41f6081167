// Package dataset loads claim and policy records from CSV files.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
)

// Row represents a single CSV row with column name to value mapping.
type Row map[string]string

// ReadCSV reads CSV rows from r. The first record is the header row.
func ReadCSV(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("empty input (no header row)")
	}

	headers := records[0]
	rows := make([]Row, 0, len(records)-1)

	for i, record := range records[1:] {
		if len(record) != len(headers) {
			return nil, fmt.Errorf("row %d has %d columns, expected %d", i+2, len(record), len(headers))
		}
		row := make(Row, len(headers))
		for j, h := range headers {
			row[h] = record[j]
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// SelectRange returns records start through end (1-based, inclusive),
// clamped to the records available. Record 1 is the first data row.
func SelectRange[T any](rows []T, start, end int) ([]T, error) {
	if start < 1 {
		return nil, fmt.Errorf("range start must be >= 1, got %d", start)
	}
	if end < start {
		return nil, fmt.Errorf("range end (%d) must be >= start (%d)", end, start)
	}

	if end > len(rows) {
		end = len(rows)
	}

	if start > len(rows) {
		return []T{}, nil
	}

	return rows[start-1 : end], nil
}
