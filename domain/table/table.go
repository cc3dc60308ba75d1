// Package table holds in-memory tabular data as it moves from the CSV
// loader through cleaning into the database and chart stages.
package table

import (
	"fmt"
	"strings"
)

// Raw is a CSV file read into memory as text
type Raw struct {
	Name    string
	Columns []string
	Rows    [][]string
}

// Cell returns the raw text at row r, column c; short rows read as ""
func (t *Raw) Cell(r, c int) string {
	row := t.Rows[r]
	if c >= len(row) {
		return ""
	}
	return row[c]
}

// ColumnKind is the storage kind a column was cleaned to
type ColumnKind string

const (
	KindNumeric ColumnKind = "numeric"
	KindDate    ColumnKind = "date"
	KindText    ColumnKind = "text"
)

// Clean is a table whose cells have been coerced per column. Numeric cells
// are float64, date cells time.Time, text cells string; nil is NULL.
type Clean struct {
	Name    string
	Columns []string
	Kinds   []ColumnKind
	Rows    [][]any
}

// Index returns the position of a column, or -1
func (t *Clean) Index(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// ColumnsOfKind returns the positions of every column of the given kind
func (t *Clean) ColumnsOfKind(kind ColumnKind) []int {
	var out []int
	for i, k := range t.Kinds {
		if k == kind {
			out = append(out, i)
		}
	}
	return out
}

// Float64s returns the non-null numeric values of column c
func (t *Clean) Float64s(c int) []float64 {
	values := make([]float64, 0, len(t.Rows))
	for _, row := range t.Rows {
		if f, ok := row[c].(float64); ok {
			values = append(values, f)
		}
	}
	return values
}

const utf8BOM = "\uFEFF"

// NormalizeHeader strips a BOM, names blank columns "Unnamed: i" and
// de-duplicates repeated names by suffixing ".1", ".2", ...
func NormalizeHeader(raw []string) []string {
	headers := make([]string, len(raw))
	used := make(map[string]bool, len(raw))
	counts := make(map[string]int, len(raw))
	for i, h := range raw {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}

		name := h
		for used[name] {
			counts[h]++
			name = fmt.Sprintf("%s.%d", h, counts[h])
		}
		used[name] = true
		headers[i] = name
	}
	return headers
}
