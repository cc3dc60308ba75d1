// Package cleaning coerces loaded CSV tables to the column types found by
// the profiler and maps those types onto SQL column definitions.
package cleaning

import (
	"fmt"
	"log"
	"math"
	"strings"

	"datapipe/domain/profile"
	"datapipe/domain/table"
	"datapipe/internal/errors"
	"datapipe/internal/profiling"
)

// DefaultHighNullThreshold is the null percentage above which a column is
// flagged as a candidate for dropping
const DefaultHighNullThreshold = 50.0

// DataCleaner cleans raw tables using a finalized profile
type DataCleaner struct {
	HighNullThreshold float64
}

// NewDataCleaner creates a cleaner; a non-positive threshold uses the default
func NewDataCleaner(highNullThreshold float64) *DataCleaner {
	if highNullThreshold <= 0 {
		highNullThreshold = DefaultHighNullThreshold
	}
	return &DataCleaner{HighNullThreshold: highNullThreshold}
}

// CleanData converts every profiled column of raw to its cleaned kind.
// Numeric and date cells that fail to coerce become NULL; text nulls become
// the empty string. Columns missing from the profile are kept as text.
func (c *DataCleaner) CleanData(raw *table.Raw, p *profile.Profile) (*table.Clean, error) {
	if raw == nil {
		return nil, errors.InvalidInput("no table to clean")
	}
	if p.IsEmpty() {
		return nil, errors.InvalidInput(fmt.Sprintf("no profile for table %s", raw.Name))
	}

	cleaned := &table.Clean{
		Name:    raw.Name,
		Columns: append([]string(nil), raw.Columns...),
		Kinds:   make([]table.ColumnKind, len(raw.Columns)),
		Rows:    make([][]any, len(raw.Rows)),
	}
	for r := range cleaned.Rows {
		cleaned.Rows[r] = make([]any, len(raw.Columns))
	}

	for i, name := range raw.Columns {
		kind := table.KindText
		if col, ok := p.Column(name); ok {
			c.warnHighNulls(col)
			kind = KindOf(col)
		}
		cleaned.Kinds[i] = kind

		for r := range raw.Rows {
			cleaned.Rows[r][i] = cleanCell(raw.Cell(r, i), kind)
		}
	}

	return cleaned, nil
}

func (c *DataCleaner) warnHighNulls(col *profile.ColumnProfile) {
	if col.NullPercentage == nil || *col.NullPercentage <= c.HighNullThreshold {
		return
	}
	log.Printf("[DataCleaner] Column %s has %.2f%% null values. Consider dropping this column.",
		col.Name, *col.NullPercentage)
}

// KindOf maps a finalized column profile to the kind it is cleaned to
func KindOf(col *profile.ColumnProfile) table.ColumnKind {
	switch {
	case col.IsNumeric():
		return table.KindNumeric
	case col.DateDetected:
		return table.KindDate
	default:
		return table.KindText
	}
}

func cleanCell(raw string, kind table.ColumnKind) any {
	switch kind {
	case table.KindNumeric:
		if profiling.IsNull(raw) {
			return nil
		}
		if v, ok := profiling.ParseNumber(raw); ok {
			return v
		}
		return nil
	case table.KindDate:
		if profiling.IsNull(raw) {
			return nil
		}
		if t, ok := profiling.ParseDate(raw); ok {
			return t
		}
		return nil
	default:
		if profiling.IsNull(raw) {
			return ""
		}
		return raw
	}
}

// SQLDataTypes maps every profiled column to a Postgres column type.
// Numeric columns whose distinct values are all whole numbers become
// INTEGER, or BIGINT when a value falls outside the 32-bit range.
func SQLDataTypes(p *profile.Profile) map[string]string {
	types := make(map[string]string)
	if p == nil {
		return types
	}

	for _, col := range p.FullProfile {
		switch KindOf(col) {
		case table.KindNumeric:
			types[col.Name] = numericType(col)
		case table.KindDate:
			types[col.Name] = "DATE"
		default:
			types[col.Name] = fmt.Sprintf("VARCHAR(%d)", max(col.MaxLength, 1))
		}
	}
	return types
}

// maxInt64Float is 2^63, the first float64 that no longer converts to int64
const maxInt64Float = 1 << 63

func numericType(col *profile.ColumnProfile) string {
	wide := false
	for v := range col.Distinct {
		f, ok := profiling.ParseNumber(v)
		if !ok {
			continue
		}
		// Whole numbers outside the int64 range only fit a FLOAT column
		if math.IsInf(f, 0) || math.IsNaN(f) || f != math.Trunc(f) || math.Abs(f) >= maxInt64Float {
			return "FLOAT"
		}
		if f > math.MaxInt32 || f < math.MinInt32 {
			wide = true
		}
	}
	if wide {
		return "BIGINT"
	}
	return "INTEGER"
}

// IsIntegerType reports whether a SQL type produced by SQLDataTypes holds
// whole numbers
func IsIntegerType(sqlType string) bool {
	switch strings.ToUpper(sqlType) {
	case "INTEGER", "BIGINT":
		return true
	}
	return false
}
