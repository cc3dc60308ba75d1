package profiling

import (
	"unicode/utf8"

	"datapipe/domain/profile"
)

// Accumulator is the running per-column state for one profiling call. It is
// owned by a single caller and never shared across files.
type Accumulator struct {
	order   []string
	columns map[string]*profile.ColumnProfile
	chunks  int
}

// NewAccumulator seeds an accumulator with the header columns, so a file
// with no data rows still reports every column.
func NewAccumulator(columns []string) *Accumulator {
	acc := &Accumulator{columns: make(map[string]*profile.ColumnProfile)}
	for _, c := range columns {
		acc.column(c)
	}
	return acc
}

func (a *Accumulator) column(name string) *profile.ColumnProfile {
	col, ok := a.columns[name]
	if !ok {
		col = profile.NewColumnProfile(name)
		a.columns[name] = col
		a.order = append(a.order, name)
	}
	return col
}

// Chunks is the number of chunks folded in
func (a *Accumulator) Chunks() int {
	return a.chunks
}

// Fold merges one chunk into the accumulator. A column seen for the first
// time here only counts rows from this chunk onwards.
func (a *Accumulator) Fold(chunk *Chunk) {
	a.chunks++
	for i, name := range chunk.Columns {
		foldColumn(a.column(name), chunk.Rows, i)
	}
}

func foldColumn(col *profile.ColumnProfile, rows [][]string, idx int) {
	col.TotalCount += int64(len(rows))

	var (
		chunkMin, chunkMax, chunkSum float64
		chunkValues                  int64
		numericOK                    = col.IsNumeric()
	)

	for _, row := range rows {
		if idx >= len(row) || IsNull(row[idx]) {
			col.NullCount++
			continue
		}
		v := row[idx]

		col.Distinct[v] = struct{}{}
		if n := utf8.RuneCountInString(v); n > col.MaxLength {
			col.MaxLength = n
		}
		if col.DateCandidate {
			if _, ok := ParseDate(v); !ok {
				col.DateCandidate = false
			}
		}

		if !numericOK {
			continue
		}
		f, ok := ParseNumber(v)
		if !ok {
			numericOK = false
			continue
		}
		if chunkValues == 0 || f < chunkMin {
			chunkMin = f
		}
		if chunkValues == 0 || f > chunkMax {
			chunkMax = f
		}
		chunkSum += f
		chunkValues++
	}

	if !col.IsNumeric() {
		return
	}
	if !numericOK {
		col.MarkNonNumeric()
		return
	}
	if chunkValues == 0 {
		return
	}

	num := col.Numeric
	if num.Count == 0 || chunkMin < num.Min {
		num.Min = chunkMin
	}
	if num.Count == 0 || chunkMax > num.Max {
		num.Max = chunkMax
	}
	num.Sum += chunkSum
	num.Count += chunkValues
}
