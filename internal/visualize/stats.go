package visualize

import (
	"math"
	"sort"

	"datapipe/domain/table"

	"gonum.org/v1/gonum/stat"
)

// CorrelationMatrix computes the Pearson correlation of every pair of numeric
// columns, using the rows where both values are present. Entries are NaN when
// fewer than two such rows exist or a column is constant over them.
func CorrelationMatrix(t *table.Clean, cols []int) [][]float64 {
	matrix := make([][]float64, len(cols))
	for i := range matrix {
		matrix[i] = make([]float64, len(cols))
	}

	for i, ci := range cols {
		for j := i; j < len(cols); j++ {
			cj := cols[j]
			if i == j {
				matrix[i][j] = selfCorrelation(t.Float64s(ci))
				continue
			}
			x, y := pairwiseComplete(t, ci, cj)
			r := math.NaN()
			if len(x) > 1 {
				r = stat.Correlation(x, y, nil)
			}
			matrix[i][j] = r
			matrix[j][i] = r
		}
	}
	return matrix
}

func selfCorrelation(values []float64) float64 {
	if len(values) < 2 || stat.Variance(values, nil) == 0 {
		return math.NaN()
	}
	return 1
}

func pairwiseComplete(t *table.Clean, a, b int) ([]float64, []float64) {
	var x, y []float64
	for _, row := range t.Rows {
		fa, okA := row[a].(float64)
		fb, okB := row[b].(float64)
		if okA && okB {
			x = append(x, fa)
			y = append(y, fb)
		}
	}
	return x, y
}

// Bin is one bar of a histogram; every bin but the last is half-open
type Bin struct {
	Lower float64
	Upper float64
	Count int
}

// Histogram splits values into equal-width bins between their minimum and
// maximum. A constant column is spread over [v-0.5, v+0.5].
func Histogram(values []float64, bins int) []Bin {
	if bins <= 0 {
		return nil
	}

	// Infinite and NaN values cannot be placed in a bin
	finite := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsInf(v, 0) && !math.IsNaN(v) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 {
		return nil
	}
	values = finite

	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo == hi {
		lo -= 0.5
		hi += 0.5
	}

	width := (hi - lo) / float64(bins)
	out := make([]Bin, bins)
	for i := range out {
		out[i].Lower = lo + float64(i)*width
		out[i].Upper = lo + float64(i+1)*width
	}
	out[bins-1].Upper = hi

	for _, v := range values {
		idx := int((v - lo) / width)
		if idx >= bins {
			idx = bins - 1
		}
		if idx < 0 {
			idx = 0
		}
		out[idx].Count++
	}
	return out
}

// Category is a distinct text value and how often it occurs
type Category struct {
	Value string
	Count int
}

// TopCategories returns the n most frequent non-blank values of column c,
// most frequent first with ties broken alphabetically
func TopCategories(t *table.Clean, c, n int) []Category {
	counts := make(map[string]int)
	for _, row := range t.Rows {
		s, ok := row[c].(string)
		if !ok || s == "" {
			continue
		}
		counts[s]++
	}

	out := make([]Category, 0, len(counts))
	for v, n := range counts {
		out = append(out, Category{Value: v, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})

	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
