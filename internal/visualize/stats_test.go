package visualize

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datapipe/domain/table"
)

func numericTable() *table.Clean {
	return &table.Clean{
		Name:    "sales",
		Columns: []string{"x", "y", "flat", "region"},
		Kinds:   []table.ColumnKind{table.KindNumeric, table.KindNumeric, table.KindNumeric, table.KindText},
		Rows: [][]any{
			{1.0, 2.0, 5.0, "north"},
			{2.0, 4.0, 5.0, "south"},
			{3.0, 6.0, 5.0, "north"},
			{nil, 1.0, 5.0, ""},
			{4.0, 8.0, 5.0, "east"},
		},
	}
}

func TestCorrelationMatrix(t *testing.T) {
	tbl := numericTable()
	m := CorrelationMatrix(tbl, []int{0, 1, 2})

	require.Len(t, m, 3)
	assert.Equal(t, 1.0, m[0][0])
	assert.InDelta(t, 1.0, m[0][1], 1e-12)
	assert.Equal(t, m[0][1], m[1][0])
	assert.True(t, math.IsNaN(m[2][2]))
	assert.True(t, math.IsNaN(m[0][2]))
}

func TestHistogram(t *testing.T) {
	bins := Histogram([]float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 10)
	require.Len(t, bins, 10)
	assert.Equal(t, 0.0, bins[0].Lower)
	assert.Equal(t, 10.0, bins[9].Upper)
	assert.Equal(t, 1, bins[0].Count)
	assert.Equal(t, 2, bins[9].Count) // 9 and the inclusive 10

	total := 0
	for _, b := range bins {
		total += b.Count
	}
	assert.Equal(t, 11, total)
}

func TestHistogramConstantAndEmpty(t *testing.T) {
	bins := Histogram([]float64{3, 3, 3}, 10)
	require.Len(t, bins, 10)
	assert.Equal(t, 2.5, bins[0].Lower)
	assert.Equal(t, 3.5, bins[9].Upper)
	assert.Equal(t, 3, bins[5].Count)

	assert.Nil(t, Histogram(nil, 10))
}

func TestTopCategories(t *testing.T) {
	cats := TopCategories(numericTable(), 3, 2)
	assert.Equal(t, []Category{{"north", 2}, {"east", 1}}, cats)
}

func TestHistogramSkipsNonFinite(t *testing.T) {
	bins := Histogram([]float64{1, 2, math.Inf(1), 3, math.NaN(), math.Inf(-1)}, 4)
	require.Len(t, bins, 4)
	assert.Equal(t, 1.0, bins[0].Lower)
	assert.Equal(t, 3.0, bins[3].Upper)

	total := 0
	for _, b := range bins {
		assert.False(t, math.IsInf(b.Lower, 0) || math.IsNaN(b.Lower))
		assert.False(t, math.IsInf(b.Upper, 0) || math.IsNaN(b.Upper))
		total += b.Count
	}
	assert.Equal(t, 3, total)

	assert.Nil(t, Histogram([]float64{math.Inf(1), math.NaN()}, 4))
}
