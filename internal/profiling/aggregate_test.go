package profiling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rows(values ...string) [][]string {
	out := make([][]string, len(values))
	for i, v := range values {
		out[i] = []string{v}
	}
	return out
}

func TestFoldNumericFlipIsPermanent(t *testing.T) {
	acc := NewAccumulator([]string{"x"})
	acc.Fold(&Chunk{Columns: []string{"x"}, Rows: rows("1", "2", "3")})

	col := acc.columns["x"]
	require.True(t, col.IsNumeric())

	acc.Fold(&Chunk{Columns: []string{"x"}, Rows: rows("4", "oops")})
	assert.False(t, col.IsNumeric())

	acc.Fold(&Chunk{Columns: []string{"x"}, Rows: rows("5", "6")})
	assert.False(t, col.IsNumeric())

	final := acc.Finalize()
	require.Len(t, final, 1)
	assert.Nil(t, final[0].Mean)
	_, ok := final[0].Min()
	assert.False(t, ok)
	assert.EqualValues(t, 7, final[0].TotalCount)
	assert.Len(t, final[0].Distinct, 7)
}

func TestFoldMinMaxAcrossChunks(t *testing.T) {
	acc := NewAccumulator([]string{"x"})
	acc.Fold(&Chunk{Columns: []string{"x"}, Rows: rows("10", "-2.5")})
	acc.Fold(&Chunk{Columns: []string{"x"}, Rows: rows("NA", "")})
	acc.Fold(&Chunk{Columns: []string{"x"}, Rows: rows("40", "3")})

	col := acc.Finalize()[0]
	min, _ := col.Min()
	max, _ := col.Max()
	assert.Equal(t, -2.5, min)
	assert.Equal(t, 40.0, max)
	assert.EqualValues(t, 2, col.NullCount)
	require.NotNil(t, col.Mean)
	assert.InDelta(t, 50.5/4, *col.Mean, 1e-12)
	assert.InDelta(t, 100.0/3, *col.NullPercentage, 1e-9)
}

func TestFoldLateColumnStartsFresh(t *testing.T) {
	acc := NewAccumulator([]string{"a"})
	acc.Fold(&Chunk{Columns: []string{"a"}, Rows: rows("1", "2")})
	acc.Fold(&Chunk{Columns: []string{"a", "b"}, Rows: [][]string{{"3", "x"}}})

	final := acc.Finalize()
	require.Len(t, final, 2)
	assert.Equal(t, "a", final[0].Name)
	assert.EqualValues(t, 3, final[0].TotalCount)
	assert.Equal(t, "b", final[1].Name)
	assert.EqualValues(t, 1, final[1].TotalCount)
}

func TestFoldShortRowsCountAsNull(t *testing.T) {
	acc := NewAccumulator([]string{"a", "b"})
	acc.Fold(&Chunk{Columns: []string{"a", "b"}, Rows: [][]string{{"1", "2"}, {"3"}}})

	b := acc.Finalize()[1]
	assert.EqualValues(t, 2, b.TotalCount)
	assert.EqualValues(t, 1, b.NullCount)
}

func TestFinalizeAllNullNumericColumn(t *testing.T) {
	acc := NewAccumulator([]string{"x"})
	acc.Fold(&Chunk{Columns: []string{"x"}, Rows: rows("", "null")})

	col := acc.Finalize()[0]
	assert.True(t, col.IsNumeric())
	assert.Nil(t, col.Mean)
	require.NotNil(t, col.NullPercentage)
	assert.Equal(t, 100.0, *col.NullPercentage)
	assert.False(t, col.DateDetected)
}

func TestFinalizeDetectsDates(t *testing.T) {
	acc := NewAccumulator([]string{"when", "mixed"})
	acc.Fold(&Chunk{Columns: []string{"when", "mixed"}, Rows: [][]string{
		{"2024-01-02", "2024-01-02"},
		{"2024-02-03", "soon"},
		{"", ""},
	}})

	final := acc.Finalize()
	assert.True(t, final[0].DateDetected)
	assert.False(t, final[1].DateDetected)
	assert.Equal(t, 10, final[0].MaxLength)
}
