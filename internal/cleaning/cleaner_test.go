package cleaning

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datapipe/domain/profile"
	"datapipe/domain/table"
	"datapipe/internal/profiling"
)

func profileOf(t *testing.T, content string) *profile.Profile {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	p, err := profiling.NewDataProfiler(10, 1024).Profile(context.Background(), path)
	require.NoError(t, err)
	return p
}

func TestCleanData(t *testing.T) {
	content := "id,price,day,name\n1,2.5,2024-01-02,alpha\n2,,2024-01-03,\n3,4,,gamma\n"
	p := profileOf(t, content)

	raw := &table.Raw{
		Name:    "data",
		Columns: []string{"id", "price", "day", "name", "extra"},
		Rows: [][]string{
			{"1", "2.5", "2024-01-02", "alpha", "x"},
			{"2", "", "2024-01-03", ""},
			{"3", "4", "", "gamma", "z"},
		},
	}

	cleaned, err := NewDataCleaner(0).CleanData(raw, p)
	require.NoError(t, err)

	assert.Equal(t, []table.ColumnKind{
		table.KindNumeric, table.KindNumeric, table.KindDate, table.KindText, table.KindText,
	}, cleaned.Kinds)

	assert.Equal(t, 1.0, cleaned.Rows[0][0])
	assert.Nil(t, cleaned.Rows[1][1])
	assert.Equal(t, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), cleaned.Rows[1][2])
	assert.Nil(t, cleaned.Rows[2][2])
	assert.Equal(t, "", cleaned.Rows[1][3])
	assert.Equal(t, "", cleaned.Rows[1][4])
	assert.Equal(t, "z", cleaned.Rows[2][4])
}

func TestCleanDataCoercionFailureIsNull(t *testing.T) {
	p := profileOf(t, "n\n1\n2\n")
	raw := &table.Raw{Name: "data", Columns: []string{"n"}, Rows: [][]string{{"1"}, {"oops"}}}

	cleaned, err := NewDataCleaner(50).CleanData(raw, p)
	require.NoError(t, err)
	assert.Equal(t, 1.0, cleaned.Rows[0][0])
	assert.Nil(t, cleaned.Rows[1][0])
}

func TestCleanDataRejectsEmptyProfile(t *testing.T) {
	raw := &table.Raw{Name: "data", Columns: []string{"a"}}
	_, err := NewDataCleaner(50).CleanData(raw, profile.Empty())
	assert.Error(t, err)

	_, err = NewDataCleaner(50).CleanData(nil, profile.Empty())
	assert.Error(t, err)
}

func TestSQLDataTypes(t *testing.T) {
	content := "small,big,ratio,day,label,blank\n" +
		"1,3000000000,0.5,2024-01-02,ab,\n" +
		"2,1,1,2024-02-03,abcdef,\n"
	types := SQLDataTypes(profileOf(t, content))

	assert.Equal(t, map[string]string{
		"small": "INTEGER",
		"big":   "BIGINT",
		"ratio": "FLOAT",
		"day":   "DATE",
		"label": "VARCHAR(6)",
		"blank": "INTEGER",
	}, types)
}

func TestSQLDataTypesBeyondInt64(t *testing.T) {
	content := "huge,edge,neg\n" +
		"1,9223372036854775807,-9223372036854775000\n" +
		"100000000000000000000,1,1\n"
	types := SQLDataTypes(profileOf(t, content))

	assert.Equal(t, "FLOAT", types["huge"])
	// 2^63-1 parses to the float 2^63, which no longer fits in int64
	assert.Equal(t, "FLOAT", types["edge"])
	assert.Equal(t, "BIGINT", types["neg"])
}

func TestIsIntegerType(t *testing.T) {
	assert.True(t, IsIntegerType("INTEGER"))
	assert.True(t, IsIntegerType("bigint"))
	assert.False(t, IsIntegerType("FLOAT"))
	assert.False(t, IsIntegerType("VARCHAR(3)"))
}
