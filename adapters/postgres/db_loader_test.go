package postgres

import (
	"context"
	stderrors "errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datapipe/domain/table"
	"datapipe/internal/config"
	"datapipe/internal/errors"
)

func TestCreateTableSQL(t *testing.T) {
	sql := CreateTableSQL("sales", []string{"id", "unit price", "note"}, map[string]string{
		"id":         "INTEGER",
		"unit price": "FLOAT",
	})

	assert.Equal(t, "CREATE TABLE IF NOT EXISTS \"sales\" (\n"+
		"\t\"_id\" SERIAL PRIMARY KEY,\n"+
		"\t\"id\" INTEGER,\n"+
		"\t\"unit price\" FLOAT,\n"+
		"\t\"note\" TEXT\n)", sql)
}

func TestSurrogateKey(t *testing.T) {
	assert.Equal(t, "id", SurrogateKey([]string{"name"}))
	assert.Equal(t, "_id", SurrogateKey([]string{"ID", "name"}))
	assert.Equal(t, "__id", SurrogateKey([]string{"id", "_id"}))
}

func TestConvertValue(t *testing.T) {
	day := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		value   any
		sqlType string
		want    any
	}{
		{"null", nil, "INTEGER", nil},
		{"integer", 42.0, "INTEGER", int64(42)},
		{"bigint", 3e9, "BIGINT", int64(3000000000)},
		{"float", 2.5, "FLOAT", 2.5},
		{"date", day, "DATE", "2024-03-09"},
		{"text", "abc", "VARCHAR(3)", "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ConvertValue(tt.value, tt.sqlType)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConvertValueRejectsFractionForInteger(t *testing.T) {
	_, err := ConvertValue(1.5, "INTEGER")
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}

func TestConvertValueRejectsOutOfRangeForBigint(t *testing.T) {
	for _, v := range []float64{1e20, 9223372036854775808.0, -1e19} {
		_, err := ConvertValue(v, "BIGINT")
		require.Error(t, err, "%v", v)
		assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
	}

	got, err := ConvertValue(-9223372036854775808.0, "BIGINT")
	require.NoError(t, err)
	assert.Equal(t, int64(-9223372036854775808), got)
}

func TestDBErrorKeepsCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := dbError(cause, "failed to create table %s", "sales")

	assert.Equal(t, errors.CodeDatabaseError, errors.GetCode(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "failed to create table sales")
}

func TestGetOrCreateDatabaseNeedsFiles(t *testing.T) {
	_, err := NewDBLoader(config.DatabaseConfig{}).GetOrCreateDatabase(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}

// liveLoader connects to a real server when DB_PASS is set
func liveLoader(t *testing.T) *DBLoader {
	t.Helper()
	if os.Getenv("DB_PASS") == "" {
		t.Skip("Skipping live test: DB_PASS not set")
	}
	cfg, err := config.Load()
	require.NoError(t, err)
	loader := NewDBLoader(cfg.Database)
	t.Cleanup(func() { loader.Close() })
	return loader
}

func TestDBLoaderLive(t *testing.T) {
	loader := liveLoader(t)
	ctx := context.Background()

	dbName, err := loader.GetOrCreateDatabase(ctx, []string{"datapipe_live_test.csv"})
	require.NoError(t, err)
	assert.Equal(t, "datapipe_live_test", dbName)

	name := "live_" + time.Now().Format("20060102150405")
	clean := &table.Clean{
		Name:    name,
		Columns: []string{"n", "day", "label"},
		Kinds:   []table.ColumnKind{table.KindNumeric, table.KindDate, table.KindText},
		Rows: [][]any{
			{1.0, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), "a"},
			{nil, nil, ""},
		},
	}
	types := map[string]string{"n": "INTEGER", "day": "DATE", "label": "VARCHAR(1)"}

	require.NoError(t, loader.CreateTable(ctx, dbName, clean, types))
	t.Cleanup(func() {
		if db, err := loader.DB(ctx, dbName); err == nil {
			db.ExecContext(ctx, "DROP TABLE IF EXISTS "+name)
		}
	})

	n, err := loader.InsertData(ctx, dbName, clean, types)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	// second load is skipped
	n, err = loader.InsertData(ctx, dbName, clean, types)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
}
