package csvsource

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datapipe/internal/errors"
)

func TestCSVFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.csv", "a.csv", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x\n1\n"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "dir.csv"), 0o755))

	files, err := NewCSVLoader(dir).CSVFiles()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.csv", "b.csv"}, files)
}

func TestLoadCSV(t *testing.T) {
	dir := t.TempDir()
	content := "id,name,id\n1,\"Smith, J\",9\n2,Lee\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "People.csv"), []byte(content), 0o644))

	raw, err := NewCSVLoader(dir).LoadCSV(context.Background(), "People.csv")
	require.NoError(t, err)

	assert.Equal(t, "people", raw.Name)
	assert.Equal(t, []string{"id", "name", "id.1"}, raw.Columns)
	require.Len(t, raw.Rows, 2)
	assert.Equal(t, "Smith, J", raw.Cell(0, 1))
	assert.Equal(t, "", raw.Cell(1, 2))
}

func TestLoadCSVErrors(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.csv"), nil, 0o644))
	loader := NewCSVLoader(dir)

	_, err := loader.LoadCSV(context.Background(), "empty.csv")
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))

	_, err = loader.LoadCSV(context.Background(), "missing.csv")
	assert.Error(t, err)
}

func TestTableName(t *testing.T) {
	assert.Equal(t, "sales_2024", TableName("Sales_2024.csv"))
	assert.Equal(t, "data", TableName("/tmp/x/DATA.CSV"))
}
