package csvsource

import (
	"context"
	"encoding/csv"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"datapipe/domain/table"
	"datapipe/internal/errors"
)

// CSVLoader lists and loads the CSV files of a data directory
type CSVLoader struct {
	DataDir string
}

// NewCSVLoader creates a loader for dataDir
func NewCSVLoader(dataDir string) *CSVLoader {
	return &CSVLoader{DataDir: dataDir}
}

// CSVFiles returns the names of the *.csv files in the data directory,
// sorted
func (l *CSVLoader) CSVFiles() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(l.DataDir, "*.csv"))
	if err != nil {
		return nil, errors.Wrap(err, "failed to list CSV files")
	}

	names := make([]string, 0, len(matches))
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || info.IsDir() {
			continue
		}
		names = append(names, filepath.Base(m))
	}
	sort.Strings(names)
	return names, nil
}

// Path returns the full path of a file in the data directory
func (l *CSVLoader) Path(filename string) string {
	return filepath.Join(l.DataDir, filename)
}

// LoadCSV reads a whole CSV file into memory. The header is normalized the
// same way the profiler normalizes it, so column names line up.
func (l *CSVLoader) LoadCSV(ctx context.Context, filename string) (*table.Raw, error) {
	path := l.Path(filename)

	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", filename)
	}
	defer file.Close()

	readStart := time.Now()
	cr := csv.NewReader(file)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.InvalidInput(filename + " has no columns to parse")
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read header of %s", filename)
	}

	raw := &table.Raw{
		Name:    TableName(filename),
		Columns: table.NormalizeHeader(header),
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read %s", filename)
		}
		raw.Rows = append(raw.Rows, rec)
	}

	log.Printf("[CSVLoader] Successfully loaded %s: %d rows in %.2fms",
		filename, len(raw.Rows), float64(time.Since(readStart).Nanoseconds())/1e6)
	return raw, nil
}

// TableName derives the table (and database) name for a CSV file: its
// lower-cased stem
func TableName(filename string) string {
	base := filepath.Base(filename)
	return strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))
}
