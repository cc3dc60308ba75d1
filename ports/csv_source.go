package ports

import (
	"context"

	"datapipe/domain/table"
)

// CSVSource lists and loads the CSV files a run processes
type CSVSource interface {
	CSVFiles() ([]string, error)
	Path(filename string) string
	LoadCSV(ctx context.Context, filename string) (*table.Raw, error)
}

// VisualizerPort renders charts of a cleaned table and returns the file
// written, or "" when there was nothing to chart
type VisualizerPort interface {
	CreateVisualizations(ctx context.Context, t *table.Clean, name string) (string, error)
}
