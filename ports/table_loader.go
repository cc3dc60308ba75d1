package ports

import (
	"context"

	"datapipe/domain/table"
)

// TableLoader creates databases and tables and bulk loads cleaned rows
type TableLoader interface {
	GetOrCreateDatabase(ctx context.Context, csvFiles []string) (string, error)
	CreateTable(ctx context.Context, dbName string, t *table.Clean, sqlTypes map[string]string) error
	InsertData(ctx context.Context, dbName string, t *table.Clean, sqlTypes map[string]string) (int64, error)
}
