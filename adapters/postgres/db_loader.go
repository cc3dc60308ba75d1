package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"math"
	"strings"
	"sync"
	"time"

	"datapipe/adapters/csvsource"
	"datapipe/domain/table"
	"datapipe/internal/cleaning"
	"datapipe/internal/config"
	"datapipe/internal/errors"
	"datapipe/internal/migration"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// DBLoader creates the per-run database and loads cleaned tables into it.
// Connections are opened lazily and cached per database name.
type DBLoader struct {
	cfg        config.DatabaseConfig
	migrations migration.Migrator

	mu    sync.Mutex
	conns map[string]*sqlx.DB
}

// NewDBLoader creates a loader for the server described by cfg
func NewDBLoader(cfg config.DatabaseConfig) *DBLoader {
	return &DBLoader{
		cfg:        cfg,
		migrations: migration.NewRunner(),
		conns:      make(map[string]*sqlx.DB),
	}
}

// DB returns a pooled connection to the named database
func (l *DBLoader) DB(ctx context.Context, dbName string) (*sqlx.DB, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if db, ok := l.conns[dbName]; ok {
		return db, nil
	}

	db, err := sqlx.ConnectContext(ctx, "postgres", l.cfg.DSN(dbName))
	if err != nil {
		return nil, dbError(err, "failed to connect to database %s", dbName)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	l.conns[dbName] = db
	return db, nil
}

// Close closes every cached connection pool
func (l *DBLoader) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var firstErr error
	for name, db := range l.conns {
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(l.conns, name)
	}
	return firstErr
}

// GetOrCreateDatabase returns the first database named after one of the CSV
// files that already exists. When none does, a database named after the
// first file is created. The bookkeeping tables are migrated either way.
func (l *DBLoader) GetOrCreateDatabase(ctx context.Context, csvFiles []string) (string, error) {
	if len(csvFiles) == 0 {
		return "", errors.InvalidInput("no CSV files to name a database after")
	}

	admin, err := l.DB(ctx, l.cfg.AdminName)
	if err != nil {
		return "", err
	}

	dbName := ""
	for _, f := range csvFiles {
		name := csvsource.TableName(f)
		exists, err := databaseExists(ctx, admin, name)
		if err != nil {
			return "", err
		}
		if exists {
			log.Printf("[DBLoader] Database %s already exists.", name)
			dbName = name
			break
		}
	}

	if dbName == "" {
		dbName = csvsource.TableName(csvFiles[0])
		if _, err := admin.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(dbName)); err != nil {
			return "", dbError(err, "failed to create database %s", dbName)
		}
		log.Printf("[DBLoader] Database %s created successfully.", dbName)
	}

	if err := l.Migrate(ctx, dbName); err != nil {
		return "", err
	}
	return dbName, nil
}

// Migrate creates the bookkeeping tables of the named database
func (l *DBLoader) Migrate(ctx context.Context, dbName string) error {
	db, err := l.DB(ctx, dbName)
	if err != nil {
		return err
	}
	if err := l.migrations.Run(ctx, db); err != nil {
		return dbError(err, "failed to migrate database %s", dbName)
	}
	return nil
}

func databaseExists(ctx context.Context, db *sqlx.DB, name string) (bool, error) {
	var one int
	err := db.GetContext(ctx, &one, "SELECT 1 FROM pg_database WHERE datname = $1", name)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, dbError(err, "failed to look up database %s", name)
	}
	return true, nil
}

// CreateTable creates the table for a cleaned CSV file if it does not exist
func (l *DBLoader) CreateTable(ctx context.Context, dbName string, t *table.Clean, sqlTypes map[string]string) error {
	db, err := l.DB(ctx, dbName)
	if err != nil {
		return err
	}

	if _, err := db.ExecContext(ctx, CreateTableSQL(t.Name, t.Columns, sqlTypes)); err != nil {
		return dbError(err, "failed to create table %s", t.Name)
	}

	log.Printf("[DBLoader] Table %s created successfully in database %s.", t.Name, dbName)
	return nil
}

// CreateTableSQL builds the CREATE TABLE statement for a cleaned table.
// Columns without a mapped type fall back to TEXT.
func CreateTableSQL(tableName string, columns []string, sqlTypes map[string]string) string {
	defs := make([]string, 0, len(columns)+1)
	defs = append(defs, pq.QuoteIdentifier(SurrogateKey(columns))+" SERIAL PRIMARY KEY")
	for _, c := range columns {
		sqlType, ok := sqlTypes[c]
		if !ok {
			sqlType = "TEXT"
		}
		defs = append(defs, pq.QuoteIdentifier(c)+" "+sqlType)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)",
		pq.QuoteIdentifier(tableName), strings.Join(defs, ",\n\t"))
}

// SurrogateKey names the serial primary key column: "id", prefixed with
// underscores while a CSV column already uses the name
func SurrogateKey(columns []string) string {
	taken := make(map[string]bool, len(columns))
	for _, c := range columns {
		taken[strings.ToLower(c)] = true
	}
	key := "id"
	for taken[key] {
		key = "_" + key
	}
	return key
}

// InsertData bulk loads the rows of t with COPY in a single transaction.
// A table that already holds rows is left untouched. It returns the number
// of rows written.
func (l *DBLoader) InsertData(ctx context.Context, dbName string, t *table.Clean, sqlTypes map[string]string) (int64, error) {
	db, err := l.DB(ctx, dbName)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := db.GetContext(ctx, &count, "SELECT COUNT(*) FROM "+pq.QuoteIdentifier(t.Name)); err != nil {
		return 0, dbError(err, "failed to count rows of %s", t.Name)
	}
	if count > 0 {
		log.Printf("[DBLoader] Table %s already contains data. Skipping insertion.", t.Name)
		return 0, nil
	}

	types := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		types[i] = sqlTypes[c]
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, dbError(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(t.Name, t.Columns...))
	if err != nil {
		return 0, dbError(err, "failed to prepare copy into %s", t.Name)
	}

	vals := make([]any, len(t.Columns))
	for r, row := range t.Rows {
		for i, v := range row {
			converted, err := ConvertValue(v, types[i])
			if err != nil {
				stmt.Close()
				return 0, errors.WithCode(errors.CodeInvalidInput,
					errors.Wrapf(err, "row %d column %s", r+1, t.Columns[i]))
			}
			vals[i] = converted
		}
		if _, err := stmt.ExecContext(ctx, vals...); err != nil {
			stmt.Close()
			return 0, dbError(err, "failed to copy row %d into %s", r+1, t.Name)
		}
	}

	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return 0, dbError(err, "failed to flush copy into %s", t.Name)
	}
	if err := stmt.Close(); err != nil {
		return 0, dbError(err, "failed to close copy into %s", t.Name)
	}
	if err := tx.Commit(); err != nil {
		return 0, dbError(err, "failed to commit %s", t.Name)
	}

	log.Printf("[DBLoader] Data inserted into %s in database %s successfully (%d rows).", t.Name, dbName, len(t.Rows))
	return int64(len(t.Rows)), nil
}

// ConvertValue converts a cleaned cell to the Go value lib/pq should send
// for a column of the given SQL type. nil stays NULL.
func ConvertValue(v any, sqlType string) (any, error) {
	if v == nil {
		return nil, nil
	}

	switch val := v.(type) {
	case float64:
		if !cleaning.IsIntegerType(sqlType) {
			return val, nil
		}
		if val != math.Trunc(val) || math.IsInf(val, 0) || math.IsNaN(val) {
			return nil, errors.InvalidInput(fmt.Sprintf("%v is not a whole number", val))
		}
		if val >= 1<<63 || val < -(1<<63) {
			return nil, errors.InvalidInput(fmt.Sprintf("%v does not fit in %s", val, sqlType))
		}
		return int64(val), nil
	case time.Time:
		if strings.EqualFold(sqlType, "DATE") {
			return val.Format("2006-01-02"), nil
		}
		return val, nil
	case string:
		return val, nil
	default:
		return fmt.Sprint(val), nil
	}
}

func dbError(err error, format string, args ...interface{}) error {
	appErr := errors.DatabaseError(fmt.Sprintf(format, args...))
	appErr.Cause = err
	return appErr
}
