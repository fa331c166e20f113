package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/artpar/simpleschema/core/compiler"
	"github.com/artpar/simpleschema/ports"
)

// SQLiteMigrator creates tables for compiled collections in SQLite.
type SQLiteMigrator struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite database for migration.
func OpenSQLite(path string) (*SQLiteMigrator, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	return &SQLiteMigrator{db: db}, nil
}

// NewSQLiteMigratorFromDB creates a migrator from an existing connection.
func NewSQLiteMigratorFromDB(db *sql.DB) *SQLiteMigrator {
	return &SQLiteMigrator{db: db}
}

// Apply creates every table for collections in a single transaction and
// adds the columns of fields that existing tables lack. It returns the
// statements that were executed.
func (m *SQLiteMigrator) Apply(ctx context.Context, collections []compiler.Collection) ([]string, error) {
	statements, err := BuildSchemaSQL(collections)
	if err != nil {
		return nil, err
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("exec %q: %w", firstLine(stmt), err)
		}
	}

	known := knownTables(collections)
	for _, c := range collections {
		existing, err := columnNames(ctx, tx, c.Slug)
		if err != nil {
			return nil, err
		}
		for _, col := range MissingColumns(c, existing) {
			stmt := BuildAddColumnSQL(c.Slug, col, known)
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return nil, fmt.Errorf("exec %q: %w", stmt, err)
			}
			statements = append(statements, stmt)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return statements, nil
}

// Tables returns the names of user tables, sorted.
func (m *SQLiteMigrator) Tables(ctx context.Context) ([]string, error) {
	rows, err := m.db.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Columns returns the column names of a table in declaration order.
func (m *SQLiteMigrator) Columns(ctx context.Context, table string) ([]string, error) {
	return columnNames(ctx, m.db, table)
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func columnNames(ctx context.Context, q queryer, table string) ([]string, error) {
	rows, err := q.QueryContext(ctx, "SELECT name FROM pragma_table_info(?) ORDER BY cid", table)
	if err != nil {
		return nil, fmt.Errorf("table info %s: %w", table, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// DB returns the underlying connection.
func (m *SQLiteMigrator) DB() *sql.DB {
	return m.db
}

// Close closes the database connection.
func (m *SQLiteMigrator) Close() error {
	return m.db.Close()
}

func firstLine(s string) string {
	for i, c := range s {
		if c == '\n' {
			return s[:i]
		}
	}
	return s
}

var _ ports.Migrator = (*SQLiteMigrator)(nil)
