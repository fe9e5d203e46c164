// ABOUTME: Connection factory producing one database handle for memory, sqlite, or postgres
// ABOUTME: The handle carries its SQL dialect so the store never branches on backend type

package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	sq "github.com/Masterminds/squirrel"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Backend kinds accepted by Open
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Dialect selects placeholder style and little else; schema SQL is written
// to be portable across both.
type Dialect int

// Supported dialects
const (
	DialectSQLite Dialect = iota
	DialectPostgres
)

// ConnConfig names the backend and its connection parameters.
type ConnConfig struct {
	Kind string // "memory", "sqlite", "postgres"

	// sqlite
	Path string

	// postgres
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// DB is a database handle plus the dialect it speaks.
type DB struct {
	*sql.DB
	dialect Dialect
}

// Dialect reports the SQL dialect of the underlying backend.
func (d *DB) Dialect() Dialect {
	return d.dialect
}

// builder returns a statement builder with the placeholder format the
// backend expects ($N for postgres, ? for sqlite).
func (d *DB) builder() sq.StatementBuilderType {
	if d.dialect == DialectPostgres {
		return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	}
	return sq.StatementBuilder.PlaceholderFormat(sq.Question)
}

// Open builds a database handle for the configured backend. All backends
// present the identical query/transaction interface to the store.
func Open(cfg ConnConfig) (*DB, error) {
	switch cfg.Kind {
	case BackendMemory:
		db, err := sql.Open("sqlite", ":memory:")
		if err != nil {
			return nil, fmt.Errorf("opening in-memory database: %w", err)
		}
		// Each pooled connection would otherwise see its own empty
		// in-memory database.
		db.SetMaxOpenConns(1)
		if err := applySQLitePragmas(db); err != nil {
			db.Close()
			return nil, err
		}
		return &DB{DB: db, dialect: DialectSQLite}, nil

	case BackendSQLite:
		if cfg.Path == "" {
			return nil, fmt.Errorf("sqlite backend requires a path")
		}
		dir := filepath.Dir(cfg.Path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
		db, err := sql.Open("sqlite", cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		// Enable WAL mode for better concurrent performance
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enabling WAL mode: %w", err)
		}
		if err := applySQLitePragmas(db); err != nil {
			db.Close()
			return nil, err
		}
		return &DB{DB: db, dialect: DialectSQLite}, nil

	case BackendPostgres:
		if cfg.Host == "" || cfg.Database == "" {
			return nil, fmt.Errorf("postgres backend requires host and database")
		}
		port := cfg.Port
		if port == 0 {
			port = 5432
		}
		sslMode := cfg.SSLMode
		if sslMode == "" {
			sslMode = "prefer"
		}
		dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
			cfg.User, cfg.Password, cfg.Host, port, cfg.Database, sslMode)
		db, err := sql.Open("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("opening postgres database: %w", err)
		}
		return &DB{DB: db, dialect: DialectPostgres}, nil

	default:
		return nil, fmt.Errorf("unsupported database kind %q", cfg.Kind)
	}
}

func applySQLitePragmas(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return fmt.Errorf("enabling foreign keys: %w", err)
	}
	return nil
}
