package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/shirokuma-kb/shirokuma/internal/logging"
	_ "github.com/mattn/go-sqlite3"
)

var log = logging.GetLogger("database")

// Database represents a connection to the SQLite database.
type Database struct {
	db   *sql.DB
	path string
	mu   sync.RWMutex
}

// Open opens a database connection and checks that it responds. It does not
// create or migrate the schema; callers run InitSchema for that.
func Open(path string) (*Database, error) {
	log.Info("opening database", "path", path)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Error("failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// _foreign_keys=on enables FK constraints (and the relation/tag/keyword
	// cascade deletes that back invariant I2).
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		log.Error("failed to open database", "error", err)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		log.Error("failed to ping database", "error", err)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	database := &Database{
		db:   db,
		path: path,
	}

	log.Info("database connection established", "path", path)
	return database, nil
}

// InitSchema initializes the database schema and runs any pending
// migrations. Safe to call on every startup.
func (d *Database) InitSchema() error {
	log.Info("initializing database schema", "version", SchemaVersion)

	d.mu.Lock()

	var tableName string
	err := d.db.QueryRow(`
		SELECT name FROM sqlite_master
		WHERE type='table' AND name='items'
		LIMIT 1
	`).Scan(&tableName)
	alreadyInitialized := err == nil && tableName != ""

	if !alreadyInitialized {
		if err := d.createSchemaLocked(); err != nil {
			d.mu.Unlock()
			return err
		}
	}

	d.mu.Unlock()

	if err := RunMigrations(d); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// createSchemaLocked creates the core schema, the FTS5 companion, and seeds
// the fixed lookup tables. Caller must hold d.mu.
func (d *Database) createSchemaLocked() error {
	tx, err := d.db.Begin()
	if err != nil {
		log.Error("failed to begin transaction", "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	log.Debug("creating core schema")
	if _, err := tx.Exec(CoreSchema); err != nil {
		log.Error("failed to create core schema", "error", err)
		return fmt.Errorf("failed to create core schema: %w", err)
	}

	log.Debug("creating FTS5 schema")
	if _, err := tx.Exec(FTS5Schema); err != nil {
		log.Warn("failed to create FTS5 schema (skipping)", "error", err)
	}

	if err := seedStatuses(tx); err != nil {
		log.Error("failed to seed statuses", "error", err)
		return fmt.Errorf("failed to seed statuses: %w", err)
	}

	if err := seedTypeDefinitions(tx); err != nil {
		log.Error("failed to seed type definitions", "error", err)
		return fmt.Errorf("failed to seed type definitions: %w", err)
	}

	if _, err := tx.Exec(`
		INSERT OR REPLACE INTO schema_version (version, applied_at)
		VALUES (?, CURRENT_TIMESTAMP)
	`, SchemaVersion); err != nil {
		log.Error("failed to record schema version", "error", err)
		return fmt.Errorf("failed to record schema version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		log.Error("failed to commit schema", "error", err)
		return fmt.Errorf("failed to commit schema: %w", err)
	}

	log.Info("database schema initialized successfully", "version", SchemaVersion)
	return nil
}

// Close closes the database connection.
func (d *Database) Close() error {
	log.Info("closing database connection")
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db != nil {
		if err := d.db.Close(); err != nil {
			log.Error("failed to close database", "error", err)
			return err
		}
		log.Debug("database connection closed")
	}
	return nil
}

// DB returns the underlying sql.DB for advanced operations.
func (d *Database) DB() *sql.DB {
	return d.db
}

// Path returns the database file path.
func (d *Database) Path() string {
	return d.path
}

// Exec executes a SQL statement.
func (d *Database) Exec(query string, args ...interface{}) (sql.Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.db.Exec(query, args...)
}

// Query executes a SQL query and returns rows.
func (d *Database) Query(query string, args ...interface{}) (*sql.Rows, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.db.Query(query, args...)
}

// QueryRow executes a SQL query and returns a single row.
func (d *Database) QueryRow(query string, args ...interface{}) *sql.Row {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.db.QueryRow(query, args...)
}

// Begin starts a new transaction. The engine routes every write operation
// through a single transaction so that an item and its side rows commit
// atomically.
func (d *Database) Begin() (*sql.Tx, error) {
	return d.db.Begin()
}

// GetSchemaVersion returns the current schema version.
func (d *Database) GetSchemaVersion() (int, error) {
	var version int
	err := d.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}

// TableExists checks if a table exists in the database.
func (d *Database) TableExists(name string) (bool, error) {
	var count int
	err := d.QueryRow(`
		SELECT COUNT(*) FROM sqlite_master
		WHERE type='table' AND name=?
	`, name).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CountRows returns the number of rows in a table. The caller must only
// pass a validated table name; this is not parameterizable in SQLite.
func (d *Database) CountRows(table string) (int, error) {
	var count int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", table)
	if err := d.QueryRow(query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count rows in %s: %w", table, err)
	}
	return count, nil
}

// Vacuum runs VACUUM to optimize the database file.
func (d *Database) Vacuum() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.db.Exec("VACUUM")
	return err
}

// Checkpoint forces a WAL checkpoint.
func (d *Database) Checkpoint() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return err
}

// DBStats returns database-wide statistics for cmd/shirokuma's stats
// subcommand.
type DBStats struct {
	Path          string
	SchemaVersion int
	TableCount    int
	ItemCount     int
	RelationCount int
	TagCount      int
	TypeCount     int
	FileSizeBytes int64
}

// GetDBStats returns database statistics.
func (d *Database) GetDBStats() (*DBStats, error) {
	stats := &DBStats{Path: d.path}

	if version, err := d.GetSchemaVersion(); err == nil {
		stats.SchemaVersion = version
	}

	var tableCount int
	d.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table'").Scan(&tableCount)
	stats.TableCount = tableCount

	d.QueryRow("SELECT COUNT(*) FROM items").Scan(&stats.ItemCount)
	d.QueryRow("SELECT COUNT(*) FROM item_relations").Scan(&stats.RelationCount)
	d.QueryRow("SELECT COUNT(*) FROM tags").Scan(&stats.TagCount)
	d.QueryRow("SELECT COUNT(*) FROM type_definitions").Scan(&stats.TypeCount)

	if info, err := os.Stat(d.path); err == nil {
		stats.FileSizeBytes = info.Size()
	}

	return stats, nil
}

func seedStatuses(tx *sql.Tx) error {
	var count int
	if err := tx.QueryRow("SELECT COUNT(*) FROM statuses").Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	for _, s := range StatusSeeds {
		if _, err := tx.Exec(
			"INSERT INTO statuses (name, sort_order, is_closable) VALUES (?, ?, ?)",
			s.Name, s.SortOrder, s.IsClosable,
		); err != nil {
			return fmt.Errorf("seeding status %q: %w", s.Name, err)
		}
	}
	return nil
}

func seedTypeDefinitions(tx *sql.Tx) error {
	var count int
	if err := tx.QueryRow("SELECT COUNT(*) FROM type_definitions").Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	seeds := []struct{ name, base, desc string }{
		{"issues", "tasks", "Tracked work items"},
		{"plans", "tasks", "Planning documents with scheduling fields"},
		{"docs", "documents", "Reference documentation"},
		{"knowledge", "documents", "Durable knowledge base entries"},
		{"sessions", "documents", "Work session records"},
		{"decisions", "documents", "Recorded decisions and rationale"},
	}
	for _, s := range seeds {
		if _, err := tx.Exec(
			"INSERT INTO type_definitions (name, base_type, description) VALUES (?, ?, ?)",
			s.name, s.base, s.desc,
		); err != nil {
			return fmt.Errorf("seeding type %q: %w", s.name, err)
		}
	}
	return nil
}
