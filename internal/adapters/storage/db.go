package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by stores when a row does not exist.
var ErrNotFound = errors.New("not found")

// SchemaVersion is bumped whenever the schema below changes.
const SchemaVersion = 1

// Open opens the SQLite database with WAL mode, foreign keys and a busy timeout.
// PRE: path is a file path or ":memory:"
// POST: Returns a pinged connection pool
func Open(ctx context.Context, path string) (*sql.DB, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == ":memory:" || strings.HasPrefix(path, "file::memory:") {
		// Every pooled connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}
	return db, nil
}

// InitDB initializes the database schema.
// PRE: db is a valid database connection
// POST: All tables exist and schema_version holds SchemaVersion
// INVARIANT: Safe to run on every start
func InitDB(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS volunteer (
		id INTEGER PRIMARY KEY,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		current INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS volunteer_function (
		volunteer_id INTEGER NOT NULL,
		function TEXT NOT NULL,
		PRIMARY KEY (volunteer_id, function),
		FOREIGN KEY (volunteer_id) REFERENCES volunteer(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS volunteer_committee (
		volunteer_id INTEGER NOT NULL,
		committee_id INTEGER NOT NULL,
		PRIMARY KEY (volunteer_id, committee_id),
		FOREIGN KEY (volunteer_id) REFERENCES volunteer(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS vog_record (
		volunteer_id INTEGER PRIMARY KEY,
		certificate_date TEXT,
		reminder_sent_date TEXT,
		registry_submitted_date TEXT,
		FOREIGN KEY (volunteer_id) REFERENCES volunteer(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS vog_policy (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		from_email TEXT NOT NULL,
		from_name TEXT NOT NULL DEFAULT '',
		template_new TEXT NOT NULL,
		template_renewal TEXT NOT NULL,
		exempt_committees TEXT NOT NULL DEFAULT '[]',
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS audit_event (
		id TEXT PRIMARY KEY,
		timestamp TEXT NOT NULL,
		category TEXT NOT NULL,
		action TEXT NOT NULL,
		severity TEXT NOT NULL,
		resource_type TEXT NOT NULL DEFAULT '',
		resource_id TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		request_id TEXT NOT NULL DEFAULT '',
		ip_address TEXT NOT NULL DEFAULT '',
		metadata TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_audit_event_timestamp ON audit_event(timestamp);
	CREATE INDEX IF NOT EXISTS idx_volunteer_committee_committee ON volunteer_committee(committee_id);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&n); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if n == 0 {
		_, err := db.Exec("INSERT INTO schema_version (version) VALUES (?)", SchemaVersion)
		return err
	}
	_, err := db.Exec("UPDATE schema_version SET version = ?", SchemaVersion)
	return err
}
