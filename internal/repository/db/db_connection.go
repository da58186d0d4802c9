package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const sqliteDriverName = "sqlite"

// InitDB opens/creates the SQLite DB file and ensures tables exist.
func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open(sqliteDriverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %q: %w", path, err)
	}

	// SQLite is not great with many concurrent writers
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA foreign_keys = ON;",
		"PRAGMA busy_timeout = 5000;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	// Fail fast if the DB cannot be reached
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return db, nil
}

const schemaMachines = `
CREATE TABLE IF NOT EXISTS machines (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    code TEXT UNIQUE NOT NULL,
    name TEXT NOT NULL
);
`

const schemaStatusColors = `
CREATE TABLE IF NOT EXISTS status_colors (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT UNIQUE NOT NULL,
    hex TEXT NOT NULL
);
`

// end_time stays NULL while the interval is open. The single-open-interval
// invariant is an application guarantee, not a storage constraint.
const schemaMachineStatus = `
CREATE TABLE IF NOT EXISTS machine_status (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    machine_id INTEGER NOT NULL REFERENCES machines(id),
    color_id INTEGER NOT NULL REFERENCES status_colors(id),
    start_time TIMESTAMP NOT NULL,
    end_time TIMESTAMP
);
`

const schemaMachineStatusIndex = `
CREATE INDEX IF NOT EXISTS idx_machine_status_machine_start
    ON machine_status (machine_id, start_time);
`

const schemaUsers = `
CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT UNIQUE NOT NULL,
    password_hash TEXT NOT NULL
);
`

// The tracked colors are provisioned with the schema; the original
// deployment relied on these rows existing before the first ingest.
const seedStatusColors = `
INSERT INTO status_colors (name, hex) VALUES
    ('green',  '#4CAF50'),
    ('yellow', '#FFC107'),
    ('red',    '#F44336')
ON CONFLICT(name) DO NOTHING;
`

func ensureSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin schema transaction: %w", err)
	}
	defer func() {
		// In case of panic, rollback to avoid leaving an open transaction
		_ = tx.Rollback()
	}()

	for i, stmt := range []string{
		schemaMachines,
		schemaStatusColors,
		schemaMachineStatus,
		schemaMachineStatusIndex,
		schemaUsers,
		seedStatusColors,
	} {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema transaction: %w", err)
	}
	return nil
}
