package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// sqliteSchema is executed on every open; IF NOT EXISTS keeps it idempotent.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS projects (
    name        TEXT PRIMARY KEY,
    description TEXT NOT NULL DEFAULT '',
    created_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS catalogs (
    project    TEXT NOT NULL REFERENCES projects(name) ON DELETE CASCADE,
    name       TEXT NOT NULL,
    created_at TEXT NOT NULL,
    PRIMARY KEY (project, name)
);

CREATE TABLE IF NOT EXISTS objects (
    project  TEXT NOT NULL,
    catalog  TEXT NOT NULL,
    name     TEXT NOT NULL,
    seq      INTEGER NOT NULL,
    kind     TEXT NOT NULL,
    ra_deg   REAL NOT NULL,
    dec_deg  REAL NOT NULL,
    priority INTEGER NOT NULL,
    aux      TEXT NOT NULL DEFAULT 'null',
    PRIMARY KEY (project, catalog, name),
    FOREIGN KEY (project, catalog) REFERENCES catalogs(project, name) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS masks (
    id         TEXT PRIMARY KEY,
    project    TEXT NOT NULL REFERENCES projects(name) ON DELETE CASCADE,
    name       TEXT NOT NULL,
    status     TEXT NOT NULL,
    setup      TEXT NOT NULL,
    features   TEXT NOT NULL,
    included   TEXT NOT NULL,
    excluded   TEXT NOT NULL,
    artifacts  TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    UNIQUE (project, name)
);

CREATE INDEX IF NOT EXISTS masks_by_status ON masks (project, status);
`

// SQLite is a Store backed by a local SQLite database in WAL mode.
type SQLite struct {
	sqlStore
}

// NewSQLite opens (or creates) the database at path, enables WAL mode,
// foreign keys and a busy timeout, and creates the schema if needed.
func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	// SQLite has a single writer and PRAGMAs are per connection.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: %s: %w", pragma, err)
		}
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create schema: %w", err)
	}

	return &SQLite{sqlStore{db: db, d: sqliteDialect()}}, nil
}

func sqliteDialect() dialect {
	return dialect{
		name:        DriverSQLite,
		listValue:   jsonListValue,
		listDest:    func(p *[]string) any { return &jsonList{dst: p} },
		isDuplicate: sqliteDuplicate,
	}
}

func sqliteDuplicate(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}

func jsonListValue(ss []string) any {
	if ss == nil {
		ss = []string{}
	}
	data, _ := json.Marshal(ss)
	return string(data)
}

// jsonList scans a JSON array column into a string slice.
type jsonList struct {
	dst *[]string
}

// Scan implements sql.Scanner.
func (j *jsonList) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*j.dst = nil
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("store: cannot scan %T into string list", src)
	}
	var out []string
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("store: decode string list: %w", err)
	}
	if len(out) == 0 {
		out = nil
	}
	*j.dst = out
	return nil
}
