package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// uniqueViolation is the Postgres SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

const postgresSchema = `
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
    ra_deg   DOUBLE PRECISION NOT NULL,
    dec_deg  DOUBLE PRECISION NOT NULL,
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
    included   TEXT[] NOT NULL,
    excluded   TEXT[] NOT NULL,
    artifacts  TEXT[] NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    UNIQUE (project, name)
);

CREATE INDEX IF NOT EXISTS masks_by_status ON masks (project, status);
`

// Postgres is a Store backed by PostgreSQL through lib/pq.
type Postgres struct {
	sqlStore
}

// NewPostgres connects to dsn and creates the schema if needed.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, postgresSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create schema: %w", err)
	}
	return NewPostgresDB(db), nil
}

// NewPostgresDB wraps an open connection pool without touching the schema.
func NewPostgresDB(db *sql.DB) *Postgres {
	return &Postgres{sqlStore{db: db, d: postgresDialect()}}
}

func postgresDialect() dialect {
	return dialect{
		name:     DriverPostgres,
		numbered: true,
		listValue: func(ss []string) any {
			if ss == nil {
				ss = []string{}
			}
			return pq.Array(ss)
		},
		listDest:    func(p *[]string) any { return pq.Array(p) },
		isDuplicate: postgresDuplicate,
	}
}

func postgresDuplicate(err error) bool {
	var pe *pq.Error
	return errors.As(err, &pe) && pe.Code == uniqueViolation
}
