package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/papapumpkin/slitforge/internal/catalog"
)

// dialect captures what differs between the SQL backends: placeholder
// syntax, how string lists are stored and how unique violations surface.
type dialect struct {
	name        string
	numbered    bool
	listValue   func([]string) any
	listDest    func(*[]string) any
	isDuplicate func(error) bool
}

// rebind rewrites ? placeholders to $n for numbered dialects.
func (d dialect) rebind(q string) string {
	if !d.numbered {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// sqlStore implements Store on database/sql for any dialect.
type sqlStore struct {
	db *sql.DB
	d  dialect
}

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *sqlStore) exec(ctx context.Context, q queryer, query string, args ...any) (sql.Result, error) {
	return q.ExecContext(ctx, s.d.rebind(query), args...)
}

func (s *sqlStore) fail(op string, err error) error {
	return fmt.Errorf("store: %s: %w", op, err)
}

// tsLayout is fixed width so text ordering matches time ordering.
const tsLayout = "2006-01-02T15:04:05.000000000Z"

func timestamp(t time.Time) string { return t.UTC().Format(tsLayout) }

func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(tsLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognized timestamp %q: %w", s, err)
	}
	return t, nil
}

// exists reports whether query returns a row.
func (s *sqlStore) exists(ctx context.Context, q queryer, query string, args ...any) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, s.d.rebind(query), args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// CreateProject inserts p.
func (s *sqlStore) CreateProject(ctx context.Context, p Project) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	_, err := s.exec(ctx, s.db, `INSERT INTO projects (name, description, created_at) VALUES (?, ?, ?)`,
		p.Name, p.Description, timestamp(p.CreatedAt))
	if s.d.isDuplicate(err) {
		return duplicate("project", p.Name)
	}
	if err != nil {
		return s.fail("create project", err)
	}
	return nil
}

// GetProject returns the named project.
func (s *sqlStore) GetProject(ctx context.Context, name string) (Project, error) {
	var (
		p  Project
		ts string
	)
	err := s.db.QueryRowContext(ctx, s.d.rebind(`SELECT name, description, created_at FROM projects WHERE name = ?`), name).
		Scan(&p.Name, &p.Description, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return Project{}, notFound("project", name)
	}
	if err != nil {
		return Project{}, s.fail("get project", err)
	}
	if p.CreatedAt, err = parseTimestamp(ts); err != nil {
		return Project{}, s.fail("get project", err)
	}
	return p, nil
}

// ListProjects returns all projects ordered by name.
func (s *sqlStore) ListProjects(ctx context.Context) ([]Project, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, description, created_at FROM projects ORDER BY name`)
	if err != nil {
		return nil, s.fail("list projects", err)
	}
	defer rows.Close()

	var out []Project
	for rows.Next() {
		var (
			p  Project
			ts string
		)
		if err := rows.Scan(&p.Name, &p.Description, &ts); err != nil {
			return nil, s.fail("scan project", err)
		}
		if p.CreatedAt, err = parseTimestamp(ts); err != nil {
			return nil, s.fail("scan project", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail("iterate projects", err)
	}
	return out, nil
}

// DeleteProject removes a project; foreign keys cascade to its records.
func (s *sqlStore) DeleteProject(ctx context.Context, name string) error {
	res, err := s.exec(ctx, s.db, `DELETE FROM projects WHERE name = ?`, name)
	return s.deleted(res, err, "project", name)
}

func (s *sqlStore) deleted(res sql.Result, err error, kind, key string) error {
	if err != nil {
		return s.fail("delete "+kind, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return s.fail("delete "+kind, err)
	}
	if n == 0 {
		return notFound(kind, key)
	}
	return nil
}

// CreateCatalog inserts the catalog and its objects in one transaction.
func (s *sqlStore) CreateCatalog(ctx context.Context, project string, c catalog.Catalog) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.fail("begin create catalog", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	ok, err := s.exists(ctx, tx, `SELECT 1 FROM projects WHERE name = ?`, project)
	if err != nil {
		return s.fail("create catalog", err)
	}
	if !ok {
		return notFound("project", project)
	}

	_, err = s.exec(ctx, tx, `INSERT INTO catalogs (project, name, created_at) VALUES (?, ?, ?)`,
		project, c.Name, timestamp(time.Now()))
	if s.d.isDuplicate(err) {
		return duplicate("catalog", c.Name)
	}
	if err != nil {
		return s.fail("create catalog", err)
	}

	for i, o := range c.Objects {
		aux, err := json.Marshal(o.Aux)
		if err != nil {
			return s.fail("encode aux", err)
		}
		_, err = s.exec(ctx, tx, `INSERT INTO objects (project, catalog, name, seq, kind, ra_deg, dec_deg, priority, aux)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			project, c.Name, o.Name, i, string(o.Kind), o.RA, o.Dec, o.Priority, string(aux))
		if s.d.isDuplicate(err) {
			return duplicate("object", o.Name)
		}
		if err != nil {
			return s.fail(fmt.Sprintf("insert object %q", o.Name), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return s.fail("commit catalog", err)
	}
	return nil
}

// GetCatalog loads a catalog with its objects in insertion order.
func (s *sqlStore) GetCatalog(ctx context.Context, project, name string) (catalog.Catalog, error) {
	ok, err := s.exists(ctx, s.db, `SELECT 1 FROM catalogs WHERE project = ? AND name = ?`, project, name)
	if err != nil {
		return catalog.Catalog{}, s.fail("get catalog", err)
	}
	if !ok {
		return catalog.Catalog{}, notFound("catalog", project+"/"+name)
	}

	rows, err := s.db.QueryContext(ctx, s.d.rebind(`SELECT name, kind, ra_deg, dec_deg, priority, aux
		FROM objects WHERE project = ? AND catalog = ? ORDER BY seq`), project, name)
	if err != nil {
		return catalog.Catalog{}, s.fail("get objects", err)
	}
	defer rows.Close()

	c := catalog.Catalog{Name: name}
	for rows.Next() {
		var (
			o    catalog.Object
			kind string
			aux  string
		)
		if err := rows.Scan(&o.Name, &kind, &o.RA, &o.Dec, &o.Priority, &aux); err != nil {
			return catalog.Catalog{}, s.fail("scan object", err)
		}
		o.Kind = catalog.Kind(kind)
		if err := json.Unmarshal([]byte(aux), &o.Aux); err != nil {
			return catalog.Catalog{}, s.fail("decode aux", err)
		}
		c.Objects = append(c.Objects, o)
	}
	if err := rows.Err(); err != nil {
		return catalog.Catalog{}, s.fail("iterate objects", err)
	}
	return c, nil
}

// ListCatalogs returns catalog names in a project, sorted.
func (s *sqlStore) ListCatalogs(ctx context.Context, project string) ([]string, error) {
	if _, err := s.GetProject(ctx, project); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, s.d.rebind(`SELECT name FROM catalogs WHERE project = ? ORDER BY name`), project)
	if err != nil {
		return nil, s.fail("list catalogs", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, s.fail("scan catalog", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail("iterate catalogs", err)
	}
	return out, nil
}

// DeleteCatalog removes a catalog; its objects cascade.
func (s *sqlStore) DeleteCatalog(ctx context.Context, project, name string) error {
	res, err := s.exec(ctx, s.db, `DELETE FROM catalogs WHERE project = ? AND name = ?`, project, name)
	return s.deleted(res, err, "catalog", project+"/"+name)
}

// UpdateObject overwrites the stored fields of an existing object.
func (s *sqlStore) UpdateObject(ctx context.Context, project, catalogName string, o catalog.Object) error {
	aux, err := json.Marshal(o.Aux)
	if err != nil {
		return s.fail("encode aux", err)
	}
	res, err := s.exec(ctx, s.db, `UPDATE objects SET kind = ?, ra_deg = ?, dec_deg = ?, priority = ?, aux = ?
		WHERE project = ? AND catalog = ? AND name = ?`,
		string(o.Kind), o.RA, o.Dec, o.Priority, string(aux), project, catalogName, o.Name)
	if err != nil {
		return s.fail("update object", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return s.fail("update object", err)
	}
	if n == 0 {
		return notFound("object", o.Name)
	}
	return nil
}

// DeleteObject removes one object.
func (s *sqlStore) DeleteObject(ctx context.Context, project, catalogName, objectName string) error {
	res, err := s.exec(ctx, s.db, `DELETE FROM objects WHERE project = ? AND catalog = ? AND name = ?`,
		project, catalogName, objectName)
	return s.deleted(res, err, "object", objectName)
}

// Close closes the database.
func (s *sqlStore) Close() error {
	return s.db.Close()
}
