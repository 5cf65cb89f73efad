package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/papapumpkin/slitforge/internal/mask"
	"github.com/papapumpkin/slitforge/internal/result"
)

const maskColumns = `id, project, name, status, setup, features, included, excluded, artifacts, created_at, updated_at`

// CreateMask inserts m. The unique (project, name) constraint rejects a
// concurrent second insert of the same name.
func (s *sqlStore) CreateMask(ctx context.Context, m mask.Mask) error {
	setupJSON, err := json.Marshal(m.Setup)
	if err != nil {
		return s.fail("encode setup", err)
	}
	features, err := result.MarshalFeatures(m.Features)
	if err != nil {
		return s.fail("encode features", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.fail("begin create mask", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	ok, err := s.exists(ctx, tx, `SELECT 1 FROM projects WHERE name = ?`, m.Project)
	if err != nil {
		return s.fail("create mask", err)
	}
	if !ok {
		return notFound("project", m.Project)
	}

	_, err = s.exec(ctx, tx, `INSERT INTO masks (`+maskColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Project, m.Name, string(m.Status), string(setupJSON), string(features),
		s.d.listValue(m.Included), s.d.listValue(m.Excluded), s.d.listValue(m.Artifacts),
		timestamp(m.CreatedAt), timestamp(m.UpdatedAt))
	if s.d.isDuplicate(err) {
		return duplicate("mask", m.Name)
	}
	if err != nil {
		return s.fail("create mask", err)
	}
	if err := tx.Commit(); err != nil {
		return s.fail("commit mask", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (s *sqlStore) scanMask(row scanner) (mask.Mask, error) {
	var (
		m                        mask.Mask
		status, setupJSON, feats string
		created, updated         string
	)
	err := row.Scan(&m.ID, &m.Project, &m.Name, &status, &setupJSON, &feats,
		s.d.listDest(&m.Included), s.d.listDest(&m.Excluded), s.d.listDest(&m.Artifacts),
		&created, &updated)
	if err != nil {
		return mask.Mask{}, err
	}
	m.Status = mask.Status(status)
	if err := json.Unmarshal([]byte(setupJSON), &m.Setup); err != nil {
		return mask.Mask{}, err
	}
	if m.Features, err = result.UnmarshalFeatures([]byte(feats)); err != nil {
		return mask.Mask{}, err
	}
	if m.CreatedAt, err = parseTimestamp(created); err != nil {
		return mask.Mask{}, err
	}
	if m.UpdatedAt, err = parseTimestamp(updated); err != nil {
		return mask.Mask{}, err
	}
	return m, nil
}

// GetMask returns the named mask.
func (s *sqlStore) GetMask(ctx context.Context, project, name string) (mask.Mask, error) {
	row := s.db.QueryRowContext(ctx, s.d.rebind(`SELECT `+maskColumns+` FROM masks WHERE project = ? AND name = ?`), project, name)
	m, err := s.scanMask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return mask.Mask{}, notFound("mask", project+"/"+name)
	}
	if err != nil {
		return mask.Mask{}, s.fail("get mask", err)
	}
	return m, nil
}

// ListMasks returns a project's masks, oldest first.
func (s *sqlStore) ListMasks(ctx context.Context, project string, status mask.Status) ([]mask.Mask, error) {
	if _, err := s.GetProject(ctx, project); err != nil {
		return nil, err
	}
	q := `SELECT ` + maskColumns + ` FROM masks WHERE project = ?`
	args := []any{project}
	if status != "" {
		q += ` AND status = ?`
		args = append(args, string(status))
	}
	q += ` ORDER BY created_at, name`

	rows, err := s.db.QueryContext(ctx, s.d.rebind(q), args...)
	if err != nil {
		return nil, s.fail("list masks", err)
	}
	defer rows.Close()

	var out []mask.Mask
	for rows.Next() {
		m, err := s.scanMask(rows)
		if err != nil {
			return nil, s.fail("scan mask", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail("iterate masks", err)
	}
	return out, nil
}

// UpdateMaskStatus sets the status only if it still equals from.
func (s *sqlStore) UpdateMaskStatus(ctx context.Context, project, name string, from, to mask.Status) (mask.Mask, error) {
	res, err := s.exec(ctx, s.db, `UPDATE masks SET status = ?, updated_at = ? WHERE project = ? AND name = ? AND status = ?`,
		string(to), timestamp(time.Now()), project, name, string(from))
	if err != nil {
		return mask.Mask{}, s.fail("update mask status", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mask.Mask{}, s.fail("update mask status", err)
	}
	if n == 0 {
		if _, err := s.GetMask(ctx, project, name); err != nil {
			return mask.Mask{}, err
		}
		return mask.Mask{}, ErrConflict
	}
	return s.GetMask(ctx, project, name)
}

// DeleteMask removes a mask record.
func (s *sqlStore) DeleteMask(ctx context.Context, project, name string) error {
	res, err := s.exec(ctx, s.db, `DELETE FROM masks WHERE project = ? AND name = ?`, project, name)
	return s.deleted(res, err, "mask", project+"/"+name)
}
