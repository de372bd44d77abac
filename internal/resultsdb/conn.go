package resultsdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"

	_ "modernc.org/sqlite"

	"odbbridge/internal/crypto"
)

// sessions hands out a fresh generation to every opened store so handles
// cannot leak from one session into another.
var sessions atomic.Int64

// conn is one open session on a store file.
type conn struct {
	path   string
	db     *sql.DB
	tx     *sql.Tx
	gen    int64
	closed bool
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func openConn(path string) (*conn, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	// One connection keeps pragmas and the open transaction on the same handle.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to configure %s: %w", path, err)
	}
	return &conn{path: path, db: db, gen: sessions.Add(1)}, nil
}

func (c *conn) begin() error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	c.tx = tx
	return nil
}

func (c *conn) commit() error {
	if c.tx == nil {
		return nil
	}
	tx := c.tx
	c.tx = nil
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", c.path, err)
	}
	return nil
}

// q returns the open transaction, or the database when none is open.
func (c *conn) q() queryer {
	if c.tx != nil {
		return c.tx
	}
	return c.db
}

func (c *conn) live() error {
	if c.closed {
		return ErrClosed
	}
	return nil
}

func (c *conn) check(gen int64) error {
	if c.closed {
		return ErrClosed
	}
	if gen != c.gen {
		return ErrStaleHandle
	}
	return nil
}

// close rolls back anything unsaved. It is idempotent.
func (c *conn) close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	var rbErr error
	if c.tx != nil {
		rbErr = c.tx.Rollback()
		c.tx = nil
	}
	return errors.Join(rbErr, c.db.Close())
}

func (c *conn) setMeta(key, value string) error {
	_, err := c.q().ExecContext(context.Background(),
		`INSERT INTO meta (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("set meta %s: %w", key, err)
	}
	return nil
}

// meta returns the value for key, or "" when the store has no such key or no
// meta table at all.
func (c *conn) meta(key string) (string, error) {
	ctx := context.Background()
	var n int
	err := c.q().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'meta'`).Scan(&n)
	if err != nil {
		return "", fmt.Errorf("read meta: %w", err)
	}
	if n == 0 {
		return "", nil
	}
	var v string
	err = c.q().QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read meta %s: %w", key, err)
	}
	return v, nil
}

// requireCommittedGeometry checks phase and seal of an existing store.
func (c *conn) requireCommittedGeometry() error {
	phase, err := c.meta("phase")
	if err != nil {
		return err
	}
	if phase != phaseGeometryCommitted && phase != phaseResultsCommitted {
		return fmt.Errorf("%s: %w", c.path, ErrGeometryNotCommitted)
	}
	want, err := c.meta("geometry_digest")
	if err != nil {
		return err
	}
	sum, err := geometryDigest(c.q())
	if err != nil {
		return err
	}
	if crypto.Hex(sum) != want {
		return fmt.Errorf("%s: %w", c.path, ErrDigestMismatch)
	}
	return nil
}

// geometryDigest hashes parts, nodes, elements and instances in a fixed order.
func geometryDigest(q queryer) ([]byte, error) {
	ctx := context.Background()
	d := crypto.NewDigest()

	rows, err := q.QueryContext(ctx, `
		SELECT p.name, n.label, n.x, n.y, n.z
		FROM nodes n JOIN parts p ON p.id = n.part_id
		ORDER BY p.name, n.label`)
	if err != nil {
		return nil, fmt.Errorf("digest nodes: %w", err)
	}
	for rows.Next() {
		var part string
		var label int64
		var x, y, z float64
		if err := rows.Scan(&part, &label, &x, &y, &z); err != nil {
			rows.Close()
			return nil, err
		}
		d.String("node").String(part).Int(label).Float(x).Float(y).Float(z)
	}
	if err := closeRows(rows); err != nil {
		return nil, fmt.Errorf("digest nodes: %w", err)
	}

	rows, err = q.QueryContext(ctx, `
		SELECT p.name, e.label, e.type, e.connectivity
		FROM elements e JOIN parts p ON p.id = e.part_id
		ORDER BY p.name, e.label`)
	if err != nil {
		return nil, fmt.Errorf("digest elements: %w", err)
	}
	for rows.Next() {
		var part, typ, connectivity string
		var label int64
		if err := rows.Scan(&part, &label, &typ, &connectivity); err != nil {
			rows.Close()
			return nil, err
		}
		d.String("element").String(part).Int(label).String(typ).String(connectivity)
	}
	if err := closeRows(rows); err != nil {
		return nil, fmt.Errorf("digest elements: %w", err)
	}

	rows, err = q.QueryContext(ctx, `
		SELECT i.name, p.name FROM instances i JOIN parts p ON p.id = i.part_id
		ORDER BY i.name`)
	if err != nil {
		return nil, fmt.Errorf("digest instances: %w", err)
	}
	for rows.Next() {
		var inst, part string
		if err := rows.Scan(&inst, &part); err != nil {
			rows.Close()
			return nil, err
		}
		d.String("instance").String(inst).String(part)
	}
	if err := closeRows(rows); err != nil {
		return nil, fmt.Errorf("digest instances: %w", err)
	}
	return d.Sum(), nil
}

func closeRows(rows *sql.Rows) error {
	return errors.Join(rows.Err(), rows.Close())
}

func encodeInts(v []int) (string, error) {
	if v == nil {
		v = []int{}
	}
	b, err := json.Marshal(v)
	return string(b), err
}
