package resultsdb

import (
	"context"
	"errors"
	"fmt"
	"os"

	"odbbridge/internal/crypto"
	"odbbridge/internal/domain"
)

// Options control Create.
type Options struct {
	// Overwrite replaces an existing file instead of failing with ErrExists.
	Overwrite bool
}

// GeometryDB is a new store in its geometry-definition session.
type GeometryDB struct {
	c     *conn
	saved bool
}

// Create starts a new, empty store at path. No geometry reaches the file
// until Save; a store closed without Save cannot be reopened for results.
func Create(path string, meta domain.StoreMeta, opts Options) (*GeometryDB, error) {
	if _, err := os.Stat(path); err == nil {
		if !opts.Overwrite {
			return nil, fmt.Errorf("%s: %w", path, ErrExists)
		}
		for _, p := range []string{path, path + "-journal", path + "-wal", path + "-shm"} {
			if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
				return nil, err
			}
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	c, err := openConn(path)
	if err != nil {
		return nil, err
	}
	if err := c.begin(); err != nil {
		_ = c.close()
		return nil, err
	}
	if _, err := c.q().ExecContext(context.Background(), schema); err != nil {
		_ = c.close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	for k, v := range map[string]string{
		"format":      formatVersion,
		"name":        meta.Name,
		"title":       meta.Title,
		"description": meta.Description,
		"phase":       phaseGeometry,
	} {
		if err := c.setMeta(k, v); err != nil {
			_ = c.close()
			return nil, err
		}
	}
	return &GeometryDB{c: c}, nil
}

func (g *GeometryDB) writable() error {
	if err := g.c.live(); err != nil {
		return err
	}
	if g.saved {
		return ErrGeometrySealed
	}
	return nil
}

// Part creates a 3-D deformable part.
func (g *GeometryDB) Part(name string) (domain.PartRef, error) {
	if err := g.writable(); err != nil {
		return domain.PartRef{}, err
	}
	res, err := g.c.q().ExecContext(context.Background(),
		`INSERT INTO parts (name, embedded_space, type) VALUES (?, 'THREE_D', 'DEFORMABLE_BODY')`, name)
	if err != nil {
		return domain.PartRef{}, fmt.Errorf("create part %q: %w", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.PartRef{}, err
	}
	return domain.PartRef{ID: id, Gen: g.c.gen}, nil
}

// AddNodes adds nodes to part in order.
func (g *GeometryDB) AddNodes(part domain.PartRef, nodes []domain.Node) error {
	if err := g.writable(); err != nil {
		return err
	}
	if err := g.c.check(part.Gen); err != nil {
		return err
	}
	ctx := context.Background()
	stmt, err := g.c.tx.PrepareContext(ctx,
		`INSERT INTO nodes (part_id, label, x, y, z) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, n := range nodes {
		if _, err := stmt.ExecContext(ctx, part.ID, n.Label, n.X, n.Y, n.Z); err != nil {
			return fmt.Errorf("add node %d: %w", n.Label, err)
		}
	}
	return nil
}

// AddElements adds a batch of elements of one type. Every connectivity label
// must name a node already on the part.
func (g *GeometryDB) AddElements(part domain.PartRef, elemType string, elems []domain.Element) error {
	if err := g.writable(); err != nil {
		return err
	}
	if err := g.c.check(part.Gen); err != nil {
		return err
	}
	if elemType == "" {
		return fmt.Errorf("add elements: empty element type")
	}
	ctx := context.Background()

	known, err := g.nodeLabels(ctx, part.ID)
	if err != nil {
		return err
	}
	stmt, err := g.c.tx.PrepareContext(ctx,
		`INSERT INTO elements (part_id, label, type, connectivity) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, e := range elems {
		if e.Type != "" && e.Type != elemType {
			return fmt.Errorf("add element %d: type %q in %q batch", e.Label, e.Type, elemType)
		}
		for _, n := range e.Connectivity {
			if _, ok := known[n]; !ok {
				return fmt.Errorf("add element %d: undefined node %d", e.Label, n)
			}
		}
		connJSON, err := encodeInts(e.Connectivity)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, part.ID, e.Label, elemType, connJSON); err != nil {
			return fmt.Errorf("add element %d: %w", e.Label, err)
		}
	}
	return nil
}

func (g *GeometryDB) nodeLabels(ctx context.Context, partID int64) (map[int]struct{}, error) {
	rows, err := g.c.q().QueryContext(ctx, `SELECT label FROM nodes WHERE part_id = ?`, partID)
	if err != nil {
		return nil, err
	}
	out := make(map[int]struct{})
	for rows.Next() {
		var l int
		if err := rows.Scan(&l); err != nil {
			rows.Close()
			return nil, err
		}
		out[l] = struct{}{}
	}
	return out, closeRows(rows)
}

// Instance places part in the assembly under name.
func (g *GeometryDB) Instance(name string, part domain.PartRef) (domain.InstanceRef, error) {
	if err := g.writable(); err != nil {
		return domain.InstanceRef{}, err
	}
	if err := g.c.check(part.Gen); err != nil {
		return domain.InstanceRef{}, err
	}
	res, err := g.c.q().ExecContext(context.Background(),
		`INSERT INTO instances (name, part_id) VALUES (?, ?)`, name, part.ID)
	if err != nil {
		return domain.InstanceRef{}, fmt.Errorf("create instance %q: %w", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.InstanceRef{}, err
	}
	return domain.InstanceRef{ID: id, Gen: g.c.gen}, nil
}

// Save seals and commits the geometry. The session accepts no further
// writes; Close it and reopen with OpenWritable.
func (g *GeometryDB) Save() error {
	if err := g.writable(); err != nil {
		return err
	}
	sum, err := geometryDigest(g.c.q())
	if err != nil {
		return err
	}
	if err := g.c.setMeta("geometry_digest", crypto.Hex(sum)); err != nil {
		return err
	}
	if err := g.c.setMeta("phase", phaseGeometryCommitted); err != nil {
		return err
	}
	if err := g.c.commit(); err != nil {
		return err
	}
	g.saved = true
	return nil
}

// Fingerprint is the short form of the geometry seal, available after Save.
func (g *GeometryDB) Fingerprint() (string, error) {
	if err := g.c.live(); err != nil {
		return "", err
	}
	v, err := g.c.meta("geometry_digest")
	if err != nil {
		return "", err
	}
	sum, err := crypto.ParseHex(v)
	if err != nil {
		return "", err
	}
	return crypto.Fingerprint(sum), nil
}

// Close discards anything unsaved and closes the file.
func (g *GeometryDB) Close() error { return g.c.close() }

// Compile-time assertion that GeometryDB implements domain.GeometryWriter.
var _ domain.GeometryWriter = (*GeometryDB)(nil)
