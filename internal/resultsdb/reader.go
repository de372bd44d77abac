package resultsdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"odbbridge/internal/domain"
)

// Reader is a read-only session implementing domain.SourceStore.
type Reader struct {
	c *conn
}

// OpenReadOnly opens an existing store for reading.
func OpenReadOnly(path string) (*Reader, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	c, err := openConn(path)
	if err != nil {
		return nil, err
	}
	if _, err := c.db.Exec(`PRAGMA query_only = ON`); err != nil {
		_ = c.close()
		return nil, fmt.Errorf("failed to configure %s: %w", path, err)
	}
	if err := c.requireCommittedGeometry(); err != nil {
		_ = c.close()
		return nil, err
	}
	return &Reader{c: c}, nil
}

// Meta returns the store's identifying metadata.
func (r *Reader) Meta() (domain.StoreMeta, error) {
	if err := r.c.live(); err != nil {
		return domain.StoreMeta{}, err
	}
	var m domain.StoreMeta
	var err error
	if m.Name, err = r.c.meta("name"); err != nil {
		return m, err
	}
	if m.Title, err = r.c.meta("title"); err != nil {
		return m, err
	}
	m.Description, err = r.c.meta("description")
	return m, err
}

// Instances returns every instance in creation order with its part's nodes
// and elements.
func (r *Reader) Instances() ([]domain.RawInstance, error) {
	if err := r.c.live(); err != nil {
		return nil, err
	}
	ctx := context.Background()
	rows, err := r.c.db.QueryContext(ctx, `SELECT name, part_id FROM instances ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list instances: %w", err)
	}
	type inst struct {
		name string
		part int64
	}
	var insts []inst
	for rows.Next() {
		var in inst
		if err := rows.Scan(&in.name, &in.part); err != nil {
			rows.Close()
			return nil, err
		}
		insts = append(insts, in)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	out := make([]domain.RawInstance, 0, len(insts))
	for _, in := range insts {
		ri := domain.RawInstance{Name: in.name}
		if ri.Nodes, err = r.nodes(ctx, in.part); err != nil {
			return nil, fmt.Errorf("instance %q: %w", in.name, err)
		}
		if ri.Elements, err = r.elements(ctx, in.part); err != nil {
			return nil, fmt.Errorf("instance %q: %w", in.name, err)
		}
		out = append(out, ri)
	}
	return out, nil
}

func (r *Reader) nodes(ctx context.Context, part int64) ([]domain.RawNode, error) {
	rows, err := r.c.db.QueryContext(ctx, `SELECT label, x, y, z FROM nodes WHERE part_id = ? ORDER BY id`, part)
	if err != nil {
		return nil, err
	}
	var out []domain.RawNode
	for rows.Next() {
		var label int
		var x, y, z float64
		if err := rows.Scan(&label, &x, &y, &z); err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, domain.RawNode{Label: label, Coordinates: []float64{x, y, z}})
	}
	return out, closeRows(rows)
}

func (r *Reader) elements(ctx context.Context, part int64) ([]domain.RawElement, error) {
	rows, err := r.c.db.QueryContext(ctx,
		`SELECT label, type, connectivity FROM elements WHERE part_id = ? ORDER BY id`, part)
	if err != nil {
		return nil, err
	}
	var out []domain.RawElement
	for rows.Next() {
		var e domain.RawElement
		var connJSON string
		if err := rows.Scan(&e.Label, &e.Type, &connJSON); err != nil {
			rows.Close()
			return nil, err
		}
		if err := json.Unmarshal([]byte(connJSON), &e.Connectivity); err != nil {
			rows.Close()
			return nil, fmt.Errorf("element %d connectivity: %w", e.Label, err)
		}
		out = append(out, e)
	}
	return out, closeRows(rows)
}

// Steps returns steps in creation order, each with its frames in creation
// order.
func (r *Reader) Steps() ([]domain.SourceStep, error) {
	if err := r.c.live(); err != nil {
		return nil, err
	}
	ctx := context.Background()
	rows, err := r.c.db.QueryContext(ctx, `
		SELECT s.id, s.name, s.domain, f.id, f.value, f.description
		FROM steps s LEFT JOIN frames f ON f.step_id = s.id
		ORDER BY s.id, f.id`)
	if err != nil {
		return nil, fmt.Errorf("list steps: %w", err)
	}
	var out []domain.SourceStep
	lastStep := int64(-1)
	for rows.Next() {
		var (
			stepID   int64
			name     string
			dom      int
			frameID  sql.NullInt64
			value    sql.NullFloat64
			descText sql.NullString
		)
		if err := rows.Scan(&stepID, &name, &dom, &frameID, &value, &descText); err != nil {
			rows.Close()
			return nil, err
		}
		if stepID != lastStep {
			out = append(out, domain.SourceStep{Name: name, Domain: Domain(dom)})
			lastStep = stepID
		}
		if !frameID.Valid {
			continue
		}
		fr := domain.SourceFrame{Ref: frameID.Int64, Value: value.Float64}
		if descText.Valid {
			d := descText.String
			fr.Description = &d
		}
		cur := &out[len(out)-1]
		cur.Frames = append(cur.Frames, fr)
	}
	return out, closeRows(rows)
}

// EachValue streams the values of field in frame in insertion order.
func (r *Reader) EachValue(frame domain.SourceFrame, field string, fn func(domain.RawValue) error) (bool, error) {
	if err := r.c.live(); err != nil {
		return false, err
	}
	ctx := context.Background()
	var foID int64
	err := r.c.db.QueryRowContext(ctx,
		`SELECT id FROM field_outputs WHERE frame_id = ? AND name = ?`, frame.Ref, field).Scan(&foID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("find field %s: %w", field, err)
	}

	rows, err := r.c.db.QueryContext(ctx, `
		SELECT i.name, v.position, sp.number, sp.description, v.node_label, v.element_label, v.data
		FROM field_values v
		JOIN instances i ON i.id = v.instance_id
		LEFT JOIN section_points sp ON sp.id = v.section_point_id
		WHERE v.field_output_id = ?
		ORDER BY v.id`, foID)
	if err != nil {
		return true, fmt.Errorf("read field %s: %w", field, err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			inst      string
			pos       int
			spNumber  sql.NullInt64
			spDesc    sql.NullString
			nodeLabel sql.NullInt64
			elemLabel sql.NullInt64
			data      string
		)
		if err := rows.Scan(&inst, &pos, &spNumber, &spDesc, &nodeLabel, &elemLabel, &data); err != nil {
			return true, err
		}
		v := domain.RawValue{Instance: inst, Position: Position(pos).Interchange()}
		if spNumber.Valid {
			v.SectionPoint = &domain.SectionPoint{Number: int(spNumber.Int64), Description: spDesc.String}
		}
		if nodeLabel.Valid {
			l := int(nodeLabel.Int64)
			v.NodeLabel = &l
		}
		if elemLabel.Valid {
			l := int(elemLabel.Int64)
			v.ElementLabel = &l
		}
		if err := json.Unmarshal([]byte(data), &v.Data); err != nil {
			return true, fmt.Errorf("decode value of %s: %w", inst, err)
		}
		if err := fn(v); err != nil {
			return true, err
		}
	}
	return true, rows.Err()
}

// Close closes the file.
func (r *Reader) Close() error { return r.c.close() }

// Compile-time assertion that Reader implements domain.SourceStore.
var _ domain.SourceStore = (*Reader)(nil)
