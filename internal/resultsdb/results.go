package resultsdb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"odbbridge/internal/domain"
)

// ResultsDB is a reopened store in its results-definition session.
type ResultsDB struct {
	c *conn
}

// OpenWritable reopens a store whose geometry has been saved.
func OpenWritable(path string) (*ResultsDB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	c, err := openConn(path)
	if err != nil {
		return nil, err
	}
	if err := c.requireCommittedGeometry(); err != nil {
		_ = c.close()
		return nil, err
	}
	if err := c.begin(); err != nil {
		_ = c.close()
		return nil, err
	}
	return &ResultsDB{c: c}, nil
}

// Instances maps instance name to a handle valid in this session.
func (r *ResultsDB) Instances() (map[string]domain.InstanceRef, error) {
	if err := r.c.live(); err != nil {
		return nil, err
	}
	rows, err := r.c.q().QueryContext(context.Background(), `SELECT id, name FROM instances`)
	if err != nil {
		return nil, fmt.Errorf("list instances: %w", err)
	}
	out := make(map[string]domain.InstanceRef)
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			rows.Close()
			return nil, err
		}
		out[name] = domain.InstanceRef{ID: id, Gen: r.c.gen}
	}
	return out, closeRows(rows)
}

// SectionCategory declares a section category.
func (r *ResultsDB) SectionCategory(name, description string) (domain.CategoryRef, error) {
	if err := r.c.live(); err != nil {
		return domain.CategoryRef{}, err
	}
	id, err := r.insert(`INSERT INTO section_categories (name, description) VALUES (?, ?)`, name, description)
	if err != nil {
		return domain.CategoryRef{}, fmt.Errorf("create section category %q: %w", name, err)
	}
	return domain.CategoryRef{ID: id, Gen: r.c.gen}, nil
}

// SectionPoint creates a section point in cat. Callers that want one point
// per (number, description) must pool the handles themselves.
func (r *ResultsDB) SectionPoint(cat domain.CategoryRef, number int, description string) (domain.SectionPointRef, error) {
	if err := r.c.check(cat.Gen); err != nil {
		return domain.SectionPointRef{}, err
	}
	id, err := r.insert(`INSERT INTO section_points (category_id, number, description) VALUES (?, ?, ?)`,
		cat.ID, number, description)
	if err != nil {
		return domain.SectionPointRef{}, fmt.Errorf("create section point %d: %w", number, err)
	}
	return domain.SectionPointRef{ID: id, Gen: r.c.gen}, nil
}

// Step creates a step. domainName is a rendered domain such as "TIME".
func (r *ResultsDB) Step(name, description, domainName string, timePeriod float64) (domain.StepRef, error) {
	if err := r.c.live(); err != nil {
		return domain.StepRef{}, err
	}
	d, err := ParseDomain(domainName)
	if err != nil {
		return domain.StepRef{}, fmt.Errorf("create step %q: %w", name, err)
	}
	id, err := r.insert(`INSERT INTO steps (name, description, domain, time_period) VALUES (?, ?, ?, ?)`,
		name, description, int(d), timePeriod)
	if err != nil {
		return domain.StepRef{}, fmt.Errorf("create step %q: %w", name, err)
	}
	return domain.StepRef{ID: id, Gen: r.c.gen}, nil
}

// Frame appends a frame to step.
func (r *ResultsDB) Frame(step domain.StepRef, increment int, value float64, description string) (domain.FrameRef, error) {
	if err := r.c.check(step.Gen); err != nil {
		return domain.FrameRef{}, err
	}
	id, err := r.insert(`INSERT INTO frames (step_id, increment, value, description) VALUES (?, ?, ?, ?)`,
		step.ID, increment, value, description)
	if err != nil {
		return domain.FrameRef{}, fmt.Errorf("create frame %d: %w", increment, err)
	}
	return domain.FrameRef{ID: id, Gen: r.c.gen}, nil
}

// FieldOutput creates a scalar field output on frame.
func (r *ResultsDB) FieldOutput(frame domain.FrameRef, name, description string) (domain.FieldOutputRef, error) {
	if err := r.c.check(frame.Gen); err != nil {
		return domain.FieldOutputRef{}, err
	}
	id, err := r.insert(`INSERT INTO field_outputs (frame_id, name, description, kind) VALUES (?, ?, ?, 'SCALAR')`,
		frame.ID, name, description)
	if err != nil {
		return domain.FieldOutputRef{}, fmt.Errorf("create field output %q: %w", name, err)
	}
	return domain.FieldOutputRef{ID: id, Gen: r.c.gen}, nil
}

// AddData appends labelled scalar values. A label may carry at most one
// value per (field output, instance, position, section point).
func (r *ResultsDB) AddData(fo domain.FieldOutputRef, b domain.DataBlock) error {
	if err := r.c.check(fo.Gen); err != nil {
		return err
	}
	if err := r.c.check(b.Instance.Gen); err != nil {
		return err
	}
	pos, err := positionCode(b.Position)
	if err != nil {
		return err
	}
	var sp any
	if b.SectionPoint != nil {
		if b.Position != domain.IntegrationPoint {
			return fmt.Errorf("add data at %s: %w", b.Position, ErrSectionPointPosition)
		}
		if err := r.c.check(b.SectionPoint.Gen); err != nil {
			return err
		}
		sp = b.SectionPoint.ID
	}
	if len(b.Labels) != len(b.Data) {
		return fmt.Errorf("add data: %d labels, %d values", len(b.Labels), len(b.Data))
	}

	ctx := context.Background()
	stmt, err := r.c.tx.PrepareContext(ctx, `
		INSERT INTO field_values
			(field_output_id, instance_id, position, section_point_id, node_label, element_label, data)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, label := range b.Labels {
		if len(b.Data[i]) != 1 {
			return fmt.Errorf("add data label %d: scalar field takes 1 component, got %d", label, len(b.Data[i]))
		}
		var nodeLabel, elemLabel any
		if b.Position == domain.Nodal {
			nodeLabel = label
		} else {
			elemLabel = label
		}
		data := "[" + strconv.FormatFloat(b.Data[i][0], 'g', -1, 64) + "]"
		if _, err := stmt.ExecContext(ctx, fo.ID, b.Instance.ID, int(pos), sp, nodeLabel, elemLabel, data); err != nil {
			return fmt.Errorf("add data label %d: %w", label, err)
		}
	}
	return nil
}

func (r *ResultsDB) insert(query string, args ...any) (int64, error) {
	res, err := r.c.q().ExecContext(context.Background(), query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// Save commits everything written so far and keeps the session open.
func (r *ResultsDB) Save() error {
	if err := r.c.live(); err != nil {
		return err
	}
	if err := r.c.setMeta("phase", phaseResultsCommitted); err != nil {
		return err
	}
	if err := r.c.commit(); err != nil {
		return err
	}
	return r.c.begin()
}

// Close discards anything unsaved and closes the file.
func (r *ResultsDB) Close() error { return r.c.close() }

// Compile-time assertion that ResultsDB implements domain.ResultsWriter.
var _ domain.ResultsWriter = (*ResultsDB)(nil)

// Factory creates and reopens SQLite results stores.
type Factory struct {
	Options Options
}

// Create implements domain.TargetFactory.
func (f Factory) Create(path string, meta domain.StoreMeta) (domain.GeometryWriter, error) {
	g, err := Create(path, meta, f.Options)
	if err != nil {
		return nil, err
	}
	return g, nil
}

// OpenWritable implements domain.TargetFactory.
func (f Factory) OpenWritable(path string) (domain.ResultsWriter, error) {
	r, err := OpenWritable(path)
	if err != nil {
		return nil, err
	}
	return r, nil
}

var _ domain.TargetFactory = Factory{}

// IsSequencingError reports whether err comes from using the store out of
// order.
func IsSequencingError(err error) bool {
	return errors.Is(err, ErrGeometryNotCommitted) ||
		errors.Is(err, ErrGeometrySealed) ||
		errors.Is(err, ErrStaleHandle) ||
		errors.Is(err, ErrClosed)
}
