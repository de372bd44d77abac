package importer_test

import (
	"errors"
	"fmt"
	"io"

	"odbbridge/internal/domain"
)

var errOutOfOrder = errors.New("spy: out of order")

// spyStore is a TargetFactory double that records every call and rejects
// results writes unless the geometry session was saved and closed first.
type spyStore struct {
	events []string

	created, saved, closed bool
	reopened, resultsDone  bool
	instances              map[string]domain.InstanceRef
	nextID                 int64

	nodes    map[int64][]domain.Node
	elements map[int64][]elementBatch
	steps    map[string]stepRec
	frames   map[int64]frameRec
	sps      []domain.SectionPoint
	outputs  map[int64]int64 // field output id -> frame id
	data     []addDataRec

	failAddData error
}

type elementBatch struct {
	typ   string
	elems []domain.Element
}

type stepRec struct {
	ref        domain.StepRef
	domain     string
	timePeriod float64
}

type frameRec struct {
	step        int64
	increment   int
	value       float64
	description string
}

type addDataRec struct {
	fo    domain.FieldOutputRef
	block domain.DataBlock
}

func newSpy() *spyStore {
	return &spyStore{
		instances: make(map[string]domain.InstanceRef),
		nodes:     make(map[int64][]domain.Node),
		elements:  make(map[int64][]elementBatch),
		steps:     make(map[string]stepRec),
		frames:    make(map[int64]frameRec),
		outputs:   make(map[int64]int64),
	}
}

func (s *spyStore) id() int64 { s.nextID++; return s.nextID }

func (s *spyStore) log(format string, args ...any) { s.events = append(s.events, fmt.Sprintf(format, args...)) }

func (s *spyStore) Create(path string, meta domain.StoreMeta) (domain.GeometryWriter, error) {
	s.log("geometry.create")
	s.created = true
	return &spyGeometry{s: s}, nil
}

func (s *spyStore) OpenWritable(path string) (domain.ResultsWriter, error) {
	if !s.saved || !s.closed {
		return nil, errOutOfOrder
	}
	s.log("results.open")
	s.reopened = true
	return &spyResults{s: s}, nil
}

type spyGeometry struct{ s *spyStore }

func (g *spyGeometry) geomOK() error {
	if g.s.saved || g.s.closed {
		return errOutOfOrder
	}
	return nil
}

func (g *spyGeometry) Part(name string) (domain.PartRef, error) {
	if err := g.geomOK(); err != nil {
		return domain.PartRef{}, err
	}
	g.s.log("geometry.part %s", name)
	return domain.PartRef{ID: g.s.id()}, nil
}

func (g *spyGeometry) AddNodes(p domain.PartRef, nodes []domain.Node) error {
	if err := g.geomOK(); err != nil {
		return err
	}
	g.s.log("geometry.nodes %d", len(nodes))
	g.s.nodes[p.ID] = append(g.s.nodes[p.ID], nodes...)
	return nil
}

func (g *spyGeometry) AddElements(p domain.PartRef, typ string, elems []domain.Element) error {
	if err := g.geomOK(); err != nil {
		return err
	}
	g.s.log("geometry.elements %s %d", typ, len(elems))
	g.s.elements[p.ID] = append(g.s.elements[p.ID], elementBatch{typ: typ, elems: elems})
	return nil
}

func (g *spyGeometry) Instance(name string, p domain.PartRef) (domain.InstanceRef, error) {
	if err := g.geomOK(); err != nil {
		return domain.InstanceRef{}, err
	}
	g.s.log("geometry.instance %s", name)
	ref := domain.InstanceRef{ID: p.ID}
	g.s.instances[name] = ref
	return ref, nil
}

func (g *spyGeometry) Save() error {
	if err := g.geomOK(); err != nil {
		return err
	}
	g.s.log("geometry.save")
	g.s.saved = true
	return nil
}

func (g *spyGeometry) Close() error {
	g.s.log("geometry.close")
	g.s.closed = true
	return nil
}

type spyResults struct{ s *spyStore }

func (r *spyResults) ok() error {
	if !r.s.reopened || r.s.resultsDone {
		return errOutOfOrder
	}
	return nil
}

func (r *spyResults) Instances() (map[string]domain.InstanceRef, error) {
	if err := r.ok(); err != nil {
		return nil, err
	}
	r.s.log("results.instances")
	return r.s.instances, nil
}

func (r *spyResults) SectionCategory(name, description string) (domain.CategoryRef, error) {
	if err := r.ok(); err != nil {
		return domain.CategoryRef{}, err
	}
	r.s.log("results.category %s", name)
	return domain.CategoryRef{ID: r.s.id()}, nil
}

func (r *spyResults) SectionPoint(cat domain.CategoryRef, number int, description string) (domain.SectionPointRef, error) {
	if err := r.ok(); err != nil {
		return domain.SectionPointRef{}, err
	}
	r.s.log("results.sectionpoint %d", number)
	r.s.sps = append(r.s.sps, domain.SectionPoint{Number: number, Description: description})
	return domain.SectionPointRef{ID: r.s.id()}, nil
}

func (r *spyResults) Step(name, description, dom string, timePeriod float64) (domain.StepRef, error) {
	if err := r.ok(); err != nil {
		return domain.StepRef{}, err
	}
	switch dom {
	case "TIME", "FREQUENCY", "ARC_LENGTH", "MODAL":
	default:
		return domain.StepRef{}, fmt.Errorf("spy: step %q: %w: %q", name, domain.ErrUnknownDomain, dom)
	}
	if _, dup := r.s.steps[name]; dup {
		return domain.StepRef{}, fmt.Errorf("spy: duplicate step %q", name)
	}
	r.s.log("results.step %s", name)
	ref := domain.StepRef{ID: r.s.id()}
	r.s.steps[name] = stepRec{ref: ref, domain: dom, timePeriod: timePeriod}
	return ref, nil
}

func (r *spyResults) Frame(step domain.StepRef, increment int, value float64, description string) (domain.FrameRef, error) {
	if err := r.ok(); err != nil {
		return domain.FrameRef{}, err
	}
	r.s.log("results.frame %d", increment)
	ref := domain.FrameRef{ID: r.s.id()}
	r.s.frames[ref.ID] = frameRec{step: step.ID, increment: increment, value: value, description: description}
	return ref, nil
}

func (r *spyResults) FieldOutput(frame domain.FrameRef, name, description string) (domain.FieldOutputRef, error) {
	if err := r.ok(); err != nil {
		return domain.FieldOutputRef{}, err
	}
	r.s.log("results.fieldoutput %s", name)
	ref := domain.FieldOutputRef{ID: r.s.id()}
	r.s.outputs[ref.ID] = frame.ID
	return ref, nil
}

func (r *spyResults) AddData(fo domain.FieldOutputRef, b domain.DataBlock) error {
	if err := r.ok(); err != nil {
		return err
	}
	if r.s.failAddData != nil {
		return r.s.failAddData
	}
	r.s.log("results.adddata %s", b.Position)
	r.s.data = append(r.s.data, addDataRec{fo: fo, block: b})
	return nil
}

func (r *spyResults) Save() error {
	if err := r.ok(); err != nil {
		return err
	}
	r.s.log("results.save")
	return nil
}

func (r *spyResults) Close() error {
	r.s.log("results.close")
	r.s.resultsDone = true
	return nil
}

// Artifact doubles.

type memMesh struct{ doc domain.MeshDocument }

func (m *memMesh) SaveMesh(d domain.MeshDocument) error   { m.doc = d; return nil }
func (m *memMesh) LoadMesh() (domain.MeshDocument, error) { return m.doc, nil }

type memCatalog struct{ cat domain.StepCatalog }

func (m *memCatalog) SaveCatalog(c domain.StepCatalog) error   { m.cat = c; return nil }
func (m *memCatalog) LoadCatalog() (domain.StepCatalog, error) { return m.cat, nil }

type sliceReader struct {
	buckets []domain.FieldBucket
	pos     int
}

func (r *sliceReader) Next() (domain.FieldBucket, error) {
	if r.pos >= len(r.buckets) {
		return domain.FieldBucket{}, io.EOF
	}
	b := r.buckets[r.pos]
	r.pos++
	return b, nil
}

func (r *sliceReader) Close() error { return nil }
