package importer

import (
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"odbbridge/internal/domain"
)

// Settings name the objects the importer creates in the target store.
type Settings struct {
	Meta                       domain.StoreMeta
	PartPrefix                 string
	SectionCategory            string
	SectionCategoryDescription string
	Field                      string
	FieldDescription           string
	StepDescription            string
	// Steps restricts the import to these step names; empty means all.
	Steps []string
}

// DefaultSettings returns the names the exporter's counterpart has always used.
func DefaultSettings() Settings {
	return Settings{
		Meta: domain.StoreMeta{
			Name:        "derivedNT11",
			Title:       "Imported from JSON(L)",
			Description: "Mesh + NT11 reconstructed from export",
		},
		PartPrefix:                 "PART_FROM_",
		SectionCategory:            "GEN_SEC_CAT",
		SectionCategoryDescription: "Generic section category for imported IP data",
		Field:                      "NT11",
		FieldDescription:           "Imported temperature",
		StepDescription:            "Imported step",
	}
}

// Summary counts what an import created.
type Summary struct {
	Instances      int
	Nodes          int
	Elements       int
	Steps          int
	Frames         int
	LazyFrames     int
	FieldOutputs   int
	SectionPoints  int
	Buckets        int
	Values         int
	SkippedBuckets int
	Fingerprint    string
}

// Service imports interchange artifacts into a new target store.
type Service struct {
	factory domain.TargetFactory
	mesh    domain.MeshStore
	catalog domain.CatalogStore
	set     Settings
	log     *zap.Logger
}

// New returns an import service. A nil logger discards output.
func New(factory domain.TargetFactory, mesh domain.MeshStore, catalog domain.CatalogStore, set Settings, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{factory: factory, mesh: mesh, catalog: catalog, set: set, log: log}
}

// Import builds the store at target from the mesh, the catalog and fields.
// fields is read forward once; the caller keeps ownership and closes it.
func (s *Service) Import(target string, fields domain.BucketReader) (Summary, error) {
	r := &run{svc: s, target: target, allow: allowSet(s.set.Steps)}

	doc, err := s.mesh.LoadMesh()
	if err != nil {
		return r.sum, fmt.Errorf("read mesh: %w", err)
	}
	cat, err := s.catalog.LoadCatalog()
	if err != nil {
		return r.sum, fmt.Errorf("read catalog: %w", err)
	}

	if err := r.geometry(doc); err != nil {
		return r.sum, fmt.Errorf("geometry stage: %w", err)
	}
	if err := r.results(cat, fields); err != nil {
		return r.sum, fmt.Errorf("results stage: %w", err)
	}
	return r.sum, nil
}

// run is the state of one Import call.
type run struct {
	svc    *Service
	target string
	allow  map[string]struct{}
	ph     phases
	sum    Summary
}

func (r *run) log() *zap.Logger { return r.svc.log }

func (r *run) allowed(step string) bool {
	if len(r.allow) == 0 {
		return true
	}
	_, ok := r.allow[step]
	return ok
}

// geometry creates parts and instances, then persists and closes the store.
func (r *run) geometry(doc domain.MeshDocument) (err error) {
	if err := r.ph.require(PhaseEmpty); err != nil {
		return err
	}
	set := r.svc.set
	r.log().Info("Creating results store", zap.String("path", r.target), zap.String("name", set.Meta.Name))

	gw, err := r.svc.factory.Create(r.target, set.Meta)
	if err != nil {
		return err
	}
	closed := false
	defer func() {
		if !closed {
			err = errors.Join(err, gw.Close())
		}
	}()

	for _, in := range doc.Instances {
		if err := r.instance(gw, in); err != nil {
			return fmt.Errorf("instance %q: %w", in.Name, err)
		}
	}
	if err := r.ph.advance(PhaseGeometryBuilt); err != nil {
		return err
	}

	r.log().Info("Committing geometry", zap.Int("instances", r.sum.Instances))
	if err := gw.Save(); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	if fp, ok := gw.(interface{ Fingerprint() (string, error) }); ok {
		if r.sum.Fingerprint, err = fp.Fingerprint(); err != nil {
			return err
		}
	}
	closed = true
	if err := gw.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	return r.ph.advance(PhaseGeometryCommitted)
}

// instance creates one part, its nodes, its elements grouped by type and the
// instance that places it.
func (r *run) instance(gw domain.GeometryWriter, in domain.InstanceMesh) error {
	part, err := gw.Part(r.svc.set.PartPrefix + in.Name)
	if err != nil {
		return err
	}
	if len(in.Nodes) > 0 {
		if err := gw.AddNodes(part, in.Nodes); err != nil {
			return err
		}
	}
	for _, g := range groupByType(in.Elements) {
		if err := gw.AddElements(part, g.typ, g.elems); err != nil {
			return fmt.Errorf("elements %s: %w", g.typ, err)
		}
	}
	if _, err := gw.Instance(in.Name, part); err != nil {
		return err
	}
	r.sum.Instances++
	r.sum.Nodes += len(in.Nodes)
	r.sum.Elements += len(in.Elements)
	r.log().Debug("Built instance",
		zap.String("instance", in.Name),
		zap.Int("nodes", len(in.Nodes)),
		zap.Int("elements", len(in.Elements)))
	return nil
}

type typeGroup struct {
	typ   string
	elems []domain.Element
}

// groupByType splits elements into type-homogeneous batches, ordered by first
// appearance of each type.
func groupByType(elems []domain.Element) []typeGroup {
	var out []typeGroup
	idx := make(map[string]int)
	for _, e := range elems {
		i, ok := idx[e.Type]
		if !ok {
			i = len(out)
			idx[e.Type] = i
			out = append(out, typeGroup{typ: e.Type})
		}
		out[i].elems = append(out[i].elems, e)
	}
	return out
}

// results reopens the store and writes steps, frames and field data.
func (r *run) results(cat domain.StepCatalog, fields domain.BucketReader) (err error) {
	if err := r.ph.require(PhaseGeometryCommitted); err != nil {
		return err
	}
	set := r.svc.set
	r.log().Info("Reopening results store", zap.String("path", r.target))

	rw, err := r.svc.factory.OpenWritable(r.target)
	if err != nil {
		return err
	}
	closed := false
	defer func() {
		if !closed {
			err = errors.Join(err, rw.Close())
		}
	}()
	if err := r.ph.advance(PhaseResultsBuilding); err != nil {
		return err
	}

	insts, err := rw.Instances()
	if err != nil {
		return err
	}
	sc, err := rw.SectionCategory(set.SectionCategory, set.SectionCategoryDescription)
	if err != nil {
		return err
	}
	w := &resultsWriter{
		run:     r,
		rw:      rw,
		insts:   insts,
		sps:     newSectionPoints(rw, sc),
		outputs: newFieldOutputs(rw, set.Field, set.FieldDescription),
		steps:   make(map[string]domain.StepRef),
		frames:  make(map[domain.FrameKey]domain.FrameRef),
	}

	for _, st := range cat.Steps {
		if !r.allowed(st.Name) {
			continue
		}
		if err := w.step(st); err != nil {
			return fmt.Errorf("step %q: %w", st.Name, err)
		}
	}
	r.log().Info("Created steps and frames", zap.Int("steps", r.sum.Steps), zap.Int("frames", r.sum.Frames))

	for {
		b, err := fields.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("read field stream: %w", err)
		}
		if !r.allowed(b.Step) {
			r.sum.SkippedBuckets++
			continue
		}
		if err := w.bucket(b); err != nil {
			return fmt.Errorf("bucket %d (%s/%d/%s): %w", r.sum.Buckets+r.sum.SkippedBuckets+1, b.Step, b.FrameIndex, b.Instance, err)
		}
	}
	r.sum.FieldOutputs = w.outputs.len()
	r.sum.SectionPoints = w.sps.len()

	if err := rw.Save(); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	closed = true
	if err := rw.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	if err := r.ph.advance(PhaseResultsCommitted); err != nil {
		return err
	}
	r.log().Info("Wrote field data",
		zap.Int("buckets", r.sum.Buckets),
		zap.Int("values", r.sum.Values),
		zap.Int("lazy_frames", r.sum.LazyFrames))
	return nil
}

// resultsWriter holds the lookups of the results stage.
type resultsWriter struct {
	run     *run
	rw      domain.ResultsWriter
	insts   map[string]domain.InstanceRef
	sps     *sectionPoints
	outputs *fieldOutputs
	steps   map[string]domain.StepRef
	frames  map[domain.FrameKey]domain.FrameRef
}

func (w *resultsWriter) step(st domain.Step) error {
	ref, err := w.newStep(st.Name, st.Domain, st.TimePeriod())
	if err != nil {
		return err
	}
	for _, fr := range st.Frames {
		if _, err := w.newFrame(ref, domain.FrameKey{Step: st.Name, Index: fr.Index}, fr.Value, fr.Description); err != nil {
			return err
		}
	}
	return nil
}

func (w *resultsWriter) newStep(name, dom string, period float64) (domain.StepRef, error) {
	if dom == "" {
		dom = domain.TimeDomain
	}
	descr := w.run.svc.set.StepDescription
	ref, err := w.rw.Step(name, descr, dom, period)
	if errors.Is(err, domain.ErrUnknownDomain) && dom != domain.TimeDomain {
		w.run.log().Warn("Step domain not supported by target, using TIME",
			zap.String("step", name),
			zap.String("domain", dom))
		ref, err = w.rw.Step(name, descr, domain.TimeDomain, period)
	}
	if err != nil {
		return domain.StepRef{}, err
	}
	w.steps[name] = ref
	w.run.sum.Steps++
	return ref, nil
}

func (w *resultsWriter) newFrame(step domain.StepRef, key domain.FrameKey, value float64, descr string) (domain.FrameRef, error) {
	ref, err := w.rw.Frame(step, key.Index, value, descr)
	if err != nil {
		return domain.FrameRef{}, fmt.Errorf("frame %d: %w", key.Index, err)
	}
	w.frames[key] = ref
	w.run.sum.Frames++
	return ref, nil
}

// frame resolves the bucket's frame, creating the step or frame when the
// catalog left them out.
func (w *resultsWriter) frame(b domain.FieldBucket) (domain.FrameRef, error) {
	key := b.Frame()
	if ref, ok := w.frames[key]; ok {
		return ref, nil
	}
	step, ok := w.steps[b.Step]
	if !ok {
		var err error
		if step, err = w.newStep(b.Step, domain.TimeDomain, max(0, b.FrameValue)); err != nil {
			return domain.FrameRef{}, err
		}
	}
	w.run.log().Warn("Frame missing from catalog",
		zap.String("step", b.Step),
		zap.Int("frame", b.FrameIndex))
	w.run.sum.LazyFrames++
	return w.newFrame(step, key, b.FrameValue, "")
}

func (w *resultsWriter) bucket(b domain.FieldBucket) error {
	if err := w.run.ph.require(PhaseResultsBuilding); err != nil {
		return err
	}
	if err := b.Validate(); err != nil {
		return err
	}
	inst, ok := w.insts[b.Instance]
	if !ok {
		return fmt.Errorf("%w: %q", domain.ErrUnknownInstance, b.Instance)
	}
	fr, err := w.frame(b)
	if err != nil {
		return err
	}
	fo, err := w.outputs.get(b.Frame(), fr)
	if err != nil {
		return err
	}
	sp, err := w.sps.get(b.SectionPoint)
	if err != nil {
		return err
	}
	block := domain.DataBlock{
		Position: b.Position,
		Instance: inst,
		Labels:   b.Labels,
		Data:     b.Values,
	}
	if b.Position == domain.IntegrationPoint && sp != nil {
		block.SectionPoint = sp
	}
	if err := w.rw.AddData(fo, block); err != nil {
		return err
	}
	w.run.sum.Buckets++
	w.run.sum.Values += len(b.Labels)
	return nil
}

func allowSet(steps []string) map[string]struct{} {
	if len(steps) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(steps))
	for _, s := range steps {
		out[s] = struct{}{}
	}
	return out
}
