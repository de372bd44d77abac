package exporter

import (
	"fmt"

	"go.uber.org/zap"

	"odbbridge/internal/domain"
)

// DefaultField is the nodal temperature field.
const DefaultField = "NT11"

// Options select what to export.
type Options struct {
	// Field is the scalar field to export; DefaultField when empty.
	Field string
	// Steps restricts the export to these step names; empty means all.
	Steps []string
}

// Summary counts what an export wrote.
type Summary struct {
	Instances     int
	Nodes         int
	Elements      int
	Steps         int
	Frames        int
	SkippedFrames int
	Buckets       int
	Values        int
}

// Service exports a source store into interchange artifacts.
type Service struct {
	src     domain.SourceStore
	mesh    domain.MeshStore
	catalog domain.CatalogStore
	log     *zap.Logger
}

// New returns an export service. A nil logger discards output.
func New(src domain.SourceStore, mesh domain.MeshStore, catalog domain.CatalogStore, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{src: src, mesh: mesh, catalog: catalog, log: log}
}

// Export extracts mesh and catalog, streams every frame, and only then
// writes mesh, catalog and the stream commit, in that order. A failure while
// extracting or streaming leaves the previous artifacts untouched; the
// caller's Close discards the uncommitted stream.
func (s *Service) Export(fields domain.BucketWriter, opts Options) (Summary, error) {
	if opts.Field == "" {
		opts.Field = DefaultField
	}
	var sum Summary

	doc, err := ExtractMesh(s.src)
	if err != nil {
		return sum, fmt.Errorf("extract mesh: %w", err)
	}
	for _, in := range doc.Instances {
		sum.Instances++
		sum.Nodes += len(in.Nodes)
		sum.Elements += len(in.Elements)
	}

	all, err := s.src.Steps()
	if err != nil {
		return sum, fmt.Errorf("list steps: %w", err)
	}
	steps := retain(all, opts.Steps)
	for _, name := range missing(all, opts.Steps) {
		s.log.Warn("Requested step not in source", zap.String("step", name))
	}
	cat := ExtractCatalog(steps)
	sum.Steps = len(cat.Steps)

	for _, st := range steps {
		for idx, fr := range st.Frames {
			sum.Frames++
			n, v, err := s.exportFrame(fields, st.Name, idx, fr, opts.Field)
			if err != nil {
				return sum, fmt.Errorf("step %q frame %d: %w", st.Name, idx, err)
			}
			if n == 0 {
				sum.SkippedFrames++
				continue
			}
			sum.Buckets += n
			sum.Values += v
			s.log.Debug("Exported frame",
				zap.String("step", st.Name),
				zap.Int("frame", idx),
				zap.Int("buckets", n),
				zap.Int("values", v))
		}
	}

	if err := s.mesh.SaveMesh(doc); err != nil {
		return sum, fmt.Errorf("write mesh: %w", err)
	}
	s.log.Info("Wrote mesh",
		zap.Int("instances", sum.Instances),
		zap.Int("nodes", sum.Nodes),
		zap.Int("elements", sum.Elements))
	if err := s.catalog.SaveCatalog(cat); err != nil {
		return sum, fmt.Errorf("write catalog: %w", err)
	}
	s.log.Info("Wrote step catalog", zap.Int("steps", sum.Steps))
	if err := fields.Commit(); err != nil {
		return sum, fmt.Errorf("commit field stream: %w", err)
	}
	s.log.Info("Wrote field stream",
		zap.String("field", opts.Field),
		zap.Int("buckets", sum.Buckets),
		zap.Int("values", sum.Values),
		zap.Int("skipped_frames", sum.SkippedFrames))
	return sum, nil
}

// exportFrame buckets one frame and flushes it. A frame without the field,
// or with no values, writes nothing.
func (s *Service) exportFrame(w domain.BucketWriter, step string, idx int, fr domain.SourceFrame, field string) (buckets, values int, err error) {
	fb := newFrameBuckets(step, idx, fr.Value)
	found, err := s.src.EachValue(fr, field, fb.add)
	if err != nil {
		return 0, 0, err
	}
	if !found || fb.values == 0 {
		return 0, 0, nil
	}
	for _, b := range fb.buckets() {
		if err := b.Validate(); err != nil {
			return 0, 0, err
		}
		if err := w.WriteBucket(b); err != nil {
			return 0, 0, err
		}
	}
	return len(fb.order), fb.values, nil
}

// ExtractMesh materialises every instance with nodes padded to 3-D.
func ExtractMesh(src domain.SourceStore) (domain.MeshDocument, error) {
	raw, err := src.Instances()
	if err != nil {
		return domain.MeshDocument{}, err
	}
	doc := domain.MeshDocument{Instances: make([]domain.InstanceMesh, 0, len(raw))}
	for _, ri := range raw {
		in := domain.InstanceMesh{
			Name:     ri.Name,
			Nodes:    make([]domain.Node, 0, len(ri.Nodes)),
			Elements: make([]domain.Element, 0, len(ri.Elements)),
		}
		for _, n := range ri.Nodes {
			node, err := domain.NodeFromCoordinates(n.Label, n.Coordinates)
			if err != nil {
				return domain.MeshDocument{}, fmt.Errorf("instance %q: %w", ri.Name, err)
			}
			in.Nodes = append(in.Nodes, node)
		}
		for _, e := range ri.Elements {
			in.Elements = append(in.Elements, domain.Element{
				Label:        e.Label,
				Type:         e.Type,
				Connectivity: append([]int{}, e.Connectivity...),
			})
		}
		doc.Instances = append(doc.Instances, in)
	}
	return doc, nil
}

// ExtractCatalog renders step and frame metadata in source order.
func ExtractCatalog(steps []domain.SourceStep) domain.StepCatalog {
	cat := domain.StepCatalog{Steps: make([]domain.Step, 0, len(steps))}
	for _, st := range steps {
		out := domain.Step{
			Name:      st.Name,
			Domain:    renderDomain(st.Domain),
			NumFrames: len(st.Frames),
			Frames:    make([]domain.Frame, 0, len(st.Frames)),
		}
		for idx, fr := range st.Frames {
			f := domain.Frame{Index: idx, Value: fr.Value}
			if fr.Description != nil {
				f.Description = *fr.Description
			}
			out.Frames = append(out.Frames, f)
		}
		cat.Steps = append(cat.Steps, out)
	}
	return cat
}

func renderDomain(d domain.StepDomain) string {
	if d == nil {
		return ""
	}
	if d.IsTime() {
		return domain.TimeDomain
	}
	return d.String()
}

// retain keeps steps named in allow, preserving source order. An empty
// allow-list keeps everything.
func retain(steps []domain.SourceStep, allow []string) []domain.SourceStep {
	if len(allow) == 0 {
		return steps
	}
	set := make(map[string]struct{}, len(allow))
	for _, name := range allow {
		set[name] = struct{}{}
	}
	out := make([]domain.SourceStep, 0, len(steps))
	for _, st := range steps {
		if _, ok := set[st.Name]; ok {
			out = append(out, st)
		}
	}
	return out
}

func missing(steps []domain.SourceStep, allow []string) []string {
	have := make(map[string]struct{}, len(steps))
	for _, st := range steps {
		have[st.Name] = struct{}{}
	}
	var out []string
	for _, name := range allow {
		if _, ok := have[name]; !ok {
			out = append(out, name)
		}
	}
	return out
}
