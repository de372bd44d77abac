package inspect

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"go.uber.org/zap"

	"odbbridge/internal/domain"
)

// Report describes one interchange set.
type Report struct {
	Instances int
	Nodes     int
	Elements  int
	Steps     int
	Frames    int
	Buckets   int
	Values    int
	// UncataloguedFrames counts stream frames the catalog does not list.
	UncataloguedFrames int
	// Positions counts buckets per position.
	Positions map[domain.Position]int
	// SectionPoints lists the distinct section point keys seen, sorted.
	SectionPoints []string
}

// Service validates and summarises artifacts.
type Service struct {
	mesh    domain.MeshStore
	catalog domain.CatalogStore
	log     *zap.Logger
}

// New returns an inspect service. A nil logger discards output.
func New(mesh domain.MeshStore, catalog domain.CatalogStore, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{mesh: mesh, catalog: catalog, log: log}
}

// Inspect reads every artifact and fails on the first invalid bucket or on a
// bucket naming an instance the mesh does not define.
func (s *Service) Inspect(fields domain.BucketReader) (Report, error) {
	rep := Report{Positions: make(map[domain.Position]int)}

	doc, err := s.mesh.LoadMesh()
	if err != nil {
		return rep, fmt.Errorf("read mesh: %w", err)
	}
	insts := make(map[string]struct{}, len(doc.Instances))
	for _, in := range doc.Instances {
		insts[in.Name] = struct{}{}
		rep.Instances++
		rep.Nodes += len(in.Nodes)
		rep.Elements += len(in.Elements)
	}

	cat, err := s.catalog.LoadCatalog()
	if err != nil {
		return rep, fmt.Errorf("read catalog: %w", err)
	}
	known := make(map[domain.FrameKey]struct{})
	for _, st := range cat.Steps {
		rep.Steps++
		for _, fr := range st.Frames {
			rep.Frames++
			known[domain.FrameKey{Step: st.Name, Index: fr.Index}] = struct{}{}
		}
	}

	extra := make(map[domain.FrameKey]struct{})
	sps := make(map[string]struct{})
	for {
		b, err := fields.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return rep, fmt.Errorf("read field stream: %w", err)
		}
		if err := b.Validate(); err != nil {
			return rep, fmt.Errorf("bucket %d: %w", rep.Buckets+1, err)
		}
		if _, ok := insts[b.Instance]; !ok {
			return rep, fmt.Errorf("bucket %d: %w: %q", rep.Buckets+1, domain.ErrUnknownInstance, b.Instance)
		}
		if _, ok := known[b.Frame()]; !ok {
			if _, seen := extra[b.Frame()]; !seen {
				extra[b.Frame()] = struct{}{}
				s.log.Warn("Frame missing from catalog",
					zap.String("step", b.Step),
					zap.Int("frame", b.FrameIndex))
			}
		}
		if b.SectionPoint != nil {
			sps[domain.SectionPointKey(b.SectionPoint)] = struct{}{}
		}
		rep.Buckets++
		rep.Values += len(b.Labels)
		rep.Positions[b.Position]++
	}
	rep.UncataloguedFrames = len(extra)
	for k := range sps {
		rep.SectionPoints = append(rep.SectionPoints, k)
	}
	sort.Strings(rep.SectionPoints)

	s.log.Info("Inspected interchange set",
		zap.Int("instances", rep.Instances),
		zap.Int("frames", rep.Frames),
		zap.Int("buckets", rep.Buckets),
		zap.Int("values", rep.Values))
	return rep, nil
}
