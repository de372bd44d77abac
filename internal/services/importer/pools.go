package importer

import (
	"odbbridge/internal/domain"
)

// sectionPoints creates each distinct (number, description) once.
type sectionPoints struct {
	rw  domain.ResultsWriter
	cat domain.CategoryRef
	m   map[domain.SectionPoint]domain.SectionPointRef
}

func newSectionPoints(rw domain.ResultsWriter, cat domain.CategoryRef) *sectionPoints {
	return &sectionPoints{rw: rw, cat: cat, m: make(map[domain.SectionPoint]domain.SectionPointRef)}
}

// get returns nil for a nil section point.
func (p *sectionPoints) get(sp *domain.SectionPoint) (*domain.SectionPointRef, error) {
	if sp == nil {
		return nil, nil
	}
	if ref, ok := p.m[*sp]; ok {
		return &ref, nil
	}
	ref, err := p.rw.SectionPoint(p.cat, sp.Number, sp.Description)
	if err != nil {
		return nil, err
	}
	p.m[*sp] = ref
	return &ref, nil
}

func (p *sectionPoints) len() int { return len(p.m) }

// fieldOutputs holds one field output per (step, frame).
type fieldOutputs struct {
	rw          domain.ResultsWriter
	name, descr string
	m           map[domain.FrameKey]domain.FieldOutputRef
}

func newFieldOutputs(rw domain.ResultsWriter, name, descr string) *fieldOutputs {
	return &fieldOutputs{rw: rw, name: name, descr: descr, m: make(map[domain.FrameKey]domain.FieldOutputRef)}
}

func (p *fieldOutputs) get(key domain.FrameKey, frame domain.FrameRef) (domain.FieldOutputRef, error) {
	if ref, ok := p.m[key]; ok {
		return ref, nil
	}
	ref, err := p.rw.FieldOutput(frame, p.name, p.descr)
	if err != nil {
		return domain.FieldOutputRef{}, err
	}
	p.m[key] = ref
	return ref, nil
}

func (p *fieldOutputs) len() int { return len(p.m) }
