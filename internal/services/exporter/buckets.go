package exporter

import (
	"odbbridge/internal/domain"
)

type bucketKey struct {
	instance     string
	position     domain.Position
	sectionPoint string
}

// frameBuckets accumulates one frame's values. Buckets keep the order in
// which their key was first seen and values keep arrival order.
type frameBuckets struct {
	step       string
	frameIndex int
	frameValue float64
	order      []bucketKey
	byKey      map[bucketKey]*domain.FieldBucket
	values     int
}

func newFrameBuckets(step string, index int, value float64) *frameBuckets {
	return &frameBuckets{
		step:       step,
		frameIndex: index,
		frameValue: value,
		byKey:      make(map[bucketKey]*domain.FieldBucket),
	}
}

func (fb *frameBuckets) add(v domain.RawValue) error {
	lbl, err := label(v)
	if err != nil {
		return err
	}
	f, err := scalar(v.Data)
	if err != nil {
		return err
	}
	key := bucketKey{instance: v.Instance, position: v.Position, sectionPoint: domain.SectionPointKey(v.SectionPoint)}
	b, ok := fb.byKey[key]
	if !ok {
		var sp *domain.SectionPoint
		if v.SectionPoint != nil {
			cp := *v.SectionPoint
			sp = &cp
		}
		b = &domain.FieldBucket{
			Step:         fb.step,
			FrameIndex:   fb.frameIndex,
			FrameValue:   fb.frameValue,
			Instance:     v.Instance,
			Position:     v.Position,
			SectionPoint: sp,
		}
		fb.byKey[key] = b
		fb.order = append(fb.order, key)
	}
	b.Labels = append(b.Labels, lbl)
	b.Values = append(b.Values, []float64{f})
	fb.values++
	return nil
}

// buckets returns the accumulated buckets in first-seen order.
func (fb *frameBuckets) buckets() []domain.FieldBucket {
	out := make([]domain.FieldBucket, 0, len(fb.order))
	for _, k := range fb.order {
		out = append(out, *fb.byKey[k])
	}
	return out
}
