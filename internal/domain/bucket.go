package domain

import (
	"encoding/json"
	"fmt"
)

// SectionPoint is a through-thickness sub-location of integration point data.
type SectionPoint struct {
	Number      int    `json:"number"`
	Description string `json:"description"`
}

// DefaultSectionPointNumber stands in for a section point whose number is
// missing or null.
const DefaultSectionPointNumber = 1

// UnmarshalJSON defaults a missing or null number to
// DefaultSectionPointNumber and a missing or null description to "".
func (sp *SectionPoint) UnmarshalJSON(data []byte) error {
	var raw struct {
		Number      *int    `json:"number"`
		Description *string `json:"description"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("section point: %w", err)
	}
	*sp = SectionPoint{Number: DefaultSectionPointNumber}
	if raw.Number != nil {
		sp.Number = *raw.Number
	}
	if raw.Description != nil {
		sp.Description = *raw.Description
	}
	return nil
}

// SectionPointKey returns the canonical JSON form of sp, or "null" when sp is
// nil. Equal (number, description) pairs always produce the same key.
func SectionPointKey(sp *SectionPoint) string {
	if sp == nil {
		return "null"
	}
	b, err := json.Marshal(sp)
	if err != nil {
		// A struct of an int and a string always marshals.
		panic(err)
	}
	return string(b)
}

// FieldBucket is one line of the field-value stream: every labelled value
// sharing (step, frame, instance, position, section point).
//
// Values holds one slice per label. Scalars are wrapped as 1-element slices
// so vector fields can be added without changing the format.
type FieldBucket struct {
	Step         string        `json:"step"`
	FrameIndex   int           `json:"frame_index"`
	FrameValue   float64       `json:"frame_value"`
	Instance     string        `json:"instance"`
	Position     Position      `json:"position"`
	SectionPoint *SectionPoint `json:"section_point"`
	Labels       []int         `json:"labels"`
	Values       [][]float64   `json:"values"`
}

// Validate checks the bucket invariants: a known position, one value per
// label, unique labels and no empty value tuples.
func (b FieldBucket) Validate() error {
	if !b.Position.Known() {
		return fmt.Errorf("%w: %s/%d/%s: %w", ErrBucketInvalid, b.Step, b.FrameIndex, b.Instance,
			fmt.Errorf("%w: %q", ErrUnknownPosition, b.Position))
	}
	if len(b.Labels) != len(b.Values) {
		return fmt.Errorf("%w: %s/%d/%s: %d labels, %d values",
			ErrBucketInvalid, b.Step, b.FrameIndex, b.Instance, len(b.Labels), len(b.Values))
	}
	seen := make(map[int]struct{}, len(b.Labels))
	for i, l := range b.Labels {
		if _, dup := seen[l]; dup {
			return fmt.Errorf("%w: %s/%d/%s: duplicate label %d",
				ErrBucketInvalid, b.Step, b.FrameIndex, b.Instance, l)
		}
		seen[l] = struct{}{}
		if len(b.Values[i]) == 0 {
			return fmt.Errorf("%w: %s/%d/%s: empty value for label %d",
				ErrBucketInvalid, b.Step, b.FrameIndex, b.Instance, l)
		}
	}
	return nil
}

// Scalars returns label -> first value component.
func (b FieldBucket) Scalars() map[int]float64 {
	out := make(map[int]float64, len(b.Labels))
	for i, l := range b.Labels {
		if i < len(b.Values) && len(b.Values[i]) > 0 {
			out[l] = b.Values[i][0]
		}
	}
	return out
}

// FrameKey identifies a frame across the catalog and the stream.
type FrameKey struct {
	Step  string
	Index int
}

// Frame returns the bucket's frame key.
func (b FieldBucket) Frame() FrameKey { return FrameKey{Step: b.Step, Index: b.FrameIndex} }
