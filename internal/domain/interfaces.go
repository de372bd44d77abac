package domain

import "io"

// ---------- Source store (read side) ----------

// StepDomain is a source store's step domain. Only the time domain is
// distinguished; any other domain is carried by its own name.
type StepDomain interface {
	IsTime() bool
	String() string
}

// SourceFrame is frame metadata from a source store. Ref is an opaque cursor
// the store uses to find the frame's values again; it never leaves the
// exporter.
type SourceFrame struct {
	Ref         int64
	Value       float64
	Description *string
}

// SourceStep is a step from a source store with its frames in source order.
type SourceStep struct {
	Name   string
	Domain StepDomain
	Frames []SourceFrame
}

// RawInstance is an instance as a source store yields it, before
// normalisation.
type RawInstance struct {
	Name     string
	Nodes    []RawNode
	Elements []RawElement
}

// RawNode carries 2 or 3 coordinates.
type RawNode struct {
	Label       int
	Coordinates []float64
}

// RawElement is an element as stored.
type RawElement struct {
	Label        int
	Type         string
	Connectivity []int
}

// RawValue is one per-entity field value. Data is whatever the store holds:
// a number, a 1-element sequence, or something malformed.
type RawValue struct {
	Instance     string
	Position     Position
	SectionPoint *SectionPoint
	NodeLabel    *int
	ElementLabel *int
	Data         any
}

// SourceStore is the read-only object graph of a results store.
type SourceStore interface {
	Instances() ([]RawInstance, error)
	Steps() ([]SourceStep, error)
	// EachValue calls fn for every value of field in frame, in store order.
	// It reports false when the frame has no such field.
	EachValue(frame SourceFrame, field string, fn func(RawValue) error) (bool, error)
	io.Closer
}

// ---------- Target store (write side) ----------

// StoreMeta identifies a newly created target store.
type StoreMeta struct {
	Name        string
	Title       string
	Description string
}

// PartRef, InstanceRef and the other refs are handles into one open session
// of a target store. They are invalid once that session is closed.
type (
	PartRef         struct{ ID, Gen int64 }
	InstanceRef     struct{ ID, Gen int64 }
	CategoryRef     struct{ ID, Gen int64 }
	SectionPointRef struct{ ID, Gen int64 }
	StepRef         struct{ ID, Gen int64 }
	FrameRef        struct{ ID, Gen int64 }
	FieldOutputRef  struct{ ID, Gen int64 }
)

// GeometryWriter is a target store in its geometry-definition phase.
type GeometryWriter interface {
	Part(name string) (PartRef, error)
	AddNodes(part PartRef, nodes []Node) error
	// AddElements takes a type-homogeneous batch.
	AddElements(part PartRef, elemType string, elems []Element) error
	Instance(name string, part PartRef) (InstanceRef, error)
	Save() error
	io.Closer
}

// DataBlock is one labelled-data append. SectionPoint must be nil unless
// Position is IntegrationPoint.
type DataBlock struct {
	Position     Position
	Instance     InstanceRef
	Labels       []int
	Data         [][]float64
	SectionPoint *SectionPointRef
}

// ResultsWriter is a reopened target store in its results-definition phase.
type ResultsWriter interface {
	Instances() (map[string]InstanceRef, error)
	SectionCategory(name, description string) (CategoryRef, error)
	SectionPoint(cat CategoryRef, number int, description string) (SectionPointRef, error)
	Step(name, description, domain string, timePeriod float64) (StepRef, error)
	Frame(step StepRef, increment int, value float64, description string) (FrameRef, error)
	FieldOutput(frame FrameRef, name, description string) (FieldOutputRef, error)
	AddData(fo FieldOutputRef, block DataBlock) error
	Save() error
	io.Closer
}

// TargetFactory creates and reopens target stores.
type TargetFactory interface {
	Create(path string, meta StoreMeta) (GeometryWriter, error)
	OpenWritable(path string) (ResultsWriter, error)
}

// ---------- Interchange artifacts ----------

// MeshStore persists the mesh document.
type MeshStore interface {
	SaveMesh(doc MeshDocument) error
	LoadMesh() (MeshDocument, error)
}

// CatalogStore persists the step/frame catalog.
type CatalogStore interface {
	SaveCatalog(cat StepCatalog) error
	LoadCatalog() (StepCatalog, error)
}

// BucketWriter appends buckets to the field-value stream.
type BucketWriter interface {
	WriteBucket(b FieldBucket) error
	// Commit makes the stream visible; Close without Commit discards it.
	Commit() error
	io.Closer
}

// BucketReader reads the field-value stream forward only. Next returns io.EOF
// after the last bucket.
type BucketReader interface {
	Next() (FieldBucket, error)
	io.Closer
}
