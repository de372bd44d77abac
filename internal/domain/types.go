package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Node is a mesh node with 3-D coordinates. Labels are unique per instance.
type Node struct {
	Label   int
	X, Y, Z float64
}

// MarshalJSON encodes a node as [label, x, y, z].
func (n Node) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]any{n.Label, n.X, n.Y, n.Z})
}

// UnmarshalJSON mirrors MarshalJSON.
func (n *Node) UnmarshalJSON(data []byte) error {
	var raw []json.Number
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("node: %w", err)
	}
	if len(raw) != 4 {
		return fmt.Errorf("node: want [label,x,y,z], got %d components", len(raw))
	}
	label, err := raw[0].Int64()
	if err != nil {
		return fmt.Errorf("node label %q: %w", raw[0], err)
	}
	var xyz [3]float64
	for i := range xyz {
		if xyz[i], err = raw[i+1].Float64(); err != nil {
			return fmt.Errorf("node %d coordinate %d: %w", label, i, err)
		}
	}
	*n = Node{Label: int(label), X: xyz[0], Y: xyz[1], Z: xyz[2]}
	return nil
}

// NodeFromCoordinates pads 2-D coordinates to 3-D. Any other arity is an error.
func NodeFromCoordinates(label int, coords []float64) (Node, error) {
	switch len(coords) {
	case 2:
		return Node{Label: label, X: coords[0], Y: coords[1]}, nil
	case 3:
		return Node{Label: label, X: coords[0], Y: coords[1], Z: coords[2]}, nil
	}
	return Node{}, fmt.Errorf("node %d: %d coordinates", label, len(coords))
}

// Element is a mesh element. Type names the topology family (e.g. "DC3D8").
type Element struct {
	Label        int    `json:"label"`
	Type         string `json:"type"`
	Connectivity []int  `json:"connectivity"`
}

// InstanceMesh is the geometry of one named instance.
type InstanceMesh struct {
	Name     string    `json:"-"`
	Nodes    []Node    `json:"nodes"`
	Elements []Element `json:"elements"`
}

// MeshDocument maps instance name to geometry. Instances keep source order,
// which is also their order on disk.
type MeshDocument struct {
	Instances []InstanceMesh
}

// Instance returns the named instance.
func (d MeshDocument) Instance(name string) (InstanceMesh, bool) {
	for _, in := range d.Instances {
		if in.Name == name {
			return in, true
		}
	}
	return InstanceMesh{}, false
}

// MarshalJSON writes {"instances": {name: {...}, ...}} in slice order.
func (d MeshDocument) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"instances":{`)
	for i, in := range d.Instances {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(in.Name)
		if err != nil {
			return nil, err
		}
		if in.Nodes == nil {
			in.Nodes = []Node{}
		}
		if in.Elements == nil {
			in.Elements = []Element{}
		}
		body, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("instance %q: %w", in.Name, err)
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(body)
	}
	buf.WriteString(`}}`)
	return buf.Bytes(), nil
}

// UnmarshalJSON reads the instances object token by token so that document
// order survives.
func (d *MeshDocument) UnmarshalJSON(data []byte) error {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return fmt.Errorf("mesh document: %w", err)
	}
	raw, ok := top["instances"]
	if !ok {
		return fmt.Errorf("mesh document: missing \"instances\"")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("mesh document: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("mesh document: \"instances\" is not an object")
	}
	d.Instances = nil
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("mesh document: %w", err)
		}
		name, _ := tok.(string)
		var in InstanceMesh
		if err := dec.Decode(&in); err != nil {
			return fmt.Errorf("instance %q: %w", name, err)
		}
		in.Name = name
		if in.Nodes == nil {
			in.Nodes = []Node{}
		}
		if in.Elements == nil {
			in.Elements = []Element{}
		}
		d.Instances = append(d.Instances, in)
	}
	return nil
}

// Frame is one time/load sample within a step.
type Frame struct {
	Index       int     `json:"index"`
	Value       float64 `json:"value"`
	Description string  `json:"description"`
}

// Step is a named analysis step. Name is the join key with the field stream.
type Step struct {
	Name      string  `json:"name"`
	Domain    string  `json:"domain"`
	NumFrames int     `json:"numFrames"`
	Frames    []Frame `json:"frames"`
}

// TimePeriod is the larger of zero and the last frame value.
func (s Step) TimePeriod() float64 {
	if len(s.Frames) == 0 {
		return 0
	}
	return max(0, s.Frames[len(s.Frames)-1].Value)
}

// StepCatalog is the step/frame document.
type StepCatalog struct {
	Steps []Step `json:"steps"`
}

// TimeDomain is the rendered name of the time domain.
const TimeDomain = "TIME"
