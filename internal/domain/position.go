package domain

import "fmt"

// Position classifies where a field value is anchored. The string form is
// the interchange encoding and does not depend on any store's enum layout.
type Position string

const (
	Nodal            Position = "NODAL"
	ElementNodal     Position = "ELEMENT_NODAL"
	IntegrationPoint Position = "INTEGRATION_POINT"
	WholeElement     Position = "WHOLE_ELEMENT"
)

// Positions lists every known position.
var Positions = []Position{Nodal, ElementNodal, IntegrationPoint, WholeElement}

// Known reports whether p is one of Positions.
func (p Position) Known() bool {
	switch p {
	case Nodal, ElementNodal, IntegrationPoint, WholeElement:
		return true
	}
	return false
}

// ParsePosition accepts only the four interchange names.
func ParsePosition(s string) (Position, error) {
	p := Position(s)
	if !p.Known() {
		return "", fmt.Errorf("%w: %q", ErrUnknownPosition, s)
	}
	return p, nil
}

func (p Position) String() string { return string(p) }
