package resultsdb

import (
	"fmt"

	"odbbridge/internal/domain"
)

// Position is the store's own numeric position encoding.
type Position int

const (
	PositionNodal Position = iota + 1
	PositionElementNodal
	PositionIntegrationPoint
	PositionWholeElement
	PositionCentroid
)

var positionNames = map[Position]domain.Position{
	PositionNodal:            domain.Nodal,
	PositionElementNodal:     domain.ElementNodal,
	PositionIntegrationPoint: domain.IntegrationPoint,
	PositionWholeElement:     domain.WholeElement,
}

// Interchange returns the stable name. Codes without one, such as
// PositionCentroid, render as their own string form.
func (p Position) Interchange() domain.Position {
	if name, ok := positionNames[p]; ok {
		return name
	}
	return domain.Position(p.String())
}

func (p Position) String() string {
	if name, ok := positionNames[p]; ok {
		return string(name)
	}
	if p == PositionCentroid {
		return "CENTROID"
	}
	return fmt.Sprintf("POSITION(%d)", int(p))
}

func positionCode(p domain.Position) (Position, error) {
	for code, name := range positionNames {
		if name == p {
			return code, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", domain.ErrUnknownPosition, p)
}

// Domain is the store's step domain encoding.
type Domain int

const (
	DomainTime Domain = iota + 1
	DomainFrequency
	DomainArcLength
	DomainModal
)

var domainNames = map[Domain]string{
	DomainTime:      domain.TimeDomain,
	DomainFrequency: "FREQUENCY",
	DomainArcLength: "ARC_LENGTH",
	DomainModal:     "MODAL",
}

// IsTime reports whether d is the time domain.
func (d Domain) IsTime() bool { return d == DomainTime }

func (d Domain) String() string {
	if name, ok := domainNames[d]; ok {
		return name
	}
	return fmt.Sprintf("DOMAIN(%d)", int(d))
}

// ParseDomain maps a rendered domain name back to its code.
func ParseDomain(s string) (Domain, error) {
	for code, name := range domainNames {
		if name == s {
			return code, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", domain.ErrUnknownDomain, s)
}

var _ domain.StepDomain = Domain(0)
