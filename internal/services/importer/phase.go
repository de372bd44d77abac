package importer

import (
	"fmt"

	"odbbridge/internal/domain"
)

// Phase is the importer's position in the two-stage build.
type Phase int

const (
	PhaseEmpty Phase = iota
	PhaseGeometryBuilt
	PhaseGeometryCommitted
	PhaseResultsBuilding
	PhaseResultsCommitted
)

func (p Phase) String() string {
	switch p {
	case PhaseEmpty:
		return "EMPTY"
	case PhaseGeometryBuilt:
		return "GEOMETRY_BUILT"
	case PhaseGeometryCommitted:
		return "GEOMETRY_COMMITTED"
	case PhaseResultsBuilding:
		return "RESULTS_BUILDING"
	case PhaseResultsCommitted:
		return "RESULTS_COMMITTED"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// phases moves strictly forward one step at a time.
type phases struct {
	cur Phase
}

func (ph *phases) advance(to Phase) error {
	if to != ph.cur+1 {
		return fmt.Errorf("%w: %s -> %s", domain.ErrPhase, ph.cur, to)
	}
	ph.cur = to
	return nil
}

func (ph *phases) require(want Phase) error {
	if ph.cur != want {
		return fmt.Errorf("%w: in %s, need %s", domain.ErrPhase, ph.cur, want)
	}
	return nil
}
