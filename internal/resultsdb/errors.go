package resultsdb

import "errors"

var (
	// ErrExists is returned by Create when the target file already exists.
	ErrExists = errors.New("results store already exists")

	// ErrGeometryNotCommitted is returned when results are opened on a store
	// whose geometry was never saved.
	ErrGeometryNotCommitted = errors.New("geometry not committed")

	// ErrGeometrySealed is returned for geometry writes after Save.
	ErrGeometrySealed = errors.New("geometry is sealed")

	// ErrDigestMismatch is returned when stored geometry no longer matches its seal.
	ErrDigestMismatch = errors.New("geometry digest mismatch")

	// ErrStaleHandle is returned for a handle issued by another session.
	ErrStaleHandle = errors.New("stale handle")

	// ErrClosed is returned for any call after Close.
	ErrClosed = errors.New("results store closed")

	// ErrSectionPointPosition is returned when a section point accompanies
	// data that is not at integration points.
	ErrSectionPointPosition = errors.New("section point requires INTEGRATION_POINT data")
)
