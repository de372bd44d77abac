// Package resultsdb is a results store kept in a single SQLite file.
//
// It plays both roles the interchange needs: a readable source graph
// (OpenReadOnly) and a freshly constructed target (Create, OpenWritable).
//
// A target is built in two sessions. The first (Create) defines parts,
// nodes, elements and instances and must end with Save and Close; Save seals
// the geometry with a BLAKE2b digest. Only a reopened store (OpenWritable)
// accepts steps, frames and field data, and it refuses to open if the
// geometry was never committed or no longer matches its seal. Handles are
// bound to the session that issued them.
package resultsdb
