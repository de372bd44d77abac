// Package exporter turns a source results store into the three interchange
// artifacts.
//
// The mesh and the step/frame catalog are built in memory and written in one
// piece each. Field values are read one frame at a time, grouped into buckets
// keyed by (instance, position, section point) and flushed before the next
// frame is read, so memory holds at most one frame's buckets.
package exporter
