// Package domain defines the interchange schema and the contracts of the
// stores on either side of it.
//
// It contains plain value types (mesh, step/frame catalog, field buckets) and
// interfaces only. Nothing in here holds a live store handle; source data is
// materialised into these types before it crosses the export boundary.
package domain
