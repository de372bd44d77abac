// Package importer rebuilds a results store from interchange artifacts.
//
// Import runs in two stages with a mandatory barrier between them:
//
//   - Geometry: create the store, one part and one instance per mesh
//     instance, then Save and Close.
//   - Results: reopen, rebuild the instance lookup, pre-create steps and
//     frames from the catalog, then stream the field buckets, one labelled
//     data append per bucket.
//
// The stages are tracked by an explicit Phase so an out-of-order call fails
// with domain.ErrPhase instead of surfacing as a store error. There is no
// rollback: a failure in the results stage leaves a store with committed
// geometry and partial or no results.
package importer
