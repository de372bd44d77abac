// Package store provides file-based persistence for the interchange artifacts.
//
// An export directory holds three files:
//   - the mesh document (MeshFileStore)
//   - the step/frame catalog (CatalogFileStore)
//   - the field-value stream, one JSON bucket per line (FieldStreamWriter,
//     FieldStreamReader)
//
// Whole documents are written through a temp file and renamed into place, so a
// reader never sees a half-written artifact. The stream is written the same
// way but incrementally, and only becomes visible on Commit.
package store
