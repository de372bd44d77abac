package store

import (
	"odbbridge/internal/domain"
)

// MeshFileStore persists the mesh document to a single JSON file.
type MeshFileStore struct {
	path string
}

// NewMeshFileStore returns a MeshFileStore for path.
func NewMeshFileStore(path string) *MeshFileStore {
	return &MeshFileStore{path: path}
}

// SaveMesh writes the whole document in one atomic replace.
func (s *MeshFileStore) SaveMesh(doc domain.MeshDocument) error {
	return writeJSON(s.path, doc, 0o644)
}

// LoadMesh reads the document.
func (s *MeshFileStore) LoadMesh() (domain.MeshDocument, error) {
	var doc domain.MeshDocument
	if err := readJSON(s.path, &doc); err != nil {
		return domain.MeshDocument{}, err
	}
	return doc, nil
}

// Compile-time assertion that MeshFileStore implements domain.MeshStore.
var _ domain.MeshStore = (*MeshFileStore)(nil)
