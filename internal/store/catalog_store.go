package store

import (
	"fmt"

	"odbbridge/internal/domain"
)

// CatalogFileStore persists the step/frame catalog.
type CatalogFileStore struct {
	path string
}

// NewCatalogFileStore returns a CatalogFileStore for path.
func NewCatalogFileStore(path string) *CatalogFileStore {
	return &CatalogFileStore{path: path}
}

// SaveCatalog writes the catalog. cat itself is left untouched.
func (s *CatalogFileStore) SaveCatalog(cat domain.StepCatalog) error {
	out := domain.StepCatalog{Steps: make([]domain.Step, len(cat.Steps))}
	copy(out.Steps, cat.Steps)
	for i := range out.Steps {
		if out.Steps[i].Frames == nil {
			out.Steps[i].Frames = []domain.Frame{}
		}
	}
	return writeJSON(s.path, out, 0o644)
}

// LoadCatalog reads the catalog. Step names must be unique.
func (s *CatalogFileStore) LoadCatalog() (domain.StepCatalog, error) {
	var cat domain.StepCatalog
	if err := readJSON(s.path, &cat); err != nil {
		return domain.StepCatalog{}, err
	}
	seen := make(map[string]struct{}, len(cat.Steps))
	for _, st := range cat.Steps {
		if _, dup := seen[st.Name]; dup {
			return domain.StepCatalog{}, fmt.Errorf("%s: duplicate step %q", s.path, st.Name)
		}
		seen[st.Name] = struct{}{}
	}
	return cat, nil
}

// Compile-time assertion that CatalogFileStore implements domain.CatalogStore.
var _ domain.CatalogStore = (*CatalogFileStore)(nil)
