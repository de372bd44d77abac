package store

import (
	"os"
	"path/filepath"
)

// Default artifact file names.
const (
	DefaultMeshFile    = "mesh.json"
	DefaultCatalogFile = "steps.json"
	DefaultFieldFile   = "nt11.jsonl"
)

// Layout names the three artifact paths of one interchange set.
type Layout struct {
	Mesh    string
	Catalog string
	Fields  string
}

// DirLayout places the artifacts in dir under the given names; empty names
// fall back to the defaults.
func DirLayout(dir, mesh, catalog, fields string) Layout {
	if mesh == "" {
		mesh = DefaultMeshFile
	}
	if catalog == "" {
		catalog = DefaultCatalogFile
	}
	if fields == "" {
		fields = DefaultFieldFile
	}
	return Layout{
		Mesh:    filepath.Join(dir, mesh),
		Catalog: filepath.Join(dir, catalog),
		Fields:  filepath.Join(dir, fields),
	}
}

// EnsureDir creates the directory of every artifact.
func (l Layout) EnsureDir() error {
	for _, p := range []string{l.Mesh, l.Catalog, l.Fields} {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return err
		}
	}
	return nil
}
