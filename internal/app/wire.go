package app

import (
	"go.uber.org/zap"

	"odbbridge/internal/domain"
	"odbbridge/internal/resultsdb"
	"odbbridge/internal/services/exporter"
	"odbbridge/internal/services/importer"
	"odbbridge/internal/services/inspect"
	"odbbridge/internal/store"
)

// Wire bundles the logger and config every command shares.
type Wire struct {
	Config *Config
	Log    *zap.Logger
}

// NewWire builds the logger from cfg.
func NewWire(cfg *Config) (*Wire, error) {
	log, err := NewLogger(cfg.Log)
	if err != nil {
		return nil, err
	}
	return &Wire{Config: cfg, Log: log}, nil
}

// Exporter opens the source store at src and returns an export service
// writing the mesh and catalog of l. The caller closes the returned source.
func (w *Wire) Exporter(src string, l store.Layout) (*exporter.Service, domain.SourceStore, error) {
	r, err := resultsdb.OpenReadOnly(src)
	if err != nil {
		return nil, nil, err
	}
	svc := exporter.New(r, store.NewMeshFileStore(l.Mesh), store.NewCatalogFileStore(l.Catalog),
		w.Log.Named("export"))
	return svc, r, nil
}

// Importer returns an import service reading the mesh and catalog of l.
func (w *Wire) Importer(l store.Layout, steps []string, overwrite bool) *importer.Service {
	factory := resultsdb.Factory{Options: resultsdb.Options{Overwrite: overwrite || w.Config.Import.Overwrite}}
	return importer.New(factory, store.NewMeshFileStore(l.Mesh), store.NewCatalogFileStore(l.Catalog),
		w.Config.ImportSettings(steps), w.Log.Named("import"))
}

// Inspector returns an inspect service reading the mesh and catalog of l.
func (w *Wire) Inspector(l store.Layout) *inspect.Service {
	return inspect.New(store.NewMeshFileStore(l.Mesh), store.NewCatalogFileStore(l.Catalog),
		w.Log.Named("inspect"))
}

// Close flushes the logger.
func (w *Wire) Close() error {
	_ = w.Log.Sync()
	return nil
}
