package app

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"odbbridge/internal/domain"
	"odbbridge/internal/services/exporter"
	"odbbridge/internal/services/importer"
	"odbbridge/internal/store"
)

// Config holds runtime options for building the app.
type Config struct {
	Log       LogConfig       `yaml:"log"`
	Field     string          `yaml:"field"`
	Artifacts ArtifactsConfig `yaml:"artifacts"`
	Import    ImportConfig    `yaml:"import"`
}

// LogConfig selects the logger.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	JSON  bool   `yaml:"json"`
}

// ArtifactsConfig names the three files of an interchange set.
type ArtifactsConfig struct {
	Mesh    string `yaml:"mesh"`
	Catalog string `yaml:"catalog"`
	Fields  string `yaml:"fields"`
}

// ImportConfig names what the importer creates in a new store.
type ImportConfig struct {
	Name                       string `yaml:"name"`
	Title                      string `yaml:"title"`
	Description                string `yaml:"description"`
	PartPrefix                 string `yaml:"part_prefix"`
	SectionCategory            string `yaml:"section_category"`
	SectionCategoryDescription string `yaml:"section_category_description"`
	FieldDescription           string `yaml:"field_description"`
	StepDescription            string `yaml:"step_description"`
	Overwrite                  bool   `yaml:"overwrite"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	set := importer.DefaultSettings()
	return &Config{
		Log:   LogConfig{Level: "info"},
		Field: exporter.DefaultField,
		Artifacts: ArtifactsConfig{
			Mesh:    store.DefaultMeshFile,
			Catalog: store.DefaultCatalogFile,
			Fields:  store.DefaultFieldFile,
		},
		Import: ImportConfig{
			Name:                       set.Meta.Name,
			Title:                      set.Meta.Title,
			Description:                set.Meta.Description,
			PartPrefix:                 set.PartPrefix,
			SectionCategory:            set.SectionCategory,
			SectionCategoryDescription: set.SectionCategoryDescription,
			FieldDescription:           set.FieldDescription,
			StepDescription:            set.StepDescription,
		},
	}
}

// LoadConfig reads path over the defaults and applies environment overrides.
// An empty path skips the file.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if lvl := os.Getenv("ODBBRIDGE_LOG_LEVEL"); lvl != "" {
		c.Log.Level = lvl
	}
	if f := os.Getenv("ODBBRIDGE_FIELD"); f != "" {
		c.Field = f
	}
}

// Validate rejects settings no command can run with.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log level %q", domain.ErrUsage, c.Log.Level)
	}
	if c.Field == "" {
		return fmt.Errorf("%w: empty field name", domain.ErrUsage)
	}
	return nil
}

// Layout places the configured artifact names in dir.
func (c *Config) Layout(dir string) store.Layout {
	return store.DirLayout(dir, c.Artifacts.Mesh, c.Artifacts.Catalog, c.Artifacts.Fields)
}

// ImportSettings converts the import section into importer settings.
func (c *Config) ImportSettings(steps []string) importer.Settings {
	return importer.Settings{
		Meta: domain.StoreMeta{
			Name:        c.Import.Name,
			Title:       c.Import.Title,
			Description: c.Import.Description,
		},
		PartPrefix:                 c.Import.PartPrefix,
		SectionCategory:            c.Import.SectionCategory,
		SectionCategoryDescription: c.Import.SectionCategoryDescription,
		Field:                      c.Field,
		FieldDescription:           c.Import.FieldDescription,
		StepDescription:            c.Import.StepDescription,
		Steps:                      steps,
	}
}
