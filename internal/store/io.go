package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// readJSON reads path into out. Unlike a cache file, a missing artifact is an
// error.
func readJSON(path string, out any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// writeJSON writes indented JSON via a temp file then rename.
func writeJSON(path string, v any, mode os.FileMode) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return writeFile(path, append(b, '\n'), mode)
}

// writeFile stages b in a temp file next to path and renames it into place.
func writeFile(path string, b []byte, mode os.FileMode) error {
	f, err := createTemp(path)
	if err != nil {
		return err
	}
	if _, err := f.Write(b); err != nil {
		_ = discardTemp(f)
		return fmt.Errorf("write %s: %w", path, err)
	}
	return commitTemp(f, path, mode)
}

// commitTemp sets mode on a staged temp file, closes it and renames it over
// path. The temp file is gone afterwards whether or not the rename happened.
func commitTemp(f *os.File, path string, mode os.FileMode) error {
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()
	if err := f.Chmod(mode); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// discardTemp closes and removes a staged temp file.
func discardTemp(f *os.File) error {
	err := f.Close()
	_ = os.Remove(f.Name())
	return err
}

// createTemp opens a temp file next to path so the final rename stays on one
// filesystem.
func createTemp(path string) (*os.File, error) {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	return os.CreateTemp(dir, base+".tmp-*")
}
