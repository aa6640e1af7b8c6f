// Package store persists the license mapping as one durable unit. The
// backing medium is a single JSON file; every read returns a fresh snapshot
// and every write replaces the whole document atomically.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	licerrors "keymint/internal/errors"
	"keymint/internal/license"
)

// Store is the durable mapping from serial key to license record. It is
// file-backed by default but swappable for any durable key-value medium.
type Store interface {
	// Load returns a fresh snapshot of the full mapping. A missing or empty
	// backing resource is initialized to an empty mapping and persisted before
	// returning; malformed contents are logged and degrade to an empty
	// mapping rather than failing the caller.
	Load() (map[string]license.Record, error)

	// Save atomically replaces the persisted mapping. Partial writes are
	// never observable; on failure the caller must treat any in-memory
	// mutation as not committed.
	Save(map[string]license.Record) error
}

// FileStore persists the mapping as a single JSON file, written via a
// temporary file and an atomic rename onto the canonical path.
type FileStore struct {
	path   string
	logger *slog.Logger
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a store backed by the JSON file at path.
func NewFileStore(path string, logger *slog.Logger) *FileStore {
	return &FileStore{
		path:   path,
		logger: logger.With(slog.String("component", "license_store")),
	}
}

// Path returns the canonical file path of the store.
func (s *FileStore) Path() string {
	return s.path
}

// Load implements Store.
func (s *FileStore) Load() (map[string]license.Record, error) {
	data, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return s.initEmpty()
	case err != nil:
		return nil, fmt.Errorf("store: read %s: %w", s.path, err)
	}

	if len(data) == 0 {
		return s.initEmpty()
	}

	var records map[string]license.Record
	if err := json.Unmarshal(data, &records); err != nil {
		// The corrupt file stays on disk until the next successful save.
		s.logger.Warn("license store is malformed, serving empty mapping",
			slog.String("path", s.path),
			slog.String("error", err.Error()))
		return make(map[string]license.Record), nil
	}
	if records == nil {
		records = make(map[string]license.Record)
	}

	return records, nil
}

// Save implements Store.
func (s *FileStore) Save(records map[string]license.Record) error {
	if records == nil {
		records = make(map[string]license.Record)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal: %v", licerrors.ErrStoreSaveFailed, err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".licenses-*.json.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %v", licerrors.ErrStoreSaveFailed, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: write temp file: %v", licerrors.ErrStoreSaveFailed, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: close temp file: %v", licerrors.ErrStoreSaveFailed, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: chmod temp file: %v", licerrors.ErrStoreSaveFailed, err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: rename onto %s: %v", licerrors.ErrStoreSaveFailed, s.path, err)
	}

	return nil
}

// initEmpty persists an empty mapping so subsequent loads are well-defined.
func (s *FileStore) initEmpty() (map[string]license.Record, error) {
	empty := make(map[string]license.Record)
	if err := s.Save(empty); err != nil {
		return nil, fmt.Errorf("store: initialize %s: %w", s.path, err)
	}
	s.logger.Info("initialized empty license store", slog.String("path", s.path))
	return empty, nil
}
