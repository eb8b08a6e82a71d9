// Package persist writes the active chain configuration to disk so it
// survives a restart, per the control protocol's persist-then-publish
// ordering.
package persist

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pedalworks/dsp-engine/dsp/chain"
)

// Store writes ChainSpecs to a fixed path using an atomic
// write-then-rename so a crash mid-write never leaves a truncated file
// on disk.
type Store struct {
	path string
}

// NewStore returns a Store that persists to path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Write serializes spec to canonical v1 JSON and atomically replaces the
// store's file. It creates parent directories as needed.
func (s *Store) Write(spec *chain.ChainSpec) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("persist: create dir: %w", err)
	}

	data, err := chain.ToJSON(spec)
	if err != nil {
		return fmt.Errorf("persist: encode: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("persist: write temp file: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("persist: rename: %w", err)
	}

	return nil
}

// Load reads and parses the persisted chain, if any. It returns
// os.ErrNotExist (wrapped) when no chain has been persisted yet.
func (s *Store) Load() (*chain.ChainSpec, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("persist: read: %w", err)
	}

	spec, err := chain.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("persist: parse: %w", err)
	}

	return spec, nil
}

// Path returns the file path this store persists to.
func (s *Store) Path() string {
	return s.path
}
