package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
)

// DefaultPath is where the record lives on the device filesystem.
const DefaultPath = "/var/lib/nixieclock/config.txt"

// Store reads and writes the configuration record.
// It is safe for concurrent use; the portal handlers and the clock behavior
// never hold it at the same time, but every file operation is serialized.
type Store struct {
	fs   afero.Fs
	path string
	mu   sync.Mutex
}

// New creates a store backed by fs at path.
func New(fs afero.Fs, path string) *Store {
	if path == "" {
		path = DefaultPath
	}
	return &Store{fs: fs, path: path}
}

// NewOS creates a store on the real filesystem.
func NewOS(path string) *Store {
	return New(afero.NewOsFs(), path)
}

// Path returns the location of the backing file.
func (s *Store) Path() string {
	return s.path
}

// Load returns the stored record. A missing file or a short record is
// reported as absent (ok=false) without an error.
func (s *Store) Load() (Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Record{}, false, nil
		}
		return Record{}, false, fmt.Errorf("failed to read config record: %w", err)
	}

	rec, ok := Decode(data)
	return rec, ok, nil
}

// Save replaces the stored record wholesale.
// The record is written to a temporary file and renamed over the previous
// one, so a failed write leaves the prior record in place.
func (s *Store) Save(rec Record) error {
	data, err := rec.Encode()
	if err != nil {
		return fmt.Errorf("invalid config record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmpPath, data, 0o600); err != nil {
		_ = s.fs.Remove(tmpPath)
		return fmt.Errorf("failed to write temporary config record: %w", err)
	}

	if err := s.fs.Rename(tmpPath, s.path); err != nil {
		_ = s.fs.Remove(tmpPath)
		return fmt.Errorf("failed to replace config record: %w", err)
	}

	return nil
}
