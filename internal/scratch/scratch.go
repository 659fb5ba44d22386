// Package scratch stores temporary voice recordings on disk.
//
// Every captured utterance is written out as a WAV file before
// transcription. Files for successfully transcribed utterances are removed
// right away; files whose transcription failed are retained so the audio can
// be inspected later.
package scratch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Store writes scratch WAV files into a single directory.
type Store struct {
	dir string
}

// New creates a Store rooted at dir, creating the directory if needed.
// An empty dir selects the system temp directory.
func New(dir string) (*Store, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "argus")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("scratch: create dir %q: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the directory scratch files are written to.
func (s *Store) Dir() string { return s.dir }

// Save writes wav to a uniquely named file and returns its path.
func (s *Store) Save(wav []byte) (string, error) {
	f, err := os.CreateTemp(s.dir, "utterance-*.wav")
	if err != nil {
		return "", fmt.Errorf("scratch: create file: %w", err)
	}
	if _, err := f.Write(wav); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("scratch: write %q: %w", f.Name(), err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("scratch: close %q: %w", f.Name(), err)
	}
	return f.Name(), nil
}

// Remove deletes the scratch file at path. A file that is already gone is
// not an error.
func (s *Store) Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("scratch: remove %q: %w", path, err)
	}
	return nil
}
