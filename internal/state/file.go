package state

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"recycle-watch/internal/tracker"
)

// FileStore keeps the flags in a small JSON file.
type FileStore struct {
	path   string
	logger zerolog.Logger
}

// NewFileStore returns a store backed by path.
func NewFileStore(path string, logger zerolog.Logger) *FileStore {
	return &FileStore{path: path, logger: logger.With().Str("component", "state_file").Logger()}
}

// Path returns the backing file location.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the flags. A missing file bootstraps both flags to false, and so
// does a malformed document, which the next Save overwrites.
func (s *FileStore) Load(ctx context.Context) (tracker.State, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Info().Str("path", s.path).Msg("state file absent; starting from clean flags")
			return tracker.State{}, nil
		}
		return tracker.State{}, fmt.Errorf("%w: read %s: %v", ErrStateIO, s.path, err)
	}

	st, err := decode(data)
	if err != nil {
		s.logger.Warn().Err(err).Str("path", s.path).Msg("state file malformed; resetting flags")
		return tracker.State{}, nil
	}
	return st, nil
}

// Save rewrites the file through a temp file and rename.
func (s *FileStore) Save(ctx context.Context, st tracker.State) error {
	data, err := encode(st)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(s.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: create state dir: %v", ErrStateIO, err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrStateIO, tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("%w: rename %s: %v", ErrStateIO, tmp, err)
	}
	return nil
}

var _ Store = (*FileStore)(nil)
