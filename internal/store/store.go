// Package store persists the single saved practice recording.
//
// The store is a single slot: there is exactly one fixed location and every
// save replaces whatever was there before.
package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
)

const (
	// Dir is the subdirectory of the data root holding the recording.
	Dir = "recordings"
	// Filename is the fixed name of the stored recording.
	Filename = "my-recording.mp3"
)

// Store is the single-slot recording storage. Save and Delete are
// serialized so concurrent writers cannot interleave on the slot.
type Store struct {
	fs   afero.Fs
	root string

	mu sync.Mutex
}

// New creates a store rooted at root on the given filesystem.
func New(fs afero.Fs, root string) *Store {
	return &Store{ //nolint:exhaustruct // mu
		fs:   fs,
		root: root,
	}
}

// NewOS creates a store on the host filesystem.
func NewOS(root string) *Store {
	return New(afero.NewOsFs(), root)
}

// Fs returns the filesystem the store writes to.
func (s *Store) Fs() afero.Fs {
	return s.fs
}

func (s *Store) dir() string {
	return filepath.Join(s.root, Dir)
}

// Path returns the location of the stored recording. It does no I/O.
func (s *Store) Path() string {
	return filepath.Join(s.dir(), Filename)
}

// Exists reports whether a recording is currently stored.
func (s *Store) Exists() bool {
	ok, err := afero.Exists(s.fs, s.Path())
	if err != nil {
		slog.Warn("failed to stat stored recording", "path", s.Path(), "error", err)
		return false
	}

	return ok
}

// Save copies the file at sourceURI into the slot, replacing any previous
// recording, and returns the stored path.
//
// The delete and the copy are separate steps: a crash in between leaves the
// slot empty. A failed copy also leaves it empty, never partially written.
func (s *Store) Save(ctx context.Context, sourceURI string) (string, error) {
	if sourceURI == "" {
		return "", errors.New("source uri cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fs.MkdirAll(s.dir(), 0o755); err != nil {
		return "", fmt.Errorf("failed to create recordings directory %s: %w", s.dir(), err)
	}

	dest := s.Path()
	if sourceURI == dest {
		return dest, nil
	}

	if err := s.deleteLocked(); err != nil {
		return "", err
	}

	if err := s.copy(ctx, sourceURI, dest); err != nil {
		if rmErr := s.deleteLocked(); rmErr != nil {
			slog.Warn("failed to remove partial recording", "path", dest, "error", rmErr)
		}
		return "", err
	}

	slog.Info("recording saved", "source", sourceURI, "path", dest)

	return dest, nil
}

// Delete removes the stored recording. Deleting an empty slot is a no-op.
func (s *Store) Delete() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.deleteLocked()
}

func (s *Store) deleteLocked() error {
	err := s.fs.Remove(s.Path())
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete stored recording %s: %w", s.Path(), err)
	}

	return nil
}

// Open opens the stored recording for reading.
func (s *Store) Open() (afero.File, error) {
	f, err := s.fs.Open(s.Path())
	if err != nil {
		return nil, fmt.Errorf("failed to open stored recording: %w", err)
	}

	return f, nil
}

// Info returns file information about the stored recording.
func (s *Store) Info() (os.FileInfo, error) {
	info, err := s.fs.Stat(s.Path())
	if err != nil {
		return nil, fmt.Errorf("failed to stat stored recording: %w", err)
	}

	return info, nil
}

func (s *Store) copy(ctx context.Context, src, dest string) error {
	in, err := s.fs.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source recording %s: %w", src, err)
	}
	defer closeFile(in)

	out, err := s.fs.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create stored recording %s: %w", dest, err)
	}

	if _, err := io.Copy(out, &ctxReader{ctx: ctx, r: in}); err != nil {
		closeFile(out)
		return fmt.Errorf("failed to copy recording to %s: %w", dest, err)
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close stored recording %s: %w", dest, err)
	}

	return nil
}

// ctxReader aborts a copy once the context is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}

	return c.r.Read(p)
}

func closeFile(f afero.File) {
	if err := f.Close(); err != nil {
		slog.Warn("failed to close file", "name", f.Name(), "error", err)
	}
}
