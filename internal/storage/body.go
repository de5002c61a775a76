package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"

	"github.com/spf13/afero"
)

// ErrObjectNotFound is returned by BodyStore.Get when no body exists under the name.
var ErrObjectNotFound = errors.New("object not found")

// BodyStore persists post bodies keyed by file name.
type BodyStore interface {
	Put(ctx context.Context, name, content string) error
	Get(ctx context.Context, name string) (string, error)
	Delete(ctx context.Context, name string) error
}

// FSBodyStore keeps one file per body inside a directory of an afero filesystem.
type FSBodyStore struct {
	fs  afero.Fs
	dir string
}

func NewFSBodyStore(fs afero.Fs, dir string) *FSBodyStore {
	return &FSBodyStore{fs: fs, dir: dir}
}

func (s *FSBodyStore) path(name string) string {
	return path.Join(s.dir, path.Base(name))
}

func (s *FSBodyStore) Put(ctx context.Context, name, content string) error {
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create posts dir: %w", err)
	}
	return afero.WriteFile(s.fs, s.path(name), []byte(content), 0o644)
}

func (s *FSBodyStore) Get(ctx context.Context, name string) (string, error) {
	b, err := afero.ReadFile(s.fs, s.path(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrObjectNotFound
		}
		return "", err
	}
	return string(b), nil
}

func (s *FSBodyStore) Delete(ctx context.Context, name string) error {
	err := s.fs.Remove(s.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return ErrObjectNotFound
	}
	return err
}
