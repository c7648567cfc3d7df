package backend

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/hupe1980/gridcache"
)

// LocalStore implements Store on the local file system: one file per chunk at
// {root}/{owner}/{x}_{y}.chunk. Owner IDs are percent-escaped so arbitrary
// IDs cannot traverse out of the root.
type LocalStore struct {
	root string
}

// NewLocalStore creates a LocalStore rooted at the given directory, creating
// it if necessary.
func NewLocalStore(root string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &LocalStore{root: root}, nil
}

func (s *LocalStore) path(key gridcache.ChunkKey) string {
	owner := url.PathEscape(key.OwnerID)
	return filepath.Join(s.root, owner, fmt.Sprintf("%d_%d.chunk", key.X, key.Y))
}

// Fetch reads the chunk file for key.
func (s *LocalStore) Fetch(ctx context.Context, key gridcache.ChunkKey) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path(key))
	if os.IsNotExist(err) {
		return nil, ErrChunkNotFound
	}
	return data, err
}

// Persist writes the chunk file atomically via a temp file and rename.
func (s *LocalStore) Persist(ctx context.Context, key gridcache.ChunkKey, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path := s.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".chunk-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Delete removes the chunk file. Missing files are not an error.
func (s *LocalStore) Delete(ctx context.Context, key gridcache.ChunkKey) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := os.Remove(s.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
