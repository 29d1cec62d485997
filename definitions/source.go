package definitions

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/Dosada05/league-registration/storage"
)

// Source is where definition and template files live. ReadFile reports a
// missing file with an error wrapping fs.ErrNotExist.
type Source interface {
	ReadFile(ctx context.Context, name string) ([]byte, error)
	// ListDir returns the base names of files directly inside dir; a missing dir is empty.
	ListDir(ctx context.Context, dir string) ([]string, error)
}

type fsSource struct {
	fsys fs.FS
}

// NewFSSource serves files from any fs.FS (os.DirFS in production, fstest.MapFS in tests).
func NewFSSource(fsys fs.FS) Source {
	return &fsSource{fsys: fsys}
}

func NewDirSource(root string) Source {
	return NewFSSource(os.DirFS(root))
}

func (s *fsSource) ReadFile(_ context.Context, name string) ([]byte, error) {
	return fs.ReadFile(s.fsys, name)
}

func (s *fsSource) ListDir(_ context.Context, dir string) ([]string, error) {
	entries, err := fs.ReadDir(s.fsys, dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

type objectSource struct {
	store  storage.ObjectStore
	prefix string
}

// NewObjectSource reads definitions from a bucket, every name relative to prefix.
func NewObjectSource(store storage.ObjectStore, prefix string) Source {
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &objectSource{store: store, prefix: prefix}
}

func (s *objectSource) ReadFile(ctx context.Context, name string) ([]byte, error) {
	data, err := s.store.Get(ctx, s.prefix+name)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, fmt.Errorf("%s: %w", name, fs.ErrNotExist)
		}
		return nil, err
	}
	return data, nil
}

func (s *objectSource) ListDir(ctx context.Context, dir string) ([]string, error) {
	dirPrefix := s.prefix + strings.Trim(dir, "/") + "/"
	keys, err := s.store.List(ctx, dirPrefix)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(keys))
	for _, key := range keys {
		rest := strings.TrimPrefix(key, dirPrefix)
		if rest == "" || strings.Contains(rest, "/") {
			continue
		}
		names = append(names, path.Base(rest))
	}
	return names, nil
}
