// Package storage provides object store implementations for the default
// engine.
package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/justapithecus/strata/strata"
)

// ErrInvalidPath indicates a path that would escape the storage root.
var ErrInvalidPath = errors.New("storage: invalid path: escapes storage root")

// FS implements strata.ObjectStore over the local filesystem.
//
// Consistency: immediate read-after-write on local filesystems.
// Range reads are true positional reads, not simulated full downloads.
type FS struct {
	root string
}

// NewFS creates a filesystem-backed store rooted at the given directory.
// The directory must exist.
func NewFS(root string) (*FS, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, os.ErrNotExist
	}
	return &FS{root: root}, nil
}

// Get retrieves the entire object at the given path.
// Returns strata.ErrNotFound if the path does not exist.
func (f *FS) Get(_ context.Context, path string) ([]byte, error) {
	fullPath, err := f.safePath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, strata.ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// ReadRange reads the byte range [offset, offset+length) of an object.
// Ranges extending past the end of the object are truncated.
func (f *FS) ReadRange(_ context.Context, path string, offset, length int64) ([]byte, error) {
	fullPath, err := f.safePath(path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, strata.ErrNotFound
		}
		return nil, err
	}
	defer func() { _ = file.Close() }()

	buf := make([]byte, length)
	n, err := file.ReadAt(buf, offset)
	if err != nil && err != io.EOF {
		return nil, err
	}
	return buf[:n], nil
}

// Stat returns the size of an object in bytes.
func (f *FS) Stat(_ context.Context, path string) (int64, error) {
	fullPath, err := f.safePath(path)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, strata.ErrNotFound
		}
		return 0, err
	}
	return info.Size(), nil
}

// List returns object paths under the given prefix. A missing prefix
// directory yields an empty result, not an error.
func (f *FS) List(_ context.Context, prefix string) ([]string, error) {
	searchPath, err := f.safePath(prefix)
	if err != nil {
		return nil, err
	}

	var paths []string
	err = filepath.Walk(searchPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !info.IsDir() {
			relPath, err := filepath.Rel(f.root, path)
			if err != nil {
				return err
			}
			paths = append(paths, filepath.ToSlash(relPath))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}

// safePath resolves a store path under the root, rejecting escapes.
func (f *FS) safePath(path string) (string, error) {
	if path == "" {
		return "", ErrInvalidPath
	}
	cleaned := filepath.Clean(filepath.FromSlash(strings.TrimSuffix(path, "/")))
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) || filepath.IsAbs(cleaned) {
		return "", ErrInvalidPath
	}
	return filepath.Join(f.root, cleaned), nil
}

// Ensure FS implements strata.ObjectStore.
var _ strata.ObjectStore = (*FS)(nil)
