package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	pngerrors "github.com/flaneur2020/pngme/pngme/errors"
	"github.com/flaneur2020/pngme/pngme/logger"
	"github.com/opencontainers/go-digest"
)

const defaultFileMode fs.FileMode = 0644

// LocalStorage serves PNG files from the local filesystem. Relative names
// are resolved against root; an empty root means the working directory.
type LocalStorage struct {
	root string
}

var _ Storage = (*LocalStorage)(nil)

// NewLocalStorage creates a filesystem-backed storage rooted at root.
func NewLocalStorage(root string) *LocalStorage {
	return &LocalStorage{root: root}
}

func (s *LocalStorage) path(name string) string {
	if s.root == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(s.root, name)
}

// Stat returns the name and size of a file without hashing it.
func (s *LocalStorage) Stat(ctx context.Context, name string) (ImageDescriptor, error) {
	if err := ctx.Err(); err != nil {
		return ImageDescriptor{}, err
	}
	info, err := os.Stat(s.path(name))
	if err != nil {
		return ImageDescriptor{}, wrapNotExist(name, err)
	}
	if info.IsDir() {
		return ImageDescriptor{}, fmt.Errorf("%s is a directory", name)
	}
	return ImageDescriptor{Name: name, Size: info.Size()}, nil
}

// Open opens a file for reading.
func (s *LocalStorage) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger.Debug("Opening %s", s.path(name))
	f, err := os.Open(s.path(name))
	if err != nil {
		return nil, wrapNotExist(name, err)
	}
	return f, nil
}

// Write replaces name atomically: data goes to a temporary file in the same
// directory which is then renamed over the target. An existing file keeps
// its permission bits. If name is a symlink, the file it points to is
// replaced and the link is left in place.
func (s *LocalStorage) Write(ctx context.Context, name string, data []byte) (ImageDescriptor, error) {
	if err := ctx.Err(); err != nil {
		return ImageDescriptor{}, err
	}

	target := s.path(name)
	if resolved, err := filepath.EvalSymlinks(target); err == nil {
		target = resolved
	}
	mode := defaultFileMode
	if info, err := os.Stat(target); err == nil {
		mode = info.Mode().Perm()
	}

	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return ImageDescriptor{}, fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(target)+".*")
	if err != nil {
		return ImageDescriptor{}, fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return ImageDescriptor{}, fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return ImageDescriptor{}, fmt.Errorf("failed to set mode on %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return ImageDescriptor{}, fmt.Errorf("failed to close %s: %w", name, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return ImageDescriptor{}, fmt.Errorf("failed to replace %s: %w", name, err)
	}

	logger.Info("Wrote %d bytes to %s", len(data), target)
	return ImageDescriptor{
		Name:   name,
		Size:   int64(len(data)),
		Digest: digest.FromBytes(data),
	}, nil
}

func wrapNotExist(name string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return pngerrors.NewImageNotFoundError(name, err)
	}
	return err
}
