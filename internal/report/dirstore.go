package report

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DirStore keeps artifacts in a local directory. Refs are file names
// relative to the directory.
type DirStore struct {
	dir string
}

func NewDirStore(dir string) (*DirStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}
	return &DirStore{dir: dir}, nil
}

// Save writes through a temporary file and renames it into place.
func (d *DirStore) Save(_ context.Context, name, _ string, data []byte) (string, error) {
	name = filepath.Base(name)
	tmp, err := os.CreateTemp(d.dir, "."+name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create artifact: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(d.dir, name)); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to store artifact: %w", err)
	}
	return name, nil
}

func (d *DirStore) Exists(_ context.Context, ref string) (bool, error) {
	path, err := d.path(ref)
	if err != nil {
		return false, nil
	}
	_, err = os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

// URL is always empty: local files are not reachable by messaging backends.
func (d *DirStore) URL(context.Context, string) (string, error) { return "", nil }

func (d *DirStore) path(ref string) (string, error) {
	name := filepath.Base(ref)
	if name == "." || name == string(filepath.Separator) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid artifact ref %q", ref)
	}
	return filepath.Join(d.dir, name), nil
}
