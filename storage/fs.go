package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

const defaultDirPerm = 0o755

var _ Store = (*FS)(nil)

// FS is a [Store] backed by an afero filesystem.
// Files are written to a temporary name and renamed on close,
// so readers never observe a partially written file.
type FS struct {
	fs afero.Fs
}

// NewFS returns a [FS] writing to fs.
func NewFS(fs afero.Fs) *FS {
	return &FS{fs: fs}
}

// NewOsFS returns a [FS] writing to the local filesystem.
func NewOsFS() *FS {
	return NewFS(afero.NewOsFs())
}

func (s *FS) Create(_ context.Context, name string) (io.WriteCloser, error) {
	if err := s.fs.MkdirAll(filepath.Dir(name), defaultDirPerm); err != nil {
		return nil, err
	}

	tmpName := name + ".part"
	file, err := s.fs.OpenFile(tmpName, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}

	return &fsFile{
		File:    file,
		fs:      s.fs,
		name:    name,
		tmpName: tmpName,
	}, nil
}

type fsFile struct {
	afero.File

	fs      afero.Fs
	name    string
	tmpName string
}

func (f *fsFile) Close() error {
	if err := f.File.Close(); err != nil {
		_ = f.fs.Remove(f.tmpName)
		return err
	}

	return f.fs.Rename(f.tmpName, f.name)
}

func (f *fsFile) Abort() error {
	_ = f.File.Close()
	return f.fs.Remove(f.tmpName)
}
