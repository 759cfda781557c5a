package storage

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	"github.com/spf13/afero"
)

// FileSystem is the set of file operations the store needs.
//
// Writes are atomic: readers observe either the previous content or the new
// one, never a partial file. Every error is an *IOError or, for corrupt
// compressed streams, a *DecodeError.
type FileSystem interface {
	Exists(path string) (bool, error)
	ReadBytes(path string) ([]byte, error)
	WriteBytes(path string, data []byte) error
	ReadCompressed(path string) ([]byte, error)
	WriteCompressed(path string, data []byte) error
	// Delete removes path. A missing path returns an error matching fs.ErrNotExist.
	Delete(path string) error
	// ListFiles returns the sorted paths in dir matching the glob pattern.
	ListFiles(dir, pattern string) ([]string, error)
	MkdirAll(dir string) error
}

// tmpSuffix marks in-flight writes. Temporary files are also dot-prefixed so
// they never match the document globs.
const tmpSuffix = ".tmp"

// NewFileSystem returns a FileSystem backed by fsys.
//
// Use afero.NewOsFs() in production and afero.NewMemMapFs() in tests.
func NewFileSystem(fsys afero.Fs) FileSystem {
	return &aferoFS{fs: fsys}
}

type aferoFS struct {
	fs afero.Fs
}

func (a *aferoFS) Exists(path string) (bool, error) {
	ok, err := afero.Exists(a.fs, path)
	return ok, ioErr("stat", path, err)
}

func (a *aferoFS) ReadBytes(path string) ([]byte, error) {
	data, err := afero.ReadFile(a.fs, path)
	return data, ioErr("read", path, err)
}

func (a *aferoFS) WriteBytes(path string, data []byte) error {
	return a.writeAtomic(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

func (a *aferoFS) ReadCompressed(path string) ([]byte, error) {
	f, err := a.fs.Open(path)
	if err != nil {
		return nil, ioErr("open", path, err)
	}
	defer func() { _ = f.Close() }()
	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, compressedErr(path, err)
	}
	defer func() { _ = zr.Close() }()
	data, err := io.ReadAll(zr)
	if err != nil {
		return nil, compressedErr(path, err)
	}
	return data, nil
}

func (a *aferoFS) WriteCompressed(path string, data []byte) error {
	return a.writeAtomic(path, func(w io.Writer) error {
		zw := gzip.NewWriter(w)
		if _, err := zw.Write(data); err != nil {
			return errors.Join(err, zw.Close())
		}
		return zw.Close()
	})
}

func (a *aferoFS) Delete(path string) error {
	return ioErr("delete", path, a.fs.Remove(path))
}

func (a *aferoFS) ListFiles(dir, pattern string) ([]string, error) {
	matches, err := afero.Glob(a.fs, filepath.Join(dir, pattern))
	return matches, ioErr("list", filepath.Join(dir, pattern), err)
}

func (a *aferoFS) MkdirAll(dir string) error {
	return ioErr("create directory", dir, a.fs.MkdirAll(dir, 0o750))
}

// writeAtomic writes to a temporary file next to path, syncs it and renames
// it over path.
func (a *aferoFS) writeAtomic(path string, write func(io.Writer) error) error {
	dir, base := filepath.Split(path)
	f, err := afero.TempFile(a.fs, dir, "."+base+".*"+tmpSuffix)
	if err != nil {
		return ioErr("create temp file for", path, err)
	}
	tmp := f.Name()
	if err := write(f); err != nil {
		return ioErr("write", tmp, errors.Join(err, f.Close(), a.fs.Remove(tmp)))
	}
	if err := f.Sync(); err != nil {
		return ioErr("sync", tmp, errors.Join(err, f.Close(), a.fs.Remove(tmp)))
	}
	if err := f.Close(); err != nil {
		return ioErr("close", tmp, errors.Join(err, a.fs.Remove(tmp)))
	}
	if err := a.fs.Rename(tmp, path); err != nil {
		return ioErr("rename", tmp, errors.Join(err, a.fs.Remove(tmp)))
	}
	return nil
}

// compressedErr separates a corrupt gzip stream from a failing read.
func compressedErr(path string, err error) error {
	if errors.Is(err, gzip.ErrHeader) || errors.Is(err, gzip.ErrChecksum) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return &DecodeError{Path: path, Err: fmt.Errorf("corrupt gzip stream: %w", err)}
	}
	return ioErr("read", path, err)
}
