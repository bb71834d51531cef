package kfs

import (
	"os"
	"path"
	"strings"

	"github.com/sungsoo/sratoolkit/pkg/rc"
)

// quickMountDir is a synthetic read-only directory exposing exactly one
// file under a conventional name, so that archive readers handed a remote
// stream still see a directory-relative path.
type quickMountDir struct {
	name string
	file File
}

// NewQuickMountDir mounts file under name (a leaf name, no slashes).
func NewQuickMountDir(file File, name string) (Directory, error) {
	name = strings.TrimPrefix(name, "/")
	if name == "" || strings.Contains(name, "/") {
		return nil, rc.New(rc.Directory, rc.Constructing, rc.Param, rc.Invalid)
	}
	return &quickMountDir{name: name, file: file}, nil
}

func (d *quickMountDir) Resolve(p string) (string, error) {
	if p == "" {
		return "", rc.New(rc.Directory, rc.Resolving, rc.Param, rc.Empty)
	}
	return path.Clean("/" + p), nil
}

func (d *quickMountDir) PathType(p string) PathType {
	resolved, err := d.Resolve(p)
	if err != nil {
		return PathBad
	}
	switch resolved {
	case "/":
		return PathDir
	case "/" + d.name:
		return PathFile
	default:
		return PathNotFound
	}
}

func (d *quickMountDir) OpenFileRead(p string) (File, error) {
	if d.PathType(p).Base() != PathFile {
		return nil, rc.New(rc.Directory, rc.Opening, rc.File, rc.NotFound)
	}
	return &nopCloseFile{inner: d.file}, nil
}

func (d *quickMountDir) OpenFileWrite(string, bool) (WriteFile, error) {
	return nil, rc.New(rc.Directory, rc.Opening, rc.Directory, rc.ReadOnly)
}

func (d *quickMountDir) CreateFile(string, bool, os.FileMode, CreateMode) (WriteFile, error) {
	return nil, rc.New(rc.Directory, rc.Opening, rc.Directory, rc.ReadOnly)
}

func (d *quickMountDir) Remove(string, bool) error {
	return rc.New(rc.Directory, rc.Updating, rc.Directory, rc.ReadOnly)
}

func (d *quickMountDir) Rename(bool, string, string) error {
	return rc.New(rc.Directory, rc.Updating, rc.Directory, rc.ReadOnly)
}

func (d *quickMountDir) Access(p string) (os.FileMode, error) {
	if d.PathType(p) == PathNotFound {
		return 0, rc.New(rc.Directory, rc.Accessing, rc.Path, rc.NotFound)
	}
	return 0444, nil
}

func (d *quickMountDir) OpenDirRead(p string) (Directory, error) {
	resolved, err := d.Resolve(p)
	if err != nil {
		return nil, err
	}
	if resolved != "/" {
		return nil, rc.New(rc.Directory, rc.Opening, rc.Directory, rc.NotFound)
	}
	return d, nil
}

func (d *quickMountDir) Close() error {
	return nil
}

// nopCloseFile shields a shared inner file from Close by a borrower.
type nopCloseFile struct {
	inner File
}

func (f *nopCloseFile) ReadAt(p []byte, off int64) (int, error) {
	return f.inner.ReadAt(p, off)
}

func (f *nopCloseFile) Size() (int64, error) {
	return f.inner.Size()
}

func (f *nopCloseFile) RandomAccess() error {
	return f.inner.RandomAccess()
}

func (f *nopCloseFile) Close() error {
	return nil
}
