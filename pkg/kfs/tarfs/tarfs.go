// Package tarfs presents a tar archive as a read-only kfs.Directory. Only
// the header walk touches the archive; member reads are bounded section
// reads at recorded offsets.
package tarfs

import (
	"archive/tar"
	"io"
	"os"
	"path"
	"strings"

	"github.com/sungsoo/sratoolkit/pkg/kfs"
	"github.com/sungsoo/sratoolkit/pkg/rc"
)

type entry struct {
	offset int64
	size   int64
	isDir  bool
}

type tarDir struct {
	file    kfs.File
	name    string
	prefix  string // subdirectory view, "" at the root
	entries map[string]entry
}

// countingReader tracks how many bytes the tar reader has consumed, which
// after Next() is exactly the data offset of the current member.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// OpenDir walks the tar headers in f and returns a directory view. The
// file must support random access.
func OpenDir(f kfs.File, name string) (kfs.Directory, error) {
	if err := f.RandomAccess(); err != nil {
		return nil, rc.New(rc.Directory, rc.Opening, rc.File, rc.Incorrect)
	}
	size, err := f.Size()
	if err != nil {
		return nil, rc.Wrap(err, rc.Directory, rc.Opening, rc.File, rc.Unknown)
	}

	cr := &countingReader{r: io.NewSectionReader(readerAtOnly{f}, 0, size)}
	tr := tar.NewReader(cr)

	entries := make(map[string]entry)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, rc.Wrap(err, rc.Directory, rc.Opening, rc.Data, rc.Corrupt)
		}

		clean := path.Clean("/" + hdr.Name)
		if clean == "/" {
			continue
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			entries[clean] = entry{isDir: true}
		case tar.TypeReg:
			entries[clean] = entry{offset: cr.n, size: hdr.Size}
			// parent directories are often implicit
			for dir := path.Dir(clean); dir != "/"; dir = path.Dir(dir) {
				if _, ok := entries[dir]; !ok {
					entries[dir] = entry{isDir: true}
				}
			}
		}
	}

	if len(entries) == 0 {
		return nil, rc.New(rc.Directory, rc.Opening, rc.Data, rc.Unrecognized)
	}

	return &tarDir{file: f, name: name, entries: entries}, nil
}

// readerAtOnly strips the other kfs.File methods so SectionReader sees a
// plain io.ReaderAt.
type readerAtOnly struct {
	f kfs.File
}

func (r readerAtOnly) ReadAt(p []byte, off int64) (int, error) {
	return r.f.ReadAt(p, off)
}

func (d *tarDir) resolve(p string) (string, error) {
	if p == "" {
		return "", rc.New(rc.Directory, rc.Resolving, rc.Param, rc.Empty)
	}
	if !strings.HasPrefix(p, "/") {
		p = d.prefix + "/" + p
	}
	return path.Clean(p), nil
}

func (d *tarDir) Resolve(p string) (string, error) {
	return d.resolve(p)
}

func (d *tarDir) PathType(p string) kfs.PathType {
	resolved, err := d.resolve(p)
	if err != nil {
		return kfs.PathBad
	}
	if resolved == "/" {
		return kfs.PathDir
	}
	e, ok := d.entries[resolved]
	if !ok {
		return kfs.PathNotFound
	}
	if e.isDir {
		return kfs.PathDir
	}
	return kfs.PathFile
}

func (d *tarDir) OpenFileRead(p string) (kfs.File, error) {
	resolved, err := d.resolve(p)
	if err != nil {
		return nil, err
	}
	e, ok := d.entries[resolved]
	if !ok {
		return nil, rc.New(rc.Directory, rc.Opening, rc.File, rc.NotFound)
	}
	if e.isDir {
		return nil, rc.New(rc.Directory, rc.Opening, rc.File, rc.Incorrect)
	}
	return &memberFile{
		archive: d.file,
		offset:  e.offset,
		size:    e.size,
	}, nil
}

func (d *tarDir) OpenFileWrite(string, bool) (kfs.WriteFile, error) {
	return nil, rc.New(rc.Directory, rc.Opening, rc.Directory, rc.ReadOnly)
}

func (d *tarDir) CreateFile(string, bool, os.FileMode, kfs.CreateMode) (kfs.WriteFile, error) {
	return nil, rc.New(rc.Directory, rc.Opening, rc.Directory, rc.ReadOnly)
}

func (d *tarDir) Remove(string, bool) error {
	return rc.New(rc.Directory, rc.Updating, rc.Directory, rc.ReadOnly)
}

func (d *tarDir) Rename(bool, string, string) error {
	return rc.New(rc.Directory, rc.Updating, rc.Directory, rc.ReadOnly)
}

func (d *tarDir) Access(p string) (os.FileMode, error) {
	if d.PathType(p) == kfs.PathNotFound {
		return 0, rc.New(rc.Directory, rc.Accessing, rc.Path, rc.NotFound)
	}
	return 0444, nil
}

func (d *tarDir) OpenDirRead(p string) (kfs.Directory, error) {
	resolved, err := d.resolve(p)
	if err != nil {
		return nil, err
	}
	if resolved == "/" {
		return d, nil
	}
	e, ok := d.entries[resolved]
	if !ok {
		return nil, rc.New(rc.Directory, rc.Opening, rc.Directory, rc.NotFound)
	}
	if !e.isDir {
		return nil, rc.New(rc.Directory, rc.Opening, rc.Directory, rc.Incorrect)
	}
	return &tarDir{file: d.file, name: d.name, prefix: resolved, entries: d.entries}, nil
}

func (d *tarDir) Close() error {
	return d.file.Close()
}

// memberFile is a bounded view of one archive member.
type memberFile struct {
	archive kfs.File
	offset  int64
	size    int64
}

func (f *memberFile) ReadAt(p []byte, off int64) (int, error) {
	if off >= f.size {
		return 0, io.EOF
	}
	max := f.size - off
	if int64(len(p)) > max {
		n, err := f.archive.ReadAt(p[:max], f.offset+off)
		if err == nil {
			err = io.EOF
		}
		return n, err
	}
	return f.archive.ReadAt(p, f.offset+off)
}

func (f *memberFile) Size() (int64, error) {
	return f.size, nil
}

func (f *memberFile) RandomAccess() error {
	return f.archive.RandomAccess()
}

func (f *memberFile) Close() error {
	return nil
}
