package kfs

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/sungsoo/sratoolkit/pkg/rc"
)

// sysDir is the OS-backed Directory.
type sysDir struct {
	base string
}

// NativeDir returns a Directory rooted at base. An empty base means the
// process working directory.
func NativeDir(base string) (Directory, error) {
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, rc.Wrap(err, rc.Directory, rc.Constructing, rc.Directory, rc.Unknown)
		}
		base = wd
	}
	return &sysDir{base: base}, nil
}

func (d *sysDir) Resolve(path string) (string, error) {
	if path == "" {
		return "", rc.New(rc.Directory, rc.Resolving, rc.Param, rc.Empty)
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}
	return filepath.Clean(filepath.Join(d.base, path)), nil
}

func (d *sysDir) PathType(path string) PathType {
	resolved, err := d.Resolve(path)
	if err != nil {
		return PathBad
	}

	var alias PathType
	li, err := os.Lstat(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return PathNotFound
		}
		return PathBad
	}
	if li.Mode()&os.ModeSymlink != 0 {
		alias = PathAlias
	}

	fi, err := os.Stat(resolved)
	if err != nil {
		// dangling symlink
		if os.IsNotExist(err) {
			return PathNotFound | alias
		}
		return PathBad
	}

	mode := fi.Mode()
	switch {
	case mode.IsDir():
		return PathDir | alias
	case mode&os.ModeCharDevice != 0:
		return PathCharDev | alias
	case mode&os.ModeDevice != 0:
		return PathBlockDev | alias
	case mode&os.ModeNamedPipe != 0:
		return PathFIFO | alias
	case mode.IsRegular():
		return PathFile | alias
	default:
		return PathBad
	}
}

func (d *sysDir) OpenFileRead(path string) (File, error) {
	resolved, err := d.Resolve(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, rc.Wrap(err, rc.Directory, rc.Opening, rc.File, rc.NotFound)
		}
		return nil, rc.Wrap(err, rc.Directory, rc.Opening, rc.File, rc.Unknown)
	}
	return &sysFile{f: f}, nil
}

func (d *sysDir) OpenFileWrite(path string, update bool) (WriteFile, error) {
	resolved, err := d.Resolve(path)
	if err != nil {
		return nil, err
	}

	flag := os.O_WRONLY
	if update {
		flag = os.O_RDWR
	}
	f, err := os.OpenFile(resolved, flag, 0)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, rc.Wrap(err, rc.Directory, rc.Opening, rc.File, rc.NotFound)
		}
		return nil, rc.Wrap(err, rc.Directory, rc.Opening, rc.File, rc.Unknown)
	}
	return &sysWriteFile{f: f}, nil
}

func (d *sysDir) CreateFile(path string, update bool, access os.FileMode, mode CreateMode) (WriteFile, error) {
	resolved, err := d.Resolve(path)
	if err != nil {
		return nil, err
	}

	if mode&CreateParents != 0 {
		if err := os.MkdirAll(filepath.Dir(resolved), 0755); err != nil {
			return nil, rc.Wrap(err, rc.Directory, rc.Opening, rc.Directory, rc.Unknown)
		}
	}

	flag := os.O_WRONLY | os.O_CREATE
	if update {
		flag = os.O_RDWR | os.O_CREATE
	}
	switch mode & createModeMask {
	case CreateOpen:
	case CreateInit:
		flag |= os.O_TRUNC
	case CreateNew:
		flag |= os.O_EXCL
	default:
		return nil, rc.New(rc.Directory, rc.Opening, rc.Param, rc.Invalid)
	}

	f, err := os.OpenFile(resolved, flag, access)
	if err != nil {
		return nil, rc.Wrap(err, rc.Directory, rc.Opening, rc.File, rc.Unknown)
	}
	return &sysWriteFile{f: f}, nil
}

func (d *sysDir) Remove(path string, force bool) error {
	resolved, err := d.Resolve(path)
	if err != nil {
		return err
	}

	if force {
		err = os.RemoveAll(resolved)
	} else {
		err = os.Remove(resolved)
	}
	if err != nil {
		return rc.Wrap(err, rc.Directory, rc.Opening, rc.File, rc.Unknown)
	}
	return nil
}

func (d *sysDir) Rename(force bool, from, to string) error {
	rfrom, err := d.Resolve(from)
	if err != nil {
		return err
	}
	rto, err := d.Resolve(to)
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Lstat(rto); err == nil {
			return rc.New(rc.Directory, rc.Updating, rc.File, rc.Excessive)
		}
	}
	if err := os.Rename(rfrom, rto); err != nil {
		return rc.Wrap(err, rc.Directory, rc.Updating, rc.File, rc.Unknown)
	}
	return nil
}

func (d *sysDir) Access(path string) (os.FileMode, error) {
	resolved, err := d.Resolve(path)
	if err != nil {
		return 0, err
	}

	fi, err := os.Stat(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, rc.Wrap(err, rc.Directory, rc.Accessing, rc.Path, rc.NotFound)
		}
		return 0, rc.Wrap(err, rc.Directory, rc.Accessing, rc.Path, rc.Unknown)
	}
	return fi.Mode().Perm(), nil
}

func (d *sysDir) OpenDirRead(path string) (Directory, error) {
	resolved, err := d.Resolve(path)
	if err != nil {
		return nil, err
	}

	fi, err := os.Stat(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, rc.Wrap(err, rc.Directory, rc.Opening, rc.Directory, rc.NotFound)
		}
		return nil, rc.Wrap(err, rc.Directory, rc.Opening, rc.Directory, rc.Unknown)
	}
	if !fi.IsDir() {
		return nil, rc.New(rc.Directory, rc.Opening, rc.Directory, rc.Incorrect)
	}
	return &sysDir{base: resolved}, nil
}

func (d *sysDir) Close() error {
	return nil
}

type sysFile struct {
	f *os.File
}

func (f *sysFile) ReadAt(p []byte, off int64) (int, error) {
	return f.f.ReadAt(p, off)
}

func (f *sysFile) Size() (int64, error) {
	fi, err := f.f.Stat()
	if err != nil {
		return 0, errors.Wrap(err, "stat")
	}
	return fi.Size(), nil
}

func (f *sysFile) RandomAccess() error {
	return nil
}

func (f *sysFile) Close() error {
	return f.f.Close()
}

type sysWriteFile struct {
	f *os.File
}

func (f *sysWriteFile) WriteAt(p []byte, off int64) (int, error) {
	return f.f.WriteAt(p, off)
}

func (f *sysWriteFile) Close() error {
	return f.f.Close()
}
