package vfs

import (
	"os"
	"strconv"
	"strings"

	"github.com/sungsoo/sratoolkit/pkg/kfs"
	"github.com/sungsoo/sratoolkit/pkg/rc"
)

// openFileWriteSpecial serves the pre-opened device paths for writing. A
// nil file with a nil error means "not special".
func openFileWriteSpecial(pathStr string, update bool) (kfs.WriteFile, error) {
	if !strings.HasPrefix(pathStr, "/dev/") {
		return nil, nil
	}

	switch {
	case pathStr == "/dev/stdout":
		return kfs.NewStdOutFile(), nil
	case pathStr == "/dev/stderr":
		return kfs.NewStdErrFile(), nil
	case pathStr == "/dev/null":
		return kfs.NewNullFileWrite(), nil
	case strings.HasPrefix(pathStr, "/dev/fd/"):
		fd, err := strconv.Atoi(pathStr[len("/dev/fd/"):])
		if err != nil {
			return nil, nil
		}
		return kfs.NewFDFileWrite(fd, update)
	default:
		return nil, nil
	}
}

// wrapEncryptionWrite honors the encrypted option on the write side.
func (m *Manager) wrapEncryptionWrite(file kfs.WriteFile, path *VPath) (kfs.WriteFile, error) {
	if !path.HasOption(OptEncrypted) {
		return file, nil
	}

	key, err := m.getEncryptionKey(path)
	if err != nil {
		return nil, err
	}
	return m.cipher.OpenEncFileWrite(file, key)
}

// OpenFileWrite opens an existing file for writing; update selects
// read/write over write-only.
func (m *Manager) OpenFileWrite(path *VPath, update bool) (kfs.WriteFile, error) {
	if m == nil {
		return nil, rc.New(rc.Mgr, rc.Opening, rc.Self, rc.Null)
	}
	if path == nil {
		return nil, rc.New(rc.Mgr, rc.Opening, rc.Param, rc.Null)
	}

	pathStr := path.pathString()
	if pathStr == "" {
		return nil, rc.New(rc.Mgr, rc.Opening, rc.Path, rc.Invalid)
	}

	file, err := openFileWriteSpecial(pathStr, update)
	if err != nil {
		return nil, err
	}
	if file == nil {
		resolved, err := m.cwd.Resolve(pathStr)
		if err != nil {
			return nil, err
		}

		switch m.cwd.PathType(resolved).Base() {
		case kfs.PathNotFound:
			return nil, rc.New(rc.Mgr, rc.Opening, rc.File, rc.NotFound)
		case kfs.PathFile:
			file, err = m.cwd.OpenFileWrite(resolved, update)
			if err != nil {
				return nil, err
			}
		case kfs.PathBad:
			return nil, rc.New(rc.Mgr, rc.Opening, rc.File, rc.Invalid)
		case kfs.PathDir, kfs.PathCharDev, kfs.PathBlockDev, kfs.PathFIFO:
			return nil, rc.New(rc.Mgr, rc.Opening, rc.File, rc.Incorrect)
		default:
			return nil, rc.New(rc.Mgr, rc.Opening, rc.File, rc.Unknown)
		}
	}

	wrapped, err := m.wrapEncryptionWrite(file, path)
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	return wrapped, nil
}

// CreateFile creates (or re-creates, per mode) a file for writing,
// honoring the encrypted option. A file created here is removed again
// when the encryption stage cannot be built.
func (m *Manager) CreateFile(path *VPath, update bool, access os.FileMode, mode kfs.CreateMode) (kfs.WriteFile, error) {
	if m == nil {
		return nil, rc.New(rc.Mgr, rc.Opening, rc.Self, rc.Null)
	}
	if path == nil {
		return nil, rc.New(rc.Mgr, rc.Opening, rc.Param, rc.Null)
	}

	pathStr := path.pathString()
	if pathStr == "" {
		return nil, rc.New(rc.Mgr, rc.Opening, rc.Path, rc.Invalid)
	}

	file, err := openFileWriteSpecial(pathStr, update)
	if err != nil {
		return nil, err
	}

	fileCreated := false
	var resolved string
	if file == nil {
		resolved, err = m.cwd.Resolve(pathStr)
		if err != nil {
			return nil, err
		}

		switch m.cwd.PathType(resolved).Base() {
		case kfs.PathNotFound, kfs.PathFile:
			file, err = m.cwd.CreateFile(resolved, update, access, mode)
			if err != nil {
				return nil, err
			}
			fileCreated = true
		case kfs.PathBad:
			return nil, rc.New(rc.Mgr, rc.Opening, rc.File, rc.Invalid)
		case kfs.PathDir, kfs.PathCharDev, kfs.PathBlockDev, kfs.PathFIFO:
			return nil, rc.New(rc.Mgr, rc.Opening, rc.File, rc.Incorrect)
		default:
			return nil, rc.New(rc.Mgr, rc.Opening, rc.File, rc.Unknown)
		}
	}

	wrapped, err := m.wrapEncryptionWrite(file, path)
	if err != nil {
		_ = file.Close()
		if fileCreated {
			_ = m.cwd.Remove(resolved, true)
		}
		return nil, err
	}
	return wrapped, nil
}

// Remove deletes the object path refers to; force removes directories
// recursively. A missing object is not an error.
func (m *Manager) Remove(path *VPath, force bool) error {
	if m == nil {
		return rc.New(rc.Mgr, rc.Opening, rc.Self, rc.Null)
	}
	if path == nil {
		return rc.New(rc.Mgr, rc.Opening, rc.Param, rc.Null)
	}

	pathStr := path.pathString()
	if pathStr == "" {
		return rc.New(rc.Mgr, rc.Opening, rc.Path, rc.Invalid)
	}

	resolved, err := m.cwd.Resolve(pathStr)
	if err != nil {
		return err
	}

	switch m.cwd.PathType(resolved).Base() {
	case kfs.PathNotFound:
		return nil
	case kfs.PathBad:
		return rc.New(rc.Mgr, rc.Opening, rc.File, rc.Invalid)
	default:
		return m.cwd.Remove(resolved, force)
	}
}

// OpenDirectoryUpdate opens a real local directory for update; remote
// schemes are rejected outright.
func (m *Manager) OpenDirectoryUpdate(path *VPath) (kfs.Directory, error) {
	if m == nil {
		return nil, rc.New(rc.Mgr, rc.Opening, rc.Self, rc.Null)
	}
	if path == nil {
		return nil, rc.New(rc.Mgr, rc.Opening, rc.Param, rc.Null)
	}

	switch path.SchemeType() {
	case SchemeHTTP, SchemeHTTPS, SchemeFTP, SchemeFasp:
		return nil, rc.New(rc.Mgr, rc.Opening, rc.Param, rc.WrongType)
	}

	resolved, err := m.cwd.Resolve(path.pathString())
	if err != nil {
		return nil, err
	}

	switch m.cwd.PathType(resolved).Base() {
	case kfs.PathNotFound:
		return nil, rc.New(rc.Mgr, rc.Opening, rc.Directory, rc.NotFound)
	case kfs.PathFile:
		return nil, rc.New(rc.Mgr, rc.Opening, rc.Directory, rc.ReadOnly)
	case kfs.PathBad:
		return nil, rc.New(rc.Mgr, rc.Opening, rc.Directory, rc.Invalid)
	case kfs.PathDir:
		return m.cwd.OpenDirRead(resolved)
	case kfs.PathCharDev, kfs.PathBlockDev, kfs.PathFIFO:
		return nil, rc.New(rc.Mgr, rc.Opening, rc.Directory, rc.Incorrect)
	default:
		return nil, rc.New(rc.Mgr, rc.Opening, rc.Directory, rc.Unknown)
	}
}
