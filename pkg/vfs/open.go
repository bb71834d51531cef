package vfs

import (
	"io"
	"strconv"
	"strings"

	"github.com/sungsoo/sratoolkit/pkg/clog"
	"github.com/sungsoo/sratoolkit/pkg/kfs"
	"github.com/sungsoo/sratoolkit/pkg/kfs/tarfs"
	"github.com/sungsoo/sratoolkit/pkg/kns"
	"github.com/sungsoo/sratoolkit/pkg/krypto"
	"github.com/sungsoo/sratoolkit/pkg/metrics"
	"github.com/sungsoo/sratoolkit/pkg/rc"
)

const probeSize = 4096

var schemeLabels = map[SchemeType]string{
	SchemeNone:          "none",
	SchemeFile:          "file",
	SchemeNcbiFile:      "ncbi-file",
	SchemeNcbiVfs:       "ncbi-vfs",
	SchemeNcbiAcc:       "ncbi-acc",
	SchemeNcbiObj:       "ncbi-obj",
	SchemeNcbiLegrefseq: "x-ncbi-legrefseq",
	SchemeHTTP:          "http",
	SchemeHTTPS:         "https",
	SchemeFTP:           "ftp",
	SchemeFasp:          "fasp",
	SchemeNotSupported:  "not-supported",
	SchemeInvalid:       "invalid",
}

// openDecryption runs the encryption probe over an already-open file and
// wires the matching decryption stage. Without the encrypted option or a
// force request, the raw file passes through untouched. A prefix that
// matches no envelope is not an error; the raw (possibly buffered) stream
// comes back.
func (m *Manager) openDecryption(file kfs.File, path *VPath, forceDecrypt bool) (kfs.File, bool, error) {
	hasEncOpt := path.HasOption(OptEncrypted)
	if !hasEncOpt && !forceDecrypt {
		return file, false, nil
	}

	// the probe needs to re-read from offset zero afterwards
	if file.RandomAccess() != nil {
		file = kfs.NewBufFileRead(file, kfs.ProbeBufSize)
	}

	prefix := make([]byte, probeSize)
	n, err := kfs.ReadAll(file, 0, prefix)
	if err != nil {
		return nil, false, rc.Wrap(err, rc.Mgr, rc.Opening, rc.File, rc.Unknown)
	}
	prefix = prefix[:n]

	switch {
	case krypto.IsEncFile(prefix):
		metrics.DecryptProbes.WithLabelValues("aes").Inc()
		key, err := m.getEncryptionKey(path)
		if err != nil {
			return nil, true, err
		}
		encFile, err := m.cipher.OpenEncFileRead(file, key)
		if err != nil {
			return nil, true, err
		}
		return kfs.NewBufFileRead(encFile, kfs.DecryptBufSize), true, nil

	case krypto.IsWGAEncFile(prefix):
		metrics.DecryptProbes.WithLabelValues("wga").Inc()
		key, err := m.getEncryptionKey(path)
		if err != nil {
			return nil, true, err
		}
		encFile, err := m.cipher.OpenWGAFileRead(file, key)
		if err != nil {
			return nil, true, err
		}
		return encFile, true, nil

	default:
		metrics.DecryptProbes.WithLabelValues("plain").Inc()
		return file, false, nil
	}
}

// openFileReadSpecial serves the pre-opened device paths. A nil file with
// a nil error means "not special, open normally".
func openFileReadSpecial(pathStr string) (kfs.File, error) {
	if !strings.HasPrefix(pathStr, "/dev/") {
		return nil, nil
	}

	switch {
	case pathStr == "/dev/stdin":
		return kfs.NewStdInFile(), nil
	case pathStr == "/dev/null":
		return kfs.NewNullFileRead(), nil
	case strings.HasPrefix(pathStr, "/dev/fd/"):
		fd, err := strconv.Atoi(pathStr[len("/dev/fd/"):])
		if err != nil {
			return nil, nil
		}
		return kfs.NewFDFileRead(fd)
	default:
		return nil, nil
	}
}

// openFileReadRegular validates that the path names a regular file and
// opens it.
func openFileReadRegular(dir kfs.Directory, pathStr string) (kfs.File, error) {
	resolved, err := dir.Resolve(pathStr)
	if err != nil {
		return nil, err
	}

	switch dir.PathType(resolved).Base() {
	case kfs.PathNotFound:
		return nil, rc.New(rc.Mgr, rc.Opening, rc.File, rc.NotFound)
	case kfs.PathBad:
		return nil, rc.New(rc.Mgr, rc.Opening, rc.File, rc.Invalid)
	case kfs.PathDir, kfs.PathCharDev, kfs.PathBlockDev, kfs.PathFIFO:
		return nil, rc.New(rc.Mgr, rc.Opening, rc.File, rc.Incorrect)
	case kfs.PathFile:
		return dir.OpenFileRead(resolved)
	default:
		return nil, rc.New(rc.Mgr, rc.Opening, rc.File, rc.Unknown)
	}
}

// openFileReadInt opens a file-like path relative to dir and applies the
// decryption probe.
func (m *Manager) openFileReadInt(dir kfs.Directory, path *VPath, forceDecrypt bool) (kfs.File, bool, error) {
	pathStr := path.pathString()
	if pathStr == "" {
		return nil, false, rc.New(rc.Mgr, rc.Opening, rc.Path, rc.Invalid)
	}

	file, err := openFileReadSpecial(pathStr)
	if err != nil {
		return nil, false, err
	}
	if file == nil {
		file, err = openFileReadRegular(dir, pathStr)
		if err != nil {
			return nil, false, err
		}
	}

	decrypted, wasEncrypted, err := m.openDecryption(file, path, forceDecrypt)
	if err != nil {
		_ = file.Close()
		return nil, wasEncrypted, err
	}
	return decrypted, wasEncrypted, nil
}

// openRemote opens a URL through the remote transport, wrapping it in a
// cache-tee when the resolver offers a cache location and in a plain
// read buffer otherwise.
func (m *Manager) openRemote(path *VPath) (kfs.File, error) {
	uri, err := path.MakeString()
	if err != nil {
		return nil, err
	}

	remote, err := kns.Open(uri)
	if err != nil {
		return nil, err
	}

	if m.resolver != nil {
		if location, err := m.resolver.Cache(uri, 0); err == nil {
			tee, err := kfs.NewCacheTee(remote, location, kfs.CacheBlockSize)
			if err == nil {
				return tee, nil
			}
			clog.Global().WithError(err).Warnf("cache-tee unavailable for '%s'", location)
		}
	}

	return kfs.NewBufFileRead(remote, kfs.RemoteBufSize), nil
}

// OpenFileRead opens a path as a readable byte stream, dispatching on the
// classified scheme.
func (m *Manager) OpenFileRead(path *VPath) (kfs.File, error) {
	return m.openFileRead(path, false)
}

// OpenFileReadDecrypt is OpenFileRead with the decryption probe forced.
func (m *Manager) OpenFileReadDecrypt(path *VPath) (kfs.File, error) {
	return m.openFileRead(path, true)
}

func (m *Manager) openFileRead(path *VPath, forceDecrypt bool) (kfs.File, error) {
	if m == nil {
		return nil, rc.New(rc.Mgr, rc.Opening, rc.Self, rc.Null)
	}
	if path == nil {
		return nil, rc.New(rc.Mgr, rc.Opening, rc.Param, rc.Null)
	}

	scheme := path.SchemeType()
	metrics.OpensTotal.WithLabelValues(schemeLabels[scheme]).Inc()

	switch scheme {
	default:
		return nil, rc.New(rc.File, rc.Opening, rc.Path, rc.Invalid)

	case SchemeNotSupported, SchemeFasp:
		return nil, rc.New(rc.File, rc.Opening, rc.Path, rc.Unsupported)

	case SchemeNcbiAcc:
		resolved, err := m.resolveAccession(0, path)
		if err != nil {
			return nil, err
		}
		switch resolved.SchemeType() {
		case SchemeHTTP, SchemeHTTPS, SchemeFTP:
			file, err := m.openRemote(resolved)
			if err != nil {
				return nil, err
			}
			decrypted, _, derr := m.openDecryption(file, path, forceDecrypt)
			if derr != nil {
				_ = file.Close()
				return nil, derr
			}
			return decrypted, nil
		default:
			file, _, err := m.openFileReadInt(m.cwd, mergeOptions(resolved, path), forceDecrypt)
			return file, err
		}

	case SchemeNone, SchemeNcbiVfs, SchemeFile, SchemeNcbiFile:
		file, _, err := m.openFileReadInt(m.cwd, path, forceDecrypt)
		return file, err

	case SchemeNcbiLegrefseq:
		return nil, rc.New(rc.File, rc.Opening, rc.Path, rc.Incorrect)

	case SchemeHTTP, SchemeHTTPS, SchemeFTP:
		file, err := m.openRemote(path)
		if err != nil {
			return nil, err
		}
		decrypted, _, derr := m.openDecryption(file, path, forceDecrypt)
		if derr != nil {
			_ = file.Close()
			return nil, derr
		}
		return decrypted, nil
	}
}

// mergeOptions keeps the original path's query options (pwfile, enc, ...)
// in effect for a freshly resolved location.
func mergeOptions(resolved, original *VPath) *VPath {
	if original.query == "" || resolved.query != "" {
		return resolved
	}
	merged := *resolved
	merged.query = original.query
	return &merged
}

// transformFileToDirectory turns an archive stream into a directory view,
// dispatching on the archive magic. Failure messages distinguish a likely
// wrong password from an unrecognized format.
func transformFileToDirectory(file kfs.File, pathStr string, wasEncrypted bool) (kfs.Directory, error) {
	if err := file.RandomAccess(); err != nil {
		clog.Global().WithError(err).Errorf(
			"Can not use files without random access as database archives '%s'", pathStr)
		return nil, rc.New(rc.Directory, rc.Opening, rc.File, rc.Incorrect)
	}

	prefix := make([]byte, probeSize)
	n, err := kfs.ReadAll(file, 0, prefix)
	if err != nil {
		clog.Global().WithError(err).Error(
			"Error reading the head of an archive to use as a database object")
		return nil, rc.Wrap(err, rc.Directory, rc.Opening, rc.File, rc.Unknown)
	}
	prefix = prefix[:n]

	if kfs.IsSRAFile(prefix) {
		return kfs.OpenSraArchive(file, pathStr)
	}

	dir, err := tarfs.OpenDir(file, pathStr)
	if err != nil {
		if wasEncrypted {
			// the RC stays as the archive layer reported it; see the
			// long-standing note about the WGA encryption RC
			clog.Global().WithError(err).Errorf(
				"could not use '%s' as an archive it was encrypted so the password "+
					"was possibly wrong or it is not SRA or TAR file", pathStr)
		} else {
			clog.Global().WithError(err).Infof(
				"could not use '%s' as an archive not identified as SRA or TAR file", pathStr)
		}
		return nil, err
	}
	return dir, nil
}

// openSubdirectory follows a URL fragment into a mounted archive.
func openSubdirectory(dir kfs.Directory, fragment string) (kfs.Directory, error) {
	if len(fragment) <= 1 {
		return dir, nil
	}
	return dir.OpenDirRead(strings.TrimPrefix(fragment, "#"))
}

// openDirectoryReadKfs opens a local path as a directory: real
// directories directly, archive files through the transform.
func (m *Manager) openDirectoryReadKfs(dir kfs.Directory, path *VPath, forceDecrypt bool) (kfs.Directory, error) {
	resolved, err := dir.Resolve(path.pathString())
	if err != nil {
		return nil, err
	}

	var mounted kfs.Directory
	switch dir.PathType(resolved).Base() {
	case kfs.PathNotFound:
		return nil, rc.New(rc.Mgr, rc.Opening, rc.Directory, rc.NotFound)

	case kfs.PathBad:
		return nil, rc.New(rc.Mgr, rc.Opening, rc.Directory, rc.Invalid)

	case kfs.PathDir:
		mounted, err = dir.OpenDirRead(resolved)
		if err != nil {
			return nil, err
		}

	case kfs.PathFile:
		file, wasEncrypted, err := m.openFileReadInt(dir, path, forceDecrypt)
		if err != nil {
			return nil, err
		}
		mounted, err = transformFileToDirectory(file, resolved, wasEncrypted)
		if err != nil {
			_ = file.Close()
			return nil, err
		}

	case kfs.PathCharDev, kfs.PathBlockDev, kfs.PathFIFO:
		return nil, rc.New(rc.Mgr, rc.Opening, rc.Directory, rc.Incorrect)

	default:
		return nil, rc.New(rc.Mgr, rc.Opening, rc.Directory, rc.Unknown)
	}

	return openSubdirectory(mounted, path.fragment)
}

// openDirectoryReadRemote mounts a remote archive: the cached stream gets
// a synthetic single-entry directory so the archive reader sees a
// conventional path.
func (m *Manager) openDirectoryReadRemote(path *VPath, forceDecrypt bool) (kfs.Directory, error) {
	file, err := m.openRemote(path)
	if err != nil {
		clog.Global().WithError(err).Errorf("error with remote open '%s:%s'",
			path.Scheme(), path.Path())
		return nil, err
	}

	mountName := path.Path()
	if idx := strings.LastIndex(mountName, "/"); idx >= 0 {
		mountName = mountName[idx+1:]
	}
	mount, err := kfs.NewQuickMountDir(file, mountName)
	if err != nil {
		_ = file.Close()
		return nil, err
	}

	// the archive reader sees the mount-relative file, not the raw stream
	borrowed, err := mount.OpenFileRead(mountName)
	if err != nil {
		_ = file.Close()
		return nil, err
	}

	decrypted, wasEncrypted, err := m.openDecryption(borrowed, path, forceDecrypt)
	if err != nil {
		_ = file.Close()
		return nil, err
	}

	mounted, err := transformFileToDirectory(decrypted, "/"+mountName, wasEncrypted)
	if err != nil {
		_ = file.Close()
		return nil, err
	}

	dir, err := openSubdirectory(mounted, path.fragment)
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	// closing the view releases the remote stream under the mount
	return &dirWithCloser{Directory: dir, extra: file}, nil
}

// dirWithCloser ties an extra resource's lifetime to a directory view.
type dirWithCloser struct {
	kfs.Directory
	extra io.Closer
}

func (d *dirWithCloser) Close() error {
	err := d.Directory.Close()
	if cerr := d.extra.Close(); err == nil {
		err = cerr
	}
	return err
}

// openDirectoryReadLegrefseq serves the legacy refseq scheme, where the
// fragment names the table inside the archive and is required.
func (m *Manager) openDirectoryReadLegrefseq(dir kfs.Directory, path *VPath, forceDecrypt bool) (kfs.Directory, error) {
	if len(path.fragment) < 2 {
		return nil, rc.New(rc.Mgr, rc.Opening, rc.Path, rc.Incorrect)
	}
	return m.openDirectoryReadKfs(dir, path, forceDecrypt)
}

// OpenDirectoryRead opens a path as a directory view: real directories,
// archives mounted as directories, or remote archives over the cache.
func (m *Manager) OpenDirectoryRead(path *VPath) (kfs.Directory, error) {
	return m.openDirectoryRead(path, false)
}

// OpenDirectoryReadDecrypt is OpenDirectoryRead with the decryption probe
// forced.
func (m *Manager) OpenDirectoryReadDecrypt(path *VPath) (kfs.Directory, error) {
	return m.openDirectoryRead(path, true)
}

func (m *Manager) openDirectoryRead(path *VPath, forceDecrypt bool) (kfs.Directory, error) {
	if m == nil {
		return nil, rc.New(rc.Directory, rc.Opening, rc.Self, rc.Null)
	}
	if path == nil {
		return nil, rc.New(rc.Directory, rc.Opening, rc.Param, rc.Null)
	}

	scheme := path.SchemeType()
	metrics.OpensTotal.WithLabelValues(schemeLabels[scheme]).Inc()

	switch scheme {
	default:
		return nil, rc.New(rc.Directory, rc.Opening, rc.Path, rc.Invalid)

	case SchemeNotSupported, SchemeFasp:
		return nil, rc.New(rc.Directory, rc.Opening, rc.Path, rc.Unsupported)

	case SchemeNcbiAcc:
		resolved, err := m.resolveAccession(0, path)
		if err != nil {
			return nil, err
		}
		switch resolved.SchemeType() {
		case SchemeHTTP, SchemeHTTPS, SchemeFTP:
			return m.openDirectoryReadRemote(carryFragment(resolved, path), forceDecrypt)
		default:
			return m.openDirectoryReadKfs(m.cwd, carryFragment(mergeOptions(resolved, path), path), forceDecrypt)
		}

	case SchemeNone, SchemeNcbiVfs, SchemeFile, SchemeNcbiFile:
		return m.openDirectoryReadKfs(m.cwd, path, forceDecrypt)

	case SchemeNcbiLegrefseq:
		return m.openDirectoryReadLegrefseq(m.cwd, path, forceDecrypt)

	case SchemeHTTP, SchemeHTTPS, SchemeFTP:
		return m.openDirectoryReadRemote(path, forceDecrypt)
	}
}

// carryFragment keeps the original path's fragment on a resolved one.
func carryFragment(resolved, original *VPath) *VPath {
	if original.fragment == "" || resolved.fragment != "" {
		return resolved
	}
	merged := *resolved
	merged.fragment = original.fragment
	return &merged
}
