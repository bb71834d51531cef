package vfs

import (
	"strings"

	"github.com/sungsoo/sratoolkit/pkg/rc"
)

// Resolver is the oracle mapping accessions to concrete locations. Local
// returns a native path, Remote a URL, Cache a native cache-file path;
// each reports NotFound when it has nothing to offer. Implementations
// guarantee that an accession resolves to at most one of local and
// remote.
type Resolver interface {
	Local(accession string) (string, error)
	Remote(accession string, protocol string) (string, error)
	Cache(spec string, size int64) (string, error)
}

// ResolveFlags tune the resolve facade.
type ResolveFlags uint32

const (
	// ResolveNoAcc refuses accession resolution outright.
	ResolveNoAcc ResolveFlags = 1 << iota

	// ResolveNoAccLocal skips the local lookup.
	ResolveNoAccLocal

	// ResolveNoAccRemote skips the remote fallback.
	ResolveNoAccRemote

	// ResolveKdbAcc lets scheme-less names resolve as accessions.
	ResolveKdbAcc
)

// resolveAccession consults the oracle: local first, then remote over
// http. The one recovered error in the core is NotFound falling through
// from local to remote.
func (m *Manager) resolveAccession(flags ResolveFlags, inPath *VPath) (*VPath, error) {
	if flags&ResolveNoAcc != 0 {
		return nil, rc.New(rc.Mgr, rc.Resolving, rc.SRA, rc.NotAvailable)
	}
	if m.resolver == nil {
		return nil, rc.New(rc.Mgr, rc.Resolving, rc.SRA, rc.Unsupported)
	}

	acc := inPath.Path()

	if flags&ResolveNoAccLocal == 0 {
		local, err := m.resolver.Local(acc)
		if err == nil {
			return Parse("ncbi-file:" + local)
		}
		if !rc.Is(err, rc.NotFound) {
			return nil, err
		}
	}

	if flags&ResolveNoAccRemote == 0 {
		remote, err := m.resolver.Remote(acc, "http")
		if err != nil {
			return nil, err
		}
		return Parse(remote)
	}

	return nil, rc.New(rc.Mgr, rc.Resolving, rc.Path, rc.NotFound)
}

// resolvePathInt resolves one path against a base directory.
func (m *Manager) resolvePathInt(flags ResolveFlags, baseDir string, inPath *VPath) (*VPath, error) {
	switch inPath.SchemeType() {
	default:
		return nil, rc.New(rc.Mgr, rc.Resolving, rc.Path, rc.Invalid)

	case SchemeNotSupported, SchemeNcbiLegrefseq, SchemeFasp:
		return nil, rc.New(rc.Mgr, rc.Resolving, rc.Path, rc.Unsupported)

	case SchemeNcbiAcc:
		return m.resolveAccession(flags, inPath)

	case SchemeNone:
		// a scheme-less accession shape resolves through the oracle;
		// other names need the kdb flag to be tried as accessions
		tryAcc := inPath.PathType() == PTAccession ||
			(flags&ResolveKdbAcc != 0 && !strings.Contains(inPath.Path(), "/"))
		if tryAcc {
			resolved, err := m.resolveAccession(flags, inPath)
			if err == nil {
				return resolved, nil
			}
			if flags&ResolveNoAcc != 0 {
				return nil, err
			}
		}
		return m.resolveFilePath(baseDir, inPath)

	case SchemeNcbiVfs, SchemeFile, SchemeNcbiFile:
		return m.resolveFilePath(baseDir, inPath)

	case SchemeHTTP, SchemeHTTPS, SchemeFTP:
		// already fully resolved
		return inPath, nil
	}
}

// resolveFilePath absolutizes a file-like path against baseDir. Full and
// UNC paths pass through untouched.
func (m *Manager) resolveFilePath(baseDir string, inPath *VPath) (*VPath, error) {
	path := inPath.Path()
	if path == "" {
		return nil, rc.New(rc.Mgr, rc.Resolving, rc.Path, rc.Invalid)
	}
	if strings.HasPrefix(path, "/") {
		return inPath, nil
	}

	base, err := m.cwd.OpenDirRead(baseDir)
	if err != nil {
		return nil, err
	}
	resolved, err := base.Resolve(path)
	if err != nil {
		return nil, err
	}

	switch inPath.SchemeType() {
	case SchemeNcbiVfs, SchemeNcbiFile:
		// keep the scheme plus any query and fragment
		return Parse(inPath.Scheme() + ":" + resolved + inPath.Query() + inPath.Fragment())
	default:
		return Parse(resolved)
	}
}

// ResolvePath resolves a parsed path to a concrete local or remote
// location: relative paths against the manager's working directory,
// accessions through the resolver oracle.
func (m *Manager) ResolvePath(flags ResolveFlags, inPath *VPath) (*VPath, error) {
	if m == nil {
		return nil, rc.New(rc.Mgr, rc.Resolving, rc.Self, rc.Null)
	}
	if inPath == nil {
		return nil, rc.New(rc.Mgr, rc.Resolving, rc.Param, rc.Null)
	}
	return m.resolvePathInt(flags, ".", inPath)
}

// ResolvePathRelative resolves inPath against basePath instead of the
// working directory. Both paths must be non-nil.
func (m *Manager) ResolvePathRelative(flags ResolveFlags, basePath, inPath *VPath) (*VPath, error) {
	if m == nil {
		return nil, rc.New(rc.Mgr, rc.Resolving, rc.Self, rc.Null)
	}
	if basePath == nil || inPath == nil {
		return nil, rc.New(rc.Mgr, rc.Resolving, rc.Param, rc.Null)
	}

	base, err := basePath.MakeString()
	if err != nil {
		return nil, err
	}
	return m.resolvePathInt(flags, base, inPath)
}

// ResolveSpec resolves a raw spec string in one call: a path stays a
// path, an accession goes through the oracle, a URL is returned as-is
// with its cache location attached when one is configured.
func (m *Manager) ResolveSpec(spec string, resolveAcc bool) (path *VPath, cache *VPath, err error) {
	if m == nil {
		return nil, nil, rc.New(rc.Mgr, rc.Accessing, rc.Self, rc.Null)
	}
	if spec == "" {
		return nil, nil, rc.New(rc.Mgr, rc.Accessing, rc.Param, rc.Empty)
	}

	parsed, err := Parse(spec)
	if err != nil {
		return nil, nil, err
	}

	switch parsed.SchemeType() {
	default:
		return nil, nil, rc.New(rc.Mgr, rc.Accessing, rc.Param, rc.Invalid)

	case SchemeNone, SchemeNotSupported:
		if strings.Contains(parsed.Path(), "/") {
			resolved, err := Parse("ncbi-file:" + parsed.Path())
			return resolved, nil, err
		}
		if !resolveAcc {
			return nil, nil, rc.New(rc.Mgr, rc.Accessing, rc.Param, rc.Invalid)
		}
		resolved, err := m.resolveAccession(0, parsed)
		if rc.Is(err, rc.NotFound) {
			resolved, err = Parse("ncbi-file:" + parsed.Path())
		}
		if err != nil {
			return nil, nil, err
		}
		return m.attachCache(resolved)

	case SchemeNcbiVfs, SchemeFile, SchemeNcbiFile:
		return parsed, nil, nil

	case SchemeNcbiAcc:
		if !resolveAcc {
			return nil, nil, rc.New(rc.Mgr, rc.Accessing, rc.Param, rc.Invalid)
		}
		resolved, err := m.resolveAccession(0, parsed)
		if err != nil {
			return nil, nil, err
		}
		return m.attachCache(resolved)

	case SchemeHTTP, SchemeHTTPS, SchemeFTP:
		return m.attachCache(parsed)

	case SchemeNcbiLegrefseq:
		return parsed, nil, nil
	}
}

// attachCache asks the oracle for a cache location when the path ended up
// remote.
func (m *Manager) attachCache(path *VPath) (*VPath, *VPath, error) {
	switch path.SchemeType() {
	case SchemeHTTP, SchemeHTTPS, SchemeFTP:
	default:
		return path, nil, nil
	}
	if m.resolver == nil {
		return path, nil, nil
	}

	spec, err := path.MakeString()
	if err != nil {
		return path, nil, nil
	}
	location, err := m.resolver.Cache(spec, 0)
	if err != nil {
		return path, nil, nil
	}
	cache, err := Parse(location)
	if err != nil {
		return path, nil, nil
	}
	return path, cache, nil
}
