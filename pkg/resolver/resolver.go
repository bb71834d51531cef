// Package resolver maps accessions to concrete locations: local
// repository files, remote URLs synthesized from a configured base, and
// cache-file locations. It is the oracle behind the VFS resolve facade.
package resolver

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sungsoo/sratoolkit/pkg/config"
	"github.com/sungsoo/sratoolkit/pkg/rc"
)

// DirResolver resolves accessions against a list of repository roots and
// a remote base URL.
type DirResolver struct {
	roots     []string
	remoteURL string
	cacheDir  string
}

func NewDirResolver(cfg config.Configer) *DirResolver {
	var roots []string
	for _, root := range strings.Split(cfg.GetKey(config.KeyRepositoryDirs), ":") {
		if root != "" {
			roots = append(roots, root)
		}
	}
	return &DirResolver{
		roots:     roots,
		remoteURL: strings.TrimRight(cfg.GetKey(config.KeyRemoteURL), "/"),
		cacheDir:  cfg.GetKey(config.KeyCacheDir),
	}
}

// Local finds an accession in the repository roots, trying the bare name
// and the conventional ".sra" spelling. Returns the native path.
func (r *DirResolver) Local(accession string) (string, error) {
	if accession == "" {
		return "", rc.New(rc.Mgr, rc.Resolving, rc.Param, rc.Empty)
	}

	for _, root := range r.roots {
		for _, candidate := range []string{
			filepath.Join(root, accession),
			filepath.Join(root, accession+".sra"),
		} {
			fi, err := os.Stat(candidate)
			if err == nil && fi.Mode().IsRegular() {
				return candidate, nil
			}
		}
	}
	return "", rc.New(rc.Mgr, rc.Resolving, rc.Path, rc.NotFound)
}

// Remote synthesizes the remote URL for an accession.
func (r *DirResolver) Remote(accession string, protocol string) (string, error) {
	if accession == "" {
		return "", rc.New(rc.Mgr, rc.Resolving, rc.Param, rc.Empty)
	}
	if r.remoteURL == "" {
		return "", rc.New(rc.Mgr, rc.Resolving, rc.Path, rc.NotFound)
	}
	if protocol != "" && protocol != "http" && protocol != "https" {
		return "", rc.New(rc.Mgr, rc.Resolving, rc.Param, rc.Unsupported)
	}
	return fmt.Sprintf("%s/%s.sra", r.remoteURL, accession), nil
}

// Cache names the local cache file for a remote object. The size is
// advisory; callers may pass zero.
func (r *DirResolver) Cache(spec string, size int64) (string, error) {
	if spec == "" {
		return "", rc.New(rc.Mgr, rc.Resolving, rc.Param, rc.Empty)
	}
	if r.cacheDir == "" {
		return "", rc.New(rc.Mgr, rc.Resolving, rc.Path, rc.NotFound)
	}

	name := spec
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	if idx := strings.IndexAny(name, "?#"); idx >= 0 {
		name = name[:idx]
	}
	if name == "" {
		return "", rc.New(rc.Mgr, rc.Resolving, rc.Param, rc.Invalid)
	}
	return filepath.Join(r.cacheDir, name+".cache"), nil
}
