package vfs

import (
	"fmt"
	"strings"
	"sync"

	"github.com/sungsoo/sratoolkit/pkg/clog"
	"github.com/sungsoo/sratoolkit/pkg/config"
	"github.com/sungsoo/sratoolkit/pkg/keystore"
	"github.com/sungsoo/sratoolkit/pkg/kfs"
	"github.com/sungsoo/sratoolkit/pkg/krypto"
	"github.com/sungsoo/sratoolkit/pkg/obj"
	"github.com/sungsoo/sratoolkit/pkg/rc"
	"github.com/sungsoo/sratoolkit/pkg/resolver"
)

// Manager composes the pieces of the VFS: the working directory, the
// configuration, the cipher manager, the keystore, and (when one could be
// built) the resolver. A process normally holds a single instance; Make
// hands out additional references to the same one.
type Manager struct {
	cwd      kfs.Directory
	cfg      config.Configer
	cipher   *krypto.CipherManager
	keystore *keystore.KeyStore
	resolver Resolver
}

var (
	singletonMu   sync.Mutex
	singleton     *Manager
	singletonRefs int
)

// Make returns the process-wide manager, creating it on first use from
// the package configuration. Every successful call is balanced by a
// Release.
func Make() (*Manager, error) {
	return MakeFromConfig(config.GetConfig())
}

// MakeFromConfig is Make with an explicit configuration. When the
// singleton already exists the configuration argument is ignored and
// another reference is returned.
func MakeFromConfig(cfg config.Configer) (*Manager, error) {
	singletonMu.Lock()
	defer singletonMu.Unlock()

	if singleton != nil {
		singletonRefs++
		return singleton, nil
	}

	if cfg == nil {
		return nil, rc.New(rc.Mgr, rc.Constructing, rc.Param, rc.Null)
	}

	cwd, err := kfs.NativeDir("")
	if err != nil {
		return nil, err
	}

	m := &Manager{
		cwd:      cwd,
		cfg:      cfg,
		cipher:   krypto.NewCipherManager(),
		keystore: keystore.New(cfg, cwd),
	}

	if cfg.GetKey(config.KeyRepositoryDirs) != "" || cfg.GetKey(config.KeyRemoteURL) != "" {
		m.resolver = resolver.NewDirResolver(cfg)
	} else {
		clog.Global().Warn("could not build vfs-resolver: no repository configured")
	}

	singleton = m
	singletonRefs = 1
	return m, nil
}

// Release drops one reference; the last one clears the singleton slot.
func (m *Manager) Release() {
	singletonMu.Lock()
	defer singletonMu.Unlock()

	if m == nil || m != singleton {
		return
	}
	singletonRefs--
	if singletonRefs <= 0 {
		singleton = nil
		singletonRefs = 0
	}
}

// MakePath parses a string into a VPath, synthesizing the implied scheme
// for plain paths so later serialization has it at hand.
func (m *Manager) MakePath(spec string) (*VPath, error) {
	if m == nil {
		return nil, rc.New(rc.Mgr, rc.Constructing, rc.Self, rc.Null)
	}
	if spec == "" {
		return nil, rc.New(rc.Mgr, rc.Constructing, rc.Path, rc.Empty)
	}

	path, err := Parse(spec)
	if err != nil {
		return nil, err
	}

	if !path.fromURI {
		if scheme, err := path.schemeInt(); err == nil {
			path.scheme = scheme
		}
	}
	return path, nil
}

// MakeAccPath coerces a textual accession into an accession path.
func (m *Manager) MakeAccPath(acc string) (*VPath, error) {
	path, err := m.MakePath(acc)
	if err != nil {
		return nil, err
	}

	switch path.pathType {
	case PTAccession:
	case PTNameOrAccession:
		path.pathType = PTAccession
	default:
		return nil, rc.New(rc.Mgr, rc.Constructing, rc.Token, rc.Incorrect)
	}

	if !path.fromURI {
		path.scheme = "ncbi-acc"
		path.schemeType = SchemeNcbiAcc
		path.fromURI = true
	}
	return path, nil
}

// MakeOidPath builds a path representing a registered object id.
func (m *Manager) MakeOidPath(oid uint32) (*VPath, error) {
	path, err := m.MakePath(fmt.Sprintf("%d", oid))
	if err != nil {
		return nil, err
	}

	switch path.pathType {
	case PTInvalid, PTNameOrAccession, PTName, PTNameOrOID:
	default:
		return nil, rc.New(rc.Mgr, rc.Constructing, rc.Token, rc.Incorrect)
	}

	path.scheme = "ncbi-obj"
	path.schemeType = SchemeNcbiObj
	path.fromURI = true
	path.objID = oid
	path.pathType = PTOID
	return path, nil
}

// GetCWD returns the manager's working directory handle.
func (m *Manager) GetCWD() kfs.Directory {
	return m.cwd
}

// GetConfig returns the configuration handle.
func (m *Manager) GetConfig() config.Configer {
	return m.cfg
}

// GetResolver returns the resolver, which may be nil when none could be
// configured.
func (m *Manager) GetResolver() Resolver {
	return m.resolver
}

// SetResolver replaces the resolver oracle. A typed-nil oracle clears
// the slot.
func (m *Manager) SetResolver(r Resolver) {
	if obj.IsNil(r) {
		m.resolver = nil
		return
	}
	m.resolver = r
}

// SetPwFile installs a process-wide password file override.
func (m *Manager) SetPwFile(path string) {
	m.keystore.SetPwFilePath(path)
}

// SetBindingsFile points the keystore at a bindings file.
func (m *Manager) SetBindingsFile(path string) {
	m.keystore.SetBindingsFile(path)
}

// GetBindingsFile returns the keystore's bindings file.
func (m *Manager) GetBindingsFile() string {
	return m.keystore.GetBindingsFile()
}

// RegisterObject binds an object id to the serialized form of a path.
func (m *Manager) RegisterObject(oid uint32, objPath *VPath) error {
	if m == nil {
		return rc.New(rc.Mgr, rc.Registering, rc.Self, rc.Null)
	}
	if objPath == nil {
		return rc.New(rc.Mgr, rc.Registering, rc.Param, rc.Null)
	}

	name, err := objPath.MakeString()
	if err != nil {
		return err
	}
	return m.keystore.RegisterObject(oid, name)
}

// GetObject retrieves the path registered under an object id.
func (m *Manager) GetObject(oid uint32) (*VPath, error) {
	if m == nil {
		return nil, rc.New(rc.Mgr, rc.Retrieving, rc.Self, rc.Null)
	}

	name, err := m.keystore.GetObjectName(oid)
	if err != nil {
		return nil, err
	}
	return m.MakePath(name)
}

// GetObjectID retrieves the object id registered for a path.
func (m *Manager) GetObjectID(objPath *VPath) (uint32, error) {
	if m == nil {
		return 0, rc.New(rc.Mgr, rc.Retrieving, rc.Self, rc.Null)
	}
	if objPath == nil {
		return 0, rc.New(rc.Mgr, rc.Retrieving, rc.Param, rc.Null)
	}

	name, err := objPath.MakeString()
	if err != nil {
		return 0, err
	}
	return m.keystore.GetObjectID(name)
}

// GetKryptoPassword returns the effective encryption key.
func (m *Manager) GetKryptoPassword() ([]byte, error) {
	if m == nil {
		return nil, rc.New(rc.Mgr, rc.Accessing, rc.Self, rc.Null)
	}
	return m.keystore.CurrentKey()
}

// UpdateKryptoPassword atomically rewrites the configured password file:
// the new password goes first, the old content is retained below it, and
// the staging file is renamed over the original. The directory holding
// the file must not be readable beyond 0750; violations are reported
// along with the directory name.
func (m *Manager) UpdateKryptoPassword(password []byte) (string, error) {
	if m == nil {
		return "", rc.New(rc.EncryptionKey, rc.Updating, rc.Self, rc.Null)
	}
	if len(password) == 0 {
		return "", rc.New(rc.EncryptionKey, rc.Updating, rc.Param, rc.Null)
	}
	if len(password) > krypto.MaxKeySize {
		return "", rc.New(rc.EncryptionKey, rc.Updating, rc.Size, rc.Excessive)
	}
	if strings.ContainsAny(string(password), "\n\r") {
		return "", rc.New(rc.EncryptionKey, rc.Updating, rc.EncryptionKey, rc.Invalid)
	}

	pwPath, err := m.keystore.PwFilePath()
	if err != nil {
		clog.Global().WithError(err).Error("failed to obtain configured path for password file")
		return "", err
	}

	pwDir := "."
	if idx := strings.LastIndex(pwPath, "/"); idx > 0 {
		pwDir = pwPath[:idx]
	} else if idx == 0 {
		pwDir = "/"
	}

	oldExists := false
	switch m.cwd.PathType(pwPath).Base() {
	case kfs.PathNotFound:
	case kfs.PathFile:
		oldExists = true
	case kfs.PathBad:
		return pwDir, rc.New(rc.EncryptionKey, rc.Updating, rc.Path, rc.Invalid)
	default:
		return pwDir, rc.New(rc.EncryptionKey, rc.Updating, rc.Path, rc.Incorrect)
	}

	var old []byte
	if oldExists {
		f, err := m.cwd.OpenFileRead(pwPath)
		if err != nil {
			clog.Global().WithError(err).Errorf("unable to open existing password file '%s'", pwPath)
			return pwDir, err
		}
		size, err := f.Size()
		if err == nil && size > 0 {
			old = make([]byte, size)
			if _, err := kfs.ReadAll(f, 0, old); err != nil {
				_ = f.Close()
				return pwDir, err
			}
		}
		_ = f.Close()
	}

	// identical current password: nothing to rewrite
	if len(old) > len(password) {
		cc := old[len(password)]
		if (cc == '\n' || cc == '\r') && strings.HasPrefix(string(old), string(password)) {
			return pwDir, nil
		}
	}

	tmpPath := pwPath + ".tmp"
	tmp, err := m.cwd.CreateFile(tmpPath, false, 0600, kfs.CreateInit|kfs.CreateParents)
	if err != nil {
		clog.Global().WithError(err).Errorf("unable to open temporary password file '%s'", tmpPath)
		return pwDir, err
	}

	content := make([]byte, 0, len(password)+1+len(old))
	content = append(content, password...)
	content = append(content, '\n')
	content = append(content, old...)

	if _, err := kfs.WriteAll(tmp, 0, content); err != nil {
		_ = tmp.Close()
		_ = m.cwd.Remove(tmpPath, false)
		clog.Global().WithError(err).Errorf("unable to write password to temporary password file '%s'", tmpPath)
		return pwDir, err
	}
	if err := tmp.Close(); err != nil {
		_ = m.cwd.Remove(tmpPath, false)
		return pwDir, err
	}

	if err := m.cwd.Rename(true, tmpPath, pwPath); err != nil {
		_ = m.cwd.Remove(tmpPath, false)
		return pwDir, err
	}

	access, err := m.cwd.Access(pwDir)
	if err == nil && access&0027 != 0 {
		return pwDir, rc.New(rc.EncryptionKey, rc.Updating, rc.Directory, rc.Excessive)
	}

	return pwDir, nil
}
