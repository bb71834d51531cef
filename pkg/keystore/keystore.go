// Package keystore resolves encryption keys and owns the object-id
// bindings the manager exposes. Keys come, in priority order, from a
// temporary slot, the VDB_PWFILE environment variable, a caller-supplied
// override, or the configured global password file.
package keystore

import (
	"os"
	"sync"

	"github.com/mitchellh/go-homedir"
	"github.com/sungsoo/sratoolkit/pkg/config"
	"github.com/sungsoo/sratoolkit/pkg/kfs"
	"github.com/sungsoo/sratoolkit/pkg/krypto"
	"github.com/sungsoo/sratoolkit/pkg/obj"
	"github.com/sungsoo/sratoolkit/pkg/rc"
)

type KeyStore struct {
	mu  sync.Mutex
	cfg config.Configer
	dir kfs.Directory

	tempKey []byte
	pwPath  string // caller override, below the environment

	bindingsPath string
	bindings     map[uint32]string
	names        map[string]uint32
}

func New(cfg config.Configer, dir kfs.Directory) *KeyStore {
	return &KeyStore{
		cfg:          cfg,
		dir:          dir,
		bindingsPath: cfg.GetKey(config.KeyBindingsFile),
	}
}

// SetTemporaryKeyFromFile loads the temporary key slot from f. A nil f
// clears the slot.
func (s *KeyStore) SetTemporaryKeyFromFile(f kfs.File) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if obj.IsNil(f) {
		s.tempKey = nil
		return nil
	}

	key, err := readKeyFile(f)
	if err != nil {
		return err
	}
	s.tempKey = key
	return nil
}

// SetPwFilePath installs a process-wide password file override, consulted
// after the environment but before configuration.
func (s *KeyStore) SetPwFilePath(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pwPath = path
}

// PwFilePath resolves the password file location: environment, override,
// configuration.
func (s *KeyStore) PwFilePath() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pwFilePathLocked()
}

func (s *KeyStore) pwFilePathLocked() (string, error) {
	path := os.Getenv(config.KeyPwFileEnv)
	if path == "" {
		path = s.pwPath
	}
	if path == "" {
		path = s.cfg.GetKey(config.KeyKryptoPwFile)
	}
	if path == "" {
		return "", rc.New(rc.Mgr, rc.Opening, rc.EncryptionKey, rc.NotFound)
	}

	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", rc.Wrap(err, rc.Mgr, rc.Opening, rc.Path, rc.Invalid)
	}
	return expanded, nil
}

// CurrentKey returns the effective encryption key. The temporary slot
// wins when set; otherwise the password file chain is read.
func (s *KeyStore) CurrentKey() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tempKey != nil {
		key := make([]byte, len(s.tempKey))
		copy(key, s.tempKey)
		return key, nil
	}

	path, err := s.pwFilePathLocked()
	if err != nil {
		return nil, err
	}

	f, err := s.dir.OpenFileRead(path)
	if err != nil {
		return nil, rc.Wrap(err, rc.Mgr, rc.Opening, rc.EncryptionKey, rc.NotFound)
	}
	defer f.Close()

	return readKeyFile(f)
}

// readKeyFile reads at most MaxKeySize+1 bytes (one extra to detect an
// over-long key) and cuts the key at the first newline or carriage return.
func readKeyFile(f kfs.File) ([]byte, error) {
	buf := make([]byte, krypto.MaxKeySize+1)
	n, err := kfs.ReadAll(f, 0, buf)
	if err != nil {
		return nil, rc.Wrap(err, rc.Mgr, rc.Reading, rc.EncryptionKey, rc.Unknown)
	}

	// the file may carry retained older passwords after the first line
	key := buf[:n]
	terminated := false
	for i, b := range key {
		if b == '\n' || b == '\r' {
			key = key[:i]
			terminated = true
			break
		}
	}
	if len(key) > krypto.MaxKeySize || (!terminated && n > krypto.MaxKeySize) {
		return nil, rc.New(rc.Mgr, rc.Reading, rc.EncryptionKey, rc.Excessive)
	}
	if len(key) == 0 {
		return nil, rc.New(rc.Mgr, rc.Reading, rc.EncryptionKey, rc.Invalid)
	}
	return key, nil
}
