package vfs

import (
	"strconv"

	"github.com/sungsoo/sratoolkit/pkg/kfs"
	"github.com/sungsoo/sratoolkit/pkg/rc"
)

// getEncryptionKey resolves the key used to decrypt path's content, in
// priority order: a pwfile query option naming a file, a pwfile option
// naming a descriptor, then whatever the keystore holds. The temporary
// slot is cleared unconditionally on the way out.
func (m *Manager) getEncryptionKey(path *VPath) ([]byte, error) {
	defer func() {
		_ = m.keystore.SetTemporaryKeyFromFile(nil)
	}()

	if pwPath, err := path.Option(OptPwPath); err == nil {
		f, err := m.cwd.OpenFileRead(pwPath)
		if err != nil {
			return nil, rc.Wrap(err, rc.Mgr, rc.Opening, rc.EncryptionKey, rc.NotFound)
		}
		if err := m.keystore.SetTemporaryKeyFromFile(f); err != nil {
			_ = f.Close()
			return nil, err
		}
		if err := f.Close(); err != nil {
			return nil, err
		}
	} else if pwFd, err := path.Option(OptPwFd); err == nil {
		fd, convErr := strconv.Atoi(pwFd)
		if convErr != nil {
			return nil, rc.New(rc.Path, rc.Reading, rc.Param, rc.Invalid)
		}
		f, err := kfs.NewFDFileRead(fd)
		if err != nil {
			return nil, err
		}
		if err := m.keystore.SetTemporaryKeyFromFile(f); err != nil {
			_ = f.Close()
			return nil, err
		}
		if err := f.Close(); err != nil {
			return nil, err
		}
	}

	return m.keystore.CurrentKey()
}
