// Package krypto recognizes the two on-disk encryption envelopes the VFS
// knows about and wires decryption stages over raw byte streams. The
// cipher primitives themselves come from the standard library and
// x/crypto; nothing here invents cryptography.
package krypto

import (
	"bytes"

	"github.com/sungsoo/sratoolkit/pkg/kfs"
	"github.com/sungsoo/sratoolkit/pkg/rc"
)

const (
	// MaxKeySize bounds encryption keys.
	MaxKeySize = 4096
)

var (
	encMagic = []byte("NeCnBcIo")
	wgaMagic = []byte("NCBInenc")
)

// IsEncFile reports whether prefix carries the AES envelope magic. The
// probe never consumes stream bytes.
func IsEncFile(prefix []byte) bool {
	return len(prefix) >= len(encMagic) && bytes.Equal(prefix[:len(encMagic)], encMagic)
}

// IsWGAEncFile reports whether prefix carries the legacy WGA envelope
// magic.
func IsWGAEncFile(prefix []byte) bool {
	return len(prefix) >= len(wgaMagic) && bytes.Equal(prefix[:len(wgaMagic)], wgaMagic)
}

func checkKey(key []byte) error {
	if len(key) == 0 {
		return rc.New(rc.EncryptionKey, rc.Constructing, rc.EncryptionKey, rc.Empty)
	}
	if len(key) > MaxKeySize {
		return rc.New(rc.EncryptionKey, rc.Constructing, rc.EncryptionKey, rc.Excessive)
	}
	return nil
}

// CipherManager builds the decryption and encryption stages the open
// pipeline composes around raw files.
type CipherManager struct{}

func NewCipherManager() *CipherManager {
	return &CipherManager{}
}

func (m *CipherManager) OpenEncFileRead(inner kfs.File, key []byte) (kfs.File, error) {
	return NewEncFileRead(inner, key)
}

func (m *CipherManager) OpenWGAFileRead(inner kfs.File, key []byte) (kfs.File, error) {
	return NewWGAEncRead(inner, key)
}

func (m *CipherManager) OpenEncFileWrite(inner kfs.WriteFile, key []byte) (kfs.WriteFile, error) {
	return NewEncFileWrite(inner, key)
}
