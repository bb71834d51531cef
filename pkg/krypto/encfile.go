package krypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"io"

	"golang.org/x/crypto/pbkdf2"

	"github.com/sungsoo/sratoolkit/pkg/kfs"
	"github.com/sungsoo/sratoolkit/pkg/rc"
)

// AES envelope layout: an 8-byte magic, a version, a salt and an IV,
// followed by the AES-256-CTR ciphertext of the plaintext.
//
//	magic    [8]byte  "NeCnBcIo"
//	version  uint32le
//	reserved uint32le
//	salt     [16]byte
//	iv       [16]byte
const (
	encHeaderSize = 48
	encVersion    = 2
	encKDFRounds  = 4096
	encKeySize    = 32
)

func deriveEncKey(password, salt []byte) []byte {
	return pbkdf2.Key(password, salt, encKDFRounds, encKeySize, sha256.New)
}

// encFile decrypts an AES envelope on the fly. Random access carries
// through from the raw stream.
type encFile struct {
	inner kfs.File
	block cipher.Block
	iv    [16]byte
	size  int64
}

// NewEncFileRead opens inner, which must carry the AES envelope, for
// decrypted reading with key. A wrong key is not detectable here; it
// yields garbage plaintext the caller's format probes will reject.
func NewEncFileRead(inner kfs.File, key []byte) (kfs.File, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}

	var hdr [encHeaderSize]byte
	n, err := kfs.ReadAll(inner, 0, hdr[:])
	if err != nil {
		return nil, rc.Wrap(err, rc.File, rc.Opening, rc.File, rc.Unknown)
	}
	if n < encHeaderSize {
		return nil, rc.New(rc.File, rc.Opening, rc.Data, rc.Insufficient)
	}
	if !IsEncFile(hdr[:]) {
		return nil, rc.New(rc.File, rc.Opening, rc.Data, rc.Incorrect)
	}
	if binary.LittleEndian.Uint32(hdr[8:]) != encVersion {
		return nil, rc.New(rc.File, rc.Opening, rc.Data, rc.Unsupported)
	}

	rawSize, err := inner.Size()
	if err != nil {
		return nil, rc.Wrap(err, rc.File, rc.Opening, rc.File, rc.Unknown)
	}

	block, err := aes.NewCipher(deriveEncKey(key, hdr[16:32]))
	if err != nil {
		return nil, rc.Wrap(err, rc.File, rc.Opening, rc.EncryptionKey, rc.Invalid)
	}

	f := &encFile{
		inner: inner,
		block: block,
		size:  rawSize - encHeaderSize,
	}
	copy(f.iv[:], hdr[32:48])
	return f, nil
}

func (f *encFile) ReadAt(p []byte, off int64) (int, error) {
	if off >= f.size {
		return 0, io.EOF
	}
	if max := f.size - off; int64(len(p)) > max {
		p = p[:max]
	}

	n, err := f.inner.ReadAt(p, off+encHeaderSize)
	ctrXOR(f.block, f.iv[:], off, p[:n])
	return n, err
}

func (f *encFile) Size() (int64, error) {
	return f.size, nil
}

func (f *encFile) RandomAccess() error {
	return f.inner.RandomAccess()
}

func (f *encFile) Close() error {
	return f.inner.Close()
}

// encWriteFile produces the AES envelope while bytes are written.
type encWriteFile struct {
	inner kfs.WriteFile
	block cipher.Block
	iv    [16]byte
}

// NewEncFileWrite wraps inner so plaintext written through it lands as an
// AES envelope. The header is written immediately.
func NewEncFileWrite(inner kfs.WriteFile, key []byte) (kfs.WriteFile, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}

	var hdr [encHeaderSize]byte
	copy(hdr[:8], encMagic)
	binary.LittleEndian.PutUint32(hdr[8:], encVersion)
	if _, err := rand.Read(hdr[16:48]); err != nil {
		return nil, rc.Wrap(err, rc.File, rc.Opening, rc.Data, rc.Exhausted)
	}

	block, err := aes.NewCipher(deriveEncKey(key, hdr[16:32]))
	if err != nil {
		return nil, rc.Wrap(err, rc.File, rc.Opening, rc.EncryptionKey, rc.Invalid)
	}

	if _, err := kfs.WriteAll(inner, 0, hdr[:]); err != nil {
		return nil, err
	}

	f := &encWriteFile{inner: inner, block: block}
	copy(f.iv[:], hdr[32:48])
	return f, nil
}

func (f *encWriteFile) WriteAt(p []byte, off int64) (int, error) {
	enc := make([]byte, len(p))
	copy(enc, p)
	ctrXOR(f.block, f.iv[:], off, enc)
	return f.inner.WriteAt(enc, off+encHeaderSize)
}

func (f *encWriteFile) Close() error {
	return f.inner.Close()
}
