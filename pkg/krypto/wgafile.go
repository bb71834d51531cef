package krypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"encoding/binary"
	"io"

	"github.com/sungsoo/sratoolkit/pkg/kfs"
	"github.com/sungsoo/sratoolkit/pkg/rc"
)

// WGA envelope layout, a legacy read-only format:
//
//	magic    [8]byte  "NCBInenc"
//	version  uint32le
//	reserved uint32le
//	keycheck [16]byte md5(md5(password) + salt-free marker)
//	ptsize   uint64le plaintext size
//	iv       [16]byte
//	pad      [8]byte
const (
	wgaHeaderSize = 64
	wgaVersion    = 1
)

var wgaCheckMarker = []byte("wga-keycheck")

func deriveWGAKey(password []byte) []byte {
	sum := md5.Sum(password)
	return sum[:]
}

func wgaKeyCheck(key []byte) []byte {
	h := md5.New()
	h.Write(key)
	h.Write(wgaCheckMarker)
	return h.Sum(nil)
}

// wgaFile decrypts the legacy WGA envelope.
type wgaFile struct {
	inner kfs.File
	block cipher.Block
	iv    [16]byte
	size  int64
}

// NewWGAEncRead opens inner, which must carry the WGA envelope, for
// decrypted reading. Unlike the AES envelope, the header carries a key
// check, so a wrong password is rejected here.
func NewWGAEncRead(inner kfs.File, key []byte) (kfs.File, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}

	var hdr [wgaHeaderSize]byte
	n, err := kfs.ReadAll(inner, 0, hdr[:])
	if err != nil {
		return nil, rc.Wrap(err, rc.File, rc.Opening, rc.File, rc.Unknown)
	}
	if n < wgaHeaderSize {
		return nil, rc.New(rc.File, rc.Opening, rc.Data, rc.Insufficient)
	}
	if !IsWGAEncFile(hdr[:]) {
		return nil, rc.New(rc.File, rc.Opening, rc.Data, rc.Incorrect)
	}

	derived := deriveWGAKey(key)
	if !bytes.Equal(wgaKeyCheck(derived), hdr[16:32]) {
		return nil, rc.New(rc.File, rc.Opening, rc.EncryptionKey, rc.Invalid)
	}

	block, err := aes.NewCipher(derived)
	if err != nil {
		return nil, rc.Wrap(err, rc.File, rc.Opening, rc.EncryptionKey, rc.Invalid)
	}

	f := &wgaFile{
		inner: inner,
		block: block,
		size:  int64(binary.LittleEndian.Uint64(hdr[32:40])),
	}
	copy(f.iv[:], hdr[40:56])
	return f, nil
}

// Validate checks a password against the envelope in f without building a
// reader.
func Validate(f kfs.File, key []byte) error {
	var hdr [wgaHeaderSize]byte
	n, err := kfs.ReadAll(f, 0, hdr[:])
	if err != nil {
		return rc.Wrap(err, rc.File, rc.Reading, rc.File, rc.Unknown)
	}
	if n < wgaHeaderSize || !IsWGAEncFile(hdr[:]) {
		return rc.New(rc.File, rc.Reading, rc.Data, rc.Incorrect)
	}
	if !bytes.Equal(wgaKeyCheck(deriveWGAKey(key)), hdr[16:32]) {
		return rc.New(rc.EncryptionKey, rc.Reading, rc.EncryptionKey, rc.Invalid)
	}
	return nil
}

func (f *wgaFile) ReadAt(p []byte, off int64) (int, error) {
	if off >= f.size {
		return 0, io.EOF
	}
	if max := f.size - off; int64(len(p)) > max {
		p = p[:max]
	}

	n, err := f.inner.ReadAt(p, off+wgaHeaderSize)
	ctrXOR(f.block, f.iv[:], off, p[:n])
	return n, err
}

func (f *wgaFile) Size() (int64, error) {
	return f.size, nil
}

func (f *wgaFile) RandomAccess() error {
	return f.inner.RandomAccess()
}

func (f *wgaFile) Close() error {
	return f.inner.Close()
}

// EncryptWGA produces a WGA envelope around plaintext. The write side of
// this format exists only so tooling and tests can fabricate legacy data.
func EncryptWGA(plaintext, key []byte) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}

	derived := deriveWGAKey(key)
	block, err := aes.NewCipher(derived)
	if err != nil {
		return nil, rc.Wrap(err, rc.EncryptionKey, rc.Constructing, rc.EncryptionKey, rc.Invalid)
	}

	out := make([]byte, wgaHeaderSize+len(plaintext))
	copy(out[:8], wgaMagic)
	binary.LittleEndian.PutUint32(out[8:], wgaVersion)
	copy(out[16:32], wgaKeyCheck(derived))
	binary.LittleEndian.PutUint64(out[32:40], uint64(len(plaintext)))
	// legacy format: a fixed IV derived from the key
	copy(out[40:56], wgaKeyCheck(append(derived, wgaCheckMarker...)))

	body := out[wgaHeaderSize:]
	copy(body, plaintext)
	ctrXOR(block, out[40:56], 0, body)
	return out, nil
}
