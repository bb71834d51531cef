package kfs

import (
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sungsoo/sratoolkit/pkg/lock"
	"github.com/sungsoo/sratoolkit/pkg/metrics"
	"github.com/sungsoo/sratoolkit/pkg/rc"
)

// CacheBlockSize is the cache-tee block granularity.
const CacheBlockSize = 128 * 1024

var cacheLocker = lock.NewPathLocker()

// CacheTee reads from an upstream File and writes the fetched bytes into a
// sparse local file at matching offsets, serving repeated reads from the
// local copy. Block presence is tracked in a bitmap persisted to a sidecar
// so a later open resumes a partial cache.
type CacheTee struct {
	mu sync.Mutex

	upstream  File
	local     *os.File
	cachePath string
	lockFile  *LockFile

	size      int64
	blockSize int64
	bits      []uint64
}

// NewCacheTee opens (or resumes) the cache file at cachePath over
// upstream. Within one cached stream, reads at an offset see bytes
// consistent with concurrent fetches at the same offset.
func NewCacheTee(upstream File, cachePath string, blockSize int64) (*CacheTee, error) {
	if blockSize <= 0 {
		blockSize = CacheBlockSize
	}

	size, err := upstream.Size()
	if err != nil {
		return nil, rc.Wrap(err, rc.File, rc.Opening, rc.File, rc.Unknown)
	}

	cacheLocker.AcquireLock(cachePath)
	defer cacheLocker.ReleaseLock(cachePath)

	lockFile, err := AcquireLockFile(cachePath)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(cachePath), 0755); err != nil {
		_ = lockFile.Release()
		return nil, rc.Wrap(err, rc.File, rc.Opening, rc.Directory, rc.Unknown)
	}

	local, err := os.OpenFile(cachePath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		_ = lockFile.Release()
		return nil, rc.Wrap(err, rc.File, rc.Opening, rc.File, rc.Unknown)
	}
	if err := local.Truncate(size); err != nil {
		_ = local.Close()
		_ = lockFile.Release()
		return nil, rc.Wrap(err, rc.File, rc.Opening, rc.File, rc.Unknown)
	}

	blocks := (size + blockSize - 1) / blockSize
	t := &CacheTee{
		upstream:  upstream,
		local:     local,
		cachePath: cachePath,
		lockFile:  lockFile,
		size:      size,
		blockSize: blockSize,
		bits:      make([]uint64, (blocks+63)/64),
	}
	t.loadBitmap()
	return t, nil
}

func (t *CacheTee) bitmapPath() string {
	return t.cachePath + ".bitmap"
}

func (t *CacheTee) loadBitmap() {
	raw, err := os.ReadFile(t.bitmapPath())
	if err != nil || len(raw) < 8 {
		return
	}
	if int64(binary.LittleEndian.Uint64(raw)) != t.size {
		// stale bitmap for a different upstream size
		return
	}
	raw = raw[8:]
	for i := 0; i < len(t.bits) && (i+1)*8 <= len(raw); i++ {
		t.bits[i] = binary.LittleEndian.Uint64(raw[i*8:])
	}
}

func (t *CacheTee) saveBitmap() error {
	raw := make([]byte, 8+len(t.bits)*8)
	binary.LittleEndian.PutUint64(raw, uint64(t.size))
	for i, w := range t.bits {
		binary.LittleEndian.PutUint64(raw[8+i*8:], w)
	}
	return os.WriteFile(t.bitmapPath(), raw, 0644)
}

func (t *CacheTee) hasBlock(blk int64) bool {
	return t.bits[blk/64]&(1<<uint(blk%64)) != 0
}

func (t *CacheTee) setBlock(blk int64) {
	t.bits[blk/64] |= 1 << uint(blk%64)
}

// ensureBlock fetches one block from upstream into the local file unless
// it is already present.
func (t *CacheTee) ensureBlock(blk int64) error {
	if t.hasBlock(blk) {
		metrics.CacheHits.Inc()
		return nil
	}
	metrics.CacheMisses.Inc()

	start := blk * t.blockSize
	end := start + t.blockSize
	if end > t.size {
		end = t.size
	}

	buf := make([]byte, end-start)
	n, err := ReadAll(t.upstream, start, buf)
	if err != nil {
		return err
	}
	if int64(n) != end-start {
		return rc.New(rc.File, rc.Reading, rc.Data, rc.Insufficient)
	}

	if _, err := t.local.WriteAt(buf, start); err != nil {
		return rc.Wrap(err, rc.File, rc.Writing, rc.File, rc.Unknown)
	}
	t.setBlock(blk)
	return nil
}

func (t *CacheTee) ReadAt(p []byte, off int64) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if off >= t.size {
		return 0, io.EOF
	}
	end := off + int64(len(p))
	if end > t.size {
		end = t.size
	}

	for blk := off / t.blockSize; blk*t.blockSize < end; blk++ {
		if err := t.ensureBlock(blk); err != nil {
			return 0, err
		}
	}

	n, err := t.local.ReadAt(p[:end-off], off)
	if err == nil && end < off+int64(len(p)) {
		err = io.EOF
	}
	return n, err
}

func (t *CacheTee) Size() (int64, error) {
	return t.size, nil
}

func (t *CacheTee) RandomAccess() error {
	return nil
}

// Complete reports whether every block has been fetched.
func (t *CacheTee) Complete() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	blocks := (t.size + t.blockSize - 1) / t.blockSize
	for blk := int64(0); blk < blocks; blk++ {
		if !t.hasBlock(blk) {
			return false
		}
	}
	return true
}

func (t *CacheTee) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	saveErr := t.saveBitmap()
	closeErr := t.local.Close()
	releaseErr := t.lockFile.Release()
	upstreamErr := t.upstream.Close()

	for _, err := range []error{saveErr, closeErr, releaseErr, upstreamErr} {
		if err != nil {
			return err
		}
	}
	return nil
}
