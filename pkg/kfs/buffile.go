package kfs

import (
	"io"
	"sync"

	"github.com/sungsoo/sratoolkit/pkg/rc"
)

// Read-side buffer sizes used by the open pipeline.
const (
	ProbeBufSize   = 64 * 1024
	RemoteBufSize  = 128 * 1024 * 1024
	DecryptBufSize = 256 * 1024 * 1024
)

const bufChunkSize = 128 * 1024

// BufFile is a read-side buffer over another File. Above a random-access
// stream it caches a sliding window; above a sequential stream it
// accumulates a prefix (up to max bytes) so early offsets stay readable
// after the probe has consumed them.
type BufFile struct {
	mu    sync.Mutex
	inner File
	max   int64

	seq    bool
	prefix []byte
	pos    int64 // next sequential read offset on inner
	eof    bool

	winStart int64
	window   []byte
}

func NewBufFileRead(inner File, max int64) File {
	if max < bufChunkSize {
		max = bufChunkSize
	}
	return &BufFile{
		inner: inner,
		max:   max,
		seq:   inner.RandomAccess() != nil,
	}
}

func (f *BufFile) ReadAt(p []byte, off int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if off < 0 {
		return 0, rc.New(rc.File, rc.Reading, rc.Param, rc.Invalid)
	}
	if f.seq {
		return f.readSeq(p, off)
	}
	return f.readWindow(p, off)
}

// readSeq serves reads out of the accumulated prefix, pulling more bytes
// from the sequential inner stream as needed.
func (f *BufFile) readSeq(p []byte, off int64) (int, error) {
	need := off + int64(len(p))
	if need > f.max {
		need = f.max
	}

	for !f.eof && f.pos < need {
		chunk := make([]byte, bufChunkSize)
		n, err := f.inner.ReadAt(chunk, f.pos)
		if n > 0 {
			f.prefix = append(f.prefix, chunk[:n]...)
			f.pos += int64(n)
		}
		if err == io.EOF {
			f.eof = true
			break
		}
		if err != nil {
			return 0, err
		}
		if n == 0 {
			f.eof = true
		}
	}

	if off >= int64(len(f.prefix)) {
		if f.eof {
			return 0, io.EOF
		}
		// beyond the buffered prefix on a sequential stream
		return 0, rc.New(rc.File, rc.Reading, rc.Param, rc.Unsupported)
	}

	n := copy(p, f.prefix[off:])
	if n < len(p) {
		if f.eof {
			return n, io.EOF
		}
		return n, rc.New(rc.File, rc.Reading, rc.Param, rc.Unsupported)
	}
	return n, nil
}

// readWindow serves reads out of a cached window of the random-access
// inner stream, refilling the window around misses.
func (f *BufFile) readWindow(p []byte, off int64) (int, error) {
	if f.window != nil && off >= f.winStart && off < f.winStart+int64(len(f.window)) {
		n := copy(p, f.window[off-f.winStart:])
		if n == len(p) {
			return n, nil
		}
		// fall through to refill for the remainder
	}

	want := int64(len(p))
	if want < bufChunkSize {
		want = bufChunkSize
	}
	if want > f.max {
		want = f.max
	}

	window := make([]byte, want)
	n, err := ReadAll(f.inner, off, window)
	if err != nil {
		return 0, err
	}
	f.winStart = off
	f.window = window[:n]

	copied := copy(p, f.window)
	if copied < len(p) {
		return copied, io.EOF
	}
	return copied, nil
}

func (f *BufFile) Size() (int64, error) {
	sz, err := f.inner.Size()
	if err == nil {
		return sz, nil
	}
	if f.seq && f.eof {
		return int64(len(f.prefix)), nil
	}
	return 0, err
}

func (f *BufFile) RandomAccess() error {
	return nil
}

func (f *BufFile) Close() error {
	return f.inner.Close()
}
