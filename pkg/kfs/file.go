package kfs

import (
	"io"

	"github.com/sungsoo/sratoolkit/pkg/rc"
)

// File is a read-only byte stream. Implementations that cannot serve
// arbitrary offsets (stdin, pipes) accept ReadAt only at the current
// stream position and report it through RandomAccess.
type File interface {
	io.ReaderAt
	io.Closer

	// Size returns the number of readable bytes, when known.
	Size() (int64, error)

	// RandomAccess returns nil when ReadAt works at arbitrary offsets.
	RandomAccess() error
}

// WriteFile is a writable byte stream.
type WriteFile interface {
	io.WriterAt
	io.Closer
}

// ReadAll reads from f at off until buf is full or the stream ends. A short
// read at end of stream is not an error; n tells how much arrived.
func ReadAll(f File, off int64, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := f.ReadAt(buf[total:], off+int64(total))
		total += n
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, err
		}
		if n == 0 {
			break
		}
	}
	return total, nil
}

// WriteAll writes all of buf to f at off.
func WriteAll(f WriteFile, off int64, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := f.WriteAt(buf[total:], off+int64(total))
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, rc.New(rc.File, rc.Writing, rc.File, rc.Insufficient)
		}
	}
	return total, nil
}
