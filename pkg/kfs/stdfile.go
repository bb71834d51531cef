package kfs

import (
	"io"
	"os"
	"sync"

	"github.com/sungsoo/sratoolkit/pkg/rc"
)

// seqFile adapts a sequential stream (stdin, a pipe) to the File shape.
// ReadAt is accepted only at the current stream position; anything else is
// a random-access error the caller can cure with a read-side buffer.
type seqFile struct {
	mu   sync.Mutex
	r    io.Reader
	c    io.Closer
	pos  int64
	name string
}

func NewStdInFile() File {
	return &seqFile{r: os.Stdin, name: "/dev/stdin"}
}

// NewSeqFile wraps any sequential reader as a File.
func NewSeqFile(r io.Reader, c io.Closer, name string) File {
	return &seqFile{r: r, c: c, name: name}
}

func (f *seqFile) ReadAt(p []byte, off int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if off != f.pos {
		return 0, rc.New(rc.File, rc.Reading, rc.Param, rc.Unsupported)
	}

	n, err := f.r.Read(p)
	f.pos += int64(n)
	return n, err
}

func (f *seqFile) Size() (int64, error) {
	return 0, rc.New(rc.File, rc.Accessing, rc.Size, rc.Unsupported)
}

func (f *seqFile) RandomAccess() error {
	return rc.New(rc.File, rc.Accessing, rc.Function, rc.Unsupported)
}

func (f *seqFile) Close() error {
	if f.c != nil {
		return f.c.Close()
	}
	return nil
}

// seqWriteFile adapts a sequential writer (stdout, stderr) to WriteFile.
type seqWriteFile struct {
	mu  sync.Mutex
	w   io.Writer
	pos int64
}

func NewStdOutFile() WriteFile {
	return &seqWriteFile{w: os.Stdout}
}

func NewStdErrFile() WriteFile {
	return &seqWriteFile{w: os.Stderr}
}

func (f *seqWriteFile) WriteAt(p []byte, off int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if off != f.pos {
		return 0, rc.New(rc.File, rc.Writing, rc.Param, rc.Unsupported)
	}

	n, err := f.w.Write(p)
	f.pos += int64(n)
	return n, err
}

func (f *seqWriteFile) Close() error {
	return nil
}
