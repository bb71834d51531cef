package kfs

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

// memFile is an in-memory random-access File for tests.
type memFile struct {
	data   []byte
	closed bool
}

func newMemFile(data []byte) *memFile {
	return &memFile{data: data}
}

func (f *memFile) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(f.data)) {
		return 0, io.EOF
	}
	n := copy(p, f.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (f *memFile) Size() (int64, error) {
	return int64(len(f.data)), nil
}

func (f *memFile) RandomAccess() error {
	return nil
}

func (f *memFile) Close() error {
	f.closed = true
	return nil
}

func patterned(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return data
}

func TestBufFile_RandomAccessWindow(t *testing.T) {
	data := patterned(1 << 20)
	bf := NewBufFileRead(newMemFile(data), 4<<20)
	defer bf.Close()

	var tests = []struct {
		name string
		off  int64
		size int
	}{
		{name: "start", off: 0, size: 4096},
		{name: "middle", off: 512 * 1024, size: 8192},
		{name: "revisit start", off: 0, size: 100},
		{name: "tail", off: 1<<20 - 10, size: 10},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			buf := make([]byte, test.size)
			n, err := ReadAll(bf, test.off, buf)
			require.NoError(t, err)
			require.Equal(t, test.size, n)
			require.True(t, bytes.Equal(data[test.off:test.off+int64(test.size)], buf))
		})
	}
}

func TestBufFile_SequentialPrefixStaysReadable(t *testing.T) {
	data := patterned(300 * 1024)
	seq := NewSeqFile(bytes.NewReader(data), nil, "pipe")
	require.Error(t, seq.RandomAccess())

	bf := NewBufFileRead(seq, 1<<20)
	require.NoError(t, bf.RandomAccess())

	// probe the head, as the open pipeline does
	head := make([]byte, 4096)
	n, err := ReadAll(bf, 0, head)
	require.NoError(t, err)
	require.Equal(t, 4096, n)
	require.True(t, bytes.Equal(data[:4096], head))

	// then read past the probe point and revisit offset zero
	mid := make([]byte, 1024)
	_, err = ReadAll(bf, 200*1024, mid)
	require.NoError(t, err)
	require.True(t, bytes.Equal(data[200*1024:200*1024+1024], mid))

	again := make([]byte, 16)
	_, err = ReadAll(bf, 0, again)
	require.NoError(t, err)
	require.True(t, bytes.Equal(data[:16], again))
}

func TestBufFile_EOF(t *testing.T) {
	bf := NewBufFileRead(newMemFile([]byte("abc")), 1<<20)
	buf := make([]byte, 10)
	n, err := bf.ReadAt(buf, 0)
	require.Equal(t, io.EOF, err)
	require.Equal(t, 3, n)
	require.Equal(t, "abc", string(buf[:n]))
}
