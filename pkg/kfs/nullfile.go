package kfs

import (
	"io"
)

// nullFile reads as an empty stream.
type nullFile struct{}

func NewNullFileRead() File {
	return nullFile{}
}

func (nullFile) ReadAt(p []byte, off int64) (int, error) {
	return 0, io.EOF
}

func (nullFile) Size() (int64, error) {
	return 0, nil
}

func (nullFile) RandomAccess() error {
	return nil
}

func (nullFile) Close() error {
	return nil
}

// nullWriteFile discards everything written to it.
type nullWriteFile struct{}

func NewNullFileWrite() WriteFile {
	return nullWriteFile{}
}

func (nullWriteFile) WriteAt(p []byte, off int64) (int, error) {
	return len(p), nil
}

func (nullWriteFile) Close() error {
	return nil
}
