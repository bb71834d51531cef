package kfs

import (
	"fmt"
	"io"
	"os"
)

// NewFDFileRead opens the numeric descriptor fd for reading. When the
// descriptor is seekable it behaves as a regular file; pipes degrade to
// sequential access.
func NewFDFileRead(fd int) (File, error) {
	f := os.NewFile(uintptr(fd), fmt.Sprintf("/dev/fd/%d", fd))

	if _, err := f.Seek(0, io.SeekCurrent); err != nil {
		return NewSeqFile(f, f, f.Name()), nil
	}
	return &sysFile{f: f}, nil
}

// NewFDFileWrite opens the numeric descriptor fd for writing.
func NewFDFileWrite(fd int, update bool) (WriteFile, error) {
	f := os.NewFile(uintptr(fd), fmt.Sprintf("/dev/fd/%d", fd))

	if _, err := f.Seek(0, io.SeekCurrent); err != nil {
		return &seqWriteFile{w: f}, nil
	}
	return &sysWriteFile{f: f}, nil
}
