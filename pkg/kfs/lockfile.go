package kfs

import (
	"os"
	"time"

	"github.com/sungsoo/sratoolkit/pkg/rc"
)

const (
	lockRetryInterval = 100 * time.Millisecond
	lockTimeout       = 30 * time.Second
)

// LockFile is an exclusive on-disk lock guarding a cache file against
// concurrent writers from other processes.
type LockFile struct {
	path string
}

// AcquireLockFile blocks until path + ".lock" could be created
// exclusively, or gives up after a timeout.
func AcquireLockFile(path string) (*LockFile, error) {
	lockPath := path + ".lock"
	deadline := time.Now().Add(lockTimeout)

	for {
		f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			_ = f.Close()
			return &LockFile{path: lockPath}, nil
		}
		if !os.IsExist(err) {
			return nil, rc.Wrap(err, rc.File, rc.Opening, rc.File, rc.Unknown)
		}
		if time.Now().After(deadline) {
			return nil, rc.New(rc.File, rc.Opening, rc.File, rc.Exhausted)
		}
		time.Sleep(lockRetryInterval)
	}
}

func (l *LockFile) Release() error {
	return os.Remove(l.path)
}
