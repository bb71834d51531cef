package lock

import (
	"sync"

	"github.com/apex/log"
)

// PathLocker hands out one mutex per path so that in-process users of the
// same cache file serialize against each other. Cross-process exclusion is
// the lock file's job, not this one's.
type PathLocker struct {
	mapMutex sync.Mutex
	pathMap  map[string]*sync.Mutex
}

func NewPathLocker() *PathLocker {
	return &PathLocker{
		pathMap: make(map[string]*sync.Mutex),
	}
}

func (l *PathLocker) AcquireLock(path string) {
	l.mapMutex.Lock()
	pathMutex, ok := l.pathMap[path]
	if !ok {
		pathMutex = &sync.Mutex{}
		l.pathMap[path] = pathMutex
	}
	l.mapMutex.Unlock()
	pathMutex.Lock()
}

func (l *PathLocker) ReleaseLock(path string) {
	l.mapMutex.Lock()
	m, ok := l.pathMap[path]
	l.mapMutex.Unlock()
	if !ok {
		log.Errorf("ReleaseLock called on path (%s) with no mutex", path)

		return
	}

	m.Unlock()
}

func (l *PathLocker) WithLock(path string, f func() error) error {
	l.AcquireLock(path)
	defer l.ReleaseLock(path)
	return f()
}
