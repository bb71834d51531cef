package kfs

import (
	"bytes"
	"sync"

	"github.com/sungsoo/sratoolkit/pkg/rc"
)

// sraMagic is the magic prefix of SRA/KAR archives.
var sraMagic = []byte("NCBI.sra")

// IsSRAFile reports whether prefix starts with the SRA/KAR archive magic.
func IsSRAFile(prefix []byte) bool {
	return len(prefix) >= len(sraMagic) && bytes.Equal(prefix[:len(sraMagic)], sraMagic)
}

// ArchiveOpener mounts an already-open archive file as a Directory. The
// path argument is the archive's own path, used for diagnostics and as the
// mount name.
type ArchiveOpener func(f File, path string) (Directory, error)

var (
	sraOpenerMu sync.RWMutex
	sraOpener   ArchiveOpener
)

// RegisterSraOpener installs the SRA archive reader. The reader is an
// external collaborator; without one, SRA archives fail to mount with an
// unsupported error.
func RegisterSraOpener(op ArchiveOpener) {
	sraOpenerMu.Lock()
	defer sraOpenerMu.Unlock()
	sraOpener = op
}

// OpenSraArchive mounts f through the registered SRA opener.
func OpenSraArchive(f File, path string) (Directory, error) {
	sraOpenerMu.RLock()
	op := sraOpener
	sraOpenerMu.RUnlock()

	if op == nil {
		return nil, rc.New(rc.Directory, rc.Opening, rc.SRA, rc.Unsupported)
	}
	return op(f, path)
}
