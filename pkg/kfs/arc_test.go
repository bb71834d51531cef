package kfs

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/sungsoo/sratoolkit/pkg/rc"
)

func TestIsSRAFile(t *testing.T) {
	var tests = []struct {
		name     string
		prefix   []byte
		expected bool
	}{
		{name: "sra magic", prefix: []byte("NCBI.sra\x00\x00more"), expected: true},
		{name: "tar-ish", prefix: []byte("pax_global_header"), expected: false},
		{name: "short", prefix: []byte("NCBI"), expected: false},
		{name: "empty", prefix: nil, expected: false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require.Equal(t, test.expected, IsSRAFile(test.prefix))
		})
	}
}

func TestOpenSraArchive_NoOpenerRegistered(t *testing.T) {
	RegisterSraOpener(nil)
	_, err := OpenSraArchive(newMemFile([]byte("NCBI.sra")), "x.sra")
	require.True(t, rc.Is(err, rc.Unsupported))
}

func TestOpenSraArchive_UsesRegisteredOpener(t *testing.T) {
	called := false
	RegisterSraOpener(func(f File, path string) (Directory, error) {
		called = true
		return NewQuickMountDir(f, "mounted")
	})
	t.Cleanup(func() { RegisterSraOpener(nil) })

	dir, err := OpenSraArchive(newMemFile([]byte("NCBI.sra")), "x.sra")
	require.NoError(t, err)
	require.True(t, called)
	require.Equal(t, PathFile, dir.PathType("mounted"))
}
