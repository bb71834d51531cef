package vfs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/sungsoo/sratoolkit/pkg/rc"
)

func TestResolvePath_AccessionLocal(t *testing.T) {
	base := t.TempDir()
	local := filepath.Join(base, "SRR001656.sra")
	require.NoError(t, os.WriteFile(local, []byte("x"), 0644))

	m := newTestManager(t, nil)
	m.SetResolver(&fakeResolver{local: map[string]string{"SRR001656": local}})

	p, err := Parse("SRR001656")
	require.NoError(t, err)

	resolved, err := m.ResolvePath(0, p)
	require.NoError(t, err)
	require.Equal(t, SchemeNcbiFile, resolved.SchemeType())
	require.Equal(t, local, resolved.Path())
}

func TestResolvePath_AccessionFallsThroughToRemote(t *testing.T) {
	m := newTestManager(t, nil)
	m.SetResolver(&fakeResolver{
		remote: map[string]string{"SRR001656": "https://dl.example.org/srapub/SRR001656.sra"},
	})

	p, err := Parse("ncbi-acc:SRR001656")
	require.NoError(t, err)

	resolved, err := m.ResolvePath(0, p)
	require.NoError(t, err)
	require.Equal(t, SchemeHTTPS, resolved.SchemeType())
	require.Equal(t, "/srapub/SRR001656.sra", resolved.Path())
}

func TestResolvePath_NoAccFlag(t *testing.T) {
	m := newTestManager(t, nil)
	m.SetResolver(&fakeResolver{})

	p, err := Parse("ncbi-acc:SRR001656")
	require.NoError(t, err)

	_, err = m.ResolvePath(ResolveNoAcc, p)
	require.True(t, rc.Is(err, rc.NotAvailable))
	require.Equal(t, rc.SRA, rc.ObjectOf(err))
}

func TestResolvePath_NoRemoteFlag(t *testing.T) {
	m := newTestManager(t, nil)
	m.SetResolver(&fakeResolver{
		remote: map[string]string{"SRR001656": "https://dl.example.org/f"},
	})

	p, err := Parse("ncbi-acc:SRR001656")
	require.NoError(t, err)

	_, err = m.ResolvePath(ResolveNoAccRemote, p)
	require.True(t, rc.Is(err, rc.NotFound))
}

func TestResolvePath_KdbAccName(t *testing.T) {
	local := filepath.Join(t.TempDir(), "mytable")
	require.NoError(t, os.WriteFile(local, []byte("x"), 0644))

	m := newTestManager(t, nil)
	m.SetResolver(&fakeResolver{local: map[string]string{"mytable": local}})

	// a plain name needs the kdb flag to be tried as an accession
	p, err := Parse("mytable")
	require.NoError(t, err)

	resolved, err := m.ResolvePath(ResolveKdbAcc, p)
	require.NoError(t, err)
	require.Equal(t, local, resolved.Path())

	// without the flag it resolves as a relative path
	resolved, err = m.ResolvePath(0, p)
	require.NoError(t, err)
	require.Equal(t, PTFullPath, resolved.PathType())
	require.NotEqual(t, local, resolved.Path())
}

func TestResolvePath_RelativeAgainstCWD(t *testing.T) {
	m := newTestManager(t, nil)

	p, err := Parse("sub/file.sra")
	require.NoError(t, err)

	resolved, err := m.ResolvePath(0, p)
	require.NoError(t, err)
	require.Equal(t, PTFullPath, resolved.PathType())

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(wd, "sub", "file.sra"), resolved.Path())
}

func TestResolvePath_AbsolutePassesThrough(t *testing.T) {
	m := newTestManager(t, nil)

	p, err := Parse("ncbi-file:/data/x.sra?enc")
	require.NoError(t, err)

	resolved, err := m.ResolvePath(0, p)
	require.NoError(t, err)
	require.Same(t, p, resolved)
}

func TestResolvePath_NcbiVfsKeepsSchemeAndQuery(t *testing.T) {
	m := newTestManager(t, nil)

	p, err := Parse("ncbi-vfs:rel/x.sra?enc")
	require.NoError(t, err)

	resolved, err := m.ResolvePath(0, p)
	require.NoError(t, err)
	require.Equal(t, SchemeNcbiVfs, resolved.SchemeType())
	require.Equal(t, "?enc", resolved.Query())
	require.True(t, filepath.IsAbs(resolved.Path()))
}

func TestResolvePath_URLsPassThrough(t *testing.T) {
	m := newTestManager(t, nil)

	p, err := Parse("https://example.org/f.sra")
	require.NoError(t, err)

	resolved, err := m.ResolvePath(0, p)
	require.NoError(t, err)
	require.Same(t, p, resolved)
}

func TestResolvePath_Unsupported(t *testing.T) {
	m := newTestManager(t, nil)

	p, err := Parse("x-ncbi-legrefseq:/data/r#tbl")
	require.NoError(t, err)
	_, err = m.ResolvePath(0, p)
	require.True(t, rc.Is(err, rc.Unsupported))

	p, err = Parse("gopher://h/x")
	require.NoError(t, err)
	_, err = m.ResolvePath(0, p)
	require.True(t, rc.Is(err, rc.Unsupported))
}

func TestResolvePath_NilArgs(t *testing.T) {
	m := newTestManager(t, nil)

	_, err := m.ResolvePath(0, nil)
	require.True(t, rc.Is(err, rc.Null))

	p, err := Parse("/x")
	require.NoError(t, err)
	_, err = m.ResolvePathRelative(0, nil, p)
	require.True(t, rc.Is(err, rc.Null))
	require.Equal(t, rc.Param, rc.ObjectOf(err))
}

func TestResolvePathRelative(t *testing.T) {
	base := t.TempDir()
	m := newTestManager(t, nil)

	basePath, err := Parse(base)
	require.NoError(t, err)
	p, err := Parse("file:sub/y.sra")
	require.NoError(t, err)

	resolved, err := m.ResolvePathRelative(0, basePath, p)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(base, "sub", "y.sra"), resolved.Path())
}

func TestResolveSpec(t *testing.T) {
	base := t.TempDir()
	cachePath := filepath.Join(base, "SRR001656.sra.cache")

	m := newTestManager(t, nil)
	m.SetResolver(&fakeResolver{
		remote: map[string]string{"SRR001656": "https://dl.example.org/SRR001656.sra"},
		cache:  map[string]string{"https://dl.example.org/SRR001656.sra": cachePath},
	})

	path, cache, err := m.ResolveSpec("SRR001656", true)
	require.NoError(t, err)
	require.Equal(t, SchemeHTTPS, path.SchemeType())
	require.NotNil(t, cache)
	require.Equal(t, cachePath, cache.Path())

	// a spec with a slash is always a filesystem path
	path, cache, err = m.ResolveSpec("dir/file.sra", true)
	require.NoError(t, err)
	require.Nil(t, cache)
	require.Equal(t, SchemeNcbiFile, path.SchemeType())

	_, _, err = m.ResolveSpec("", true)
	require.True(t, rc.Is(err, rc.Empty))
}
