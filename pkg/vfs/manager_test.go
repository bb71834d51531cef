package vfs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/sungsoo/sratoolkit/pkg/config"
	"github.com/sungsoo/sratoolkit/pkg/rc"
)

// fakeResolver is a canned oracle for tests.
type fakeResolver struct {
	local  map[string]string
	remote map[string]string
	cache  map[string]string
}

func (r *fakeResolver) Local(acc string) (string, error) {
	if path, ok := r.local[acc]; ok {
		return path, nil
	}
	return "", rc.New(rc.Mgr, rc.Resolving, rc.Path, rc.NotFound)
}

func (r *fakeResolver) Remote(acc string, protocol string) (string, error) {
	if url, ok := r.remote[acc]; ok {
		return url, nil
	}
	return "", rc.New(rc.Mgr, rc.Resolving, rc.Path, rc.NotFound)
}

func (r *fakeResolver) Cache(spec string, size int64) (string, error) {
	if path, ok := r.cache[spec]; ok {
		return path, nil
	}
	return "", rc.New(rc.Mgr, rc.Resolving, rc.Path, rc.NotFound)
}

// newTestManager builds a fresh singleton around a map config and tears
// it down with the test.
func newTestManager(t *testing.T, entries map[string]string) *Manager {
	t.Helper()

	if entries == nil {
		entries = map[string]string{}
	}
	m, err := MakeFromConfig(config.NewMapConfig(entries))
	require.NoError(t, err)
	t.Cleanup(m.Release)
	return m
}

func TestMake_SingletonSemantics(t *testing.T) {
	m1 := newTestManager(t, nil)

	// a second construction returns another reference to the same one
	m2, err := MakeFromConfig(config.NewMapConfig(map[string]string{"ignored": "yes"}))
	require.NoError(t, err)
	require.Same(t, m1, m2)

	// dropping one reference keeps the instance alive
	m2.Release()
	m3, err := Make()
	require.NoError(t, err)
	require.Same(t, m1, m3)
	m3.Release()
}

func TestRelease_ClearsSlot(t *testing.T) {
	m, err := MakeFromConfig(config.NewMapConfig(nil))
	require.NoError(t, err)
	m.Release()

	singletonMu.Lock()
	cleared := singleton == nil
	singletonMu.Unlock()
	require.True(t, cleared)
}

func TestMakePath(t *testing.T) {
	m := newTestManager(t, nil)

	p, err := m.MakePath("SRR001656")
	require.NoError(t, err)
	require.Equal(t, PTAccession, p.PathType())
	// the implied scheme is filled in for later serialization
	require.Equal(t, "ncbi-acc", p.Scheme())

	_, err = m.MakePath("")
	require.True(t, rc.Is(err, rc.Empty))
}

func TestMakeAccPath(t *testing.T) {
	m := newTestManager(t, nil)

	p, err := m.MakeAccPath("SRR001656")
	require.NoError(t, err)
	require.Equal(t, PTAccession, p.PathType())
	require.Equal(t, SchemeNcbiAcc, p.SchemeType())

	uri, err := p.MakeString()
	require.NoError(t, err)
	require.Equal(t, "ncbi-acc:SRR001656", uri)

	// an ambiguous name is promoted
	p, err = m.MakeAccPath("x1")
	require.NoError(t, err)
	require.Equal(t, PTAccession, p.PathType())

	// a path is not an accession
	_, err = m.MakeAccPath("/data/x.sra")
	require.True(t, rc.Is(err, rc.Incorrect))
}

func TestMakeOidPath(t *testing.T) {
	m := newTestManager(t, nil)

	p, err := m.MakeOidPath(42)
	require.NoError(t, err)
	require.Equal(t, PTOID, p.PathType())
	require.Equal(t, SchemeNcbiObj, p.SchemeType())
	require.Equal(t, uint32(42), p.OID())

	s, err := p.MakeString()
	require.NoError(t, err)
	require.Equal(t, "ncbi-obj:42", s)
}

func TestObjectBindings(t *testing.T) {
	base := t.TempDir()
	m := newTestManager(t, map[string]string{
		config.KeyBindingsFile: filepath.Join(base, "bindings.txt"),
	})

	p, err := m.MakePath("ncbi-acc:SRR001656")
	require.NoError(t, err)
	require.NoError(t, m.RegisterObject(7, p))

	got, err := m.GetObject(7)
	require.NoError(t, err)
	s, err := got.MakeString()
	require.NoError(t, err)
	require.Equal(t, "ncbi-acc:SRR001656", s)

	oid, err := m.GetObjectID(p)
	require.NoError(t, err)
	require.Equal(t, uint32(7), oid)

	_, err = m.GetObject(99)
	require.True(t, rc.Is(err, rc.NotFound))
}

func TestGetKryptoPassword(t *testing.T) {
	base := t.TempDir()
	pwfile := filepath.Join(base, "pw")
	require.NoError(t, os.WriteFile(pwfile, []byte("hush\n"), 0600))

	m := newTestManager(t, map[string]string{
		config.KeyKryptoPwFile: pwfile,
	})

	key, err := m.GetKryptoPassword()
	require.NoError(t, err)
	require.Equal(t, "hush", string(key))
}

func TestUpdateKryptoPassword(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(base, "keys"), 0700))
	pwfile := filepath.Join(base, "keys", "pw")

	m := newTestManager(t, map[string]string{
		config.KeyKryptoPwFile: pwfile,
	})

	pwDir, err := m.UpdateKryptoPassword([]byte("first"))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(base, "keys"), pwDir)

	key, err := m.GetKryptoPassword()
	require.NoError(t, err)
	require.Equal(t, "first", string(key))

	// the old password is retained below the new one
	_, err = m.UpdateKryptoPassword([]byte("second"))
	require.NoError(t, err)

	content, err := os.ReadFile(pwfile)
	require.NoError(t, err)
	require.Equal(t, "second\nfirst\n", string(content))

	key, err = m.GetKryptoPassword()
	require.NoError(t, err)
	require.Equal(t, "second", string(key))

	// no staging leftovers
	_, err = os.Stat(pwfile + ".tmp")
	require.True(t, os.IsNotExist(err))
}

func TestUpdateKryptoPassword_SamePasswordKeepsFile(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(base, "keys"), 0700))
	pwfile := filepath.Join(base, "keys", "pw")

	m := newTestManager(t, map[string]string{
		config.KeyKryptoPwFile: pwfile,
	})

	_, err := m.UpdateKryptoPassword([]byte("stable"))
	require.NoError(t, err)
	before, err := os.ReadFile(pwfile)
	require.NoError(t, err)

	_, err = m.UpdateKryptoPassword([]byte("stable"))
	require.NoError(t, err)
	after, err := os.ReadFile(pwfile)
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestUpdateKryptoPassword_Validation(t *testing.T) {
	m := newTestManager(t, map[string]string{
		config.KeyKryptoPwFile: filepath.Join(t.TempDir(), "pw"),
	})

	_, err := m.UpdateKryptoPassword(nil)
	require.True(t, rc.Is(err, rc.Null))

	_, err = m.UpdateKryptoPassword([]byte("no\nnewlines"))
	require.True(t, rc.Is(err, rc.Invalid))

	_, err = m.UpdateKryptoPassword(make([]byte, 5000))
	require.True(t, rc.Is(err, rc.Excessive))
}

func TestUpdateKryptoPassword_RejectsOpenDirectory(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.Chmod(base, 0755))
	pwfile := filepath.Join(base, "pw")

	m := newTestManager(t, map[string]string{
		config.KeyKryptoPwFile: pwfile,
	})

	_, err := m.UpdateKryptoPassword([]byte("secret"))
	require.True(t, rc.Is(err, rc.Excessive))
	require.Equal(t, rc.Directory, rc.ObjectOf(err))
}
