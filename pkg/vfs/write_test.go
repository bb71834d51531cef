package vfs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/sungsoo/sratoolkit/pkg/config"
	"github.com/sungsoo/sratoolkit/pkg/kfs"
	"github.com/sungsoo/sratoolkit/pkg/krypto"
	"github.com/sungsoo/sratoolkit/pkg/rc"
)

func TestCreateFile_PlainAndReadBack(t *testing.T) {
	base := t.TempDir()
	target := filepath.Join(base, "out", "data.bin")

	m := newTestManager(t, nil)

	p, err := m.MakePath(target)
	require.NoError(t, err)

	w, err := m.CreateFile(p, false, 0644, kfs.CreateInit|kfs.CreateParents)
	require.NoError(t, err)
	_, err = kfs.WriteAll(w, 0, []byte("written through the manager"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	f, err := m.OpenFileRead(p)
	require.NoError(t, err)
	defer f.Close()
	require.Equal(t, "written through the manager", string(readFileAll(t, f)))
}

func TestCreateFile_EncryptedRoundTrip(t *testing.T) {
	base := t.TempDir()
	target := filepath.Join(base, "secret.bin")
	pwfile := filepath.Join(base, "pw")
	require.NoError(t, os.WriteFile(pwfile, []byte("hunter2"), 0600))

	m := newTestManager(t, map[string]string{
		config.KeyKryptoPwFile: pwfile,
	})

	p, err := m.MakePath("ncbi-file:" + target + "?enc")
	require.NoError(t, err)

	w, err := m.CreateFile(p, false, 0600, kfs.CreateInit)
	require.NoError(t, err)
	plaintext := []byte("payload that must never hit disk in the clear")
	_, err = kfs.WriteAll(w, 0, plaintext)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	// on disk: an envelope, not the plaintext
	raw, err := os.ReadFile(target)
	require.NoError(t, err)
	require.True(t, krypto.IsEncFile(raw))
	require.NotContains(t, string(raw), "never hit disk")

	f, err := m.OpenFileRead(p)
	require.NoError(t, err)
	defer f.Close()
	require.Equal(t, plaintext, readFileAll(t, f))
}

func TestOpenFileWrite_RequiresExisting(t *testing.T) {
	base := t.TempDir()
	target := filepath.Join(base, "f.bin")

	m := newTestManager(t, nil)

	p, err := m.MakePath(target)
	require.NoError(t, err)

	_, err = m.OpenFileWrite(p, false)
	require.True(t, rc.Is(err, rc.NotFound))

	require.NoError(t, os.WriteFile(target, []byte("0123456789"), 0644))
	w, err := m.OpenFileWrite(p, true)
	require.NoError(t, err)
	_, err = w.WriteAt([]byte("xx"), 2)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	content, err := os.ReadFile(target)
	require.NoError(t, err)
	require.Equal(t, "01xx456789", string(content))
}

func TestRemove(t *testing.T) {
	base := t.TempDir()
	target := filepath.Join(base, "gone.bin")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0644))

	m := newTestManager(t, nil)

	p, err := m.MakePath(target)
	require.NoError(t, err)
	require.NoError(t, m.Remove(p, false))
	_, err = os.Stat(target)
	require.True(t, os.IsNotExist(err))

	// removing a missing object is fine
	require.NoError(t, m.Remove(p, false))
}

func TestRemove_DirectoryNeedsForce(t *testing.T) {
	base := t.TempDir()
	sub := filepath.Join(base, "subdir")
	require.NoError(t, os.Mkdir(sub, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "f"), []byte("x"), 0644))

	m := newTestManager(t, nil)

	p, err := m.MakePath(sub)
	require.NoError(t, err)

	require.Error(t, m.Remove(p, false))
	require.NoError(t, m.Remove(p, true))
	_, err = os.Stat(sub)
	require.True(t, os.IsNotExist(err))
}

func TestOpenDirectoryUpdate(t *testing.T) {
	base := t.TempDir()
	file := filepath.Join(base, "f.bin")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	m := newTestManager(t, nil)

	dirPath, err := m.MakePath(base)
	require.NoError(t, err)
	dir, err := m.OpenDirectoryUpdate(dirPath)
	require.NoError(t, err)
	require.Equal(t, kfs.PathFile, dir.PathType("f.bin"))

	filePath, err := m.MakePath(file)
	require.NoError(t, err)
	_, err = m.OpenDirectoryUpdate(filePath)
	require.True(t, rc.Is(err, rc.ReadOnly))

	remote, err := Parse("https://example.org/d")
	require.NoError(t, err)
	_, err = m.OpenDirectoryUpdate(remote)
	require.True(t, rc.Is(err, rc.WrongType))
}

func TestCreateFile_EncryptionFailureRemovesFile(t *testing.T) {
	base := t.TempDir()
	target := filepath.Join(base, "never.bin")

	// no password source configured anywhere
	m := newTestManager(t, nil)

	p, err := m.MakePath("ncbi-file:" + target + "?enc")
	require.NoError(t, err)

	_, err = m.CreateFile(p, false, 0600, kfs.CreateInit)
	require.True(t, rc.Is(err, rc.NotFound))
	require.Equal(t, rc.EncryptionKey, rc.ObjectOf(err))

	// the half-created file was cleaned up again
	_, err = os.Stat(target)
	require.True(t, os.IsNotExist(err))
}
