package keystore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/sungsoo/sratoolkit/pkg/config"
	"github.com/sungsoo/sratoolkit/pkg/kfs"
	"github.com/sungsoo/sratoolkit/pkg/rc"
)

func newTestStore(t *testing.T, entries map[string]string) (*KeyStore, string) {
	t.Helper()

	base := t.TempDir()
	dir, err := kfs.NativeDir(base)
	require.NoError(t, err)
	if entries == nil {
		entries = map[string]string{}
	}
	return New(config.NewMapConfig(entries), dir), base
}

func TestCurrentKey_FromConfiguredPwFile(t *testing.T) {
	base := t.TempDir()
	pwfile := filepath.Join(base, "pwfile")
	require.NoError(t, os.WriteFile(pwfile, []byte("sekret\nold-password\n"), 0600))

	dir, err := kfs.NativeDir(base)
	require.NoError(t, err)
	store := New(config.NewMapConfig(map[string]string{
		config.KeyKryptoPwFile: pwfile,
	}), dir)

	key, err := store.CurrentKey()
	require.NoError(t, err)
	require.Equal(t, "sekret", string(key))
}

func TestCurrentKey_EnvOverridesConfig(t *testing.T) {
	base := t.TempDir()
	cfgPw := filepath.Join(base, "config-pw")
	envPw := filepath.Join(base, "env-pw")
	require.NoError(t, os.WriteFile(cfgPw, []byte("from-config"), 0600))
	require.NoError(t, os.WriteFile(envPw, []byte("from-env"), 0600))

	t.Setenv(config.KeyPwFileEnv, envPw)

	dir, err := kfs.NativeDir(base)
	require.NoError(t, err)
	store := New(config.NewMapConfig(map[string]string{
		config.KeyKryptoPwFile: cfgPw,
	}), dir)

	key, err := store.CurrentKey()
	require.NoError(t, err)
	require.Equal(t, "from-env", string(key))
}

func TestCurrentKey_TemporaryKeyWinsAndClears(t *testing.T) {
	base := t.TempDir()
	pwfile := filepath.Join(base, "pwfile")
	tmpfile := filepath.Join(base, "tmpkey")
	require.NoError(t, os.WriteFile(pwfile, []byte("global"), 0600))
	require.NoError(t, os.WriteFile(tmpfile, []byte("temporary\n"), 0600))

	dir, err := kfs.NativeDir(base)
	require.NoError(t, err)
	store := New(config.NewMapConfig(map[string]string{
		config.KeyKryptoPwFile: pwfile,
	}), dir)

	f, err := dir.OpenFileRead(tmpfile)
	require.NoError(t, err)
	require.NoError(t, store.SetTemporaryKeyFromFile(f))
	require.NoError(t, f.Close())

	key, err := store.CurrentKey()
	require.NoError(t, err)
	require.Equal(t, "temporary", string(key))

	require.NoError(t, store.SetTemporaryKeyFromFile(nil))
	key, err = store.CurrentKey()
	require.NoError(t, err)
	require.Equal(t, "global", string(key))
}

func TestCurrentKey_NoPwFileConfigured(t *testing.T) {
	store, _ := newTestStore(t, nil)
	_, err := store.CurrentKey()
	require.True(t, rc.Is(err, rc.NotFound))
}

func TestPwFilePath_ManagerOverride(t *testing.T) {
	store, _ := newTestStore(t, nil)
	store.SetPwFilePath("/opt/keys/pw")

	path, err := store.PwFilePath()
	require.NoError(t, err)
	require.Equal(t, "/opt/keys/pw", path)
}

func TestBindings_RegisterAndLookup(t *testing.T) {
	store, base := newTestStore(t, nil)
	store.SetBindingsFile(filepath.Join(base, "bindings.txt"))

	require.NoError(t, store.RegisterObject(42, "ncbi-acc:SRR000123"))
	require.NoError(t, store.RegisterObject(43, "/data/f.sra"))

	name, err := store.GetObjectName(42)
	require.NoError(t, err)
	require.Equal(t, "ncbi-acc:SRR000123", name)

	oid, err := store.GetObjectID("/data/f.sra")
	require.NoError(t, err)
	require.Equal(t, uint32(43), oid)

	_, err = store.GetObjectName(99)
	require.True(t, rc.Is(err, rc.NotFound))
}

func TestBindings_PersistAcrossInstances(t *testing.T) {
	store, base := newTestStore(t, nil)
	bindings := filepath.Join(base, "bindings.txt")
	store.SetBindingsFile(bindings)
	require.NoError(t, store.RegisterObject(7, "SRR000777"))

	store2, _ := newTestStore(t, nil)
	store2.SetBindingsFile(bindings)
	name, err := store2.GetObjectName(7)
	require.NoError(t, err)
	require.Equal(t, "SRR000777", name)
}

func TestBindings_ConflictRejected(t *testing.T) {
	store, base := newTestStore(t, nil)
	store.SetBindingsFile(filepath.Join(base, "bindings.txt"))

	require.NoError(t, store.RegisterObject(1, "a"))
	require.NoError(t, store.RegisterObject(1, "a"))
	require.True(t, rc.Is(store.RegisterObject(1, "b"), rc.Incorrect))
	require.True(t, rc.Is(store.RegisterObject(2, "a"), rc.Incorrect))
	require.True(t, rc.Is(store.RegisterObject(0, "x"), rc.Invalid))
}
