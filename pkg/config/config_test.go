package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMapConfig(t *testing.T) {
	c := NewMapConfig(map[string]string{
		KeyCacheDir: "/var/cache/vfs",
		"BLOCKS":    "32",
	})

	require.Equal(t, "/var/cache/vfs", c.GetKey(KeyCacheDir))
	require.Equal(t, "", c.GetKey(KeyRemoteURL))
	require.Equal(t, "default", c.GetKeyWithDefault(KeyRemoteURL, "default"))
	require.Equal(t, 32, c.GetIntKey("BLOCKS"))
	require.Equal(t, 7, c.GetIntKeyWithDefault("NOPE", 7))

	c.Set(KeyRemoteURL, "https://example.org")
	require.Equal(t, "https://example.org", c.GetKey(KeyRemoteURL))
}

func TestDotenvConfig(t *testing.T) {
	dir := t.TempDir()
	dotenv := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(dotenv, []byte("VFS_CACHE_DIR=/tmp/vcache\n"), 0600))

	c := NewDotenvConfig(dotenv)
	require.NoError(t, c.Load())
	require.Equal(t, "/tmp/vcache", c.GetKey(KeyCacheDir))

	t.Cleanup(func() { os.Unsetenv(KeyCacheDir) })
}
