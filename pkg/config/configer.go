package config

// Configuration keys consumed by the VFS core.
const (
	// KeyPwFileEnv is the environment override for the password file path.
	KeyPwFileEnv = "VDB_PWFILE"

	// KeyKryptoPwFile is the configured global password file.
	KeyKryptoPwFile = "KRYPTO_PWFILE"

	// KeyRepositoryDirs is a ':'-separated list of local repository roots
	// searched when resolving accessions.
	KeyRepositoryDirs = "VFS_REPOSITORY_DIRS"

	// KeyRemoteURL is the base URL used to synthesize remote locations
	// for accessions.
	KeyRemoteURL = "VFS_REMOTE_URL"

	// KeyCacheDir is the root directory for cache-tee files.
	KeyCacheDir = "VFS_CACHE_DIR"

	// KeyBindingsFile is the object-id bindings file.
	KeyBindingsFile = "VFS_BINDINGS_FILE"
)

type Configer interface {
	LoadFromPath(path string) error
	Load() error
	GetKey(key string) string
	MustGetKey(key string) string
	GetKeyWithDefault(key, defaultValue string) string
	GetIntKey(key string) int
	GetIntKeyWithDefault(key string, defaultValue int) int
}
