package kns

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/sungsoo/sratoolkit/pkg/kfs"
	"github.com/sungsoo/sratoolkit/pkg/rc"
)

func rangeServer(t *testing.T, content []byte) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "data.bin", time.Time{}, bytes.NewReader(content))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestOpenHTTP_SizeAndRanges(t *testing.T) {
	content := make([]byte, 10000)
	for i := range content {
		content[i] = byte(i)
	}
	server := rangeServer(t, content)

	f, err := Open(server.URL + "/data.bin")
	require.NoError(t, err)
	defer f.Close()

	sz, err := f.Size()
	require.NoError(t, err)
	require.Equal(t, int64(len(content)), sz)
	require.NoError(t, f.RandomAccess())

	buf := make([]byte, 100)
	n, err := kfs.ReadAll(f, 5000, buf)
	require.NoError(t, err)
	require.Equal(t, 100, n)
	require.Equal(t, content[5000:5100], buf)
}

func TestRemoteFile_ReadPastEnd(t *testing.T) {
	server := rangeServer(t, []byte("0123456789"))

	f, err := Open(server.URL + "/x")
	require.NoError(t, err)

	buf := make([]byte, 20)
	n, err := kfs.ReadAll(f, 5, buf)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, "56789", string(buf[:n]))
}

func TestOpen_UnsupportedScheme(t *testing.T) {
	_, err := Open("fasp://host/file")
	require.True(t, rc.Is(err, rc.Unsupported))

	_, err = Open("no-colon-here")
	require.True(t, rc.Is(err, rc.Invalid))
}

func TestRegister_CustomOpener(t *testing.T) {
	Register("ftp", func(url string) (kfs.File, error) {
		return kfs.NewNullFileRead(), nil
	})
	t.Cleanup(func() {
		openersMu.Lock()
		delete(openers, "ftp")
		openersMu.Unlock()
	})

	f, err := Open("ftp://host/file")
	require.NoError(t, err)
	sz, err := f.Size()
	require.NoError(t, err)
	require.Zero(t, sz)
}

func TestOpenHTTP_NotFound(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(server.Close)

	_, err := Open(server.URL + "/missing")
	require.True(t, rc.Is(err, rc.NotFound))
}
