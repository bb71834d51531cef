// Package kns is the remote transport collaborator: it opens http(s) URLs
// as random-access files using ranged GETs. Other schemes (ftp, fasp) can
// be served by registering an opener.
package kns

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-resty/resty/v2"

	"github.com/sungsoo/sratoolkit/pkg/kfs"
	"github.com/sungsoo/sratoolkit/pkg/rc"
)

// Opener turns a URL into a readable file.
type Opener func(url string) (kfs.File, error)

var (
	openersMu sync.RWMutex
	openers   = map[string]Opener{
		"http":  OpenHTTP,
		"https": OpenHTTP,
	}
)

// Register installs an opener for a URL scheme.
func Register(scheme string, op Opener) {
	openersMu.Lock()
	defer openersMu.Unlock()
	openers[strings.ToLower(scheme)] = op
}

// Open dispatches a URL to the opener registered for its scheme.
func Open(url string) (kfs.File, error) {
	scheme, _, found := strings.Cut(url, ":")
	if !found {
		return nil, rc.New(rc.File, rc.Opening, rc.Path, rc.Invalid)
	}

	openersMu.RLock()
	op, ok := openers[strings.ToLower(scheme)]
	openersMu.RUnlock()
	if !ok {
		return nil, rc.New(rc.File, rc.Opening, rc.Path, rc.Unsupported)
	}
	return op(url)
}

// RemoteFile reads a URL through ranged GET requests.
type RemoteFile struct {
	client       *resty.Client
	url          string
	size         int64
	acceptRanges bool
}

// OpenHTTP probes url with a HEAD request (falling back to a one-byte
// ranged GET) and returns a file over it.
func OpenHTTP(url string) (kfs.File, error) {
	return openHTTP(resty.New(), url)
}

func openHTTP(client *resty.Client, url string) (kfs.File, error) {
	f := &RemoteFile{client: client, url: url, size: -1}

	resp, err := client.R().Head(url)
	if err == nil && resp.IsSuccess() {
		if cl := resp.Header().Get("Content-Length"); cl != "" {
			if size, perr := strconv.ParseInt(cl, 10, 64); perr == nil {
				f.size = size
			}
		}
		f.acceptRanges = strings.EqualFold(resp.Header().Get("Accept-Ranges"), "bytes")
	}

	if f.size < 0 {
		// some servers refuse HEAD; ask for the first byte instead
		resp, err := client.R().SetHeader("Range", "bytes=0-0").Get(url)
		if err != nil {
			return nil, rc.Wrap(err, rc.File, rc.Opening, rc.File, rc.NotFound)
		}
		switch resp.StatusCode() {
		case http.StatusPartialContent:
			f.acceptRanges = true
			if total := contentRangeTotal(resp.Header().Get("Content-Range")); total >= 0 {
				f.size = total
			}
		case http.StatusOK:
			f.size = int64(len(resp.Body()))
		default:
			return nil, rc.New(rc.File, rc.Opening, rc.File, rc.NotFound)
		}
	}

	return f, nil
}

// contentRangeTotal parses the total length out of a
// "bytes start-end/total" header.
func contentRangeTotal(header string) int64 {
	_, total, found := strings.Cut(header, "/")
	if !found {
		return -1
	}
	size, err := strconv.ParseInt(total, 10, 64)
	if err != nil {
		return -1
	}
	return size
}

func (f *RemoteFile) ReadAt(p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	end := off + int64(len(p)) - 1
	resp, err := f.client.R().
		SetHeader("Range", fmt.Sprintf("bytes=%d-%d", off, end)).
		Get(f.url)
	if err != nil {
		return 0, rc.Wrap(err, rc.File, rc.Reading, rc.File, rc.Unknown)
	}

	switch resp.StatusCode() {
	case http.StatusPartialContent:
		n := copy(p, resp.Body())
		if n < len(p) {
			if f.size >= 0 && off+int64(n) >= f.size {
				return n, io.EOF
			}
			return n, rc.New(rc.File, rc.Reading, rc.Data, rc.Insufficient)
		}
		return n, nil

	case http.StatusOK:
		// server ignored the range and sent the whole body
		body := resp.Body()
		if off >= int64(len(body)) {
			return 0, io.EOF
		}
		n := copy(p, body[off:])
		if n < len(p) {
			return n, io.EOF
		}
		return n, nil

	case http.StatusRequestedRangeNotSatisfiable:
		return 0, io.EOF

	default:
		return 0, rc.New(rc.File, rc.Reading, rc.File, rc.Unknown)
	}
}

func (f *RemoteFile) Size() (int64, error) {
	if f.size < 0 {
		return 0, rc.New(rc.File, rc.Accessing, rc.Size, rc.Unknown)
	}
	return f.size, nil
}

func (f *RemoteFile) RandomAccess() error {
	if !f.acceptRanges {
		return rc.New(rc.File, rc.Accessing, rc.Function, rc.Unsupported)
	}
	return nil
}

func (f *RemoteFile) Close() error {
	return nil
}
