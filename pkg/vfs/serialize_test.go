package vfs

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/sungsoo/sratoolkit/pkg/rc"
)

func TestMakeString_PreservesURLs(t *testing.T) {
	var tests = []string{
		"https://example.org:8080/a?x=1#frag",
		"http://example.org/path/to/file.sra",
		"http://user@example.org/f",
		"ftp://ftp.example.org/pub/f.sra",
		"ncbi-file://server/share/file.sra",
		"ncbi-obj:42",
		"ncbi-acc:SRR001656",
		"http://10.20.30.40:8080/p",
		"http://example.org:http/p",
	}

	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			p, err := Parse(input)
			require.NoError(t, err)
			s, err := p.MakeString()
			require.NoError(t, err)
			require.Equal(t, input, s)
		})
	}
}

func TestMakeString_NativePathsStayNative(t *testing.T) {
	var tests = []string{
		"/data/run/SRR001656.sra",
		"data/run.sra",
		"SRR001656",
		"run.sra",
	}

	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			p, err := Parse(input)
			require.NoError(t, err)
			s, err := p.MakeString()
			require.NoError(t, err)
			require.Equal(t, input, s)
		})
	}
}

// A second parse of the serialized form must classify identically and
// render identically again.
func TestSerialize_RoundTrip(t *testing.T) {
	var tests = []string{
		"SRR001656",
		"NC_000001.10",
		"/data/x.sra",
		"a/b/c",
		"ncbi-file:/data/x.sra?enc",
		"ncbi-file:///data/x.sra?enc",
		"https://example.org:8080/a?x=1#frag",
		"http://[::1]:80/p",
		"ncbi-obj:42",
		"ncbi-acc:SRR001656?tic=XYZ",
		"x-ncbi-legrefseq:/data/refseq#NC_000001.10",
		"/data/runs.tar#SRR001656",
		"http://example.org:/p",
	}

	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			first, err := Parse(input)
			require.NoError(t, err)
			serialized, err := first.MakeString()
			require.NoError(t, err)

			second, err := Parse(serialized)
			require.NoError(t, err)
			if first.FromURI() {
				require.Equal(t, first.SchemeType(), second.SchemeType())
			}
			require.Equal(t, first.PathType(), second.PathType())
			require.Equal(t, first.AccCode(), second.AccCode())

			again, err := second.MakeString()
			require.NoError(t, err)
			require.Equal(t, serialized, again)
		})
	}
}

func TestMakeString_SynthesizesScheme(t *testing.T) {
	var tests = []struct {
		name     string
		input    string
		expected string
	}{
		// a query or fragment forces URI form on an unschemed path
		{name: "rel with query", input: "a/b?enc", expected: "ncbi-file:a/b?enc"},
		{name: "full with fragment", input: "/a/b#sub", expected: "ncbi-file:///a/b#sub"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			p, err := Parse(test.input)
			require.NoError(t, err)
			s, err := p.MakeString()
			require.NoError(t, err)
			require.Equal(t, test.expected, s)
		})
	}
}

func TestMakeURI_AddsScheme(t *testing.T) {
	var tests = []struct {
		input    string
		expected string
	}{
		{input: "SRR001656", expected: "ncbi-acc:SRR001656"},
		{input: "/data/x.sra", expected: "file:///data/x.sra"},
		{input: "rel/path", expected: "file:rel/path"},
		{input: "https://example.org/a", expected: "https://example.org/a"},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			p, err := Parse(test.input)
			require.NoError(t, err)
			uri, err := p.MakeURI()
			require.NoError(t, err)
			require.Equal(t, test.expected, uri)
		})
	}
}

func TestReaders_CopyOut(t *testing.T) {
	p, err := Parse("https://user@example.org:8080/a/b?x=1&y=2#frag")
	require.NoError(t, err)

	buf := make([]byte, 64)

	n, err := p.ReadScheme(buf)
	require.NoError(t, err)
	require.Equal(t, "https", string(buf[:n]))

	n, err = p.ReadAuth(buf)
	require.NoError(t, err)
	require.Equal(t, "user", string(buf[:n]))

	n, err = p.ReadHost(buf)
	require.NoError(t, err)
	require.Equal(t, "example.org", string(buf[:n]))

	n, err = p.ReadPath(buf)
	require.NoError(t, err)
	require.Equal(t, "/a/b", string(buf[:n]))

	n, err = p.ReadQuery(buf)
	require.NoError(t, err)
	require.Equal(t, "x=1&y=2", string(buf[:n]))

	n, err = p.ReadFragment(buf)
	require.NoError(t, err)
	require.Equal(t, "frag", string(buf[:n]))

	n, err = p.ReadURI(buf)
	require.NoError(t, err)
	require.Equal(t, "https://user@example.org:8080/a/b?x=1&y=2#frag", string(buf[:n]))
}

func TestReaders_Truncation(t *testing.T) {
	p, err := Parse("https://example.org/quite/a/long/path")
	require.NoError(t, err)

	small := make([]byte, 4)
	n, err := p.ReadPath(small)
	require.Zero(t, n)
	require.True(t, rc.Is(err, rc.Insufficient))
	require.Equal(t, rc.Buffer, rc.ObjectOf(err))
}

func TestReaders_InvalidPath(t *testing.T) {
	var p VPath
	buf := make([]byte, 16)
	_, err := p.ReadURI(buf)
	require.True(t, rc.Is(err, rc.Invalid))
}
