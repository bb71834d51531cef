package vfs

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/sungsoo/sratoolkit/pkg/rc"
)

func TestOption_Recognized(t *testing.T) {
	var tests = []struct {
		name          string
		input         string
		opt           Option
		expected      string
		errExpected   bool
		stateExpected rc.State
	}{
		{name: "enc flag", input: "ncbi-file:/x?enc", opt: OptEncrypted, expected: ""},
		{name: "encrypt spelling", input: "ncbi-file:/x?encrypt", opt: OptEncrypted, expected: ""},
		{name: "enc with value", input: "ncbi-file:/x?enc=yes", opt: OptEncrypted, expected: "yes"},
		{name: "pwfile path", input: "ncbi-file:/x?pwfile=/etc/pw", opt: OptPwPath, expected: "/etc/pw"},
		{name: "pwfile fd", input: "ncbi-file:/x?pwfile=3", opt: OptPwFd, expected: "3"},
		{name: "pwfile path is not a fd", input: "ncbi-file:/x?pwfile=/etc/pw", opt: OptPwFd, errExpected: true, stateExpected: rc.NotFound},
		{name: "pwfile fd is not a path", input: "ncbi-file:/x?pwfile=3", opt: OptPwPath, errExpected: true, stateExpected: rc.NotFound},
		{name: "readgroup", input: "ncbi-file:/x?readgroup=rg1", opt: OptReadGroup, expected: "rg1"},
		{name: "vdb-ctx", input: "ncbi-file:/x?vdb-ctx=ctx1", opt: OptVdbCtx, expected: "ctx1"},
		{name: "gap ticket", input: "ncbi-acc:SRR1?tic=ABC", opt: OptGapTicket, expected: "ABC"},
		{name: "absent", input: "ncbi-file:/x?other=1", opt: OptEncrypted, errExpected: true, stateExpected: rc.NotFound},
		{name: "case insensitive", input: "ncbi-file:/x?ENC", opt: OptEncrypted, expected: ""},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			p, err := Parse(test.input)
			require.NoError(t, err)

			value, err := p.Option(test.opt)
			if test.errExpected {
				require.Error(t, err)
				require.True(t, rc.Is(err, test.stateExpected))
				return
			}
			require.NoError(t, err)
			require.Equal(t, test.expected, value)
		})
	}
}

func TestParam_MultipleAndUnknown(t *testing.T) {
	p, err := Parse("ncbi-file:/x?enc&tic=T123&other=zzz")
	require.NoError(t, err)

	value, err := p.Param("tic")
	require.NoError(t, err)
	require.Equal(t, "T123", value)

	// unrecognized parameters are still readable, just ignored by opens
	value, err = p.Param("other")
	require.NoError(t, err)
	require.Equal(t, "zzz", value)

	_, err = p.Param("missing")
	require.True(t, rc.Is(err, rc.NotFound))

	_, err = p.Param("")
	require.True(t, rc.Is(err, rc.Empty))
}

func TestParam_PrefixDoesNotMatch(t *testing.T) {
	p, err := Parse("ncbi-file:/x?encoding=utf8")
	require.NoError(t, err)

	_, err = p.Param("enc")
	require.True(t, rc.Is(err, rc.NotFound))
}

// Options survive a serialize/parse cycle untouched.
func TestOption_RoundTrip(t *testing.T) {
	p, err := Parse("ncbi-file:/data/x.sra?enc&pwfile=/etc/pw&tic=T1")
	require.NoError(t, err)

	s, err := p.MakeString()
	require.NoError(t, err)
	p2, err := Parse(s)
	require.NoError(t, err)

	for _, opt := range []Option{OptEncrypted, OptPwPath, OptGapTicket} {
		v1, err1 := p.Option(opt)
		v2, err2 := p2.Option(opt)
		require.Equal(t, err1 == nil, err2 == nil)
		require.Equal(t, v1, v2)
	}
}

func TestReadParam_Truncation(t *testing.T) {
	p, err := Parse("ncbi-file:/x?tic=ABCDEFGH")
	require.NoError(t, err)

	buf := make([]byte, 3)
	n, err := p.ReadParam("tic", buf)
	require.Zero(t, n)
	require.True(t, rc.Is(err, rc.Insufficient))

	big := make([]byte, 16)
	n, err = p.ReadParam("tic", big)
	require.NoError(t, err)
	require.Equal(t, "ABCDEFGH", string(big[:n]))
}
