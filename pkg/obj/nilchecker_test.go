package obj

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsNil(t *testing.T) {
	type resolver interface{ Local(string) (string, error) }
	var typedNil *testing.T
	var nilMap map[string]int
	var r resolver

	var tests = []struct {
		name     string
		what     interface{}
		expected bool
	}{
		{name: "untyped nil", what: nil, expected: true},
		{name: "typed nil pointer", what: typedNil, expected: true},
		{name: "nil map", what: nilMap, expected: true},
		{name: "nil interface", what: r, expected: true},
		{name: "non-nil pointer", what: t, expected: false},
		{name: "plain value", what: 42, expected: false},
		{name: "string", what: "x", expected: false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require.Equal(t, test.expected, IsNil(test.what))
		})
	}
}
