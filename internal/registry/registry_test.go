package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_CoversPackagedTypes(t *testing.T) {
	r := Default()

	cases := []struct {
		ext     string
		op      OperationKind
		destExt string
	}{
		{".py", OpCompile, ".pyc"},
		{".html", OpMinifyMarkup, ""},
		{".js", OpMinifyScript, ""},
		{".css", OpMinifyStyle, ""},
	}
	for _, tc := range cases {
		spec, ok := r.Resolve(tc.ext)
		require.True(t, ok, "extension %s must be registered", tc.ext)
		assert.Equal(t, tc.op, spec.Operation)
		assert.Equal(t, tc.destExt, spec.DestinationExtension)
	}
}

func TestResolve_UnregisteredIsMiss(t *testing.T) {
	r := Default()
	for _, ext := range []string{".png", ".md", "", ".pyc", ".txt"} {
		_, ok := r.Resolve(ext)
		assert.False(t, ok, "extension %q must not resolve", ext)
	}
}

func TestResolve_LowercasesLookup(t *testing.T) {
	r := Default()
	spec, ok := r.Resolve(".PY")
	require.True(t, ok)
	assert.Equal(t, OpCompile, spec.Operation)
}

func TestNew_LaterSpecWins(t *testing.T) {
	r := New(
		TransformSpec{MatchExtension: ".JS", Operation: OpCopy},
		TransformSpec{MatchExtension: ".js", Operation: OpMinifyScript},
	)
	spec, ok := r.Resolve(".js")
	require.True(t, ok)
	assert.Equal(t, OpMinifyScript, spec.Operation)
	assert.Len(t, r.Specs(), 1)
}
