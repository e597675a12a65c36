package pathmap

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMap_PreservesRelativeStructure(t *testing.T) {
	got, err := Map("/src/app", "/dist", "/src/app/static/js/app.js", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/dist", "static", "js", "app.js"), got)
}

func TestMap_RewritesExtension(t *testing.T) {
	got, err := Map("/src/app", "/dist", "/src/app/pkg/main.py", ".pyc")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/dist", "pkg", "main.pyc"), got)
}

func TestMap_ExtensionlessFileWithDestExt(t *testing.T) {
	got, err := Map("/src", "/dist", "/src/Makefile", ".bak")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/dist", "Makefile.bak"), got)
}

func TestMap_OutsideRoot(t *testing.T) {
	cases := []struct {
		name string
		path string
	}{
		{"sibling", "/srv/other/file.py"},
		{"parent", "/src"},
		{"root itself", "/src/app"},
		{"escape via dotdot prefix", "/src/app-extra/file.py"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Map("/src/app", "/dist", tc.path, "")
			var perr *PathOutsideRootError
			require.Error(t, err)
			assert.True(t, errors.As(err, &perr), "expected PathOutsideRootError, got %v", err)
		})
	}
}

func TestMap_Deterministic(t *testing.T) {
	first, err := Map("/src", "/dist", "/src/templates/index.html", "")
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		again, err := Map("/src", "/dist", "/src/templates/index.html", "")
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestMap_UncleanInputs(t *testing.T) {
	got, err := Map("/src/app/", "/dist/", "/src/app/./sub/../sub/x.css", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/dist", "sub", "x.css"), got)
}

func TestRel_NormalizesToNFC(t *testing.T) {
	// "e\u0301" (NFD) must map to the same relative path as "\u00e9" (NFC).
	nfd := "/src/caf" + "e\u0301" + ".css"
	nfc := "/src/caf" + "\u00e9" + ".css"

	relNFD, err := Rel("/src", nfd)
	require.NoError(t, err)
	relNFC, err := Rel("/src", nfc)
	require.NoError(t, err)
	assert.Equal(t, relNFC, relNFD)
}
