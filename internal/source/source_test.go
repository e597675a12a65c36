package source

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkspace_CreateAndCleanup(t *testing.T) {
	ws := NewWorkspace(t.TempDir())
	require.NoError(t, ws.Create())

	dir := ws.Path()
	assert.DirExists(t, dir)
	assert.True(t, strings.HasPrefix(filepath.Base(dir), "relpack-"))

	require.NoError(t, ws.Cleanup())
	assert.NoDirExists(t, dir)
	assert.Empty(t, ws.Path())
}

func TestWorkspace_FetchRequiresCreate(t *testing.T) {
	ws := NewWorkspace(t.TempDir())
	_, err := ws.Fetch(FetchOptions{URL: "https://example.invalid/repo.git"})
	assert.Error(t, err)
}

func TestWorkspace_FetchRequiresURL(t *testing.T) {
	ws := NewWorkspace(t.TempDir())
	require.NoError(t, ws.Create())
	defer ws.Cleanup()

	_, err := ws.Fetch(FetchOptions{})
	assert.Error(t, err)
}
