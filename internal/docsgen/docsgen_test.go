package docsgen

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderer_ProducesHTMLPage(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "guide.md")
	out := filepath.Join(dir, "guide.html")
	require.NoError(t, os.WriteFile(in, []byte("# Setup\n\nRun *relpack* first.\n"), 0o644))

	require.NoError(t, NewRenderer().Transform(context.Background(), in, out))

	page, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(page), "<title>guide</title>")
	assert.Contains(t, string(page), "<h1>Setup</h1>")
	assert.Contains(t, string(page), "<em>relpack</em>")
}

func TestRenderer_MissingInput(t *testing.T) {
	dir := t.TempDir()
	err := NewRenderer().Transform(context.Background(), filepath.Join(dir, "nope.md"), filepath.Join(dir, "nope.html"))
	assert.Error(t, err)
}
