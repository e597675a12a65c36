package verify

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, root, name, content string) {
	t.Helper()
	p := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func TestTree_CleanDistributionPasses(t *testing.T) {
	root := t.TempDir()
	write(t, root, "static/app.js", "console.log(1)")
	write(t, root, "static/style.css", "body{}")
	write(t, root, "index.html",
		`<!doctype html><html><head><link href="/static/style.css"></head>`+
			`<body><script src="static/app.js"></script><a href="https://example.com/x">x</a></body></html>`)

	report, err := Tree(root)
	require.NoError(t, err)
	assert.Equal(t, 1, report.FilesChecked)
	assert.True(t, report.OK())
}

func TestTree_ReportsBrokenLocalReferences(t *testing.T) {
	root := t.TempDir()
	write(t, root, "pages/about.html", `<html><body><img src="../img/logo.png"><a href="#top">top</a></body></html>`)

	report, err := Tree(root)
	require.NoError(t, err)
	require.Len(t, report.Problems, 1)
	assert.Equal(t, filepath.Join("pages", "about.html"), report.Problems[0].File)
	assert.Contains(t, report.Problems[0].Detail, "../img/logo.png")
	assert.False(t, report.OK())
}

func TestTree_IgnoresNonHTML(t *testing.T) {
	root := t.TempDir()
	write(t, root, "notes.txt", "nothing html here")

	report, err := Tree(root)
	require.NoError(t, err)
	assert.Zero(t, report.FilesChecked)
	assert.True(t, report.OK())
}
