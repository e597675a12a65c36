package walker

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func relPaths(res *Result) []string {
	out := make([]string, 0, len(res.Entries))
	for _, e := range res.Entries {
		out = append(out, e.RelativePath)
	}
	sort.Strings(out)
	return out
}

func TestWalk_FiltersByExtension(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "app", "main.py"), "print('hi')")
	writeFile(t, filepath.Join(root, "app", "util.py"), "pass")
	writeFile(t, filepath.Join(root, "templates", "index.html"), "<html></html>")
	writeFile(t, filepath.Join(root, "static", "js", "app.js"), "var x=1;")

	res, err := Walk(root, ".py")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join("app", "main.py"),
		filepath.Join("app", "util.py"),
	}, relPaths(res))
	assert.Empty(t, res.Errors)
}

func TestWalk_EmptyFilterMatchesEverything(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.py"), "")
	writeFile(t, filepath.Join(root, "b.html"), "")
	writeFile(t, filepath.Join(root, "sub", "c.png"), "")

	res, err := Walk(root, "")
	require.NoError(t, err)
	assert.Len(t, res.Entries, 3)
}

func TestWalk_FilterIsCaseInsensitive(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "UPPER.PY"), "")

	res, err := Walk(root, ".py")
	require.NoError(t, err)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, ".PY", res.Entries[0].Extension)
}

func TestWalk_EntriesLieUnderRoot(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "x", "y", "z.css"), "body{}")

	res, err := Walk(root, ".css")
	require.NoError(t, err)
	for _, e := range res.Entries {
		assert.True(t, strings.HasPrefix(e.AbsolutePath, root+string(filepath.Separator)),
			"entry %s must lie strictly under %s", e.AbsolutePath, root)
		assert.False(t, filepath.IsAbs(e.RelativePath))
	}
}

func TestWalk_Restartable(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a", "one.js"), "")
	writeFile(t, filepath.Join(root, "b", "two.js"), "")

	first, err := Walk(root, ".js")
	require.NoError(t, err)
	second, err := Walk(root, ".js")
	require.NoError(t, err)
	assert.Equal(t, relPaths(first), relPaths(second))
}

func TestWalk_SkipsSymlinksWithoutFollowing(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	writeFile(t, filepath.Join(outside, "secret.py"), "")
	writeFile(t, filepath.Join(root, "real.py"), "")
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "loop")))
	require.NoError(t, os.Symlink(filepath.Join(outside, "secret.py"), filepath.Join(root, "link.py")))

	res, err := Walk(root, ".py")
	require.NoError(t, err)
	assert.Equal(t, []string{"real.py"}, relPaths(res))
	assert.Equal(t, 2, res.SymlinksSkipped)
}

func TestWalk_UnreadableSubdirRecordedNotFatal(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "ok", "fine.py"), "")
	locked := filepath.Join(root, "locked")
	writeFile(t, filepath.Join(locked, "hidden.py"), "")
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	res, err := Walk(root, ".py")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join("ok", "fine.py")}, relPaths(res))
	require.NotEmpty(t, res.Errors)
	assert.Contains(t, res.Errors[0].Path, "locked")
}

func TestWalk_MissingRootIsFatal(t *testing.T) {
	_, err := Walk(filepath.Join(t.TempDir(), "does-not-exist"), "")
	assert.Error(t, err)
}

func TestWalk_EmptyRoot(t *testing.T) {
	res, err := Walk(t.TempDir(), ".py")
	require.NoError(t, err)
	assert.Empty(t, res.Entries)
	assert.Empty(t, res.Errors)
}
