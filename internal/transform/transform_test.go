package transform

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopier_ByteExactAndModePreserved(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "logo.png")
	dst := filepath.Join(dir, "out", "logo.png")
	content := []byte{0x89, 'P', 'N', 'G', 0x00, 0x01, 0x02}
	require.NoError(t, os.WriteFile(src, content, 0o755))
	require.NoError(t, os.MkdirAll(filepath.Dir(dst), 0o755))

	require.NoError(t, Copier{}.Transform(context.Background(), src, dst))

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, content, got)

	if runtime.GOOS != "windows" {
		info, err := os.Stat(dst)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
	}
}

func TestCopier_MissingSource(t *testing.T) {
	dir := t.TempDir()
	err := Copier{}.Transform(context.Background(), filepath.Join(dir, "absent"), filepath.Join(dir, "out"))
	var terr *TransformError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, "copy", terr.Tool)
}

func TestExec_MissingBinaryIsTransformError(t *testing.T) {
	tr := NewExec("minify_style", "relpack-test-definitely-absent-binary", nil, 0)
	err := tr.Transform(context.Background(), "in.css", "out.css")
	var terr *TransformError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, "minify_style", terr.Tool)
	assert.Equal(t, "in.css", terr.Input)
}

func TestExec_SubstitutesPlaceholdersAndRuns(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("test uses POSIX sh")
	}
	dir := t.TempDir()
	in := filepath.Join(dir, "in.txt")
	out := filepath.Join(dir, "out.txt")
	require.NoError(t, os.WriteFile(in, []byte("hello world"), 0o644))

	tr := NewExec("fake_minify", "sh", []string{"-c", `tr -d ' ' < "$0" > "$1"`, PlaceholderInput, PlaceholderOutput}, 5*time.Second)
	require.NoError(t, tr.Transform(context.Background(), in, out))

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "helloworld", string(got))
}

func TestExec_NonZeroExitIsTransformError(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("test uses POSIX sh")
	}
	tr := NewExec("fake_compile", "sh", []string{"-c", "echo boom >&2; exit 3"}, 0)
	err := tr.Transform(context.Background(), "a", "b")
	var terr *TransformError
	require.True(t, errors.As(err, &terr))
	assert.Contains(t, terr.Error(), "boom")
}

func TestExec_TimeoutAbortsOnlyThisFile(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("test uses POSIX sh")
	}
	tr := NewExec("slow_tool", "sh", []string{"-c", "sleep 5"}, 50*time.Millisecond)
	start := time.Now()
	err := tr.Transform(context.Background(), "a", "b")
	require.Less(t, time.Since(start), 2*time.Second)
	var terr *TransformError
	require.True(t, errors.As(err, &terr))
	assert.Contains(t, terr.Error(), "timed out")
}

func TestDefaultTools_CoverEveryExternalOperation(t *testing.T) {
	tools := DefaultTools()
	assert.Len(t, tools, 4)
	for op, spec := range tools {
		assert.NotEmpty(t, spec.Command, "operation %s needs a command", op)
	}
}
