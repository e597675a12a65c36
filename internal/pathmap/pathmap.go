// Package pathmap maps source tree paths onto the distribution tree.
//
// The mapping is a pure function: the same input always produces the same
// destination path, with no filesystem access and no side effects, so it is
// safe to call concurrently from stage workers.
package pathmap

import (
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// PathOutsideRootError reports a path that is not a descendant of the source
// root. This is a programmer error (the walker only yields descendants) and
// is fatal to the call.
type PathOutsideRootError struct {
	Root string
	Path string
}

func (e *PathOutsideRootError) Error() string {
	return fmt.Sprintf("path %s is outside source root %s", e.Path, e.Root)
}

// Rel returns the path of absolutePath relative to sourceRoot, normalized to
// NFC so the same logical filename maps identically across platforms
// (macOS reports NFD names, Linux typically NFC).
func Rel(sourceRoot, absolutePath string) (string, error) {
	sourceRoot = filepath.Clean(sourceRoot)
	absolutePath = filepath.Clean(absolutePath)

	rel, err := filepath.Rel(sourceRoot, absolutePath)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", &PathOutsideRootError{Root: sourceRoot, Path: absolutePath}
	}
	return norm.NFC.String(rel), nil
}

// Map rewrites absolutePath (a descendant of sourceRoot) into the parallel
// location under destRoot, preserving the relative directory structure.
// When destExt is non-empty the final extension is replaced with it.
func Map(sourceRoot, destRoot, absolutePath, destExt string) (string, error) {
	rel, err := Rel(sourceRoot, absolutePath)
	if err != nil {
		return "", err
	}
	if destExt != "" {
		ext := filepath.Ext(rel)
		rel = strings.TrimSuffix(rel, ext) + destExt
	}
	return filepath.Join(filepath.Clean(destRoot), rel), nil
}
