package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// UnsafeTargetError reports a cleanup target that could destroy the source
// tree or worse. Raised before any deletion happens.
type UnsafeTargetError struct {
	Dest   string
	Reason string
}

func (e *UnsafeTargetError) Error() string {
	return fmt.Sprintf("refusing to clean %s: %s", e.Dest, e.Reason)
}

// Clean removes destRoot recursively so rebuilds start from an empty tree.
// It fails with *UnsafeTargetError when destRoot resolves to the filesystem
// root, to sourceRoot, or to an ancestor of sourceRoot; misconfiguration must
// never be able to delete the sources.
func Clean(destRoot, sourceRoot string) error {
	dest, err := resolve(destRoot)
	if err != nil {
		return fmt.Errorf("resolve destination root: %w", err)
	}
	src, err := resolve(sourceRoot)
	if err != nil {
		return fmt.Errorf("resolve source root: %w", err)
	}

	if dest == string(filepath.Separator) || filepath.Dir(dest) == dest {
		return &UnsafeTargetError{Dest: destRoot, Reason: "target is the filesystem root"}
	}
	if dest == src {
		return &UnsafeTargetError{Dest: destRoot, Reason: "target is the source root"}
	}
	if isAncestor(dest, src) {
		return &UnsafeTargetError{Dest: destRoot, Reason: "target is an ancestor of the source root"}
	}

	if err := os.RemoveAll(dest); err != nil {
		return fmt.Errorf("remove destination tree: %w", err)
	}
	return nil
}

// resolve yields a symlink-free absolute path. A not-yet-existing target is
// resolved through its nearest existing ancestor so the guard still applies
// to the real location.
func resolve(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err == nil {
		return resolved, nil
	}
	if !os.IsNotExist(err) {
		return "", err
	}
	dir, base := filepath.Split(filepath.Clean(abs))
	parent, perr := resolve(filepath.Clean(dir))
	if perr != nil {
		return "", perr
	}
	return filepath.Join(parent, base), nil
}

// isAncestor reports whether dir is a strict ancestor of sub.
func isAncestor(dir, sub string) bool {
	return strings.HasPrefix(sub, dir+string(filepath.Separator))
}
