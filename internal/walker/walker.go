// Package walker enumerates the files of a source subtree for one pipeline
// stage. Each walk is independent: a fresh walk over an unchanged tree
// reproduces the same entries, so stages can re-walk cheaply.
package walker

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/relpack/internal/logfields"
	"git.home.luguber.info/inful/relpack/internal/pathmap"
)

// FileEntry is a single regular file discovered under the source root.
type FileEntry struct {
	AbsolutePath string
	RelativePath string
	Extension    string
}

// WalkError records a subtree that could not be enumerated. It is attached
// to the walk result, not raised: an unreadable directory skips that subtree
// and does not abort siblings.
type WalkError struct {
	Path string
	Err  error
}

func (e *WalkError) Error() string { return fmt.Sprintf("walk %s: %v", e.Path, e.Err) }
func (e *WalkError) Unwrap() error { return e.Err }

// Result aggregates one walk.
type Result struct {
	Entries         []FileEntry
	Errors          []*WalkError
	SymlinksSkipped int
}

// Walk enumerates regular files under root whose extension matches extFilter
// (exact, case-insensitive). An empty extFilter matches every file.
// Symbolic links are never followed; each is counted, not fatal.
// An unreadable root is fatal; unreadable subdirectories are recorded.
func Walk(root, extFilter string) (*Result, error) {
	root = filepath.Clean(root)
	if _, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("source root %s: %w", root, err)
	}
	extFilter = strings.ToLower(extFilter)

	res := &Result{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			res.Errors = append(res.Errors, &WalkError{Path: path, Err: err})
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			// WalkDir does not follow symlinks, so skipping the entry is
			// enough to avoid cycles and unbounded traversal.
			res.SymlinksSkipped++
			slog.Debug("Skipping symlink", logfields.Path(path))
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		ext := filepath.Ext(path)
		if extFilter != "" && strings.ToLower(ext) != extFilter {
			return nil
		}
		rel, rerr := pathmap.Rel(root, path)
		if rerr != nil {
			// WalkDir only yields descendants; treat a mapping failure as a
			// subtree error rather than dropping the file silently.
			res.Errors = append(res.Errors, &WalkError{Path: path, Err: rerr})
			return nil
		}
		res.Entries = append(res.Entries, FileEntry{
			AbsolutePath: path,
			RelativePath: rel,
			Extension:    ext,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk source root %s: %w", root, err)
	}
	return res, nil
}
