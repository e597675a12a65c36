// Package source provides the optional git fetch mode: instead of packaging a
// local directory, `relpack build --from-git <url>` clones the project into an
// ephemeral workspace and packages that checkout.
package source

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"git.home.luguber.info/inful/relpack/internal/logfields"
)

// Workspace is a disposable directory holding a fetched source tree.
type Workspace struct {
	baseDir string
	dir     string
}

// NewWorkspace prepares a workspace manager rooted at baseDir
// (os.TempDir when empty).
func NewWorkspace(baseDir string) *Workspace {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	return &Workspace{baseDir: baseDir}
}

// Create makes a fresh timestamped directory for one fetch.
func (w *Workspace) Create() error {
	timestamp := time.Now().Format("20060102-150405")
	dir := filepath.Join(w.baseDir, fmt.Sprintf("relpack-%s", timestamp))
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create workspace directory: %w", err)
	}
	w.dir = dir
	slog.Info("Created workspace", logfields.Path(dir))
	return nil
}

// Path returns the workspace directory.
func (w *Workspace) Path() string { return w.dir }

// Cleanup removes the workspace directory.
func (w *Workspace) Cleanup() error {
	if w.dir == "" {
		return nil
	}
	if err := os.RemoveAll(w.dir); err != nil {
		return fmt.Errorf("cleanup workspace: %w", err)
	}
	slog.Debug("Cleaned up workspace", logfields.Path(w.dir))
	w.dir = ""
	return nil
}

// FetchOptions configures one git fetch.
type FetchOptions struct {
	URL    string
	Branch string // default branch of the remote when empty
	Depth  int    // shallow clone depth, 0 for full history
}

// Fetch clones the repository into the workspace and returns the checkout
// path, which then serves as the packaging source root.
func (w *Workspace) Fetch(opts FetchOptions) (string, error) {
	if w.dir == "" {
		return "", fmt.Errorf("workspace not created")
	}
	if opts.URL == "" {
		return "", fmt.Errorf("repository url is required")
	}

	checkout := filepath.Join(w.dir, "checkout")
	slog.Debug("Cloning repository", slog.String("url", opts.URL), slog.String("branch", opts.Branch), logfields.Path(checkout))

	cloneOptions := &git.CloneOptions{URL: opts.URL}
	if opts.Branch != "" {
		cloneOptions.ReferenceName = plumbing.ReferenceName("refs/heads/" + opts.Branch)
		cloneOptions.SingleBranch = true
	}
	if opts.Depth > 0 {
		cloneOptions.Depth = opts.Depth
	}

	repo, err := git.PlainClone(checkout, false, cloneOptions)
	if err != nil {
		return "", fmt.Errorf("clone repository %s: %w", opts.URL, err)
	}

	if ref, herr := repo.Head(); herr == nil {
		slog.Info("Repository cloned", slog.String("url", opts.URL), slog.String("commit", ref.Hash().String()[:8]))
	} else {
		slog.Info("Repository cloned", slog.String("url", opts.URL))
	}
	return checkout, nil
}
