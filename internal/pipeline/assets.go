package pipeline

import (
	"context"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/relpack/internal/registry"
	"git.home.luguber.info/inful/relpack/internal/stage"
	"git.home.luguber.info/inful/relpack/internal/transform"
)

// copyAssets mirrors the designated assets subtree verbatim into the
// destination. Unlike the transform stages it is not filtered by extension:
// everything under the subtree is copied byte-exactly. A missing assets
// subtree is not an error; not every project ships binary assets.
func copyAssets(ctx context.Context, runner *stage.Runner, sourceRoot, destRoot, assetsDir string) (*stage.Result, error) {
	if assetsDir == "" {
		return &stage.Result{Stage: string(registry.OpCopy)}, nil
	}
	assetsRoot := filepath.Join(sourceRoot, assetsDir)
	if _, err := os.Stat(assetsRoot); os.IsNotExist(err) {
		return &stage.Result{Stage: string(registry.OpCopy)}, nil
	}
	spec := registry.TransformSpec{Operation: registry.OpCopy}
	res, err := runner.Run(ctx, assetsRoot, filepath.Join(destRoot, assetsDir), spec, transform.Copier{})
	if err != nil {
		return nil, err
	}
	return res, nil
}
