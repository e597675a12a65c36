// Package stage executes one pipeline stage: walk the source subtree for one
// extension, map every file into the destination tree, and apply the stage's
// transform. Files are independent, so the runner fans work out across a
// bounded worker pool.
package stage

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"git.home.luguber.info/inful/relpack/internal/logfields"
	"git.home.luguber.info/inful/relpack/internal/pathmap"
	"git.home.luguber.info/inful/relpack/internal/registry"
	"git.home.luguber.info/inful/relpack/internal/transform"
	"git.home.luguber.info/inful/relpack/internal/walker"
)

// Runner runs stages. The ensured-directory set lives on the runner instance
// rather than in process-global state, so parallel builds cannot leak
// directory knowledge into each other.
type Runner struct {
	concurrency int

	mu      sync.Mutex
	ensured map[string]struct{}
}

// NewRunner creates a Runner. Concurrency below 1 is clamped to 1.
func NewRunner(concurrency int) *Runner {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Runner{
		concurrency: concurrency,
		ensured:     make(map[string]struct{}),
	}
}

// ensureDir creates dir (and ancestors) once per runner. MkdirAll on an
// existing directory is a no-op, so concurrent callers are safe; the set
// only short-circuits repeat syscalls.
func (r *Runner) ensureDir(dir string) error {
	r.mu.Lock()
	_, done := r.ensured[dir]
	r.mu.Unlock()
	if done {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	r.mu.Lock()
	r.ensured[dir] = struct{}{}
	r.mu.Unlock()
	return nil
}

// Run walks sourceRoot filtered to spec.MatchExtension and transforms every
// entry to its mapped destination. Individual failures are recorded and the
// stage continues; only an unreadable source root aborts.
func (r *Runner) Run(ctx context.Context, sourceRoot, destRoot string, spec registry.TransformSpec, tr transform.Transformer) (*Result, error) {
	res := &Result{Stage: string(spec.Operation)}

	walked, err := walker.Walk(sourceRoot, spec.MatchExtension)
	if err != nil {
		return nil, err
	}
	res.WalkErrors = walked.Errors
	res.Symlinks = walked.SymlinksSkipped

	type outcome struct {
		entry walker.FileEntry
		err   error
	}

	entries := make(chan walker.FileEntry)
	outcomes := make(chan outcome)

	var wg sync.WaitGroup
	for i := 0; i < r.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for entry := range entries {
				outcomes <- outcome{entry: entry, err: r.processOne(ctx, sourceRoot, destRoot, spec, tr, entry)}
			}
		}()
	}
	go func() {
		defer close(entries)
		for _, e := range walked.Entries {
			select {
			case entries <- e:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(outcomes)
	}()

	for o := range outcomes {
		if o.err != nil {
			res.Failures = append(res.Failures, FileFailure{Entry: o.entry, Err: o.err})
			slog.Warn("File transform failed",
				logfields.Stage(res.Stage),
				logfields.File(o.entry.RelativePath),
				logfields.Error(o.err))
			continue
		}
		res.Processed++
	}
	return res, nil
}

func (r *Runner) processOne(ctx context.Context, sourceRoot, destRoot string, spec registry.TransformSpec, tr transform.Transformer, entry walker.FileEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dest, err := pathmap.Map(sourceRoot, destRoot, entry.AbsolutePath, spec.DestinationExtension)
	if err != nil {
		return err
	}
	if err := r.ensureDir(filepath.Dir(dest)); err != nil {
		return err
	}
	if err := tr.Transform(ctx, entry.AbsolutePath, dest); err != nil {
		return err
	}
	slog.Debug("Transformed file",
		logfields.Stage(string(spec.Operation)),
		logfields.Source(entry.RelativePath),
		logfields.Dest(dest))
	return nil
}
