// Package pipeline runs the fixed stage sequence that turns a source tree
// into a distribution tree: compile, minify markup, minify script, minify
// style, then a verbatim asset copy. Per-file failures are aggregated, never
// fatal; only configuration-level violations abort a build.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/relpack/internal/docsgen"
	"git.home.luguber.info/inful/relpack/internal/logfields"
	"git.home.luguber.info/inful/relpack/internal/metrics"
	"git.home.luguber.info/inful/relpack/internal/registry"
	"git.home.luguber.info/inful/relpack/internal/stage"
	"git.home.luguber.info/inful/relpack/internal/transform"
)

// StageOrder is the fixed execution order. Stages operate on disjoint
// extension sets, so the ordering is a reproducibility choice rather than a
// data dependency.
var StageOrder = []registry.OperationKind{
	registry.OpCompile,
	registry.OpMinifyMarkup,
	registry.OpMinifyScript,
	registry.OpMinifyStyle,
	registry.OpCopy,
	registry.OpRenderDocs,
}

// Options configures one Orchestrator.
type Options struct {
	SourceRoot  string
	DestRoot    string
	Target      string // package/target identifier, used for reporting
	AssetsDir   string // subtree copied verbatim by the final stage
	CleanFirst  bool
	Concurrency int
	ToolTimeout time.Duration

	Registry *registry.Registry
	// Tools overrides the external tool invocation per operation. Unset
	// operations fall back to transform.DefaultTools.
	Tools map[registry.OperationKind]transform.ToolSpec
	// Transformers overrides the full transformer per operation; primarily a
	// test seam so fakes replace external binaries.
	Transformers map[registry.OperationKind]transform.Transformer

	Recorder metrics.Recorder
}

// Orchestrator drives a build. Each Build call is self-contained: it owns its
// stage runner and report and shares no mutable state with other calls.
type Orchestrator struct {
	opts Options
}

// NewOrchestrator validates options and applies defaults.
func NewOrchestrator(opts Options) (*Orchestrator, error) {
	if opts.SourceRoot == "" {
		return nil, errors.New("source root is required")
	}
	if opts.DestRoot == "" {
		return nil, errors.New("destination root is required")
	}
	if opts.Registry == nil {
		opts.Registry = registry.Default()
	}
	if opts.Tools == nil {
		opts.Tools = transform.DefaultTools()
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.NoopRecorder{}
	}
	return &Orchestrator{opts: opts}, nil
}

func (o *Orchestrator) transformerFor(op registry.OperationKind) transform.Transformer {
	if tr, ok := o.opts.Transformers[op]; ok {
		return tr
	}
	// Docs rendering runs in-process; there is no external tool to fall
	// back to.
	if op == registry.OpRenderDocs {
		return docsgen.NewRenderer()
	}
	tool := o.opts.Tools[op]
	if tool.Command == "" {
		tool = transform.DefaultTools()[op]
	}
	return transform.Build(op, tool, o.opts.ToolTimeout)
}

// Build runs every stage in order and returns the aggregated report. The
// returned error is non-nil only for fatal conditions (unreadable source
// root, unsafe clean target, cancellation); per-file failures land in the
// report instead.
func (o *Orchestrator) Build(ctx context.Context) (*BuildReport, error) {
	buildID := uuid.NewString()
	report := newBuildReport(buildID, o.opts.Target, o.opts.SourceRoot, o.opts.DestRoot)
	slog.Info("Starting build",
		logfields.BuildID(buildID),
		logfields.Source(o.opts.SourceRoot),
		logfields.Dest(o.opts.DestRoot))

	if o.opts.CleanFirst {
		if err := Clean(o.opts.DestRoot, o.opts.SourceRoot); err != nil {
			return nil, err
		}
	}

	runner := stage.NewRunner(o.opts.Concurrency)
	canceled := false

	for _, op := range StageOrder {
		if err := ctx.Err(); err != nil {
			canceled = true
			break
		}
		start := time.Now()
		res, err := o.runStage(ctx, runner, op)
		if err != nil {
			// Stage-fatal means build-fatal: the source root itself was
			// unusable, not an individual file. The report must still say so;
			// it outlives the returned error in history and event streams.
			report.Failures = append(report.Failures, FailureRecord{Stage: string(op), Error: err.Error()})
			report.Failed++
			report.finish(false)
			return report, fmt.Errorf("stage %s: %w", op, err)
		}
		dur := time.Since(start)

		report.StageOrder = append(report.StageOrder, string(op))
		report.Stages[string(op)] = StageSummary{
			Processed: res.Processed,
			Failed:    res.Failed(),
			Symlinks:  res.Symlinks,
			Duration:  dur,
		}
		report.Processed += res.Processed
		report.Failed += res.Failed()
		for _, f := range res.Failures {
			report.Failures = append(report.Failures, FailureRecord{
				Stage: string(op),
				File:  f.Entry.RelativePath,
				Error: f.Err.Error(),
			})
		}
		for _, w := range res.WalkErrors {
			report.Failures = append(report.Failures, FailureRecord{
				Stage: string(op),
				File:  w.Path,
				Error: w.Err.Error(),
			})
		}

		o.opts.Recorder.ObserveStageDuration(string(op), dur)
		o.opts.Recorder.IncStageResult(string(op), stageResult(res))
		slog.Info("Stage finished",
			logfields.BuildID(buildID),
			logfields.Stage(string(op)),
			slog.Uint64("processed", uint64(res.Processed)),
			slog.Int("failed", res.Failed()),
			logfields.DurationMS(float64(dur.Milliseconds())))
	}

	// Cancellation during the last stage has no further loop iteration to
	// notice it.
	if !canceled && ctx.Err() != nil {
		canceled = true
	}
	report.finish(canceled)
	o.opts.Recorder.ObserveBuildDuration(report.End.Sub(report.Start))
	o.opts.Recorder.IncBuildOutcome(string(report.Outcome))
	o.opts.Recorder.AddFileResults(int(report.Processed), report.Failed)

	if err := report.Persist(o.opts.DestRoot); err != nil {
		slog.Warn("Failed to persist build report", logfields.BuildID(buildID), logfields.Error(err))
	}
	slog.Info("Build finished", logfields.BuildID(buildID), logfields.Outcome(string(report.Outcome)),
		slog.Uint64("processed", uint64(report.Processed)), slog.Int("failed", report.Failed))

	if canceled {
		return report, ctx.Err()
	}
	return report, nil
}

func (o *Orchestrator) runStage(ctx context.Context, runner *stage.Runner, op registry.OperationKind) (*stage.Result, error) {
	if op == registry.OpCopy {
		return copyAssets(ctx, runner, o.opts.SourceRoot, o.opts.DestRoot, o.opts.AssetsDir)
	}
	spec, ok := o.specFor(op)
	if !ok {
		// Operation without a registered extension: nothing to do.
		return &stage.Result{Stage: string(op)}, nil
	}
	return runner.Run(ctx, o.opts.SourceRoot, o.opts.DestRoot, spec, o.transformerFor(op))
}

func (o *Orchestrator) specFor(op registry.OperationKind) (registry.TransformSpec, bool) {
	for _, spec := range o.opts.Registry.Specs() {
		if spec.Operation == op {
			return spec, true
		}
	}
	return registry.TransformSpec{}, false
}

func stageResult(res *stage.Result) metrics.ResultLabel {
	if res.Failed() > 0 {
		return metrics.ResultFailed
	}
	return metrics.ResultSuccess
}
