package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/relpack/internal/config"
	"git.home.luguber.info/inful/relpack/internal/daemon"
	"git.home.luguber.info/inful/relpack/internal/events"
	"git.home.luguber.info/inful/relpack/internal/history"
	"git.home.luguber.info/inful/relpack/internal/metrics"
	"git.home.luguber.info/inful/relpack/internal/pipeline"
	"git.home.luguber.info/inful/relpack/internal/registry"
	"git.home.luguber.info/inful/relpack/internal/source"
	"git.home.luguber.info/inful/relpack/internal/transform"
	"git.home.luguber.info/inful/relpack/internal/verify"
	"git.home.luguber.info/inful/relpack/internal/walker"
)

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// newOrchestrator assembles pipeline options from the configuration plus
// command-line overrides.
func newOrchestrator(cfg *config.Config, sourceRoot, destRoot, target string, rec metrics.Recorder) (*pipeline.Orchestrator, error) {
	timeout, err := cfg.Build.ToolTimeoutDuration()
	if err != nil {
		return nil, err
	}

	tools := make(map[registry.OperationKind]transform.ToolSpec, len(cfg.Build.Tools))
	for op, tc := range cfg.Build.Tools {
		tools[registry.OperationKind(op)] = transform.ToolSpec{Command: tc.Command, Args: tc.Args}
	}
	for op, tc := range transform.DefaultTools() {
		if _, ok := tools[op]; !ok {
			tools[op] = tc
		}
	}

	return pipeline.NewOrchestrator(pipeline.Options{
		SourceRoot:  sourceRoot,
		DestRoot:    destRoot,
		Target:      target,
		AssetsDir:   cfg.Source.AssetsDir,
		CleanFirst:  cfg.Output.CleanFirst(),
		Concurrency: cfg.Build.Concurrency,
		ToolTimeout: timeout,
		Registry:    cfg.Registry(),
		Tools:       tools,
		Recorder:    rec,
	})
}

// resolveSource returns the directory to package. In git mode the repository
// is fetched into an ephemeral workspace first; the returned cleanup removes
// it after the build.
func resolveSource(cfg *config.Config) (string, func(), error) {
	gitURL := CLI.Build.FromGit
	branch := CLI.Build.Branch
	depth := CLI.Build.Depth
	if gitURL == "" && cfg.Source.Git.URL != "" {
		gitURL = cfg.Source.Git.URL
		branch = cfg.Source.Git.Branch
		depth = cfg.Source.Git.Depth
	}

	dir := cfg.Source.Directory
	if CLI.Build.Source != "" {
		dir = CLI.Build.Source
	}
	if gitURL == "" {
		return dir, func() {}, nil
	}

	ws := source.NewWorkspace("")
	if err := ws.Create(); err != nil {
		return "", nil, err
	}
	cleanup := func() {
		if err := ws.Cleanup(); err != nil {
			slog.Warn("Failed to clean up workspace", "error", err)
		}
	}
	checkout, err := ws.Fetch(source.FetchOptions{URL: gitURL, Branch: branch, Depth: depth})
	if err != nil {
		cleanup()
		return "", nil, err
	}
	return checkout, cleanup, nil
}

func runBuild() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	sourceRoot, cleanup, err := resolveSource(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	destRoot := cfg.Output.Directory
	if CLI.Build.Output != "" {
		destRoot = CLI.Build.Output
	}
	target := CLI.Build.Target
	if target == "" {
		target = cfg.Project.Name
	}

	orchestrator, err := newOrchestrator(cfg, sourceRoot, destRoot, target, metrics.NoopRecorder{})
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	report, err := orchestrator.Build(ctx)
	if err != nil {
		return err
	}
	recordHistory(ctx, cfg, report)
	publishEvent(cfg, report)

	fmt.Println(report.Summary())
	if report.Failed > 0 {
		return fmt.Errorf("%d files failed", report.Failed)
	}
	return nil
}

func recordHistory(ctx context.Context, cfg *config.Config, report *pipeline.BuildReport) {
	store, err := history.NewStore(cfg.History.Path)
	if err != nil {
		slog.Warn("Failed to open history database", "error", err)
		return
	}
	defer func() {
		_ = store.Close()
	}()
	if err := store.Record(ctx, report); err != nil {
		slog.Warn("Failed to record build history", "error", err)
	}
}

// connectPublisher connects the optional NATS publisher. Event delivery is
// best effort: a connection failure degrades to a warning and a nil
// publisher, never a failed build or daemon.
func connectPublisher(cfg *config.Config) *events.Publisher {
	if !cfg.Events.Enabled {
		return nil
	}
	publisher, err := events.NewPublisher(cfg.Events.URL, cfg.Events.Subject)
	if err != nil {
		slog.Warn("Failed to connect event publisher, continuing without events", "error", err)
		return nil
	}
	return publisher
}

func publishEvent(cfg *config.Config, report *pipeline.BuildReport) {
	publisher := connectPublisher(cfg)
	if publisher == nil {
		return
	}
	defer func() {
		_ = publisher.Close()
	}()
	if err := publisher.PublishReport(report); err != nil {
		slog.Warn("Failed to publish build event", "error", err)
	}
}

func runClean() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := pipeline.Clean(cfg.Output.Directory, cfg.Source.Directory); err != nil {
		return err
	}
	slog.Info("Removed distribution tree", "path", cfg.Output.Directory)
	return nil
}

func runDiscover() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	reg := cfg.Registry()

	result, err := walker.Walk(cfg.Source.Directory, CLI.Discover.Extension)
	if err != nil {
		return err
	}

	counts := make(map[string]int)
	for _, entry := range result.Entries {
		op := "-"
		if spec, ok := reg.Resolve(entry.Extension); ok {
			op = string(spec.Operation)
		}
		counts[op]++
		fmt.Printf("%-14s %s\n", op, entry.RelativePath)
	}
	for _, walkErr := range result.Errors {
		slog.Warn("Unreadable path", "path", walkErr.Path, "error", walkErr.Err)
	}

	ops := make([]string, 0, len(counts))
	for op := range counts {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	fmt.Printf("\n%d files", len(result.Entries))
	for _, op := range ops {
		fmt.Printf(", %s=%d", op, counts[op])
	}
	if result.SymlinksSkipped > 0 {
		fmt.Printf(", symlinks skipped=%d", result.SymlinksSkipped)
	}
	fmt.Println()
	return nil
}

func runVerify() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	report, err := verify.Tree(cfg.Output.Directory)
	if err != nil {
		return err
	}
	for _, p := range report.Problems {
		fmt.Printf("%s: %s\n", p.File, p.Detail)
	}
	fmt.Printf("%d html files checked, %d problems\n", report.FilesChecked, len(report.Problems))
	if !report.OK() {
		return fmt.Errorf("%d problems found", len(report.Problems))
	}
	return nil
}

func runDaemon() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	promRegistry := prom.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(promRegistry)

	orchestrator, err := newOrchestrator(cfg, cfg.Source.Directory, cfg.Output.Directory, cfg.Project.Name, recorder)
	if err != nil {
		return err
	}

	store, err := history.NewStore(cfg.History.Path)
	if err != nil {
		return err
	}
	defer func() {
		_ = store.Close()
	}()

	publisher := connectPublisher(cfg)
	if publisher != nil {
		defer func() {
			_ = publisher.Close()
		}()
	}

	d, err := daemon.New(daemon.Options{
		Config:       cfg,
		Orchestrator: orchestrator,
		PromRegistry: promRegistry,
		Store:        store,
		Publisher:    publisher,
	})
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	return d.Run(ctx)
}

func runHistory() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := history.NewStore(cfg.History.Path)
	if err != nil {
		return err
	}
	defer func() {
		_ = store.Close()
	}()

	ctx, cancel := signalContext()
	defer cancel()

	if CLI.History.Build != "" {
		report, err := store.Get(ctx, CLI.History.Build)
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	entries, err := store.Recent(ctx, CLI.History.Limit)
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Printf("%s  %-10s %-8s processed=%d failed=%d duration=%s\n",
			e.Started.Format(time.RFC3339), e.Target, e.Outcome, e.Processed, e.Failed,
			e.Finished.Sub(e.Started).Truncate(time.Millisecond))
	}
	return nil
}
