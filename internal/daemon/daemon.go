// Package daemon implements watch mode: it monitors the source tree, coalesces
// change bursts into rebuilds, optionally rebuilds on a cron schedule, and
// serves health, status and Prometheus metrics over HTTP.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/relpack/internal/config"
	"git.home.luguber.info/inful/relpack/internal/events"
	"git.home.luguber.info/inful/relpack/internal/history"
	"git.home.luguber.info/inful/relpack/internal/logfields"
	"git.home.luguber.info/inful/relpack/internal/metrics"
	"git.home.luguber.info/inful/relpack/internal/pipeline"
)

// Options wires the daemon's collaborators. Store and Publisher are optional.
type Options struct {
	Config       *config.Config
	Orchestrator *pipeline.Orchestrator
	PromRegistry *prom.Registry
	Store        *history.Store
	Publisher    *events.Publisher
}

// Daemon runs the watch-rebuild-serve loop.
type Daemon struct {
	cfg          *config.Config
	orchestrator *pipeline.Orchestrator
	promRegistry *prom.Registry
	store        *history.Store
	publisher    *events.Publisher

	mu         sync.RWMutex
	startTime  time.Time
	buildCount int
	lastReport *pipeline.BuildReport
}

// New validates options and returns a daemon ready to Run.
func New(opts Options) (*Daemon, error) {
	if opts.Config == nil {
		return nil, errors.New("config is required")
	}
	if opts.Orchestrator == nil {
		return nil, errors.New("orchestrator is required")
	}
	return &Daemon{
		cfg:          opts.Config,
		orchestrator: opts.Orchestrator,
		promRegistry: opts.PromRegistry,
		store:        opts.Store,
		publisher:    opts.Publisher,
	}, nil
}

// Run blocks until ctx is canceled. The initial build runs before watching
// starts so a fresh daemon always leaves a current distribution tree behind.
func (d *Daemon) Run(ctx context.Context) error {
	d.mu.Lock()
	d.startTime = time.Now()
	d.mu.Unlock()

	quiet, _ := time.ParseDuration(d.cfg.Daemon.QuietWindow)
	maxDelay, _ := time.ParseDuration(d.cfg.Daemon.MaxDelay)
	debouncer, err := NewDebouncer(quiet, maxDelay)
	if err != nil {
		return fmt.Errorf("create debouncer: %w", err)
	}

	watcher, err := NewWatcher(d.cfg.Source.Directory, debouncer.Notify)
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	var scheduler gocron.Scheduler
	if d.cfg.Daemon.Schedule != "" {
		scheduler, err = gocron.NewScheduler()
		if err != nil {
			return fmt.Errorf("create scheduler: %w", err)
		}
		_, err = scheduler.NewJob(
			gocron.CronJob(d.cfg.Daemon.Schedule, false),
			gocron.NewTask(func() {
				slog.Info("Scheduled rebuild requested")
				debouncer.Notify()
			}),
			gocron.WithName("scheduled-rebuild"),
		)
		if err != nil {
			return fmt.Errorf("schedule rebuild job: %w", err)
		}
	}

	server := &http.Server{
		Addr:              d.cfg.Daemon.Listen,
		Handler:           d.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = debouncer.Run(runCtx)
	}()
	go func() {
		defer wg.Done()
		_ = watcher.Run(runCtx)
	}()
	go func() {
		slog.Info("Daemon HTTP server listening", slog.String("addr", d.cfg.Daemon.Listen))
		if serr := server.ListenAndServe(); serr != nil && !errors.Is(serr, http.ErrServerClosed) {
			slog.Error("HTTP server failed", logfields.Error(serr))
			cancel()
		}
	}()
	if scheduler != nil {
		scheduler.Start()
	}

	d.runBuild(runCtx, "startup")

	for {
		select {
		case <-runCtx.Done():
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			_ = server.Shutdown(shutdownCtx)
			shutdownCancel()
			if scheduler != nil {
				_ = scheduler.Shutdown()
			}
			wg.Wait()
			return nil
		case trigger := <-debouncer.Triggers():
			slog.Info("Rebuild triggered",
				slog.String("cause", trigger.Cause),
				slog.Int("requests", trigger.RequestCount))
			d.runBuild(runCtx, trigger.Cause)
		}
	}
}

func (d *Daemon) runBuild(ctx context.Context, reason string) {
	report, err := d.orchestrator.Build(ctx)
	if err != nil && report == nil {
		slog.Error("Build failed", slog.String("reason", reason), logfields.Error(err))
		return
	}
	if err != nil {
		slog.Warn("Build finished with error", slog.String("reason", reason), logfields.Error(err))
	}

	d.mu.Lock()
	d.buildCount++
	d.lastReport = report
	d.mu.Unlock()

	if d.store != nil {
		if rerr := d.store.Record(ctx, report); rerr != nil {
			slog.Warn("Failed to record build history", logfields.BuildID(report.BuildID), logfields.Error(rerr))
		}
	}
	if d.publisher != nil {
		if perr := d.publisher.PublishReport(report); perr != nil {
			slog.Warn("Failed to publish build event", logfields.BuildID(report.BuildID), logfields.Error(perr))
		}
	}
}

// Status is the JSON document served on /status.
type Status struct {
	State     string                `json:"state"`
	StartTime time.Time             `json:"start_time"`
	Builds    int                   `json:"builds"`
	LastBuild *pipeline.BuildReport `json:"last_build,omitempty"`
}

// GetStatus snapshots the daemon state.
func (d *Daemon) GetStatus() Status {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return Status{
		State:     "running",
		StartTime: d.startTime,
		Builds:    d.buildCount,
		LastBuild: d.lastReport,
	}
}

func (d *Daemon) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/status", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(d.GetStatus()); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	if d.promRegistry != nil {
		mux.Handle("/metrics", metrics.HTTPHandler(d.promRegistry))
	}
	return mux
}
