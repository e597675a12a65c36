package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/relpack/internal/config"
	"git.home.luguber.info/inful/relpack/internal/version"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"relpack.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Build struct {
		Target  string `arg:"" optional:"" help:"Target name recorded in the build report (defaults to project name)"`
		Source  string `short:"s" help:"Override the source directory"`
		Output  string `short:"o" help:"Override the output directory"`
		FromGit string `help:"Package a git repository instead of a local directory"`
		Branch  string `help:"Branch to fetch with --from-git"`
		Depth   int    `help:"Shallow clone depth with --from-git" default:"1"`
	} `cmd:"" help:"Package the source tree into a distribution tree"`

	Clean struct{} `cmd:"" help:"Remove the distribution tree"`

	Discover struct {
		Extension string `short:"e" help:"Only list files with this extension"`
	} `cmd:"" help:"List source files and the operation each would get, without building"`

	Verify struct{} `cmd:"" help:"Check the distribution tree for broken HTML and local references"`

	Daemon struct{} `cmd:"" help:"Watch the source tree and rebuild on changes"`

	History struct {
		Limit int    `short:"n" help:"Number of builds to list" default:"20"`
		Build string `help:"Print the full report for one build ID"`
	} `cmd:"" help:"Show past builds"`

	Init struct {
		Force bool `help:"Overwrite existing configuration file"`
	} `cmd:"" help:"Initialize a new configuration file"`

	Version struct{} `cmd:"" help:"Print version information"`
}

func main() {
	ctx := kong.Parse(&CLI)

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	var err error
	switch ctx.Command() {
	case "build", "build <target>":
		err = runBuild()
	case "clean":
		err = runClean()
	case "discover":
		err = runDiscover()
	case "verify":
		err = runVerify()
	case "daemon":
		err = runDaemon()
	case "history":
		err = runHistory()
	case "init":
		err = config.Init(CLI.Config, CLI.Init.Force)
	case "version":
		fmt.Printf("relpack %s (commit %s, built %s)\n", version.Version, version.GitCommit, version.BuildTime)
	}

	if err != nil {
		slog.Error("Command failed", "command", ctx.Command(), "error", err)
		os.Exit(1)
	}
}

// loadConfig loads the configuration and applies logging settings from it
// unless --verbose already forced debug output.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return nil, err
	}
	if !CLI.Verbose {
		slog.SetDefault(slog.New(newLogHandler(cfg.Logging)))
	}
	return cfg, nil
}

func newLogHandler(lc config.LoggingConfig) slog.Handler {
	level := slog.LevelInfo
	switch lc.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	if lc.Format == "json" {
		return slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.NewTextHandler(os.Stderr, opts)
}
