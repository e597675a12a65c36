// Package config loads the relpack.yaml project configuration. Values may
// reference environment variables with ${VAR} syntax; a .env or .env.local
// file next to the config is loaded first.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/relpack/internal/registry"
)

// Config represents the application configuration.
type Config struct {
	Project    ProjectConfig     `yaml:"project"`
	Source     SourceConfig      `yaml:"source"`
	Output     OutputConfig      `yaml:"output"`
	Build      BuildConfig       `yaml:"build"`
	Transforms []TransformConfig `yaml:"transforms,omitempty"`
	Docs       DocsConfig        `yaml:"docs"`
	Events     EventsConfig      `yaml:"events"`
	History    HistoryConfig     `yaml:"history"`
	Daemon     DaemonConfig      `yaml:"daemon"`
	Logging    LoggingConfig     `yaml:"logging"`
}

// ProjectConfig names the packaged target; the name lands in reports and
// events.
type ProjectConfig struct {
	Name string `yaml:"name"`
}

// SourceConfig describes where sources come from: a local directory, or a git
// repository fetched into an ephemeral workspace when Git.URL is set.
type SourceConfig struct {
	Directory string    `yaml:"directory"`
	AssetsDir string    `yaml:"assets_dir,omitempty"`
	Git       GitConfig `yaml:"git,omitempty"`
}

// GitConfig configures the optional git fetch mode.
type GitConfig struct {
	URL    string `yaml:"url,omitempty"`
	Branch string `yaml:"branch,omitempty"`
	Depth  int    `yaml:"depth,omitempty"`
}

// OutputConfig describes the distribution tree.
type OutputConfig struct {
	Directory string `yaml:"directory"`
	Clean     *bool  `yaml:"clean,omitempty"` // default true
}

// CleanFirst resolves the clean flag with its default.
func (o OutputConfig) CleanFirst() bool {
	if o.Clean == nil {
		return true
	}
	return *o.Clean
}

// ToolConfig overrides the external tool invoked for one operation. Args may
// contain the {input} and {output} placeholders.
type ToolConfig struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args,omitempty"`
}

// BuildConfig tunes pipeline execution.
type BuildConfig struct {
	Concurrency int                   `yaml:"concurrency,omitempty"`
	ToolTimeout string                `yaml:"tool_timeout,omitempty"` // duration, e.g. "30s"
	Tools       map[string]ToolConfig `yaml:"tools,omitempty"`        // keyed by operation name
}

// ToolTimeoutDuration parses the configured timeout (30s when unset).
func (b BuildConfig) ToolTimeoutDuration() (time.Duration, error) {
	if b.ToolTimeout == "" {
		return 30 * time.Second, nil
	}
	d, err := time.ParseDuration(b.ToolTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid tool_timeout %q: %w", b.ToolTimeout, err)
	}
	return d, nil
}

// TransformConfig adds or overrides one extension mapping.
type TransformConfig struct {
	Extension            string `yaml:"extension"`
	DestinationExtension string `yaml:"destination_extension,omitempty"`
	Operation            string `yaml:"operation"`
}

// DocsConfig enables the Markdown documentation stage.
type DocsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// EventsConfig configures the NATS build event publisher.
type EventsConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// HistoryConfig configures the build history database.
type HistoryConfig struct {
	Path string `yaml:"path,omitempty"`
}

// DaemonConfig configures watch mode.
type DaemonConfig struct {
	Listen      string `yaml:"listen,omitempty"`       // HTTP address for /metrics and /healthz
	QuietWindow string `yaml:"quiet_window,omitempty"` // debounce window after last change
	MaxDelay    string `yaml:"max_delay,omitempty"`    // upper bound before a pending build runs
	Schedule    string `yaml:"schedule,omitempty"`     // optional cron expression for periodic rebuilds
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"`  // debug, info, warn, error
	Format string `yaml:"format,omitempty"` // text or json
}

// knownOperations are the operation names accepted in transform mappings.
var knownOperations = map[string]registry.OperationKind{
	string(registry.OpCompile):      registry.OpCompile,
	string(registry.OpMinifyMarkup): registry.OpMinifyMarkup,
	string(registry.OpMinifyScript): registry.OpMinifyScript,
	string(registry.OpMinifyStyle):  registry.OpMinifyStyle,
	string(registry.OpRenderDocs):   registry.OpRenderDocs,
	string(registry.OpCopy):         registry.OpCopy,
}

// Load loads configuration from the specified file.
func Load(configPath string) (*Config, error) {
	// Best effort; a missing .env is the normal case.
	_ = godotenv.Load(".env", ".env.local")

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Project.Name == "" {
		c.Project.Name = "release"
	}
	if c.Output.Directory == "" {
		c.Output.Directory = "./dist"
	}
	if c.Build.Concurrency < 1 {
		c.Build.Concurrency = 4
	}
	if c.History.Path == "" {
		c.History.Path = "relpack-history.db"
	}
	if c.Events.Subject == "" {
		c.Events.Subject = "relpack.builds"
	}
	if c.Daemon.Listen == "" {
		c.Daemon.Listen = ":9120"
	}
	if c.Daemon.QuietWindow == "" {
		c.Daemon.QuietWindow = "2s"
	}
	if c.Daemon.MaxDelay == "" {
		c.Daemon.MaxDelay = "30s"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate rejects configurations that could not produce a safe build.
func (c *Config) Validate() error {
	if c.Source.Directory == "" && c.Source.Git.URL == "" {
		return fmt.Errorf("either source.directory or source.git.url is required")
	}
	if c.Output.Directory == "" {
		return fmt.Errorf("output.directory is required")
	}
	if c.Source.Directory != "" {
		src, serr := filepath.Abs(c.Source.Directory)
		out, oerr := filepath.Abs(c.Output.Directory)
		if serr == nil && oerr == nil {
			if out == src {
				return fmt.Errorf("output.directory must differ from source.directory")
			}
			// An output inside the source tree would be re-walked on the next
			// build and keeps the daemon's watcher triggering itself.
			if strings.HasPrefix(out, src+string(filepath.Separator)) {
				return fmt.Errorf("output.directory must not be inside source.directory")
			}
		}
	}
	if _, err := c.Build.ToolTimeoutDuration(); err != nil {
		return err
	}
	for _, tr := range c.Transforms {
		if tr.Extension == "" {
			return fmt.Errorf("transform mapping without extension")
		}
		if _, ok := knownOperations[tr.Operation]; !ok {
			return fmt.Errorf("unknown operation %q for extension %s", tr.Operation, tr.Extension)
		}
	}
	for op := range c.Build.Tools {
		if _, ok := knownOperations[op]; !ok {
			return fmt.Errorf("tool override for unknown operation %q", op)
		}
	}
	for _, field := range []struct{ name, value string }{
		{"daemon.quiet_window", c.Daemon.QuietWindow},
		{"daemon.max_delay", c.Daemon.MaxDelay},
	} {
		if _, err := time.ParseDuration(field.value); err != nil {
			return fmt.Errorf("invalid %s %q: %w", field.name, field.value, err)
		}
	}
	if c.Events.Enabled && c.Events.URL == "" {
		return fmt.Errorf("events.url is required when events are enabled")
	}
	return nil
}

// Registry builds the extension registry: defaults first, then configured
// mappings (which may override defaults), then the docs mapping when docs
// rendering is enabled.
func (c *Config) Registry() *registry.Registry {
	specs := []registry.TransformSpec{
		{MatchExtension: ".py", DestinationExtension: ".pyc", Operation: registry.OpCompile},
		{MatchExtension: ".html", Operation: registry.OpMinifyMarkup},
		{MatchExtension: ".js", Operation: registry.OpMinifyScript},
		{MatchExtension: ".css", Operation: registry.OpMinifyStyle},
	}
	for _, tr := range c.Transforms {
		specs = append(specs, registry.TransformSpec{
			MatchExtension:       tr.Extension,
			DestinationExtension: tr.DestinationExtension,
			Operation:            knownOperations[tr.Operation],
		})
	}
	if c.Docs.Enabled {
		specs = append(specs, registry.TransformSpec{
			MatchExtension:       ".md",
			DestinationExtension: ".html",
			Operation:            registry.OpRenderDocs,
		})
	}
	return registry.New(specs...)
}
