package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Init creates a new configuration file with example content.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	clean := true
	example := Config{
		Project: ProjectConfig{Name: "myservice"},
		Source: SourceConfig{
			Directory: "./src",
			AssetsDir: "assets",
		},
		Output: OutputConfig{
			Directory: "./dist",
			Clean:     &clean,
		},
		Build: BuildConfig{
			Concurrency: 4,
			ToolTimeout: "30s",
		},
		Docs: DocsConfig{Enabled: false},
		Daemon: DaemonConfig{
			Listen:      ":9120",
			QuietWindow: "2s",
			MaxDelay:    "30s",
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}

	data, err := yaml.Marshal(&example)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
