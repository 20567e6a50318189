package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultProcessName   = "windsurf"
	defaultAPIPath       = "/exa.language_server_pb.LanguageServerService/GetUserStatus"
	defaultProbeTimeout  = 5 * time.Second
	defaultWatchInterval = 10 * time.Minute
)

// Config holds the CLI configuration
type Config struct {
	// ProcessName is the case-insensitive substring used to find the
	// language server process.
	ProcessName string `yaml:"process_name"`

	// APIPath is the local user-status endpoint path.
	APIPath string `yaml:"api_path"`

	// ProbeTimeout is the per-port probe timeout, as a duration string.
	ProbeTimeout string `yaml:"probe_timeout"`

	// WatchInterval is how often watch mode polls, as a duration string.
	WatchInterval string `yaml:"watch_interval"`

	// HistoryPath is the snapshot database location. Empty means
	// ~/.surfstat.db.
	HistoryPath string `yaml:"history_path"`

	// Request metadata sent to the language server.
	IDEName       string `yaml:"ide_name"`
	ExtensionName string `yaml:"extension_name"`
	IDEVersion    string `yaml:"ide_version"`
}

// configPath returns the path to the config file
func configPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".surfstat.yaml"), nil
}

// Load loads the configuration from disk, filling in defaults for any
// missing fields
func Load() (*Config, error) {
	path, err := configPath()
	if err != nil {
		return nil, err
	}

	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Save saves the configuration to disk
func Save(cfg *Config) error {
	path, err := configPath()
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

func (c *Config) applyDefaults() {
	if c.ProcessName == "" {
		c.ProcessName = defaultProcessName
	}
	if c.APIPath == "" {
		c.APIPath = defaultAPIPath
	}
	if c.IDEName == "" {
		c.IDEName = "windsurf"
	}
	if c.ExtensionName == "" {
		c.ExtensionName = "windsurf"
	}
	if c.IDEVersion == "" {
		c.IDEVersion = "1.0.0"
	}
}

// Timeout returns the per-port probe timeout.
func (c *Config) Timeout() time.Duration {
	if d, err := time.ParseDuration(c.ProbeTimeout); err == nil && d > 0 {
		return d
	}
	return defaultProbeTimeout
}

// Interval returns the watch mode polling interval.
func (c *Config) Interval() time.Duration {
	if d, err := time.ParseDuration(c.WatchInterval); err == nil && d > 0 {
		return d
	}
	return defaultWatchInterval
}

// HistoryDBPath returns the snapshot database path.
func (c *Config) HistoryDBPath() (string, error) {
	if c.HistoryPath != "" {
		return c.HistoryPath, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".surfstat.db"), nil
}
