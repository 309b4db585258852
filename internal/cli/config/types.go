// Package config loads pbilens CLI configuration from defaults, a
// pbilens.yaml file, PBILENS_* environment variables and command-line flags.
package config

import (
	intconfig "github.com/leapstack-labs/pbilens/internal/config"
)

// UIConfig holds configuration for the web UI server.
type UIConfig struct {
	Port          int    `koanf:"port" yaml:"port"`
	WatchDir      string `koanf:"watch_dir" yaml:"watch_dir"`
	SessionSecret string `koanf:"session_secret" yaml:"session_secret"`
	MaxUploadMB   int    `koanf:"max_upload_mb" yaml:"max_upload_mb"`
}

// Config holds all CLI configuration options.
type Config struct {
	StatePath    string   `koanf:"state_path" yaml:"state_path"`
	DatabaseURL  string   `koanf:"database_url" yaml:"database_url,omitempty"`
	Verbose      bool     `koanf:"verbose" yaml:"verbose"`
	OutputFormat string   `koanf:"output" yaml:"output"`
	CacheSize    int      `koanf:"cache_size" yaml:"cache_size"`
	UI           UIConfig `koanf:"ui" yaml:"ui"`

	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string `koanf:"-" yaml:"-"`
}

// Default configuration values - uses shared defaults from internal/config
const (
	DefaultStatePath = intconfig.DefaultStatePath
	DefaultOutput    = intconfig.DefaultOutput
)

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		StatePath:    DefaultStatePath,
		OutputFormat: DefaultOutput,
		CacheSize:    intconfig.DefaultCacheSize,
		UI: UIConfig{
			Port:        intconfig.DefaultUIPort,
			MaxUploadMB: intconfig.DefaultMaxUploadMB,
		},
	}
}

// MaxUploadBytes returns the upload size limit in bytes.
func (u UIConfig) MaxUploadBytes() int64 {
	mb := u.MaxUploadMB
	if mb <= 0 {
		mb = intconfig.DefaultMaxUploadMB
	}
	return int64(mb) << 20
}
