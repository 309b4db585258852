// Package config holds the configuration defaults shared by the CLI and the
// web UI.
package config

// Default configuration values.
const (
	DefaultStatePath   = ".pbilens/state.db"
	DefaultOutput      = "auto" // TTY=text, non-TTY=markdown
	DefaultCacheSize   = 16
	DefaultUIPort      = 8765
	DefaultMaxUploadMB = 32
)

// Defaults returns the default value of every configuration key.
func Defaults() map[string]any {
	return map[string]any{
		"state_path":        DefaultStatePath,
		"database_url":      "",
		"verbose":           false,
		"output":            DefaultOutput,
		"cache_size":        DefaultCacheSize,
		"ui.port":           DefaultUIPort,
		"ui.watch_dir":      "",
		"ui.session_secret": "",
		"ui.max_upload_mb":  DefaultMaxUploadMB,
	}
}
