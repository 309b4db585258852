package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/pbilens/internal/cli/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInitCommand(t *testing.T) {
	tests := []struct {
		name     string
		setupDir func(t *testing.T, dir string)
		args     []string
		wantErr  string
	}{
		{
			name: "init empty directory",
			args: []string{},
		},
		{
			name: "init existing config without force",
			setupDir: func(t *testing.T, dir string) {
				require.NoError(t, os.WriteFile(filepath.Join(dir, "pbilens.yaml"), []byte("existing"), 0o600))
			},
			args:    []string{},
			wantErr: "already exists",
		},
		{
			name: "init existing config with force",
			setupDir: func(t *testing.T, dir string) {
				require.NoError(t, os.WriteFile(filepath.Join(dir, "pbilens.yaml"), []byte("existing"), 0o600))
			},
			args: []string{"--force"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			t.Chdir(tmpDir)
			config.ResetConfig()
			t.Cleanup(config.ResetConfig)

			if tt.setupDir != nil {
				tt.setupDir(t, tmpDir)
			}

			_, err := execute(t, NewInitCommand(), tt.args...)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)

			content, err := os.ReadFile(filepath.Join(tmpDir, "pbilens.yaml"))
			require.NoError(t, err)
			assert.Contains(t, string(content), "# pbilens configuration.")
			assert.Contains(t, string(content), "state_path:")
		})
	}
}

func TestInit_ConfigLoadsBack(t *testing.T) {
	tmpDir := t.TempDir()
	t.Chdir(tmpDir)
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)

	_, err := execute(t, NewInitCommand(), "project", "--watch-dir", "exports")
	require.NoError(t, err)

	cfgPath := filepath.Join(tmpDir, "project", "pbilens.yaml")
	require.FileExists(t, cfgPath)

	cfg, err := config.LoadConfig(cfgPath, nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tmpDir, "project", "exports"), cfg.UI.WatchDir)
	assert.Equal(t, config.Default().UI.Port, cfg.UI.Port)
}

func TestInitCommand_Flags(t *testing.T) {
	cmd := NewInitCommand()

	assert.NotNil(t, cmd.Flags().Lookup("force"), "--force flag should exist")
	assert.NotNil(t, cmd.Flags().Lookup("watch-dir"), "--watch-dir flag should exist")
}
