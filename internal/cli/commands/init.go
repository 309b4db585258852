package commands

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/pbilens/internal/cli/config"
	intconfig "github.com/leapstack-labs/pbilens/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const configHeader = `# pbilens configuration.
# Every key can be overridden with a PBILENS_ environment variable
# (PBILENS_UI__PORT for ui.port) or a command-line flag.
`

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var (
		force    bool
		watchDir string
	)

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Write a default pbilens.yaml",
		Long: `Write a pbilens.yaml configuration file with the default settings.

Relative paths in the file are resolved against the directory holding it.`,
		Example: `  # Initialize in current directory
  pbilens init

  # Watch an export folder when serving the UI
  pbilens init --watch-dir exports

  # Force overwrite existing config
  pbilens init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			return runInit(cmd, dir, watchDir, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")
	cmd.Flags().StringVar(&watchDir, "watch-dir", "", "Directory the UI server watches for new exports")

	return cmd
}

func runInit(cmd *cobra.Command, dir, watchDir string, force bool) error {
	r := NewCommandContext(cmd).Renderer

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	configPath := filepath.Join(dir, intconfig.ConfigFileName)
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", intconfig.ConfigFileName)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to check %s: %w", configPath, err)
	}

	cfg := config.Default()
	cfg.UI.WatchDir = watchDir

	content, err := renderConfig(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(configPath, content, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", configPath, err)
	}

	r.StatusLine(configPath, "success", "")
	r.Success("pbilens project initialized!")
	r.Println("")
	r.Println("Next steps:")
	r.Println("  pbilens upload Layout.json Model.bim")
	r.Println("  pbilens serve")
	return nil
}

// renderConfig returns cfg as commented YAML.
func renderConfig(cfg *config.Config) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(configHeader)

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("failed to render config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to render config: %w", err)
	}
	return buf.Bytes(), nil
}
