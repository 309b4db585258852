package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/pbilens/internal/analysis"
	"github.com/leapstack-labs/pbilens/internal/cli/config"
	"github.com/leapstack-labs/pbilens/internal/cli/output"
	"github.com/leapstack-labs/pbilens/internal/state"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext for cmd.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	mode := output.Mode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// getConfig returns the current configuration, or the defaults when no
// configuration was loaded.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return config.Default()
}

// OpenStore opens the configured document store.
func (c *CommandContext) OpenStore(ctx context.Context) (state.Store, error) {
	store, err := state.Open(ctx, state.Options{
		Path:        c.Cfg.StatePath,
		DatabaseURL: c.Cfg.DatabaseURL,
	}, c.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open document store: %w", err)
	}
	return store, nil
}

// ReadDocument reads a document file and detects its kind.
func ReadDocument(path string) (*state.Document, error) {
	content, err := os.ReadFile(path) //nolint:gosec // path is a user supplied CLI argument
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	doc, err := analysis.NewDocument(filepath.Base(path), content)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return doc, nil
}

// LoadSession builds an analysis session from the given files. Without
// files it uses the latest stored document of every kind.
func (c *CommandContext) LoadSession(ctx context.Context, paths ...string) (*analysis.Session, error) {
	var docs []*state.Document
	for _, path := range paths {
		if path == "" {
			continue
		}
		doc, err := ReadDocument(path)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	if len(docs) == 0 {
		store, err := c.OpenStore(ctx)
		if err != nil {
			return nil, err
		}
		defer func() { _ = store.Close() }()

		docs, err = analysis.LoadLatest(ctx, store)
		if err != nil {
			return nil, fmt.Errorf("failed to load stored documents: %w", err)
		}
	}

	for _, doc := range docs {
		c.Logger.Debug("loaded document", "name", doc.Name, "kind", doc.Kind, "fingerprint", doc.Fingerprint)
	}
	return analysis.NewSession(c.Logger, docs...), nil
}

// requireAny returns an error unless s holds a document of one of kinds.
func requireAny(s *analysis.Session, kinds ...state.Kind) error {
	names := make([]string, 0, len(kinds))
	for _, k := range kinds {
		if s.Has(k) {
			return nil
		}
		names = append(names, string(k))
	}
	return fmt.Errorf("no %s document: pass a file or run 'pbilens upload' first", strings.Join(names, " or "))
}
