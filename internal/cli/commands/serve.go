package commands

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/leapstack-labs/pbilens/internal/analysis"
	"github.com/leapstack-labs/pbilens/internal/ui"
	"github.com/spf13/cobra"
)

// ServeOptions holds options for the serve command.
type ServeOptions struct {
	Port      int
	WatchDir  string
	NoBrowser bool
}

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the pbilens web UI",
		Long: `Start a local web server with an upload form and views of the latest
uploaded documents:

- Visual table with the fields of every visual and filter
- Measure lineage
- DAX expressions
- Power Query source explorer
- Unused measures

With a watch directory, report, model and dependency files written there
are stored automatically and open pages show a reload banner.`,
		Example: `  # Start UI on default port
  pbilens serve

  # Start on custom port and pick up exports from a folder
  pbilens serve --port 3000 --watch-dir ./exports`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Port, "port", 0, "Port to serve on (default: ui.port)")
	cmd.Flags().StringVar(&opts.WatchDir, "watch-dir", "", "Directory to watch for new files (default: ui.watch_dir)")
	cmd.Flags().BoolVar(&opts.NoBrowser, "no-browser", false, "Don't auto-open browser")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	cmdCtx := NewCommandContext(cmd)
	cfg := cmdCtx.Cfg
	r := cmdCtx.Renderer

	// CLI flags override config file
	port := cfg.UI.Port
	if opts.Port != 0 {
		port = opts.Port
	}
	watchDir := cfg.UI.WatchDir
	if opts.WatchDir != "" {
		watchDir = opts.WatchDir
	}
	if watchDir != "" {
		if info, err := os.Stat(watchDir); err != nil || !info.IsDir() {
			return fmt.Errorf("watch directory does not exist: %s", watchDir)
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := cmdCtx.OpenStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	cache, err := analysis.NewCache(cfg.CacheSize, cmdCtx.Logger)
	if err != nil {
		return err
	}

	server, err := ui.NewServer(ui.Config{
		Store:          store,
		Cache:          cache,
		Port:           port,
		WatchDir:       watchDir,
		SessionSecret:  cfg.UI.SessionSecret,
		MaxUploadBytes: cfg.UI.MaxUploadBytes(),
		Logger:         cmdCtx.Logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create UI server: %w", err)
	}

	url := fmt.Sprintf("http://localhost:%d", port)
	if !opts.NoBrowser {
		go openBrowser(ctx, url)
	}

	r.Printf("Starting UI server on %s\n", url)
	if watchDir != "" {
		r.Printf("Watching %s for new files\n", watchDir)
	}
	r.Println("Press Ctrl+C to stop")

	return server.Serve(ctx)
}

// openBrowser opens the default browser to the specified URL.
func openBrowser(ctx context.Context, url string) {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.CommandContext(ctx, "open", url)
	case "linux":
		cmd = exec.CommandContext(ctx, "xdg-open", url)
	case "windows":
		cmd = exec.CommandContext(ctx, "rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return
	}

	_ = cmd.Start()
}
