// Package ui serves the pbilens web UI: an upload form, HTML views of every
// analysis, a JSON API and a server-sent event stream announcing new
// documents.
package ui

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/leapstack-labs/pbilens/internal/analysis"
	"github.com/leapstack-labs/pbilens/internal/state"
	"github.com/leapstack-labs/pbilens/internal/ui/notifier"
	"golang.org/x/sync/errgroup"
)

// DefaultMaxUploadBytes limits upload size when Config leaves it unset.
const DefaultMaxUploadBytes = 32 << 20

// watchDebounce is how long a watched file must stay quiet before ingest.
const watchDebounce = 100 * time.Millisecond

// Config holds configuration for the UI server.
type Config struct {
	Store          state.Store
	Cache          *analysis.Cache
	Port           int
	WatchDir       string
	SessionSecret  string
	MaxUploadBytes int64
	Logger         *slog.Logger
}

// Server is the UI server.
type Server struct {
	store    state.Store
	port     int
	watchDir string
	logger   *slog.Logger
	notifier *notifier.Notifier
	handlers *Handlers
}

// NewServer creates a UI server. An empty session secret is replaced with
// a random one, so flash cookies do not survive a restart.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Store == nil {
		return nil, errors.New("ui server requires a document store")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	cache := cfg.Cache
	if cache == nil {
		var err error
		if cache, err = analysis.NewCache(analysis.DefaultCacheSize, logger); err != nil {
			return nil, err
		}
	}
	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUploadBytes
	}
	secret := cfg.SessionSecret
	if secret == "" {
		secret = uuid.NewString()
		logger.Debug("no session secret configured, using a random one")
	}

	sessionStore := sessions.NewCookieStore([]byte(secret))
	sessionStore.MaxAge(3600)
	sessionStore.Options.Path = "/"
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.SameSite = http.SameSiteLaxMode

	notify := notifier.New()
	return &Server{
		store:    cfg.Store,
		port:     cfg.Port,
		watchDir: cfg.WatchDir,
		logger:   logger,
		notifier: notify,
		handlers: &Handlers{
			store:     cfg.Store,
			cache:     cache,
			sessions:  sessionStore,
			notifier:  notify,
			maxUpload: maxUpload,
			logger:    logger,
		},
	}, nil
}

// Notifier returns the server's notifier for SSE updates.
func (s *Server) Notifier() *notifier.Notifier {
	return s.notifier
}

// Handler returns the router with middleware and all routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.Logger,
		middleware.Recoverer,
		middleware.Compress(5),
	)
	SetupRoutes(r, s.handlers)
	return r
}

// Serve starts the UI server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("starting UI server", "addr", fmt.Sprintf("http://localhost:%d", s.port))

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.watchDir != "" {
		eg.Go(func() error {
			return s.watchFiles(egctx)
		})
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down UI server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// Ingest stores the file at path and notifies connected clients.
func (s *Server) Ingest(ctx context.Context, path string) error {
	content, err := os.ReadFile(path) //nolint:gosec // path comes from the watched directory
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	doc, err := analysis.NewDocument(filepath.Base(path), content)
	if err != nil {
		return err
	}
	if err := s.store.Save(ctx, doc); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}

	s.logger.Info("ingested watched file", "file", path, "kind", doc.Kind)
	s.notifier.Broadcast(notifier.Event{Kind: string(doc.Kind), Name: doc.Name})
	return nil
}

// watchFiles ingests report, model and dependency files written to the
// watch directory.
func (s *Server) watchFiles(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watchDirRecursive(watcher, s.watchDir); err != nil {
		s.logger.Error("failed to watch directory", "dir", s.watchDir, "error", err)
		// Don't fail - continue without watching
	}

	var (
		mu     sync.Mutex
		timers = make(map[string]*time.Timer)
	)
	defer func() {
		mu.Lock()
		for _, t := range timers {
			t.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 || !analysis.Allowed(event.Name) {
				continue
			}

			path := event.Name
			mu.Lock()
			if t, ok := timers[path]; ok {
				t.Stop()
			}
			timers[path] = time.AfterFunc(watchDebounce, func() {
				mu.Lock()
				delete(timers, path)
				mu.Unlock()
				if err := s.Ingest(ctx, path); err != nil {
					s.logger.Error("failed to ingest watched file", "file", path, "error", err)
				}
			})
			mu.Unlock()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher error", "error", err)
		}
	}
}

// watchDirRecursive adds a directory and all subdirectories to the watcher.
func watchDirRecursive(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}
