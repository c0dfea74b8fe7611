// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/folio/internal/api"
	"github.com/starford/folio/internal/assets"
	"github.com/starford/folio/internal/docservice"
	"github.com/starford/folio/internal/editor"
	"github.com/starford/folio/internal/htmlcodec"
	"github.com/starford/folio/internal/index"
	"github.com/starford/folio/internal/mcpserver"
	"github.com/starford/folio/internal/session"
	"github.com/starford/folio/internal/sse"
	"github.com/starford/folio/internal/storage"
)

// library bundles the storage-backed services shared by serve and mcp.
type library struct {
	store  *storage.FS
	db     *index.DB
	codec  *htmlcodec.Codec
	docs   *docservice.Service
	assets *assets.Store
}

func (l *library) Close() error { return l.db.Close() }

func setup(opts []Option) (*Config, *slog.Logger, error) {
	app := &application{logOut: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, nil, fmt.Errorf("config is required")
	}

	logger := slog.New(slog.NewJSONHandler(app.logOut, &slog.HandlerOptions{
		Level: app.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return app.config, logger, nil
}

// newCodec returns the HTML codec configured by the bridge section.
func newCodec(cfg *Config, logger *slog.Logger) *htmlcodec.Codec {
	return htmlcodec.New(
		htmlcodec.WithLogger(logger.With(slog.String("component", "htmlcodec"))),
		htmlcodec.WithSanitize(cfg.Bridge.SanitizePaste),
		htmlcodec.WithMinify(cfg.Bridge.MinifyHTML),
	)
}

func openLibrary(cfg *Config, logger *slog.Logger) (*library, error) {
	if err := os.MkdirAll(cfg.Documents.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create documents dir: %w", err)
	}
	store, err := storage.NewFS(cfg.Documents.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}
	if err := index.Sync(db, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	codec := newCodec(cfg, logger)
	return &library{
		store:  store,
		db:     db,
		codec:  codec,
		docs:   docservice.NewService(store, db, docservice.NewConverter(codec)),
		assets: assets.NewStore(store),
	}, nil
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	cfg, logger, err := setup(opts)
	if err != nil {
		return err
	}

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("documents_path", cfg.Documents.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	lib, err := openLibrary(cfg, logger)
	if err != nil {
		return err
	}
	defer lib.Close()

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	sessions := session.NewStore(
		session.WithLogger(logger),
		session.WithTTL(cfg.Editor.SessionTTL),
		session.WithEditorOptions(
			editor.WithMaxImages(cfg.Editor.MaxImages),
			editor.WithCaptions(cfg.Editor.CaptionsEnabled),
			editor.WithHistoryLimit(cfg.Editor.HistoryLimit),
			editor.WithCodec(lib.codec),
		),
	)
	defer sessions.Shutdown()

	h := api.NewHandler(lib.docs, sessions, lib.assets)
	apiRouter := api.NewRouter(h, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := lib.db.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Image assets are public so exported HTML can reference them.
	r.Get(assets.URLPrefix+"{name}", h.ServeAsset)

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := index.Watch(gCtx, lib.db, lib.store, cfg.Documents.Path, logger, broker.PublishDocumentEvent)
		if err != nil {
			logger.Error("watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools over stdio. Logs go to the configured log
// output, which must not be stdout.
func RunMCP(_ context.Context, opts ...Option) error {
	cfg, logger, err := setup(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	lib, err := openLibrary(cfg, logger)
	if err != nil {
		return err
	}
	defer lib.Close()

	logger.Info("MCP server starting", slog.String("documents_path", cfg.Documents.Path))
	return mcpserver.New(lib.docs, lib.assets).ServeStdio()
}

// Convert reads a document in format from and writes it in format to.
func Convert(cfg *Config, in io.Reader, out io.Writer, from, to string) error {
	data, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("convert: read: %w", err)
	}
	conv := docservice.NewConverter(newCodec(cfg, slog.Default()))
	res, err := conv.Convert(data, from, to)
	if err != nil {
		return fmt.Errorf("convert: %w", err)
	}
	_, err = out.Write(res)
	return err
}
