// feedserver serves the simulated stock feed over WebSocket.
// Usage: go run ./cmd/feedserver --config configs/feedserver.yaml
//
// Without a config file every default applies: the feed listens on :8080 at
// /ws/stocks and /ws, with /health and /metrics alongside.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rickgao/stockfeed/internal/config"
	"github.com/rickgao/stockfeed/internal/database"
	"github.com/rickgao/stockfeed/internal/journal"
	"github.com/rickgao/stockfeed/internal/logging"
	"github.com/rickgao/stockfeed/internal/metrics"
	"github.com/rickgao/stockfeed/internal/quote"
	"github.com/rickgao/stockfeed/internal/stream"
	"github.com/rickgao/stockfeed/internal/version"
)

func main() {
	configPath := flag.String("config", "", "path to config file (empty = defaults)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log, os.Stdout)
	if err != nil {
		slog.Error("failed to create logger", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	logger.Info("starting feedserver", append(version.Attrs(), "config", *configPath)...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Optional session journal
	var (
		recorder journal.Recorder = journal.Nop{}
		writer   *journal.Writer
		db       pinger
	)
	if cfg.Journal.Enabled {
		logger.Info("connecting to database",
			"host", cfg.Database.Host,
			"port", cfg.Database.Port,
			"database", cfg.Database.Name,
		)
		pool, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		if err := database.EnsureSchema(ctx, pool, cfg.Journal.Table); err != nil {
			logger.Error("failed to prepare journal table", "error", err)
			os.Exit(1)
		}

		writer = journal.NewWriter(cfg.Journal.Build(), pool, logger.With("component", "journal"))
		// Outlives the signal so close events from the session shutdown are flushed.
		if err := writer.Start(context.WithoutCancel(ctx)); err != nil {
			logger.Error("failed to start journal", "error", err)
			os.Exit(1)
		}
		recorder = writer
		db = pool
		logger.Info("journal enabled", "table", cfg.Journal.Table)
	}

	source := cfg.Source.NewSource(logger.With("component", "source", "kind", cfg.Source.Kind))
	feed := stream.NewServer(cfg.StreamConfig(), source, recorder, logger.With("component", "stream"))

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           newMux(cfg, feed, source, writer, db),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening",
			"addr", cfg.Server.Addr,
			"path", cfg.Server.Path,
			"alias_path", cfg.Server.AliasPath,
			"chaos_disabled", cfg.Chaos.Disabled,
		)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Hijacked WebSocket connections are not tracked by http.Server.
	if err := feed.Shutdown(shutdownCtx); err != nil {
		logger.Warn("sessions did not close in time", "error", err)
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	if writer != nil {
		if err := writer.Stop(shutdownCtx); err != nil {
			logger.Warn("journal stop", "error", err)
		}
		stats := writer.Stats()
		logger.Info("journal flushed",
			"written", stats.Written,
			"dropped", stats.Dropped,
			"failed", stats.Failed,
		)
	}

	logger.Info("feedserver stopped")
}

func loadConfig(path string) (*config.FeedConfig, error) {
	if path == "" {
		cfg := config.Default()
		return cfg, cfg.Validate()
	}
	return config.LoadAndValidate(path)
}

type pinger interface {
	Ping(ctx context.Context) error
}

// newMux routes health, metrics and the quote API explicitly and everything
// else to the stream server, which rejects unknown paths itself.
func newMux(cfg *config.FeedConfig, feed *stream.Server, source quote.Source, writer *journal.Writer, db pinger) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /api/stocks/{symbol}", quote.Handler(source, slog.Default()))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := struct {
			Status     string                 `json:"status"`
			Version    string                 `json:"version"`
			Components map[string]interface{} `json:"components"`
		}{
			Status:     "healthy",
			Version:    version.String(),
			Components: make(map[string]interface{}),
		}

		health.Components["stream"] = map[string]interface{}{
			"sessions": feed.ActiveSessions(),
		}

		if db != nil {
			if err := db.Ping(ctx); err != nil {
				health.Status = "degraded"
				health.Components["journal_db"] = map[string]string{
					"status": "disconnected",
					"error":  err.Error(),
				}
			} else {
				health.Components["journal_db"] = "connected"
			}
		}
		if writer != nil {
			health.Components["journal"] = writer.Stats()
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(health)
	})

	if cfg.Metrics.IsEnabled() {
		mux.Handle(cfg.Metrics.Path, metrics.Handler())
	}

	mux.Handle("/", feed)

	return mux
}
