package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/brunobiangulo/goextract"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (JSON or TOML)")
	addr := flag.String("addr", ":8080", "Listen address")
	uploadDir := flag.String("uploads", filepath.Join(os.TempDir(), "goextract-uploads"), "Directory for uploaded files")
	maxRuns := flag.Int("max-runs", 100, "Number of finished runs kept in memory")
	flag.Parse()

	// Structured JSON logging.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	cfg, err := goextract.LoadConfigFile(*configPath)
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}
	cfg.ApplyEnv(os.Getenv)

	apiKey := os.Getenv("GOEXTRACT_API_KEY")
	corsOrigins := os.Getenv("GOEXTRACT_CORS_ORIGINS")

	if err := os.MkdirAll(*uploadDir, 0o755); err != nil {
		slog.Error("creating upload directory", "dir", *uploadDir, "error", err)
		os.Exit(1)
	}

	engine, err := goextract.New(cfg)
	if err != nil {
		slog.Error("creating engine", "error", err)
		os.Exit(1)
	}
	defer engine.Close()

	h := newHandler(engine, *uploadDir, newRunRegistry(*maxRuns))

	var handler http.Handler = h.routes()
	handler = logMiddleware(handler)
	handler = authMiddleware(apiKey, handler)
	handler = corsMiddleware(corsOrigins, handler)
	handler = recoveryMiddleware(handler)

	srv := &http.Server{
		Addr:         *addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // extraction runs can be long
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown on SIGTERM/SIGINT.
	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", *addr, "uploads", *uploadDir)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("server stopped")
}
