// cmd/main.go is the web frontend entry point.
// It loads configuration, wires the frontend to the events API and serves
// it until interrupted.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"github.com/Shivanand-hulikatti/eventhub/internal/auth"
	"github.com/Shivanand-hulikatti/eventhub/internal/config"
	"github.com/Shivanand-hulikatti/eventhub/internal/log"
	"github.com/Shivanand-hulikatti/eventhub/internal/web"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	envFile := flag.String("env", ".env", "path to a .env file")
	flag.Parse()

	if err := run(*configPath, *envFile); err != nil {
		fmt.Fprintln(os.Stderr, "eventhub:", err)
		os.Exit(1)
	}
}

func run(configPath, envFile string) error {
	// ── 1. Configuration and logging ─────────────────────────────────────
	cfg, err := config.Load(configPath, envFile)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger := log.New(log.Options{Level: cfg.Log.Level, File: cfg.Log.File})
	defer logger.Sync()

	// ── 2. Wire up layers ────────────────────────────────────────────────
	authn, err := auth.NewDemoAuthenticator(cfg.Auth.SigningKey, cfg.Auth.TokenTTL, bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("authenticator: %w", err)
	}
	frontend, err := web.New(cfg, authn, logger)
	if err != nil {
		return fmt.Errorf("web: %w", err)
	}

	srv := &http.Server{
		Addr:         cfg.Listen,
		Handler:      frontend.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// ── 3. Run until SIGINT or SIGTERM ───────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("listening", "addr", cfg.Listen, "api", cfg.API.BaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return frontend.Sweep(ctx, time.Minute)
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
