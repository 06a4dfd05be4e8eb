package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"receiptd/internal/config"
	"receiptd/internal/infra/db"
	httpinfra "receiptd/internal/infra/http"
	"receiptd/internal/infra/keys"
	"receiptd/internal/infra/ratelimit"
	"receiptd/internal/logging"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logging.New(cfg, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("receiptd exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	metrics := httpinfra.NewMetrics()

	source, err := keys.NewSourceFromConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("key source: %w", err)
	}
	manager := keys.NewManager(source,
		keys.WithIssuer(cfg.ReceiptIssuer),
		keys.WithLogger(log),
		keys.WithFailureHook(metrics.KeyLoadFailed),
	)
	// Fail fast on a broken key source instead of answering 503 forever.
	if _, err := manager.Material(ctx); err != nil {
		return err
	}

	store, err := db.NewStore(cfg, log)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer store.Close()

	limiter, err := ratelimit.NewFromConfig(cfg, log)
	if err != nil {
		return fmt.Errorf("init rate limiter: %w", err)
	}
	if closer, ok := limiter.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	server, err := httpinfra.NewServer(cfg, store, manager, limiter, metrics, log)
	if err != nil {
		return fmt.Errorf("init server: %w", err)
	}
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("receiptd listening", "addr", cfg.HTTPAddr, "signing", cfg.SigningMode, "key_source", source.String())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("receiptd shutting down")
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
