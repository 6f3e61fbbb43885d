// Command recoveryd serves the interview recovery endpoint: it accepts
// saved transcripts from crashed sessions and turns them into feedback.
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

	"github.com/voxprep/voxprep/internal/config"
	"github.com/voxprep/voxprep/internal/telemetry"
	"github.com/voxprep/voxprep/pkg/feedback"
	"github.com/voxprep/voxprep/pkg/recovery"
)

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "recoveryd:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := telemetry.InitLogger(telemetry.LogOptions{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if cfg.Feedback.APIKey == "" {
		return errors.New("GEMINI_API_KEY is required")
	}

	assessments, err := feedback.OpenSQLite(cfg.Feedback.StorePath)
	if err != nil {
		return fmt.Errorf("open assessment store: %w", err)
	}
	defer assessments.Close()

	opts := []feedback.GeminiOption{feedback.WithLogger(logger)}
	if cfg.Feedback.Model != "" {
		opts = append(opts, feedback.WithModel(cfg.Feedback.Model))
	}
	svc, err := feedback.NewGemini(ctx, cfg.Feedback.APIKey, assessments, opts...)
	if err != nil {
		return fmt.Errorf("init feedback service: %w", err)
	}

	server := recovery.NewServer(svc, logger)
	httpSrv := &http.Server{
		Addr:              cfg.Recovery.Listen,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("starting recovery server", "addr", cfg.Recovery.Listen)

	listenErrCh := make(chan error, 1)
	go func() {
		err := httpSrv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErrCh <- err
			return
		}
		listenErrCh <- nil
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-listenErrCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
