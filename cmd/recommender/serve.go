package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	chiTransport "github.com/kailas-cloud/recommender/internal/transport/chi"
	healthuc "github.com/kailas-cloud/recommender/internal/usecase/health"
	"github.com/kailas-cloud/recommender/internal/version"
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and web form",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApplication(flags, true)
			if err != nil {
				return err
			}
			defer a.Close()
			return serve(cmd.Context(), a)
		},
	}
}

func serve(ctx context.Context, a *application) error {
	cfg := a.cfg
	logger := a.logger

	logger.Info("Starting recommender API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", a.env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.String("embedding_model", cfg.Embedding.Model),
		zap.String("index_artifact", cfg.Index.Artifact),
	)

	p, err := a.recommender(ctx)
	if err != nil {
		return err
	}

	if cfg.Index.EagerLoad {
		if err := p.resources.Warm(ctx); err != nil {
			return fmt.Errorf("eager index load: %w", err)
		}
	}

	var cache healthuc.CachePinger
	if a.store != nil {
		cache = a.store
	}
	healthSvc := healthuc.New(p.resources, cache, embeddingHealthChecker{embedder: p.embedder}, cfg.Index.EagerLoad)

	server := chiTransport.NewServer(p.recommend, healthSvc, chiTransport.UIConfig{}, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      chiTransport.NewRouter(server, cfg.Auth.APIKeys, logger),
		ReadTimeout:  secondsOf(cfg.HTTP.ReadTimeoutSec),
		WriteTimeout: secondsOf(cfg.HTTP.WriteTimeoutSec),
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-quit:
		logger.Info("Received shutdown signal")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), secondsOf(cfg.HTTP.ShutdownSec))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
	return nil
}
