package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wolfman30/medipulse/cmd/mainconfig"
	"github.com/wolfman30/medipulse/internal/app/bootstrap"
	appconfig "github.com/wolfman30/medipulse/internal/config"
	"github.com/wolfman30/medipulse/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting medipulse API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"storage", cfg.StorageBackend,
	)
	if err := cfg.ValidateServer(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	built, err := bootstrap.BuildServer(ctx, cfg, awsLoader(cfg), logger, bootstrap.ServerOptions{
		Registerer: prometheus.DefaultRegisterer,
		Gatherer:   prometheus.DefaultGatherer,
		Realtime:   cfg.RealtimeEnabled,
	})
	if err != nil {
		logger.Error("failed to build server", "error", err)
		os.Exit(1)
	}

	// WriteTimeout stays zero: the websocket feed holds connections open.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           built.Handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if built.Hub != nil {
		built.Hub.Close()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	if err := built.Close(); err != nil {
		logger.Error("failed to release resources", "error", err)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// awsLoader defers AWS configuration until a component asks for it, so a
// file-backed server with no chat never touches the SDK.
func awsLoader(cfg *appconfig.Config) bootstrap.AWSLoader {
	var (
		loaded *aws.Config
		err    error
	)
	return func(ctx context.Context) (aws.Config, error) {
		if loaded == nil && err == nil {
			var c aws.Config
			c, err = mainconfig.LoadAWSConfig(ctx, cfg)
			if err == nil {
				loaded = &c
			}
		}
		if err != nil {
			return aws.Config{}, err
		}
		return *loaded, nil
	}
}
