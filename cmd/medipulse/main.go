package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/joho/godotenv"

	"github.com/wolfman30/medipulse/cmd/mainconfig"
	"github.com/wolfman30/medipulse/internal/app/bootstrap"
	"github.com/wolfman30/medipulse/internal/cli"
	appconfig "github.com/wolfman30/medipulse/internal/config"
	"github.com/wolfman30/medipulse/internal/credential"
	"github.com/wolfman30/medipulse/internal/localstate"
	"github.com/wolfman30/medipulse/pkg/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load()
	cfg := appconfig.Load()
	logger := logging.NewWithWriter(cliLogLevel(cfg.LogLevel), os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	creds, err := credential.Open(filepath.Dir(absPath(cfg.LocalCachePath)))
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	cache, err := localstate.OpenSQLiteCache(cfg.LocalCachePath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	defer cache.Close()

	loadAWS := func(ctx context.Context) (aws.Config, error) { return mainconfig.LoadAWSConfig(ctx, cfg) }

	return cli.Run(ctx, cli.Env{
		Config: cfg,
		Creds:  creds,
		Cache:  cache,
		Email:  bootstrap.BuildEmailSender(ctx, cfg, loadAWS, logger),
		Logger: logger,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}, os.Args[1:])
}

// cliLogLevel keeps routine info logs off the terminal unless asked for.
func cliLogLevel(level string) string {
	if os.Getenv("LOG_LEVEL") == "" {
		return "warn"
	}
	return level
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
