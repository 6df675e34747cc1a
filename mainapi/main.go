package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/getvaultapp/vault-verify/pkg/api"
	"github.com/getvaultapp/vault-verify/pkg/config"
	"github.com/getvaultapp/vault-verify/pkg/utils"
	"go.uber.org/zap"
)

// Runs only the form server. The config file path may be given with VERIFY_CONFIG.
func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.LoadConfig(os.Getenv("VERIFY_CONFIG"))
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	cleanup := utils.InitTracer("vault-verify", cfg.Tracing)
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := api.Serve(ctx, cfg, logger); err != nil {
		logger.Error("form server stopped", zap.Error(err))
		os.Exit(1)
	}
}
