package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/getvaultapp/vault-verify/pkg/backend"
	"github.com/getvaultapp/vault-verify/pkg/config"
	"github.com/getvaultapp/vault-verify/pkg/receipts"
	"github.com/getvaultapp/vault-verify/pkg/staging"
	"github.com/getvaultapp/vault-verify/pkg/utils"
	"go.uber.org/zap"
)

const (
	sweepInterval   = time.Minute
	shutdownTimeout = 10 * time.Second
)

// Serve runs the form server until ctx is done
func Serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	client, err := backend.NewClient(cfg.BackendURL, cfg.RequestTimeout, logger)
	if err != nil {
		return err
	}

	area := staging.NewArea(cfg.StagingTTL, cfg.MaxUploadBytes, logger)
	go area.Run(ctx, sweepInterval)

	var store *receipts.Store
	if cfg.ReceiptsDB != "" {
		store, err = receipts.Open(cfg.ReceiptsDB, logger)
		if err != nil {
			return fmt.Errorf("failed to open receipts: %w", err)
		}
		defer store.Close()
	}

	srv := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           SetupRouter(cfg, client, area, store, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if cfg.TLSEnabled() {
		tlsConfig, err := utils.LoadTLSConfig(cfg.TLSCert, cfg.TLSKey, cfg.TLSCA, false)
		if err != nil {
			return err
		}
		srv.TLSConfig = tlsConfig
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting form server",
			zap.String("address", cfg.ServerAddress),
			zap.String("backend", client.BaseURL()),
			zap.Bool("tls", cfg.TLSEnabled()))
		if cfg.TLSEnabled() {
			errCh <- srv.ListenAndServeTLS("", "")
		} else {
			errCh <- srv.ListenAndServe()
		}
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("form server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	logger.Info("Shutting down form server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down form server: %w", err)
	}
	return nil
}
