package verify_cli

import (
	"os/signal"
	"syscall"

	"github.com/getvaultapp/vault-verify/pkg/api"
	"github.com/getvaultapp/vault-verify/pkg/config"
	"github.com/getvaultapp/vault-verify/pkg/utils"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

// ServeCommand runs the form server until SIGINT or SIGTERM
func ServeCommand(c *cli.Context, logger *zap.Logger) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return err
	}

	cleanup := utils.InitTracer("vault-verify", cfg.Tracing)
	defer cleanup()

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return api.Serve(ctx, cfg, logger)
}
