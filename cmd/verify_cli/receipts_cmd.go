package verify_cli

import (
	"errors"
	"fmt"

	"github.com/getvaultapp/vault-verify/pkg/config"
	"github.com/getvaultapp/vault-verify/pkg/receipts"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// ReceiptsCommand lists local receipts as YAML, or prints their digest
func ReceiptsCommand(c *cli.Context, logger *zap.Logger) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return err
	}
	if cfg.ReceiptsDB == "" {
		return cli.Exit("receipts are disabled (receipts_db is empty)", 1)
	}

	store, err := receipts.Open(cfg.ReceiptsDB, logger)
	if err != nil {
		return fmt.Errorf("failed to open receipts: %w", err)
	}
	defer store.Close()

	if c.Bool("digest") {
		root, count, err := store.Digest(c.Context)
		if errors.Is(err, receipts.ErrEmptyLog) {
			return cli.Exit("no receipts recorded", 1)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "%s  (%d receipts)\n", root, count)
		return nil
	}

	list, err := store.List(c.Context, c.Args().First())
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(c.App.Writer, "No receipts found")
		return nil
	}

	out, err := yaml.Marshal(list)
	if err != nil {
		return fmt.Errorf("failed to encode receipts: %w", err)
	}
	_, err = c.App.Writer.Write(out)
	return err
}
