package verify_cli

import (
	"fmt"
	"os"

	"github.com/getvaultapp/vault-verify/pkg/backend"
	"github.com/getvaultapp/vault-verify/pkg/config"
	"github.com/getvaultapp/vault-verify/pkg/receipts"
	"github.com/getvaultapp/vault-verify/pkg/utils"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

// RunCli runs the vault-verify command line
func RunCli() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := NewApp(logger).Run(os.Args); err != nil {
		logger.Fatal("CLI failed", zap.Error(err))
	}
}

// NewApp builds the command table
func NewApp(logger *zap.Logger) *cli.App {
	return &cli.App{
		Name:  "vault-verify",
		Usage: "Hash documents and store or verify their hashes with the verification backend",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a YAML config file (default: ./config.yaml if present)",
				EnvVars: []string{"VERIFY_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Run the upload/query form server",
				Action: func(c *cli.Context) error {
					return ServeCommand(c, logger)
				},
			},
			{
				Name:      "hash",
				Usage:     "Print the SHA-256 hash of one or more files. Usage: hash <file>...",
				ArgsUsage: "<file>...",
				Action:    HashCommand,
			},
			{
				Name:      "upload",
				Usage:     "Store a document hash for a user. Usage: upload <file> <user_id>",
				ArgsUsage: "<file> <user_id>",
				Action: func(c *cli.Context) error {
					return SubmitCommand(c, backend.ActionUpload, logger)
				},
			},
			{
				Name:      "update",
				Usage:     "Replace the stored document hash for a user. Usage: update <file> <user_id>",
				ArgsUsage: "<file> <user_id>",
				Action: func(c *cli.Context) error {
					return SubmitCommand(c, backend.ActionUpdate, logger)
				},
			},
			{
				Name:      "query",
				Usage:     "Show the stored hash for a user. Usage: query <user_id>",
				ArgsUsage: "<user_id>",
				Action: func(c *cli.Context) error {
					return QueryCommand(c, logger)
				},
			},
			{
				Name:      "verify",
				Usage:     "Check a document against the hash stored for a user. Usage: verify <file> <user_id>",
				ArgsUsage: "<file> <user_id>",
				Action: func(c *cli.Context) error {
					return VerifyCommand(c, logger)
				},
			},
			{
				Name:      "receipts",
				Usage:     "List local receipts, optionally for one user. Usage: receipts [user_id]",
				ArgsUsage: "[user_id]",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "digest", Usage: "print only the Merkle root over all receipts"},
				},
				Action: func(c *cli.Context) error {
					return ReceiptsCommand(c, logger)
				},
			},
			{
				Name:  "config",
				Usage: "Print the effective configuration",
				Action: func(c *cli.Context) error {
					return ConfigCommand(c)
				},
			},
		},
	}
}

// env is what the network commands share
type env struct {
	cfg    *config.Config
	client *backend.Client
	store  *receipts.Store
	close  func()
}

func loadEnv(c *cli.Context, logger *zap.Logger) (*env, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, err
	}

	cleanup := utils.InitTracer("vault-verify-cli", cfg.Tracing)

	client, err := backend.NewClient(cfg.BackendURL, cfg.RequestTimeout, logger)
	if err != nil {
		cleanup()
		return nil, err
	}

	e := &env{cfg: cfg, client: client, close: cleanup}
	if cfg.ReceiptsDB != "" {
		store, err := receipts.Open(cfg.ReceiptsDB, logger)
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("failed to open receipts: %w", err)
		}
		e.store = store
		e.close = func() {
			store.Close()
			cleanup()
		}
	}
	return e, nil
}

// record writes a receipt for res when receipts are enabled
func (e *env) record(c *cli.Context, res backend.Result, userID, fileName string, logger *zap.Logger) {
	if e.store == nil || res.Kind == backend.KindInputError {
		return
	}
	if _, err := e.store.Add(c.Context, receipts.FromResult(res, userID, fileName)); err != nil {
		logger.Warn("Failed to record receipt", zap.String("user_id", userID), zap.Error(err))
	}
}
