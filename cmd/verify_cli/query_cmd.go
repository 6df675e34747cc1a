package verify_cli

import (
	"fmt"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

// QueryCommand prints the record stored for a user
func QueryCommand(c *cli.Context, logger *zap.Logger) error {
	if c.NArg() < 1 {
		return fmt.Errorf("usage: query <user_id>")
	}
	userID := c.Args().Get(0)

	e, err := loadEnv(c, logger)
	if err != nil {
		return err
	}
	defer e.close()

	res := e.client.Query(c.Context, userID)
	e.record(c, res, userID, "", logger)
	if !res.OK() {
		return cli.Exit(res.Message, 1)
	}

	fmt.Fprintln(c.App.Writer, res.Message)
	return nil
}
