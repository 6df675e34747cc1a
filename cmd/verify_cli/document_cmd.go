package verify_cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/getvaultapp/vault-verify/pkg/backend"
	"github.com/getvaultapp/vault-verify/pkg/document"
	"github.com/getvaultapp/vault-verify/pkg/hashing"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

// HashCommand prints "<hash>  <file>" for each argument
func HashCommand(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("usage: hash <file>...")
	}

	for _, path := range c.Args().Slice() {
		sum, err := hashing.HashFile(path)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "%s  %s\n", sum, path)
	}
	return nil
}

func readRequest(c *cli.Context, usage string) (document.UploadRequest, error) {
	if c.NArg() < 2 {
		return document.UploadRequest{}, fmt.Errorf("usage: %s", usage)
	}
	filePath := c.Args().Get(0)

	data, err := os.ReadFile(filePath)
	if err != nil {
		return document.UploadRequest{}, fmt.Errorf("failed to read file: %w", err)
	}
	req := document.UploadRequest{
		FileName:  filepath.Base(filePath),
		FileBytes: data,
		UserID:    c.Args().Get(1),
	}
	if err := req.Validate(); err != nil {
		return document.UploadRequest{}, err
	}
	return req, nil
}

// SubmitCommand uploads or updates a document hash
func SubmitCommand(c *cli.Context, action backend.Action, logger *zap.Logger) error {
	req, err := readRequest(c, fmt.Sprintf("%s <file> <user_id>", action))
	if err != nil {
		return err
	}

	e, err := loadEnv(c, logger)
	if err != nil {
		return err
	}
	defer e.close()

	fmt.Fprintf(c.App.Writer, "SHA-256 Hash: %s\n", req.Hash())

	var res backend.Result
	if action == backend.ActionUpdate {
		res = e.client.Update(c.Context, req)
	} else {
		res = e.client.Upload(c.Context, req)
	}
	e.record(c, res, req.UserID, req.FileName, logger)

	if !res.OK() {
		return cli.Exit(res.Message, 1)
	}
	fmt.Fprintln(c.App.Writer, res.Message)
	if res.Mismatch {
		return cli.Exit("the backend stored a hash that differs from the local hash", 2)
	}
	return nil
}

// VerifyCommand compares a local file with the hash stored for a user
func VerifyCommand(c *cli.Context, logger *zap.Logger) error {
	req, err := readRequest(c, "verify <file> <user_id>")
	if err != nil {
		return err
	}

	e, err := loadEnv(c, logger)
	if err != nil {
		return err
	}
	defer e.close()

	v := e.client.Verify(c.Context, req)
	e.record(c, v.Result, req.UserID, req.FileName, logger)
	if !v.OK() {
		return cli.Exit(v.Message, 1)
	}

	stored := ""
	if v.Record != nil {
		stored = v.Record.Digest()
	}
	fmt.Fprintf(c.App.Writer, "Local hash:  %s\nStored hash: %s\n", v.LocalHash, stored)
	if !v.Matched {
		return cli.Exit("MISMATCH", 2)
	}
	fmt.Fprintln(c.App.Writer, "MATCH")
	return nil
}
