package verify_cli

import (
	"fmt"

	"github.com/getvaultapp/vault-verify/pkg/config"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v2"
)

// effectiveConfig mirrors config.Config with durations as strings
type effectiveConfig struct {
	ServerAddress  string `yaml:"server_address"`
	BackendURL     string `yaml:"backend_url"`
	RequestTimeout string `yaml:"request_timeout"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
	StagingTTL     string `yaml:"staging_ttl"`
	ReceiptsDB     string `yaml:"receipts_db"`
	Tracing        bool   `yaml:"tracing"`
	TLSCert        string `yaml:"tls_cert,omitempty"`
	TLSKey         string `yaml:"tls_key,omitempty"`
	TLSCA          string `yaml:"tls_ca,omitempty"`
}

// ConfigCommand prints the configuration after file and environment overrides
func ConfigCommand(c *cli.Context) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return err
	}

	out, err := yaml.Marshal(effectiveConfig{
		ServerAddress:  cfg.ServerAddress,
		BackendURL:     cfg.BackendURL,
		RequestTimeout: cfg.RequestTimeout.String(),
		MaxUploadBytes: cfg.MaxUploadBytes,
		StagingTTL:     cfg.StagingTTL.String(),
		ReceiptsDB:     cfg.ReceiptsDB,
		Tracing:        cfg.Tracing,
		TLSCert:        cfg.TLSCert,
		TLSKey:         cfg.TLSKey,
		TLSCA:          cfg.TLSCA,
	})
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	_, err = c.App.Writer.Write(out)
	return err
}
