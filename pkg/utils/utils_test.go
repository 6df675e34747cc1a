package utils

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestInitTracer_Disabled(t *testing.T) {
	cleanup := InitTracer("vault-verify-test", false)
	require.NotNil(t, cleanup)
	cleanup()
}

func TestInitTracer_Enabled(t *testing.T) {
	cleanup := InitTracer("vault-verify-test", true)
	defer cleanup()

	_, span := otel.Tracer("test").Start(context.Background(), "span")
	assert.True(t, span.SpanContext().IsValid())
	span.End()
}

func TestLoadTLSConfig_MissingFiles(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadTLSConfig(filepath.Join(dir, "server.crt"), filepath.Join(dir, "server.key"), "", false)
	assert.Error(t, err)
}

func TestLoadTLSConfig_BadPEM(t *testing.T) {
	dir := t.TempDir()
	cert := filepath.Join(dir, "server.crt")
	require.NoError(t, os.WriteFile(cert, []byte("not a certificate"), 0600))
	_, err := LoadTLSConfig(cert, cert, "", false)
	assert.Error(t, err)
}
