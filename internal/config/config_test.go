// SPDX-License-Identifier: AGPL-3.0-only
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = []string{
	"BOOKSHARE_API_URL",
	"BOOKSHARE_CABLE_URL",
	"BOOKSHARE_LISTEN_ADDR",
	"BOOKSHARE_SESSION_SECRET",
	"BOOKSHARE_REQUEST_TIMEOUT",
	"BOOKSHARE_REFRESH_INTERVAL",
	"OTEL_EXPORTER_OTLP_ENDPOINT",
	"OTEL_SERVICE_NAME",
	"OTEL_TRACES_SAMPLER_ARG",
}

func clearEnv(t *testing.T) {
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:3000", cfg.APIURL)
	assert.Equal(t, "ws://localhost:3000/cable", cfg.CableURL)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Zero(t, cfg.RefreshInterval)
	assert.Empty(t, cfg.SessionSecret)
	assert.Equal(t, "bookshare", cfg.ServiceName)
	assert.Equal(t, 1.0, cfg.TraceSampleArg)
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("BOOKSHARE_API_URL", "https://books.example.com/")
	t.Setenv("BOOKSHARE_REQUEST_TIMEOUT", "5s")
	t.Setenv("BOOKSHARE_REFRESH_INTERVAL", "1m")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.25")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "https://books.example.com", cfg.APIURL)
	assert.Equal(t, "wss://books.example.com/cable", cfg.CableURL)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, time.Minute, cfg.RefreshInterval)
	assert.Equal(t, 0.25, cfg.TraceSampleArg)
}

func TestDotenvFile(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("BOOKSHARE_LISTEN_ADDR")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("BOOKSHARE_LISTEN_ADDR=:9999\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("BOOKSHARE_LISTEN_ADDR") })

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.ListenAddr)
}

func TestInvalidValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("BOOKSHARE_REQUEST_TIMEOUT", "soon")
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	assert.ErrorContains(t, err, "BOOKSHARE_REQUEST_TIMEOUT")

	clearEnv(t)
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "2")
	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestServeRequiresSessionSecret(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.ErrorIs(t, cfg.ValidateServe(), ErrSessionSecret)

	cfg.SessionSecret = "short"
	assert.ErrorIs(t, cfg.ValidateServe(), ErrSessionSecret)

	cfg.SessionSecret = "0123456789abcdef0123456789abcdef"
	assert.NoError(t, cfg.ValidateServe())
}
