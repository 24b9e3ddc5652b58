// SPDX-License-Identifier: AGPL-3.0-only
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	APIURL          string
	CableURL        string
	ListenAddr      string
	SessionSecret   string
	RequestTimeout  time.Duration
	RefreshInterval time.Duration

	OTLPEndpoint   string
	ServiceName    string
	TraceSampleArg float64
}

// LoadConfig reads .env files (when present) and then the environment.
func LoadConfig(files ...string) (*AppConfig, error) {
	if err := godotenv.Load(files...); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	timeout, err := getDuration("BOOKSHARE_REQUEST_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	refresh, err := getDuration("BOOKSHARE_REFRESH_INTERVAL", 0)
	if err != nil {
		return nil, err
	}
	sample, err := strconv.ParseFloat(getEnv("OTEL_TRACES_SAMPLER_ARG", "1"), 64)
	if err != nil || sample < 0 || sample > 1 {
		return nil, fmt.Errorf("OTEL_TRACES_SAMPLER_ARG must be a ratio between 0 and 1")
	}

	cfg := &AppConfig{
		APIURL:          strings.TrimRight(getEnv("BOOKSHARE_API_URL", "http://localhost:3000"), "/"),
		ListenAddr:      getEnv("BOOKSHARE_LISTEN_ADDR", ":8080"),
		SessionSecret:   getEnv("BOOKSHARE_SESSION_SECRET", ""),
		RequestTimeout:  timeout,
		RefreshInterval: refresh,
		OTLPEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		ServiceName:     getEnv("OTEL_SERVICE_NAME", "bookshare"),
		TraceSampleArg:  sample,
	}
	cfg.CableURL = getEnv("BOOKSHARE_CABLE_URL", cableURLFor(cfg.APIURL))

	return cfg, nil
}

// MinSessionSecret is the shortest cookie signing key serve accepts.
const MinSessionSecret = 32

var ErrSessionSecret = errors.New("BOOKSHARE_SESSION_SECRET must be set to at least 32 bytes")

// ValidateServe checks what the HTTP gateway needs on top of LoadConfig.
// The session cookie names the signed-in user, so it must be signed with a
// secret only this deployment knows.
func (c *AppConfig) ValidateServe() error {
	if len(c.SessionSecret) < MinSessionSecret {
		return ErrSessionSecret
	}
	return nil
}

// cableURLFor derives the ActionCable endpoint served next to the API.
func cableURLFor(apiURL string) string {
	switch {
	case strings.HasPrefix(apiURL, "https://"):
		return "wss://" + strings.TrimPrefix(apiURL, "https://") + "/cable"
	case strings.HasPrefix(apiURL, "http://"):
		return "ws://" + strings.TrimPrefix(apiURL, "http://") + "/cable"
	default:
		return apiURL + "/cable"
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative", key)
	}
	return d, nil
}
